// Package mock provides an in-memory Service implementation for testing
// and development. It returns scripted results without any network calls.
package mock

import (
	"context"
	"sync"

	"github.com/Eladkrauz/BodyTrackClient/media"
	"github.com/Eladkrauz/BodyTrackClient/types"
)

// DefaultSessionID is the session identifier returned by Register unless
// overridden.
const DefaultSessionID = "mock-session-1"

// Service is a scripted analysis service. Each operation returns the
// scripted result for it, or a generic success when nothing is scripted.
// Frame results are consumed in order; the last one repeats once the
// script is exhausted.
//
// All methods are safe for concurrent use.
type Service struct {
	mu sync.Mutex

	// SessionID is returned by Register. Default: DefaultSessionID.
	SessionID string

	// FrameScript is the ordered sequence of results for AnalyzeFrame.
	FrameScript []types.Result

	// ManagementErr, when set, is returned by every management call as a
	// transport failure.
	ManagementErr error

	// AnalyzeErr, when set, is returned by AnalyzeFrame as a transport
	// failure.
	AnalyzeErr error

	// AnalyzeDelay, when set, blocks AnalyzeFrame until the context is
	// done or the delay channel is closed (for in-flight tests).
	AnalyzeDelay chan struct{}

	frameIndex int
	calls      []string
	frames     []uint64
}

// New creates a mock service returning DefaultSessionID with an empty
// frame script.
func New() *Service {
	return &Service{SessionID: DefaultSessionID}
}

// Calls returns the ordered operation names invoked so far.
func (s *Service) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

// Frames returns the frame IDs analyzed so far.
func (s *Service) Frames() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uint64, len(s.frames))
	copy(out, s.frames)
	return out
}

// record appends one call under lock.
func (s *Service) record(op string) {
	s.mu.Lock()
	s.calls = append(s.calls, op)
	s.mu.Unlock()
}

// management produces a scripted management result.
func (s *Service) management(op, code string) (types.Result, error) {
	s.record(op)
	if s.ManagementErr != nil {
		return types.Result{}, s.ManagementErr
	}
	sessionID := s.SessionID
	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	return types.ManagementResult(code, sessionID), nil
}

// Register implements service.Service.
func (s *Service) Register(_ context.Context, _ string) (types.Result, error) {
	return s.management("register", "registered")
}

// Start implements service.Service.
func (s *Service) Start(_ context.Context, _ string) (types.Result, error) {
	return s.management("start", "started")
}

// StartAnalysis implements service.Service.
func (s *Service) StartAnalysis(_ context.Context, _ string) (types.Result, error) {
	return s.management("start_analysis", "analysis_started")
}

// Pause implements service.Service.
func (s *Service) Pause(_ context.Context, _ string) (types.Result, error) {
	return s.management("pause", "paused")
}

// Resume implements service.Service.
func (s *Service) Resume(_ context.Context, _ string) (types.Result, error) {
	return s.management("resume", "resumed")
}

// End implements service.Service.
func (s *Service) End(_ context.Context, _ string) (types.Result, error) {
	return s.management("end", "ended")
}

// AnalyzeFrame implements service.Service and dispatch.Analyzer.
func (s *Service) AnalyzeFrame(
	ctx context.Context, _ string, frameID uint64, _ *media.EncodedFrame,
) (types.Result, error) {
	s.mu.Lock()
	s.calls = append(s.calls, "analyze_frame")
	s.frames = append(s.frames, frameID)
	delay := s.AnalyzeDelay
	analyzeErr := s.AnalyzeErr
	var result types.Result
	if len(s.FrameScript) == 0 {
		result = types.FeedbackResult(types.CodeFeedbackValid, "")
	} else {
		result = s.FrameScript[s.frameIndex]
		if s.frameIndex < len(s.FrameScript)-1 {
			s.frameIndex++
		}
	}
	s.mu.Unlock()

	if delay != nil {
		select {
		case <-delay:
		case <-ctx.Done():
			return types.Result{}, ctx.Err()
		}
	}

	if analyzeErr != nil {
		return types.Result{}, analyzeErr
	}
	return result, nil
}

// Summary implements service.Service.
func (s *Service) Summary(_ context.Context, sessionID string) (types.Result, error) {
	s.record("summary")
	if s.ManagementErr != nil {
		return types.Result{}, s.ManagementErr
	}
	return types.SummaryResult(&types.SessionSummary{SessionID: sessionID}), nil
}

// Ping implements service.Service.
func (s *Service) Ping(_ context.Context) (types.Result, error) {
	s.record("ping")
	if s.ManagementErr != nil {
		return types.Result{}, s.ManagementErr
	}
	return types.PingResult(), nil
}
