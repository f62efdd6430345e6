package dispatch

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/Eladkrauz/BodyTrackClient/logger"
	"github.com/Eladkrauz/BodyTrackClient/media"
	prom "github.com/Eladkrauz/BodyTrackClient/metrics/prometheus"
	"github.com/Eladkrauz/BodyTrackClient/types"
)

// Default engine configuration constants.
const (
	// DefaultMaxInFlight bounds concurrent outstanding analysis requests.
	DefaultMaxInFlight = 6

	// DefaultStallTimeout is how long the engine waits without any response
	// before signaling a network stall.
	DefaultStallTimeout = 10 * time.Second
)

// Mode is the engine's dispatch mode.
type Mode int32

// Dispatch modes.
const (
	// ModeIdle means the capture pipeline runs but frames are discarded at
	// admission. This is the initial mode.
	ModeIdle Mode = iota

	// ModeSending means frames are paced and forwarded to the service.
	ModeSending

	// ModeStopped is terminal; no further admission or restart is possible.
	ModeStopped
)

// String returns the mode name for logging.
func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeSending:
		return "sending"
	case ModeStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", int32(m))
	}
}

// Analyzer issues the per-frame analysis request. Implementations must be
// safe for concurrent calls; the engine never cancels a request mid-flight.
type Analyzer interface {
	AnalyzeFrame(ctx context.Context, sessionID string, frameID uint64, frame *media.EncodedFrame) (types.Result, error)
}

// Config configures an Engine.
type Config struct {
	// SessionID is the registered analysis session this engine feeds.
	SessionID string

	// MaxInFlight bounds concurrent outstanding requests.
	// Default: DefaultMaxInFlight.
	MaxInFlight int

	// StallTimeout is the watchdog threshold. Default: DefaultStallTimeout.
	StallTimeout time.Duration

	// Encoder configures frame encoding. Zero value uses
	// media.DefaultEncoderConfig.
	Encoder media.EncoderConfig

	// OnResult receives every response to a dispatched frame while the
	// engine is in ModeSending. It is invoked from the request goroutine;
	// callers that need single-threaded delivery must serialize internally
	// (the session control loop does this via its event channel).
	OnResult func(types.Result)

	// OnStall is the one-shot network-abort notification. Invoked at most
	// once per StartSending activation, from the capture worker goroutine.
	OnStall func()

	// Now overrides the time source for tests. Default: time.Now.
	Now func() time.Time
}

// Engine is the frame dispatch engine. Create with NewEngine.
type Engine struct {
	analyzer  Analyzer
	sessionID string
	encoder   media.EncoderConfig
	stall     time.Duration
	onResult  func(types.Result)
	onStall   func()
	now       func() time.Time

	mode         atomic.Int32
	limiter      atomic.Pointer[rate.Limiter]
	budget       *semaphore.Weighted
	maxInFlight  int64
	inFlight     atomic.Int64
	lastResponse atomic.Int64 // unix nanos of the last observed response
	stallFired   atomic.Bool  // one-shot latch, re-armed by StartSending
	nextFrameID  atomic.Uint64

	stats engineStats
}

// NewEngine creates a dispatch engine in ModeIdle.
func NewEngine(analyzer Analyzer, config Config) *Engine {
	maxInFlight := config.MaxInFlight
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxInFlight
	}
	stall := config.StallTimeout
	if stall <= 0 {
		stall = DefaultStallTimeout
	}
	encoder := config.Encoder
	if encoder.Quality <= 0 && encoder.MaxDimension <= 0 {
		encoder = media.DefaultEncoderConfig()
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}

	e := &Engine{
		analyzer:    analyzer,
		sessionID:   config.SessionID,
		encoder:     encoder,
		stall:       stall,
		onResult:    config.OnResult,
		onStall:     config.OnStall,
		now:         now,
		budget:      semaphore.NewWeighted(int64(maxInFlight)),
		maxInFlight: int64(maxInFlight),
	}
	e.mode.Store(int32(ModeIdle))
	return e
}

// Mode returns the current dispatch mode.
func (e *Engine) Mode() Mode {
	return Mode(e.mode.Load())
}

// StartSending transitions to ModeSending at the given target rate.
// The pacing deadline resets to now, so the first frame to arrive is
// admitted immediately but no catch-up burst occurs. The stall watchdog is
// re-armed. A non-positive fps behaves as StopSending. No-op once stopped.
func (e *Engine) StartSending(fps int) {
	if e.Mode() == ModeStopped {
		logger.Warn("StartSending on stopped engine ignored", "session_id", e.sessionID)
		return
	}
	if fps <= 0 {
		e.StopSending()
		return
	}

	// Fresh limiter with burst 1: one full token at activation, then one
	// token per 1/fps interval. Replacing the limiter discards any pacing
	// debt from the previous activation.
	lim := rate.NewLimiter(rate.Limit(fps), 1)
	e.limiter.Store(lim)
	e.lastResponse.Store(e.now().UnixNano())
	e.stallFired.Store(false)
	e.mode.Store(int32(ModeSending))

	logger.Info("Dispatch started",
		"session_id", e.sessionID,
		"target_fps", fps,
		"max_in_flight", e.maxInFlight,
	)
}

// StopSending transitions to ModeIdle. New frames are discarded at
// admission; in-flight requests are not cancelled and their responses still
// release their admission slots, but are no longer forwarded. No-op once
// stopped.
func (e *Engine) StopSending() {
	if e.Mode() == ModeStopped {
		return
	}
	e.mode.Store(int32(ModeIdle))
	logger.Debug("Dispatch idle", "session_id", e.sessionID)
}

// StopAll transitions to ModeStopped, the terminal mode.
func (e *Engine) StopAll() {
	e.mode.Store(int32(ModeStopped))
	logger.Debug("Dispatch stopped", "session_id", e.sessionID)
}

// Submit offers one raw frame for dispatch. It is called by the capture
// source at its native rate, which may far exceed the target rate; frames
// that fail any admission check are dropped, never queued. The raw frame's
// Release hook runs on every path.
//
// Submit must be called from a single capture worker goroutine.
func (e *Engine) Submit(raw *types.RawFrame) {
	if raw == nil {
		return
	}
	defer raw.Release()

	e.stats.submitted.Add(1)
	prom.RecordFrameSubmitted()

	switch e.Mode() {
	case ModeIdle:
		e.drop(DropIdle)
		return
	case ModeStopped:
		e.drop(DropStopped)
		return
	case ModeSending:
	}

	now := e.now()

	// Watchdog: one abort per activation, and the triggering frame is not
	// sent.
	if e.stalled(now) && e.stallFired.CompareAndSwap(false, true) {
		logger.Warn("Network stall detected",
			"session_id", e.sessionID,
			"stall_timeout_ms", e.stall.Milliseconds(),
		)
		e.drop(DropStalled)
		prom.RecordStall()
		if e.onStall != nil {
			e.onStall()
		}
		return
	}

	lim := e.limiter.Load()
	if lim == nil {
		e.drop(DropIdle)
		return
	}

	// Pacing pre-check without consuming the token: the deadline must not
	// advance unless the frame is actually admitted.
	if lim.TokensAt(now) < 1 {
		e.drop(DropPaced)
		return
	}

	if !e.budget.TryAcquire(1) {
		e.drop(DropBudget)
		return
	}

	// Single submitter plus the pre-check above make this consume succeed;
	// it advances the pacing deadline to now+interval.
	lim.AllowN(now, 1)

	e.inFlight.Add(1)
	prom.IncFramesInFlight()

	encoded, err := media.EncodeFrame(raw, e.encoder)
	if err != nil {
		// Local failure before dispatch: give back the slot, drop silently.
		e.inFlight.Add(-1)
		prom.DecFramesInFlight()
		e.budget.Release(1)
		e.drop(DropEncode)
		logger.Debug("Frame encode failed", "session_id", e.sessionID, "error", err)
		return
	}

	frameID := e.nextFrameID.Add(1)
	e.stats.admitted.Add(1)
	prom.RecordFrameAdmitted()

	go e.send(frameID, encoded)
}

// send issues the analysis request and observes its response. The admission
// slot reserved in Submit is released exactly once, on every path.
func (e *Engine) send(frameID uint64, frame *media.EncodedFrame) {
	defer func() {
		e.inFlight.Add(-1)
		prom.DecFramesInFlight()
		e.budget.Release(1)
	}()

	start := e.now()
	result, err := e.analyzer.AnalyzeFrame(context.Background(), e.sessionID, frameID, frame)

	e.lastResponse.Store(e.now().UnixNano())

	if err != nil {
		prom.RecordAnalyzeRequest("error", e.now().Sub(start).Seconds())
		result = types.NetworkFailureResult(err)
	} else {
		prom.RecordAnalyzeRequest("success", e.now().Sub(start).Seconds())
	}

	// Responses are consumed even after StopSending to keep the budget
	// correct, but only forwarded while still sending.
	if e.Mode() != ModeSending {
		return
	}
	if e.onResult != nil {
		e.onResult(result)
	}
}

// stalled reports whether the watchdog threshold has elapsed since the last
// observed response.
func (e *Engine) stalled(now time.Time) bool {
	last := time.Unix(0, e.lastResponse.Load())
	return now.Sub(last) > e.stall
}
