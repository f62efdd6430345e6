package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Eladkrauz/BodyTrackClient/dispatch"
	"github.com/Eladkrauz/BodyTrackClient/events"
	"github.com/Eladkrauz/BodyTrackClient/logger"
	"github.com/Eladkrauz/BodyTrackClient/media"
	"github.com/Eladkrauz/BodyTrackClient/service"
	"github.com/Eladkrauz/BodyTrackClient/types"
	"github.com/Eladkrauz/BodyTrackClient/version"
)

const (
	// setupCallTimeout bounds each bootstrap call (ping, register, start).
	setupCallTimeout = 10 * time.Second

	// summaryTimeout bounds the best-effort summary fetch after the session.
	summaryTimeout = 5 * time.Second
)

// Runner errors.
var (
	ErrNotStarted          = errors.New("session: runner not started")
	ErrServiceUnavailable  = errors.New("session: analysis service unavailable")
	ErrIncompatibleVersion = errors.New("session: client version rejected by service")
)

// versionGate is implemented by services that announce a minimum client
// version on ping.
type versionGate interface {
	MinClientVersion() string
}

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	// Config is the session configuration. Validated by NewRunner.
	Config types.SessionConfig

	// Service is the analysis service client. It also serves as the
	// dispatch engine's analyzer.
	Service service.Service

	// MaxInFlight, StallTimeout, and Encoder tune the dispatch engine.
	// Zero values use the engine defaults.
	MaxInFlight  int
	StallTimeout time.Duration
	Encoder      media.EncoderConfig

	// Narrator, Feedback, and Cues are the presentation hooks. All
	// optional.
	Narrator Narrator
	Feedback FeedbackSink
	Cues     CuePlayer

	// Bus receives lifecycle events. Optional.
	Bus *events.Bus

	// Now and AfterFunc override the time sources for tests.
	Now       func() time.Time
	AfterFunc func(d time.Duration, f func()) *time.Timer
}

// Report is the outcome of a completed run.
type Report struct {
	SessionID string
	Outcome   types.Outcome

	// Summary is the post-session summary, nil when the fetch failed or an
	// aborted session produced none.
	Summary *types.SessionSummary
}

// Runner bootstraps and executes one session end to end: service probe,
// registration, dispatch engine wiring, stage script, and teardown. A
// Runner is single-use.
type Runner struct {
	cfg RunnerConfig

	sessionID string
	engine    atomic.Pointer[dispatch.Engine]
	machine   atomic.Pointer[Machine]
}

// NewRunner validates the configuration and creates a runner.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.Service == nil {
		return nil, ErrNilService
	}
	if err := cfg.Config.Validate(); err != nil {
		return nil, err
	}
	return &Runner{cfg: cfg}, nil
}

// SessionID returns the registered session identifier, empty before Start.
func (r *Runner) SessionID() string {
	return r.sessionID
}

// Start probes the service, registers and starts a session, and wires the
// dispatch engine to a fresh stage machine. Must complete before Run and
// before frames are submitted.
func (r *Runner) Start(ctx context.Context) error {
	if err := r.probe(ctx); err != nil {
		return err
	}

	sessionID, err := r.register(ctx)
	if err != nil {
		return err
	}
	r.sessionID = sessionID

	if err := r.begin(ctx); err != nil {
		return err
	}

	emitter := events.NewEmitter(r.cfg.Bus, sessionID)

	machine, err := NewMachine(MachineConfig{
		Config:    r.cfg.Config,
		SessionID: sessionID,
		Service:   r.cfg.Service,
		Dispatch:  dispatchHandle{r},
		Narrator:  r.cfg.Narrator,
		Feedback:  r.cfg.Feedback,
		Cues:      r.cfg.Cues,
		Emitter:   emitter,
		Now:       r.cfg.Now,
		AfterFunc: r.cfg.AfterFunc,
	})
	if err != nil {
		return err
	}

	engine := dispatch.NewEngine(r.cfg.Service, dispatch.Config{
		SessionID:    sessionID,
		MaxInFlight:  r.cfg.MaxInFlight,
		StallTimeout: r.cfg.StallTimeout,
		Encoder:      r.cfg.Encoder,
		OnResult:     machine.OnDispatchResult,
		OnStall:      machine.OnStall,
		Now:          r.cfg.Now,
	})

	r.engine.Store(engine)
	r.machine.Store(machine)

	emitter.SessionStarted(r.cfg.Config.ExerciseKind, r.cfg.Config.DurationSec)
	logger.Info("Session started",
		"session_id", sessionID,
		"exercise", r.cfg.Config.ExerciseKind,
		"duration_sec", r.cfg.Config.DurationSec,
	)
	return nil
}

// Run executes the stage script to completion and tears down. Blocks until
// the session ends; cancelling the context aborts it.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	machine := r.machine.Load()
	engine := r.engine.Load()
	if machine == nil || engine == nil {
		return nil, ErrNotStarted
	}

	outcome := machine.Run(ctx)
	engine.StopAll()

	report := &Report{
		SessionID: r.sessionID,
		Outcome:   outcome,
	}
	if outcome == types.OutcomeCompleted {
		report.Summary = r.fetchSummary()
	}
	return report, nil
}

// SubmitFrame offers one captured frame to the dispatch engine. Frames
// arriving before Start completes are released and dropped. Safe to call
// from the capture goroutine at any time.
func (r *Runner) SubmitFrame(raw *types.RawFrame) {
	engine := r.engine.Load()
	if engine == nil {
		raw.Release()
		return
	}
	engine.Submit(raw)
}

// Abort requests an early aborted ending. Safe from any goroutine.
func (r *Runner) Abort() {
	if machine := r.machine.Load(); machine != nil {
		machine.Abort()
	}
}

// probe pings the service and enforces the announced version floor.
func (r *Runner) probe(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, setupCallTimeout)
	defer cancel()

	result, err := r.cfg.Service.Ping(callCtx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}
	if result.Kind == types.KindError || result.Kind == types.KindNetworkFailure {
		return fmt.Errorf("%w: %s", ErrServiceUnavailable, result.Description)
	}

	if gate, ok := r.cfg.Service.(versionGate); ok {
		if err := version.CheckCompatibility(gate.MinClientVersion()); err != nil {
			return fmt.Errorf("%w: %w", ErrIncompatibleVersion, err)
		}
	}
	return nil
}

// register creates the service-side session and returns its identifier.
func (r *Runner) register(ctx context.Context) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, setupCallTimeout)
	defer cancel()

	result, err := r.cfg.Service.Register(callCtx, r.cfg.Config.ExerciseKind)
	if err != nil {
		return "", fmt.Errorf("registering session: %w", err)
	}
	if result.Kind != types.KindManagement || result.SessionID == "" {
		return "", fmt.Errorf("registering session: %s (%s)", result.Description, result.Code)
	}
	return result.SessionID, nil
}

// begin moves the registered session to its running state.
func (r *Runner) begin(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, setupCallTimeout)
	defer cancel()

	result, err := r.cfg.Service.Start(callCtx, r.sessionID)
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	if result.Kind != types.KindManagement {
		return fmt.Errorf("starting session: %s (%s)", result.Description, result.Code)
	}
	return nil
}

// fetchSummary retrieves the post-session summary, best effort.
func (r *Runner) fetchSummary() *types.SessionSummary {
	ctx, cancel := context.WithTimeout(context.Background(), summaryTimeout)
	defer cancel()

	result, err := r.cfg.Service.Summary(ctx, r.sessionID)
	if err != nil {
		logger.Warn("Summary fetch failed", "session_id", r.sessionID, "error", err)
		return nil
	}
	if result.Kind != types.KindSummary || result.Summary == nil {
		logger.Warn("Summary unavailable", "session_id", r.sessionID, "code", result.Code)
		return nil
	}
	return result.Summary
}

// dispatchHandle adapts the runner's lazily created engine to the
// DispatchController the machine holds. The machine is constructed before
// the engine because the engine's callbacks point back at the machine.
type dispatchHandle struct {
	r *Runner
}

func (h dispatchHandle) StartSending(fps int) {
	if engine := h.r.engine.Load(); engine != nil {
		engine.StartSending(fps)
	}
}

func (h dispatchHandle) StopSending() {
	if engine := h.r.engine.Load(); engine != nil {
		engine.StopSending()
	}
}

func (h dispatchHandle) StopAll() {
	if engine := h.r.engine.Load(); engine != nil {
		engine.StopAll()
	}
}
