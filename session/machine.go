package session

import (
	"context"
	"errors"
	"time"

	"github.com/Eladkrauz/BodyTrackClient/events"
	"github.com/Eladkrauz/BodyTrackClient/logger"
	"github.com/Eladkrauz/BodyTrackClient/service"
	"github.com/Eladkrauz/BodyTrackClient/types"
)

// Stage script constants.
const (
	// CalibrationFPS is the dispatch rate during visibility and position
	// analysis.
	CalibrationFPS = 3

	// ActiveFPS is the dispatch rate during the timed exercise.
	ActiveFPS = 10

	// ReminderThreshold is how many analysis results may arrive without a
	// qualifying success before a reminder is narrated. A result count
	// rather than wall-clock time, so the reminder cadence tracks actual
	// server responsiveness (3 fps x ~5 s = 15 results).
	ReminderThreshold = 15

	// bootDelay is the grace period before the script starts.
	bootDelay = 3 * time.Second

	// postIntroDelay separates the visibility instructions from the check.
	postIntroDelay = 5 * time.Second

	// visibilityDoneDelay separates the confirmation from the next intro.
	visibilityDoneDelay = 1 * time.Second

	// finalCountdownWindow is the tail of the active stage during which
	// narrated feedback is suppressed in favor of the countdown cue.
	finalCountdownWindow = 5 * time.Second

	// endCallTimeout bounds the fire-and-forget end-session call.
	endCallTimeout = 5 * time.Second

	// eventBuffer sizes the control loop's event channel.
	eventBuffer = 64
)

// eventKind discriminates control loop events.
type eventKind int

const (
	evDelayElapsed eventKind = iota
	evNarrationDone
	evResult
	evStall
	evAnalysisStarted
	evFinalCountdown
	evExpired
	evAbort
)

// event is one discrete occurrence consumed by the control loop. Timer and
// narration events are tagged with the stage that scheduled them so stale
// events from a superseded stage are ignored.
type event struct {
	kind   eventKind
	stage  types.Stage
	result types.Result
	err    error
}

// MachineConfig configures a stage Machine.
type MachineConfig struct {
	// Config is the validated session configuration.
	Config types.SessionConfig

	// SessionID is the registered service session the machine controls.
	SessionID string

	// Service issues the start-analysis and end-session calls.
	Service service.Service

	// Dispatch is the engine the machine starts and stops.
	Dispatch DispatchController

	// Narrator speaks script prompts. Nil suppresses narration; the
	// script advances as if each prompt finished immediately.
	Narrator Narrator

	// Feedback displays textual corrective cues. Optional.
	Feedback FeedbackSink

	// Cues plays the end-of-session countdown. Optional.
	Cues CuePlayer

	// Emitter publishes lifecycle events. Optional.
	Emitter *events.Emitter

	// OnCompleted and OnAborted fire once when the session ends with the
	// corresponding outcome, from the control loop goroutine. Optional.
	OnCompleted func()
	OnAborted   func()

	// Now overrides the time source for tests. Default: time.Now.
	Now func() time.Time

	// AfterFunc overrides timer creation for tests. Default: time.AfterFunc.
	AfterFunc func(d time.Duration, f func()) *time.Timer
}

// Machine is the session stage machine. Create with NewMachine, wire
// OnDispatchResult/OnStall into the dispatch engine, then call Run from a
// dedicated goroutine.
type Machine struct {
	cfg       types.SessionConfig
	sessionID string
	svc       service.Service
	dispatch  DispatchController
	narrator  Narrator
	feedback  FeedbackSink
	cues        CuePlayer
	emitter     *events.Emitter
	onCompleted func()
	onAborted   func()
	now         func() time.Time
	afterFunc   func(d time.Duration, f func()) *time.Timer

	events chan event
	done   chan struct{}

	// Control-loop state. Owned by the Run goroutine; never touched from
	// other goroutines.
	stage          types.Stage
	resultCount    int
	finalCountdown bool
	ended          bool
	outcome        types.Outcome
	startedAt      time.Time

	sessionTimer *time.Timer
	cueTimer     *time.Timer
}

// Machine construction errors.
var (
	ErrNilService  = errors.New("session: nil service")
	ErrNilDispatch = errors.New("session: nil dispatch controller")
)

// NewMachine creates a stage machine positioned before the first stage.
func NewMachine(config MachineConfig) (*Machine, error) {
	if config.Service == nil {
		return nil, ErrNilService
	}
	if config.Dispatch == nil {
		return nil, ErrNilDispatch
	}
	if err := config.Config.Validate(); err != nil {
		return nil, err
	}

	now := config.Now
	if now == nil {
		now = time.Now
	}
	afterFunc := config.AfterFunc
	if afterFunc == nil {
		afterFunc = time.AfterFunc
	}

	return &Machine{
		cfg:         config.Config,
		sessionID:   config.SessionID,
		svc:         config.Service,
		dispatch:    config.Dispatch,
		narrator:    config.Narrator,
		feedback:    config.Feedback,
		cues:        config.Cues,
		emitter:     config.Emitter,
		onCompleted: config.OnCompleted,
		onAborted:   config.OnAborted,
		now:         now,
		afterFunc:   afterFunc,
		events:      make(chan event, eventBuffer),
		done:        make(chan struct{}),
	}, nil
}

// OnDispatchResult feeds one dispatch engine result into the control loop.
// Safe to call from any goroutine.
func (m *Machine) OnDispatchResult(result types.Result) {
	m.post(event{kind: evResult, result: result})
}

// OnStall feeds the dispatch engine's network-abort signal into the
// control loop. Safe to call from any goroutine.
func (m *Machine) OnStall() {
	m.post(event{kind: evStall})
}

// Abort requests an early aborted ending. Safe to call from any goroutine;
// idempotent.
func (m *Machine) Abort() {
	m.post(event{kind: evAbort})
}

// Done is closed when the session has ended.
func (m *Machine) Done() <-chan struct{} {
	return m.done
}

// Run executes the session script until the terminal stage and returns the
// outcome. Cancelling the context aborts the session.
func (m *Machine) Run(ctx context.Context) types.Outcome {
	m.startedAt = m.now()
	m.enter(types.StageBootDelay)

	for {
		select {
		case <-ctx.Done():
			m.end(types.OutcomeAborted, "context cancelled")
		case ev := <-m.events:
			m.handle(ev)
		}
		if m.ended {
			return m.outcome
		}
	}
}

// post delivers an event to the control loop, dropping it once the session
// has ended.
func (m *Machine) post(ev event) {
	select {
	case m.events <- ev:
	case <-m.done:
	}
}

// enter transitions into a stage and performs its entry actions.
func (m *Machine) enter(stage types.Stage) {
	from := m.stage
	m.stage = stage
	if from != stage {
		logger.StageTransition(m.sessionID, from.String(), stage.String())
		// Metrics are recorded by the bus-subscribed listener, not here.
		m.emitter.StageChanged(from, stage)
	}

	switch stage {
	case types.StageBootDelay:
		m.dispatch.StopSending()
		m.delay(bootDelay)

	case types.StageIntroVisibility:
		m.narrate(promptIntroVisibility)

	case types.StageWaitBeforeVisibility:
		m.narrate(promptCheckingView)

	case types.StageVisibilityAnalysis:
		m.resultCount = 0
		m.dispatch.StartSending(CalibrationFPS)

	case types.StageVisibilityReminder:
		m.dispatch.StopSending()
		m.emitter.ReminderIssued(stage, m.resultCount)
		m.narrate(promptVisibilityAgain)

	case types.StageVisibilityDone:
		m.dispatch.StopSending()
		m.narrate(promptVisibilityOK)

	case types.StageIntroPosition:
		m.narrate(promptIntroPosition)

	case types.StagePositionAnalysis:
		m.resultCount = 0
		m.dispatch.StartSending(CalibrationFPS)

	case types.StagePositionReminder:
		m.dispatch.StopSending()
		m.emitter.ReminderIssued(stage, m.resultCount)
		m.narrate(promptPositionAgain)

	case types.StageReadyCountdown:
		m.dispatch.StopSending()
		m.narrate(promptReadyCountdown)

	case types.StageActive:
		m.dispatch.StartSending(ActiveFPS)
		m.startSessionTimer()

	case types.StageEnded:
		// Entry work happens in end().
	}
}

// handle processes one control loop event.
func (m *Machine) handle(ev event) {
	if m.ended {
		return
	}

	switch ev.kind {
	case evDelayElapsed:
		if ev.stage != m.stage {
			return
		}
		switch m.stage {
		case types.StageBootDelay:
			m.enter(types.StageIntroVisibility)
		case types.StageIntroVisibility:
			m.enter(types.StageWaitBeforeVisibility)
		case types.StageVisibilityDone:
			m.enter(types.StageIntroPosition)
		default:
		}

	case evNarrationDone:
		if ev.stage != m.stage {
			return
		}
		switch m.stage {
		case types.StageIntroVisibility:
			m.delay(postIntroDelay)
		case types.StageWaitBeforeVisibility:
			m.enter(types.StageVisibilityAnalysis)
		case types.StageVisibilityReminder:
			m.enter(types.StageVisibilityAnalysis)
		case types.StageVisibilityDone:
			m.delay(visibilityDoneDelay)
		case types.StageIntroPosition:
			m.enter(types.StagePositionAnalysis)
		case types.StagePositionReminder:
			m.enter(types.StagePositionAnalysis)
		case types.StageReadyCountdown:
			m.beginAnalysis()
		default:
		}

	case evResult:
		m.handleResult(ev.result)

	case evStall:
		m.emitter.NetworkStalled(0)
		m.end(types.OutcomeAborted, "network stall")

	case evAnalysisStarted:
		// Only a success observed while still counting down starts the
		// exercise; anything else aborts.
		if m.stage != types.StageReadyCountdown {
			return
		}
		if ev.err != nil {
			logger.Error("Start-analysis call failed", "session_id", m.sessionID, "error", ev.err)
			m.end(types.OutcomeAborted, "start analysis failed")
			return
		}
		if ev.result.Kind == types.KindError || ev.result.Kind == types.KindNetworkFailure {
			logger.Error("Start-analysis rejected",
				"session_id", m.sessionID,
				"code", ev.result.Code,
			)
			m.end(types.OutcomeAborted, "start analysis rejected")
			return
		}
		m.enter(types.StageActive)

	case evFinalCountdown:
		if m.stage != types.StageActive {
			return
		}
		m.finalCountdown = true
		if m.cues != nil {
			m.cues.PlayCountdown()
		}

	case evExpired:
		if m.stage != types.StageActive {
			return
		}
		m.end(types.OutcomeCompleted, "session timer expired")

	case evAbort:
		m.end(types.OutcomeAborted, "abort requested")
	}
}

// handleResult applies one analysis result to the current stage.
func (m *Machine) handleResult(result types.Result) {
	switch m.stage {
	case types.StageVisibilityAnalysis:
		m.resultCount++
		if result.Kind == types.KindCalibration && result.Code == types.CodeVisibilityValid {
			m.enter(types.StageVisibilityDone)
			return
		}
		if m.resultCount >= ReminderThreshold {
			m.enter(types.StageVisibilityReminder)
		}

	case types.StagePositionAnalysis:
		m.resultCount++
		if result.Kind == types.KindCalibration && result.Code == types.CodePositioningValid {
			m.enter(types.StageReadyCountdown)
			return
		}
		if m.resultCount >= ReminderThreshold {
			m.enter(types.StagePositionReminder)
		}

	case types.StageActive:
		if result.IsMustAbort() {
			logger.Warn("Fatal service error during exercise",
				"session_id", m.sessionID,
				"code", result.Code,
				"description", result.Description,
			)
			m.end(types.OutcomeAborted, "fatal service error")
			return
		}
		if result.Kind == types.KindFeedback {
			m.surfaceFeedback(result)
		}

	default:
		// Results delivered outside an analysis stage (e.g. straggler
		// responses after a transition) are dropped.
	}
}

// surfaceFeedback forwards a corrective cue to the presentation layer,
// honoring the feedback toggles and the final-countdown suppression.
func (m *Machine) surfaceFeedback(result types.Result) {
	if result.Code == types.CodeFeedbackValid || result.Code == types.CodeFeedbackSilent {
		return
	}

	m.emitter.FeedbackReceived(result.Code, result.Description)

	if m.cfg.TextualFeedback && m.feedback != nil {
		m.feedback.ShowFeedback(result.Description)
	}
	if m.cfg.SpokenFeedback && m.narrator != nil && !m.finalCountdown {
		m.narrator.Speak(result.Description, func() {})
	}
}

// beginAnalysis issues the start-analysis call off the control loop and
// reports its outcome back as an event.
func (m *Machine) beginAnalysis() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), endCallTimeout)
		defer cancel()
		result, err := m.svc.StartAnalysis(ctx, m.sessionID)
		m.post(event{kind: evAnalysisStarted, result: result, err: err})
	}()
}

// delay schedules a stage-tagged timer event.
func (m *Machine) delay(d time.Duration) {
	stage := m.stage
	m.afterFunc(d, func() {
		m.post(event{kind: evDelayElapsed, stage: stage})
	})
}

// narrate speaks a script prompt and reports completion as a stage-tagged
// event. Without a narrator the prompt completes immediately.
func (m *Machine) narrate(text string) {
	stage := m.stage
	done := func() {
		m.post(event{kind: evNarrationDone, stage: stage})
	}
	if m.narrator == nil {
		done()
		return
	}
	m.narrator.Speak(text, done)
}

// startSessionTimer arms the exercise countdown and the final-window cue.
func (m *Machine) startSessionTimer() {
	duration := time.Duration(m.cfg.DurationSec) * time.Second
	if duration > finalCountdownWindow {
		m.cueTimer = m.afterFunc(duration-finalCountdownWindow, func() {
			m.post(event{kind: evFinalCountdown})
		})
	}
	m.sessionTimer = m.afterFunc(duration, func() {
		m.post(event{kind: evExpired})
	})
}

// end finishes the session exactly once: it cancels timers, stops
// dispatch, issues the fire-and-forget end call, and publishes the
// outcome. Repeated calls are no-ops.
func (m *Machine) end(outcome types.Outcome, reason string) {
	if m.ended {
		return
	}
	m.ended = true
	m.outcome = outcome

	if m.sessionTimer != nil {
		m.sessionTimer.Stop()
	}
	if m.cueTimer != nil {
		m.cueTimer.Stop()
	}

	m.dispatch.StopSending()
	m.enter(types.StageEnded)

	// Fire-and-forget: awaited only for logging, never blocks teardown.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), endCallTimeout)
		defer cancel()
		if _, err := m.svc.End(ctx, m.sessionID); err != nil {
			logger.Warn("End-session call failed", "session_id", m.sessionID, "error", err)
		}
	}()

	duration := m.now().Sub(m.startedAt)
	m.emitter.SessionEnded(outcome, duration)
	logger.Info("Session ended",
		"session_id", m.sessionID,
		"outcome", outcome.String(),
		"reason", reason,
		"duration_ms", duration.Milliseconds(),
	)

	switch outcome {
	case types.OutcomeCompleted:
		if m.onCompleted != nil {
			m.onCompleted()
		}
	case types.OutcomeAborted:
		if m.onAborted != nil {
			m.onAborted()
		}
	}

	close(m.done)
}
