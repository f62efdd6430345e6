package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eladkrauz/BodyTrackClient/dispatch"
	"github.com/Eladkrauz/BodyTrackClient/service/mock"
	"github.com/Eladkrauz/BodyTrackClient/types"
)

func newRunner(t *testing.T, svc *mock.Service, scheduler *fakeScheduler) *Runner {
	t.Helper()
	cfg := RunnerConfig{
		Config:   defaultConfig(),
		Service:  svc,
		Narrator: &fakeNarrator{},
	}
	if scheduler != nil {
		cfg.AfterFunc = scheduler.AfterFunc
	}
	r, err := NewRunner(cfg)
	require.NoError(t, err)
	return r
}

func TestRunnerStartBootstrapsSession(t *testing.T) {
	svc := mock.New()
	r := newRunner(t, svc, &fakeScheduler{})

	require.NoError(t, r.Start(context.Background()))
	assert.Equal(t, mock.DefaultSessionID, r.SessionID())
	assert.Equal(t, []string{"ping", "register", "start"}, svc.Calls())
}

func TestRunnerStartFailsWhenServiceDown(t *testing.T) {
	svc := mock.New()
	svc.ManagementErr = assert.AnError
	r := newRunner(t, svc, &fakeScheduler{})

	err := r.Start(context.Background())
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestRunnerRunRequiresStart(t *testing.T) {
	r := newRunner(t, mock.New(), &fakeScheduler{})

	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestRunnerReleasesFramesBeforeStart(t *testing.T) {
	r := newRunner(t, mock.New(), &fakeScheduler{})

	released := false
	r.SubmitFrame(types.NewRawFrame(4, 4, make([]byte, 16), make([]byte, 8), 0, func() {
		released = true
	}))
	assert.True(t, released)
}

func TestRunnerAbortEndsRun(t *testing.T) {
	r := newRunner(t, mock.New(), &fakeScheduler{})
	require.NoError(t, r.Start(context.Background()))

	reports := make(chan *Report, 1)
	go func() {
		report, err := r.Run(context.Background())
		if err != nil {
			t.Error(err)
		}
		reports <- report
	}()

	r.Abort()
	select {
	case report := <-reports:
		require.NotNil(t, report)
		assert.Equal(t, types.OutcomeAborted, report.Outcome)
		assert.Nil(t, report.Summary)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after abort")
	}
}

// waitPending blocks until a timer with the given duration is scheduled.
func waitPending(t *testing.T, s *fakeScheduler, d time.Duration) {
	t.Helper()
	require.Eventuallyf(t, func() bool { return s.pending(d) },
		2*time.Second, 5*time.Millisecond, "no %s timer scheduled", d)
}

// waitMode blocks until the dispatch engine reaches the given mode.
func waitMode(t *testing.T, e *dispatch.Engine, mode dispatch.Mode) {
	t.Helper()
	require.Eventuallyf(t, func() bool { return e.Mode() == mode },
		2*time.Second, 5*time.Millisecond, "engine never reached %s", mode)
}

func TestRunnerFullScript(t *testing.T) {
	svc := mock.New()
	scheduler := &fakeScheduler{}
	r := newRunner(t, svc, scheduler)
	require.NoError(t, r.Start(context.Background()))

	reports := make(chan *Report, 1)
	go func() {
		report, err := r.Run(context.Background())
		if err != nil {
			t.Error(err)
		}
		reports <- report
	}()

	machine := r.machine.Load()
	engine := r.engine.Load()
	require.NotNil(t, machine)
	require.NotNil(t, engine)

	// Boot delay, intro narration, pre-check wait.
	waitPending(t, scheduler, bootDelay)
	scheduler.fire(t, bootDelay)
	waitPending(t, scheduler, postIntroDelay)
	scheduler.fire(t, postIntroDelay)

	// Visibility analysis: dispatch goes live at the calibration rate.
	waitMode(t, engine, dispatch.ModeSending)
	machine.OnDispatchResult(types.CalibrationResult(types.CodeVisibilityValid))
	waitMode(t, engine, dispatch.ModeIdle)

	waitPending(t, scheduler, visibilityDoneDelay)
	scheduler.fire(t, visibilityDoneDelay)

	// Position analysis, then the countdown into the exercise.
	waitMode(t, engine, dispatch.ModeSending)
	machine.OnDispatchResult(types.CalibrationResult(types.CodePositioningValid))

	// Active: the session timer is armed; expire it.
	duration := time.Duration(defaultConfig().DurationSec) * time.Second
	waitPending(t, scheduler, duration)
	scheduler.fire(t, duration)

	select {
	case report := <-reports:
		require.NotNil(t, report)
		assert.Equal(t, types.OutcomeCompleted, report.Outcome)
		assert.Equal(t, mock.DefaultSessionID, report.SessionID)
		require.NotNil(t, report.Summary)
		assert.Equal(t, mock.DefaultSessionID, report.Summary.SessionID)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after session expiry")
	}

	// The engine is terminally stopped after teardown.
	assert.Equal(t, dispatch.ModeStopped, engine.Mode())

	calls := svc.Calls()
	assert.Contains(t, calls, "start_analysis")
	assert.Contains(t, calls, "summary")

	// The end call is fire-and-forget and may land after Run returns.
	require.Eventually(t, func() bool {
		for _, call := range svc.Calls() {
			if call == "end" {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)
}

func TestNewRunnerValidatesConfig(t *testing.T) {
	_, err := NewRunner(RunnerConfig{Service: nil})
	assert.ErrorIs(t, err, ErrNilService)

	cfg := defaultConfig()
	cfg.ExerciseKind = ""
	_, err = NewRunner(RunnerConfig{Config: cfg, Service: mock.New()})
	assert.ErrorIs(t, err, types.ErrMissingExerciseKind)
}
