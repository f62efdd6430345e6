package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eladkrauz/BodyTrackClient/types"
)

// recorder collects delivered events across goroutines.
type recorder struct {
	mu     sync.Mutex
	events []*Event
}

func (r *recorder) listen(e *Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *recorder) first() *Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return nil
	}
	return r.events[0]
}

func waitCount(t *testing.T, r *recorder, want int) {
	t.Helper()
	require.Eventuallyf(t, func() bool { return r.count() == want },
		2*time.Second, 5*time.Millisecond, "want %d events, have %d", want, r.count())
}

func TestBusDeliversToTypeSubscribers(t *testing.T) {
	bus := NewBus()
	stageEvents := &recorder{}
	endEvents := &recorder{}
	bus.Subscribe(EventStageChanged, stageEvents.listen)
	bus.Subscribe(EventSessionEnded, endEvents.listen)

	bus.Publish(&Event{Type: EventStageChanged, SessionID: "s1"})
	waitCount(t, stageEvents, 1)
	assert.Zero(t, endEvents.count())
}

func TestBusDeliversToGlobalSubscribers(t *testing.T) {
	bus := NewBus()
	all := &recorder{}
	bus.SubscribeAll(all.listen)

	bus.Publish(&Event{Type: EventStageChanged})
	bus.Publish(&Event{Type: EventSessionEnded})
	waitCount(t, all, 2)
}

func TestBusSurvivesPanickingListener(t *testing.T) {
	bus := NewBus()
	after := &recorder{}
	bus.Subscribe(EventStageChanged, func(*Event) { panic("bad listener") })
	bus.Subscribe(EventStageChanged, after.listen)

	bus.Publish(&Event{Type: EventStageChanged})
	waitCount(t, after, 1)
}

func TestBusClear(t *testing.T) {
	bus := NewBus()
	rec := &recorder{}
	bus.Subscribe(EventStageChanged, rec.listen)
	bus.SubscribeAll(rec.listen)
	bus.Clear()

	bus.Publish(&Event{Type: EventStageChanged})
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, rec.count())
}

func TestEmitterStampsSessionContext(t *testing.T) {
	bus := NewBus()
	rec := &recorder{}
	bus.SubscribeAll(rec.listen)

	emitter := NewEmitter(bus, "sess-1")
	emitter.StageChanged(types.StageBootDelay, types.StageIntroVisibility)
	waitCount(t, rec, 1)

	ev := rec.first()
	assert.Equal(t, EventStageChanged, ev.Type)
	assert.Equal(t, "sess-1", ev.SessionID)
	assert.False(t, ev.Timestamp.IsZero())

	data, ok := ev.Data.(StageChangedData)
	require.True(t, ok)
	assert.Equal(t, types.StageBootDelay, data.From)
	assert.Equal(t, types.StageIntroVisibility, data.To)
}

func TestEmitterNilSafety(t *testing.T) {
	var emitter *Emitter
	emitter.StageChanged(types.StageBootDelay, types.StageActive)
	emitter.SessionEnded(types.OutcomeCompleted, time.Minute)

	NewEmitter(nil, "s1").ReminderIssued(types.StageVisibilityReminder, 15)
}

func TestEmitterPayloads(t *testing.T) {
	bus := NewBus()
	rec := &recorder{}
	bus.SubscribeAll(rec.listen)
	emitter := NewEmitter(bus, "s1")

	emitter.SessionStarted("squat", 30)
	emitter.ReminderIssued(types.StagePositionReminder, 15)
	emitter.FeedbackReceived("lean_forward", "Lean forward")
	emitter.NetworkStalled(10 * time.Second)
	emitter.SessionEnded(types.OutcomeAborted, 12*time.Second)
	waitCount(t, rec, 5)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	kinds := make(map[EventType]bool)
	for _, ev := range rec.events {
		kinds[ev.Type] = true
	}
	for _, want := range []EventType{
		EventSessionStarted, EventReminderIssued, EventFeedbackReceived,
		EventNetworkStalled, EventSessionEnded,
	} {
		assert.Truef(t, kinds[want], "missing event %s", want)
	}
}
