package events

import (
	"time"

	"github.com/Eladkrauz/BodyTrackClient/types"
)

// Emitter publishes session events with shared metadata. A nil Emitter (or
// one with a nil bus) is a safe no-op, so callers never need to guard.
type Emitter struct {
	bus       *Bus
	sessionID string
}

// NewEmitter creates an emitter bound to one session.
func NewEmitter(bus *Bus, sessionID string) *Emitter {
	return &Emitter{bus: bus, sessionID: sessionID}
}

// emit publishes an event stamped with the session context.
func (e *Emitter) emit(eventType EventType, data EventData) {
	if e == nil || e.bus == nil {
		return
	}

	e.bus.Publish(&Event{
		Type:      eventType,
		Timestamp: time.Now(),
		SessionID: e.sessionID,
		Data:      data,
	})
}

// SessionStarted emits the session.started event.
func (e *Emitter) SessionStarted(exerciseKind string, durationSec int) {
	e.emit(EventSessionStarted, SessionStartedData{
		ExerciseKind: exerciseKind,
		DurationSec:  durationSec,
	})
}

// StageChanged emits the stage.changed event.
func (e *Emitter) StageChanged(from, to types.Stage) {
	e.emit(EventStageChanged, StageChangedData{From: from, To: to})
}

// ReminderIssued emits the reminder.issued event.
func (e *Emitter) ReminderIssued(stage types.Stage, results int) {
	e.emit(EventReminderIssued, ReminderIssuedData{Stage: stage, Results: results})
}

// FeedbackReceived emits the feedback.received event.
func (e *Emitter) FeedbackReceived(code, description string) {
	e.emit(EventFeedbackReceived, FeedbackReceivedData{
		Code:        code,
		Description: description,
	})
}

// NetworkStalled emits the network.stalled event.
func (e *Emitter) NetworkStalled(stallTimeout time.Duration) {
	e.emit(EventNetworkStalled, NetworkStalledData{StallTimeout: stallTimeout})
}

// SessionEnded emits the session.ended event.
func (e *Emitter) SessionEnded(outcome types.Outcome, duration time.Duration) {
	e.emit(EventSessionEnded, SessionEndedData{Outcome: outcome, Duration: duration})
}
