package events

import (
	"time"

	"github.com/Eladkrauz/BodyTrackClient/types"
)

// EventType identifies the kind of session event.
type EventType string

// Session event types.
const (
	// EventSessionStarted fires when a session is registered and started.
	EventSessionStarted EventType = "session.started"

	// EventStageChanged fires on every stage transition.
	EventStageChanged EventType = "stage.changed"

	// EventReminderIssued fires when a calibration reminder loop triggers.
	EventReminderIssued EventType = "reminder.issued"

	// EventFeedbackReceived fires for every corrective feedback cue
	// surfaced during active analysis.
	EventFeedbackReceived EventType = "feedback.received"

	// EventNetworkStalled fires when the dispatch watchdog signals a stall.
	EventNetworkStalled EventType = "network.stalled"

	// EventSessionEnded fires exactly once when the session reaches its
	// terminal stage, with the final outcome.
	EventSessionEnded EventType = "session.ended"
)

// Event is a single session lifecycle notification.
type Event struct {
	Type      EventType
	Timestamp time.Time
	SessionID string
	Data      EventData
}

// EventData is the typed payload of an event.
type EventData interface{}

// SessionStartedData is the payload of EventSessionStarted.
type SessionStartedData struct {
	ExerciseKind string
	DurationSec  int
}

// StageChangedData is the payload of EventStageChanged.
type StageChangedData struct {
	From types.Stage
	To   types.Stage
}

// ReminderIssuedData is the payload of EventReminderIssued.
type ReminderIssuedData struct {
	Stage types.Stage

	// Results is how many analysis results arrived without a qualifying
	// success before the reminder fired.
	Results int
}

// FeedbackReceivedData is the payload of EventFeedbackReceived.
type FeedbackReceivedData struct {
	Code        string
	Description string
}

// NetworkStalledData is the payload of EventNetworkStalled.
type NetworkStalledData struct {
	StallTimeout time.Duration
}

// SessionEndedData is the payload of EventSessionEnded.
type SessionEndedData struct {
	Outcome  types.Outcome
	Duration time.Duration
}
