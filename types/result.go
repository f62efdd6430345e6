// Package types defines the shared domain types for BodyTrack sessions:
// analysis results, raw camera frames, session configuration, and the
// session stage enumeration.
package types

import "fmt"

// ResultKind discriminates the Result tagged union.
type ResultKind int

// Result kinds.
const (
	// KindCalibration is a calibration outcome (visibility/positioning checks).
	KindCalibration ResultKind = iota

	// KindManagement is the outcome of a session management call
	// (register, start, pause, resume, end).
	KindManagement

	// KindFeedback is per-frame exercise feedback during active analysis.
	KindFeedback

	// KindPing is a liveness probe response.
	KindPing

	// KindSummary is an end-of-session summary.
	KindSummary

	// KindError is a structured error reported by the service.
	KindError

	// KindNetworkFailure means no response was received at all.
	KindNetworkFailure
)

// String returns the kind name for logging.
func (k ResultKind) String() string {
	switch k {
	case KindCalibration:
		return "calibration"
	case KindManagement:
		return "management"
	case KindFeedback:
		return "feedback"
	case KindPing:
		return "ping"
	case KindSummary:
		return "summary"
	case KindError:
		return "error"
	case KindNetworkFailure:
		return "network_failure"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Calibration codes returned by the analysis service during the
// pre-exercise phase.
const (
	// CodeVisibilityValid means the user is fully visible in frame.
	CodeVisibilityValid = "visibility_valid"

	// CodePositioningValid means the user reached the starting pose.
	CodePositioningValid = "positioning_valid"
)

// Feedback codes with reserved meaning. Any other feedback code is a
// corrective cue surfaced to the presentation layer.
const (
	// CodeFeedbackValid means the current form is correct; no cue is shown.
	CodeFeedbackValid = "valid"

	// CodeFeedbackSilent suppresses presentation without implying correctness.
	CodeFeedbackSilent = "silent"
)

// Service error codes with reserved meaning.
const (
	// CodeMustAbort is the designated fatal error code: the session must
	// end with an aborted outcome when it is received during active analysis.
	CodeMustAbort = "session_must_abort"

	// CodeInternalError is the normalized code for malformed or
	// unrecognized service responses.
	CodeInternalError = "internal_error"
)

// Result is the tagged union produced by the analysis service. Exactly one
// of the optional fields is meaningful for a given Kind:
//
//   - KindCalibration, KindFeedback, KindError: Code (and Description for
//     feedback/error).
//   - KindManagement: Code and SessionID (register returns the new ID).
//   - KindSummary: Summary.
//   - KindNetworkFailure: Cause.
//   - KindPing: no payload.
type Result struct {
	Kind        ResultKind
	Code        string
	Description string
	SessionID   string
	Summary     *SessionSummary
	Cause       error
}

// SessionSummary aggregates a finished session as reported by the service.
type SessionSummary struct {
	SessionID      string  `json:"session_id"`
	ExerciseKind   string  `json:"exercise_kind"`
	DurationSec    int     `json:"duration_sec"`
	FramesAnalyzed int     `json:"frames_analyzed"`
	ValidFrames    int     `json:"valid_frames"`
	Score          float64 `json:"score"`
}

// CalibrationResult builds a calibration outcome.
func CalibrationResult(code string) Result {
	return Result{Kind: KindCalibration, Code: code}
}

// ManagementResult builds a management-call outcome.
func ManagementResult(code, sessionID string) Result {
	return Result{Kind: KindManagement, Code: code, SessionID: sessionID}
}

// FeedbackResult builds a per-frame feedback outcome.
func FeedbackResult(code, description string) Result {
	return Result{Kind: KindFeedback, Code: code, Description: description}
}

// PingResult builds a liveness probe outcome.
func PingResult() Result {
	return Result{Kind: KindPing}
}

// SummaryResult builds a session summary outcome.
func SummaryResult(summary *SessionSummary) Result {
	return Result{Kind: KindSummary, Summary: summary}
}

// ErrorResult builds a service-reported error outcome.
func ErrorResult(code, description string) Result {
	return Result{Kind: KindError, Code: code, Description: description}
}

// NetworkFailureResult builds a transport-failure outcome.
func NetworkFailureResult(cause error) Result {
	return Result{Kind: KindNetworkFailure, Cause: cause}
}

// IsMustAbort reports whether the result carries the designated fatal
// error code.
func (r Result) IsMustAbort() bool {
	return r.Kind == KindError && r.Code == CodeMustAbort
}

// Outcome is the caller-visible exit signal of a finished session.
type Outcome int

// Session outcomes.
const (
	// OutcomeCompleted means the session timer expired normally.
	OutcomeCompleted Outcome = iota

	// OutcomeAborted means the session was terminated early (fatal service
	// error, network stall, or caller request).
	OutcomeAborted
)

// String returns the outcome name for logging.
func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeAborted:
		return "aborted"
	default:
		return fmt.Sprintf("unknown(%d)", int(o))
	}
}
