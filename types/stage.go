package types

import "fmt"

// Stage is one named step of the fixed session script. Exactly one stage
// is active at a time; the sequence is forward-only except for the two
// reminder loops.
type Stage int

// Session stages in script order.
const (
	// StageBootDelay is the initial grace period after session start.
	StageBootDelay Stage = iota

	// StageIntroVisibility narrates the visibility-check instructions.
	StageIntroVisibility

	// StageWaitBeforeVisibility narrates the short "checking" notice.
	StageWaitBeforeVisibility

	// StageVisibilityAnalysis streams frames until the user is fully visible.
	StageVisibilityAnalysis

	// StageVisibilityReminder re-narrates instructions after repeated
	// failed visibility checks, then loops back to analysis.
	StageVisibilityReminder

	// StageVisibilityDone confirms visibility before moving on.
	StageVisibilityDone

	// StageIntroPosition narrates the starting-pose instructions.
	StageIntroPosition

	// StagePositionAnalysis streams frames until the starting pose is held.
	StagePositionAnalysis

	// StagePositionReminder mirrors StageVisibilityReminder for positioning.
	StagePositionReminder

	// StageReadyCountdown narrates the countdown and starts analysis.
	StageReadyCountdown

	// StageActive is the timed exercise with live feedback.
	StageActive

	// StageEnded is terminal.
	StageEnded
)

// String returns the stage name for logging and events.
func (s Stage) String() string {
	switch s {
	case StageBootDelay:
		return "boot_delay"
	case StageIntroVisibility:
		return "intro_visibility"
	case StageWaitBeforeVisibility:
		return "wait_before_visibility"
	case StageVisibilityAnalysis:
		return "visibility_analysis"
	case StageVisibilityReminder:
		return "visibility_reminder"
	case StageVisibilityDone:
		return "visibility_done"
	case StageIntroPosition:
		return "intro_position"
	case StagePositionAnalysis:
		return "position_analysis"
	case StagePositionReminder:
		return "position_reminder"
	case StageReadyCountdown:
		return "ready_countdown"
	case StageActive:
		return "active"
	case StageEnded:
		return "ended"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Terminal reports whether the stage is the terminal stage.
func (s Stage) Terminal() bool {
	return s == StageEnded
}
