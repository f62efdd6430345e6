package types

import (
	"errors"
	"fmt"
)

// Session duration bounds in seconds, validated at session setup.
const (
	MinSessionDurationSec = 10
	MaxSessionDurationSec = 120
)

// CameraSide selects the capture device. Opaque to the core; forwarded to
// the capture layer as-is.
type CameraSide string

// Camera sides.
const (
	CameraFront CameraSide = "front"
	CameraRear  CameraSide = "rear"
)

// Validation errors.
var (
	// ErrDurationOutOfRange is returned when the session duration is
	// outside the 10-120 second window.
	ErrDurationOutOfRange = errors.New("session duration out of range")

	// ErrMissingExerciseKind is returned when no exercise kind is set.
	ErrMissingExerciseKind = errors.New("exercise kind is required")
)

// SessionConfig is the configuration surface consumed at session start.
// The feedback toggles gate presentation only; they never gate dispatch or
// stage transitions.
type SessionConfig struct {
	// ExerciseKind identifies the exercise to the analysis service
	// (e.g. "squat", "plank").
	ExerciseKind string `yaml:"exercise_kind"`

	// DurationSec is the active-exercise duration in seconds (10-120).
	DurationSec int `yaml:"duration_sec"`

	// Camera selects the capture device side. Default: front.
	Camera CameraSide `yaml:"camera"`

	// SpokenFeedback enables narrated corrective cues.
	SpokenFeedback bool `yaml:"spoken_feedback"`

	// TextualFeedback enables on-screen corrective cues.
	TextualFeedback bool `yaml:"textual_feedback"`
}

// Validate checks the configuration bounds required at session setup.
func (c SessionConfig) Validate() error {
	if c.ExerciseKind == "" {
		return ErrMissingExerciseKind
	}
	if c.DurationSec < MinSessionDurationSec || c.DurationSec > MaxSessionDurationSec {
		return fmt.Errorf("%w: %d (want %d-%d)",
			ErrDurationOutOfRange, c.DurationSec, MinSessionDurationSec, MaxSessionDurationSec)
	}
	return nil
}
