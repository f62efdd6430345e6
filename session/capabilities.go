package session

// Narrator speaks a prompt to the user. Done must be invoked exactly once
// when playback finishes; implementations may invoke it from any
// goroutine.
type Narrator interface {
	Speak(text string, done func())
}

// FeedbackSink displays a corrective cue as text. Implementations render
// on their own UI context.
type FeedbackSink interface {
	ShowFeedback(text string)
}

// CuePlayer plays short non-speech sound effects.
type CuePlayer interface {
	// PlayCountdown plays the end-of-session countdown cue. Narrated
	// feedback is suppressed while it runs.
	PlayCountdown()
}

// DispatchController is the slice of the dispatch engine the stage machine
// drives. Satisfied by *dispatch.Engine.
type DispatchController interface {
	StartSending(fps int)
	StopSending()
	StopAll()
}

// NarratorFunc adapts a function to the Narrator interface.
type NarratorFunc func(text string, done func())

// Speak implements Narrator.
func (f NarratorFunc) Speak(text string, done func()) {
	f(text, done)
}

// FeedbackSinkFunc adapts a function to the FeedbackSink interface.
type FeedbackSinkFunc func(text string)

// ShowFeedback implements FeedbackSink.
func (f FeedbackSinkFunc) ShowFeedback(text string) {
	f(text)
}
