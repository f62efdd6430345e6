// Package session drives the scripted calibration-then-exercise flow of a
// BodyTrack session and is the only caller that starts and stops the
// dispatch engine.
//
// The script is a fixed, forward-only sequence of stages:
//
//	BootDelay -> IntroVisibility -> WaitBeforeVisibility ->
//	VisibilityAnalysis (<-> VisibilityReminder) -> VisibilityDone ->
//	IntroPosition -> PositionAnalysis (<-> PositionReminder) ->
//	ReadyCountdown -> Active -> Ended
//
// The Machine runs a single-goroutine control loop consuming discrete
// events (timer fired, narration finished, result received, stall
// signaled). Dispatch results and stall notifications arrive from other
// goroutines and are serialized onto the loop's event channel, so every
// transition executes single-threaded and is unit-testable by injecting
// synthetic events.
//
// The Runner is the module's front door: it probes the service, registers
// and starts a session, wires the dispatch engine to the machine, runs the
// script, and tears everything down.
package session
