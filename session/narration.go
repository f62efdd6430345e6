package session

// Narration prompts for the session script. Kept as plain constants; the
// presentation layer owns localization.
const (
	promptIntroVisibility = "Stand back so your whole body is visible in the camera frame."
	promptCheckingView    = "Checking that we can see you."
	promptVisibilityAgain = "We still can't see all of you. Please step back until your whole body is in frame."
	promptVisibilityOK    = "Great, we can see you."
	promptIntroPosition   = "Now take the starting position for your exercise."
	promptPositionAgain   = "Almost there. Adjust until you're in the starting position."
	promptReadyCountdown  = "Get ready. Three, two, one, go!"
)
