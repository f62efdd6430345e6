// Package dispatch converts a best-effort stream of raw camera frames into
// a rate-limited, concurrency-bounded stream of analysis requests.
//
// The Engine owns four concerns:
//
//   - Pacing: frames are admitted at most once per 1/fps interval. Frames
//     arriving early are dropped, never queued, so a burst of late frames
//     cannot compress into back-to-back sends.
//   - Admission budget: at most MaxInFlight requests are outstanding at any
//     time. A slot is reserved atomically before the send is issued and
//     released exactly once when the response (or local failure) is observed.
//   - Stall watchdog: if no response arrives for StallTimeout while sending,
//     a network-abort notification fires exactly once per activation.
//   - Encode-and-send: admitted frames are JPEG/base64 encoded and dispatched
//     asynchronously; responses are forwarded to the result callback only
//     while the engine is still sending.
//
// Submit is designed to be called from a single capture worker goroutine at
// the camera's native rate, while StartSending/StopSending/StopAll are called
// from the session control goroutine. All shared state is atomic; no lock is
// ever held across a network call.
package dispatch
