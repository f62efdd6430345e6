package dispatch

import (
	"sync/atomic"

	"github.com/Eladkrauz/BodyTrackClient/logger"
	prom "github.com/Eladkrauz/BodyTrackClient/metrics/prometheus"
)

// DropReason classifies why a submitted frame was not dispatched.
type DropReason string

// Drop reasons.
const (
	// DropIdle means the engine was not in sending mode.
	DropIdle DropReason = "idle"

	// DropStopped means the engine was terminally stopped.
	DropStopped DropReason = "stopped"

	// DropPaced means the frame arrived before the pacing deadline.
	DropPaced DropReason = "paced"

	// DropBudget means the in-flight budget was exhausted.
	DropBudget DropReason = "budget"

	// DropStalled means the frame triggered the stall watchdog.
	DropStalled DropReason = "stalled"

	// DropEncode means local encoding failed.
	DropEncode DropReason = "encode"
)

// engineStats holds the engine's atomic counters.
type engineStats struct {
	submitted atomic.Uint64
	admitted  atomic.Uint64

	droppedIdle    atomic.Uint64
	droppedStopped atomic.Uint64
	droppedPaced   atomic.Uint64
	droppedBudget  atomic.Uint64
	droppedStalled atomic.Uint64
	droppedEncode  atomic.Uint64
}

// Stats is a point-in-time snapshot of engine counters. Counts may be
// slightly stale relative to each other; acceptable for monitoring.
type Stats struct {
	Submitted uint64
	Admitted  uint64
	InFlight  int64
	Dropped   map[DropReason]uint64
}

// Stats returns a snapshot of the engine's operational counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Submitted: e.stats.submitted.Load(),
		Admitted:  e.stats.admitted.Load(),
		InFlight:  e.inFlight.Load(),
		Dropped: map[DropReason]uint64{
			DropIdle:    e.stats.droppedIdle.Load(),
			DropStopped: e.stats.droppedStopped.Load(),
			DropPaced:   e.stats.droppedPaced.Load(),
			DropBudget:  e.stats.droppedBudget.Load(),
			DropStalled: e.stats.droppedStalled.Load(),
			DropEncode:  e.stats.droppedEncode.Load(),
		},
	}
}

// drop accounts one dropped frame under the given reason.
func (e *Engine) drop(reason DropReason) {
	switch reason {
	case DropIdle:
		e.stats.droppedIdle.Add(1)
	case DropStopped:
		e.stats.droppedStopped.Add(1)
	case DropPaced:
		e.stats.droppedPaced.Add(1)
	case DropBudget:
		e.stats.droppedBudget.Add(1)
	case DropStalled:
		e.stats.droppedStalled.Add(1)
	case DropEncode:
		e.stats.droppedEncode.Add(1)
	}
	prom.RecordFrameDropped(string(reason))
	logger.FrameDropped(string(reason), "session_id", e.sessionID)
}
