// Package service provides the client for the remote BodyTrack analysis
// service: session lifecycle management, per-frame analysis, summaries, and
// a liveness probe.
//
// All operations return a types.Result on any response the service
// produced, including service-reported errors; the error return is reserved
// for transport failures where no response was received at all.
package service

import (
	"context"

	"github.com/Eladkrauz/BodyTrackClient/media"
	"github.com/Eladkrauz/BodyTrackClient/types"
)

// Service is the remote analysis service capability consumed by the
// session stage machine and the dispatch engine. Implementations must be
// safe for concurrent calls.
type Service interface {
	// Register creates a new analysis session for the given exercise kind.
	// On success the result carries the session identifier.
	Register(ctx context.Context, exerciseKind string) (types.Result, error)

	// Start marks the session as running on the service side.
	Start(ctx context.Context, sessionID string) (types.Result, error)

	// StartAnalysis switches the session from calibration to active
	// exercise analysis.
	StartAnalysis(ctx context.Context, sessionID string) (types.Result, error)

	// Pause suspends active analysis without ending the session.
	Pause(ctx context.Context, sessionID string) (types.Result, error)

	// Resume continues a paused session.
	Resume(ctx context.Context, sessionID string) (types.Result, error)

	// End terminates the session.
	End(ctx context.Context, sessionID string) (types.Result, error)

	// AnalyzeFrame submits one encoded frame for analysis.
	AnalyzeFrame(ctx context.Context, sessionID string, frameID uint64, frame *media.EncodedFrame) (types.Result, error)

	// Summary fetches the end-of-session summary.
	Summary(ctx context.Context, sessionID string) (types.Result, error)

	// Ping probes service liveness.
	Ping(ctx context.Context) (types.Result, error)
}
