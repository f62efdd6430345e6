package logger

import "context"

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

// Context keys for common logging fields. Values stored under these keys
// are extracted by ContextAttrs and added to log entries.
const (
	// ContextKeySessionID identifies the analysis session.
	ContextKeySessionID contextKey = "session_id"

	// ContextKeyExercise identifies the exercise kind being performed.
	ContextKeyExercise contextKey = "exercise"

	// ContextKeyStage identifies the current session stage.
	ContextKeyStage contextKey = "stage"

	// ContextKeyRequestID identifies the individual service request.
	ContextKeyRequestID contextKey = "request_id"
)

// allContextKeys lists the keys extracted by ContextAttrs.
var allContextKeys = []contextKey{
	ContextKeySessionID,
	ContextKeyExercise,
	ContextKeyStage,
	ContextKeyRequestID,
}

// WithSessionID returns a new context with the session ID set.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, ContextKeySessionID, sessionID)
}

// WithExercise returns a new context with the exercise kind set.
func WithExercise(ctx context.Context, exercise string) context.Context {
	return context.WithValue(ctx, ContextKeyExercise, exercise)
}

// WithStage returns a new context with the session stage set.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, ContextKeyStage, stage)
}

// WithRequestID returns a new context with the request ID set.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// ContextAttrs extracts all known logging fields from the context as
// alternating key-value pairs suitable for the package-level log functions.
func ContextAttrs(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}

	attrs := make([]any, 0, 2*len(allContextKeys))
	for _, key := range allContextKeys {
		if value := ctx.Value(key); value != nil {
			attrs = append(attrs, string(key), value)
		}
	}
	return attrs
}
