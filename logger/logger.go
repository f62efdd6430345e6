// Package logger provides structured logging with automatic credential redaction.
//
// This package wraps Go's standard log/slog with convenience functions for:
//   - Session service call logging (requests, responses, errors)
//   - Automatic access-token redaction
//   - Contextual logging with session tracing
//   - Level-based verbosity control
//
// All exported functions use the global DefaultLogger which can be configured
// for different output formats and log levels.
package logger

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

var (
	// DefaultLogger is the global structured logger instance.
	// It is safe for concurrent use and initialized with slog.LevelInfo by default.
	DefaultLogger *slog.Logger
)

func init() {
	// Check LOG_LEVEL environment variable
	level := slog.LevelInfo
	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		switch strings.ToLower(envLevel) {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn", "warning":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	DefaultLogger = slog.New(handler)
}

// SetLevel changes the logging level for all subsequent log operations.
// This is safe for concurrent use as it replaces the entire logger instance.
func SetLevel(level slog.Level) {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	DefaultLogger = slog.New(handler)
}

// SetVerbose enables debug-level logging when verbose is true, otherwise sets info-level.
// This is a convenience wrapper around SetLevel for command-line verbose flags.
func SetVerbose(verbose bool) {
	if verbose {
		SetLevel(slog.LevelDebug)
	} else {
		SetLevel(slog.LevelInfo)
	}
}

// Info logs an informational message with structured key-value attributes.
// Args should be provided in key-value pairs: key1, value1, key2, value2, ...
func Info(msg string, args ...any) {
	DefaultLogger.Info(msg, args...)
}

// InfoContext logs an informational message with context and structured attributes.
func InfoContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.InfoContext(ctx, msg, args...)
}

// Debug logs a debug-level message with structured attributes.
// Debug messages are only output when the log level is set to LevelDebug or lower.
func Debug(msg string, args ...any) {
	DefaultLogger.Debug(msg, args...)
}

// DebugContext logs a debug message with context and structured attributes.
func DebugContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.DebugContext(ctx, msg, args...)
}

// Warn logs a warning message with structured attributes.
// Use for recoverable errors or unexpected but non-critical situations.
func Warn(msg string, args ...any) {
	DefaultLogger.Warn(msg, args...)
}

// WarnContext logs a warning message with context and structured attributes.
func WarnContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.WarnContext(ctx, msg, args...)
}

// Error logs an error message with structured attributes.
// Use for errors that affect operation but don't cause complete failure.
func Error(msg string, args ...any) {
	DefaultLogger.Error(msg, args...)
}

// ErrorContext logs an error message with context and structured attributes.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.ErrorContext(ctx, msg, args...)
}

// StageTransition logs a session stage change with structured fields.
// Additional attributes can be passed as key-value pairs.
func StageTransition(sessionID, from, to string, attrs ...any) {
	allAttrs := make([]any, 0, 6+len(attrs))
	allAttrs = append(allAttrs,
		"session_id", sessionID,
		"from", from,
		"to", to,
	)
	allAttrs = append(allAttrs, attrs...)
	Info("Stage transition", allAttrs...)
}

// FrameDropped logs a dropped frame at debug level. Frame drops are normal
// under pacing and overload, so this is intentionally not a warning.
func FrameDropped(reason string, attrs ...any) {
	if !DefaultLogger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	allAttrs := make([]any, 0, 2+len(attrs))
	allAttrs = append(allAttrs, "reason", reason)
	allAttrs = append(allAttrs, attrs...)
	Debug("Frame dropped", allAttrs...)
}

var (
	// tokenPatterns contains compiled regular expressions for detecting
	// credentials in logged payloads.
	tokenPatterns = []*regexp.Regexp{
		regexp.MustCompile(`Bearer\s+[a-zA-Z0-9._-]+`),    // Bearer tokens
		regexp.MustCompile(`bt_[a-zA-Z0-9]{24,}`),         // BodyTrack access tokens
		regexp.MustCompile(`"token"\s*:\s*"[^"]+"`),       // token JSON fields
		regexp.MustCompile(`"api_key"\s*:\s*"[^"]+"`),     // api_key JSON fields
	}
)

// RedactSensitiveData removes access tokens and other credentials from
// strings before they are logged. Matched patterns are replaced with a
// redacted form that preserves a short prefix for debugging.
//
// This function is safe for concurrent use as it only reads from the
// compiled patterns.
func RedactSensitiveData(input string) string {
	result := input

	for _, pattern := range tokenPatterns {
		result = pattern.ReplaceAllStringFunc(result, func(match string) string {
			if strings.HasPrefix(match, "Bearer ") {
				return "Bearer [REDACTED]"
			}
			if strings.HasPrefix(match, `"token"`) {
				return `"token":"[REDACTED]"`
			}
			if strings.HasPrefix(match, `"api_key"`) {
				return `"api_key":"[REDACTED]"`
			}
			if len(match) > 8 {
				return match[:4] + "...[REDACTED]"
			}
			return "[REDACTED]"
		})
	}

	return result
}

// ServiceRequest logs a session service request at debug level with
// automatic credential redaction. This function is a no-op when debug
// logging is disabled.
//
// Frame payloads are logged as their byte size rather than content; base64
// image data is noise in logs.
func ServiceRequest(operation, method, url string, body interface{}) {
	if !DefaultLogger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	attrs := make([]any, 0, 8)
	attrs = append(attrs,
		"operation", operation,
		"method", method,
		"url", RedactSensitiveData(url),
	)

	if body != nil {
		bodyJSON, err := json.Marshal(body)
		if err != nil {
			attrs = append(attrs, "body_error", err.Error())
		} else {
			attrs = append(attrs, "body_bytes", len(bodyJSON))
		}
	}

	Debug("Service request", attrs...)
}

// ServiceResponse logs a session service response at debug level with
// automatic credential redaction. Errors are logged at error level.
func ServiceResponse(operation string, statusCode int, body string, err error) {
	if !DefaultLogger.Enabled(context.Background(), slog.LevelDebug) && err == nil {
		return
	}

	attrs := make([]any, 0, 6)
	attrs = append(attrs,
		"operation", operation,
		"status_code", statusCode,
	)

	if err != nil {
		attrs = append(attrs, "error", err.Error())
		Error("Service response error", attrs...)
		return
	}

	if body != "" {
		attrs = append(attrs, "body", RedactSensitiveData(body))
	}

	Debug("Service response", attrs...)
}
