package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Eladkrauz/BodyTrackClient/logger"
	"github.com/Eladkrauz/BodyTrackClient/media"
	"github.com/Eladkrauz/BodyTrackClient/types"
)

const (
	// defaultBaseURL is the production analysis service endpoint.
	defaultBaseURL = "https://api.bodytrack.io/v1"

	// defaultTimeout bounds management calls (register, start, end, ...).
	// Analyze-frame calls deliberately carry no per-request timeout beyond
	// this client-level bound; the dispatch watchdog handles aggregate
	// stalls.
	defaultTimeout = 30 * time.Second

	// requestIDHeader carries the per-request correlation ID.
	requestIDHeader = "X-Request-ID"

	// maxResponseBodyBytes caps how much of a success body is read. Session
	// summaries are the largest expected payload and stay far below this.
	maxResponseBodyBytes = 1 << 20

	// maxErrorBodyBytes caps how much of an error body is read for
	// diagnostics.
	maxErrorBodyBytes = 4096
)

// resultType values on the wire envelope.
const (
	wireTypeCalibration = "calibration"
	wireTypeManagement  = "management"
	wireTypeFeedback    = "feedback"
	wireTypePing        = "ping"
	wireTypeSummary     = "summary"
	wireTypeError       = "error"
)

// HTTPService is the JSON/HTTP implementation of Service.
type HTTPService struct {
	baseURL string
	token   string
	client  *http.Client

	minClientVersion string
}

// Option configures an HTTPService.
type Option func(*HTTPService)

// WithBaseURL sets a custom service base URL.
func WithBaseURL(url string) Option {
	return func(s *HTTPService) {
		s.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client. The otelhttp transport is not
// applied to custom clients; wrap the transport yourself if tracing is
// wanted.
func WithHTTPClient(client *http.Client) Option {
	return func(s *HTTPService) {
		s.client = client
	}
}

// WithTimeout sets the client-level request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(s *HTTPService) {
		s.client.Timeout = timeout
	}
}

// NewHTTPService creates a service client authenticating with the given
// access token.
func NewHTTPService(token string, opts ...Option) *HTTPService {
	s := &HTTPService{
		baseURL: defaultBaseURL,
		token:   token,
		client: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MinClientVersion returns the minimum client version announced by the
// service on the most recent Ping, or "" if none was announced.
func (s *HTTPService) MinClientVersion() string {
	return s.minClientVersion
}

// registerRequest is the body of the register call.
type registerRequest struct {
	ExerciseKind string `json:"exercise_kind"`
}

// frameRequest is the body of the analyze-frame call.
type frameRequest struct {
	FrameID  uint64 `json:"frame_id"`
	Image    string `json:"image"` // base64 JPEG
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Rotation int    `json:"rotation"`
}

// wireResult is the service's response envelope.
type wireResult struct {
	Type             string                `json:"type"`
	Code             string                `json:"code"`
	Description      string                `json:"description,omitempty"`
	SessionID        string                `json:"session_id,omitempty"`
	Summary          *types.SessionSummary `json:"summary,omitempty"`
	MinClientVersion string                `json:"min_client_version,omitempty"`
}

// Register implements Service.
func (s *HTTPService) Register(ctx context.Context, exerciseKind string) (types.Result, error) {
	return s.do(ctx, "register", http.MethodPost, "/sessions", registerRequest{ExerciseKind: exerciseKind})
}

// Start implements Service.
func (s *HTTPService) Start(ctx context.Context, sessionID string) (types.Result, error) {
	return s.do(ctx, "start", http.MethodPost, "/sessions/"+sessionID+"/start", nil)
}

// StartAnalysis implements Service.
func (s *HTTPService) StartAnalysis(ctx context.Context, sessionID string) (types.Result, error) {
	return s.do(ctx, "start_analysis", http.MethodPost, "/sessions/"+sessionID+"/analysis/start", nil)
}

// Pause implements Service.
func (s *HTTPService) Pause(ctx context.Context, sessionID string) (types.Result, error) {
	return s.do(ctx, "pause", http.MethodPost, "/sessions/"+sessionID+"/pause", nil)
}

// Resume implements Service.
func (s *HTTPService) Resume(ctx context.Context, sessionID string) (types.Result, error) {
	return s.do(ctx, "resume", http.MethodPost, "/sessions/"+sessionID+"/resume", nil)
}

// End implements Service.
func (s *HTTPService) End(ctx context.Context, sessionID string) (types.Result, error) {
	return s.do(ctx, "end", http.MethodPost, "/sessions/"+sessionID+"/end", nil)
}

// AnalyzeFrame implements Service.
func (s *HTTPService) AnalyzeFrame(
	ctx context.Context, sessionID string, frameID uint64, frame *media.EncodedFrame,
) (types.Result, error) {
	req := frameRequest{
		FrameID:  frameID,
		Image:    frame.Base64,
		Width:    frame.Width,
		Height:   frame.Height,
		Rotation: frame.Rotation,
	}
	return s.do(ctx, "analyze_frame", http.MethodPost, "/sessions/"+sessionID+"/frames", req)
}

// Summary implements Service.
func (s *HTTPService) Summary(ctx context.Context, sessionID string) (types.Result, error) {
	return s.do(ctx, "summary", http.MethodGet, "/sessions/"+sessionID+"/summary", nil)
}

// Ping implements Service.
func (s *HTTPService) Ping(ctx context.Context) (types.Result, error) {
	return s.do(ctx, "ping", http.MethodGet, "/ping", nil)
}

// do issues one request and maps the response onto the result union.
// The error return is reserved for transport failures; service-reported
// errors and malformed bodies come back as result values.
func (s *HTTPService) do(
	ctx context.Context, operation, method, path string, body interface{},
) (types.Result, error) {
	endpoint := s.baseURL + path

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return types.Result{}, fmt.Errorf("failed to marshal %s request: %w", operation, err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return types.Result{}, fmt.Errorf("failed to build %s request: %w", operation, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set(requestIDHeader, uuid.NewString())

	logger.ServiceRequest(operation, method, endpoint, body)

	resp, err := s.client.Do(req)
	if err != nil {
		logger.ServiceResponse(operation, 0, "", err)
		return types.Result{}, fmt.Errorf("%s request failed: %w", operation, err)
	}
	defer func() { _ = resp.Body.Close() }()

	limit := int64(maxResponseBodyBytes)
	if resp.StatusCode >= http.StatusBadRequest {
		limit = maxErrorBodyBytes
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return types.Result{}, fmt.Errorf("failed to read %s response: %w", operation, err)
	}

	logger.ServiceResponse(operation, resp.StatusCode, string(raw), nil)

	var wire wireResult
	if err := json.Unmarshal(raw, &wire); err != nil {
		// Malformed payloads are normalized to a generic internal error;
		// they must not crash the session loop.
		logger.Warn("Malformed service response",
			"operation", operation,
			"status_code", resp.StatusCode,
		)
		return types.ErrorResult(types.CodeInternalError, "malformed service response"), nil
	}

	if wire.Type == wireTypePing {
		s.minClientVersion = wire.MinClientVersion
	}

	return mapWireResult(operation, resp.StatusCode, wire), nil
}

// mapWireResult converts a wire envelope into the result union.
func mapWireResult(operation string, statusCode int, wire wireResult) types.Result {
	if statusCode >= http.StatusBadRequest || wire.Type == wireTypeError {
		code := wire.Code
		if code == "" {
			code = types.CodeInternalError
		}
		return types.ErrorResult(code, wire.Description)
	}

	switch wire.Type {
	case wireTypeCalibration:
		return types.CalibrationResult(wire.Code)
	case wireTypeManagement:
		return types.ManagementResult(wire.Code, wire.SessionID)
	case wireTypeFeedback:
		return types.FeedbackResult(wire.Code, wire.Description)
	case wireTypePing:
		return types.PingResult()
	case wireTypeSummary:
		return types.SummaryResult(wire.Summary)
	default:
		logger.Warn("Unrecognized service result type",
			"operation", operation,
			"type", wire.Type,
		)
		return types.ErrorResult(types.CodeInternalError, "unrecognized result type "+wire.Type)
	}
}
