package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eladkrauz/BodyTrackClient/media"
	"github.com/Eladkrauz/BodyTrackClient/types"
)

// capturedRequest records what the test server received.
type capturedRequest struct {
	method    string
	path      string
	auth      string
	requestID string
	body      map[string]any
}

// newTestService starts an httptest server answering every request with the
// given status and body, and returns a client pointed at it.
func newTestService(t *testing.T, status int, response string) (*HTTPService, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.method = r.Method
		captured.path = r.URL.Path
		captured.auth = r.Header.Get("Authorization")
		captured.requestID = r.Header.Get(requestIDHeader)
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&captured.body)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)

	svc := NewHTTPService("test-token", WithBaseURL(server.URL))
	return svc, captured
}

func TestRegisterSendsExerciseAndMapsSession(t *testing.T) {
	svc, captured := newTestService(t, http.StatusOK,
		`{"type":"management","code":"registered","session_id":"sess-42"}`)

	result, err := svc.Register(context.Background(), "squat")
	require.NoError(t, err)

	assert.Equal(t, types.KindManagement, result.Kind)
	assert.Equal(t, "registered", result.Code)
	assert.Equal(t, "sess-42", result.SessionID)

	assert.Equal(t, http.MethodPost, captured.method)
	assert.Equal(t, "/sessions", captured.path)
	assert.Equal(t, "Bearer test-token", captured.auth)
	assert.NotEmpty(t, captured.requestID)
	assert.Equal(t, "squat", captured.body["exercise_kind"])
}

func TestManagementCallPaths(t *testing.T) {
	tests := []struct {
		name     string
		call     func(s *HTTPService) (types.Result, error)
		wantPath string
	}{
		{"start", func(s *HTTPService) (types.Result, error) {
			return s.Start(context.Background(), "s1")
		}, "/sessions/s1/start"},
		{"start analysis", func(s *HTTPService) (types.Result, error) {
			return s.StartAnalysis(context.Background(), "s1")
		}, "/sessions/s1/analysis/start"},
		{"pause", func(s *HTTPService) (types.Result, error) {
			return s.Pause(context.Background(), "s1")
		}, "/sessions/s1/pause"},
		{"resume", func(s *HTTPService) (types.Result, error) {
			return s.Resume(context.Background(), "s1")
		}, "/sessions/s1/resume"},
		{"end", func(s *HTTPService) (types.Result, error) {
			return s.End(context.Background(), "s1")
		}, "/sessions/s1/end"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, captured := newTestService(t, http.StatusOK,
				`{"type":"management","code":"ok","session_id":"s1"}`)
			result, err := tt.call(svc)
			require.NoError(t, err)
			assert.Equal(t, types.KindManagement, result.Kind)
			assert.Equal(t, tt.wantPath, captured.path)
		})
	}
}

func TestAnalyzeFrameSendsPayload(t *testing.T) {
	svc, captured := newTestService(t, http.StatusOK,
		`{"type":"feedback","code":"lean_forward","description":"Lean forward"}`)

	frame := &media.EncodedFrame{
		Base64:   "aGVsbG8=",
		Width:    640,
		Height:   480,
		Rotation: 90,
	}
	result, err := svc.AnalyzeFrame(context.Background(), "s1", 7, frame)
	require.NoError(t, err)

	assert.Equal(t, types.KindFeedback, result.Kind)
	assert.Equal(t, "lean_forward", result.Code)
	assert.Equal(t, "Lean forward", result.Description)

	assert.Equal(t, "/sessions/s1/frames", captured.path)
	assert.Equal(t, float64(7), captured.body["frame_id"])
	assert.Equal(t, "aGVsbG8=", captured.body["image"])
	assert.Equal(t, float64(640), captured.body["width"])
	assert.Equal(t, float64(90), captured.body["rotation"])
}

func TestPingCapturesMinClientVersion(t *testing.T) {
	svc, _ := newTestService(t, http.StatusOK,
		`{"type":"ping","min_client_version":"1.2.0"}`)

	require.Empty(t, svc.MinClientVersion())

	result, err := svc.Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.KindPing, result.Kind)
	assert.Equal(t, "1.2.0", svc.MinClientVersion())
}

func TestSummaryMapsPayload(t *testing.T) {
	svc, captured := newTestService(t, http.StatusOK,
		`{"type":"summary","summary":{"session_id":"s1","exercise_kind":"squat","duration_sec":30,"frames_analyzed":250,"valid_frames":190,"score":0.76}}`)

	result, err := svc.Summary(context.Background(), "s1")
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, captured.method)
	assert.Equal(t, "/sessions/s1/summary", captured.path)

	require.Equal(t, types.KindSummary, result.Kind)
	require.NotNil(t, result.Summary)
	assert.Equal(t, 250, result.Summary.FramesAnalyzed)
	assert.InDelta(t, 0.76, result.Summary.Score, 1e-9)
}

func TestServiceErrorsBecomeResults(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		response string
		wantCode string
	}{
		{
			"error envelope on 200",
			http.StatusOK,
			`{"type":"error","code":"session_must_abort","description":"model crashed"}`,
			types.CodeMustAbort,
		},
		{
			"http error with code",
			http.StatusConflict,
			`{"type":"error","code":"already_started"}`,
			"already_started",
		},
		{
			"http error without code",
			http.StatusInternalServerError,
			`{}`,
			types.CodeInternalError,
		},
		{
			"malformed body",
			http.StatusOK,
			`{"type": truncated`,
			types.CodeInternalError,
		},
		{
			"unknown result type",
			http.StatusOK,
			`{"type":"telemetry","code":"x"}`,
			types.CodeInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, tt.status, tt.response)

			// Service-level failures never surface as transport errors.
			result, err := svc.Start(context.Background(), "s1")
			require.NoError(t, err)
			assert.Equal(t, types.KindError, result.Kind)
			assert.Equal(t, tt.wantCode, result.Code)
		})
	}
}

func TestLargeSuccessBodyIsNotTruncated(t *testing.T) {
	// Only error bodies are capped at the diagnostics limit; a valid
	// envelope larger than that limit must still parse.
	description := strings.Repeat("keep your back straight. ", 400)
	body, err := json.Marshal(map[string]string{
		"type":        "feedback",
		"code":        "lean_forward",
		"description": description,
	})
	require.NoError(t, err)
	require.Greater(t, len(body), maxErrorBodyBytes)

	svc, _ := newTestService(t, http.StatusOK, string(body))
	result, err := svc.Start(context.Background(), "s1")
	require.NoError(t, err)

	assert.Equal(t, types.KindFeedback, result.Kind)
	assert.Equal(t, description, result.Description)
}

func TestTransportFailureReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	svc := NewHTTPService("t", WithBaseURL(url))
	_, err := svc.Ping(context.Background())
	assert.Error(t, err)
}

func TestContextCancellationAbortsRequest(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-block
	}))
	t.Cleanup(func() {
		close(block)
		server.Close()
	})

	svc := NewHTTPService("t", WithBaseURL(server.URL))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Ping(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMapWireResultCalibration(t *testing.T) {
	result := mapWireResult("analyze_frame", http.StatusOK, wireResult{
		Type: wireTypeCalibration,
		Code: types.CodeVisibilityValid,
	})
	assert.Equal(t, types.KindCalibration, result.Kind)
	assert.Equal(t, types.CodeVisibilityValid, result.Code)
}
