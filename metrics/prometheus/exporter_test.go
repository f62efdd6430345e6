package prometheus

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExporterHandlerServesMetrics(t *testing.T) {
	RecordFrameSubmitted()
	// Vector metrics only export recorded children; touch one so the
	// dropped-frames family appears in the scrape.
	RecordFrameDropped("paced")

	exporter := NewExporter(":0")
	server := httptest.NewServer(exporter.Handler())
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "bodytrack_frames_submitted_total")
	assert.Contains(t, string(body), "bodytrack_frames_dropped_total")
}

func TestExporterStartAndShutdown(t *testing.T) {
	exporter := NewExporter("127.0.0.1:0")

	done := make(chan error, 1)
	go func() {
		done <- exporter.Start()
	}()

	// Give the listener a moment, then stop it.
	time.Sleep(50 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, exporter.Shutdown(ctx))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("exporter did not stop")
	}

	// Shutdown is idempotent.
	assert.NoError(t, exporter.Shutdown(ctx))
}
