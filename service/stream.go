package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Eladkrauz/BodyTrackClient/logger"
	"github.com/Eladkrauz/BodyTrackClient/media"
	"github.com/Eladkrauz/BodyTrackClient/types"
)

// ErrStreamClosed is returned for frames submitted after the stream
// connection closed.
var ErrStreamClosed = errors.New("analysis stream closed")

// streamFrame is an outgoing frame message on the analysis socket.
type streamFrame struct {
	SessionID string `json:"session_id"`
	FrameID   uint64 `json:"frame_id"`
	Image     string `json:"image"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Rotation  int    `json:"rotation"`
}

// streamResult is an incoming result message on the analysis socket.
type streamResult struct {
	FrameID uint64 `json:"frame_id"`
	wireResult
}

// StreamConn is a persistent websocket transport for analyze-frame calls.
// It satisfies the same per-frame contract as HTTPService.AnalyzeFrame and
// suits deployments where per-frame HTTP overhead dominates latency.
// Management calls still go through HTTPService.
//
// Safe for concurrent AnalyzeFrame calls; responses are correlated by
// frame ID.
type StreamConn struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[uint64]chan streamResult
	closed  bool
}

// DialStream opens the analysis socket against the given websocket URL
// (e.g. "wss://api.bodytrack.io/v1/stream").
func DialStream(ctx context.Context, url, token string) (*StreamConn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		return nil, fmt.Errorf("failed to dial analysis stream (status %d): %w", status, err)
	}

	c := &StreamConn{
		conn:    conn,
		pending: make(map[uint64]chan streamResult),
	}
	go c.readLoop()
	return c, nil
}

// AnalyzeFrame sends one frame over the socket and waits for its
// correlated result. A closed connection or cancelled context is a
// transport failure.
func (c *StreamConn) AnalyzeFrame(
	ctx context.Context, sessionID string, frameID uint64, frame *media.EncodedFrame,
) (types.Result, error) {
	ch := make(chan streamResult, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return types.Result{}, ErrStreamClosed
	}
	c.pending[frameID] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, frameID)
		c.mu.Unlock()
	}()

	msg := streamFrame{
		SessionID: sessionID,
		FrameID:   frameID,
		Image:     frame.Base64,
		Width:     frame.Width,
		Height:    frame.Height,
		Rotation:  frame.Rotation,
	}

	c.writeMu.Lock()
	err := c.conn.WriteJSON(msg)
	c.writeMu.Unlock()
	if err != nil {
		return types.Result{}, fmt.Errorf("failed to write frame %d: %w", frameID, err)
	}

	select {
	case res, ok := <-ch:
		if !ok {
			return types.Result{}, ErrStreamClosed
		}
		return mapWireResult("analyze_frame", http.StatusOK, res.wireResult), nil
	case <-ctx.Done():
		return types.Result{}, ctx.Err()
	}
}

// Close shuts down the socket. Pending calls fail with ErrStreamClosed.
func (c *StreamConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.conn.Close()
}

// readLoop routes incoming results to their waiting callers. On read
// failure every pending call is released.
func (c *StreamConn) readLoop() {
	for {
		var res streamResult
		if err := c.conn.ReadJSON(&res); err != nil {
			logger.Debug("Analysis stream read ended", "error", err)
			c.failAll()
			return
		}

		c.mu.Lock()
		ch, ok := c.pending[res.FrameID]
		c.mu.Unlock()
		if ok {
			ch <- res
		}
	}
}

// failAll marks the stream closed and releases all pending callers.
func (c *StreamConn) failAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}
