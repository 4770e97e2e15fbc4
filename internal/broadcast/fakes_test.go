package broadcast

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/matchfeed/internal/adapter/metrics"
)

var errFakeConnClosed = errors.New("fake conn closed")

// fakeConn records frames written by a Client's writer goroutine.
type fakeConn struct {
	mu        sync.Mutex
	texts     [][]byte
	pings     int
	closed    bool
	readLimit int64
	pong      func(string) error
	writeErr  error

	// writeGate, when set, blocks every write until a value is received.
	writeGate chan struct{}
	frames    chan int
	closedCh  chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames:   make(chan int, 256),
		closedCh: make(chan struct{}),
	}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	<-f.closedCh
	return 0, nil, errFakeConnClosed
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	if f.writeGate != nil {
		<-f.writeGate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errFakeConnClosed
	}
	if f.writeErr != nil {
		return f.writeErr
	}
	switch messageType {
	case websocket.TextMessage:
		f.texts = append(f.texts, append([]byte(nil), data...))
	case websocket.PingMessage:
		f.pings++
	}
	select {
	case f.frames <- messageType:
	default:
	}
	return nil
}

func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeConn) SetReadLimit(limit int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readLimit = limit
}

func (f *fakeConn) SetPongHandler(h func(string) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pong = h
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.closedCh)
	}
	return nil
}

func (f *fakeConn) receivePong() {
	f.mu.Lock()
	h := f.pong
	f.mu.Unlock()
	_ = h("")
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) pingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pings
}

func (f *fakeConn) textFrames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.texts...)
}

// waitFrame blocks until the writer has written one frame of any type.
func (f *fakeConn) waitFrame(t *testing.T) int {
	t.Helper()
	select {
	case mt := <-f.frames:
		return mt
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return 0
	}
}

func newTestMetrics() *metrics.HubMetrics {
	return metrics.NewHubMetrics(prometheus.NewRegistry())
}

func newTestClient(t *testing.T, sendBuffer int) (*Client, *fakeConn) {
	t.Helper()
	conn := newFakeConn()
	c := newClient(context.Background(), t.Name(), conn, sendBuffer, 1<<20, nil)
	t.Cleanup(c.Terminate)
	return c, conn
}
