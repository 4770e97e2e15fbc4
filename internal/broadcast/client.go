package broadcast

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// wsConn is the subset of *websocket.Conn used by a Client.
type wsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
	Close() error
}

var _ wsConn = (*websocket.Conn)(nil)

type sendResult int

const (
	sendQueued sendResult = iota
	sendSkipped
	sendQueueFull
)

// Client is one live connection. All writes go through its writer goroutine;
// the read side is driven by the hub's accept handler.
type Client struct {
	id   string
	ctx  context.Context
	conn wsConn

	send       chan []byte
	ping       chan struct{}
	done       chan struct{}
	writerDone chan struct{}

	alive  atomic.Bool
	closed atomic.Bool

	// onWriteError is called from the writer goroutine when the transport fails.
	onWriteError func(*Client, error)

	// guarded by Registry.mu
	subscriptions map[int64]struct{}
}

func newClient(ctx context.Context, id string, conn wsConn, sendBuffer int, maxMessageBytes int64, onWriteError func(*Client, error)) *Client {
	c := &Client{
		id:            id,
		ctx:           ctx,
		conn:          conn,
		send:          make(chan []byte, sendBuffer),
		ping:          make(chan struct{}, 1),
		done:          make(chan struct{}),
		writerDone:    make(chan struct{}),
		onWriteError:  onWriteError,
		subscriptions: make(map[int64]struct{}),
	}
	c.alive.Store(true)

	conn.SetReadLimit(maxMessageBytes)
	conn.SetPongHandler(func(string) error {
		c.alive.Store(true)
		return nil
	})

	go c.run()
	return c
}

func (c *Client) ID() string { return c.id }

func (c *Client) Context() context.Context { return c.ctx }

// Open reports whether the client still accepts deliveries.
func (c *Client) Open() bool { return !c.closed.Load() }

func (c *Client) run() {
	defer close(c.writerDone)

	for {
		select {
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.writeFailed(err)
				return
			}
		case <-c.ping:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.writeFailed(err)
				return
			}
		case <-c.done:
			return
		}
	}
}

// write uses the wall clock for deadlines; the socket knows nothing about fake clocks.
func (c *Client) write(messageType int, data []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}

func (c *Client) writeFailed(err error) {
	if c.closed.Load() {
		return
	}
	if c.onWriteError != nil {
		c.onWriteError(c, err)
	}
}

// enqueue hands data to the writer without blocking.
func (c *Client) enqueue(data []byte) sendResult {
	if c.closed.Load() {
		return sendSkipped
	}
	select {
	case c.send <- data:
		return sendQueued
	default:
		return sendQueueFull
	}
}

// probe asks the writer to send a ping. A probe still pending from the last
// round is not duplicated.
func (c *Client) probe() {
	select {
	case c.ping <- struct{}{}:
	default:
	}
}

// Terminate closes the transport immediately without a close frame.
// Safe to call from any goroutine, including the writer itself.
func (c *Client) Terminate() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	close(c.done)
	_ = c.conn.Close()
}

// CloseGracefully stops the writer, sends a normal-closure close frame with
// reason and closes the transport.
func (c *Client) CloseGracefully(reason string) {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	close(c.done)

	// The writer must be gone before the close frame is written.
	<-c.writerDone

	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = c.write(websocket.CloseMessage, closeMsg)
	_ = c.conn.Close()
}
