package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const closeGracePeriod = time.Second

// Options tunes a WebSocket transport.
type Options struct {
	HandshakeTimeout time.Duration
	// ReadTimeout bounds the wait for each message; zero disables it.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	ReadLimit    int64
}

// DefaultOptions returns the timeouts used when none are configured.
func DefaultOptions() Options {
	return Options{
		HandshakeTimeout: 10 * time.Second,
		ReadTimeout:      15 * time.Second,
		WriteTimeout:     10 * time.Second,
		ReadLimit:        16 * 1024 * 1024,
	}
}

// Conn is a Transport over a gorilla WebSocket connection.
type Conn struct {
	conn *websocket.Conn
	opts Options

	writeMu sync.Mutex

	mu     sync.Mutex
	closed bool
}

// Dial opens a WebSocket to url, sending header on the handshake.
func Dial(ctx context.Context, url string, header http.Header, opts Options) (*Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: opts.HandshakeTimeout,
		ReadBufferSize:   64 * 1024,
		WriteBufferSize:  64 * 1024,
	}
	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("transport: dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("transport: dial %s: %w", url, err)
	}
	return New(conn, opts), nil
}

// New wraps an established connection.
func New(conn *websocket.Conn, opts Options) *Conn {
	if opts.ReadLimit > 0 {
		conn.SetReadLimit(opts.ReadLimit)
	}
	return &Conn{conn: conn, opts: opts}
}

// SendMessage writes data as one binary message.
func (c *Conn) SendMessage(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(c.deadline(ctx, c.opts.WriteTimeout))
	if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return c.translate(ctx, err)
	}
	return nil
}

// ReceiveMessage blocks until one complete message arrives. Cancelling ctx
// closes the connection so an in-flight read returns immediately.
func (c *Conn) ReceiveMessage(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.Close()
	})
	defer stop()

	_ = c.conn.SetReadDeadline(c.deadline(ctx, c.opts.ReadTimeout))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, c.translate(ctx, err)
	}
	return data, nil
}

// Close sends a normal close frame and releases the connection. It is safe
// to call more than once and concurrently with a pending read.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeGracePeriod),
	)
	return c.conn.Close()
}

// deadline picks the earlier of ctx's deadline and now+timeout. A zero
// result means no deadline.
func (c *Conn) deadline(ctx context.Context, timeout time.Duration) time.Time {
	var d time.Time
	if timeout > 0 {
		d = time.Now().Add(timeout)
	}
	if cd, ok := ctx.Deadline(); ok && (d.IsZero() || cd.Before(d)) {
		d = cd
	}
	return d
}

func (c *Conn) translate(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("transport: aborted: %w", ctxErr)
	}
	// The socket deadline may fire a moment before ctx notices its own.
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		if d, ok := ctx.Deadline(); ok && !time.Now().Before(d) {
			return fmt.Errorf("transport: aborted: %w", context.DeadlineExceeded)
		}
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return &ClosedError{Code: ce.Code, Reason: ce.Text}
	}
	return fmt.Errorf("transport: %w", err)
}
