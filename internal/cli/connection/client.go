package connection

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/yndnr/respkv-go/pkg/resp"
)

// DefaultServer is the address used when none is given.
const DefaultServer = "127.0.0.1:6379"

// ErrClosed is returned by Do after Close.
var ErrClosed = errors.New("connection: closed")

// Client is a single RESP connection. It is safe for concurrent use;
// commands are serialized.
type Client struct {
	addr    string
	timeout time.Duration

	mu   sync.Mutex
	conn net.Conn
	r    *resp.Reader
	w    *resp.Writer
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each round trip. Zero disables the deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// Dial connects to a respkv server.
func Dial(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	if addr == "" {
		addr = DefaultServer
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connection: dial %s: %w", addr, err)
	}
	c := NewClient(conn, opts...)
	c.addr = addr
	return c, nil
}

// NewClient wraps an established connection.
func NewClient(conn net.Conn, opts ...Option) *Client {
	c := &Client{
		addr: conn.RemoteAddr().String(),
		conn: conn,
		r:    resp.NewReader(conn),
		w:    resp.NewWriter(conn),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Addr returns the server address.
func (c *Client) Addr() string {
	return c.addr
}

// Do sends one command and returns its reply. Error replies are returned
// as resp.Error values, not as a Go error; the error result is reserved
// for transport failures.
func (c *Client) Do(ctx context.Context, args ...string) (resp.Value, error) {
	if len(args) == 0 {
		return nil, errors.New("connection: empty command")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, ErrClosed
	}

	deadline := time.Time{}
	if c.timeout > 0 {
		deadline = time.Now().Add(c.timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, err
	}

	if err := c.w.WriteValue(Command(args...)); err != nil {
		return nil, c.fail(err)
	}
	if err := c.w.Flush(); err != nil {
		return nil, c.fail(err)
	}
	v, err := c.r.ReadValue()
	if err != nil {
		return nil, c.fail(err)
	}
	return v, nil
}

// fail drops the connection; a half-read reply leaves the stream unusable.
func (c *Client) fail(err error) error {
	_ = c.conn.Close()
	c.conn = nil
	return fmt.Errorf("connection: %s: %w", c.addr, err)
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Command encodes args the way a client sends a request.
func Command(args ...string) resp.Array {
	out := make(resp.Array, len(args))
	for i, a := range args {
		out[i] = resp.BulkString(a)
	}
	return out
}
