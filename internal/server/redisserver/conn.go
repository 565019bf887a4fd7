package redisserver

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/yndnr/respkv-go/internal/core/command"
	"github.com/yndnr/respkv-go/internal/core/store"
	"github.com/yndnr/respkv-go/internal/telemetry/logger"
	"github.com/yndnr/respkv-go/pkg/resp"
)

// Protocol error reasons reported to the Observer.
const (
	reasonProtocol = "protocol"
	reasonLimit    = "limit"
	reasonRequest  = "request"
	reasonArgument = "argument"
)

// Conn is a single client connection.
type Conn struct {
	id      string
	netConn net.Conn
	r       *resp.Reader
	w       *resp.Writer
	limiter *rate.Limiter
	created time.Time

	closed atomic.Bool
}

func newConn(nc net.Conn, cfg Config) *Conn {
	c := &Conn{
		id:      ulid.Make().String(),
		netConn: nc,
		r:       resp.NewReader(nc),
		w:       resp.NewWriter(nc),
		created: time.Now(),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return c
}

// ID returns the connection identifier, a ULID assigned on accept.
func (c *Conn) ID() string {
	return c.id
}

// RemoteAddr returns the client address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.netConn.RemoteAddr()
}

// Close closes the connection. Safe to call more than once.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.netConn.Close()
}

func (s *Server) serveConn(ctx context.Context, c *Conn) {
	ctx = logger.WithConnID(logger.WithLogger(ctx, s.logger), c.id)
	log := logger.L(ctx)
	log.Debug("client connected", "remote", c.RemoteAddr().String())
	defer func() {
		log.Debug("client disconnected", "lifetime", time.Since(c.created))
	}()

	for {
		if s.cfg.IdleTimeout > 0 {
			if err := c.netConn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout)); err != nil {
				return
			}
		}

		v, err := c.r.ReadRequest()
		if err != nil {
			s.readFailed(ctx, c, err)
			return
		}

		if c.limiter != nil && !c.limiter.Allow() {
			s.observer.CommandThrottled()
			if err := s.flush(c); err != nil {
				return
			}
			if err := c.limiter.Wait(ctx); err != nil {
				return
			}
		}

		quit, err := s.handle(ctx, c, v)
		if err != nil {
			log.Debug("connection ended", "error", err)
			_ = s.flush(c)
			return
		}

		if quit || c.r.Buffered() == 0 {
			if err := s.flush(c); err != nil {
				log.Debug("write failed", "error", err)
				return
			}
		}
		if quit {
			return
		}
	}
}

// handle answers one request. It reports whether the client asked to
// quit, and returns an error when the connection cannot continue.
func (s *Server) handle(ctx context.Context, c *Conn, v resp.Value) (quit bool, err error) {
	if isQuit(v) {
		return true, c.w.WriteValue(resp.OK)
	}

	cmd, err := command.Parse(v)
	if err != nil {
		var ae *command.ArgumentError
		switch {
		case errors.As(err, &ae):
			s.observer.ProtocolError(reasonArgument)
			return false, c.w.WriteError("ERR " + ae.Reason)
		case errors.Is(err, command.ErrInvalidRequest):
			s.observer.ProtocolError(reasonRequest)
			return false, c.w.WriteError("ERR " + strings.TrimPrefix(err.Error(), "command: "))
		default:
			return false, c.w.WriteError("ERR " + err.Error())
		}
	}

	reply := store.NewReplySlot()
	if err := s.store.Enqueue(ctx, cmd, reply); err != nil {
		_ = c.w.WriteError("ERR server is shutting down")
		return false, err
	}
	// An accepted command is applied even if the server is shutting down,
	// so wait for its real reply. Await gives up once the store stops.
	out, err := s.store.Await(context.WithoutCancel(ctx), reply)
	if err != nil {
		_ = c.w.WriteError("ERR server is shutting down")
		return false, err
	}

	if err := c.w.WriteValue(out); err != nil {
		logger.L(ctx).Warn("reply not encodable", "command", cmd.Name(), "error", err)
		return false, c.w.WriteError("ERR internal error")
	}
	return false, nil
}

func (s *Server) readFailed(ctx context.Context, c *Conn, err error) {
	log := logger.L(ctx)

	var ne net.Error
	switch {
	case errors.Is(err, io.EOF):
	case errors.As(err, &ne) && ne.Timeout():
		log.Debug("connection idle timeout")
	case errors.Is(err, resp.ErrLimitExceeded):
		s.observer.ProtocolError(reasonLimit)
		log.Warn("protocol limit exceeded", "error", err)
		_ = c.w.WriteError("ERR Protocol error: " + detail(err, resp.ErrLimitExceeded))
		_ = s.flush(c)
	case errors.Is(err, resp.ErrProtocol):
		s.observer.ProtocolError(reasonProtocol)
		log.Debug("protocol error", "error", err)
		_ = c.w.WriteError("ERR Protocol error: " + detail(err, resp.ErrProtocol))
		_ = s.flush(c)
	default:
		if !c.closed.Load() {
			log.Debug("connection read error", "error", err)
		}
	}
}

func (s *Server) flush(c *Conn) error {
	if c.w.Buffered() == 0 {
		return nil
	}
	if s.cfg.WriteTimeout > 0 {
		if err := c.netConn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
			return err
		}
	}
	return c.w.Flush()
}

func isQuit(v resp.Value) bool {
	arr, ok := v.(resp.Array)
	if !ok || len(arr) == 0 {
		return false
	}
	name, ok := resp.Text(arr[0])
	return ok && strings.EqualFold(name, "QUIT")
}

// detail strips the sentinel prefix from a wrapped error message.
func detail(err, sentinel error) string {
	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok {
		return rest
	}
	return msg
}
