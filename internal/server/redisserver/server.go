package redisserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/respkv-go/internal/core/command"
	"github.com/yndnr/respkv-go/pkg/cmap"
	"github.com/yndnr/respkv-go/pkg/resp"
)

// Dispatcher accepts commands for execution. *store.Store implements it.
type Dispatcher interface {
	Enqueue(ctx context.Context, cmd command.Command, reply chan<- resp.Value) error
	Await(ctx context.Context, reply <-chan resp.Value) (resp.Value, error)
}

// Observer receives connection-level events. Implementations must not block.
type Observer interface {
	ConnOpened()
	ConnClosed()
	ProtocolError(reason string)
	CommandThrottled()
}

// Config holds the RESP server configuration.
type Config struct {
	// Address is the TCP listen address.
	Address string
	// RateLimit is the per-connection command rate in commands/s.
	// Zero disables limiting. Excess commands are delayed, not rejected.
	RateLimit float64
	// RateBurst is the token bucket size used with RateLimit.
	RateBurst int
	// IdleTimeout closes a connection that sends nothing for this long.
	// Zero means reads never time out.
	IdleTimeout time.Duration
	// WriteTimeout bounds each flush of replies. Zero disables it.
	WriteTimeout time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Address:      "127.0.0.1:6379",
		WriteTimeout: 10 * time.Second,
	}
}

// Server accepts RESP connections and forwards their commands to a Dispatcher.
type Server struct {
	cfg      Config
	store    Dispatcher
	logger   *slog.Logger
	observer Observer

	mu sync.Mutex
	ln net.Listener

	conns   *cmap.Map[*Conn]
	running atomic.Bool
	wg      sync.WaitGroup

	baseCtx context.Context
	cancel  context.CancelFunc
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithObserver sets the connection event observer.
func WithObserver(o Observer) Option {
	return func(s *Server) {
		s.observer = o
	}
}

// New creates a RESP server.
func New(cfg Config, store Dispatcher, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:      cfg,
		store:    store,
		logger:   slog.Default(),
		observer: nopObserver{},
		conns:    cmap.New[*Conn](),
		baseCtx:  ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start binds the listen address and serves connections in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("redisserver: listen %s: %w", s.cfg.Address, err)
	}
	s.Serve(ln)
	return nil
}

// Serve accepts connections on ln in the background.
func (s *Server) Serve(ln net.Listener) {
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	s.running.Store(true)

	s.logger.Info("redis server listening", "address", ln.Addr().String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.acceptLoop(ln); err != nil {
			s.logger.Error("redis accept loop stopped", "error", err)
		}
	}()
}

// Addr returns the listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// ConnCount returns the number of open client connections.
func (s *Server) ConnCount() int {
	return s.conns.Count()
}

// Shutdown stops accepting connections, closes open ones, and waits for
// their goroutines to finish or ctx to end.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)
	s.cancel()

	var firstErr error
	s.mu.Lock()
	if s.ln != nil {
		if err := s.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			firstErr = err
		}
	}
	s.mu.Unlock()

	open := 0
	s.conns.Range(func(_ string, c *Conn) bool {
		_ = c.Close()
		open++
		return true
	})
	if open > 0 {
		s.logger.Info("closing client connections", "count", open)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.logger.Info("redis server stopped")
	return firstErr
}

func (s *Server) acceptLoop(ln net.Listener) error {
	for {
		nc, err := ln.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				s.logger.Warn("temporary accept error", "error", err)
				time.Sleep(10 * time.Millisecond)
				continue
			}
			return err
		}

		c := newConn(nc, s.cfg)
		s.conns.Set(c.id, c)
		s.observer.ConnOpened()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.release(c)
			s.serveConn(s.baseCtx, c)
		}()
	}
}

func (s *Server) release(c *Conn) {
	_ = c.Close()
	if _, ok := s.conns.Pop(c.id); ok {
		s.observer.ConnClosed()
	}
}

type nopObserver struct{}

func (nopObserver) ConnOpened()          {}
func (nopObserver) ConnClosed()          {}
func (nopObserver) ProtocolError(string) {}
func (nopObserver) CommandThrottled()    {}
