package store

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/respkv-go/internal/core/command"
	"github.com/yndnr/respkv-go/pkg/resp"
)

// DefaultQueueSize is the default command queue capacity.
const DefaultQueueSize = 1024

var (
	// ErrStopped is returned once the actor no longer accepts commands.
	ErrStopped = errors.New("store: stopped")

	// ErrRunning is returned by Run and Load once Run has been called.
	ErrRunning = errors.New("store: already running")
)

// Observer receives notifications from the actor goroutine.
// Implementations must not block.
type Observer interface {
	CommandApplied(name string, failed bool, elapsed time.Duration)
	KeysChanged(count int)
	KeysExpired(count int)
}

// Options configures a Store.
type Options struct {
	// QueueSize bounds the number of commands waiting for the actor.
	// A full queue blocks Enqueue.
	QueueSize int

	// Config is the read-only option table served by CONFIG GET.
	Config map[string]string

	// Clock drives expiry. Defaults to the system clock.
	Clock Clock

	Logger   *slog.Logger
	Observer Observer

	// OnApply is called on the actor goroutine after each command with its
	// position in the applied history.
	OnApply func(seq uint64, cmd command.Command)
}

// Stats is a point-in-time view of the actor counters.
type Stats struct {
	Keys       int
	Applied    uint64
	Expired    uint64
	QueueDepth int
}

type request struct {
	cmd   command.Command
	reply chan<- resp.Value
}

// Store is the keyspace actor.
type Store struct {
	queue   chan request
	closing chan struct{}
	done    chan struct{}
	running atomic.Bool

	// Enqueue sends under the read lock; Run takes the write lock after
	// closing so that no send lands behind the final drain.
	gate sync.RWMutex

	// Owned by the actor goroutine.
	data    map[string]Value
	expires map[string]time.Time
	config  map[string]string
	seq     uint64

	clock    Clock
	logger   *slog.Logger
	observer Observer
	onApply  func(uint64, command.Command)

	keys    atomic.Int64
	applied atomic.Uint64
	expired atomic.Uint64
}

// New creates a Store. Call Run to start serving.
func New(opts Options) *Store {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	cfg := make(map[string]string, len(opts.Config))
	maps.Copy(cfg, opts.Config)

	return &Store{
		queue:    make(chan request, opts.QueueSize),
		closing:  make(chan struct{}),
		done:     make(chan struct{}),
		data:     make(map[string]Value),
		expires:  make(map[string]time.Time),
		config:   cfg,
		clock:    opts.Clock,
		logger:   opts.Logger,
		observer: opts.Observer,
		onApply:  opts.OnApply,
	}
}

// Load seeds the keyspace before Run is called.
//
// deadlines holds absolute wall-clock expiry times. They are converted to
// the store clock; entries already past their deadline are skipped.
// Load returns the number of keys stored.
func (s *Store) Load(values map[string][]byte, deadlines map[string]time.Time) (int, error) {
	if s.running.Load() {
		return 0, ErrRunning
	}

	now := s.clock.Now()
	loaded := 0
	for key, val := range values {
		if deadline, ok := deadlines[key]; ok {
			remaining := deadline.Sub(now)
			if remaining <= 0 {
				continue
			}
			s.expires[key] = now.Add(remaining)
		}
		s.data[key] = String(val)
		loaded++
	}
	s.keys.Store(int64(len(s.data)))
	if s.observer != nil {
		s.observer.KeysChanged(len(s.data))
	}
	return loaded, nil
}

// Run applies queued commands one at a time until ctx is cancelled.
//
// On cancellation the commands already queued are applied and answered
// before Run returns; later Enqueue calls fail with ErrStopped.
func (s *Store) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer close(s.done)

	s.logger.Info("store actor started", "keys", len(s.data), "queue_size", cap(s.queue))
	for {
		select {
		case r := <-s.queue:
			s.apply(r)
		case <-ctx.Done():
			close(s.closing)
			s.gate.Lock()
			n := s.drain()
			s.gate.Unlock()
			s.logger.Info("store actor stopped", "drained", n, "applied", s.seq)
			return nil
		}
	}
}

func (s *Store) drain() int {
	n := 0
	for {
		select {
		case r := <-s.queue:
			s.apply(r)
			n++
		default:
			return n
		}
	}
}

// Done is closed when Run has returned.
func (s *Store) Done() <-chan struct{} {
	return s.done
}

// Enqueue hands cmd to the actor. The reply is sent exactly once on reply,
// which must have room for one value; if it does not, the reply is dropped.
//
// Enqueue blocks while the queue is full. It fails with ctx.Err() if ctx
// ends first, or ErrStopped if the actor is shutting down; in both cases
// the command was not accepted and no reply will be sent. Once accepted, a
// command runs even if the caller stops waiting.
func (s *Store) Enqueue(ctx context.Context, cmd command.Command, reply chan<- resp.Value) error {
	s.gate.RLock()
	defer s.gate.RUnlock()

	select {
	case <-s.closing:
		return ErrStopped
	default:
	}

	select {
	case s.queue <- request{cmd: cmd, reply: reply}:
		return nil
	case <-s.closing:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NewReplySlot returns a channel suitable for Enqueue.
func NewReplySlot() chan resp.Value {
	return make(chan resp.Value, 1)
}

// Submit enqueues cmd and waits for its reply.
func (s *Store) Submit(ctx context.Context, cmd command.Command) (resp.Value, error) {
	reply := NewReplySlot()
	if err := s.Enqueue(ctx, cmd, reply); err != nil {
		return nil, err
	}
	return s.Await(ctx, reply)
}

// Await waits for the reply to an accepted command.
func (s *Store) Await(ctx context.Context, reply <-chan resp.Value) (resp.Value, error) {
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		// The actor may have answered during drain.
		select {
		case v := <-reply:
			return v, nil
		default:
			return nil, ErrStopped
		}
	}
}

// Stats returns the current counters. Safe for concurrent use.
func (s *Store) Stats() Stats {
	return Stats{
		Keys:       int(s.keys.Load()),
		Applied:    s.applied.Load(),
		Expired:    s.expired.Load(),
		QueueDepth: len(s.queue),
	}
}

// QueueDepth returns the number of commands waiting for the actor.
func (s *Store) QueueDepth() int {
	return len(s.queue)
}

func (s *Store) apply(r request) {
	start := time.Now()
	reply := s.execute(r.cmd)

	s.seq++
	s.applied.Store(s.seq)
	if s.onApply != nil {
		s.onApply(s.seq, r.cmd)
	}
	_, failed := reply.(resp.SimpleError)
	if s.observer != nil {
		s.observer.CommandApplied(r.cmd.Name(), failed, time.Since(start))
	}

	select {
	case r.reply <- reply:
	default:
		s.logger.Warn("reply slot unavailable, dropping reply", "command", r.cmd.Name(), "seq", s.seq)
	}
}
