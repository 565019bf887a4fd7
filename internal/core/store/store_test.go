package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/respkv-go/internal/core/command"
	"github.com/yndnr/respkv-go/pkg/resp"
)

// ============================================================
// Test helpers
// ============================================================

func startStore(t *testing.T, s *Store) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-s.Done()
	})
}

func newTestStore(t *testing.T, opts Options) (*Store, *ManualClock) {
	t.Helper()
	clock := NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if opts.Clock == nil {
		opts.Clock = clock
	}
	s := New(opts)
	startStore(t, s)
	return s, clock
}

func submit(t *testing.T, s *Store, parts ...string) resp.Value {
	t.Helper()
	in := make(resp.Array, 0, len(parts))
	for _, p := range parts {
		in = append(in, resp.Bulk(p))
	}
	cmd, err := command.Parse(in)
	if err != nil {
		t.Fatalf("Parse(%v) error = %v", parts, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	v, err := s.Submit(ctx, cmd)
	if err != nil {
		t.Fatalf("Submit(%v) error = %v", parts, err)
	}
	return v
}

func assertReply(t *testing.T, got, want resp.Value) {
	t.Helper()
	if !resp.Equal(got, want) {
		t.Errorf("reply = %#v, want %#v", got, want)
	}
}

// ============================================================
// Command semantics
// ============================================================

func TestStore_PingEcho(t *testing.T) {
	s, _ := newTestStore(t, Options{})

	assertReply(t, submit(t, s, "PING"), resp.SimpleString("PONG"))
	assertReply(t, submit(t, s, "ECHO", "hello world"), resp.Bulk("hello world"))
}

func TestStore_SetGet(t *testing.T) {
	s, _ := newTestStore(t, Options{})

	assertReply(t, submit(t, s, "SET", "foo", "bar"), resp.SimpleString("OK"))
	assertReply(t, submit(t, s, "GET", "foo"), resp.Bulk("bar"))
	assertReply(t, submit(t, s, "GET", "missing"), resp.Null{})

	assertReply(t, submit(t, s, "SET", "foo", "baz"), resp.SimpleString("OK"))
	assertReply(t, submit(t, s, "GET", "foo"), resp.Bulk("baz"))
}

func TestStore_SetPXExpires(t *testing.T) {
	s, clock := newTestStore(t, Options{})

	submit(t, s, "SET", "foo", "bar", "PX", "100")
	clock.Advance(99 * time.Millisecond)
	assertReply(t, submit(t, s, "GET", "foo"), resp.Bulk("bar"))

	clock.Advance(51 * time.Millisecond)
	assertReply(t, submit(t, s, "GET", "foo"), resp.Null{})

	st := s.Stats()
	if st.Keys != 0 {
		t.Errorf("Keys = %d, want 0 after read-time eviction", st.Keys)
	}
	if st.Expired != 1 {
		t.Errorf("Expired = %d, want 1", st.Expired)
	}
}

func TestStore_ExpiresAtDeadline(t *testing.T) {
	s, clock := newTestStore(t, Options{})

	submit(t, s, "SET", "foo", "bar", "PX", "100")
	clock.Advance(100 * time.Millisecond)
	assertReply(t, submit(t, s, "GET", "foo"), resp.Null{})
}

func TestStore_SetWithoutPXClearsExpiry(t *testing.T) {
	s, clock := newTestStore(t, Options{})

	submit(t, s, "SET", "foo", "bar", "PX", "100")
	submit(t, s, "SET", "foo", "baz")
	clock.Advance(150 * time.Millisecond)

	assertReply(t, submit(t, s, "GET", "foo"), resp.Bulk("baz"))
}

func TestStore_SetPXReplacesExpiry(t *testing.T) {
	s, clock := newTestStore(t, Options{})

	submit(t, s, "SET", "foo", "bar", "PX", "100")
	submit(t, s, "SET", "foo", "baz", "PX", "1000")
	clock.Advance(150 * time.Millisecond)
	assertReply(t, submit(t, s, "GET", "foo"), resp.Bulk("baz"))

	clock.Advance(time.Second)
	assertReply(t, submit(t, s, "GET", "foo"), resp.Null{})
}

func TestStore_ConfigGet(t *testing.T) {
	s, _ := newTestStore(t, Options{
		Config: map[string]string{"dir": "/tmp", "dbfilename": "dump.rdb"},
	})

	assertReply(t, submit(t, s, "CONFIG", "GET", "missing"), resp.Null{})
	assertReply(t, submit(t, s, "CONFIG", "GET", "dir"), resp.Array{resp.Bulk("dir"), resp.Bulk("/tmp")})
	assertReply(t, submit(t, s, "config", "get", "dbfilename"), resp.Array{resp.Bulk("dbfilename"), resp.Bulk("dump.rdb")})
}

func TestStore_ConfigIsCopied(t *testing.T) {
	cfg := map[string]string{"dir": "/tmp"}
	s, _ := newTestStore(t, Options{Config: cfg})
	cfg["dir"] = "/changed"

	assertReply(t, submit(t, s, "CONFIG", "GET", "dir"), resp.Array{resp.Bulk("dir"), resp.Bulk("/tmp")})
}

func TestStore_Keys(t *testing.T) {
	s, clock := newTestStore(t, Options{})

	assertReply(t, submit(t, s, "KEYS", "*"), resp.Array{})

	submit(t, s, "SET", "b", "1")
	submit(t, s, "SET", "a", "2")
	submit(t, s, "SET", "c", "3", "PX", "10")
	assertReply(t, submit(t, s, "KEYS", "*"), resp.Array{resp.Bulk("a"), resp.Bulk("b"), resp.Bulk("c")})

	clock.Advance(10 * time.Millisecond)
	// The pattern is not applied.
	assertReply(t, submit(t, s, "KEYS", "zzz"), resp.Array{resp.Bulk("a"), resp.Bulk("b")})

	if got := s.Stats().Expired; got != 1 {
		t.Errorf("Expired = %d, want 1", got)
	}
}

func TestStore_NotImplemented(t *testing.T) {
	s, _ := newTestStore(t, Options{})

	got := submit(t, s, "FLUSHALL")
	assertReply(t, got, resp.SimpleError("ERR unknown command 'FLUSHALL'"))

	// The actor keeps serving after an unknown command.
	assertReply(t, submit(t, s, "PING"), resp.SimpleString("PONG"))
}

// ============================================================
// Snapshot seeding
// ============================================================

func TestStore_Load(t *testing.T) {
	clock := NewManualClock(time.Now())
	s := New(Options{Clock: clock})

	wall := time.Now()
	n, err := s.Load(
		map[string][]byte{"k": []byte("v"), "ttl": []byte("soon"), "gone": []byte("old")},
		map[string]time.Time{
			"ttl":  wall.Add(time.Hour),
			"gone": wall.Add(-time.Hour),
		},
	)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Load() = %d, want 2", n)
	}
	startStore(t, s)

	assertReply(t, submit(t, s, "GET", "k"), resp.Bulk("v"))
	assertReply(t, submit(t, s, "GET", "ttl"), resp.Bulk("soon"))
	assertReply(t, submit(t, s, "GET", "gone"), resp.Null{})

	clock.Advance(2 * time.Hour)
	assertReply(t, submit(t, s, "GET", "ttl"), resp.Null{})
	assertReply(t, submit(t, s, "GET", "k"), resp.Bulk("v"))
}

func TestStore_LoadAfterRun(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	submit(t, s, "PING")

	if _, err := s.Load(map[string][]byte{"k": nil}, nil); !errors.Is(err, ErrRunning) {
		t.Errorf("Load() error = %v, want ErrRunning", err)
	}
}

// ============================================================
// Concurrency and queue semantics
// ============================================================

func TestStore_ConcurrentMatchesSequentialReplay(t *testing.T) {
	var (
		mu      sync.Mutex
		history []command.Command
	)
	s, _ := newTestStore(t, Options{
		QueueSize: 8,
		OnApply: func(seq uint64, cmd command.Command) {
			mu.Lock()
			history = append(history, cmd)
			mu.Unlock()
		},
	})

	const clients, perClient = 16, 50
	var wg sync.WaitGroup
	for c := 0; c < clients; c++ {
		wg.Add(1)
		go func(c int) {
			defer wg.Done()
			for i := 0; i < perClient; i++ {
				key := fmt.Sprintf("key-%d", i%7)
				cmd := command.Set{Key: key, Value: []byte(fmt.Sprintf("c%d-%d", c, i))}
				if _, err := s.Submit(context.Background(), cmd); err != nil {
					t.Errorf("Submit() error = %v", err)
					return
				}
			}
		}(c)
	}
	wg.Wait()

	mu.Lock()
	replayed := append([]command.Command(nil), history...)
	mu.Unlock()
	if len(replayed) != clients*perClient {
		t.Fatalf("history has %d commands, want %d", len(replayed), clients*perClient)
	}

	seq, _ := newTestStore(t, Options{})
	for _, cmd := range replayed {
		if _, err := seq.Submit(context.Background(), cmd); err != nil {
			t.Fatalf("replay Submit() error = %v", err)
		}
	}

	for i := 0; i < 7; i++ {
		key := fmt.Sprintf("key-%d", i)
		assertReply(t, submit(t, s, "GET", key), submit(t, seq, "GET", key))
	}
	assertReply(t, submit(t, s, "KEYS", "*"), submit(t, seq, "KEYS", "*"))
}

func TestStore_EnqueueBlocksWhenFull(t *testing.T) {
	s := New(Options{QueueSize: 1})

	if err := s.Enqueue(context.Background(), command.Ping{}, NewReplySlot()); err != nil {
		t.Fatalf("first Enqueue() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.Enqueue(ctx, command.Ping{}, NewReplySlot())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Enqueue() on full queue error = %v, want DeadlineExceeded", err)
	}
	if d := s.QueueDepth(); d != 1 {
		t.Errorf("QueueDepth() = %d, want 1", d)
	}
}

func TestStore_DrainsQueueOnStop(t *testing.T) {
	s := New(Options{QueueSize: 4})

	slots := make([]chan resp.Value, 3)
	for i := range slots {
		slots[i] = NewReplySlot()
		if err := s.Enqueue(context.Background(), command.Ping{}, slots[i]); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for i, slot := range slots {
		select {
		case v := <-slot:
			assertReply(t, v, resp.SimpleString("PONG"))
		default:
			t.Errorf("command %d was accepted but never answered", i)
		}
	}

	if err := s.Enqueue(context.Background(), command.Ping{}, NewReplySlot()); !errors.Is(err, ErrStopped) {
		t.Errorf("Enqueue() after stop error = %v, want ErrStopped", err)
	}
	if _, err := s.Submit(context.Background(), command.Ping{}); !errors.Is(err, ErrStopped) {
		t.Errorf("Submit() after stop error = %v, want ErrStopped", err)
	}
	if err := s.Run(context.Background()); !errors.Is(err, ErrRunning) {
		t.Errorf("second Run() error = %v, want ErrRunning", err)
	}
}

func TestStore_EnqueueDuringStopIsAnsweredOrRejected(t *testing.T) {
	tests := []struct {
		name      string
		queueSize int
		senders   int
	}{
		{"small queue", 1, 8},
		{"large queue", 256, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Options{QueueSize: tt.queueSize})
			ctx, cancel := context.WithCancel(context.Background())
			go s.Run(ctx)

			var (
				mu       sync.Mutex
				accepted []chan resp.Value
				wg       sync.WaitGroup
			)
			for i := 0; i < tt.senders; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for {
						slot := NewReplySlot()
						err := s.Enqueue(context.Background(), command.Ping{}, slot)
						if errors.Is(err, ErrStopped) {
							return
						}
						if err != nil {
							t.Errorf("Enqueue() error = %v", err)
							return
						}
						mu.Lock()
						accepted = append(accepted, slot)
						mu.Unlock()
					}
				}()
			}

			time.Sleep(5 * time.Millisecond)
			cancel()
			<-s.Done()
			wg.Wait()

			for i, slot := range accepted {
				select {
				case v := <-slot:
					assertReply(t, v, resp.SimpleString("PONG"))
				default:
					t.Fatalf("command %d of %d was accepted but never answered", i, len(accepted))
				}
			}
		})
	}
}

func TestStore_AbandonedReplyDoesNotBlockActor(t *testing.T) {
	s, _ := newTestStore(t, Options{})

	// An unbuffered slot nobody reads from.
	abandoned := make(chan resp.Value)
	if err := s.Enqueue(context.Background(), command.Set{Key: "k", Value: []byte("v")}, abandoned); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	// The command still ran and the actor is still serving.
	assertReply(t, submit(t, s, "GET", "k"), resp.Bulk("v"))
}

type recordingObserver struct {
	mu       sync.Mutex
	commands []string
	failed   int
	keys     int
	expired  int
}

func (o *recordingObserver) CommandApplied(name string, failed bool, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.commands = append(o.commands, name)
	if failed {
		o.failed++
	}
}

func (o *recordingObserver) KeysChanged(count int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.keys = count
}

func (o *recordingObserver) KeysExpired(count int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.expired += count
}

func TestStore_Observer(t *testing.T) {
	obs := &recordingObserver{}
	s, clock := newTestStore(t, Options{Observer: obs})

	submit(t, s, "SET", "a", "1", "PX", "5")
	submit(t, s, "SET", "b", "2")
	submit(t, s, "NOPE")
	clock.Advance(5 * time.Millisecond)
	submit(t, s, "GET", "a")

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if len(obs.commands) != 4 {
		t.Errorf("observed %d commands, want 4", len(obs.commands))
	}
	if obs.failed != 1 {
		t.Errorf("failed = %d, want 1", obs.failed)
	}
	if obs.keys != 1 {
		t.Errorf("keys = %d, want 1", obs.keys)
	}
	if obs.expired != 1 {
		t.Errorf("expired = %d, want 1", obs.expired)
	}
}
