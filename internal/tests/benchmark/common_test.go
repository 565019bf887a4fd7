package benchmark

import (
	"context"
	"fmt"
	"runtime"
	"testing"

	"github.com/yndnr/respkv-go/internal/core/command"
	"github.com/yndnr/respkv-go/internal/core/store"
	"github.com/yndnr/respkv-go/internal/telemetry/logger"
)

// KeyCounts defines the keyspace sizes for benchmarking.
var KeyCounts = []int{10000, 100000, 1000000}

// SmallKeyCounts for quick benchmarks.
var SmallKeyCounts = []int{1000, 10000, 100000}

func keyName(i int) string {
	return fmt.Sprintf("key:%08d", i)
}

// runningStore starts a store actor seeded with count keys. It is stopped
// when the benchmark ends.
func runningStore(b *testing.B, count int) *store.Store {
	b.Helper()
	st := store.New(store.Options{Logger: logger.Discard()})

	values := make(map[string][]byte, count)
	for i := 0; i < count; i++ {
		values[keyName(i)] = []byte("value")
	}
	if _, err := st.Load(values, nil); err != nil {
		b.Fatalf("Load failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = st.Run(ctx) }()
	b.Cleanup(func() {
		cancel()
		<-st.Done()
	})
	return st
}

func submit(b *testing.B, st *store.Store, cmd command.Command) {
	if _, err := st.Submit(context.Background(), cmd); err != nil {
		b.Fatalf("Submit failed: %v", err)
	}
}

// reportMemory reports memory usage.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runWithKeyCounts runs a benchmark function with various keyspace sizes.
func runWithKeyCounts(b *testing.B, counts []int, benchFn func(b *testing.B, count int)) {
	for _, count := range counts {
		b.Run(fmt.Sprintf("keys_%d", count), func(b *testing.B) {
			benchFn(b, count)
		})
	}
}
