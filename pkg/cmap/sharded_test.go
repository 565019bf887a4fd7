package cmap

import (
	"fmt"
	"sync"
	"testing"
)

func TestNewWithShards(t *testing.T) {
	tests := []struct {
		input    int
		expected int
	}{
		{0, DefaultShardCount},
		{-1, DefaultShardCount},
		{3, DefaultShardCount},
		{1, 1},
		{8, 8},
		{32, 32},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("shards=%d", tt.input), func(t *testing.T) {
			m := NewWithShards[int](tt.input)
			if m.ShardCount() != tt.expected {
				t.Errorf("NewWithShards(%d) shard count = %d, want %d", tt.input, m.ShardCount(), tt.expected)
			}
		})
	}
}

func TestSetGetPop(t *testing.T) {
	m := New[int]()

	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("a", 3)

	if v, ok := m.Get("a"); !ok || v != 3 {
		t.Errorf("Get(a) = (%d, %v), want (3, true)", v, ok)
	}
	if m.Count() != 2 {
		t.Errorf("Count() = %d, want 2", m.Count())
	}

	if v, ok := m.Pop("b"); !ok || v != 2 {
		t.Errorf("Pop(b) = (%d, %v), want (2, true)", v, ok)
	}
	if _, ok := m.Pop("b"); ok {
		t.Error("Pop(b) twice should report absence")
	}

	m.Delete("a")
	if _, ok := m.Get("a"); ok {
		t.Error("Get(a) after Delete should fail")
	}
	if m.Count() != 0 {
		t.Errorf("Count() = %d, want 0", m.Count())
	}
}

func TestSetIfAbsent(t *testing.T) {
	m := New[string]()
	if !m.SetIfAbsent("conn", "first") {
		t.Error("SetIfAbsent() on a new key should succeed")
	}
	if m.SetIfAbsent("conn", "second") {
		t.Error("SetIfAbsent() on an existing key should fail")
	}
	if v, _ := m.Get("conn"); v != "first" {
		t.Errorf("Get() = %q, want first", v)
	}
}

func TestShardDistribution(t *testing.T) {
	m := NewWithShards[int](8)
	for i := 0; i < 8000; i++ {
		m.Set(fmt.Sprintf("conn-%d", i), i)
	}

	sizes := m.ShardSizes()
	total := 0
	for i, n := range sizes {
		total += n
		if n == 0 {
			t.Errorf("shard %d is empty, hash is not spreading keys", i)
		}
	}
	if total != 8000 {
		t.Errorf("sum of shard sizes = %d, want 8000", total)
	}
}

func TestConcurrentAccess(t *testing.T) {
	m := New[int]()
	var wg sync.WaitGroup
	const goroutines, ops = 50, 500

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for j := 0; j < ops; j++ {
				key := fmt.Sprintf("%d-%d", base, j)
				m.Set(key, j)
				m.Get(key)
			}
		}(i)
	}
	wg.Wait()

	if m.Count() != goroutines*ops {
		t.Errorf("Count() = %d, want %d", m.Count(), goroutines*ops)
	}

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for j := 0; j < ops; j++ {
				m.Pop(fmt.Sprintf("%d-%d", base, j))
			}
		}(i)
	}
	wg.Wait()

	if m.Count() != 0 {
		t.Errorf("Count() = %d, want 0", m.Count())
	}
}
