package benchmark

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/yndnr/respkv-go/internal/storage/rdb"
)

// buildSnapshot encodes count string records, every other one with a
// millisecond expiry. Keys and values stay under 64 bytes so each length
// fits the 6-bit form.
func buildSnapshot(count int) []byte {
	var buf bytes.Buffer
	buf.WriteString("REDIS0011")
	buf.Write([]byte{0xFE, 0x00})
	for i := 0; i < count; i++ {
		if i%2 == 0 {
			buf.WriteByte(0xFC)
			buf.Write([]byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x7F})
		}
		key := keyName(i)
		buf.WriteByte(0x00)
		buf.WriteByte(byte(len(key)))
		buf.WriteString(key)
		buf.WriteByte(5)
		buf.WriteString("value")
	}
	buf.WriteByte(0xFF)
	return buf.Bytes()
}

// BenchmarkRDBDecode benchmarks decoding snapshots of various sizes.
func BenchmarkRDBDecode(b *testing.B) {
	runWithKeyCounts(b, SmallKeyCounts, func(b *testing.B, count int) {
		data := buildSnapshot(count)

		b.ResetTimer()
		b.ReportAllocs()
		b.SetBytes(int64(len(data)))
		for i := 0; i < b.N; i++ {
			snap, err := rdb.Decode(bytes.NewReader(data))
			if err != nil {
				b.Fatalf("Decode failed: %v", err)
			}
			if len(snap.Values) != count {
				b.Fatalf("decoded %d keys, want %d", len(snap.Values), count)
			}
		}
		b.StopTimer()
		reportMemory(b, "mem")
	})
}

// BenchmarkRDBLoadFile benchmarks Load including file I/O.
func BenchmarkRDBLoadFile(b *testing.B) {
	path := filepath.Join(b.TempDir(), "dump.rdb")
	if err := os.WriteFile(path, buildSnapshot(100000), 0o600); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := rdb.Load(path); err != nil {
			b.Fatalf("Load failed: %v", err)
		}
	}
}
