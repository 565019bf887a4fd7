package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestClip(t *testing.T) {
	short := "hello"
	if got := Clip(short); got != short {
		t.Errorf("Clip(%q) = %q", short, got)
	}

	exact := strings.Repeat("a", MaxPayloadLen)
	if got := Clip(exact); got != exact {
		t.Error("Clip() must keep a payload of exactly MaxPayloadLen")
	}

	long := strings.Repeat("b", MaxPayloadLen+10)
	got := Clip(long)
	if !strings.HasPrefix(got, strings.Repeat("b", MaxPayloadLen)+"...") {
		t.Errorf("Clip() = %q", got)
	}
	if !strings.HasSuffix(got, "(10 more bytes)") {
		t.Errorf("Clip() = %q, want dropped byte count", got)
	}
}

func TestClipPayload(t *testing.T) {
	long := strings.Repeat("x", 1000)

	tests := []struct {
		name     string
		attr     slog.Attr
		wantClip bool
	}{
		{"value string", slog.String("value", long), true},
		{"value bytes", slog.Any("value", []byte(long)), true},
		{"args", slog.String("args", long), true},
		{"other key", slog.String("path", long), false},
		{"short value", slog.String("value", "ok"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := clipPayload(tt.attr)
			out := got.Value.String()
			clipped := strings.HasSuffix(out, "more bytes)")
			if clipped != tt.wantClip {
				t.Errorf("clipPayload() clipped = %v, want %v (len %d)", clipped, tt.wantClip, len(out))
			}
			if clipped && len(out) >= 1000 {
				t.Errorf("clipPayload() len = %d, want shorter than input", len(out))
			}
		})
	}
}

func TestClipPayload_Group(t *testing.T) {
	long := strings.Repeat("x", 500)
	got := clipPayload(slog.Group("request", slog.String("value", long), slog.Int("n", 1)))

	attrs := got.Value.Group()
	if len(attrs) != 2 {
		t.Fatalf("group has %d attrs, want 2", len(attrs))
	}
	if len(attrs[0].Value.String()) >= 500 {
		t.Error("nested value attribute was not clipped")
	}
	if attrs[1].Value.Int64() != 1 {
		t.Error("non-payload attribute changed")
	}
}

func TestNew_ClipsPayloadAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, Config{Level: "info", Format: "json"}, &buf)

	l.Info("set", "value", strings.Repeat("v", 4096))
	if buf.Len() > 1024 {
		t.Errorf("log line is %d bytes, payload should be clipped", buf.Len())
	}
}
