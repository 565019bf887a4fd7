package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

// newTestLogger builds a logger writing to buf and restores the global
// state afterwards.
func newTestLogger(t *testing.T, cfg Config, buf *bytes.Buffer) *slog.Logger {
	t.Helper()
	prevDefault := slog.Default()
	prevLevel := globalLevel.Level()
	t.Cleanup(func() {
		slog.SetDefault(prevDefault)
		globalLevel.Set(prevLevel)
	})

	cfg.Output = buf
	l, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return l
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default config", DefaultConfig(), false},
		{"text format", Config{Level: "debug", Format: "text"}, false},
		{"console format", Config{Level: "info", Format: "console"}, false},
		{"empty format is json", Config{Level: "info"}, false},
		{"unknown format", Config{Level: "info", Format: "xml"}, true},
		{"unknown level", Config{Level: "verbose", Format: "json"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := slog.Default()
			defer slog.SetDefault(prev)

			l, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && l == nil {
				t.Fatal("New() returned nil logger")
			}
		})
	}
}

func TestNew_InstallsDefault(t *testing.T) {
	var buf bytes.Buffer
	newTestLogger(t, Config{Level: "info", Format: "json"}, &buf)

	slog.Info("through default", "k", "v")
	lines := decodeLines(t, &buf)
	if len(lines) != 1 || lines[0]["msg"] != "through default" {
		t.Errorf("default logger output = %v", lines)
	}
}

// ============================================================
// Level Tests
// ============================================================

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, Config{Level: "warn", Format: "json"}, &buf)

	l.Debug("debug")
	l.Info("info")
	l.Warn("warn")
	l.Error("error")

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2 (warn and error)", len(lines))
	}
	if lines[0]["level"] != "WARN" || lines[1]["level"] != "ERROR" {
		t.Errorf("levels = %v, %v", lines[0]["level"], lines[1]["level"])
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, Config{Level: "info", Format: "json"}, &buf)

	l.Debug("hidden")
	if err := SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel() error = %v", err)
	}
	if GetLevel() != "debug" {
		t.Errorf("GetLevel() = %q, want debug", GetLevel())
	}
	l.Debug("visible")

	lines := decodeLines(t, &buf)
	if len(lines) != 1 || lines[0]["msg"] != "visible" {
		t.Errorf("lines = %v, want only the message logged after SetLevel", lines)
	}

	if err := SetLevel("chatty"); err == nil {
		t.Error("SetLevel() should reject unknown levels")
	}
	if GetLevel() != "debug" {
		t.Error("a rejected SetLevel must keep the current level")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"DEBUG", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, Config{Level: "info", Format: "text"}, &buf)

	l.Info("hello", "key", "k1")
	out := buf.String()
	if !strings.Contains(out, "msg=hello") || !strings.Contains(out, "key=k1") {
		t.Errorf("text output = %q", out)
	}
}
