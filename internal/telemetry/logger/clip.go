package logger

import (
	"fmt"
	"log/slog"
)

// MaxPayloadLen is the longest client payload written to a log line.
const MaxPayloadLen = 64

// payloadKeys are attribute keys that may carry client data of any size.
var payloadKeys = map[string]struct{}{
	"value":   {},
	"args":    {},
	"payload": {},
	"message": {},
}

// clipPayload truncates payload attributes to MaxPayloadLen bytes.
func clipPayload(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = clipPayload(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}

	if _, ok := payloadKeys[a.Key]; !ok {
		return a
	}

	var s string
	switch v := a.Value.Any().(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case fmt.Stringer:
		s = v.String()
	default:
		s = a.Value.String()
	}
	return slog.String(a.Key, Clip(s))
}

// Clip shortens s to MaxPayloadLen bytes, noting how much was dropped.
func Clip(s string) string {
	if len(s) <= MaxPayloadLen {
		return s
	}
	return fmt.Sprintf("%s...(%d more bytes)", s[:MaxPayloadLen], len(s)-MaxPayloadLen)
}
