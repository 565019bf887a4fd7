package output

import (
	"fmt"
	"io"

	"github.com/yndnr/respkv-go/pkg/resp"
)

// Format represents the output format.
type Format string

const (
	FormatText Format = "text"
	FormatRaw  Format = "raw"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Formatter writes one reply.
type Formatter interface {
	Format(w io.Writer, v resp.Value) error
}

// ParseFormat validates a format name. An empty name selects text.
func ParseFormat(name string) (Format, error) {
	switch f := Format(name); f {
	case "":
		return FormatText, nil
	case FormatText, FormatRaw, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, raw, json or yaml)", name)
	}
}

// NewFormatter creates a formatter for the given format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatRaw:
		return &RawFormatter{}
	case FormatJSON:
		return &JSONFormatter{}
	case FormatYAML:
		return &YAMLFormatter{}
	default:
		return &TextFormatter{}
	}
}

// Plain converts a reply to Go data for structured encoders. Errors become
// {"error": msg} so they stay distinguishable from strings.
func Plain(v resp.Value) any {
	switch t := v.(type) {
	case resp.SimpleString:
		return string(t)
	case resp.BulkString:
		return string(t)
	case resp.SimpleError:
		return map[string]string{"error": string(t)}
	case resp.Integer:
		return int64(t)
	case resp.Boolean:
		return bool(t)
	case resp.Double:
		return float64(t)
	case resp.Array:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Plain(item)
		}
		return out
	default:
		return nil
	}
}
