package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yndnr/respkv-go/pkg/resp"
)

// TextFormatter renders replies the way redis-cli does on a terminal.
type TextFormatter struct{}

func (f *TextFormatter) Format(w io.Writer, v resp.Value) error {
	var b strings.Builder
	writeText(&b, v, "")
	_, err := io.WriteString(w, b.String())
	return err
}

func writeText(b *strings.Builder, v resp.Value, indent string) {
	switch t := v.(type) {
	case resp.SimpleString:
		b.WriteString(string(t))
	case resp.SimpleError:
		b.WriteString("(error) " + string(t))
	case resp.BulkString:
		b.WriteString(strconv.Quote(string(t)))
	case resp.Integer:
		fmt.Fprintf(b, "(integer) %d", int64(t))
	case resp.Boolean:
		fmt.Fprintf(b, "(boolean) %t", bool(t))
	case resp.Double:
		b.WriteString("(double) " + strconv.FormatFloat(float64(t), 'g', -1, 64))
	case resp.Array:
		if len(t) == 0 {
			b.WriteString("(empty array)\n")
			return
		}
		width := len(strconv.Itoa(len(t)))
		for i, item := range t {
			if i > 0 {
				b.WriteString(indent)
			}
			label := fmt.Sprintf("%*d) ", width, i+1)
			b.WriteString(label)
			if _, nested := item.(resp.Array); nested {
				writeText(b, item, indent+strings.Repeat(" ", len(label)))
				continue
			}
			writeText(b, item, "")
		}
		return
	default:
		b.WriteString("(nil)")
	}
	b.WriteByte('\n')
}

// RawFormatter prints bare values, one per line.
type RawFormatter struct{}

func (f *RawFormatter) Format(w io.Writer, v resp.Value) error {
	var b strings.Builder
	writeRaw(&b, v)
	_, err := io.WriteString(w, b.String())
	return err
}

func writeRaw(b *strings.Builder, v resp.Value) {
	switch t := v.(type) {
	case resp.Array:
		for _, item := range t {
			writeRaw(b, item)
		}
		return
	case resp.SimpleError:
		b.WriteString(string(t))
	case resp.Null, nil:
	default:
		if s, ok := resp.Text(v); ok {
			b.WriteString(s)
		} else {
			b.WriteString(fmt.Sprint(Plain(v)))
		}
	}
	b.WriteByte('\n')
}
