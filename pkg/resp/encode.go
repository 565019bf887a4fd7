package resp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

var ErrEncoding = errors.New("resp: value not encodable")

// Encode returns the wire form of v.
func Encode(v Value) ([]byte, error) {
	return AppendValue(nil, v)
}

// AppendValue appends the wire form of v to dst.
//
// SimpleString and SimpleError values containing CR or LF are rejected
// with ErrEncoding instead of producing a malformed frame. On error the
// returned slice must not be used.
//
// Arrays nested deeper than MaxDepth are rejected with ErrEncoding, the
// same bound the decoder enforces, so every encodable value decodes.
func AppendValue(dst []byte, v Value) ([]byte, error) {
	return appendValue(dst, v, 0)
}

func appendValue(dst []byte, v Value, depth int) ([]byte, error) {
	if depth > MaxDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d", ErrEncoding, MaxDepth)
	}
	switch t := v.(type) {
	case SimpleString:
		return appendLine(dst, '+', string(t))
	case SimpleError:
		return appendLine(dst, '-', string(t))
	case Integer:
		dst = append(dst, ':')
		dst = strconv.AppendInt(dst, int64(t), 10)
		return append(dst, crlf...), nil
	case BulkString:
		dst = append(dst, '$')
		dst = strconv.AppendInt(dst, int64(len(t)), 10)
		dst = append(dst, crlf...)
		dst = append(dst, t...)
		return append(dst, crlf...), nil
	case Null:
		return append(dst, "$-1\r\n"...), nil
	case Boolean:
		if t {
			return append(dst, "#t\r\n"...), nil
		}
		return append(dst, "#f\r\n"...), nil
	case Double:
		dst = append(dst, ',')
		dst = appendDouble(dst, float64(t))
		return append(dst, crlf...), nil
	case Array:
		dst = append(dst, '*')
		dst = strconv.AppendInt(dst, int64(len(t)), 10)
		dst = append(dst, crlf...)
		var err error
		for i, elem := range t {
			if dst, err = appendValue(dst, elem, depth+1); err != nil {
				if depth > 0 {
					return nil, err
				}
				return nil, fmt.Errorf("array element %d: %w", i, err)
			}
		}
		return dst, nil
	case nil:
		return nil, fmt.Errorf("%w: nil value", ErrEncoding)
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", ErrEncoding, v)
	}
}

func appendLine(dst []byte, marker byte, s string) ([]byte, error) {
	if containsLineBreak(s) {
		return nil, fmt.Errorf("%w: %q contains CR or LF", ErrEncoding, s)
	}
	dst = append(dst, marker)
	dst = append(dst, s...)
	return append(dst, crlf...), nil
}

// appendDouble writes the shortest text that parses back to f.
func appendDouble(dst []byte, f float64) []byte {
	switch {
	case math.IsInf(f, 1):
		return append(dst, "inf"...)
	case math.IsInf(f, -1):
		return append(dst, "-inf"...)
	case math.IsNaN(f):
		return append(dst, "nan"...)
	}
	return strconv.AppendFloat(dst, f, 'g', -1, 64)
}

// maxScratch bounds the encode buffer a Writer keeps between calls.
const maxScratch = 1 << 20

// Writer writes RESP values to a buffered stream.
type Writer struct {
	bw      *bufio.Writer
	scratch []byte
}

// NewWriter returns a Writer over w. An existing *bufio.Writer is reused.
func NewWriter(w io.Writer) *Writer {
	if bw, ok := w.(*bufio.Writer); ok {
		return &Writer{bw: bw}
	}
	return &Writer{bw: bufio.NewWriter(w)}
}

// WriteValue encodes v into the buffer. Nothing is written if v cannot be
// encoded.
func (w *Writer) WriteValue(v Value) error {
	b, err := AppendValue(w.scratch[:0], v)
	if err != nil {
		return err
	}
	_, err = w.bw.Write(b)
	if cap(b) > maxScratch {
		b = nil
	}
	w.scratch = b
	return err
}

// WriteError writes a SimpleError built from msg.
func (w *Writer) WriteError(msg string) error {
	return w.WriteValue(Errorf(msg))
}

// Flush writes buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.bw.Flush()
}

// Buffered returns the number of bytes waiting to be flushed.
func (w *Writer) Buffered() int {
	return w.bw.Buffered()
}
