package resp

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Protocol limits to keep a single client from exhausting memory.
const (
	// MaxArrayLen limits the number of elements in a single array.
	MaxArrayLen = 1024 * 1024

	// MaxBulkLen limits the size of a single bulk string (512MB, as Redis).
	MaxBulkLen = 512 * 1024 * 1024

	// MaxLineLen limits simple strings, errors, numbers and inline commands.
	MaxLineLen = 64 * 1024

	// MaxDepth limits array nesting.
	MaxDepth = 32
)

// bulkPrealloc caps the up-front allocation for a declared bulk length.
// Larger payloads grow as bytes actually arrive.
const bulkPrealloc = 64 * 1024

var (
	ErrProtocol      = errors.New("resp: protocol error")
	ErrLimitExceeded = errors.New("resp: limit exceeded")
)

var crlf = []byte("\r\n")

// Decode parses buf as exactly one RESP value.
//
// buf must end with CRLF and must not contain bytes after the value.
// All failures, including truncated input, wrap ErrProtocol or
// ErrLimitExceeded.
func Decode(buf []byte) (Value, error) {
	if !bytes.HasSuffix(buf, crlf) {
		return nil, fmt.Errorf("%w: missing CRLF terminator", ErrProtocol)
	}

	r := NewReader(bytes.NewReader(buf))
	v, err := r.ReadValue()
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: unexpected end of input", ErrProtocol)
		}
		return nil, err
	}
	if _, err := r.br.Peek(1); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing bytes after value", ErrProtocol)
	}
	return v, nil
}

// Reader decodes RESP values from a byte stream.
type Reader struct {
	br *bufio.Reader
}

// NewReader returns a Reader over r. An existing *bufio.Reader is reused.
func NewReader(r io.Reader) *Reader {
	if br, ok := r.(*bufio.Reader); ok {
		return &Reader{br: br}
	}
	return &Reader{br: bufio.NewReader(r)}
}

// Buffered returns the number of bytes already read from the underlying
// stream but not yet decoded.
func (r *Reader) Buffered() int {
	return r.br.Buffered()
}

// ReadValue reads the next value.
//
// It returns io.EOF only when the stream ends cleanly between values;
// a stream ending inside a value yields io.ErrUnexpectedEOF.
func (r *Reader) ReadValue() (Value, error) {
	return r.readValue(0)
}

// ReadRequest reads the next client request.
//
// Besides regular values it accepts the inline form ("PING\r\n") and
// returns it as an Array of BulkStrings. Blank inline lines are skipped.
func (r *Reader) ReadRequest() (Value, error) {
	for {
		b, err := r.br.Peek(1)
		if err != nil {
			return nil, err
		}
		if isMarker(b[0]) {
			return r.readValue(0)
		}

		line, err := r.readLine()
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, fmt.Errorf("%w: unterminated inline command", ErrProtocol)
			}
			return nil, err
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		out := make(Array, 0, len(fields))
		for _, f := range fields {
			out = append(out, BulkString(f))
		}
		return out, nil
	}
}

func isMarker(c byte) bool {
	switch c {
	case '+', '-', ':', '$', '*', '_', '#', ',':
		return true
	}
	return false
}

func (r *Reader) readValue(depth int) (Value, error) {
	if depth > MaxDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d", ErrLimitExceeded, MaxDepth)
	}

	marker, err := r.br.ReadByte()
	if err != nil {
		if depth > 0 && err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	switch marker {
	case '+':
		line, err := r.readLine()
		if err != nil {
			return nil, err
		}
		return SimpleString(line), nil
	case '-':
		line, err := r.readLine()
		if err != nil {
			return nil, err
		}
		return SimpleError(line), nil
	case ':':
		line, err := r.readLine()
		if err != nil {
			return nil, err
		}
		n, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid integer %q", ErrProtocol, line)
		}
		return Integer(n), nil
	case '$':
		return r.readBulk()
	case '*':
		return r.readArray(depth)
	case '_':
		if _, err := r.readLine(); err != nil {
			return nil, err
		}
		return Null{}, nil
	case '#':
		line, err := r.readLine()
		if err != nil {
			return nil, err
		}
		switch line {
		case "t":
			return Boolean(true), nil
		case "f":
			return Boolean(false), nil
		}
		return nil, fmt.Errorf("%w: invalid boolean %q", ErrProtocol, line)
	case ',':
		line, err := r.readLine()
		if err != nil {
			return nil, err
		}
		f, err := parseDouble(line)
		if err != nil {
			return nil, err
		}
		return Double(f), nil
	default:
		return nil, fmt.Errorf("%w: unexpected type marker %q", ErrProtocol, marker)
	}
}

func (r *Reader) readBulk() (Value, error) {
	line, err := r.readLine()
	if err != nil {
		return nil, err
	}
	n, null, err := parseLength(line, "bulk")
	if err != nil {
		return nil, err
	}
	if null {
		return Null{}, nil
	}
	if n > MaxBulkLen {
		return nil, fmt.Errorf("%w: bulk length %d exceeds limit %d", ErrLimitExceeded, n, MaxBulkLen)
	}

	var buf bytes.Buffer
	buf.Grow(min(n+2, bulkPrealloc))
	if _, err := io.CopyN(&buf, r.br, int64(n+2)); err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	b := buf.Bytes()
	if !bytes.HasSuffix(b, crlf) {
		return nil, fmt.Errorf("%w: invalid bulk terminator", ErrProtocol)
	}
	return BulkString(b[:n]), nil
}

func (r *Reader) readArray(depth int) (Value, error) {
	line, err := r.readLine()
	if err != nil {
		return nil, err
	}
	n, null, err := parseLength(line, "array")
	if err != nil {
		return nil, err
	}
	if null {
		return Null{}, nil
	}
	if n > MaxArrayLen {
		return nil, fmt.Errorf("%w: array length %d exceeds limit %d", ErrLimitExceeded, n, MaxArrayLen)
	}

	out := make(Array, 0, min(n, 1024))
	for i := 0; i < n; i++ {
		v, err := r.readValue(depth + 1)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// readLine reads up to and including CRLF and returns the line without it.
func (r *Reader) readLine() (string, error) {
	var buf []byte
	for {
		frag, err := r.br.ReadSlice('\n')
		if err == nil {
			buf = append(buf, frag...)
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			buf = append(buf, frag...)
			if len(buf) > MaxLineLen {
				return "", fmt.Errorf("%w: line length exceeds limit %d", ErrLimitExceeded, MaxLineLen)
			}
			continue
		}
		if err == io.EOF {
			return "", io.ErrUnexpectedEOF
		}
		return "", err
	}

	if len(buf) > MaxLineLen+2 {
		return "", fmt.Errorf("%w: line length exceeds limit %d", ErrLimitExceeded, MaxLineLen)
	}
	if len(buf) < 2 || buf[len(buf)-2] != '\r' {
		return "", fmt.Errorf("%w: missing CRLF", ErrProtocol)
	}
	return string(buf[:len(buf)-2]), nil
}

// parseLength parses a bulk or array header. "-1" means null.
func parseLength(line, kind string) (n int, null bool, err error) {
	if line == "-1" {
		return 0, true, nil
	}
	if line == "" || line[0] < '0' || line[0] > '9' {
		return 0, false, fmt.Errorf("%w: invalid %s length %q", ErrProtocol, kind, line)
	}
	n, err = strconv.Atoi(line)
	if err != nil {
		return 0, false, fmt.Errorf("%w: invalid %s length %q", ErrProtocol, kind, line)
	}
	return n, false, nil
}

func parseDouble(line string) (float64, error) {
	f, err := strconv.ParseFloat(line, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid double %q", ErrProtocol, line)
	}
	return f, nil
}
