package command

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/yndnr/respkv-go/pkg/resp"
)

// OptPX is the SET option carrying a millisecond time-to-live.
const OptPX = "PX"

// maxPX keeps now+PX representable as a time.Duration.
const maxPX = math.MaxInt64 / int64(time.Millisecond)

var (
	// ErrInvalidRequest is returned when the request is not a non-empty array.
	ErrInvalidRequest = errors.New("command: invalid request")

	// ErrArgument is wrapped by every *ArgumentError.
	ErrArgument = errors.New("command: invalid arguments")
)

// ArgumentError reports a command whose arguments are missing, surplus or
// malformed. Its message follows Redis wording and is sent to the client
// after an "ERR " prefix.
type ArgumentError struct {
	Command string
	Reason  string
}

func (e *ArgumentError) Error() string {
	return e.Reason
}

func (e *ArgumentError) Unwrap() error {
	return ErrArgument
}

func wrongArity(cmd string) *ArgumentError {
	return &ArgumentError{
		Command: cmd,
		Reason:  "wrong number of arguments for '" + strings.ToLower(cmd) + "' command",
	}
}

func syntaxError(cmd string) *ArgumentError {
	return &ArgumentError{Command: cmd, Reason: "syntax error"}
}

// Parse converts a decoded request into a Command.
//
// Unknown command names yield NotImplemented with a nil error.
func Parse(v resp.Value) (Command, error) {
	arr, ok := v.(resp.Array)
	if !ok {
		return nil, fmt.Errorf("%w: expected array, got %T", ErrInvalidRequest, v)
	}
	if len(arr) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrInvalidRequest)
	}

	raw, ok := resp.Text(arr[0])
	if !ok {
		return nil, fmt.Errorf("%w: command name must be a string", ErrInvalidRequest)
	}
	name := normalizeCommandName(raw)
	a := args{cmd: name, items: arr}

	switch name {
	case "PING":
		return Ping{}, nil
	case "ECHO":
		return parseEcho(a)
	case "SET":
		return parseSet(a)
	case "GET":
		return parseGet(a)
	case "CONFIG":
		return parseConfig(a)
	case "KEYS":
		return parseKeys(a)
	default:
		return NotImplemented{Command: raw}, nil
	}
}

func parseEcho(a args) (Command, error) {
	if err := a.exact(2); err != nil {
		return nil, err
	}
	msg, err := a.bytes(1)
	if err != nil {
		return nil, err
	}
	return Echo{Message: msg}, nil
}

func parseGet(a args) (Command, error) {
	if err := a.exact(2); err != nil {
		return nil, err
	}
	key, err := a.text(1)
	if err != nil {
		return nil, err
	}
	return Get{Key: key}, nil
}

func parseKeys(a args) (Command, error) {
	if err := a.exact(2); err != nil {
		return nil, err
	}
	pattern, err := a.text(1)
	if err != nil {
		return nil, err
	}
	return Keys{Pattern: pattern}, nil
}

func parseConfig(a args) (Command, error) {
	sub, err := a.text(1)
	if err != nil {
		return nil, err
	}
	if normalizeCommandName(sub) != "GET" {
		return NotImplemented{Command: "CONFIG " + sub}, nil
	}
	a.cmd = "CONFIG|GET"
	if err := a.exact(3); err != nil {
		return nil, err
	}
	key, err := a.text(2)
	if err != nil {
		return nil, err
	}
	return ConfigGet{Key: key}, nil
}

func parseSet(a args) (Command, error) {
	key, err := a.text(1)
	if err != nil {
		return nil, err
	}
	value, err := a.bytes(2)
	if err != nil {
		return nil, err
	}

	cmd := Set{Key: key, Value: value}
	for i := 3; i < a.len(); i += 2 {
		raw, err := a.text(i)
		if err != nil {
			return nil, err
		}
		name := normalizeCommandName(raw)
		switch name {
		case OptPX:
			if _, dup := cmd.Option(OptPX); dup {
				return nil, syntaxError(a.cmd)
			}
			if i+1 >= a.len() {
				return nil, syntaxError(a.cmd)
			}
			val, err := a.text(i + 1)
			if err != nil {
				return nil, err
			}
			if err := validatePX(val); err != nil {
				return nil, err
			}
			cmd.Options = append(cmd.Options, Option{Name: name, Value: &val})
		default:
			return nil, syntaxError(a.cmd)
		}
	}
	return cmd, nil
}

func validatePX(val string) error {
	ms, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return &ArgumentError{Command: "SET", Reason: "value is not an integer or out of range"}
	}
	if ms <= 0 || ms > maxPX {
		return &ArgumentError{Command: "SET", Reason: "invalid expire time in 'set' command"}
	}
	return nil
}

// args gives bounds-checked access to request arguments.
type args struct {
	cmd   string
	items resp.Array
}

func (a args) len() int {
	return len(a.items)
}

func (a args) exact(n int) error {
	if len(a.items) != n {
		return wrongArity(a.cmd)
	}
	return nil
}

func (a args) text(i int) (string, error) {
	if i < 0 || i >= len(a.items) {
		return "", wrongArity(a.cmd)
	}
	s, ok := resp.Text(a.items[i])
	if !ok {
		return "", &ArgumentError{Command: a.cmd, Reason: fmt.Sprintf("argument %d must be a string", i)}
	}
	return s, nil
}

func (a args) bytes(i int) ([]byte, error) {
	if i >= 0 && i < len(a.items) {
		if b, ok := a.items[i].(resp.BulkString); ok {
			return bytes.Clone(b), nil
		}
	}
	s, err := a.text(i)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

func normalizeCommandName(s string) string {
	if s == "" {
		return ""
	}
	// Uppercase ASCII without allocating for already uppercased tokens.
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		return strings.ToUpper(s)
	}
	return s
}
