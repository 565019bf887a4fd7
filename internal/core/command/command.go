package command

import (
	"strconv"
	"time"
)

// Command is a parsed client request.
//
// The set of implementations is closed.
type Command interface {
	// Name returns the canonical upper-case command name.
	Name() string
	command()
}

// Ping checks liveness.
type Ping struct{}

// Echo returns Message unchanged.
type Echo struct {
	Message []byte
}

// Set stores Value under Key.
type Set struct {
	Key     string
	Value   []byte
	Options []Option
}

// Option is a trailing SET modifier. Value is nil for flag-style options.
type Option struct {
	Name  string
	Value *string
}

// Get reads the value stored under Key.
type Get struct {
	Key string
}

// ConfigGet reads one server configuration option.
type ConfigGet struct {
	Key string
}

// Keys lists the keyspace. Pattern is accepted but not applied.
type Keys struct {
	Pattern string
}

// NotImplemented is any command outside the supported table.
type NotImplemented struct {
	Command string
}

func (Ping) Name() string           { return "PING" }
func (Echo) Name() string           { return "ECHO" }
func (Set) Name() string            { return "SET" }
func (Get) Name() string            { return "GET" }
func (ConfigGet) Name() string      { return "CONFIG GET" }
func (Keys) Name() string           { return "KEYS" }
func (NotImplemented) Name() string { return "UNKNOWN" }

func (Ping) command()           {}
func (Echo) command()           {}
func (Set) command()            {}
func (Get) command()            {}
func (ConfigGet) command()      {}
func (Keys) command()           {}
func (NotImplemented) command() {}

// Option returns the first option named name (upper case).
func (s Set) Option(name string) (Option, bool) {
	for _, o := range s.Options {
		if o.Name == name {
			return o, true
		}
	}
	return Option{}, false
}

// TTL returns the PX expiry of the command, if any.
// Parse guarantees the option value is a positive integer.
func (s Set) TTL() (time.Duration, bool) {
	o, ok := s.Option(OptPX)
	if !ok || o.Value == nil {
		return 0, false
	}
	ms, err := strconv.ParseInt(*o.Value, 10, 64)
	if err != nil || ms <= 0 {
		return 0, false
	}
	return time.Duration(ms) * time.Millisecond, true
}
