package repl

import (
	"sort"
	"strings"
)

// Completer provides command completion for the REPL.
type Completer struct {
	commands []string
}

// NewCompleter creates a Completer for the commands respkv understands.
func NewCompleter() *Completer {
	cmds := []string{
		"ping", "echo", "get", "set", "keys", "config", "quit",
		"help", "exit",
	}
	sort.Strings(cmds)
	return &Completer{commands: cmds}
}

// Commands returns the known command names in order.
func (c *Completer) Commands() []string {
	return c.commands
}

// Complete returns completion suggestions for the given prefix.
// Matching ignores case.
func (c *Completer) Complete(prefix string) []string {
	prefix = strings.ToLower(prefix)
	var suggestions []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}
