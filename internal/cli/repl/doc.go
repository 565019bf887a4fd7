// Package repl provides the interactive mode of respkv-cli.
//
//   - repl.go: read a line, split it into arguments, send it, print the reply
//   - split.go: redis-cli style argument splitting with quotes and escapes
//   - completer.go: command name completion
//   - history.go: command history persistence
package repl
