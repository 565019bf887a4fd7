// Package command defines the respkv-cli application using urfave/cli/v2.
//
// With arguments, respkv-cli sends them as a single command and prints the
// reply. Without arguments it starts the interactive REPL.
package command
