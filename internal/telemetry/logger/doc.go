// Package logger provides structured logging for respkv.
//
//   - logger.go: slog handler construction and the dynamic level
//   - context.go: Logger propagation and connection IDs
//   - clip.go: Truncation of client-supplied payloads in log attributes
package logger
