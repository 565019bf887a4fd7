// Package command turns decoded RESP requests into typed commands.
//
// Parse accepts the top-level Array sent by a client and returns one of
// the Command implementations in this package. Command names match
// case-insensitively; names outside the supported table become
// NotImplemented rather than an error. Malformed arguments produce an
// *ArgumentError and never panic.
package command
