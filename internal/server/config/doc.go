// Package config provides server configuration for respkv.
//
// This package defines the server configuration structure and validation:
//
//   - spec.go: ServerConfig struct definition
//   - default.go: Default configuration values
//   - options.go: Redis-style startup options (dir, dbfilename)
//   - verify.go: Validation of addresses, limits and log settings
//   - summary.go: Startup log attributes
//
// Configuration is loaded via internal/infra/confloader and supports
// multiple sources: files, environment variables, and flags.
package config
