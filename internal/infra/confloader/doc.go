// Package confloader provides configuration loading mechanism.
//
// This package implements a configuration loader on top of koanf that
// layers several sources over the defaults already held by the target
// struct.
//
// Priority (highest to lowest):
//
//  1. Command-line flags (LoadMap)
//  2. Environment variables (RESPKV_ prefix)
//  3. Configuration file (YAML)
//  4. Default values
//
// Watcher reports edits to the configuration file so that settings which
// can change at runtime are reapplied.
package confloader
