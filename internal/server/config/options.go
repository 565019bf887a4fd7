package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
)

// Startup option names, as accepted on the command line and served by
// CONFIG GET.
const (
	OptionDir        = "dir"
	OptionDBFilename = "dbfilename"
)

// ErrUnknownOption is returned for an option name other than dir or dbfilename.
var ErrUnknownOption = errors.New("config: unknown option")

// ApplyOptions sets startup options by name.
func ApplyOptions(cfg *ServerConfig, opts map[string]string) error {
	names := make([]string, 0, len(opts))
	for name := range opts {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		switch name {
		case OptionDir:
			cfg.Store.Dir = opts[name]
		case OptionDBFilename:
			cfg.Store.DBFilename = opts[name]
		default:
			return fmt.Errorf("%w: %q", ErrUnknownOption, name)
		}
	}
	return nil
}

// StoreOptions returns the read-only option table for the store actor.
// Unset options are omitted.
func StoreOptions(cfg *ServerConfig) map[string]string {
	out := make(map[string]string, 2)
	if cfg.Store.Dir != "" {
		out[OptionDir] = cfg.Store.Dir
	}
	if cfg.Store.DBFilename != "" {
		out[OptionDBFilename] = cfg.Store.DBFilename
	}
	return out
}

// SnapshotPath returns the snapshot file location, or "" when no
// dbfilename is configured. A relative dbfilename without dir resolves
// against the working directory.
func SnapshotPath(cfg *ServerConfig) string {
	if cfg.Store.DBFilename == "" {
		return ""
	}
	return filepath.Join(cfg.Store.Dir, cfg.Store.DBFilename)
}
