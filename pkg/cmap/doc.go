// Package cmap provides a concurrent-safe sharded map with string keys.
//
// Keys are spread over a power-of-two number of shards by their murmur3
// hash, each guarded by its own RWMutex. The server uses it as the
// registry of live client connections, which is written on every accept
// and close and read by shutdown and diagnostics.
package cmap
