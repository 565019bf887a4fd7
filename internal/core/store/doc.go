// Package store implements the keyspace actor.
//
// A single goroutine (Run) exclusively owns the keyspace, the expiry table
// and the read-only configuration. Other goroutines reach it only through a
// bounded queue of (command, reply slot) pairs, so every command is applied
// completely before the next one starts and all clients observe one linear
// history of writes.
//
// Expiry is lazy: deadlines are checked when a key is read by GET or
// listed by KEYS. An expired key found this way is removed from both the
// keyspace and the expiry table at that moment.
package store
