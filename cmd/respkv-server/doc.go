// Package main provides the entry point for respkv-server.
//
// respkv-server is a Redis wire compatible in-memory key-value server.
// At startup it recovers the keyspace from an RDB snapshot when one is
// configured, then serves RESP clients until SIGINT or SIGTERM.
//
// Usage:
//
//	respkv-server [flags] [name value ...]
//	respkv-server --dir /var/lib/respkv --dbfilename dump.rdb
//	respkv-server --config /etc/respkv/config.yaml --metrics-addr :9121
//
// Trailing name/value pairs set startup options the way redis-server
// accepts them; only dir and dbfilename are recognized.
package main
