// Package main provides the entry point for respkv-cli.
//
// Usage:
//
//	respkv-cli [-s host:port] [-o text|raw|json|yaml] [command [arg ...]]
//	respkv-cli set greeting "hello world"
//	respkv-cli -o json config get dir
//
// Without a command the CLI starts an interactive session.
package main
