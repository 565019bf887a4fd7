// Package redisserver is the RESP connection gateway.
//
// Each client connection runs one goroutine that decodes requests with
// pkg/resp, turns them into commands, hands each command and a
// single-use reply slot to the store actor, and writes the reply back.
// Replies to pipelined requests are buffered and flushed once no further
// request bytes are waiting.
//
// QUIT is answered here and never reaches the store. Malformed framing
// is answered with an error and closes the connection; argument errors
// are answered without closing it.
package redisserver
