// Package resp implements the Redis serialization protocol (RESP).
//
// Values are modelled as a closed set of Go types implementing Value:
//
//   - SimpleString, SimpleError, Integer, BulkString, Array (RESP2)
//   - Null, Boolean, Double (RESP3 subset)
//
// Array is the only recursive type. Decode parses a buffer holding exactly
// one value; Reader parses a stream of values so pipelined and fragmented
// input both work. Encode and Writer produce the wire form.
//
// The package has no dependencies outside the standard library so that
// both the server and the command-line client can share it.
package resp
