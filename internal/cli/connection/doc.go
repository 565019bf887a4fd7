// Package connection holds the respkv-cli client side of the RESP protocol.
//
// A Client owns one TCP connection and issues one command at a time:
// the arguments go out as an array of bulk strings and exactly one reply
// value is read back.
package connection
