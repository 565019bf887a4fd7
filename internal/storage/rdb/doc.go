// Package rdb reads Redis RDB snapshot files into key/value and expiry tables.
//
// Only what is needed to recover string records is decoded:
//
//	"REDIS" [version:4 ASCII digits]
//	0xFA aux        <string> <string>
//	0xFE selectdb   <length>
//	0xFB resizedb   <length> <length>
//	0xFC expire-ms  [uint64 LE] 0x00 <string> <string>
//	0xFD expire-s   [uint32 LE] 0x00 <string> <string>
//	0x00 string     <string> <string>
//	0xFF end        (trailing checksum ignored)
//
// Any other opcode stops decoding with *UnimplementedOpcodeError.
// Database numbers are ignored: all records land in one keyspace.
package rdb
