package rdb

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMagic is returned when the file does not start with "REDIS".
	ErrInvalidMagic = errors.New("rdb: invalid magic")

	// ErrInvalidVersion is returned when the version is not four ASCII digits.
	ErrInvalidVersion = errors.New("rdb: invalid version")

	// ErrTruncated is returned when the input ends inside a record.
	ErrTruncated = errors.New("rdb: truncated input")

	// ErrCompressedString is returned for LZF-compressed strings.
	ErrCompressedString = errors.New("rdb: compressed strings are not supported")

	// ErrCorrupt is returned for malformed but otherwise decodable input.
	ErrCorrupt = errors.New("rdb: corrupt input")
)

// UnimplementedOpcodeError reports an opcode or value type the loader
// does not decode.
type UnimplementedOpcodeError struct {
	Opcode byte
	Offset int64
}

func (e *UnimplementedOpcodeError) Error() string {
	return fmt.Sprintf("rdb: unimplemented opcode 0x%02X at offset %d", e.Opcode, e.Offset)
}
