package rdb

import (
	"encoding/binary"
	"fmt"
	"io"
)

// LengthKind identifies one of the length-encoding sub-formats, selected by
// the top two bits of the first byte.
type LengthKind uint8

const (
	// Len6 (00) holds the length in the low 6 bits of the byte.
	Len6 LengthKind = iota
	// Len14 (01) holds 6 high bits in the first byte and 8 low bits in the next.
	Len14
	// Len32 (10, 0x80) is followed by a 32-bit big-endian length.
	Len32
	// Len64 (10, 0x81) is followed by a 64-bit big-endian length.
	Len64
	// Special (11) marks an encoded string; Value holds the format selector.
	Special
)

func (k LengthKind) String() string {
	switch k {
	case Len6:
		return "len6"
	case Len14:
		return "len14"
	case Len32:
		return "len32"
	case Len64:
		return "len64"
	case Special:
		return "special"
	default:
		return fmt.Sprintf("LengthKind(%d)", uint8(k))
	}
}

// Special string formats.
const (
	EncInt8  = 0
	EncInt16 = 1
	EncInt32 = 2
	EncLZF   = 3
)

// Length is a decoded length prefix.
type Length struct {
	Kind  LengthKind
	Value uint64
}

// ReadLength decodes one length prefix starting at the reader's current
// position.
func ReadLength(r io.ByteReader) (Length, error) {
	first, err := readByte(r)
	if err != nil {
		return Length{}, err
	}

	switch first >> 6 {
	case 0b00:
		return Length{Kind: Len6, Value: uint64(first & 0x3F)}, nil
	case 0b01:
		next, err := readByte(r)
		if err != nil {
			return Length{}, err
		}
		return Length{Kind: Len14, Value: uint64(first&0x3F)<<8 | uint64(next)}, nil
	case 0b10:
		if first == 0x81 {
			var buf [8]byte
			if err := readInto(r, buf[:]); err != nil {
				return Length{}, err
			}
			return Length{Kind: Len64, Value: binary.BigEndian.Uint64(buf[:])}, nil
		}
		var buf [4]byte
		if err := readInto(r, buf[:]); err != nil {
			return Length{}, err
		}
		return Length{Kind: Len32, Value: uint64(binary.BigEndian.Uint32(buf[:]))}, nil
	default:
		return Length{Kind: Special, Value: uint64(first & 0x3F)}, nil
	}
}

// readEncodedInt reads the little-endian integer that follows a Special
// length of format enc, starting at the reader's current position.
func readEncodedInt(r io.ByteReader, enc uint64) (int64, error) {
	switch enc {
	case EncInt8:
		b, err := readByte(r)
		if err != nil {
			return 0, err
		}
		return int64(int8(b)), nil
	case EncInt16:
		var buf [2]byte
		if err := readInto(r, buf[:]); err != nil {
			return 0, err
		}
		return int64(int16(binary.LittleEndian.Uint16(buf[:]))), nil
	case EncInt32:
		var buf [4]byte
		if err := readInto(r, buf[:]); err != nil {
			return 0, err
		}
		return int64(int32(binary.LittleEndian.Uint32(buf[:]))), nil
	case EncLZF:
		return 0, ErrCompressedString
	default:
		return 0, fmt.Errorf("%w: unknown string encoding %d", ErrCorrupt, enc)
	}
}

func readByte(r io.ByteReader) (byte, error) {
	b, err := r.ReadByte()
	if err == io.EOF {
		return 0, ErrTruncated
	}
	return b, err
}

func readInto(r io.ByteReader, buf []byte) error {
	for i := range buf {
		b, err := readByte(r)
		if err != nil {
			return err
		}
		buf[i] = b
	}
	return nil
}
