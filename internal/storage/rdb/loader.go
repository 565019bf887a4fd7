package rdb

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Magic is the file signature.
const Magic = "REDIS"

const versionLen = 4

// maxStringLen bounds a single decoded string.
const maxStringLen = 512 * 1024 * 1024

// stringPrealloc caps the buffer reserved up front for a string.
const stringPrealloc = 64 * 1024

const (
	opString    = 0x00
	opAux       = 0xFA
	opResizeDB  = 0xFB
	opExpireMS  = 0xFC
	opExpireSec = 0xFD
	opSelectDB  = 0xFE
	opEOF       = 0xFF
)

// Snapshot is the decoded content of an RDB file.
type Snapshot struct {
	Version int

	// Values maps each key to its string value.
	Values map[string][]byte

	// Expires holds the absolute deadline of keys that carry one.
	Expires map[string]time.Time

	// Aux holds auxiliary metadata fields such as redis-ver.
	Aux map[string]string
}

// Empty returns a snapshot with no keys.
func Empty() *Snapshot {
	return &Snapshot{
		Values:  make(map[string][]byte),
		Expires: make(map[string]time.Time),
		Aux:     make(map[string]string),
	}
}

// Load reads the snapshot at path. A missing file yields an empty snapshot.
func Load(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Empty(), nil
		}
		return nil, fmt.Errorf("rdb: open snapshot: %w", err)
	}
	defer f.Close()

	snap, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("rdb: load %s: %w", path, err)
	}
	return snap, nil
}

// Recover loads the snapshot at path for server startup.
//
// Decoding is all or nothing: on any error the partial result is discarded,
// a warning is logged, and an empty snapshot is returned. An empty path
// means persistence is not configured.
func Recover(path string, logger *slog.Logger) *Snapshot {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		return Empty()
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		logger.Info("no snapshot file, starting with empty keyspace", "path", path)
		return Empty()
	}

	snap, err := Load(path)
	if err != nil {
		logger.Warn("snapshot load aborted, starting with empty keyspace", "path", path, "error", err)
		return Empty()
	}
	logger.Info("snapshot loaded",
		"path", path,
		"version", snap.Version,
		"keys", len(snap.Values),
		"expiring", len(snap.Expires),
	)
	return snap
}

// Decode reads a complete snapshot from r.
func Decode(r io.Reader) (*Snapshot, error) {
	d := &decoder{r: bufio.NewReader(r)}
	snap := Empty()

	version, err := d.readHeader()
	if err != nil {
		return nil, err
	}
	snap.Version = version

	for {
		// Tolerate files that end cleanly at a record boundary without 0xFF.
		if _, err := d.r.Peek(1); err == io.EOF {
			return snap, nil
		}

		offset := d.off
		op, err := d.ReadByte()
		if err != nil {
			return nil, err
		}

		switch op {
		case opEOF:
			// The 8-byte checksum that may follow is not verified.
			return snap, nil
		case opAux:
			key, err := d.readString()
			if err != nil {
				return nil, err
			}
			val, err := d.readString()
			if err != nil {
				return nil, err
			}
			snap.Aux[string(key)] = string(val)
		case opSelectDB:
			if _, err := d.readPlainLength(); err != nil {
				return nil, err
			}
		case opResizeDB:
			if _, err := d.readPlainLength(); err != nil {
				return nil, err
			}
			if _, err := d.readPlainLength(); err != nil {
				return nil, err
			}
		case opExpireMS:
			var buf [8]byte
			if err := readInto(d, buf[:]); err != nil {
				return nil, err
			}
			ms := int64(binary.LittleEndian.Uint64(buf[:]))
			if err := d.readExpiring(snap, time.UnixMilli(ms)); err != nil {
				return nil, err
			}
		case opExpireSec:
			var buf [4]byte
			if err := readInto(d, buf[:]); err != nil {
				return nil, err
			}
			sec := int64(binary.LittleEndian.Uint32(buf[:]))
			if err := d.readExpiring(snap, time.Unix(sec, 0)); err != nil {
				return nil, err
			}
		case opString:
			key, val, err := d.readStringRecord()
			if err != nil {
				return nil, err
			}
			snap.Values[key] = val
			delete(snap.Expires, key)
		default:
			return nil, &UnimplementedOpcodeError{Opcode: op, Offset: offset}
		}
	}
}

type decoder struct {
	r   *bufio.Reader
	off int64
}

func (d *decoder) ReadByte() (byte, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		if err == io.EOF {
			return 0, ErrTruncated
		}
		return 0, err
	}
	d.off++
	return b, nil
}

func (d *decoder) readHeader() (int, error) {
	var hdr [len(Magic) + versionLen]byte
	n, err := io.ReadFull(d.r, hdr[:])
	d.off += int64(n)
	if err != nil {
		if n < len(Magic) {
			return 0, ErrInvalidMagic
		}
		return 0, ErrTruncated
	}
	if string(hdr[:len(Magic)]) != Magic {
		return 0, ErrInvalidMagic
	}

	digits := hdr[len(Magic):]
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidVersion, digits)
		}
	}
	version, _ := strconv.Atoi(string(digits))
	return version, nil
}

// readExpiring reads the string record that follows an expiry opcode.
func (d *decoder) readExpiring(snap *Snapshot, deadline time.Time) error {
	offset := d.off
	typ, err := d.ReadByte()
	if err != nil {
		return err
	}
	if typ != opString {
		return &UnimplementedOpcodeError{Opcode: typ, Offset: offset}
	}
	key, val, err := d.readStringRecord()
	if err != nil {
		return err
	}
	snap.Values[key] = val
	snap.Expires[key] = deadline
	return nil
}

func (d *decoder) readStringRecord() (string, []byte, error) {
	key, err := d.readString()
	if err != nil {
		return "", nil, err
	}
	val, err := d.readString()
	if err != nil {
		return "", nil, err
	}
	return string(key), val, nil
}

// readString reads a length-prefixed or integer-encoded string.
// Encoded integers are returned as their decimal text.
func (d *decoder) readString() ([]byte, error) {
	l, err := ReadLength(d)
	if err != nil {
		return nil, err
	}
	if l.Kind == Special {
		n, err := readEncodedInt(d, l.Value)
		if err != nil {
			return nil, err
		}
		return strconv.AppendInt(nil, n, 10), nil
	}
	if l.Value > maxStringLen {
		return nil, fmt.Errorf("%w: string length %d exceeds limit", ErrCorrupt, l.Value)
	}

	if l.Value == 0 {
		return []byte{}, nil
	}

	// The declared length is untrusted until the bytes arrive.
	var buf bytes.Buffer
	buf.Grow(int(min(l.Value, stringPrealloc)))
	n, err := io.CopyN(&buf, d.r, int64(l.Value))
	d.off += n
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncated
		}
		return nil, err
	}
	return buf.Bytes(), nil
}

// readPlainLength reads a length that must not be an encoded string.
func (d *decoder) readPlainLength() (uint64, error) {
	offset := d.off
	l, err := ReadLength(d)
	if err != nil {
		return 0, err
	}
	if l.Kind == Special {
		return 0, fmt.Errorf("%w: encoded string where length expected at offset %d", ErrCorrupt, offset)
	}
	return l.Value, nil
}
