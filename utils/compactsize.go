package utils

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// MaxCompactSize bounds lengths read from untrusted input.
const MaxCompactSize = 0x02000000

var ErrNonCanonicalCompactSize = errors.New("non-canonical compact size")

// WriteCompactSize writes n in the variable-length encoding used for vector
// lengths: one byte below 253, otherwise a marker byte followed by 2, 4 or 8
// little-endian bytes.
func WriteCompactSize(w io.Writer, n uint64) error {
	var buf [9]byte
	var size int
	switch {
	case n < 253:
		buf[0] = byte(n)
		size = 1
	case n <= 0xffff:
		buf[0] = 253
		binary.LittleEndian.PutUint16(buf[1:], uint16(n))
		size = 3
	case n <= 0xffffffff:
		buf[0] = 254
		binary.LittleEndian.PutUint32(buf[1:], uint32(n))
		size = 5
	default:
		buf[0] = 255
		binary.LittleEndian.PutUint64(buf[1:], n)
		size = 9
	}
	_, err := w.Write(buf[:size])
	return err
}

// ReadCompactSize reads a length written by WriteCompactSize, rejecting
// non-minimal encodings and values above MaxCompactSize.
func ReadCompactSize(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:1]); err != nil {
		return 0, err
	}
	var n, min uint64
	switch flag := buf[0]; {
	case flag < 253:
		return uint64(flag), nil
	case flag == 253:
		if _, err := io.ReadFull(r, buf[:2]); err != nil {
			return 0, err
		}
		n, min = uint64(binary.LittleEndian.Uint16(buf[:2])), 253
	case flag == 254:
		if _, err := io.ReadFull(r, buf[:4]); err != nil {
			return 0, err
		}
		n, min = uint64(binary.LittleEndian.Uint32(buf[:4])), 0x10000
	default:
		if _, err := io.ReadFull(r, buf[:8]); err != nil {
			return 0, err
		}
		n, min = binary.LittleEndian.Uint64(buf[:8]), 0x100000000
	}
	if n < min {
		return 0, ErrNonCanonicalCompactSize
	}
	if n > MaxCompactSize {
		return 0, errors.Errorf("compact size %d exceeds limit %d", n, MaxCompactSize)
	}
	return n, nil
}
