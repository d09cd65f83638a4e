package utils

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

const (
	OptionNone byte = 0x00
	OptionSome byte = 0x01
)

var ErrInvalidOption = errors.New("invalid option tag")

func WriteByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

func ReadByte(r io.Reader) (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, errors.Wrap(err, "read byte")
	}
	return buf[0], nil
}

// WriteOption writes the presence tag of an optional value.
func WriteOption(w io.Writer, present bool) error {
	if present {
		return WriteByte(w, OptionSome)
	}
	return WriteByte(w, OptionNone)
}

// ReadOption reads the presence tag of an optional value.
func ReadOption(r io.Reader) (bool, error) {
	b, err := ReadByte(r)
	if err != nil {
		return false, err
	}
	switch b {
	case OptionNone:
		return false, nil
	case OptionSome:
		return true, nil
	default:
		return false, errors.Wrapf(ErrInvalidOption, "%#x", b)
	}
}

func WriteUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func ReadUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, errors.Wrap(err, "read u32")
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func WriteUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func ReadUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, errors.Wrap(err, "read u64")
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}
