// Package bin contains utilities for dealing with binary representations.
//
// The Wayland wire protocol uses the host's byte order for all
// integers, so everything here uses binary.NativeEndian.
package bin

import (
	"encoding/binary"
	"io"
)

// Read reads a single 32-bit word from r.
func Read[T ~int32 | ~uint32](r io.Reader) (T, error) {
	var data [4]byte
	_, err := io.ReadFull(r, data[:])
	if err != nil {
		return 0, err
	}

	return T(binary.NativeEndian.Uint32(data[:])), nil
}

// Write writes v to w as a single 32-bit word.
func Write[T ~int32 | ~uint32](w io.Writer, v T) error {
	var data [4]byte
	binary.NativeEndian.PutUint32(data[:], uint32(v))
	n, err := w.Write(data[:])
	if (err == nil) && (n < len(data)) {
		return io.ErrShortWrite
	}
	return err
}
