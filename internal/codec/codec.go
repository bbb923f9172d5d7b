// Package codec owns fixed-layout message (de)serialization.
//
// Ownership boundary:
// - one little-endian, declaration-order encoding per payload type
// - exact-size enforcement on both encode and decode
//
// The encoding is encoding/binary's fixed representation, so two
// independently compiled processes agree on the bytes as long as they share
// the payload struct declaration.
package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrNotFixedSize = errors.New("codec: payload type has no fixed size")
	ErrSizeMismatch = errors.New("codec: buffer size disagrees with payload size")
)

// Codec binds one payload type to its fixed wire size.
type Codec[T any] struct {
	size int
}

// For builds the codec for T, rejecting types without a fixed binary
// layout (slices, strings, maps, pointers, ints of platform-dependent
// width).
func For[T any]() (Codec[T], error) {
	var zero T
	size := binary.Size(zero)
	if size <= 0 {
		return Codec[T]{}, fmt.Errorf("%w: %T", ErrNotFixedSize, zero)
	}
	return Codec[T]{size: size}, nil
}

// Size reports the exact encoded size of T in bytes.
func (c Codec[T]) Size() int { return c.size }

// Encode serializes v into a freshly allocated buffer of exactly Size bytes.
func (c Codec[T]) Encode(v T) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, c.size))
	if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
		return nil, fmt.Errorf("codec: encode %T: %w", v, err)
	}
	return buf.Bytes(), nil
}

// EncodeTo serializes v into dst, which must be exactly Size bytes.
func (c Codec[T]) EncodeTo(v T, dst []byte) error {
	if len(dst) != c.size {
		return fmt.Errorf("%w: dst is %d bytes, payload is %d", ErrSizeMismatch, len(dst), c.size)
	}
	enc, err := c.Encode(v)
	if err != nil {
		return err
	}
	copy(dst, enc)
	return nil
}

// Decode deserializes a buffer of exactly Size bytes back into a T.
// A wrong-sized buffer is an error, never a best-effort decode.
func (c Codec[T]) Decode(buf []byte) (T, error) {
	var v T
	if len(buf) != c.size {
		return v, fmt.Errorf("%w: buffer is %d bytes, payload is %d", ErrSizeMismatch, len(buf), c.size)
	}
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, &v); err != nil {
		return v, fmt.Errorf("codec: decode %T: %w", v, err)
	}
	return v, nil
}
