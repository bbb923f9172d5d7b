package codec

import (
	"bytes"
	"errors"
	"testing"
)

type motorState struct {
	Position float32
	Velocity float32
	Torque   float32
}

type mixedPayload struct {
	Seq    uint64
	Kind   uint16
	Flags  uint8
	_      uint8
	Values [4]int32
}

func TestRoundTrip(t *testing.T) {
	c, err := For[motorState]()
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	if c.Size() != 12 {
		t.Fatalf("size = %d, want 12", c.Size())
	}

	in := motorState{Position: 1.5, Velocity: -0.25, Torque: 0.42}
	enc, err := c.Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(enc) != c.Size() {
		t.Fatalf("encoded %d bytes, want %d", len(enc), c.Size())
	}

	out, err := c.Decode(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != in {
		t.Fatalf("round-trip mismatch: %+v != %+v", out, in)
	}
}

func TestRoundTripBitExact(t *testing.T) {
	c, err := For[mixedPayload]()
	if err != nil {
		t.Fatalf("codec: %v", err)
	}

	in := mixedPayload{Seq: 1 << 40, Kind: 7, Flags: 0x80, Values: [4]int32{-1, 0, 1, 1 << 30}}
	enc, err := c.Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := c.Decode(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	reenc, err := c.Encode(out)
	if err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	if !bytes.Equal(enc, reenc) {
		t.Fatalf("re-encoded bytes differ")
	}
}

func TestDecodeWrongSize(t *testing.T) {
	c, err := For[motorState]()
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	if _, err := c.Decode(make([]byte, c.Size()-1)); !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("short buffer: expected ErrSizeMismatch, got %v", err)
	}
	if _, err := c.Decode(make([]byte, c.Size()+1)); !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("long buffer: expected ErrSizeMismatch, got %v", err)
	}
}

func TestEncodeToWrongSize(t *testing.T) {
	c, err := For[motorState]()
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	if err := c.EncodeTo(motorState{}, make([]byte, 3)); !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("expected ErrSizeMismatch, got %v", err)
	}
}

func TestForRejectsVariableLayout(t *testing.T) {
	type withString struct {
		Name string
	}
	if _, err := For[withString](); !errors.Is(err, ErrNotFixedSize) {
		t.Fatalf("string field: expected ErrNotFixedSize, got %v", err)
	}

	type withSlice struct {
		Data []byte
	}
	if _, err := For[withSlice](); !errors.Is(err, ErrNotFixedSize) {
		t.Fatalf("slice field: expected ErrNotFixedSize, got %v", err)
	}

	if _, err := For[int](); !errors.Is(err, ErrNotFixedSize) {
		t.Fatalf("bare int: expected ErrNotFixedSize, got %v", err)
	}
}
