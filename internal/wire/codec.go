// Package wire implements the canonical binary encoding used for signed
// payloads and ETP frames: integer keys are written big-endian, byte
// payloads are length-prefixed, and decoding never tolerates trailing or
// unknown bytes. This is deliberately not encoding/gob or protobuf: both
// accept schema drift silently, and the spec requires deny-unknown-fields
// determinism so a signature always covers exactly one encoding of a value.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// ErrTrailingData is returned when a Decoder finishes reading a value but
// bytes remain in the buffer.
var ErrTrailingData = errors.New("wire: trailing data after decode")

// Encoder accumulates a canonical big-endian encoding.
type Encoder struct {
	buf bytes.Buffer
}

// NewEncoder returns an empty encoder.
func NewEncoder() *Encoder { return &Encoder{} }

// Bytes returns the accumulated encoding.
func (e *Encoder) Bytes() []byte { return e.buf.Bytes() }

// PutUint8 writes a single byte.
func (e *Encoder) PutUint8(v uint8) { e.buf.WriteByte(v) }

// PutUint32 writes a uint32, big-endian.
func (e *Encoder) PutUint32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	e.buf.Write(tmp[:])
}

// PutUint64 writes a uint64, big-endian.
func (e *Encoder) PutUint64(v uint64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	e.buf.Write(tmp[:])
}

// PutInt64 writes a signed 64-bit integer, big-endian.
func (e *Encoder) PutInt64(v int64) { e.PutUint64(uint64(v)) }

// PutBytes writes a length-prefixed byte slice (length is a big-endian uint32).
func (e *Encoder) PutBytes(b []byte) {
	e.PutUint32(uint32(len(b)))
	e.buf.Write(b)
}

// PutFixed writes a fixed-size array verbatim, with no length prefix.
func (e *Encoder) PutFixed(b []byte) { e.buf.Write(b) }

// PutString writes a length-prefixed UTF-8 string.
func (e *Encoder) PutString(s string) { e.PutBytes([]byte(s)) }

// Decoder reads a canonical big-endian encoding, failing closed on anything
// that doesn't match exactly what was written.
type Decoder struct {
	r *bytes.Reader
}

// NewDecoder wraps a byte slice for sequential field decoding.
func NewDecoder(data []byte) *Decoder { return &Decoder{r: bytes.NewReader(data)} }

// Uint8 reads a single byte.
func (d *Decoder) Uint8() (uint8, error) {
	b, err := d.r.ReadByte()
	return b, err
}

// Uint32 reads a big-endian uint32.
func (d *Decoder) Uint32() (uint32, error) {
	var tmp [4]byte
	if _, err := io.ReadFull(d.r, tmp[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(tmp[:]), nil
}

// Uint64 reads a big-endian uint64.
func (d *Decoder) Uint64() (uint64, error) {
	var tmp [8]byte
	if _, err := io.ReadFull(d.r, tmp[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(tmp[:]), nil
}

// Int64 reads a signed 64-bit integer.
func (d *Decoder) Int64() (int64, error) {
	v, err := d.Uint64()
	return int64(v), err
}

// Bytes reads a length-prefixed byte slice.
func (d *Decoder) Bytes() ([]byte, error) {
	n, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Fixed reads exactly n bytes with no length prefix.
func (d *Decoder) Fixed(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// String reads a length-prefixed UTF-8 string.
func (d *Decoder) String() (string, error) {
	b, err := d.Bytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Done fails the decode if any bytes remain unconsumed, enforcing
// deny-unknown-fields.
func (d *Decoder) Done() error {
	if d.r.Len() != 0 {
		return ErrTrailingData
	}
	return nil
}

// Marshaler is implemented by every wire-encodable type.
type Marshaler interface {
	MarshalWire(e *Encoder)
}

// Unmarshaler is implemented by every wire-decodable type.
type Unmarshaler interface {
	UnmarshalWire(d *Decoder) error
}

// Encode runs m's MarshalWire into a fresh buffer.
func Encode(m Marshaler) []byte {
	e := NewEncoder()
	m.MarshalWire(e)
	return e.Bytes()
}

// Decode runs u's UnmarshalWire over data and enforces no trailing bytes.
func Decode(data []byte, u Unmarshaler) error {
	d := NewDecoder(data)
	if err := u.UnmarshalWire(d); err != nil {
		return err
	}
	return d.Done()
}
