package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type point struct {
	X uint32
	Y int64
	S string
	B []byte
}

func (p point) MarshalWire(e *Encoder) {
	e.PutUint32(p.X)
	e.PutInt64(p.Y)
	e.PutString(p.S)
	e.PutBytes(p.B)
}

func (p *point) UnmarshalWire(d *Decoder) error {
	var err error
	if p.X, err = d.Uint32(); err != nil {
		return err
	}
	if p.Y, err = d.Int64(); err != nil {
		return err
	}
	if p.S, err = d.String(); err != nil {
		return err
	}
	if p.B, err = d.Bytes(); err != nil {
		return err
	}
	return nil
}

func TestRoundTrip(t *testing.T) {
	want := point{X: 42, Y: -7, S: "hello", B: []byte{1, 2, 3}}
	raw := Encode(want)

	var got point
	require.NoError(t, Decode(raw, &got))
	require.Equal(t, want, got)
}

func TestDecodeRejectsTrailingData(t *testing.T) {
	want := point{X: 1, Y: 2, S: "x", B: nil}
	raw := append(Encode(want), 0xFF)

	var got point
	err := Decode(raw, &got)
	require.ErrorIs(t, err, ErrTrailingData)
}

func TestDecodeFailsOnTruncatedInput(t *testing.T) {
	want := point{X: 1, Y: 2, S: "hello world", B: []byte{9}}
	raw := Encode(want)

	var got point
	err := Decode(raw[:len(raw)-2], &got)
	require.Error(t, err)
}

func TestFixedBytesRoundTrip(t *testing.T) {
	e := NewEncoder()
	fixed := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	e.PutFixed(fixed[:])
	e.PutUint8(0x42)

	d := NewDecoder(e.Bytes())
	got, err := d.Fixed(8)
	require.NoError(t, err)
	require.Equal(t, fixed[:], got)

	tail, err := d.Uint8()
	require.NoError(t, err)
	require.Equal(t, uint8(0x42), tail)
	require.NoError(t, d.Done())
}
