package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type u16 uint16

func (u u16) Bytes() []byte { return ToBigEndianBytes(uint(u), 2) }

func (u16) FromBytes(b []byte) (out VectorConv, rest []byte, err error) {
	if len(b) < 2 {
		return nil, nil, ErrVectorShort
	}
	return u16(uint16(b[0])<<8 | uint16(b[1])), b[2:], nil
}

func TestToBigEndianBytes(t *testing.T) {
	assert.Equal(t, []byte{0x01, 0x02}, ToBigEndianBytes(0x0102, 2))
	assert.Equal(t, []byte{0x00, 0x00, 0x03, 0xe8}, ToBigEndianBytes(1000, 4))
	assert.Panics(t, func() { ToBigEndianBytes(0, 9) })
}

func TestFromVector(t *testing.T) {
	raw := ToVectorOpaque(1, append(u16(0x0304).Bytes(), u16(0x0303).Bytes()...))
	assert.Equal(t, []byte{0x04, 0x03, 0x04, 0x03, 0x03}, raw)

	got, rest, err := FromVector[u16](1, raw, false)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, []u16{0x0304, 0x0303}, got)

	_, _, err = FromVector[u16](1, []byte{0x03, 0x03, 0x04, 0x03}, false)
	assert.ErrorIs(t, err, ErrVectorShort)
}

func TestFromVectorOpaque(t *testing.T) {
	testcases := []struct {
		desc        string
		input       []byte
		allowRemain bool
		opaque      []byte
		rest        []byte
		wantErr     bool
	}{
		{desc: "exact", input: []byte{0x00, 0x02, 0xaa, 0xbb}, opaque: []byte{0xaa, 0xbb}, rest: []byte{}},
		{desc: "remain allowed", input: []byte{0x00, 0x01, 0xaa, 0xbb}, allowRemain: true, opaque: []byte{0xaa}, rest: []byte{0xbb}},
		{desc: "remain not allowed", input: []byte{0x00, 0x01, 0xaa, 0xbb}, wantErr: true},
		{desc: "short data", input: []byte{0x00, 0x03, 0xaa}, wantErr: true},
		{desc: "short length", input: []byte{0x00}, wantErr: true},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			opaque, rest, err := FromVectorOpaque(2, tc.input, tc.allowRemain)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.opaque, opaque)
			assert.Equal(t, tc.rest, rest)
		})
	}
}
