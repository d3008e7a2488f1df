package types

import (
	"encoding/binary"
	"strconv"

	"github.com/pkg/errors"
)

const MaxUint24 = 1<<24 - 1

var ErrOverflow = errors.New("value doesn't fit in 24 bits")

// Uint24 is an unsigned 24-bit integer stored in network byte order.
type Uint24 struct{ data [3]uint8 }

// NOTE: This truncates most significant byte from u32.
func NewUint24(u32 uint32) Uint24 {
	return Uint24{data: [3]uint8{
		uint8(u32 >> 16),
		uint8(u32 >> 8),
		uint8(u32),
	}}
}

// CheckedUint24 is NewUint24 without silent truncation.
func CheckedUint24(n int) (Uint24, error) {
	if n < 0 || n > MaxUint24 {
		return Uint24{}, errors.Wrapf(ErrOverflow, "%d", n)
	}
	return NewUint24(uint32(n)), nil
}

func Uint24From(b [3]uint8) Uint24 { return Uint24{data: b} }

func (u24 Uint24) Raw() [3]uint8 { return u24.data }

func (u24 Uint24) String() string {
	return strconv.FormatUint(uint64(u24.Uint32()), 10)
}

func (u24 Uint24) Uint32() uint32 {
	return binary.BigEndian.Uint32([]byte{0, u24.data[0], u24.data[1], u24.data[2]})
}
