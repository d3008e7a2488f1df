package util

import (
	"bytes"

	"github.com/pkg/errors"
)

var ErrVectorShort = errors.New("vector is short")

// Reference: https://datatracker.ietf.org/doc/html/rfc8446#section-3.4
type VectorConv interface {
	// FromBytes returns the object itself that is filled from bytes.
	FromBytes(b []byte) (out VectorConv, rest []byte, err error)
	// Bytes returns raw bytes containing its data.
	Bytes() []byte
}

func FromVector[T VectorConv](lenSize uint, b []byte, allowRemain bool) (_ []T, rest []byte, err error) {
	body, rest, err := FromVectorOpaque(lenSize, b, allowRemain)
	if err != nil {
		return nil, nil, err
	}

	dst := make([]T, 0)
	for len(body) > 0 {
		var tmp T
		out, tmpRest, err := tmp.FromBytes(body)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "reading #%d element", len(dst))
		}

		dst = append(dst, out.(T))
		body = tmpRest
	}

	return dst, rest, nil
}

func FromVectorOpaque(lenSize uint, b []byte, allowRemain bool) (opaque []byte, rest []byte, err error) {
	length, rest, err := getLength(lenSize, b)
	if err != nil {
		return nil, nil, err
	}

	if !allowRemain && uint(len(rest)) != length {
		return nil, nil, errors.New("unexpected remaining bytes")
	}

	return rest[:length], rest[length:], nil
}

func getLength(size uint, b []byte) (length uint, rest []byte, err error) {
	if uint(len(b)) < size {
		return 0, nil, errors.Wrap(ErrVectorShort, "getting length")
	}

	for _, v := range b[:size] {
		length = length<<8 | uint(v)
	}
	rest = b[size:]

	if uint(len(rest)) < length {
		return 0, nil, errors.Wrap(ErrVectorShort, "getting data")
	}

	return length, rest, nil
}

func ToVectorOpaque(lenSize uint, data []byte) []byte {
	buf := bytes.NewBuffer(nil)

	buf.Write(ToBigEndianBytes(uint(len(data)), uint8(lenSize)))
	buf.Write(data)

	return buf.Bytes()
}

func ToBigEndianBytes(n uint, byteLen uint8) []byte {
	if byteLen > 8 {
		panic("cannot make more than 8 bytes")
	}

	b := make([]byte, byteLen)
	for i := range b {
		shift := uint(8 * (len(b) - 1 - i))
		b[i] = uint8(n >> shift)
	}

	return b
}
