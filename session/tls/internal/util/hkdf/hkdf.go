// Package hkdf implements the tls 1.3 key schedule primitives on top of
// golang.org/x/crypto/hkdf.
package hkdf

import (
	"io"
	"psk-resumption/session/tls/common/ciphersuite"
	"psk-resumption/session/tls/internal/util"

	"github.com/pkg/errors"
	"golang.org/x/crypto/hkdf"
)

var ErrHashUnavailable = errors.New("hash function is not available")

// Extract treats empty secret or salt as a string of zeros of hash length.
func Extract(suite ciphersuite.Suite, secret []byte, salt []byte) ([]byte, error) {
	if !suite.Hash().Available() {
		return nil, errors.Wrapf(ErrHashUnavailable, "suite %s", suite.Name())
	}

	zeros := make([]byte, suite.Hash().Size())
	if len(secret) == 0 {
		secret = zeros
	}
	if len(salt) == 0 {
		salt = zeros
	}

	return hkdf.Extract(suite.Hash().New, secret, salt), nil
}

// Reference: https://datatracker.ietf.org/doc/html/rfc8446#section-7.1
type hkdfLabel struct {
	length  uint16
	label   []byte
	context []byte
}

func (l hkdfLabel) marshal() []byte {
	b := util.ToBigEndianBytes(uint(l.length), 2)
	b = append(b, util.ToVectorOpaque(1, l.label)...)
	b = append(b, util.ToVectorOpaque(1, l.context)...)
	return b
}

func ExpandLabel(
	suite ciphersuite.Suite,
	secret []byte,
	label, context string,
	length int,
) ([]byte, error) {
	if !suite.Hash().Available() {
		return nil, errors.Wrapf(ErrHashUnavailable, "suite %s", suite.Name())
	}

	info := hkdfLabel{
		length:  uint16(length),
		label:   []byte("tls13 " + label),
		context: []byte(context),
	}

	out := make([]byte, length)
	if _, err := io.ReadFull(hkdf.Expand(suite.Hash().New, secret, info.marshal()), out); err != nil {
		return nil, errors.Wrap(err, "expanding via hkdf")
	}

	return out, nil
}

func DeriveSecret(
	suite ciphersuite.Suite,
	secret []byte,
	label string,
	transcriptHash []byte,
) ([]byte, error) {
	return ExpandLabel(
		suite, secret, label, string(transcriptHash), suite.Hash().Size(),
	)
}
