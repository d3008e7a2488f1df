// Package ticket seals sessions into self-contained PSK identities,
// so the server doesn't need to remember them.
// Reference: https://datatracker.ietf.org/doc/html/rfc5077#section-4
package ticket

import (
	"bytes"
	"crypto/cipher"
	"crypto/rand"
	"io"
	"psk-resumption/session/tls/common/session"

	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/cryptobyte"
)

const (
	NameSize   = 16
	SecretSize = chacha20poly1305.KeySize
)

var (
	ErrUnknownKey      = errors.New("ticket was sealed with an unknown key")
	ErrMalformedTicket = errors.New("malformed ticket")
)

type Key struct {
	Name   [NameSize]byte
	Secret [SecretSize]byte
}

func GenerateKey(r io.Reader) (Key, error) {
	if r == nil {
		r = rand.Reader
	}

	var k Key
	if _, err := io.ReadFull(r, k.Name[:]); err != nil {
		return Key{}, errors.Wrap(err, "reading key name")
	}
	if _, err := io.ReadFull(r, k.Secret[:]); err != nil {
		return Key{}, errors.Wrap(err, "reading key secret")
	}
	return k, nil
}

type sealer struct {
	name [NameSize]byte
	aead cipher.AEAD
}

// Codec seals with its first key and opens with any of them.
//
// Ticket: key name || nonce || sealed session, the key name being
// additional data.
type Codec struct {
	sealers []sealer
	rand    io.Reader
}

func NewCodec(keys ...Key) (*Codec, error) {
	if len(keys) == 0 {
		return nil, errors.New("at least one ticket key is required")
	}

	c := &Codec{rand: rand.Reader}
	for _, k := range keys {
		aead, err := chacha20poly1305.New(k.Secret[:])
		if err != nil {
			return nil, errors.Wrap(err, "creating aead")
		}
		c.sealers = append(c.sealers, sealer{name: k.Name, aead: aead})
	}

	return c, nil
}

func (c *Codec) Seal(sess *session.Session) ([]byte, error) {
	plaintext, err := sess.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "marshaling session")
	}

	s := c.sealers[0]

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return nil, errors.Wrap(err, "generating nonce")
	}

	out := make([]byte, 0, NameSize+len(nonce)+len(plaintext)+s.aead.Overhead())
	out = append(out, s.name[:]...)
	out = append(out, nonce...)

	return s.aead.Seal(out, nonce, plaintext, s.name[:]), nil
}

func (c *Codec) Open(ticket []byte) (*session.Session, error) {
	var name, nonce []byte
	in := cryptobyte.String(ticket)
	if !in.ReadBytes(&name, NameSize) || !in.ReadBytes(&nonce, chacha20poly1305.NonceSize) {
		return nil, errors.Wrap(ErrMalformedTicket, "reading header")
	}

	for _, s := range c.sealers {
		if !bytes.Equal(s.name[:], name) {
			continue
		}

		plaintext, err := s.aead.Open(nil, nonce, in, name)
		if err != nil {
			return nil, errors.Wrap(ErrMalformedTicket, err.Error())
		}

		sess := new(session.Session)
		if err := sess.UnmarshalBinary(plaintext); err != nil {
			return nil, errors.Wrap(err, "unmarshaling session")
		}
		return sess, nil
	}

	return nil, ErrUnknownKey
}
