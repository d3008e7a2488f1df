package handshake

import (
	"bytes"
	"psk-resumption/lib/types"
	"psk-resumption/session/tls/common"
	"psk-resumption/session/tls/common/ciphersuite"
	"psk-resumption/session/tls/internal/alert"
	"psk-resumption/session/tls/internal/handshake/extension"

	"github.com/pkg/errors"
	"golang.org/x/crypto/cryptobyte"
)

// Reference: https://datatracker.ietf.org/doc/html/rfc8446#section-4.1.2
type ClientHello struct {
	Version            common.Version // Legacy. Always TLS 1.2
	Random             [32]byte
	SessionID          []byte // Legacy. Random 32 bytes in compatibility mode, else empty.
	CipherSuites       []ciphersuite.ID
	CompressionMethods []byte // Legacy. A single null method.

	Extensions extension.Extensions
}

var _ Handshake = (*ClientHello)(nil)

func (c *ClientHello) messageType() MessageType { return TypeClientHello }

func (c *ClientHello) writeFixed(buf *bytes.Buffer) {
	var b cryptobyte.Builder
	b.AddUint16(uint16(c.Version))
	b.AddBytes(c.Random[:])
	b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes(c.SessionID)
	})
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
		for _, id := range c.CipherSuites {
			b.AddBytes(id[:])
		}
	})
	b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes(c.CompressionMethods)
	})
	buf.Write(b.BytesOrPanic())
}

func (c *ClientHello) data() []byte {
	buf := bytes.NewBuffer(nil)

	c.writeFixed(buf)
	c.Extensions.WriteTo(buf)

	return buf.Bytes()
}

func (c *ClientHello) length() types.Uint24 {
	l := uint32(2 + len(c.Random))
	l += 1 + uint32(len(c.SessionID))
	l += 2 + 2*uint32(len(c.CipherSuites))
	l += 1 + uint32(len(c.CompressionMethods))
	l += 2 + uint32(c.Extensions.Length())

	return types.NewUint24(l)
}

func (c *ClientHello) fillFrom(b []byte) (err error) {
	in := cryptobyte.String(b)

	var version uint16
	var sessionID, suites, compression cryptobyte.String
	if !in.ReadUint16(&version) ||
		!in.CopyBytes(c.Random[:]) ||
		!in.ReadUint8LengthPrefixed(&sessionID) ||
		!in.ReadUint16LengthPrefixed(&suites) ||
		!in.ReadUint8LengthPrefixed(&compression) {
		return errors.Wrap(common.ErrNeedMoreBytes, "reading fixed fields")
	}

	if len(sessionID) > 32 {
		return errors.New("legacy session id is longer than 32 bytes")
	}
	if len(suites)%2 != 0 {
		return errors.New("odd cipher suites length")
	}

	c.Version = common.Version(version)
	c.SessionID = append([]byte(nil), sessionID...)
	c.CompressionMethods = append([]byte(nil), compression...)

	c.CipherSuites = make([]ciphersuite.ID, 0, len(suites)/2)
	for !suites.Empty() {
		var id ciphersuite.ID
		suites.CopyBytes(id[:])
		c.CipherSuites = append(c.CipherSuites, id)
	}

	c.Extensions, err = extension.ExtensionsFromRaw(in)
	if err != nil {
		if errors.Is(err, extension.ErrDuplicateExtension) {
			return alert.NewError(err, alert.IllegalParameter)
		}
		return errors.Wrap(err, "reading extensions")
	}

	// Reference: https://datatracker.ietf.org/doc/html/rfc8446#section-4.2.11
	if idx := c.Extensions.Index(extension.TypePreSharedKey); idx != -1 && idx != c.Extensions.Len()-1 {
		return alert.NewError(
			errors.New("pre_shared_key extension is not last"),
			alert.IllegalParameter,
		)
	}

	return nil
}

// PreSharedKey returns nil if the extension wasn't sent.
func (c *ClientHello) PreSharedKey() (*extension.PreSharedKeyCH, error) {
	var psk extension.PreSharedKeyCH
	if err := c.Extensions.Extract(&psk); err != nil {
		if errors.Is(err, extension.ErrNoMatchingExtension) {
			return nil, nil
		}
		return nil, err
	}
	return &psk, nil
}

// Reference: https://datatracker.ietf.org/doc/html/rfc8446#section-4.1.3
type ServerHello struct {
	Version           common.Version // Legacy. Always TLS 1.2
	Random            [32]byte
	SessionIDEcho     []byte // Legacy. Echoes the client's session id.
	CipherSuite       ciphersuite.ID
	CompressionMethod uint8 // Legacy. Always null.

	Extensions extension.Extensions
}

var _ Handshake = (*ServerHello)(nil)

func (s *ServerHello) messageType() MessageType { return TypeServerHello }

func (s *ServerHello) data() []byte {
	var b cryptobyte.Builder
	b.AddUint16(uint16(s.Version))
	b.AddBytes(s.Random[:])
	b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes(s.SessionIDEcho)
	})
	b.AddBytes(s.CipherSuite[:])
	b.AddUint8(s.CompressionMethod)

	buf := bytes.NewBuffer(b.BytesOrPanic())
	s.Extensions.WriteTo(buf)

	return buf.Bytes()
}

func (s *ServerHello) length() types.Uint24 {
	l := uint32(2 + len(s.Random))
	l += 1 + uint32(len(s.SessionIDEcho))
	l += 2 + 1 // cipher suite, compression method
	l += 2 + uint32(s.Extensions.Length())

	return types.NewUint24(l)
}

func (s *ServerHello) fillFrom(b []byte) (err error) {
	in := cryptobyte.String(b)

	var version uint16
	var sessionID cryptobyte.String
	if !in.ReadUint16(&version) ||
		!in.CopyBytes(s.Random[:]) ||
		!in.ReadUint8LengthPrefixed(&sessionID) ||
		!in.CopyBytes(s.CipherSuite[:]) ||
		!in.ReadUint8(&s.CompressionMethod) {
		return errors.Wrap(common.ErrNeedMoreBytes, "reading fixed fields")
	}

	s.Version = common.Version(version)
	s.SessionIDEcho = append([]byte(nil), sessionID...)

	s.Extensions, err = extension.ExtensionsFromRaw(in)
	if err != nil {
		return errors.Wrap(err, "reading extensions")
	}

	return nil
}

// PreSharedKey returns nil if the server didn't select a PSK.
func (s *ServerHello) PreSharedKey() (*extension.PreSharedKeySH, error) {
	var psk extension.PreSharedKeySH
	if err := s.Extensions.Extract(&psk); err != nil {
		if errors.Is(err, extension.ErrNoMatchingExtension) {
			return nil, nil
		}
		return nil, err
	}
	return &psk, nil
}
