package handshake

import (
	"bytes"

	"github.com/pkg/errors"
)

// PartialClientHello serializes the framed ClientHello up to and including
// the identities of its pre_shared_key extension. Every length field keeps
// the value of the complete message; only the binders list is left out.
// Reference: https://datatracker.ietf.org/doc/html/rfc8446#section-4.2.11.2
func PartialClientHello(c *ClientHello) ([]byte, error) {
	buf := bytes.NewBuffer(nil)

	l := c.length().Raw()
	buf.WriteByte(byte(c.messageType()))
	buf.Write(l[:])

	c.writeFixed(buf)

	if _, err := c.Extensions.WritePartialTo(buf); err != nil {
		return nil, errors.Wrap(err, "writing extensions")
	}

	return buf.Bytes(), nil
}
