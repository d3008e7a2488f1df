package common

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

var ErrNeedMoreBytes = errors.New("need more bytes")

type Version uint16

const (
	// Only ever sent as the legacy version of hello messages.
	VersionTLS12 Version = 0x0303
	VersionTLS13 Version = 0x0304
)

func (v Version) Bytes() []byte {
	return binary.BigEndian.AppendUint16(nil, uint16(v))
}

func (v Version) String() string {
	switch v {
	case VersionTLS12:
		return "TLS 1.2"
	case VersionTLS13:
		return "TLS 1.3"
	}
	return fmt.Sprintf("0x%04x", uint16(v))
}
