package handshake

import (
	"encoding/binary"
	"psk-resumption/lib/types"
	"psk-resumption/session/tls/common"
	"strconv"

	"github.com/pkg/errors"
)

type MessageType uint8

// Reference: https://datatracker.ietf.org/doc/html/rfc8446#section-4
const (
	TypeClientHello         MessageType = 1
	TypeServerHello         MessageType = 2
	TypeNewSessionTicket    MessageType = 4
	TypeEncryptedExtensions MessageType = 8
	TypeFinished            MessageType = 20
)

func (t MessageType) String() string {
	switch t {
	case TypeClientHello:
		return "client_hello"
	case TypeServerHello:
		return "server_hello"
	case TypeNewSessionTicket:
		return "new_session_ticket"
	case TypeEncryptedExtensions:
		return "encrypted_extensions"
	case TypeFinished:
		return "finished"
	}
	return "unknown(" + strconv.Itoa(int(t)) + ")"
}

type Handshake interface {
	messageType() MessageType
	length() types.Uint24
	data() []byte // NOTE: Read-Only.

	fillFrom(b []byte) error
}

var ErrNotExpectedHandshakeType = errors.New("handshake type differs from expected")

// Type reads the message type of a framed handshake message.
func Type(raw []byte) (MessageType, error) {
	if len(raw) < 4 {
		return 0, common.ErrNeedMoreBytes
	}
	return MessageType(raw[0]), nil
}

func FromBytes(raw []byte, h Handshake) error {
	if len(raw) < 4 {
		return common.ErrNeedMoreBytes
	}

	t := MessageType(raw[0])
	l := binary.BigEndian.Uint32(append([]byte{0}, raw[1:4]...))

	if t != h.messageType() {
		return errors.Wrapf(ErrNotExpectedHandshakeType, "got %s, want %s", t, h.messageType())
	}

	if len(raw[4:]) < int(l) {
		return common.ErrNeedMoreBytes
	}
	if len(raw[4:]) > int(l) {
		return errors.New("data longer than advertised")
	}

	if err := h.fillFrom(raw[4:]); err != nil {
		return errors.Wrap(err, "reading handshake message data")
	}

	return nil
}

func ToBytes(h Handshake) []byte {
	t := byte(h.messageType())
	l := h.length().Raw()

	metadata := append([]byte{t}, l[:]...)

	return append(metadata, h.data()...)
}
