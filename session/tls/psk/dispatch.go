package psk

import (
	"psk-resumption/session/tls/internal/handshake"
	"psk-resumption/session/tls/internal/handshake/extension"

	"github.com/pkg/errors"
)

type Stage uint8

const (
	// Writing the extension into an outgoing message.
	StageProduce Stage = iota
	// Reading the extension from an incoming message.
	StageConsume
	// The incoming message doesn't have the extension.
	StageAbsent
	// Every extension of the incoming message has been consumed.
	StageUpdate
)

// Handler returns the extension data to send on StageProduce, nil otherwise.
// A nil result on StageProduce means the extension is not sent.
type Handler interface {
	Handle(hc *HandshakeContext, data []byte) ([]byte, error)
}

type Key struct {
	Extension extension.ExtensionType
	Role      Role
	Message   handshake.MessageType
	Stage     Stage
}

type (
	ClientProducer     struct{}
	ClientConsumer     struct{}
	ClientAbsence      struct{}
	ServerProducer     struct{}
	ServerConsumer     struct{}
	ServerAbsence      struct{}
	ServerBinderUpdate struct{}
)

var table = map[Key]Handler{
	{extension.TypePreSharedKey, RoleClient, handshake.TypeClientHello, StageProduce}: ClientProducer{},
	{extension.TypePreSharedKey, RoleClient, handshake.TypeServerHello, StageConsume}: ClientConsumer{},
	{extension.TypePreSharedKey, RoleClient, handshake.TypeServerHello, StageAbsent}:  ClientAbsence{},

	{extension.TypePreSharedKey, RoleServer, handshake.TypeClientHello, StageConsume}: ServerConsumer{},
	{extension.TypePreSharedKey, RoleServer, handshake.TypeClientHello, StageAbsent}:  ServerAbsence{},
	{extension.TypePreSharedKey, RoleServer, handshake.TypeClientHello, StageUpdate}:  ServerBinderUpdate{},
	{extension.TypePreSharedKey, RoleServer, handshake.TypeServerHello, StageProduce}: ServerProducer{},
}

var ErrNoHandler = errors.New("no handler registered")

func Lookup(key Key) (Handler, bool) {
	h, ok := table[key]
	return h, ok
}

// Dispatch runs the handler registered for the role of hc.
func Dispatch(
	hc *HandshakeContext,
	ext extension.ExtensionType,
	msg handshake.MessageType,
	stage Stage,
	data []byte,
) ([]byte, error) {
	key := Key{Extension: ext, Role: hc.Role, Message: msg, Stage: stage}

	h, ok := Lookup(key)
	if !ok {
		return nil, errors.Wrapf(ErrNoHandler, "%s in %s for %s", ext, msg, hc.Role)
	}

	return h.Handle(hc, data)
}
