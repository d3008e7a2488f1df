// Package psk negotiates session resumption through the pre_shared_key
// extension of TLS 1.3.
// Reference: https://datatracker.ietf.org/doc/html/rfc8446#section-4.2.11
package psk

import (
	"log/slog"
	"psk-resumption/session/tls/common"
	"psk-resumption/session/tls/common/ciphersuite"
	"psk-resumption/session/tls/common/session"
	"psk-resumption/session/tls/common/signature"
	"psk-resumption/session/tls/internal/handshake"
	"psk-resumption/session/tls/internal/handshake/extension"
	"psk-resumption/session/tls/internal/transcript"
	"psk-resumption/session/tls/sessioncache"
	"psk-resumption/session/tls/ticket"
	"time"

	"github.com/benbjohnson/clock"
)

type Role uint8

const (
	RoleClient Role = iota
	RoleServer
)

func (r Role) String() string {
	if r == RoleServer {
		return "server"
	}
	return "client"
}

type ClientOptions struct {
	// Locally supported signature schemes.
	SignatureSchemes []signature.Scheme

	// The resumed session is removed from here once offered.
	Cache sessioncache.Store

	// Offer psk_ke instead of psk_dhe_ke.
	PSKOnly bool

	Lifetime time.Duration
	Clock    clock.Clock
	Logger   *slog.Logger
}

type ServerOptions struct {
	// Negotiable cipher suites. Empty means every registered suite.
	CipherSuites     []ciphersuite.Suite
	SignatureSchemes []signature.Scheme

	ClientAuthRequired     bool
	IdentificationProtocol string

	ResumptionDisabled bool

	// Looked up with identities of at most session.IDLength bytes.
	Cache sessioncache.Store

	// Opens longer identities. Nil disables stateless tickets.
	Tickets *ticket.Codec

	Lifetime time.Duration
	Clock    clock.Clock
	Logger   *slog.Logger
}

func withDefaults(lifetime time.Duration, c clock.Clock, logger *slog.Logger) (time.Duration, clock.Clock, *slog.Logger) {
	if lifetime <= 0 {
		lifetime = session.DefaultLifetime
	}
	if c == nil {
		c = clock.New()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return lifetime, c, logger
}

type clientState struct {
	opts ClientOptions

	session *session.Session
	offered *extension.PreSharedKeyCH
	resumed bool
}

type serverState struct {
	opts ServerOptions

	offered  *extension.PreSharedKeyCH
	selected int
	session  *session.Session
	resumed  bool
}

// HandshakeContext is the state of one handshake attempt shared by
// the pre_shared_key handlers. It isn't safe for concurrent use.
type HandshakeContext struct {
	Role Role

	// Negotiated protocol version and cipher suite.
	Version common.Version
	Suite   ciphersuite.Suite

	Transcript *transcript.Transcript

	ClientHello *handshake.ClientHello
	ServerHello *handshake.ServerHello

	logger *slog.Logger
	clock  clock.Clock

	client *clientState
	server *serverState
}

// NewClientContext prepares a client handshake resuming sess.
// sess may be nil for a full handshake.
func NewClientContext(sess *session.Session, opts ClientOptions) *HandshakeContext {
	opts.Lifetime, opts.Clock, opts.Logger = withDefaults(opts.Lifetime, opts.Clock, opts.Logger)

	return &HandshakeContext{
		Role:       RoleClient,
		Transcript: transcript.New(),
		logger:     opts.Logger.With(slog.String("role", RoleClient.String())),
		clock:      opts.Clock,
		client: &clientState{
			opts:    opts,
			session: sess,
		},
	}
}

func NewServerContext(opts ServerOptions) *HandshakeContext {
	opts.Lifetime, opts.Clock, opts.Logger = withDefaults(opts.Lifetime, opts.Clock, opts.Logger)

	return &HandshakeContext{
		Role:       RoleServer,
		Transcript: transcript.New(),
		logger:     opts.Logger.With(slog.String("role", RoleServer.String())),
		clock:      opts.Clock,
		server: &serverState{
			opts:     opts,
			selected: -1,
		},
	}
}

// Resumed reports whether both sides agreed on a pre-shared key.
func (hc *HandshakeContext) Resumed() bool {
	switch hc.Role {
	case RoleClient:
		return hc.client.resumed
	case RoleServer:
		return hc.server.resumed
	}
	return false
}

func (hc *HandshakeContext) ResumingSession() *session.Session {
	if !hc.Resumed() {
		return nil
	}

	if hc.Role == RoleClient {
		return hc.client.session
	}
	return hc.server.session
}

// PreSharedKey returns the key of the resumed session, or nil.
func (hc *HandshakeContext) PreSharedKey() []byte {
	if sess := hc.ResumingSession(); sess != nil {
		return sess.PreSharedKey
	}
	return nil
}

// SelectedIdentity is the index of the accepted identity.
func (hc *HandshakeContext) SelectedIdentity() (int, bool) {
	if !hc.Resumed() {
		return 0, false
	}

	if hc.Role == RoleClient {
		return 0, true
	}
	return hc.server.selected, true
}
