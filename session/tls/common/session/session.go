package session

import (
	"crypto/rand"
	"encoding/binary"
	"psk-resumption/session/tls/common"
	"psk-resumption/session/tls/common/ciphersuite"
	"psk-resumption/session/tls/common/signature"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/cryptobyte"
)

// IDLength is the length of generated session IDs. Identities up to
// this length are looked up in a session cache, longer ones are tickets.
const IDLength = 32

// DefaultLifetime is the upper bound for ticket lifetime.
// Reference: https://datatracker.ietf.org/doc/html/rfc8446#section-4.6.1
const DefaultLifetime = 7 * 24 * time.Hour

// Session is a resumable session established by a previous handshake.
// It is owned by a session cache; handshakes only borrow it.
type Session struct {
	ID           []byte
	PreSharedKey []byte
	Type         PSKType

	Version     common.Version
	CipherSuite ciphersuite.Suite

	CreatedAt time.Time
	AgeAdd    uint32

	// Signature schemes that were locally supported when the session was made.
	SignatureSchemes []signature.Scheme

	// Endpoint identification protocol, e.g. "HTTPS". Empty if none.
	IdentificationProtocol string

	// Authenticated peer. Empty if the peer wasn't authenticated.
	PeerPrincipal string

	mu          sync.Mutex
	identity    []byte
	invalidated bool
}

// New makes a TLS 1.3 resumption session with random ID and age_add.
func New(psk []byte, suite ciphersuite.Suite, now time.Time) (*Session, error) {
	id := make([]byte, IDLength)
	if _, err := rand.Read(id); err != nil {
		return nil, errors.Wrap(err, "generating session id")
	}

	var ageAdd [4]byte
	if _, err := rand.Read(ageAdd[:]); err != nil {
		return nil, errors.Wrap(err, "generating age_add")
	}

	return &Session{
		ID:           id,
		PreSharedKey: psk,
		Type:         PSKTypeResumption,
		Version:      common.VersionTLS13,
		CipherSuite:  suite,
		CreatedAt:    now,
		AgeAdd:       binary.BigEndian.Uint32(ageAdd[:]),
	}, nil
}

// Clone copies every field except the lock.
func (s *Session) Clone() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	return &Session{
		ID:                     append([]byte(nil), s.ID...),
		PreSharedKey:           append([]byte(nil), s.PreSharedKey...),
		Type:                   s.Type,
		Version:                s.Version,
		CipherSuite:            s.CipherSuite,
		CreatedAt:              s.CreatedAt,
		AgeAdd:                 s.AgeAdd,
		SignatureSchemes:       append([]signature.Scheme(nil), s.SignatureSchemes...),
		IdentificationProtocol: s.IdentificationProtocol,
		PeerPrincipal:          s.PeerPrincipal,
		identity:               append([]byte(nil), s.identity...),
		invalidated:            s.invalidated,
	}
}

// SetIdentity sets the identity the client offers when resuming.
func (s *Session) SetIdentity(identity []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identity = append([]byte(nil), identity...)
}

// ConsumeIdentity returns the identity only once.
func (s *Session) ConsumeIdentity() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.identity) == 0 {
		return nil, false
	}

	identity := s.identity
	s.identity = nil
	return identity, true
}

func (s *Session) HasIdentity() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.identity) > 0
}

func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.invalidated = true
}

func (s *Session) Rejoinable(now time.Time, lifetime time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.invalidated {
		return false
	}

	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}

	return now.Sub(s.CreatedAt) <= lifetime
}

// ObfuscatedAge wraps around on overflow.
// Reference: https://datatracker.ietf.org/doc/html/rfc8446#section-4.2.11.1
func (s *Session) ObfuscatedAge(now time.Time) uint32 {
	age := now.Sub(s.CreatedAt).Milliseconds()
	if age < 0 {
		age = 0
	}

	return uint32(age) + s.AgeAdd
}

var ErrMalformedSession = errors.New("malformed session")

func (s *Session) MarshalBinary() ([]byte, error) {
	s.mu.Lock()
	identity := s.identity
	s.mu.Unlock()

	var b cryptobyte.Builder
	b.AddUint16(uint16(s.Version))
	b.AddBytes(s.CipherSuite.ID().Bytes())
	b.AddUint64(uint64(s.CreatedAt.UnixMilli()))
	b.AddUint32(s.AgeAdd)
	b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes([]byte(s.Type))
	})
	b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes(s.ID)
	})
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes(s.PreSharedKey)
	})
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
		for _, scheme := range s.SignatureSchemes {
			b.AddUint16(uint16(scheme))
		}
	})
	b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes([]byte(s.IdentificationProtocol))
	})
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes([]byte(s.PeerPrincipal))
	})
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes(identity)
	})

	out, err := b.Bytes()
	if err != nil {
		return nil, errors.Wrap(err, "building session")
	}
	return out, nil
}

func (s *Session) UnmarshalBinary(data []byte) error {
	var version uint16
	var suiteID []byte
	var createdAt uint64
	var pskType, id, psk, schemes, protocol, principal, identity cryptobyte.String

	in := cryptobyte.String(data)
	ok := in.ReadUint16(&version) &&
		in.ReadBytes(&suiteID, 2) &&
		in.ReadUint64(&createdAt) &&
		in.ReadUint32(&s.AgeAdd) &&
		in.ReadUint8LengthPrefixed(&pskType) &&
		in.ReadUint8LengthPrefixed(&id) &&
		in.ReadUint16LengthPrefixed(&psk) &&
		in.ReadUint16LengthPrefixed(&schemes) &&
		in.ReadUint8LengthPrefixed(&protocol) &&
		in.ReadUint16LengthPrefixed(&principal) &&
		in.ReadUint16LengthPrefixed(&identity) &&
		in.Empty()
	if !ok {
		return errors.Wrap(ErrMalformedSession, "reading fields")
	}

	suite, found := ciphersuite.Get(ciphersuite.ID(suiteID))
	if !found {
		return errors.Wrapf(ErrMalformedSession, "unknown cipher suite %s", ciphersuite.ID(suiteID))
	}

	s.SignatureSchemes = nil
	for !schemes.Empty() {
		var scheme uint16
		if !schemes.ReadUint16(&scheme) {
			return errors.Wrap(ErrMalformedSession, "reading signature schemes")
		}
		s.SignatureSchemes = append(s.SignatureSchemes, signature.Scheme(scheme))
	}

	s.Version = common.Version(version)
	s.CipherSuite = suite
	s.CreatedAt = time.UnixMilli(int64(createdAt))
	s.Type = PSKType(pskType)
	s.ID = append([]byte(nil), id...)
	s.PreSharedKey = append([]byte(nil), psk...)
	s.IdentificationProtocol = string(protocol)
	s.PeerPrincipal = string(principal)

	s.mu.Lock()
	s.identity = nil
	if len(identity) > 0 {
		s.identity = append([]byte(nil), identity...)
	}
	s.invalidated = false
	s.mu.Unlock()

	return nil
}
