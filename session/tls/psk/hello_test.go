package psk

import (
	"testing"
	"time"

	"psk-resumption/session/tls/common"
	"psk-resumption/session/tls/common/ciphersuite"
	"psk-resumption/session/tls/common/session"
	"psk-resumption/session/tls/common/signature"
	"psk-resumption/session/tls/internal/alert"
	"psk-resumption/session/tls/internal/handshake"
	"psk-resumption/session/tls/internal/handshake/extension"
	"psk-resumption/session/tls/sessioncache"
	"psk-resumption/session/tls/ticket"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testSchemes = []signature.Scheme{signature.Scheme_ECDSA_Secp256r1_SHA256}

func mustSuite(t require.TestingT, id ciphersuite.ID) ciphersuite.Suite {
	suite, ok := ciphersuite.Get(id)
	require.True(t, ok)
	return suite
}

func newMockClock() *clock.Mock {
	c := clock.NewMock()
	c.Set(time.UnixMilli(1_700_000_000_000))
	return c
}

// newResumable returns a session made a second ago, identified by id.
func newResumable(t require.TestingT, c clock.Clock, id string) *session.Session {
	sess := &session.Session{
		ID:               []byte(id),
		PreSharedKey:     make([]byte, 32),
		Type:             session.PSKTypeResumption,
		Version:          common.VersionTLS13,
		CipherSuite:      mustSuite(t, ciphersuite.TLS_AES_128_GCM_SHA256),
		CreatedAt:        c.Now().Add(-time.Second),
		SignatureSchemes: testSchemes,
	}
	sess.SetIdentity([]byte(id))
	return sess
}

func requireAlert(t require.TestingT, err error, want alert.Description) {
	require.Error(t, err)
	desc, ok := alert.DescriptionOf(err)
	require.Truef(t, ok, "no alert in %v", err)
	require.Equal(t, want, desc, err.Error())
}

type HelloTestSuite struct {
	suite.Suite

	clock       *clock.Mock
	clientCache *sessioncache.Memory
	serverCache *sessioncache.Memory

	client *HandshakeContext
	server *HandshakeContext
}

func TestHelloTestSuite(t *testing.T) {
	suite.Run(t, new(HelloTestSuite))
}

func (s *HelloTestSuite) SetupTest() {
	s.clock = newMockClock()
	s.clientCache = sessioncache.NewMemory(sessioncache.Options{Clock: s.clock})
	s.serverCache = sessioncache.NewMemory(sessioncache.Options{Clock: s.clock})

	sess := newResumable(s.T(), s.clock, "id1")
	s.Require().NoError(s.clientCache.Put(sess))
	s.Require().NoError(s.serverCache.Put(sess.Clone()))

	s.client = NewClientContext(sess, ClientOptions{
		SignatureSchemes: testSchemes,
		Cache:            s.clientCache,
		Clock:            s.clock,
	})
	s.server = NewServerContext(ServerOptions{
		Cache: s.serverCache,
		Clock: s.clock,
	})
}

func (s *HelloTestSuite) TestResumption() {
	ch, err := WriteClientHello(s.client, Hello{ServerName: "example.com"})
	s.Require().NoError(err)

	s.Require().NoError(ReadClientHello(s.server, ch))
	s.True(s.server.Resumed())

	offer, err := s.server.ClientHello.PreSharedKey()
	s.Require().NoError(err)
	s.Require().Len(offer.Identities, 1)
	s.Equal([]byte("id1"), offer.Identities[0].Identity)
	s.Equal(uint32(1000), offer.Identities[0].ObfuscatedTicketAge)

	idx, ok := s.server.SelectedIdentity()
	s.True(ok)
	s.Equal(0, idx)

	sh, err := WriteServerHello(s.server)
	s.Require().NoError(err)

	s.Require().NoError(ReadServerHello(s.client, sh))
	s.True(s.client.Resumed())

	s.Equal(make([]byte, 32), s.client.PreSharedKey())
	s.Equal(s.client.PreSharedKey(), s.server.PreSharedKey())
	s.Equal(s.client.Suite.ID(), s.server.Suite.ID())

	clientDigest, err := s.client.Transcript.Digest()
	s.Require().NoError(err)
	serverDigest, err := s.server.Transcript.Digest()
	s.Require().NoError(err)
	s.Equal(clientDigest, serverDigest)

	s.Zero(s.clientCache.Len())
	s.Zero(s.serverCache.Len())
}

func (s *HelloTestSuite) TestTamperedBinder() {
	ch, err := WriteClientHello(s.client, Hello{})
	s.Require().NoError(err)

	ch[len(ch)-1] ^= 0x01

	err = ReadClientHello(s.server, ch)
	requireAlert(s.T(), err, alert.IllegalParameter)
	s.ErrorIs(err, ErrBinderMismatch)
	s.False(s.server.Resumed())
}

func (s *HelloTestSuite) TestSelectedIdentityOutOfRange() {
	ch, err := WriteClientHello(s.client, Hello{})
	s.Require().NoError(err)
	s.Require().NoError(ReadClientHello(s.server, ch))
	_, err = WriteServerHello(s.server)
	s.Require().NoError(err)

	sh := s.server.ServerHello
	sh.Extensions.Set(&extension.PreSharedKeySH{SelectedIdentity: 1})

	err = ReadServerHello(s.client, handshake.ToBytes(sh))
	requireAlert(s.T(), err, alert.IllegalParameter)
	s.False(s.client.Resumed())
}

func (s *HelloTestSuite) TestFallbackToFullHandshake() {
	s.Require().NoError(s.serverCache.Remove([]byte("id1")))

	ch, err := WriteClientHello(s.client, Hello{})
	s.Require().NoError(err)
	s.Require().NoError(ReadClientHello(s.server, ch))
	s.False(s.server.Resumed())

	sh, err := WriteServerHello(s.server)
	s.Require().NoError(err)
	s.False(s.server.ServerHello.Extensions.Has(extension.TypePreSharedKey))

	s.Require().NoError(ReadServerHello(s.client, sh))
	s.False(s.client.Resumed())
	s.Nil(s.client.ResumingSession())
	s.Nil(s.client.PreSharedKey())
}

func (s *HelloTestSuite) TestUnsolicitedPreSharedKey() {
	client := NewClientContext(nil, ClientOptions{Clock: s.clock})

	ch, err := WriteClientHello(client, Hello{})
	s.Require().NoError(err)
	s.False(client.ClientHello.Extensions.Has(extension.TypePreSharedKey))

	s.Require().NoError(ReadClientHello(s.server, ch))
	_, err = WriteServerHello(s.server)
	s.Require().NoError(err)

	sh := s.server.ServerHello
	sh.Extensions.Set(&extension.PreSharedKeySH{SelectedIdentity: 0})

	err = ReadServerHello(client, handshake.ToBytes(sh))
	requireAlert(s.T(), err, alert.UnexpectedMessage)
}

func (s *HelloTestSuite) TestCipherSuiteNotOffered() {
	ch, err := WriteClientHello(s.client, Hello{
		CipherSuites: []ciphersuite.Suite{mustSuite(s.T(), ciphersuite.TLS_AES_128_GCM_SHA256)},
	})
	s.Require().NoError(err)
	s.Require().NoError(ReadClientHello(s.server, ch))
	_, err = WriteServerHello(s.server)
	s.Require().NoError(err)

	sh := s.server.ServerHello
	sh.CipherSuite = ciphersuite.TLS_AES_256_GCM_SHA384

	err = ReadServerHello(s.client, handshake.ToBytes(sh))
	requireAlert(s.T(), err, alert.IllegalParameter)
}

func (s *HelloTestSuite) TestNoCommonCipherSuite() {
	server := NewServerContext(ServerOptions{
		CipherSuites: []ciphersuite.Suite{mustSuite(s.T(), ciphersuite.TLS_AES_256_GCM_SHA384)},
		Cache:        s.serverCache,
		Clock:        s.clock,
	})

	ch, err := WriteClientHello(s.client, Hello{
		CipherSuites: []ciphersuite.Suite{mustSuite(s.T(), ciphersuite.TLS_AES_128_GCM_SHA256)},
	})
	s.Require().NoError(err)

	requireAlert(s.T(), ReadClientHello(server, ch), alert.HandshakeFailure)
}

func (s *HelloTestSuite) TestNoTLS13() {
	_, err := WriteClientHello(s.client, Hello{})
	s.Require().NoError(err)

	ch := s.client.ClientHello
	s.Require().True(ch.Extensions.Remove(extension.TypeSupportedVersions))

	requireAlert(s.T(), ReadClientHello(s.server, handshake.ToBytes(ch)), alert.ProtocolVersion)
}

func (s *HelloTestSuite) TestMalformedClientHello() {
	err := ReadClientHello(s.server, []byte{0x01, 0x00, 0x00, 0x10, 0x03})
	requireAlert(s.T(), err, alert.DecodeError)
}

func (s *HelloTestSuite) TestTicketResumption() {
	key, err := ticket.GenerateKey(nil)
	s.Require().NoError(err)
	codec, err := ticket.NewCodec(key)
	s.Require().NoError(err)

	issued := newResumable(s.T(), s.clock, "id2")
	tk, err := codec.Seal(issued)
	s.Require().NoError(err)
	s.Require().Greater(len(tk), session.IDLength)

	resumable := issued.Clone()
	resumable.SetIdentity(tk)

	client := NewClientContext(resumable, ClientOptions{SignatureSchemes: testSchemes, Clock: s.clock})
	server := NewServerContext(ServerOptions{Tickets: codec, Clock: s.clock})

	ch, err := WriteClientHello(client, Hello{})
	s.Require().NoError(err)
	s.Require().NoError(ReadClientHello(server, ch))
	s.True(server.Resumed())

	sh, err := WriteServerHello(server)
	s.Require().NoError(err)
	s.Require().NoError(ReadServerHello(client, sh))
	s.True(client.Resumed())
	s.Equal(client.PreSharedKey(), server.PreSharedKey())
}

func (s *HelloTestSuite) TestReplayedClientHello() {
	ch, err := WriteClientHello(s.client, Hello{})
	s.Require().NoError(err)

	s.Require().NoError(ReadClientHello(s.server, ch))
	s.True(s.server.Resumed())

	// The session was pulled out of the shared cache by the first server.
	replay := NewServerContext(ServerOptions{Cache: s.serverCache, Clock: s.clock})
	s.Require().NoError(ReadClientHello(replay, ch))
	s.False(replay.Resumed())
}
