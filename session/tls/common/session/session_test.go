package session

import (
	"testing"
	"time"

	"psk-resumption/session/tls/common"
	"psk-resumption/session/tls/common/ciphersuite"
	"psk-resumption/session/tls/common/signature"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type SessionTestSuite struct {
	suite.Suite

	now     time.Time
	session *Session
}

func TestSessionTestSuite(t *testing.T) {
	suite.Run(t, new(SessionTestSuite))
}

func (s *SessionTestSuite) SetupTest() {
	s.now = time.UnixMilli(1_700_000_000_000)

	cs, _ := ciphersuite.Get(ciphersuite.TLS_AES_128_GCM_SHA256)
	s.session = &Session{
		ID:                     make([]byte, IDLength),
		PreSharedKey:           make([]byte, 32),
		Type:                   PSKTypeResumption,
		Version:                common.VersionTLS13,
		CipherSuite:            cs,
		CreatedAt:              s.now,
		AgeAdd:                 0x01020304,
		SignatureSchemes:       []signature.Scheme{signature.Scheme_Ed25519, signature.Scheme_RSA_PSS_RSAE_SHA256},
		IdentificationProtocol: "HTTPS",
		PeerPrincipal:          "CN=client",
	}
	s.session.SetIdentity([]byte("id1"))
}

func (s *SessionTestSuite) TestConsumeIdentityOnce() {
	s.True(s.session.HasIdentity())

	identity, ok := s.session.ConsumeIdentity()
	s.Require().True(ok)
	s.Equal([]byte("id1"), identity)

	s.False(s.session.HasIdentity())

	_, ok = s.session.ConsumeIdentity()
	s.False(ok)
}

func (s *SessionTestSuite) TestRejoinable() {
	testcases := []struct {
		desc       string
		elapsed    time.Duration
		lifetime   time.Duration
		invalidate bool
		expect     bool
	}{
		{desc: "fresh", elapsed: time.Minute, lifetime: time.Hour, expect: true},
		{desc: "at lifetime", elapsed: time.Hour, lifetime: time.Hour, expect: true},
		{desc: "expired", elapsed: time.Hour + time.Millisecond, lifetime: time.Hour, expect: false},
		{desc: "default lifetime", elapsed: 6 * 24 * time.Hour, expect: true},
		{desc: "beyond default lifetime", elapsed: 8 * 24 * time.Hour, expect: false},
		{desc: "invalidated", elapsed: time.Second, lifetime: time.Hour, invalidate: true, expect: false},
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			sess := &Session{CreatedAt: s.now}
			if tc.invalidate {
				sess.Invalidate()
			}
			s.Equal(tc.expect, sess.Rejoinable(s.now.Add(tc.elapsed), tc.lifetime))
		})
	}
}

func (s *SessionTestSuite) TestObfuscatedAge() {
	sess := &Session{CreatedAt: s.now, AgeAdd: 500}
	s.Equal(uint32(1500), sess.ObfuscatedAge(s.now.Add(time.Second)))

	// Wraps around.
	sess.AgeAdd = 0xFFFFFFFF
	s.Equal(uint32(999), sess.ObfuscatedAge(s.now.Add(time.Second)))

	// Clock skew doesn't make it negative.
	sess.AgeAdd = 7
	s.Equal(uint32(7), sess.ObfuscatedAge(s.now.Add(-time.Second)))
}

func (s *SessionTestSuite) TestMarshalBinary() {
	raw, err := s.session.MarshalBinary()
	s.Require().NoError(err)

	var got Session
	s.Require().NoError(got.UnmarshalBinary(raw))

	s.Equal(s.session.ID, got.ID)
	s.Equal(s.session.PreSharedKey, got.PreSharedKey)
	s.Equal(s.session.Type, got.Type)
	s.Equal(s.session.Version, got.Version)
	s.Equal(s.session.CipherSuite, got.CipherSuite)
	s.True(s.session.CreatedAt.Equal(got.CreatedAt))
	s.Equal(s.session.AgeAdd, got.AgeAdd)
	s.Equal(s.session.SignatureSchemes, got.SignatureSchemes)
	s.Equal(s.session.IdentificationProtocol, got.IdentificationProtocol)
	s.Equal(s.session.PeerPrincipal, got.PeerPrincipal)

	identity, ok := got.ConsumeIdentity()
	s.True(ok)
	s.Equal([]byte("id1"), identity)
}

func (s *SessionTestSuite) TestUnmarshalBinaryMalformed() {
	raw, err := s.session.MarshalBinary()
	s.Require().NoError(err)

	var got Session
	s.ErrorIs(got.UnmarshalBinary(raw[:len(raw)-1]), ErrMalformedSession)
	s.ErrorIs(got.UnmarshalBinary(append(raw, 0x00)), ErrMalformedSession)

	// Unknown cipher suite.
	raw[2], raw[3] = 0xff, 0xff
	s.ErrorIs(got.UnmarshalBinary(raw), ErrMalformedSession)
}

func TestPSKModeString(t *testing.T) {
	assert.Equal(t, "psk_ke", PSKModePSK_KE.String())
	assert.Equal(t, "psk_dhe_ke", PSKModePSK_DHE_KE.String())
	assert.Equal(t, "unknown", PSKMode(7).String())
}

func (s *SessionTestSuite) TestNew() {
	cs, _ := ciphersuite.Get(ciphersuite.TLS_AES_256_GCM_SHA384)

	sess, err := New([]byte("psk"), cs, s.now)
	s.Require().NoError(err)
	s.Len(sess.ID, IDLength)
	s.Equal(common.VersionTLS13, sess.Version)
	s.Equal(PSKTypeResumption, sess.Type)

	other, err := New([]byte("psk"), cs, s.now)
	s.Require().NoError(err)
	s.NotEqual(sess.ID, other.ID)
}

func (s *SessionTestSuite) TestClone() {
	clone := s.session.Clone()
	s.Equal(s.session.ID, clone.ID)
	s.Equal(s.session.SignatureSchemes, clone.SignatureSchemes)

	// Identities are consumed independently.
	_, ok := clone.ConsumeIdentity()
	s.True(ok)
	s.True(s.session.HasIdentity())

	clone.PreSharedKey[0] = 0xff
	s.Equal(byte(0), s.session.PreSharedKey[0])
}
