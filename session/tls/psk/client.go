package psk

import (
	"log/slog"
	sliceutil "psk-resumption/lib/slice"
	"psk-resumption/session/tls/common"
	"psk-resumption/session/tls/common/ciphersuite"
	"psk-resumption/session/tls/common/session"
	"psk-resumption/session/tls/internal/alert"
	"psk-resumption/session/tls/internal/handshake"
	"psk-resumption/session/tls/internal/handshake/extension"

	"github.com/pkg/errors"
)

// Handle offers the resumable session of hc as the only identity.
func (ClientProducer) Handle(hc *HandshakeContext, _ []byte) ([]byte, error) {
	st := hc.client
	sess := st.session

	if hc.ClientHello == nil {
		return nil, alert.NewError(errors.New("no client hello to write into"), alert.InternalError)
	}

	if sess == nil {
		hc.logger.Debug("no session to resume")
		return nil, nil
	}

	if !sess.Rejoinable(hc.clock.Now(), st.opts.Lifetime) {
		hc.logger.Debug("session is not rejoinable")
		return nil, nil
	}

	if !sliceutil.ContainsAll(st.opts.SignatureSchemes, sess.SignatureSchemes) {
		hc.logger.Debug("signature schemes of the session are no longer supported")
		return nil, nil
	}

	if len(sess.PreSharedKey) == 0 {
		hc.logger.Debug("session has no pre-shared key")
		return nil, nil
	}

	identity, ok := sess.ConsumeIdentity()
	if !ok {
		hc.logger.Debug("session has no identity left")
		return nil, nil
	}

	// The identity is used up, so is the session.
	if st.opts.Cache != nil {
		if err := st.opts.Cache.Remove(sess.ID); err != nil {
			return nil, alert.NewError(errors.Wrap(err, "removing session from cache"), alert.InternalError)
		}
	}

	ch := hc.ClientHello
	if !ch.Extensions.Has(extension.TypePskKeyExchangeModes) {
		mode := session.PSKModePSK_DHE_KE
		if st.opts.PSKOnly {
			mode = session.PSKModePSK_KE
		}
		ch.Extensions.Set(&extension.PskKeyExchangeModes{KeModes: []session.PSKMode{mode}})
	}

	suite := sess.CipherSuite
	if !suite.Hash().Available() {
		return nil, alert.NewError(
			errors.Errorf("hash of %s is unavailable", suite.Name()),
			alert.InternalError,
		)
	}

	offer := &extension.PreSharedKeyCH{
		Identities: []extension.PSKIdentity{{
			Identity:            identity,
			ObfuscatedTicketAge: sess.ObfuscatedAge(hc.clock.Now()),
		}},
		Binders: []extension.PSKBinderEntry{make([]byte, suite.Hash().Size())},
	}
	ch.Extensions.Set(offer)

	digest, err := partialDigest(hc, suite, ch)
	if err != nil {
		return nil, errors.Wrap(err, "hashing partial client hello")
	}

	binder, err := Binder(suite, sess.Type, sess.PreSharedKey, digest)
	if err != nil {
		return nil, errors.Wrap(err, "computing binder")
	}

	offer.Binders[0] = binder
	ch.Extensions.Set(offer)
	st.offered = offer

	hc.logger.Debug("offered pre-shared key",
		slog.Int("identity_length", len(identity)),
		slog.String("suite", suite.Name()),
	)

	return offer.Data(), nil
}

// partialDigest hashes ch up to its binders on top of the current transcript,
// without touching the transcript itself.
func partialDigest(hc *HandshakeContext, suite ciphersuite.Suite, ch *handshake.ClientHello) ([]byte, error) {
	partial, err := handshake.PartialClientHello(ch)
	if err != nil {
		return nil, alert.NewError(errors.Wrap(err, "serializing partial client hello"), alert.InternalError)
	}

	tr := hc.Transcript.Fork()
	if err := tr.Determine(common.VersionTLS13, suite); err != nil {
		return nil, alert.NewError(errors.Wrap(err, "determining transcript hash"), alert.InternalError)
	}
	tr.Update(partial)

	digest, err := tr.Digest()
	if err != nil {
		return nil, alert.NewError(errors.Wrap(err, "digesting transcript"), alert.InternalError)
	}

	return digest, nil
}

func (ClientConsumer) Handle(hc *HandshakeContext, data []byte) ([]byte, error) {
	st := hc.client

	if st.offered == nil {
		return nil, alert.NewError(errors.New("unexpected pre_shared_key extension"), alert.UnexpectedMessage)
	}

	var selected extension.PreSharedKeySH
	if err := extension.Decode(&selected, data); err != nil {
		return nil, errors.Wrap(err, "decoding pre_shared_key")
	}

	// Only one identity is ever offered.
	if selected.SelectedIdentity != 0 {
		return nil, alert.NewError(
			errors.New("selected identity index is not in correct range"),
			alert.IllegalParameter,
		)
	}

	// Reference: https://datatracker.ietf.org/doc/html/rfc8446#section-4.2.11
	if hc.Suite.ID() != (ciphersuite.ID{}) && hc.Suite.Hash() != st.session.CipherSuite.Hash() {
		return nil, alert.NewError(
			errors.New("selected cipher suite doesn't match the hash of the pre-shared key"),
			alert.IllegalParameter,
		)
	}

	st.resumed = true
	hc.logger.Info("resuming session", slog.String("suite", st.session.CipherSuite.Name()))

	return nil, nil
}

// Handle falls back to a full handshake.
func (ClientAbsence) Handle(hc *HandshakeContext, _ []byte) ([]byte, error) {
	st := hc.client

	if st.offered != nil {
		hc.logger.Debug("server declined pre-shared key")
	}

	st.offered = nil
	st.resumed = false
	st.session = nil

	return nil, nil
}
