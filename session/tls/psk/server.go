package psk

import (
	"log/slog"
	sliceutil "psk-resumption/lib/slice"
	"psk-resumption/session/tls/common/ciphersuite"
	"psk-resumption/session/tls/common/session"
	"psk-resumption/session/tls/internal/alert"
	"psk-resumption/session/tls/internal/handshake"
	"psk-resumption/session/tls/internal/handshake/extension"
	"psk-resumption/session/tls/sessioncache"
	"slices"
	"strings"

	"github.com/pkg/errors"
)

// Handle picks the first offered identity that resolves to a resumable session.
// The binder is checked later, on StageUpdate.
func (ServerConsumer) Handle(hc *HandshakeContext, data []byte) ([]byte, error) {
	st := hc.server

	if hc.ClientHello == nil {
		return nil, alert.NewError(errors.New("no client hello received"), alert.InternalError)
	}

	var offered extension.PreSharedKeyCH
	if err := extension.Decode(&offered, data); err != nil {
		return nil, errors.Wrap(err, "decoding pre_shared_key")
	}

	if !hc.ClientHello.Extensions.Has(extension.TypePskKeyExchangeModes) {
		return nil, alert.NewError(
			errors.New("Client sent PSK but not PSK modes, or the PSK extension is not the last extension"),
			alert.IllegalParameter,
		)
	}

	if len(offered.Identities) != len(offered.Binders) {
		return nil, alert.NewError(
			errors.New("PSK extension has incorrect number of binders"),
			alert.IllegalParameter,
		)
	}

	st.offered = &offered

	if st.opts.ResumptionDisabled {
		hc.logger.Debug("resumption is disabled")
		return nil, nil
	}

	for idx, identity := range offered.Identities {
		sess := resolve(hc, identity.Identity)
		if sess == nil {
			continue
		}

		if reason := canRejoin(hc, sess); reason != "" {
			hc.logger.Debug("can't rejoin session", slog.Int("index", idx), slog.String("reason", reason))
			continue
		}

		st.selected = idx
		st.session = sess
		break
	}

	if st.session == nil {
		hc.logger.Debug("no resumable session among offered identities", slog.Int("offered", len(offered.Identities)))
	}

	return nil, nil
}

// resolve returns nil if the identity doesn't lead to a session.
// Identities up to a session ID long are cache keys, longer ones are tickets.
func resolve(hc *HandshakeContext, identity []byte) *session.Session {
	opts := hc.server.opts

	switch {
	case len(identity) <= session.IDLength && opts.Cache != nil:
		sess, err := opts.Cache.Pull(identity)
		if errors.Is(err, sessioncache.ErrNotFound) {
			hc.logger.Debug("session not found in cache")
			return nil
		}
		if err != nil {
			hc.logger.Warn("failed to pull session from cache", slog.Any("error", err))
			return nil
		}
		return sess

	case len(identity) > session.IDLength && opts.Tickets != nil:
		sess, err := opts.Tickets.Open(identity)
		if err != nil {
			hc.logger.Debug("failed to open ticket", slog.Any("error", err))
			return nil
		}
		return sess
	}

	hc.logger.Debug("identity can't be resolved", slog.Int("length", len(identity)))
	return nil
}

// canRejoin returns why sess can't be resumed, or an empty string.
func canRejoin(hc *HandshakeContext, sess *session.Session) string {
	opts := hc.server.opts

	if !sess.Rejoinable(hc.clock.Now(), opts.Lifetime) {
		return "session is not rejoinable"
	}

	if len(sess.PreSharedKey) == 0 {
		return "session has no pre-shared key"
	}

	if hc.Version != sess.Version {
		return "protocol version doesn't match"
	}

	if opts.ClientAuthRequired {
		if sess.PeerPrincipal == "" {
			return "client wasn't authenticated"
		}
		if !sliceutil.ContainsAll(opts.SignatureSchemes, sess.SignatureSchemes) {
			return "signature schemes of the session are not supported"
		}
	}

	if opts.IdentificationProtocol != "" &&
		!strings.EqualFold(opts.IdentificationProtocol, sess.IdentificationProtocol) {
		return "identification protocol doesn't match"
	}

	if !negotiable(opts.CipherSuites, sess.CipherSuite) {
		return "cipher suite is not negotiable"
	}

	if !slices.Contains(hc.ClientHello.CipherSuites, sess.CipherSuite.ID()) {
		return "cipher suite is not offered by client"
	}

	return ""
}

func negotiable(suites []ciphersuite.Suite, suite ciphersuite.Suite) bool {
	if len(suites) == 0 {
		_, ok := ciphersuite.Get(suite.ID())
		return ok
	}
	return slices.Contains(ciphersuite.AsIDs(suites), suite.ID())
}

// Handle verifies the binder of the selected identity against the
// ClientHello truncated right before the binders.
func (ServerBinderUpdate) Handle(hc *HandshakeContext, _ []byte) ([]byte, error) {
	st := hc.server
	if st.session == nil {
		return nil, nil
	}

	tr := hc.Transcript.Fork()

	raw, err := tr.PopLast()
	if err != nil {
		return nil, alert.NewError(errors.Wrap(err, "removing client hello from transcript"), alert.InternalError)
	}

	var ch handshake.ClientHello
	if err := handshake.FromBytes(raw, &ch); err != nil {
		return nil, alert.NewError(errors.Wrap(err, "parsing client hello"), alert.DecodeError)
	}

	partial, err := handshake.PartialClientHello(&ch)
	if err != nil {
		return nil, alert.NewError(errors.Wrap(err, "serializing partial client hello"), alert.InternalError)
	}

	if err := tr.Determine(hc.Version, st.session.CipherSuite); err != nil {
		return nil, alert.NewError(errors.Wrap(err, "determining transcript hash"), alert.InternalError)
	}
	tr.Update(partial)

	digest, err := tr.Digest()
	if err != nil {
		return nil, alert.NewError(errors.Wrap(err, "digesting transcript"), alert.InternalError)
	}

	if err := VerifyBinder(st.session, digest, st.offered.Binders[st.selected]); err != nil {
		return nil, errors.Wrap(err, "verifying binder")
	}

	st.resumed = true
	hc.Suite = st.session.CipherSuite

	hc.logger.Info("resuming session",
		slog.Int("index", st.selected),
		slog.String("suite", hc.Suite.Name()),
	)

	return nil, nil
}

func (ServerProducer) Handle(hc *HandshakeContext, _ []byte) ([]byte, error) {
	st := hc.server
	if !st.resumed {
		return nil, nil
	}

	selected := &extension.PreSharedKeySH{SelectedIdentity: uint16(st.selected)}
	if hc.ServerHello != nil {
		hc.ServerHello.Extensions.Set(selected)
	}

	return selected.Data(), nil
}

// Handle drops anything left from an earlier attempt.
func (ServerAbsence) Handle(hc *HandshakeContext, _ []byte) ([]byte, error) {
	st := hc.server

	st.offered = nil
	st.selected = -1
	st.session = nil
	st.resumed = false

	return nil, nil
}
