package psk

import (
	"crypto/rand"
	"psk-resumption/session/tls/common"
	"psk-resumption/session/tls/common/ciphersuite"
	"psk-resumption/session/tls/common/signature"
	"psk-resumption/session/tls/internal/alert"
	"psk-resumption/session/tls/internal/handshake"
	"psk-resumption/session/tls/internal/handshake/extension"
	"slices"

	"github.com/pkg/errors"
)

// The functions below drive the hello exchange far enough to negotiate
// resumption. Key exchange and everything after ServerHello are left to
// the caller.

// Hello is what a client puts into its ClientHello.
type Hello struct {
	ServerName string

	// Defaults to ciphersuite.Supported().
	CipherSuites []ciphersuite.Suite

	// Defaults to ClientOptions.SignatureSchemes.
	SignatureSchemes []signature.Scheme
}

// WriteClientHello returns the framed ClientHello, offering a pre-shared key
// if hc has a session to resume.
func WriteClientHello(hc *HandshakeContext, hello Hello) ([]byte, error) {
	if hc.Role != RoleClient {
		return nil, errors.New("not a client")
	}

	if len(hello.CipherSuites) == 0 {
		hello.CipherSuites = ciphersuite.Supported()
	}
	if len(hello.SignatureSchemes) == 0 {
		hello.SignatureSchemes = hc.client.opts.SignatureSchemes
	}

	ch := &handshake.ClientHello{
		Version:            common.VersionTLS12,
		SessionID:          make([]byte, 32),
		CipherSuites:       ciphersuite.AsIDs(hello.CipherSuites),
		CompressionMethods: []byte{0x00},
	}
	if _, err := rand.Read(ch.Random[:]); err != nil {
		return nil, errors.Wrap(err, "generating random")
	}
	if _, err := rand.Read(ch.SessionID); err != nil {
		return nil, errors.Wrap(err, "generating legacy session id")
	}

	if hello.ServerName != "" {
		ch.Extensions.Set(&extension.ServerNameList{ServerNameList: []extension.ServerName{
			{NameType: extension.ServerNameTypeHostName, Name: []byte(hello.ServerName)},
		}})
	}
	ch.Extensions.Set(&extension.SupportedVersionsCH{Versions: []common.Version{common.VersionTLS13}})
	if len(hello.SignatureSchemes) > 0 {
		ch.Extensions.Set(&extension.SignatureAlgos{SupportedAlgos: hello.SignatureSchemes})
	}

	hc.ClientHello = ch

	if _, err := Dispatch(hc, extension.TypePreSharedKey, handshake.TypeClientHello, StageProduce, nil); err != nil {
		return nil, errors.Wrap(err, "producing pre_shared_key")
	}

	raw := handshake.ToBytes(ch)
	hc.Transcript.Update(raw)

	return raw, nil
}

// ReadClientHello negotiates version and cipher suite, then consumes
// pre_shared_key and verifies its binder.
func ReadClientHello(hc *HandshakeContext, raw []byte) error {
	if hc.Role != RoleServer {
		return errors.New("not a server")
	}

	var ch handshake.ClientHello
	if err := handshake.FromBytes(raw, &ch); err != nil {
		return asAlert(errors.Wrap(err, "parsing client hello"), alert.DecodeError)
	}

	hc.Transcript.Update(raw)
	hc.ClientHello = &ch

	var versions extension.SupportedVersionsCH
	if err := ch.Extensions.Extract(&versions); err != nil ||
		!slices.Contains(versions.Versions, common.VersionTLS13) {
		return alert.NewError(errors.New("client doesn't support TLS 1.3"), alert.ProtocolVersion)
	}
	hc.Version = common.VersionTLS13

	suites := hc.server.opts.CipherSuites
	if len(suites) == 0 {
		suites = ciphersuite.Supported()
	}
	idx := slices.IndexFunc(suites, func(s ciphersuite.Suite) bool {
		return slices.Contains(ch.CipherSuites, s.ID())
	})
	if idx == -1 {
		return alert.NewError(errors.New("no cipher suite in common"), alert.HandshakeFailure)
	}
	hc.Suite = suites[idx]

	data, ok := ch.Extensions.Data(extension.TypePreSharedKey)
	if !ok {
		_, err := Dispatch(hc, extension.TypePreSharedKey, handshake.TypeClientHello, StageAbsent, nil)
		return err
	}

	if _, err := Dispatch(hc, extension.TypePreSharedKey, handshake.TypeClientHello, StageConsume, data); err != nil {
		return errors.Wrap(err, "consuming pre_shared_key")
	}

	if _, err := Dispatch(hc, extension.TypePreSharedKey, handshake.TypeClientHello, StageUpdate, nil); err != nil {
		return errors.Wrap(err, "checking pre_shared_key binder")
	}

	return nil
}

// WriteServerHello returns the framed ServerHello, echoing the selected identity.
func WriteServerHello(hc *HandshakeContext) ([]byte, error) {
	if hc.Role != RoleServer || hc.ClientHello == nil {
		return nil, errors.New("client hello hasn't been read")
	}

	sh := &handshake.ServerHello{
		Version:       common.VersionTLS12,
		SessionIDEcho: hc.ClientHello.SessionID,
		CipherSuite:   hc.Suite.ID(),
	}
	if _, err := rand.Read(sh.Random[:]); err != nil {
		return nil, errors.Wrap(err, "generating random")
	}
	sh.Extensions.Set(&extension.SupportedVersionsSH{SelectedVersion: hc.Version})

	hc.ServerHello = sh

	if _, err := Dispatch(hc, extension.TypePreSharedKey, handshake.TypeServerHello, StageProduce, nil); err != nil {
		return nil, errors.Wrap(err, "producing pre_shared_key")
	}

	raw := handshake.ToBytes(sh)
	if err := hc.Transcript.Determine(hc.Version, hc.Suite); err != nil {
		return nil, alert.NewError(errors.Wrap(err, "determining transcript hash"), alert.InternalError)
	}
	hc.Transcript.Update(raw)

	return raw, nil
}

// ReadServerHello learns whether the server accepted the offered pre-shared key.
func ReadServerHello(hc *HandshakeContext, raw []byte) error {
	if hc.Role != RoleClient || hc.ClientHello == nil {
		return errors.New("client hello hasn't been written")
	}

	var sh handshake.ServerHello
	if err := handshake.FromBytes(raw, &sh); err != nil {
		return asAlert(errors.Wrap(err, "parsing server hello"), alert.DecodeError)
	}
	hc.ServerHello = &sh

	var version extension.SupportedVersionsSH
	if err := sh.Extensions.Extract(&version); err != nil || version.SelectedVersion != common.VersionTLS13 {
		return alert.NewError(errors.New("server didn't select TLS 1.3"), alert.ProtocolVersion)
	}
	hc.Version = version.SelectedVersion

	suite, ok := ciphersuite.Get(sh.CipherSuite)
	if !ok || !slices.Contains(hc.ClientHello.CipherSuites, sh.CipherSuite) {
		return alert.NewError(
			errors.Errorf("server selected cipher suite %s which wasn't offered", sh.CipherSuite),
			alert.IllegalParameter,
		)
	}
	hc.Suite = suite

	if data, ok := sh.Extensions.Data(extension.TypePreSharedKey); ok {
		if _, err := Dispatch(hc, extension.TypePreSharedKey, handshake.TypeServerHello, StageConsume, data); err != nil {
			return errors.Wrap(err, "consuming pre_shared_key")
		}
	} else {
		if _, err := Dispatch(hc, extension.TypePreSharedKey, handshake.TypeServerHello, StageAbsent, nil); err != nil {
			return err
		}
	}

	if err := hc.Transcript.Determine(hc.Version, hc.Suite); err != nil {
		return alert.NewError(errors.Wrap(err, "determining transcript hash"), alert.InternalError)
	}
	hc.Transcript.Update(raw)

	return nil
}

// asAlert keeps an alert already carried by err.
func asAlert(err error, desc alert.Description) error {
	if _, ok := alert.DescriptionOf(err); ok {
		return err
	}
	return alert.NewError(err, desc)
}
