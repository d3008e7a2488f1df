package psk

import (
	"crypto/hmac"
	"psk-resumption/session/tls/common/ciphersuite"
	"psk-resumption/session/tls/common/session"
	"psk-resumption/session/tls/internal/alert"
	"psk-resumption/session/tls/internal/util/hkdf"

	"github.com/pkg/errors"
)

// DeriveBinderKey derives "res binder" (or "ext binder") from the early secret of psk.
// Reference: https://datatracker.ietf.org/doc/html/rfc8446#section-7.1
func DeriveBinderKey(suite ciphersuite.Suite, t session.PSKType, psk []byte) ([]byte, error) {
	if !suite.Hash().Available() {
		return nil, alert.NewError(
			errors.Wrapf(hkdf.ErrHashUnavailable, "suite %s", suite.Name()),
			alert.InternalError,
		)
	}

	if t == "" {
		t = session.PSKTypeResumption
	}

	earlySecret, err := hkdf.Extract(suite, psk, nil)
	if err != nil {
		return nil, alert.NewError(errors.Wrap(err, "extracting early secret"), alert.InternalError)
	}

	emptyHash := suite.Hash().New().Sum(nil)

	binderKey, err := hkdf.DeriveSecret(suite, earlySecret, string(t)+" binder", emptyHash)
	if err != nil {
		return nil, alert.NewError(errors.Wrap(err, "deriving binder key"), alert.InternalError)
	}

	return binderKey, nil
}

// ComputeBinder is the finished MAC over digest keyed by binderKey.
// Reference: https://datatracker.ietf.org/doc/html/rfc8446#section-4.4.4
func ComputeBinder(suite ciphersuite.Suite, binderKey, digest []byte) ([]byte, error) {
	finishedKey, err := hkdf.ExpandLabel(suite, binderKey, "finished", "", suite.Hash().Size())
	if err != nil {
		return nil, alert.NewError(errors.Wrap(err, "expanding finished key"), alert.InternalError)
	}

	mac := hmac.New(suite.Hash().New, finishedKey)
	mac.Write(digest)

	return mac.Sum(nil), nil
}

// Binder derives the binder key and computes the binder in one go.
func Binder(suite ciphersuite.Suite, t session.PSKType, psk, digest []byte) ([]byte, error) {
	binderKey, err := DeriveBinderKey(suite, t, psk)
	if err != nil {
		return nil, err
	}

	return ComputeBinder(suite, binderKey, digest)
}

var ErrBinderMismatch = errors.New("incorrect PSK binder value")

// VerifyBinder compares in constant time.
func VerifyBinder(sess *session.Session, digest, received []byte) error {
	expected, err := Binder(sess.CipherSuite, sess.Type, sess.PreSharedKey, digest)
	if err != nil {
		return errors.Wrap(err, "computing expected binder")
	}

	if !hmac.Equal(expected, received) {
		return alert.NewError(ErrBinderMismatch, alert.IllegalParameter)
	}

	return nil
}
