// Package transcript keeps the handshake transcript hash.
// Reference: https://datatracker.ietf.org/doc/html/rfc8446#section-4.4.1
package transcript

import (
	"crypto"
	"psk-resumption/lib/ds/stack"
	"psk-resumption/session/tls/common"
	"psk-resumption/session/tls/common/ciphersuite"

	"github.com/pkg/errors"
)

var (
	ErrUndetermined    = errors.New("hash algorithm is not determined yet")
	ErrUnsupported     = errors.New("transcript hash is not supported")
	ErrAlreadyDecided  = errors.New("hash algorithm is already determined")
	ErrNothingReceived = errors.New("no message to remove")
)

// Transcript is a log of framed handshake messages.
// The digest is computed by feeding the log to a fresh hash, so forks never
// share hash state.
type Transcript struct {
	hash     crypto.Hash
	messages *stack.Stack[[]byte]
}

func New() *Transcript {
	return &Transcript{messages: stack.New[[]byte](8)}
}

// Determine selects the hash algorithm. Only TLS 1.3 is supported.
// Determining the same algorithm again is a no-op.
func (t *Transcript) Determine(version common.Version, suite ciphersuite.Suite) error {
	if version != common.VersionTLS13 {
		return errors.Wrapf(ErrUnsupported, "version %s", version)
	}

	h := suite.Hash()
	if !h.Available() {
		return errors.Wrapf(ErrUnsupported, "hash of %s is unavailable", suite.Name())
	}

	if t.hash != 0 && t.hash != h {
		return errors.Wrapf(ErrAlreadyDecided, "determined %s, got %s", t.hash, h)
	}

	t.hash = h
	return nil
}

func (t *Transcript) Determined() bool { return t.hash != 0 }

func (t *Transcript) Hash() crypto.Hash { return t.hash }

// Update appends a framed handshake message.
func (t *Transcript) Update(msg []byte) {
	t.messages.Push(append([]byte(nil), msg...))
}

// Fork returns an independent copy.
func (t *Transcript) Fork() *Transcript {
	return &Transcript{
		hash:     t.hash,
		messages: t.messages.Clone(),
	}
}

// PopLast removes the most recently appended message and returns it.
func (t *Transcript) PopLast() ([]byte, error) {
	msg, err := t.messages.Pop()
	if errors.Is(err, stack.ErrStackEmpty) {
		return nil, ErrNothingReceived
	}
	if err != nil {
		return nil, errors.Wrap(err, "popping message")
	}
	return msg, nil
}

func (t *Transcript) Len() int { return int(t.messages.Len()) }

func (t *Transcript) Digest() ([]byte, error) {
	if t.hash == 0 {
		return nil, ErrUndetermined
	}

	h := t.hash.New()
	for _, msg := range t.messages.Data() {
		h.Write(msg)
	}

	return h.Sum(nil), nil
}
