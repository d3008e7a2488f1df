package extension

import (
	"psk-resumption/session/tls/common/session"
	"psk-resumption/session/tls/internal/alert"
	"strconv"

	"github.com/pkg/errors"
	"golang.org/x/crypto/cryptobyte"
)

// Reference: https://datatracker.ietf.org/doc/html/rfc8446#section-4.2.9
type PskKeyExchangeModes struct {
	KeModes []session.PSKMode
}

var _ Extension = (*PskKeyExchangeModes)(nil)

func (k *PskKeyExchangeModes) ExtensionType() ExtensionType {
	return TypePskKeyExchangeModes
}

func (k *PskKeyExchangeModes) Data() []byte {
	return build(func(b *cryptobyte.Builder) {
		b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
			for _, mode := range k.KeModes {
				b.AddUint8(uint8(mode))
			}
		})
	})
}

func (k *PskKeyExchangeModes) Length() uint16 {
	return 1 + uint16(len(k.KeModes))
}

func (k *PskKeyExchangeModes) fillFrom(raw rawExtension) error {
	in := cryptobyte.String(raw.data)

	var modes cryptobyte.String
	if !in.ReadUint8LengthPrefixed(&modes) || !in.Empty() || modes.Empty() {
		return decodeError("invalid psk_key_exchange_modes extension")
	}

	k.KeModes = make([]session.PSKMode, len(modes))
	for i, mode := range modes {
		k.KeModes[i] = session.PSKMode(mode)
	}
	return nil
}

// Minimum encodings of the pre_shared_key extension in a ClientHello.
const (
	// One identity of one byte and one 32 byte binder.
	minPreSharedKeyLength = 2 + minIdentitiesLength + minBindersDataLength

	// 2 byte identity length, 1 byte identity, 4 byte age.
	minIdentitiesLength = 7

	// 2 byte list length and one binder.
	minBindersDataLength = 2 + minBindersLength

	// 1 byte binder length and 32 byte binder.
	minBindersLength = 1 + minBinderLength

	minBinderLength = 32
)

// Reference: https://datatracker.ietf.org/doc/html/rfc8446#section-4.2.11
type PreSharedKeyCH struct {
	Identities []PSKIdentity
	Binders    []PSKBinderEntry
}

type PSKIdentity struct {
	Identity            []byte
	ObfuscatedTicketAge uint32
}

type PSKBinderEntry []byte

var _ Extension = (*PreSharedKeyCH)(nil)

func (p *PreSharedKeyCH) ExtensionType() ExtensionType { return TypePreSharedKey }

func (p *PreSharedKeyCH) Data() []byte {
	var b cryptobyte.Builder
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
		for _, identity := range p.Identities {
			b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
				b.AddBytes(identity.Identity)
			})
			b.AddUint32(identity.ObfuscatedTicketAge)
		}
	})
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
		for _, binder := range p.Binders {
			b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
				b.AddBytes(binder)
			})
		}
	})

	return b.BytesOrPanic()
}

func (p *PreSharedKeyCH) Length() uint16 {
	return p.IdentitiesLength() + p.BindersLength()
}

// IdentitiesLength includes its own length field.
func (p *PreSharedKeyCH) IdentitiesLength() uint16 {
	l := uint16(2)
	for _, identity := range p.Identities {
		l += 2 + uint16(len(identity.Identity)) + 4
	}
	return l
}

// BindersLength includes its own length field.
// It is the number of bytes a partial ClientHello leaves out.
func (p *PreSharedKeyCH) BindersLength() uint16 {
	l := uint16(2)
	for _, binder := range p.Binders {
		l += 1 + uint16(len(binder))
	}
	return l
}

func decodeError(msg string) error {
	return alert.NewError(errors.New(msg), alert.DecodeError)
}

func (p *PreSharedKeyCH) fillFrom(raw rawExtension) error {
	in := cryptobyte.String(raw.data)
	if len(in) < minPreSharedKeyLength {
		return decodeError("invalid pre_shared_key extension: insufficient data")
	}

	var idsLen uint16
	var ids cryptobyte.String
	if !in.ReadUint16(&idsLen) || idsLen < minIdentitiesLength {
		return decodeError("invalid pre_shared_key extension: insufficient identities")
	}
	if !in.ReadBytes((*[]byte)(&ids), int(idsLen)) {
		return decodeError("invalid pre_shared_key extension: insufficient data")
	}

	var identities []PSKIdentity
	for !ids.Empty() {
		var identity cryptobyte.String
		var ticketAge uint32
		if !ids.ReadUint16LengthPrefixed(&identity) || len(identity) < 1 {
			return decodeError("invalid pre_shared_key extension: insufficient identity")
		}
		if !ids.ReadUint32(&ticketAge) {
			return decodeError("invalid pre_shared_key extension: insufficient identity")
		}

		identities = append(identities, PSKIdentity{
			Identity:            append([]byte(nil), identity...),
			ObfuscatedTicketAge: ticketAge,
		})
	}

	if len(in) < minBindersDataLength {
		return decodeError("invalid pre_shared_key extension: insufficient binders data")
	}

	var bindersLen uint16
	var bs cryptobyte.String
	if !in.ReadUint16(&bindersLen) || bindersLen < minBindersLength {
		return decodeError("invalid pre_shared_key extension: insufficient binders")
	}
	if !in.ReadBytes((*[]byte)(&bs), int(bindersLen)) {
		return decodeError("invalid pre_shared_key extension: insufficient binders data")
	}

	var binders []PSKBinderEntry
	for !bs.Empty() {
		var binder cryptobyte.String
		if !bs.ReadUint8LengthPrefixed(&binder) || len(binder) < minBinderLength {
			return decodeError("invalid pre_shared_key extension: insufficient binder entry")
		}
		binders = append(binders, PSKBinderEntry(append([]byte(nil), binder...)))
	}

	if !in.Empty() {
		return decodeError("invalid pre_shared_key extension: trailing data")
	}

	p.Identities = identities
	p.Binders = binders
	return nil
}

// Reference: https://datatracker.ietf.org/doc/html/rfc8446#section-4.2.11
type PreSharedKeySH struct {
	SelectedIdentity uint16
}

var _ Extension = (*PreSharedKeySH)(nil)

func (p *PreSharedKeySH) ExtensionType() ExtensionType { return TypePreSharedKey }
func (p *PreSharedKeySH) Data() []byte {
	return build(func(b *cryptobyte.Builder) { b.AddUint16(p.SelectedIdentity) })
}
func (p *PreSharedKeySH) Length() uint16               { return 2 }
func (p *PreSharedKeySH) fillFrom(raw rawExtension) error {
	in := cryptobyte.String(raw.data)
	if !in.ReadUint16(&p.SelectedIdentity) {
		return decodeError("invalid pre_shared_key extension: insufficient selected_identity (length=" +
			strconv.Itoa(len(raw.data)) + ")")
	}

	return nil
}
