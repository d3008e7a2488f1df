package extension

import (
	"psk-resumption/session/tls/common"
	"psk-resumption/session/tls/common/signature"

	"golang.org/x/crypto/cryptobyte"
)

// build panics only on length overflow, which the typed fields can't reach.
func build(f func(b *cryptobyte.Builder)) []byte {
	var b cryptobyte.Builder
	f(&b)
	return b.BytesOrPanic()
}

// Reference: https://datatracker.ietf.org/doc/html/rfc8446#section-4.2.1
type SupportedVersionsCH struct{ Versions []common.Version }

var _ Extension = (*SupportedVersionsCH)(nil)

func (s *SupportedVersionsCH) ExtensionType() ExtensionType { return TypeSupportedVersions }

func (s *SupportedVersionsCH) Data() []byte {
	return build(func(b *cryptobyte.Builder) {
		b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
			for _, v := range s.Versions {
				b.AddUint16(uint16(v))
			}
		})
	})
}

func (s *SupportedVersionsCH) Length() uint16 { return 1 + 2*uint16(len(s.Versions)) }

func (s *SupportedVersionsCH) fillFrom(raw rawExtension) error {
	in := cryptobyte.String(raw.data)

	var list cryptobyte.String
	if !in.ReadUint8LengthPrefixed(&list) || !in.Empty() || list.Empty() {
		return decodeError("invalid supported_versions extension")
	}

	var versions []common.Version
	for !list.Empty() {
		var v uint16
		if !list.ReadUint16(&v) {
			return decodeError("invalid supported_versions extension: odd length")
		}
		versions = append(versions, common.Version(v))
	}

	s.Versions = versions
	return nil
}

// Reference: https://datatracker.ietf.org/doc/html/rfc8446#section-4.2.1
type SupportedVersionsSH struct{ SelectedVersion common.Version }

var _ Extension = (*SupportedVersionsSH)(nil)

func (s *SupportedVersionsSH) ExtensionType() ExtensionType { return TypeSupportedVersions }
func (s *SupportedVersionsSH) Data() []byte                 { return s.SelectedVersion.Bytes() }
func (s *SupportedVersionsSH) Length() uint16               { return 2 }

func (s *SupportedVersionsSH) fillFrom(raw rawExtension) error {
	in := cryptobyte.String(raw.data)

	var v uint16
	if !in.ReadUint16(&v) || !in.Empty() {
		return decodeError("invalid supported_versions extension in server hello")
	}

	s.SelectedVersion = common.Version(v)
	return nil
}

// Reference: https://datatracker.ietf.org/doc/html/rfc8446#section-4.2.3
type SignatureAlgos struct {
	SupportedAlgos []signature.Scheme
}

var _ Extension = (*SignatureAlgos)(nil)

func (s *SignatureAlgos) ExtensionType() ExtensionType { return TypeSignatureAlgos }

func (s *SignatureAlgos) Data() []byte {
	return build(func(b *cryptobyte.Builder) {
		b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
			for _, scheme := range s.SupportedAlgos {
				b.AddUint16(uint16(scheme))
			}
		})
	})
}

func (s *SignatureAlgos) Length() uint16 { return 2 + 2*uint16(len(s.SupportedAlgos)) }

func (s *SignatureAlgos) fillFrom(raw rawExtension) error {
	in := cryptobyte.String(raw.data)

	var list cryptobyte.String
	if !in.ReadUint16LengthPrefixed(&list) || !in.Empty() || list.Empty() {
		return decodeError("invalid signature_algorithms extension")
	}

	var schemes []signature.Scheme
	for !list.Empty() {
		var scheme uint16
		if !list.ReadUint16(&scheme) {
			return decodeError("invalid signature_algorithms extension: odd length")
		}
		schemes = append(schemes, signature.Scheme(scheme))
	}

	s.SupportedAlgos = schemes
	return nil
}

// Reference: https://datatracker.ietf.org/doc/html/rfc6066#section-3
type ServerNameType uint8

const ServerNameTypeHostName ServerNameType = 0

type ServerName struct {
	NameType ServerNameType
	Name     []byte
}

type ServerNameList struct {
	ServerNameList []ServerName
}

var _ Extension = (*ServerNameList)(nil)

func (s *ServerNameList) ExtensionType() ExtensionType { return TypeServerName }

func (s *ServerNameList) Length() uint16 {
	l := uint16(2)
	for _, name := range s.ServerNameList {
		l += 1 + 2 + uint16(len(name.Name))
	}
	return l
}

func (s *ServerNameList) Data() []byte {
	return build(func(b *cryptobyte.Builder) {
		b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
			for _, name := range s.ServerNameList {
				b.AddUint8(uint8(name.NameType))
				b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
					b.AddBytes(name.Name)
				})
			}
		})
	})
}

func (s *ServerNameList) fillFrom(raw rawExtension) error {
	in := cryptobyte.String(raw.data)

	var list cryptobyte.String
	if !in.ReadUint16LengthPrefixed(&list) || !in.Empty() {
		return decodeError("invalid server_name extension")
	}

	var names []ServerName
	for !list.Empty() {
		var nameType uint8
		var name cryptobyte.String
		if !list.ReadUint8(&nameType) || !list.ReadUint16LengthPrefixed(&name) || name.Empty() {
			return decodeError("invalid server_name extension: bad entry")
		}
		names = append(names, ServerName{
			NameType: ServerNameType(nameType),
			Name:     append([]byte(nil), name...),
		})
	}

	s.ServerNameList = names
	return nil
}
