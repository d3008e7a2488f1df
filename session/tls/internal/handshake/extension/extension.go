package extension

import (
	"bytes"
	"encoding/binary"
	"io"
	"psk-resumption/session/tls/common"
	"psk-resumption/session/tls/internal/util"
	"slices"
	"strconv"

	"github.com/pkg/errors"
)

type ExtensionType uint16

const (
	TypeServerName          ExtensionType = 0
	TypeSupportedGroups     ExtensionType = 10
	TypeSignatureAlgos      ExtensionType = 13
	TypeALPN                ExtensionType = 16 // Application Layer Protocol Negotiation.
	TypePreSharedKey        ExtensionType = 41
	TypeEarlyData           ExtensionType = 42
	TypeSupportedVersions   ExtensionType = 43
	TypeCookie              ExtensionType = 44
	TypePskKeyExchangeModes ExtensionType = 45
	TypeSignatureAlgosCert  ExtensionType = 50
	TypeKeyShare            ExtensionType = 51
)

var typeNames = map[ExtensionType]string{
	TypeServerName:          "server_name",
	TypeSupportedGroups:     "supported_groups",
	TypeSignatureAlgos:      "signature_algorithms",
	TypeALPN:                "application_layer_protocol_negotiation",
	TypePreSharedKey:        "pre_shared_key",
	TypeEarlyData:           "early_data",
	TypeSupportedVersions:   "supported_versions",
	TypeCookie:              "cookie",
	TypePskKeyExchangeModes: "psk_key_exchange_modes",
	TypeSignatureAlgosCert:  "signature_algorithms_cert",
	TypeKeyShare:            "key_share",
}

func (e ExtensionType) String() string {
	if name, ok := typeNames[e]; ok {
		return name
	}
	return "unknown(" + strconv.Itoa(int(e)) + ")"
}

func (e ExtensionType) Bytes() []byte {
	b := make([]byte, 2)
	b[0] = uint8(e >> 8)
	b[1] = uint8(e)
	return b
}

// Reference: https://datatracker.ietf.org/doc/html/rfc8446#section-4.2
type Extension interface {
	ExtensionType() ExtensionType
	Length() uint16 // Length of data.
	Data() []byte

	fillFrom(raw rawExtension) error
}

// Extensions keeps extensions in wire order.
type Extensions struct{ raws []rawExtension }

type rawExtension struct {
	t      ExtensionType
	length uint16
	data   []byte
}

var _ util.VectorConv = rawExtension{}

func (r rawExtension) Bytes() []byte {
	buf := bytes.NewBuffer(nil)

	buf.Write(r.t.Bytes())
	buf.Write(util.ToBigEndianBytes(uint(r.length), 2))
	buf.Write(r.data)

	return buf.Bytes()
}

func (r rawExtension) FromBytes(b []byte) (out util.VectorConv, rest []byte, err error) {
	if len(b) < 2 {
		return nil, nil, common.ErrNeedMoreBytes
	}

	r.t = ExtensionType(binary.BigEndian.Uint16(b[0:2]))
	rest = b[2:]

	r.data, rest, err = util.FromVectorOpaque(2, rest, true)
	if err != nil {
		return nil, nil, errors.Wrap(err, "reading extension data")
	}
	r.length = uint16(len(r.data))

	return r, rest, nil
}

// Decode fills ext from extension data, without the type and length header.
func Decode(ext Extension, data []byte) error {
	return ext.fillFrom(rawExtension{
		t:      ext.ExtensionType(),
		length: uint16(len(data)),
		data:   data,
	})
}

func toRaw(ext Extension) rawExtension {
	return rawExtension{
		t:      ext.ExtensionType(),
		length: ext.Length(),
		data:   ext.Data(),
	}
}

func ExtensionsFrom(exts ...Extension) Extensions {
	var e Extensions
	for _, ext := range exts {
		e.Set(ext)
	}
	return e
}

var ErrDuplicateExtension = errors.New("duplicate extension")

// ExtensionsFromRaw parses a length-prefixed extension list.
func ExtensionsFromRaw(b []byte) (Extensions, error) {
	extensions, _, err := util.FromVector[rawExtension](2, b, false)
	if err != nil {
		return Extensions{}, errors.Wrap(err, "parsing extensions")
	}

	seen := make(map[ExtensionType]struct{}, len(extensions))
	for _, raw := range extensions {
		if _, ok := seen[raw.t]; ok {
			return Extensions{}, errors.Wrapf(ErrDuplicateExtension, "type %s", raw.t)
		}
		seen[raw.t] = struct{}{}
	}

	return Extensions{raws: extensions}, nil
}

// Length doesn't include the length of the length field (2 bytes) .
func (e Extensions) Length() (l uint16) {
	for _, ext := range e.raws {
		l += 4 // extension type + length bytes.
		l += ext.length
	}
	return
}

func (e Extensions) Len() int { return len(e.raws) }

func (e Extensions) Types() []ExtensionType {
	types := make([]ExtensionType, len(e.raws))
	for i, raw := range e.raws {
		types[i] = raw.t
	}
	return types
}

func (e Extensions) WriteTo(w io.Writer) (n int64, err error) {
	buf := bytes.NewBuffer(nil)

	// Write total length.
	buf.Write(util.ToBigEndianBytes(uint(e.Length()), 2))

	for _, raw := range e.raws {
		buf.Write(raw.Bytes())
	}

	return buf.WriteTo(w)
}

// WritePartialTo writes the extensions the way they appear on the wire,
// but stops right after the identities of the last pre_shared_key extension.
// Length fields still account for the binders.
// Reference: https://datatracker.ietf.org/doc/html/rfc8446#section-4.2.11.2
func (e Extensions) WritePartialTo(w io.Writer) (n int64, err error) {
	if len(e.raws) == 0 || e.raws[len(e.raws)-1].t != TypePreSharedKey {
		return 0, errors.New("pre_shared_key is not the last extension")
	}

	last := e.raws[len(e.raws)-1]

	var psk PreSharedKeyCH
	if err := psk.fillFrom(last); err != nil {
		return 0, errors.Wrap(err, "reading pre_shared_key")
	}

	buf := bytes.NewBuffer(nil)
	buf.Write(util.ToBigEndianBytes(uint(e.Length()), 2))

	for _, raw := range e.raws[:len(e.raws)-1] {
		buf.Write(raw.Bytes())
	}

	buf.Write(last.t.Bytes())
	buf.Write(util.ToBigEndianBytes(uint(last.length), 2))
	buf.Write(last.data[:len(last.data)-int(psk.BindersLength())])

	return buf.WriteTo(w)
}

var ErrNoMatchingExtension = errors.New("no matching extension")

func (e Extensions) Extract(v Extension) error {
	for _, raw := range e.raws {
		if raw.t == v.ExtensionType() {
			return v.fillFrom(raw)
		}
	}

	return ErrNoMatchingExtension
}

// Data returns the data of the extension of type t.
func (e Extensions) Data(t ExtensionType) ([]byte, bool) {
	for _, raw := range e.raws {
		if raw.t == t {
			return raw.data, true
		}
	}
	return nil, false
}

func (e Extensions) Clone() Extensions {
	return Extensions{raws: slices.Clone(e.raws)}
}

// Set replaces the extension of the same type, or adds it.
// A new extension goes in front of pre_shared_key, which always stays last.
func (e *Extensions) Set(v Extension) {
	input := toRaw(v)

	for idx, raw := range e.raws {
		if raw.t == input.t {
			e.raws[idx] = input
			return
		}
	}

	// Not Found.
	if idx := e.Index(TypePreSharedKey); idx != -1 {
		e.raws = slices.Insert(e.raws, idx, input)
		return
	}
	e.raws = append(e.raws, input)
}

func (e *Extensions) Remove(t ExtensionType) (found bool) {
	for idx := 0; idx < len(e.raws); idx++ {
		raw := e.raws[idx]
		if raw.t == t {
			e.raws = append(e.raws[:idx], e.raws[idx+1:]...)
			return true
		}
	}

	return false
}

func (e *Extensions) Has(t ExtensionType) bool {
	return e.Index(t) != -1
}

func (e *Extensions) Index(t ExtensionType) int {
	return slices.IndexFunc(e.raws,
		func(ext rawExtension) bool {
			return ext.t == t
		},
	)
}
