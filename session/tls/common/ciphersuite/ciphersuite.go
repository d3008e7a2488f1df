package ciphersuite

import (
	"crypto"
	"fmt"
	sliceutil "psk-resumption/lib/slice"
	"strings"

	_ "crypto/sha256" // registers SHA-256 for crypto.Hash.
	_ "crypto/sha512" // registers SHA-384 for crypto.Hash.
)

type ID [2]uint8

func (id ID) Bytes() []byte {
	return id[:]
}

func (id ID) String() string {
	if s, ok := Get(id); ok {
		return s.name
	}
	return fmt.Sprintf("0x%02x%02x", id[0], id[1])
}

// Suite only carries what key derivation needs.
// Record protection is handled by the connection.
type Suite struct {
	id   ID
	name string
	hash crypto.Hash
}

func (s Suite) ID() ID            { return s.id }
func (s Suite) Name() string      { return s.name }
func (s Suite) Hash() crypto.Hash { return s.hash }

func NewSuite(id ID, name string, hash crypto.Hash) Suite {
	return Suite{
		id:   id,
		name: name,
		hash: hash,
	}
}

var suites = make(map[ID]Suite)

func register(s Suite) ID { suites[s.ID()] = s; return s.ID() }

func Get(id ID) (Suite, bool) {
	s, ok := suites[id]
	return s, ok
}

// ByName accepts IANA names, case-insensitively.
func ByName(name string) (Suite, bool) {
	for _, s := range suites {
		if strings.EqualFold(s.name, name) {
			return s, true
		}
	}
	return Suite{}, false
}

func AsIDs(suites []Suite) []ID {
	return sliceutil.Map(suites, func(suite Suite) ID {
		return suite.ID()
	})
}

// Reference: https://datatracker.ietf.org/doc/html/rfc8446#appendix-B.4
var (
	TLS_AES_128_GCM_SHA256       = register(Suite{ID{0x13, 0x01}, "TLS_AES_128_GCM_SHA256", crypto.SHA256})
	TLS_AES_256_GCM_SHA384       = register(Suite{ID{0x13, 0x02}, "TLS_AES_256_GCM_SHA384", crypto.SHA384})
	TLS_CHACHA20_POLY1305_SHA256 = register(Suite{ID{0x13, 0x03}, "TLS_CHACHA20_POLY1305_SHA256", crypto.SHA256})

	TLS_AES_128_CCM_SHA256   = ID{0x13, 0x04} // NOTE: Unimplemented in stdlib.
	TLS_AES_128_CCM_8_SHA256 = ID{0x13, 0x05} // NOTE: Unimplemented in stdlib.
)

// Supported returns the registered suites in preference order.
func Supported() []Suite {
	out := make([]Suite, 0, 3)
	for _, id := range []ID{TLS_AES_128_GCM_SHA256, TLS_CHACHA20_POLY1305_SHA256, TLS_AES_256_GCM_SHA384} {
		out = append(out, suites[id])
	}
	return out
}
