// Package signature holds signature scheme code points.
// Resumption only compares schemes, it never signs or verifies.
package signature

import "fmt"

// Reference: https://datatracker.ietf.org/doc/html/rfc8446#section-4.2.3
type Scheme uint16

func (s Scheme) String() string {
	if name, ok := names[s]; ok {
		return name
	}
	return fmt.Sprintf("0x%04x", uint16(s))
}

const (
	// RSASSA-PKCS1-v1.5 algorithms
	Scheme_RSA_PKCS1_SHA256 Scheme = 0x0401
	Scheme_RSA_PKCS1_SHA384 Scheme = 0x0501
	Scheme_RSA_PKCS1_SHA512 Scheme = 0x0601

	// ECDSA algorithms
	Scheme_ECDSA_Secp256r1_SHA256 Scheme = 0x0403
	Scheme_ECDSA_Secp384r1_SHA384 Scheme = 0x0503
	Scheme_ECDSA_Secp521r1_SHA512 Scheme = 0x0603

	// RSASSA-PSS algorithms with public key OID rsaEncryption
	Scheme_RSA_PSS_RSAE_SHA256 Scheme = 0x0804
	Scheme_RSA_PSS_RSAE_SHA384 Scheme = 0x0805
	Scheme_RSA_PSS_RSAE_SHA512 Scheme = 0x0806

	// EdDSA algorithms
	Scheme_Ed25519 Scheme = 0x0807
	Scheme_Ed448   Scheme = 0x0808

	// RSASSA-PSS algorithms with public key OID RSASSA-PSS
	Scheme_RSA_PSS_PSS_SHA256 Scheme = 0x0809
	Scheme_RSA_PSS_PSS_SHA384 Scheme = 0x080A
	Scheme_RSA_PSS_PSS_SHA512 Scheme = 0x080B

	// Legacy algorithms
	Scheme_RSA_PKCS1_SHA1 Scheme = 0x0201
	Scheme_ECDSA_SHA1     Scheme = 0x0203
)

var names = map[Scheme]string{
	Scheme_RSA_PKCS1_SHA256:       "rsa_pkcs1_sha256",
	Scheme_RSA_PKCS1_SHA384:       "rsa_pkcs1_sha384",
	Scheme_RSA_PKCS1_SHA512:       "rsa_pkcs1_sha512",
	Scheme_ECDSA_Secp256r1_SHA256: "ecdsa_secp256r1_sha256",
	Scheme_ECDSA_Secp384r1_SHA384: "ecdsa_secp384r1_sha384",
	Scheme_ECDSA_Secp521r1_SHA512: "ecdsa_secp521r1_sha512",
	Scheme_RSA_PSS_RSAE_SHA256:    "rsa_pss_rsae_sha256",
	Scheme_RSA_PSS_RSAE_SHA384:    "rsa_pss_rsae_sha384",
	Scheme_RSA_PSS_RSAE_SHA512:    "rsa_pss_rsae_sha512",
	Scheme_Ed25519:                "ed25519",
	Scheme_Ed448:                  "ed448",
	Scheme_RSA_PSS_PSS_SHA256:     "rsa_pss_pss_sha256",
	Scheme_RSA_PSS_PSS_SHA384:     "rsa_pss_pss_sha384",
	Scheme_RSA_PSS_PSS_SHA512:     "rsa_pss_pss_sha512",
	Scheme_RSA_PKCS1_SHA1:         "rsa_pkcs1_sha1",
	Scheme_ECDSA_SHA1:             "ecdsa_sha1",
}
