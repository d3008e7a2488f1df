package psk

import (
	"psk-resumption/session/tls/internal/handshake/extension"

	"github.com/pkg/errors"
)

// OfferedIdentity pairs an identity with its binder.
type OfferedIdentity struct {
	Identity            []byte
	ObfuscatedTicketAge uint32
	Binder              []byte
}

// DecodeOffer parses the body of a ClientHello pre_shared_key extension.
func DecodeOffer(data []byte) ([]OfferedIdentity, error) {
	var offer extension.PreSharedKeyCH
	if err := extension.Decode(&offer, data); err != nil {
		return nil, errors.Wrap(err, "decoding pre_shared_key")
	}

	if len(offer.Identities) != len(offer.Binders) {
		return nil, errors.Errorf("%d identities but %d binders", len(offer.Identities), len(offer.Binders))
	}

	out := make([]OfferedIdentity, len(offer.Identities))
	for i, identity := range offer.Identities {
		out[i] = OfferedIdentity{
			Identity:            identity.Identity,
			ObfuscatedTicketAge: identity.ObfuscatedTicketAge,
			Binder:              offer.Binders[i],
		}
	}
	return out, nil
}
