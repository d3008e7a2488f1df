package commands

import (
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
)

// decodeHex accepts whitespace and colons between bytes.
func decodeHex(name, s string) ([]byte, error) {
	s = strings.NewReplacer(" ", "", ":", "", "\n", "", "\t", "").Replace(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", name)
	}
	return b, nil
}
