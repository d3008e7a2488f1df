package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemeString(t *testing.T) {
	assert.Equal(t, "ed25519", Scheme_Ed25519.String())
	assert.Equal(t, "0xfe00", Scheme(0xFE00).String())
}
