package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersion(t *testing.T) {
	assert.Equal(t, []byte{0x03, 0x04}, VersionTLS13.Bytes())
	assert.Equal(t, "TLS 1.3", VersionTLS13.String())
	assert.Equal(t, "TLS 1.2", VersionTLS12.String())
	assert.Equal(t, "0x0300", Version(0x0300).String())
}
