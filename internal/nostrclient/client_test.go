package nostrclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSignerFromHex(t *testing.T) {
	signer, err := LoadSigner("5ee1c8000ab28edd64d74a7d951bbc77b53b77b68b0a3b8f7f6c1c8a9e0f0a10")
	require.NoError(t, err)
	pub, err := signer.PublicKey()
	require.NoError(t, err)
	assert.Len(t, pub, 64)
}

func TestLoadSignerRejectsEmpty(t *testing.T) {
	_, err := LoadSigner("")
	assert.Error(t, err)
}

func TestLoadSignerRejectsMalformedHex(t *testing.T) {
	_, err := LoadSigner("not-a-valid-key")
	assert.Error(t, err)
}

func TestLoadSignerRejectsWrongLength(t *testing.T) {
	_, err := LoadSigner("abcd")
	assert.Error(t, err)
}
