package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBcryptKeyHasher_RoundTrip(t *testing.T) {
	hasher := NewBcryptKeyHasher(4)

	hash, err := hasher.Hash("sk_live_operator_key")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	assert.NoError(t, hasher.Verify("sk_live_operator_key", hash))
	assert.Error(t, hasher.Verify("sk_live_wrong_key", hash))
}

func TestBcryptKeyHasher_ClampsInvalidCost(t *testing.T) {
	hasher := NewBcryptKeyHasher(99)

	hash, err := hasher.Hash("secret")
	require.NoError(t, err)
	assert.NoError(t, hasher.Verify("secret", hash))
}
