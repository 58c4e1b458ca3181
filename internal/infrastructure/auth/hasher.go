package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// BcryptKeyHasher hashes and verifies operator API keys. Only the
// bcrypt hash lives in config; the plaintext key is shown once at
// provisioning time and never stored.
type BcryptKeyHasher struct {
	cost int
}

// NewBcryptKeyHasher creates a hasher, clamping out-of-range costs to
// the bcrypt default.
func NewBcryptKeyHasher(cost int) *BcryptKeyHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptKeyHasher{cost: cost}
}

// Hash produces the bcrypt hash of a freshly provisioned key.
func (h *BcryptKeyHasher) Hash(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to generate hash: %w", err)
	}
	return string(hash), nil
}

// Verify checks a presented key against the stored hash.
func (h *BcryptKeyHasher) Verify(secret, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		// Generic message regardless of cause so callers cannot
		// distinguish a bad secret from a malformed hash.
		return fmt.Errorf("verification failed")
	}
	return nil
}
