package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/solang-dev/solang-keys/src/models"
)

// KeyGenerator produces candidate credential values. An interface so tests
// can force collisions; production uses the crypto/rand generator below.
type KeyGenerator interface {
	Generate() (string, error)
}

// randomKeyGenerator draws 32 random bytes (256 bits) and hex-encodes them
// behind the literal prefix, so values are URL-safe and printable.
type randomKeyGenerator struct{}

// NewKeyGenerator returns the production key generator.
func NewKeyGenerator() KeyGenerator {
	return randomKeyGenerator{}
}

// Generate returns a new candidate key value. Uniqueness is not guaranteed
// here; the store's uniqueness constraint is the authority and creation
// retries on collision.
func (randomKeyGenerator) Generate() (string, error) {
	keyBytes := make([]byte, 32)
	if _, err := rand.Read(keyBytes); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return models.KeyPrefix + hex.EncodeToString(keyBytes), nil
}
