// Package password hashes and verifies account secrets with bcrypt.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultCost = 12
	minCost     = 10
)

type Hasher struct {
	cost int
}

// NewHasher builds a hasher with the given work factor. Costs below the
// floor are raised to it.
func NewHasher(cost int) *Hasher {
	if cost < minCost {
		cost = minCost
	}
	return &Hasher{cost: cost}
}

func (h *Hasher) Hash(plain string) ([]byte, error) {
	const op = "password.Hash"

	digest, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return digest, nil
}

// Verify reports whether plain matches digest. Malformed or empty digests
// (OAuth-only accounts have none) are a clean non-match.
func (h *Hasher) Verify(plain string, digest []byte) bool {
	return bcrypt.CompareHashAndPassword(digest, []byte(plain)) == nil
}
