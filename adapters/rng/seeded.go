package rng

import (
	"context"
	"math/rand"

	"idstat/ports"
)

// SeededAdapter implements ports.RNGPort with math/rand sources derived from
// a djb2 hash of the unit identity. Study IDs never feed a seed.
type SeededAdapter struct{}

// NewSeededAdapter creates a new seeded RNG adapter
func NewSeededAdapter() ports.RNGPort {
	return &SeededAdapter{}
}

// Stream creates a deterministic RNG stream for one unit
func (r *SeededAdapter) Stream(ctx context.Context, unitID string, baseSeed int64) (*rand.Rand, error) {
	return rand.New(rand.NewSource(r.DeriveSeed(unitID, baseSeed))), nil
}

// DeriveSeed mixes the unit identity into baseSeed.
func (r *SeededAdapter) DeriveSeed(unitID string, baseSeed int64) int64 {
	seed := baseSeed
	if unitID != "" {
		seed = int64(hashString(unitID))*31 + seed
	}
	return seed
}

// hashString creates a simple hash for deterministic seeding
func hashString(s string) uint32 {
	var hash uint32 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint32(c) // djb2 algorithm
	}
	return hash
}
