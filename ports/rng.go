package ports

import (
	"context"
	"math/rand"
)

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// Stream creates a deterministic RNG stream for one work unit.
	// The same (unitID, baseSeed) always yields the same sequence, whatever
	// study the unit runs in.
	Stream(ctx context.Context, unitID string, baseSeed int64) (*rand.Rand, error)

	// DeriveSeed returns the seed Stream would use.
	DeriveSeed(unitID string, baseSeed int64) int64
}
