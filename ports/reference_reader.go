package ports

import (
	"context"

	"scsim/domain/sim"
)

// ReferenceReader loads a fitted reference dataset from a backing store.
// Implementations validate structure before returning.
type ReferenceReader interface {
	Load(ctx context.Context) (*sim.Reference, error)
}
