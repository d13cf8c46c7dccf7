package ports

import (
	"context"

	"scsim/domain/core"
	"scsim/domain/sim"
)

// RunRecord is the stored form of a completed simulation run: the parameter
// echo, the manifest, the ground-truth table, and the rendered report. The
// count matrix itself is exported to files, not persisted here.
type RunRecord struct {
	ID        core.RunID      `json:"id" db:"id"`
	Label     string          `json:"label,omitempty" db:"label"`
	Params    sim.Params      `json:"params"`
	Manifest  sim.RunManifest `json:"manifest"`
	Truth     []sim.GeneTruth `json:"truth,omitempty"`
	Report    string          `json:"report,omitempty"`
	CreatedAt core.Timestamp  `json:"created_at" db:"created_at"`
}

// RunRepository defines storage for simulation run records.
type RunRepository interface {
	// Save persists a record, replacing any record with the same ID.
	Save(ctx context.Context, rec *RunRecord) error
	// Get returns the full record, truth included.
	Get(ctx context.Context, id core.RunID) (*RunRecord, error)
	// List returns records newest first, without the truth table.
	List(ctx context.Context, limit, offset int) ([]*RunRecord, error)
	// Delete removes a record and its truth rows.
	Delete(ctx context.Context, id core.RunID) error
}
