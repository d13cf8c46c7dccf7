package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"scsim/domain/core"
	"scsim/domain/sim"
	"scsim/ports"
)

// runRepository implements the RunRepository interface
type runRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &runRepository{db: db}
}

// EnsureSchema creates the simulation run tables if they do not exist
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS sim_runs (
			id UUID PRIMARY KEY,
			label TEXT,
			params JSONB NOT NULL,
			manifest JSONB NOT NULL,
			truth JSONB,
			report TEXT,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create sim_runs table: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_sim_runs_created_at ON sim_runs(created_at DESC)
	`)
	if err != nil {
		return fmt.Errorf("failed to create sim_runs index: %w", err)
	}
	return nil
}

// Save stores a run record, replacing any previous record with the same ID
func (r *runRepository) Save(ctx context.Context, rec *ports.RunRecord) error {
	if rec == nil {
		return core.NewArgumentError("record", "must not be nil")
	}

	paramsJSON, err := json.Marshal(rec.Params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}
	manifestJSON, err := json.Marshal(rec.Manifest)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	truthJSON, err := json.Marshal(rec.Truth)
	if err != nil {
		return fmt.Errorf("failed to marshal truth: %w", err)
	}

	query := `INSERT INTO sim_runs (id, label, params, manifest, truth, report, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			label = EXCLUDED.label,
			params = EXCLUDED.params,
			manifest = EXCLUDED.manifest,
			truth = EXCLUDED.truth,
			report = EXCLUDED.report,
			created_at = EXCLUDED.created_at`

	_, err = r.db.ExecContext(ctx, query,
		rec.ID, rec.Label, paramsJSON, manifestJSON, truthJSON, rec.Report, rec.CreatedAt.Time(),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// Get retrieves a full run record including the truth table
func (r *runRepository) Get(ctx context.Context, id core.RunID) (*ports.RunRecord, error) {
	query := `SELECT id, COALESCE(label, '') as label, params, manifest, truth, COALESCE(report, '') as report, created_at
		FROM sim_runs WHERE id = $1`

	var rec ports.RunRecord
	var paramsJSON, manifestJSON, truthJSON []byte
	var createdAt time.Time

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.Label, &paramsJSON, &manifestJSON, &truthJSON, &rec.Report, &createdAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	rec.CreatedAt = core.NewTimestamp(createdAt)

	if err := unmarshalRun(&rec, paramsJSON, manifestJSON, truthJSON); err != nil {
		return nil, err
	}
	return &rec, nil
}

// List retrieves run records newest first, without the truth tables
func (r *runRepository) List(ctx context.Context, limit, offset int) ([]*ports.RunRecord, error) {
	query := `SELECT id, COALESCE(label, '') as label, params, manifest, COALESCE(report, '') as report, created_at
		FROM sim_runs
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var records []*ports.RunRecord
	for rows.Next() {
		var rec ports.RunRecord
		var paramsJSON, manifestJSON []byte
		var createdAt time.Time

		if err := rows.Scan(&rec.ID, &rec.Label, &paramsJSON, &manifestJSON, &rec.Report, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		rec.CreatedAt = core.NewTimestamp(createdAt)
		if err := unmarshalRun(&rec, paramsJSON, manifestJSON, nil); err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return records, nil
}

// Delete removes a run record
func (r *runRepository) Delete(ctx context.Context, id core.RunID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sim_runs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
	}
	return nil
}

func unmarshalRun(rec *ports.RunRecord, paramsJSON, manifestJSON, truthJSON []byte) error {
	if err := json.Unmarshal(paramsJSON, &rec.Params); err != nil {
		return fmt.Errorf("failed to unmarshal params: %w", err)
	}
	if err := json.Unmarshal(manifestJSON, &rec.Manifest); err != nil {
		return fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	if len(truthJSON) > 0 {
		var truth []sim.GeneTruth
		if err := json.Unmarshal(truthJSON, &truth); err != nil {
			return fmt.Errorf("failed to unmarshal truth: %w", err)
		}
		rec.Truth = truth
	}
	return nil
}
