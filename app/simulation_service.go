package app

import (
	"context"
	"fmt"
	"time"

	"scsim/domain/core"
	"scsim/domain/sim"
	"scsim/internal"
	"scsim/internal/engine"
	"scsim/internal/qc"
	"scsim/internal/report"
	"scsim/ports"
)

// SimulationService orchestrates one run end to end: load the reference,
// simulate, digest, render the report, and register the run.
type SimulationService struct {
	reader ports.ReferenceReader
	runs   ports.RunRepository
	engine *engine.Engine
	log    *internal.Logger
}

// SimulationRequest defines the inputs for one run.
type SimulationRequest struct {
	Params sim.Params `json:"params"`
	RunID  core.RunID `json:"run_id,omitempty"` // generated when empty
	Label  string     `json:"label,omitempty"`  // free-form run name
	Alpha  float64    `json:"alpha,omitempty"`  // QC significance level, 0 for default
}

// SimulationOutcome bundles the run result with its registry record.
type SimulationOutcome struct {
	RunID     core.RunID  `json:"run_id"`
	Result    *sim.Result `json:"-"`
	Summary   *qc.Summary `json:"summary"`
	Report    string      `json:"-"`
	RuntimeMs int64       `json:"runtime_ms"`
}

// NewSimulationService creates a simulation service.
func NewSimulationService(reader ports.ReferenceReader, runs ports.RunRepository, eng *engine.Engine) *SimulationService {
	return &SimulationService{
		reader: reader,
		runs:   runs,
		engine: eng,
		log:    internal.DefaultLogger.WithPrefix("app: "),
	}
}

// Run executes one simulation and registers its record.
func (s *SimulationService) Run(ctx context.Context, req SimulationRequest) (*SimulationOutcome, error) {
	start := time.Now()

	runID := req.RunID
	if runID == "" {
		runID = core.NewRunID()
	}

	ref, err := s.reader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading reference: %w", err)
	}

	res, err := s.engine.Simulate(ctx, ref, req.Params)
	if err != nil {
		return nil, err
	}

	summary, err := qc.Summarize(res, req.Alpha)
	if err != nil {
		return nil, fmt.Errorf("computing quality digest: %w", err)
	}
	md := report.Build(res, summary)

	rec := &ports.RunRecord{
		ID:        runID,
		Label:     req.Label,
		Params:    res.Params,
		Manifest:  res.Manifest,
		Truth:     res.Truth,
		Report:    md,
		CreatedAt: res.Manifest.CreatedAt,
	}
	if err := s.runs.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("registering run: %w", err)
	}

	outcome := &SimulationOutcome{
		RunID:     runID,
		Result:    res,
		Summary:   summary,
		Report:    md,
		RuntimeMs: time.Since(start).Milliseconds(),
	}
	s.log.Info("run %s finished in %dms (%dx%d, seed %d)",
		runID, outcome.RuntimeMs, res.Manifest.Rows, res.Manifest.Cols, res.Manifest.Seed)
	return outcome, nil
}

// GetRun returns one stored run record, truth included.
func (s *SimulationService) GetRun(ctx context.Context, id core.RunID) (*ports.RunRecord, error) {
	return s.runs.Get(ctx, id)
}

// ListRuns pages stored records, newest first.
func (s *SimulationService) ListRuns(ctx context.Context, limit, offset int) ([]*ports.RunRecord, error) {
	return s.runs.List(ctx, limit, offset)
}

// DeleteRun removes a stored record.
func (s *SimulationService) DeleteRun(ctx context.Context, id core.RunID) error {
	return s.runs.Delete(ctx, id)
}
