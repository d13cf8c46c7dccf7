package httpd

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"scsim/adapters/export"
	"scsim/app"
	"scsim/domain/core"
	"scsim/domain/sim"
	"scsim/internal/report"
)

// createRunRequest is the POST /runs body. n_cells accepts either an
// integer or a [low, high] pair.
type createRunRequest struct {
	NGenes     int           `json:"n_genes"`
	NCells     sim.CellCount `json:"n_cells"`
	PDD        []float64     `json:"p_dd"`
	FoldChange float64       `json:"fc"`
	Seed       int64         `json:"seed"`
	Label      string        `json:"label"`
	Alpha      float64       `json:"alpha"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleCreateRun(c *gin.Context) {
	var req createRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if len(req.PDD) != len(sim.Categories) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "p_dd must have exactly 6 entries (ee, ep, de, dp, dm, db)"})
		return
	}
	var pdd sim.CategoryProbs
	copy(pdd[:], req.PDD)

	outcome, err := s.sims.Run(c.Request.Context(), app.SimulationRequest{
		Params: sim.Params{
			NGenes:     req.NGenes,
			Cells:      req.NCells,
			PDD:        pdd,
			FoldChange: req.FoldChange,
			Seed:       req.Seed,
		},
		Label: req.Label,
		Alpha: req.Alpha,
	})
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"run_id":     outcome.RunID,
		"label":      req.Label,
		"manifest":   outcome.Result.Manifest,
		"summary":    outcome.Summary,
		"runtime_ms": outcome.RuntimeMs,
	})
}

func (s *Server) handleListRuns(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	records, err := s.sims.ListRuns(c.Request.Context(), limit, offset)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": records, "count": len(records)})
}

func (s *Server) handleGetRun(c *gin.Context) {
	id, ok := runID(c)
	if !ok {
		return
	}
	rec, err := s.sims.GetRun(c.Request.Context(), id)
	if err != nil {
		s.renderError(c, err)
		return
	}
	// The truth table has its own download endpoint.
	rec.Truth = nil
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleTruthCSV(c *gin.Context) {
	id, ok := runID(c)
	if !ok {
		return
	}
	rec, err := s.sims.GetRun(c.Request.Context(), id)
	if err != nil {
		s.renderError(c, err)
		return
	}
	data, err := export.TruthCSV(rec.Truth)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="truth.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

func (s *Server) handleReport(c *gin.Context) {
	id, ok := runID(c)
	if !ok {
		return
	}
	rec, err := s.sims.GetRun(c.Request.Context(), id)
	if err != nil {
		s.renderError(c, err)
		return
	}
	if rec.Report == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "run has no stored report"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", report.RenderHTML(rec.Report))
}

func (s *Server) handleDeleteRun(c *gin.Context) {
	id, ok := runID(c)
	if !ok {
		return
	}
	if err := s.sims.DeleteRun(c.Request.Context(), id); err != nil {
		s.renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// renderError maps domain sentinels onto HTTP statuses: bad inputs are
// 400, satisfiable-in-principle-but-not-here runs are 422, registry
// misses are 404, anything else is 500.
func (s *Server) renderError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case core.IsNotFoundError(err):
		status = http.StatusNotFound
	case core.IsInvalidArgumentError(err), core.IsReferenceError(err):
		status = http.StatusBadRequest
	case core.IsInsufficientPopulationError(err), core.IsInvalidParameterError(err):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed: %v", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func runID(c *gin.Context) (core.RunID, bool) {
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
