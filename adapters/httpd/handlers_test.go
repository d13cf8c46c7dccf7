package httpd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"scsim/app"
	"scsim/internal/engine"
	"scsim/internal/testkit"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newTestHandler(t *testing.T, refCells int) http.Handler {
	t.Helper()
	reader := &testkit.StaticReference{Ref: testkit.Reference(10, 1, 1, refCells)}
	sims := app.NewSimulationService(reader, testkit.NewMemoryRunRepository(), engine.New())
	return NewServer(sims).Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

const smokeRun = `{"n_genes":10,"n_cells":5,"p_dd":[1,0,0,0,0,0],"fc":2,"seed":1,"label":"smoke"}`

func TestHealthz(t *testing.T) {
	h := newTestHandler(t, 30)
	w := doJSON(t, h, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestRunLifecycle(t *testing.T) {
	h := newTestHandler(t, 30)

	w := doJSON(t, h, http.MethodPost, "/api/v1/runs", smokeRun)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}
	var created struct {
		RunID    string `json:"run_id"`
		Label    string `json:"label"`
		Manifest struct {
			Rows int `json:"rows"`
			Cols int `json:"cols"`
		} `json:"manifest"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.RunID == "" || created.Label != "smoke" {
		t.Fatalf("create response = %+v", created)
	}
	if created.Manifest.Rows != 10 || created.Manifest.Cols != 10 {
		t.Fatalf("manifest dims = %dx%d", created.Manifest.Rows, created.Manifest.Cols)
	}

	w = doJSON(t, h, http.MethodGet, "/api/v1/runs/"+created.RunID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var rec struct {
		Label string          `json:"label"`
		Truth json.RawMessage `json:"truth"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if rec.Label != "smoke" {
		t.Fatalf("stored label = %q", rec.Label)
	}
	if len(rec.Truth) != 0 {
		t.Fatalf("get should omit the truth table, got %s", rec.Truth)
	}

	w = doJSON(t, h, http.MethodGet, "/api/v1/runs/"+created.RunID+"/truth.csv", "")
	if w.Code != http.StatusOK {
		t.Fatalf("truth status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("truth content type = %q", ct)
	}
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 11 {
		t.Fatalf("truth.csv has %d lines, want header + 10", len(lines))
	}

	w = doJSON(t, h, http.MethodGet, "/api/v1/runs/"+created.RunID+"/report", "")
	if w.Code != http.StatusOK {
		t.Fatalf("report status = %d", w.Code)
	}
	if body := w.Body.String(); !strings.Contains(body, "<h1") {
		t.Fatalf("report is not HTML: %.80s", body)
	}

	w = doJSON(t, h, http.MethodDelete, "/api/v1/runs/"+created.RunID, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = doJSON(t, h, http.MethodGet, "/api/v1/runs/"+created.RunID, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", w.Code)
	}
}

func TestListRuns(t *testing.T) {
	h := newTestHandler(t, 30)
	for i := 0; i < 2; i++ {
		if w := doJSON(t, h, http.MethodPost, "/api/v1/runs", smokeRun); w.Code != http.StatusCreated {
			t.Fatalf("create %d status = %d", i, w.Code)
		}
	}

	w := doJSON(t, h, http.MethodGet, "/api/v1/runs", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Count != 2 {
		t.Fatalf("count = %d, want 2", list.Count)
	}
}

func TestCreateRunRejectsShortPDD(t *testing.T) {
	h := newTestHandler(t, 30)
	w := doJSON(t, h, http.MethodPost, "/api/v1/runs",
		`{"n_genes":10,"n_cells":5,"p_dd":[1,0,0,0,0],"fc":2,"seed":1}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestCreateRunRejectsBadFoldChange(t *testing.T) {
	h := newTestHandler(t, 30)
	w := doJSON(t, h, http.MethodPost, "/api/v1/runs",
		`{"n_genes":10,"n_cells":5,"p_dd":[1,0,0,0,0,0],"fc":0.5,"seed":1}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestCreateRunInsufficientCells(t *testing.T) {
	h := newTestHandler(t, 30)
	w := doJSON(t, h, http.MethodPost, "/api/v1/runs",
		`{"n_genes":10,"n_cells":20,"p_dd":[1,0,0,0,0,0],"fc":2,"seed":1}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestGetUnknownRun(t *testing.T) {
	h := newTestHandler(t, 30)
	w := doJSON(t, h, http.MethodGet, "/api/v1/runs/missing-run", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}
