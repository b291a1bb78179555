package api

import (
	"context"
	"net/http"

	"github.com/okian/paceline/internal/domain/scoring"
	"github.com/okian/paceline/internal/domain/types"
)

// AnalysisDependencies runs the analyses over a session.
type AnalysisDependencies interface {
	Scores(ctx context.Context, id string) (types.ScoreReport, error)
	CriticalSpeed(ctx context.Context, id string, events []string) (types.CriticalSpeedView, error)
	Riegel(ctx context.Context, id string, req types.RiegelRequest) (types.RiegelView, error)
	Predict(ctx context.Context, id string, events []string, target string) (scoring.Prediction, error)
	Report(ctx context.Context, id string, req types.ReportRequest) (types.Report, error)
}

// AnalysisHandler handles analysis requests.
type AnalysisHandler struct {
	deps AnalysisDependencies
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(deps AnalysisDependencies) *AnalysisHandler {
	return &AnalysisHandler{deps: deps}
}

// HandleScores handles GET /sessions/{id}/scores.
func (h *AnalysisHandler) HandleScores(w http.ResponseWriter, r *http.Request) {
	rep, err := h.deps.Scores(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// HandleCriticalSpeed handles GET /sessions/{id}/critical-speed?event=...
// Without event parameters every timed observation is used.
func (h *AnalysisHandler) HandleCriticalSpeed(w http.ResponseWriter, r *http.Request) {
	cs, err := h.deps.CriticalSpeed(r.Context(), r.PathValue("id"), r.URL.Query()["event"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

// HandleRiegel handles GET /sessions/{id}/riegel?a=...&b=...&target=...
func (h *AnalysisHandler) HandleRiegel(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := types.RiegelRequest{EventA: q.Get("a"), EventB: q.Get("b"), Target: q.Get("target")}
	rv, err := h.deps.Riegel(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rv)
}

// HandlePredict handles GET /sessions/{id}/predict?target=...&event=...
func (h *AnalysisHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p, err := h.deps.Predict(r.Context(), r.PathValue("id"), q["event"], q.Get("target"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleReport handles POST /sessions/{id}/report.
func (h *AnalysisHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	var req types.ReportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	rep, err := h.deps.Report(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
