package api

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/paceline/internal/domain/types"
	"github.com/okian/paceline/pkg/metrics"
)

// StatsProvider reports service state.
type StatsProvider interface {
	Stats(ctx context.Context) types.Stats
}

// HealthHandler serves liveness, stats and Prometheus metrics.
type HealthHandler struct {
	stats StatsProvider
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(stats StatsProvider) *HealthHandler {
	return &HealthHandler{stats: stats}
}

type healthResponse struct {
	Status     string `json:"status"`
	ScoreTable bool   `json:"score_table"`
}

// HandleHealth handles GET /healthz. Scoring without a table is degraded,
// not down.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	st := h.stats.Stats(r.Context())
	resp := healthResponse{Status: "ok", ScoreTable: st.ScoreTableRows > 0}
	if !resp.ScoreTable {
		resp.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleStats handles GET /stats.
func (h *HealthHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats.Stats(r.Context()))
}

// HandleMetrics serves the custom Prometheus registry.
func (h *HealthHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
}
