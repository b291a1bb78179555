// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	service "github.com/okian/paceline/internal/app"
	"github.com/okian/paceline/internal/adapters/profile"
	"github.com/okian/paceline/internal/adapters/repository"
	"github.com/okian/paceline/internal/domain/endurance"
	"github.com/okian/paceline/internal/domain/model"
	"github.com/okian/paceline/internal/domain/scoring"
)

const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	StatsProvider
	CatalogDependencies
	SessionDependencies
	AnalysisDependencies
}

// Server wires HTTP routes for the analysis API.
type Server struct {
	healthHandler   *HealthHandler
	catalogHandler  *CatalogHandler
	sessionHandler  *SessionHandler
	analysisHandler *AnalysisHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(deps),
		catalogHandler:  NewCatalogHandler(deps),
		sessionHandler:  NewSessionHandler(deps),
		analysisHandler: NewAnalysisHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.healthHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("GET /events", MetricsMiddleware(s.catalogHandler.HandleListEvents, "events"))

	mux.HandleFunc("POST /sessions", MetricsMiddleware(s.sessionHandler.HandleCreate, "sessions"))
	mux.HandleFunc("GET /sessions/{id}", MetricsMiddleware(s.sessionHandler.HandleGet, "session"))
	mux.HandleFunc("DELETE /sessions/{id}", MetricsMiddleware(s.sessionHandler.HandleDelete, "session"))
	mux.HandleFunc("PUT /sessions/{id}/gender", MetricsMiddleware(s.sessionHandler.HandleSetGender, "gender"))
	mux.HandleFunc("POST /sessions/{id}/observations", MetricsMiddleware(s.sessionHandler.HandleAddObservations, "observations"))
	mux.HandleFunc("POST /sessions/{id}/profile", MetricsMiddleware(s.sessionHandler.HandleImportProfile, "profile"))

	mux.HandleFunc("GET /sessions/{id}/scores", MetricsMiddleware(s.analysisHandler.HandleScores, "scores"))
	mux.HandleFunc("GET /sessions/{id}/critical-speed", MetricsMiddleware(s.analysisHandler.HandleCriticalSpeed, "critical_speed"))
	mux.HandleFunc("GET /sessions/{id}/riegel", MetricsMiddleware(s.analysisHandler.HandleRiegel, "riegel"))
	mux.HandleFunc("GET /sessions/{id}/predict", MetricsMiddleware(s.analysisHandler.HandlePredict, "predict"))
	mux.HandleFunc("POST /sessions/{id}/report", MetricsMiddleware(s.analysisHandler.HandleReport, "report"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON encodes v before writing the header, so an unencodable value
// becomes a 500 instead of a success status with an empty body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Code: "internal_error", Message: "encode response: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service and domain errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, service.ErrNoScoreTable):
		return http.StatusServiceUnavailable, "no_score_table"
	case errors.Is(err, scoring.ErrNotFound):
		return http.StatusNotFound, "no_reference"
	case errors.Is(err, endurance.ErrUndetermined), errors.Is(err, service.ErrMissingEventTime):
		return http.StatusUnprocessableEntity, "insufficient_data"
	case errors.Is(err, scoring.ErrNoData):
		return http.StatusUnprocessableEntity, "no_data"
	case errors.Is(err, repository.ErrLimit):
		return http.StatusTooManyRequests, "session_limit"
	case errors.Is(err, repository.ErrTooMany):
		return http.StatusConflict, "session_full"
	case errors.Is(err, model.ErrUnknownEvent):
		return http.StatusBadRequest, "unknown_event"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, model.ErrUnknownGender),
		errors.Is(err, repository.ErrInvalid),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrTooManySelected),
		errors.Is(err, profile.ErrInvalidURL):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrBodyTooBig):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, service.ErrNoProfileClient):
		return http.StatusNotImplemented, "profile_disabled"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "upstream_timeout"
	case errors.Is(err, profile.ErrStatus), errors.Is(err, profile.ErrParse):
		return http.StatusBadGateway, "upstream_error"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// decodeJSON reads a bounded JSON body into v. An empty body leaves v as is.
func decodeJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("read body: %w", ErrBadRequest)
	}
	if len(body) > maxBodyBytes {
		return ErrBodyTooBig
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}

// ensure the service satisfies the handler contracts
var _ Dependencies = (*service.Service)(nil)
