package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/okian/paceline/internal/adapters/repository"
	"github.com/okian/paceline/internal/domain/model"
	"github.com/okian/paceline/internal/domain/types"
)

// SessionDependencies manages sessions and their observations.
type SessionDependencies interface {
	CreateSession(ctx context.Context, gender model.Gender) (repository.Session, error)
	GetSession(ctx context.Context, id string) (repository.Session, error)
	SetGender(ctx context.Context, id string, gender model.Gender) (repository.Session, error)
	DeleteSession(ctx context.Context, id string) error
	AddObservations(ctx context.Context, id string, in []types.ObservationInput) (types.AddResult, error)
	ImportProfile(ctx context.Context, id, url string) (types.AddResult, error)
}

// SessionHandler handles session requests.
type SessionHandler struct {
	deps SessionDependencies
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(deps SessionDependencies) *SessionHandler {
	return &SessionHandler{deps: deps}
}

type genderRequest struct {
	Gender string `json:"gender"`
}

type observationsRequest struct {
	Observations []types.ObservationInput `json:"observations"`
}

type profileRequest struct {
	URL string `json:"url"`
}

type sessionResponse struct {
	ID           string                  `json:"id"`
	Gender       model.Gender            `json:"gender"`
	Observations []types.ObservationView `json:"observations"`
	CreatedAt    string                  `json:"created_at"`
	UpdatedAt    string                  `json:"updated_at"`
}

func newSessionResponse(s repository.Session) sessionResponse {
	out := sessionResponse{
		ID:           s.ID,
		Gender:       s.Gender,
		Observations: make([]types.ObservationView, 0, len(s.Observations)),
		CreatedAt:    s.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    s.UpdatedAt.UTC().Format(time.RFC3339),
	}
	for _, o := range s.Observations {
		out.Observations = append(out.Observations, types.NewObservationView(o))
	}
	return out
}

// HandleCreate handles POST /sessions. The gender defaults to Man.
func (h *SessionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	req := genderRequest{Gender: string(model.Man)}
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	g, err := model.ParseGender(req.Gender)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	s, err := h.deps.CreateSession(r.Context(), g)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSessionResponse(s))
}

// HandleGet handles GET /sessions/{id}.
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	s, err := h.deps.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(s))
}

// HandleDelete handles DELETE /sessions/{id}.
func (h *SessionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DeleteSession(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSetGender handles PUT /sessions/{id}/gender.
func (h *SessionHandler) HandleSetGender(w http.ResponseWriter, r *http.Request) {
	var req genderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	g, err := model.ParseGender(req.Gender)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	s, err := h.deps.SetGender(r.Context(), r.PathValue("id"), g)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(s))
}

// HandleAddObservations handles POST /sessions/{id}/observations. A full
// session answers 409 with the partial result in the message.
func (h *SessionHandler) HandleAddObservations(w http.ResponseWriter, r *http.Request) {
	var req observationsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	if len(req.Observations) == 0 {
		writeServiceError(w, fmt.Errorf("no observations: %w", ErrBadRequest))
		return
	}
	res, err := h.deps.AddObservations(r.Context(), r.PathValue("id"), req.Observations)
	if err != nil {
		writeServiceError(w, fmt.Errorf("added %d: %w", res.Added, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleImportProfile handles POST /sessions/{id}/profile.
func (h *SessionHandler) HandleImportProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeServiceError(w, fmt.Errorf("missing url: %w", ErrBadRequest))
		return
	}
	res, err := h.deps.ImportProfile(r.Context(), r.PathValue("id"), strings.TrimSpace(req.URL))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
