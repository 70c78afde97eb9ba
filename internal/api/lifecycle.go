package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/neurolabhq/neurosim/internal/engine"
	"github.com/neurolabhq/neurosim/internal/model"
	"github.com/neurolabhq/neurosim/internal/store"
)

// progressResponse is the JSON response for GET /v1/simulations/:id/progress.
type progressResponse struct {
	SimulationID string  `json:"simulation_id"`
	Status       string  `json:"status"`
	Progress     float64 `json:"progress"`
	Error        string  `json:"error,omitempty"`
}

// resultsResponse is the JSON response for GET /v1/simulations/:id/results.
type resultsResponse struct {
	SimulationID string               `json:"simulation_id"`
	Time         []float64            `json:"time"`
	Recordings   map[string][]float64 `json:"recordings"`
	Params       map[string]float64   `json:"params"`
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sm, err := s.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "simulation not found")
		return
	}
	if err != nil {
		s.logger.Error("get simulation progress", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get simulation")
		return
	}

	s.writeJSON(w, http.StatusOK, progressResponse{
		SimulationID: sm.ID,
		Status:       sm.Status,
		Progress:     s.engine.Progress(r.Context(), sm.ID),
		Error:        sm.Error,
	})
}

func (s *Server) handleGetResults(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sm, err := s.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "simulation not found")
		return
	}
	if err != nil {
		s.logger.Error("get simulation results", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get simulation")
		return
	}

	if sm.Status != model.StatusCompleted {
		s.writeError(w, http.StatusConflict, fmt.Sprintf("results not available: status is %s", sm.Status))
		return
	}
	if sm.Result == nil {
		s.logger.Error("completed simulation has no result", "id", id)
		s.writeError(w, http.StatusInternalServerError, "results missing")
		return
	}

	s.writeJSON(w, http.StatusOK, resultsResponse{
		SimulationID: sm.ID,
		Time:         sm.Result.Time,
		Recordings:   sm.Result.Recordings,
		Params:       sm.Result.Params,
	})
}

func (s *Server) handleCancelSimulation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := s.engine.Cancel(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "simulation not found")
		return
	}
	if errors.Is(err, engine.ErrAlreadyFinished) {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("cancel simulation", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to cancel simulation")
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"simulation_id": id,
		"status":        "cancelling",
	})
}
