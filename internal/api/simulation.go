package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/neurolabhq/neurosim/internal/model"
	"github.com/neurolabhq/neurosim/internal/store"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	maxBodySize      = 1 << 20 // 1 MB

	defaultStimDelayMS    = 100
	defaultStimDurationMS = 500
)

// createSimulationRequest is the JSON body for POST /v1/simulations.
type createSimulationRequest struct {
	ModelID    string                `json:"model_id"`
	Stimulus   *stimulusReq          `json:"stimulus"`
	Recordings []model.RecordingSpec `json:"recordings"`
	Conditions *conditionsReq        `json:"conditions"`
	TimeoutS   *int                  `json:"timeout_s"`
}

type stimulusReq struct {
	Type      string   `json:"type"`
	Section   string   `json:"section"`
	Delay     *float64 `json:"delay"`
	Duration  *float64 `json:"duration"`
	Amplitude float64  `json:"amplitude"`
}

type conditionsReq struct {
	Duration *float64 `json:"duration"`
	Dt       *float64 `json:"dt"`
	VInit    *float64 `json:"v_init"`
	Celsius  *float64 `json:"celsius"`
}

// listSimulationsResponse wraps the paginated list response.
type listSimulationsResponse struct {
	Simulations []*model.Simulation `json:"simulations"`
	Total       int                 `json:"total"`
	Limit       int                 `json:"limit"`
	Offset      int                 `json:"offset"`
}

func (s *Server) handleCreateSimulation(w http.ResponseWriter, r *http.Request) {
	var req createSimulationRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.ModelID == "" {
		s.writeError(w, http.StatusBadRequest, "model_id is required")
		return
	}
	if req.Stimulus == nil {
		s.writeError(w, http.StatusBadRequest, "stimulus is required")
		return
	}
	if req.Stimulus.Type != model.StimulusIClamp && req.Stimulus.Type != model.StimulusVClamp {
		s.writeError(w, http.StatusBadRequest, "stimulus type must be IClamp or VClamp")
		return
	}
	if req.TimeoutS != nil && *req.TimeoutS <= 0 {
		s.writeError(w, http.StatusBadRequest, "timeout_s must be positive")
		return
	}

	conditions := model.DefaultConditions()
	if req.Conditions != nil {
		if req.Conditions.Duration != nil {
			conditions.Duration = *req.Conditions.Duration
		}
		if req.Conditions.Dt != nil {
			conditions.Dt = *req.Conditions.Dt
		}
		if req.Conditions.VInit != nil {
			conditions.VInit = *req.Conditions.VInit
		}
		if req.Conditions.Celsius != nil {
			conditions.Celsius = *req.Conditions.Celsius
		}
	}
	if conditions.Duration <= 0 {
		s.writeError(w, http.StatusBadRequest, "conditions.duration must be positive")
		return
	}
	if conditions.Dt <= 0 {
		s.writeError(w, http.StatusBadRequest, "conditions.dt must be positive")
		return
	}

	stimulus := model.StimulusSpec{
		Type:      req.Stimulus.Type,
		Section:   req.Stimulus.Section,
		Delay:     defaultStimDelayMS,
		Duration:  defaultStimDurationMS,
		Amplitude: req.Stimulus.Amplitude,
	}
	if req.Stimulus.Delay != nil {
		stimulus.Delay = *req.Stimulus.Delay
	}
	if req.Stimulus.Duration != nil {
		stimulus.Duration = *req.Stimulus.Duration
	}
	if stimulus.Delay < 0 || stimulus.Duration < 0 {
		s.writeError(w, http.StatusBadRequest, "stimulus delay and duration must not be negative")
		return
	}
	if stimulus.Section == "" {
		stimulus.Section = model.DefaultSection
	}

	recordings := req.Recordings
	if len(recordings) == 0 {
		recordings = []model.RecordingSpec{{Section: model.DefaultSection, Variable: "v"}}
	}
	for i, rec := range recordings {
		if rec.Section == "" {
			recordings[i].Section = model.DefaultSection
		}
		if rec.Variable == "" {
			recordings[i].Variable = "v"
		}
	}

	sm := &model.Simulation{
		ID:         model.NewID(),
		Status:     model.StatusQueued,
		ModelID:    req.ModelID,
		Stimulus:   stimulus,
		Recordings: recordings,
		Conditions: conditions,
		TimeoutS:   req.TimeoutS,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.engine.Submit(r.Context(), sm); err != nil {
		s.logger.Error("submit simulation", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to submit simulation")
		return
	}

	s.writeJSON(w, http.StatusAccepted, sm)
}

func (s *Server) handleGetSimulation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sm, err := s.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "simulation not found")
		return
	}
	if err != nil {
		s.logger.Error("get simulation", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get simulation")
		return
	}

	s.writeJSON(w, http.StatusOK, sm)
}

func (s *Server) handleListSimulations(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", defaultListLimit)
	offset := parseIntQuery(r, "offset", 0)

	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	sims, total, err := s.store.List(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("list simulations", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list simulations")
		return
	}

	if sims == nil {
		sims = []*model.Simulation{}
	}

	s.writeJSON(w, http.StatusOK, listSimulationsResponse{
		Simulations: sims,
		Total:       total,
		Limit:       limit,
		Offset:      offset,
	})
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
