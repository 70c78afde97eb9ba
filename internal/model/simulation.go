package model

import "time"

// Simulation status constants.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Stimulus type constants.
const (
	StimulusIClamp = "IClamp"
	StimulusVClamp = "VClamp"
)

// DefaultSection is the section stimuli and recordings attach to when the
// request leaves it empty.
const DefaultSection = "soma"

// validTransitions maps each status to the set of statuses it may transition to.
// Terminal statuses (completed, failed, cancelled) have no outgoing transitions.
var validTransitions = map[string]map[string]bool{
	StatusQueued: {
		StatusRunning:   true,
		StatusFailed:    true,
		StatusCancelled: true,
	},
	StatusRunning: {
		StatusCompleted: true,
		StatusFailed:    true,
		StatusCancelled: true,
	},
}

// ValidTransition reports whether transitioning from one status to another is allowed.
func ValidTransition(from, to string) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// IsTerminal reports whether the given status is absorbing.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed || status == StatusCancelled
}

// StimulusSpec configures the stimulation protocol applied during a run.
// Amplitude is in nA for IClamp and mV for VClamp.
type StimulusSpec struct {
	Type      string  `json:"type"`
	Section   string  `json:"section,omitempty"`
	Delay     float64 `json:"delay"`
	Duration  float64 `json:"duration"`
	Amplitude float64 `json:"amplitude"`
}

// RecordingSpec names one variable to record from one section.
type RecordingSpec struct {
	Section  string `json:"section"`
	Variable string `json:"variable"`
}

// RunConditions holds the numerical integration parameters.
type RunConditions struct {
	Duration float64 `json:"duration"` // total simulated time (ms)
	Dt       float64 `json:"dt"`       // integration step (ms)
	VInit    float64 `json:"v_init"`   // initial membrane potential (mV)
	Celsius  float64 `json:"celsius"`  // temperature (degrees C)
}

// DefaultConditions returns the standard run conditions used when a request
// omits them: 1 s of simulated time at 25 us steps, resting at -65 mV, 34 C.
func DefaultConditions() RunConditions {
	return RunConditions{
		Duration: 1000.0,
		Dt:       0.025,
		VInit:    -65.0,
		Celsius:  34.0,
	}
}

// Result is the payload produced by a completed simulation run.
type Result struct {
	Time       []float64            `json:"time"`
	Recordings map[string][]float64 `json:"recordings"`
	Params     map[string]float64   `json:"params"`
}

// Simulation represents one submitted simulation job and its lifecycle state.
// Status, progress, result and error are written only by the runner that owns
// the id; everything else is immutable after submission.
type Simulation struct {
	ID         string          `json:"id"`
	Status     string          `json:"status"`
	Progress   float64         `json:"progress"`
	ModelID    string          `json:"model_id"`
	Stimulus   StimulusSpec    `json:"stimulus"`
	Recordings []RecordingSpec `json:"recordings"`
	Conditions RunConditions   `json:"conditions"`
	TimeoutS   *int            `json:"timeout_s,omitempty"`
	Result     *Result         `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	DurationMS *int            `json:"duration_ms,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}
