package sim

import (
	"errors"

	"github.com/neurolabhq/neurosim/internal/model"
)

// Sentinel errors returned by simulator setup and run stages.
var (
	ErrModelNotFound       = errors.New("model not found")
	ErrNoModelLoaded       = errors.New("no model loaded")
	ErrUnknownSection      = errors.New("unknown section")
	ErrUnsupportedVariable = errors.New("unsupported recording variable")
	ErrUnsupportedStimulus = errors.New("unsupported stimulus type")
	ErrAborted             = errors.New("run aborted by progress callback")
)

// ProgressFunc is invoked by a simulator at its internal step checkpoints with
// the current and total step counts. Returning false asks the simulator to
// abort; the simulator may still advance to its next checkpoint before
// honoring the request, since the abort is cooperative rather than preemptive.
type ProgressFunc func(step, total int) bool

// RunParams holds the numerical integration parameters for one run.
type RunParams struct {
	Duration float64 // total simulated time (ms)
	Dt       float64 // integration step (ms)
	VInit    float64 // initial membrane potential (mV)
	Celsius  float64 // temperature (degrees C)
}

// StimulusParams configures the stimulation protocol. Amplitude is in nA for
// current clamps and mV for voltage clamps.
type StimulusParams struct {
	Delay     float64
	Duration  float64
	Amplitude float64
}

// Simulator is the compute engine contract. One instance serves exactly one
// run: the engine creates it, walks it through the setup stages, invokes Run,
// and calls Cleanup on every exit path. Cleanup must be safe to call after
// partial setup and more than once.
type Simulator interface {
	LoadModel(modelID string) error
	SetupRecording(section, variable string) error
	SetupStimulus(section, stimType string, params StimulusParams) error
	Run(params RunParams, progress ProgressFunc) (*model.Result, error)
	Cleanup() error
}

// Factory produces a fresh Simulator for each submitted job, so concurrent
// runs never share mutable simulator state.
type Factory func() Simulator
