package sim

import (
	"fmt"
	"math"

	"github.com/neurolabhq/neurosim/internal/model"
)

// Compile-time interface satisfaction check.
var _ Simulator = (*Membrane)(nil)

// Membrane is the built-in single-compartment simulator. It integrates a
// passive membrane equation with an optional current or voltage clamp using
// forward Euler, recording the requested variables at every step.
type Membrane struct {
	catalog *Catalog

	cell   *CellModel
	traces []trace
	stim   *stimulus
}

type trace struct {
	name     string
	variable string
}

type stimulus struct {
	kind  string
	delay float64
	dur   float64
	amp   float64
}

// NewMembrane creates a simulator that resolves model ids against the given
// catalog.
func NewMembrane(catalog *Catalog) *Membrane {
	return &Membrane{catalog: catalog}
}

// LoadModel resolves the cell model from the catalog.
func (m *Membrane) LoadModel(modelID string) error {
	cell, err := m.catalog.Resolve(modelID)
	if err != nil {
		return err
	}
	m.cell = &cell
	return nil
}

// SetupRecording registers a variable to record from a section. Supported
// variables are "v" (membrane potential, mV) and "i" (membrane current
// density, mA/cm2).
func (m *Membrane) SetupRecording(section, variable string) error {
	if m.cell == nil {
		return ErrNoModelLoaded
	}
	if !m.cell.HasSection(section) {
		return fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}
	if variable != "v" && variable != "i" {
		return fmt.Errorf("%w: %q", ErrUnsupportedVariable, variable)
	}
	name := section + "_" + variable
	// A repeated section/variable pair is a no-op: traces share the result
	// key by name, so a second entry would append twice per step.
	for _, tr := range m.traces {
		if tr.name == name {
			return nil
		}
	}
	m.traces = append(m.traces, trace{
		name:     name,
		variable: variable,
	})
	return nil
}

// SetupStimulus configures the stimulation protocol for the run.
func (m *Membrane) SetupStimulus(section, stimType string, params StimulusParams) error {
	if m.cell == nil {
		return ErrNoModelLoaded
	}
	if !m.cell.HasSection(section) {
		return fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}
	if stimType != model.StimulusIClamp && stimType != model.StimulusVClamp {
		return fmt.Errorf("%w: %q", ErrUnsupportedStimulus, stimType)
	}
	m.stim = &stimulus{
		kind:  stimType,
		delay: params.Delay,
		dur:   params.Duration,
		amp:   params.Amplitude,
	}
	return nil
}

// Run integrates the membrane equation over duration/dt steps. The progress
// callback is invoked at fixed step checkpoints; when it returns false the
// run stops at that checkpoint and ErrAborted is returned.
func (m *Membrane) Run(params RunParams, progress ProgressFunc) (*model.Result, error) {
	if m.cell == nil {
		return nil, ErrNoModelLoaded
	}

	steps := int(params.Duration / params.Dt)
	if steps < 1 {
		steps = 1
	}
	checkpointEvery := steps / 100
	if checkpointEvery < 1 {
		checkpointEvery = 1
	}

	// Membrane constants. Leak drives V toward EPas with rate gPas/Cm;
	// injected current scales by compartment surface area.
	areaCM2 := math.Pi * m.cell.DiamUM * m.cell.LengthUM * 1e-8
	leakRate := m.cell.GPasSCM2 / m.cell.CmUFCM2 * 1e3 // 1/ms

	times := make([]float64, 0, steps)
	data := make(map[string][]float64, len(m.traces))
	for _, tr := range m.traces {
		data[tr.name] = make([]float64, 0, steps)
	}

	v := params.VInit
	for step := 0; step < steps; step++ {
		if step%checkpointEvery == 0 && progress != nil {
			if !progress(step, steps) {
				return nil, ErrAborted
			}
		}

		t := float64(step) * params.Dt
		active := m.stim != nil && t >= m.stim.delay && t < m.stim.delay+m.stim.dur

		var injDensity float64 // mA/cm2
		switch {
		case active && m.stim.kind == model.StimulusVClamp:
			v = m.stim.amp
		case active && m.stim.kind == model.StimulusIClamp:
			injDensity = m.stim.amp * 1e-6 / areaCM2
		}

		leakDensity := m.cell.GPasSCM2 * (v - m.cell.EPasMV) // mA/cm2

		times = append(times, t)
		for _, tr := range m.traces {
			switch tr.variable {
			case "v":
				data[tr.name] = append(data[tr.name], v)
			case "i":
				data[tr.name] = append(data[tr.name], leakDensity)
			}
		}

		if !(active && m.stim.kind == model.StimulusVClamp) {
			dv := (leakRate*(m.cell.EPasMV-v) + injDensity/m.cell.CmUFCM2*1e3) * params.Dt
			v += dv
		}
	}

	if progress != nil && !progress(steps, steps) {
		return nil, ErrAborted
	}

	return &model.Result{
		Time:       times,
		Recordings: data,
		Params: map[string]float64{
			"duration": params.Duration,
			"dt":       params.Dt,
			"v_init":   params.VInit,
			"celsius":  params.Celsius,
		},
	}, nil
}

// Cleanup releases per-run state. Safe to call after partial setup and more
// than once.
func (m *Membrane) Cleanup() error {
	m.cell = nil
	m.traces = nil
	m.stim = nil
	return nil
}
