package sim

import (
	"errors"
	"math"
	"testing"
)

func newLoadedMembrane(t *testing.T) *Membrane {
	t.Helper()
	m := NewMembrane(DefaultCatalog())
	if err := m.LoadModel("simple_neuron"); err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	return m
}

func TestLoadModelUnknown(t *testing.T) {
	m := NewMembrane(DefaultCatalog())
	if err := m.LoadModel("granule_cell"); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("LoadModel(granule_cell) error = %v, want ErrModelNotFound", err)
	}
}

func TestSetupBeforeLoad(t *testing.T) {
	m := NewMembrane(DefaultCatalog())
	if err := m.SetupRecording("soma", "v"); !errors.Is(err, ErrNoModelLoaded) {
		t.Errorf("SetupRecording error = %v, want ErrNoModelLoaded", err)
	}
	if err := m.SetupStimulus("soma", "IClamp", StimulusParams{}); !errors.Is(err, ErrNoModelLoaded) {
		t.Errorf("SetupStimulus error = %v, want ErrNoModelLoaded", err)
	}
}

func TestSetupRecordingValidation(t *testing.T) {
	m := newLoadedMembrane(t)

	if err := m.SetupRecording("axon", "v"); !errors.Is(err, ErrUnknownSection) {
		t.Errorf("SetupRecording(axon) error = %v, want ErrUnknownSection", err)
	}
	if err := m.SetupRecording("soma", "cai"); !errors.Is(err, ErrUnsupportedVariable) {
		t.Errorf("SetupRecording(soma, cai) error = %v, want ErrUnsupportedVariable", err)
	}
	if err := m.SetupRecording("soma", "v"); err != nil {
		t.Errorf("SetupRecording(soma, v): %v", err)
	}
	if err := m.SetupRecording("soma", "i"); err != nil {
		t.Errorf("SetupRecording(soma, i): %v", err)
	}
}

func TestSetupRecordingDuplicateIsNoOp(t *testing.T) {
	m := newLoadedMembrane(t)

	if err := m.SetupRecording("soma", "v"); err != nil {
		t.Fatalf("SetupRecording: %v", err)
	}
	if err := m.SetupRecording("soma", "v"); err != nil {
		t.Fatalf("SetupRecording (duplicate): %v", err)
	}

	result, err := m.Run(RunParams{Duration: 10, Dt: 0.1, VInit: -65, Celsius: 34}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	trace, ok := result.Recordings["soma_v"]
	if !ok {
		t.Fatal("missing soma_v recording")
	}
	if len(trace) != len(result.Time) {
		t.Errorf("recording len = %d, time len = %d, want equal", len(trace), len(result.Time))
	}
}

func TestSetupStimulusValidation(t *testing.T) {
	m := newLoadedMembrane(t)

	if err := m.SetupStimulus("soma", "SEClamp", StimulusParams{}); !errors.Is(err, ErrUnsupportedStimulus) {
		t.Errorf("SetupStimulus(SEClamp) error = %v, want ErrUnsupportedStimulus", err)
	}
	if err := m.SetupStimulus("dend", "IClamp", StimulusParams{}); !errors.Is(err, ErrUnknownSection) {
		t.Errorf("SetupStimulus(dend) error = %v, want ErrUnknownSection", err)
	}
	if err := m.SetupStimulus("soma", "IClamp", StimulusParams{Delay: 100, Duration: 500, Amplitude: 0.1}); err != nil {
		t.Errorf("SetupStimulus(IClamp): %v", err)
	}
}

func TestRunTimeSeriesLength(t *testing.T) {
	m := newLoadedMembrane(t)
	if err := m.SetupRecording("soma", "v"); err != nil {
		t.Fatalf("SetupRecording: %v", err)
	}

	res, err := m.Run(RunParams{Duration: 300, Dt: 0.025, VInit: -65, Celsius: 34}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantSteps := int(300 / 0.025)
	if diff := len(res.Time) - wantSteps; diff < -1 || diff > 1 {
		t.Errorf("len(Time) = %d, want %d (±1)", len(res.Time), wantSteps)
	}
	if len(res.Recordings["soma_v"]) != len(res.Time) {
		t.Errorf("len(soma_v) = %d, want %d", len(res.Recordings["soma_v"]), len(res.Time))
	}
	if res.Time[0] != 0 {
		t.Errorf("Time[0] = %v, want 0", res.Time[0])
	}
	if res.Params["duration"] != 300 || res.Params["dt"] != 0.025 {
		t.Errorf("Params = %v, want duration=300 dt=0.025", res.Params)
	}
}

func TestRunRestsAtLeakReversal(t *testing.T) {
	m := newLoadedMembrane(t)
	if err := m.SetupRecording("soma", "v"); err != nil {
		t.Fatalf("SetupRecording: %v", err)
	}

	// No stimulus and VInit at the leak reversal: the trace must stay flat.
	res, err := m.Run(RunParams{Duration: 100, Dt: 0.025, VInit: -65, Celsius: 34}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, v := range res.Recordings["soma_v"] {
		if math.Abs(v-(-65)) > 1e-9 {
			t.Fatalf("soma_v[%d] = %v, want -65", i, v)
		}
	}
}

func TestRunIClampDepolarizes(t *testing.T) {
	m := newLoadedMembrane(t)
	if err := m.SetupRecording("soma", "v"); err != nil {
		t.Fatalf("SetupRecording: %v", err)
	}
	if err := m.SetupStimulus("soma", "IClamp", StimulusParams{Delay: 10, Duration: 50, Amplitude: 0.1}); err != nil {
		t.Fatalf("SetupStimulus: %v", err)
	}

	res, err := m.Run(RunParams{Duration: 100, Dt: 0.025, VInit: -65, Celsius: 34}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var peak float64 = -math.MaxFloat64
	for _, v := range res.Recordings["soma_v"] {
		if v > peak {
			peak = v
		}
	}
	if peak <= -65 {
		t.Errorf("peak voltage = %v, want > -65 under positive current clamp", peak)
	}
}

func TestRunVClampPinsVoltage(t *testing.T) {
	m := newLoadedMembrane(t)
	if err := m.SetupRecording("soma", "v"); err != nil {
		t.Fatalf("SetupRecording: %v", err)
	}
	if err := m.SetupStimulus("soma", "VClamp", StimulusParams{Delay: 10, Duration: 20, Amplitude: -40}); err != nil {
		t.Fatalf("SetupStimulus: %v", err)
	}

	res, err := m.Run(RunParams{Duration: 50, Dt: 0.025, VInit: -65, Celsius: 34}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Sample a point in the middle of the clamp window.
	idx := int(20 / 0.025)
	if got := res.Recordings["soma_v"][idx]; got != -40 {
		t.Errorf("soma_v at t=20ms = %v, want -40 (clamped)", got)
	}
}

func TestRunProgressCheckpoints(t *testing.T) {
	m := newLoadedMembrane(t)

	var calls int
	var lastStep, lastTotal int
	progress := func(step, total int) bool {
		calls++
		if step < lastStep {
			t.Errorf("progress step went backwards: %d after %d", step, lastStep)
		}
		lastStep, lastTotal = step, total
		return true
	}

	if _, err := m.Run(RunParams{Duration: 100, Dt: 0.025, VInit: -65, Celsius: 34}, progress); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls == 0 {
		t.Fatal("progress callback was never invoked")
	}
	if lastStep != lastTotal {
		t.Errorf("final progress call = (%d, %d), want step == total", lastStep, lastTotal)
	}
}

func TestRunAbortedByCallback(t *testing.T) {
	m := newLoadedMembrane(t)

	_, err := m.Run(RunParams{Duration: 100, Dt: 0.025, VInit: -65, Celsius: 34}, func(step, total int) bool {
		return step < total/2
	})
	if !errors.Is(err, ErrAborted) {
		t.Errorf("Run error = %v, want ErrAborted", err)
	}
}

func TestCleanupIdempotent(t *testing.T) {
	m := newLoadedMembrane(t)
	if err := m.SetupRecording("soma", "v"); err != nil {
		t.Fatalf("SetupRecording: %v", err)
	}

	if err := m.Cleanup(); err != nil {
		t.Errorf("Cleanup: %v", err)
	}
	if err := m.Cleanup(); err != nil {
		t.Errorf("second Cleanup: %v", err)
	}

	// Per-run state is gone after cleanup.
	if err := m.SetupRecording("soma", "v"); !errors.Is(err, ErrNoModelLoaded) {
		t.Errorf("SetupRecording after Cleanup error = %v, want ErrNoModelLoaded", err)
	}
}
