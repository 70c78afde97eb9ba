// testserver starts a neurosim API server with a stub simulator for E2E
// testing. Usage: go run ./cmd/testserver
package main

import (
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/neurolabhq/neurosim/internal/api"
	"github.com/neurolabhq/neurosim/internal/archive"
	"github.com/neurolabhq/neurosim/internal/engine"
	"github.com/neurolabhq/neurosim/internal/model"
	"github.com/neurolabhq/neurosim/internal/sim"
	"github.com/neurolabhq/neurosim/internal/store"
)

// stubSimulator replaces the numerical integrator with a fixed-step fake so
// E2E tests can exercise the full job lifecycle in well under a second.
type stubSimulator struct {
	steps     int
	stepDelay time.Duration
}

func (s *stubSimulator) LoadModel(modelID string) error {
	if modelID == "unknown_model" {
		return sim.ErrModelNotFound
	}
	return nil
}

func (s *stubSimulator) SetupRecording(string, string) error { return nil }

func (s *stubSimulator) SetupStimulus(string, string, sim.StimulusParams) error { return nil }

func (s *stubSimulator) Run(params sim.RunParams, progress sim.ProgressFunc) (*model.Result, error) {
	for step := 0; step <= s.steps; step++ {
		if progress != nil && !progress(step, s.steps) {
			return nil, sim.ErrAborted
		}
		if step < s.steps {
			time.Sleep(s.stepDelay)
		}
	}
	return &model.Result{
		Time:       []float64{0, params.Dt},
		Recordings: map[string][]float64{"soma_v": {params.VInit, params.VInit + 0.1}},
		Params: map[string]float64{
			"duration": params.Duration,
			"dt":       params.Dt,
			"v_init":   params.VInit,
			"celsius":  params.Celsius,
		},
	}, nil
}

func (s *stubSimulator) Cleanup() error { return nil }

func main() {
	addr := ":8080"
	if v := os.Getenv("NEUROSIM_LISTEN_ADDR"); v != "" {
		addr = v
	}

	arch, err := archive.NewSQLiteArchive(":memory:")
	if err != nil {
		log.Fatalf("failed to open run archive: %v", err)
	}
	defer arch.Close()

	registry := store.NewMemoryStore()
	catalog := sim.DefaultCatalog()
	factory := func() sim.Simulator {
		return &stubSimulator{steps: 10, stepDelay: 50 * time.Millisecond}
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	eng := engine.NewEngine(registry, factory, arch, logger)
	srv := api.NewServer(addr, registry, arch, catalog, eng, logger)

	logger.Info("testserver: starting", "addr", addr)
	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
