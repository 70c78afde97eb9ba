package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/neurolabhq/neurosim/internal/model"
	"github.com/neurolabhq/neurosim/internal/sim"
)

// Progress floors for the stage pipeline. The compute stage spans from its
// floor to 100 proportionally to the simulator's step/total ratio; result
// collection snaps to 100.
const (
	progressModelLoaded    = 10.0
	progressRecordingReady = 20.0
	progressComputeFloor   = 30.0
)

// execute runs the stage pipeline for one simulation:
// queued → running → completed/failed/cancelled. Simulator cleanup runs
// exactly once on every exit path, including panics unwinding the runner.
func (e *Engine) execute(s *model.Simulation) {
	defer e.broker.Close(s.ID)
	defer e.controls.release(s.ID)

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("runner fault", "simulation_id", s.ID, "panic", r)
			e.finish(s.ID, model.StatusFailed, fmt.Sprintf("internal fault: %v", r), nil)
		}
	}()

	if e.sem != nil {
		if err := e.sem.Acquire(context.Background(), 1); err != nil {
			e.finish(s.ID, model.StatusFailed, fmt.Sprintf("acquire execution slot: %v", err), nil)
			return
		}
		defer e.sem.Release(1)
	}

	simulator := e.factory()
	defer func() {
		if err := simulator.Cleanup(); err != nil {
			e.logger.Error("simulator cleanup", "simulation_id", s.ID, "error", err)
		}
	}()

	// Transition to running. startedAt is captured here so the deadline
	// covers execution only, not time spent waiting for a slot.
	start := time.Now().UTC()
	err := e.store.Update(context.Background(), s.ID, func(rec *model.Simulation) error {
		rec.Status = model.StatusRunning
		rec.StartedAt = &start
		rec.Progress = 0
		return nil
	})
	if err != nil {
		e.logger.Error("failed to transition to running", "simulation_id", s.ID, "error", err)
		e.finish(s.ID, model.StatusFailed, fmt.Sprintf("failed to start: %v", err), nil)
		return
	}
	e.controls.markStarted(s.ID)
	simulationsRunning.Inc()
	defer simulationsRunning.Dec()
	e.broker.Publish(s.ID, Event{Status: model.StatusRunning, Progress: 0})

	if e.controls.shouldStop(s.ID) {
		e.finishStopped(s.ID)
		return
	}

	// Model load.
	if err := simulator.LoadModel(s.ModelID); err != nil {
		e.finish(s.ID, model.StatusFailed, fmt.Sprintf("load model: %v", err), nil)
		return
	}
	e.setProgress(s.ID, progressModelLoaded)

	if e.controls.shouldStop(s.ID) {
		e.finishStopped(s.ID)
		return
	}

	// Recording setup.
	for _, rec := range s.Recordings {
		if err := simulator.SetupRecording(rec.Section, rec.Variable); err != nil {
			e.finish(s.ID, model.StatusFailed, fmt.Sprintf("setup recording %s.%s: %v", rec.Section, rec.Variable, err), nil)
			return
		}
	}
	e.setProgress(s.ID, progressRecordingReady)

	if e.controls.shouldStop(s.ID) {
		e.finishStopped(s.ID)
		return
	}

	// Stimulus setup.
	section := s.Stimulus.Section
	if section == "" {
		section = model.DefaultSection
	}
	err = simulator.SetupStimulus(section, s.Stimulus.Type, sim.StimulusParams{
		Delay:     s.Stimulus.Delay,
		Duration:  s.Stimulus.Duration,
		Amplitude: s.Stimulus.Amplitude,
	})
	if err != nil {
		e.finish(s.ID, model.StatusFailed, fmt.Sprintf("setup stimulus: %v", err), nil)
		return
	}
	e.setProgress(s.ID, progressComputeFloor)

	if e.controls.shouldStop(s.ID) {
		e.finishStopped(s.ID)
		return
	}

	// Compute. The callback maps the simulator's step counts into the
	// [30,100) sub-range and doubles as the cooperative stop checkpoint.
	progressFn := func(step, total int) bool {
		if e.controls.shouldStop(s.ID) {
			return false
		}
		if total > 0 {
			frac := float64(step) / float64(total)
			e.setProgress(s.ID, progressComputeFloor+frac*(100-progressComputeFloor))
		}
		return true
	}

	result, runErr := simulator.Run(sim.RunParams{
		Duration: s.Conditions.Duration,
		Dt:       s.Conditions.Dt,
		VInit:    s.Conditions.VInit,
		Celsius:  s.Conditions.Celsius,
	}, progressFn)

	if e.controls.shouldStop(s.ID) {
		e.finishStopped(s.ID)
		return
	}
	if runErr != nil {
		e.finish(s.ID, model.StatusFailed, fmt.Sprintf("run: %v", runErr), nil)
		return
	}

	// Result collection.
	e.finish(s.ID, model.StatusCompleted, "", result)
}

// setProgress clamps and stores a progress value and publishes it to event
// subscribers.
func (e *Engine) setProgress(id string, value float64) {
	if err := e.progress.set(context.Background(), id, value); err != nil {
		e.logger.Error("set progress", "simulation_id", id, "error", err)
	}
	e.broker.Publish(id, Event{Status: model.StatusRunning, Progress: value})
}

// finishStopped commits the cancelled terminal status with the controller's
// pre-populated reason (explicit cancel or timeout).
func (e *Engine) finishStopped(id string) {
	reason, timedOut := e.controls.stopReason(id)
	if timedOut {
		e.logger.Info("simulation timed out", "simulation_id", id)
	}
	e.finish(id, model.StatusCancelled, reason, nil)
}

// finish writes the terminal state for a job: status, error, result, progress,
// timing. It then records metrics, publishes the terminal event, and archives
// the run. Archive failures are logged, never propagated.
func (e *Engine) finish(id, status, errMsg string, result *model.Result) {
	now := time.Now().UTC()
	var final model.Simulation
	err := e.store.Update(context.Background(), id, func(rec *model.Simulation) error {
		rec.Status = status
		rec.Error = errMsg
		rec.Result = result
		rec.FinishedAt = &now
		if rec.StartedAt != nil {
			d := int(now.Sub(*rec.StartedAt).Milliseconds())
			rec.DurationMS = &d
		}
		if status == model.StatusCompleted {
			rec.Progress = 100
		}
		final = *rec
		return nil
	})
	if err != nil {
		e.logger.Error("failed to finish simulation", "simulation_id", id, "status", status, "error", err)
		return
	}

	simulationsTotal.WithLabelValues(status).Inc()
	if final.DurationMS != nil {
		simulationDuration.Observe(float64(*final.DurationMS) / 1000)
	}

	e.broker.Publish(id, Event{Status: status, Progress: final.Progress, Error: errMsg})

	if e.archive != nil {
		if err := e.archive.SaveRun(context.Background(), &final); err != nil {
			e.logger.Error("archive run", "simulation_id", id, "error", err)
		}
	}

	e.logger.Info("simulation finished", "simulation_id", id, "status", status)
}
