package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/neurolabhq/neurosim/internal/model"
	"github.com/neurolabhq/neurosim/internal/sim"
	"github.com/neurolabhq/neurosim/internal/store"
)

// DefaultTimeoutS is the default simulation timeout in seconds when none is
// specified.
const DefaultTimeoutS = 3600

// ErrAlreadyFinished is returned by Cancel when the simulation is already in
// a terminal status.
var ErrAlreadyFinished = errors.New("simulation already finished")

// RunArchiver persists terminal runs. Archiving is best-effort: failures are
// logged and never change a job's terminal status.
type RunArchiver interface {
	SaveRun(ctx context.Context, s *model.Simulation) error
}

// Engine orchestrates asynchronous simulation execution.
type Engine struct {
	store    store.Store
	factory  sim.Factory
	archive  RunArchiver
	controls *controller
	progress *reporter
	broker   *ProgressBroker
	logger   *slog.Logger
	wg       sync.WaitGroup

	// sem caps concurrently running simulations; nil means no cap. Queued
	// jobs wait inside their goroutine before the running transition, so
	// the deadline only counts execution time.
	sem *semaphore.Weighted

	defaultTimeout time.Duration
}

// NewEngine creates a new execution engine. archive may be nil to disable
// run archiving.
func NewEngine(s store.Store, factory sim.Factory, archive RunArchiver, logger *slog.Logger) *Engine {
	return &Engine{
		store:          s,
		factory:        factory,
		archive:        archive,
		controls:       newController(),
		progress:       &reporter{store: s},
		broker:         NewProgressBroker(),
		logger:         logger,
		defaultTimeout: DefaultTimeoutS * time.Second,
	}
}

// SetDefaultTimeout overrides the timeout applied to jobs that specify none.
func (e *Engine) SetDefaultTimeout(d time.Duration) {
	if d > 0 {
		e.defaultTimeout = d
	}
}

// SetMaxConcurrent caps the number of simulations executing at once.
// n <= 0 leaves execution uncapped.
func (e *Engine) SetMaxConcurrent(n int64) {
	if n > 0 {
		e.sem = semaphore.NewWeighted(n)
	}
}

// Broker returns the engine's event broker for SSE subscription.
func (e *Engine) Broker() *ProgressBroker {
	return e.broker
}

// Submit registers a queued simulation record and launches asynchronous
// execution in a goroutine, returning without waiting for execution to start.
// The goroutine operates on a copy of the record to avoid data races with the
// caller. Exactly one runner exists per id.
func (e *Engine) Submit(ctx context.Context, s *model.Simulation) error {
	if err := e.store.Create(ctx, s); err != nil {
		return fmt.Errorf("create simulation: %w", err)
	}

	timeout := e.defaultTimeout
	if s.TimeoutS != nil && *s.TimeoutS > 0 {
		timeout = time.Duration(*s.TimeoutS) * time.Second
	}
	e.controls.register(s.ID, timeout)

	sCopy := *s
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.execute(&sCopy)
	}()

	return nil
}

// Cancel requests cooperative cancellation of a simulation. It returns as
// soon as the signal is recorded; callers observe the job actually stopping
// by polling status until it is terminal. Returns store.ErrNotFound for
// unknown ids and ErrAlreadyFinished when the job is already terminal.
func (e *Engine) Cancel(ctx context.Context, id string) error {
	s, err := e.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if model.IsTerminal(s.Status) {
		return fmt.Errorf("%w: status is %s", ErrAlreadyFinished, s.Status)
	}

	if !e.controls.requestCancel(id) {
		// Signal was already set; cancellation is idempotent.
		return nil
	}
	e.logger.Info("cancellation requested", "simulation_id", id)
	return nil
}

// Progress returns the job's current progress, defaulting to 0 for ids the
// registry does not know.
func (e *Engine) Progress(ctx context.Context, id string) float64 {
	return e.progress.get(ctx, id)
}

// Wait blocks until all in-flight simulation goroutines complete.
func (e *Engine) Wait() {
	e.wg.Wait()
}
