package engine

import (
	"context"
	"errors"

	"github.com/neurolabhq/neurosim/internal/model"
	"github.com/neurolabhq/neurosim/internal/store"
)

// reporter writes clamped progress values onto the job record. It enforces no
// ordering of its own; monotonicity comes from the runner's stage design,
// where each stage reports at least the previous stage's floor.
type reporter struct {
	store store.Store
}

// set clamps value into [0,100] and stores it. Unknown ids are a no-op:
// progress writes racing record cleanup must not fail the runner.
func (r *reporter) set(ctx context.Context, id string, value float64) error {
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}

	err := r.store.Update(ctx, id, func(s *model.Simulation) error {
		s.Progress = value
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

// get returns the job's progress, defaulting to 0 for unknown ids.
func (r *reporter) get(ctx context.Context, id string) float64 {
	s, err := r.store.Get(ctx, id)
	if err != nil {
		return 0
	}
	return s.Progress
}
