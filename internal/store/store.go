package store

import (
	"context"
	"errors"

	"github.com/neurolabhq/neurosim/internal/model"
)

// ErrNotFound is returned when a simulation is not found.
var ErrNotFound = errors.New("simulation not found")

// ErrDuplicateID is returned when creating a simulation whose id already exists.
var ErrDuplicateID = errors.New("simulation id already exists")

// SimulationStats holds aggregate statistics over the registry.
type SimulationStats struct {
	Total         int            `json:"total"`
	CountByStatus map[string]int `json:"count_by_status"`
	AvgDurationMS float64        `json:"avg_duration_ms"`
}

// Store defines the registry operations for simulation records. Update applies
// an atomic read-modify-write to one record; it is the only mutation path, so
// a runner's status write and a concurrent reader never observe a half-written
// record.
type Store interface {
	Create(ctx context.Context, s *model.Simulation) error
	Get(ctx context.Context, id string) (*model.Simulation, error)
	List(ctx context.Context, limit, offset int) ([]*model.Simulation, int, error)
	Update(ctx context.Context, id string, mutate func(s *model.Simulation) error) error
	Stats(ctx context.Context) (*SimulationStats, error)
	Close() error
}
