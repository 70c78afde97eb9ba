package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/neurolabhq/neurosim/internal/model"
)

// Compile-time interface satisfaction check.
var _ Store = (*MemoryStore)(nil)

// MemoryStore is the in-memory registry of simulation records. All job
// bookkeeping lives here; terminal records are retained until process exit.
// It is safe for concurrent use by the dispatcher, runners, and any number
// of readers.
type MemoryStore struct {
	mu    sync.RWMutex
	sims  map[string]*model.Simulation
	order []string // ids in creation order
}

// NewMemoryStore creates an empty in-memory registry.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sims: make(map[string]*model.Simulation),
	}
}

// Close implements Store. The memory store holds no external resources.
func (m *MemoryStore) Close() error {
	return nil
}

// Create inserts a new simulation record.
func (m *MemoryStore) Create(_ context.Context, s *model.Simulation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sims[s.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, s.ID)
	}

	cp := *s
	m.sims[s.ID] = &cp
	m.order = append(m.order, s.ID)
	return nil
}

// Get retrieves a snapshot of a simulation by id. The returned record is a
// copy; a read racing an Update observes either the pre- or post-update
// record, never a partial write.
func (m *MemoryStore) Get(_ context.Context, id string) (*model.Simulation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sims[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

// List returns a paginated snapshot of simulations, newest first, along with
// the total count.
func (m *MemoryStore) List(_ context.Context, limit, offset int) ([]*model.Simulation, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := len(m.order)
	var sims []*model.Simulation
	for i := total - 1 - offset; i >= 0 && len(sims) < limit; i-- {
		cp := *m.sims[m.order[i]]
		sims = append(sims, &cp)
	}
	return sims, total, nil
}

// Update applies mutate to the record under the store lock. The mutation is
// atomic with respect to all other store operations. Returns ErrNotFound for
// unknown ids and propagates any error from mutate without applying partial
// effects beyond what mutate itself did.
func (m *MemoryStore) Update(_ context.Context, id string, mutate func(s *model.Simulation) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sims[id]
	if !ok {
		return ErrNotFound
	}
	return mutate(s)
}

// Stats aggregates counts by status and the mean duration of finished runs.
func (m *MemoryStore) Stats(_ context.Context) (*SimulationStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &SimulationStats{
		Total:         len(m.sims),
		CountByStatus: make(map[string]int),
	}

	var durSum float64
	var durCount int
	for _, s := range m.sims {
		stats.CountByStatus[s.Status]++
		if s.DurationMS != nil {
			durSum += float64(*s.DurationMS)
			durCount++
		}
	}
	if durCount > 0 {
		stats.AvgDurationMS = durSum / float64(durCount)
	}
	return stats, nil
}
