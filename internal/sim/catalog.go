package sim

import (
	"fmt"
	"sort"
	"sync"
)

// CellModel describes a single-compartment cell: its geometry and passive
// membrane properties. Units follow the conventions of compartmental
// simulators (um, uF/cm2, S/cm2, mV, ohm-cm).
type CellModel struct {
	Name     string   `json:"name"`
	Sections []string `json:"sections"`

	LengthUM float64 `json:"length_um"`
	DiamUM   float64 `json:"diam_um"`
	CmUFCM2  float64 `json:"cm_uf_cm2"`
	RaOhmCM  float64 `json:"ra_ohm_cm"`
	GPasSCM2 float64 `json:"g_pas_s_cm2"`
	EPasMV   float64 `json:"e_pas_mv"`
}

// HasSection reports whether the cell exposes a section with the given name.
func (c CellModel) HasSection(name string) bool {
	for _, s := range c.Sections {
		if s == name {
			return true
		}
	}
	return false
}

// Catalog holds the named cell models a simulator can load. It is safe for
// concurrent use.
type Catalog struct {
	mu     sync.RWMutex
	models map[string]CellModel
}

// NewCatalog creates an empty cell model catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		models: make(map[string]CellModel),
	}
}

// Register adds a cell model to the catalog under its name.
func (c *Catalog) Register(m CellModel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models[m.Name] = m
}

// Resolve returns the cell model registered under the given id.
// Returns ErrModelNotFound for unknown ids.
func (c *Catalog) Resolve(modelID string) (CellModel, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, ok := c.models[modelID]
	if !ok {
		return CellModel{}, fmt.Errorf("%w: %q", ErrModelNotFound, modelID)
	}
	return m, nil
}

// List returns all registered cell models, sorted by name for a stable
// API response.
func (c *Catalog) List() []CellModel {
	c.mu.RLock()
	defer c.mu.RUnlock()

	models := make([]CellModel, 0, len(c.models))
	for _, m := range c.models {
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool {
		return models[i].Name < models[j].Name
	})
	return models
}

// DefaultCatalog returns a catalog populated with the built-in cell models.
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	c.Register(CellModel{
		Name:     "simple_neuron",
		Sections: []string{"soma"},
		LengthUM: 20,
		DiamUM:   20,
		CmUFCM2:  1,
		RaOhmCM:  100,
		GPasSCM2: 0.0001,
		EPasMV:   -65,
	})
	c.Register(CellModel{
		Name:     "large_soma",
		Sections: []string{"soma"},
		LengthUM: 40,
		DiamUM:   40,
		CmUFCM2:  1,
		RaOhmCM:  100,
		GPasSCM2: 0.0002,
		EPasMV:   -70,
	})
	return c
}
