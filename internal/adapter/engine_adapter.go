package adapter

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
	"sync"

	m "loadpath.dev/pkg/loadpath/internal/model"
)

// ErrDuplicateDefinition is returned when a name is materialized twice.
var ErrDuplicateDefinition = errors.New("unit already materialized")

// Engine is the execution engine's unit-materialization primitive.
// Materialization is irreversible: once Define succeeds for a name the engine
// keeps that form for the rest of the process lifetime.
type Engine interface {
	// Define hands unit bytes to the engine.
	Define(ctx context.Context, name string, data []byte, origin m.Origin, source m.Path) (*m.Materialized, error)

	// Loaded returns the materialized form of name, if any.
	Loaded(name string) (*m.Materialized, bool)

	// Units lists every materialized unit sorted by name.
	Units() []m.Materialized
}

// LocalEngine is an in-process Engine that keeps every materialized unit.
type LocalEngine struct {
	mu    sync.RWMutex
	units map[string]*m.Materialized
}

// NewLocalEngine constructs an empty LocalEngine.
func NewLocalEngine() *LocalEngine {
	return &LocalEngine{
		units: make(map[string]*m.Materialized),
	}
}

// Define materializes name from data.
func (e *LocalEngine) Define(ctx context.Context, name string, data []byte, origin m.Origin, source m.Path) (*m.Materialized, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.units[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateDefinition, name)
	}

	unit := &m.Materialized{
		Name:   name,
		Digest: fmt.Sprintf("%x", sha256.Sum256(data)),
		Size:   len(data),
		Origin: origin,
		Source: source,
	}

	e.units[name] = unit

	return unit, nil
}

// Loaded implements Engine.
func (e *LocalEngine) Loaded(name string) (*m.Materialized, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	unit, ok := e.units[name]

	return unit, ok
}

// Units implements Engine.
func (e *LocalEngine) Units() []m.Materialized {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]m.Materialized, 0, len(e.units))
	for _, unit := range e.units {
		out = append(out, *unit)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}
