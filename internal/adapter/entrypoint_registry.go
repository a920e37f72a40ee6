package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	m "loadpath.dev/pkg/loadpath/internal/model"
)

// ErrEntryPointExists is returned when a name is registered twice.
var ErrEntryPointExists = errors.New("entry point already registered")

// UnitLoader is the view of the resolver handed to a launched entry point.
type UnitLoader interface {
	Resolve(ctx context.Context, name string) (*m.Materialized, error)
	FindResource(ctx context.Context, name string) ([]byte, error)
	Phase() m.Phase
	// Materialized lists the units the engine holds so far.
	Materialized() []m.Materialized
}

// EntryEnv is what an entry point receives besides its argument vector.
type EntryEnv struct {
	Out   io.Writer
	Units UnitLoader
}

// EntryPoint is a callable located by name and invoked with an argument vector.
type EntryPoint func(ctx context.Context, env EntryEnv, args []string) error

// EntryPointRegistry is the dispatch table used instead of reflective lookup.
type EntryPointRegistry interface {
	// Register associates name with fn. Conflicting re-registrations fail.
	Register(name string, fn EntryPoint) error
	// Lookup returns the entry point registered under name.
	Lookup(name string) (EntryPoint, bool)
	// Names returns the registered names sorted.
	Names() []string
}

// LocalEntryPointRegistry is a map-backed EntryPointRegistry.
type LocalEntryPointRegistry struct {
	mu      sync.RWMutex
	entries map[string]EntryPoint
}

// NewLocalEntryPointRegistry constructs an empty registry.
func NewLocalEntryPointRegistry() *LocalEntryPointRegistry {
	return &LocalEntryPointRegistry{entries: make(map[string]EntryPoint)}
}

// Register implements EntryPointRegistry.
func (r *LocalEntryPointRegistry) Register(name string, fn EntryPoint) error {
	if name == "" || fn == nil {
		return fmt.Errorf("invalid entry point %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[name]; ok {
		return fmt.Errorf("%w: %s", ErrEntryPointExists, name)
	}

	r.entries[name] = fn

	return nil
}

// Lookup implements EntryPointRegistry.
func (r *LocalEntryPointRegistry) Lookup(name string) (EntryPoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.entries[name]

	return fn, ok
}

// Names implements EntryPointRegistry.
func (r *LocalEntryPointRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
