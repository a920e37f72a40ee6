package domain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"syscall"

	lru "github.com/hashicorp/golang-lru"
	"github.com/yalue/merged_fs"

	"loadpath.dev/pkg/loadpath/internal/adapter"
	"loadpath.dev/pkg/loadpath/internal/metrics"
	m "loadpath.dev/pkg/loadpath/internal/model"
)

// Resolver serves materialization requests: indexed bytes first, then the raw
// search path built from the registered entries in registration order.
//
// The resolver owns its index. It starts Collecting and becomes Active once
// Transform merged the overrides; materialization is irreversible, so the
// bootstrap sequence must call Transform before the first real request.
type Resolver struct {
	mu sync.RWMutex

	fsAdapter adapter.SourceFSAdapter
	engine    adapter.Engine
	scanner   *Scanner
	merger    *Merger
	index     *Index
	opts      Options

	entries     []m.Entry
	layers      []fs.FS
	search      fs.FS
	closers     []io.Closer
	resources   *lru.Cache
	phase       m.Phase
	diagnostics []m.Diagnostic
}

var _ adapter.UnitLoader = (*Resolver)(nil)

// NewResolver builds the index from paths in order. Unreadable sources are
// recorded as diagnostics; they never abort construction.
func NewResolver(ctx context.Context, fsAdapter adapter.SourceFSAdapter, engine adapter.Engine, paths []m.Path, opts Options) (*Resolver, error) {
	opts = opts.withDefaults()

	scanner, err := NewScanner(fsAdapter, opts)
	if err != nil {
		return nil, err
	}

	cache, err := lru.New(opts.ResourceCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource cache: %w", err)
	}

	r := &Resolver{
		fsAdapter: fsAdapter,
		engine:    engine,
		scanner:   scanner,
		merger:    NewMerger(),
		index:     NewIndex(opts),
		opts:      opts,
		resources: cache,
		phase:     m.PhaseCollecting,
	}

	entries := make([]m.Entry, 0, len(paths))
	for _, p := range paths {
		entries = append(entries, ClassifyEntry(ctx, fsAdapter, p, false, opts.ArchiveSuffix))
	}

	results, err := scanner.ScanAll(ctx, entries, opts.Parallel)
	if err != nil {
		return nil, err
	}

	for _, result := range results {
		r.apply(ctx, result)
	}

	slog.Info("built unit index",
		"sources", len(entries),
		"code", r.index.Len(m.KindCode),
		"resources", r.index.Len(m.KindResource),
		"diagnostics", len(r.diagnostics))

	return r, nil
}

// AddSource scans path with transformable code units and appends it to the
// search path. Names that were already materialized are not re-resolved.
func (r *Resolver) AddSource(ctx context.Context, p m.Path) error {
	entry := ClassifyEntry(ctx, r.fsAdapter, p, true, r.opts.ArchiveSuffix)
	if entry.Type == m.EntryMissing {
		slog.Error("Failed to add source", "path", p, "error", ErrSourceMissing)
		return fmt.Errorf("failed to add source: %w: %s", ErrSourceMissing, p)
	}

	result := r.scanner.Scan(ctx, entry)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase == m.PhaseActive {
		slog.Warn("source added after overrides were merged", "path", p)
	}

	r.apply(ctx, result)

	return nil
}

// Transform runs the one-shot override merge and switches to Active. A failed
// merge leaves the resolver Collecting.
func (r *Resolver) Transform(ctx context.Context, transformer adapter.Transformer) (m.MergeReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase == m.PhaseActive {
		return m.MergeReport{}, ErrAlreadyActive
	}

	report, err := r.merger.Apply(ctx, r.index, transformer)
	if err != nil {
		return m.MergeReport{}, err
	}

	for _, name := range report.Added {
		r.diagnostics = append(r.diagnostics, m.Diagnostic{
			Severity: m.SeverityWarning,
			Code:     "override_target_missing",
			Message:  fmt.Sprintf("override admitted %s as a new unit", name),
		})
	}

	r.phase = m.PhaseActive

	return report, nil
}

// Resolve materializes name. Slash or backslash separated names are taken in
// their dot form, so a unit has one materialized name only. A name the engine
// already holds is returned as is, whatever the index says now.
func (r *Resolver) Resolve(ctx context.Context, name string) (*m.Materialized, error) {
	name = NormalizeName(name)

	if unit, ok := r.engine.Loaded(name); ok {
		metrics.Resolutions.WithLabelValues("cached").Inc()
		return unit, nil
	}

	r.mu.RLock()
	unit, indexed := r.index.Lookup(m.KindCode, name)
	search, layers := r.search, r.layers
	r.mu.RUnlock()

	if indexed {
		return r.define(ctx, name, unit.Data, m.OriginIndex, unit.Source)
	}

	data, err := readSearchPath(search, layers, ForeignName(name)+r.opts.CodeSuffix)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			metrics.Resolutions.WithLabelValues("not_found").Inc()
			return nil, &ResolutionError{Name: name, Err: ErrUnitNotFound}
		}

		metrics.Resolutions.WithLabelValues("error").Inc()
		slog.Error("Failed to read unit from search path", "name", name, "error", err)

		return nil, &ResolutionError{Name: name, Err: err}
	}

	return r.define(ctx, name, data, m.OriginFallback, "")
}

// FindResource returns the bytes of a resource given by its slash-separated
// path, consulting the index before the search path.
func (r *Resolver) FindResource(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	data, ok := r.index.Resource(NormalizeName(name))
	search, layers := r.search, r.layers
	r.mu.RUnlock()

	if ok {
		return data, nil
	}

	if cached, ok := r.resources.Get(name); ok {
		return cached.([]byte), nil
	}

	data, err := readSearchPath(search, layers, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ResolutionError{Name: name, Err: ErrUnitNotFound}
		}

		return nil, &ResolutionError{Name: name, Err: err}
	}

	r.resources.Add(name, data)

	return data, nil
}

// Phase returns the lifecycle phase.
func (r *Resolver) Phase() m.Phase {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.phase
}

// Entries returns the registered entries in registration order.
func (r *Resolver) Entries() []m.Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]m.Entry(nil), r.entries...)
}

// View exposes the index read-only.
func (r *Resolver) View() IndexView {
	return r.index
}

// Materialized lists the units the engine holds so far.
func (r *Resolver) Materialized() []m.Materialized {
	return r.engine.Units()
}

// Diagnostics returns every non-fatal finding collected so far.
func (r *Resolver) Diagnostics() []m.Diagnostic {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]m.Diagnostic(nil), r.diagnostics...)
}

// Close releases the archives held open for the search path.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error

	for _, c := range r.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	r.closers = nil

	return errors.Join(errs...)
}

func (r *Resolver) define(ctx context.Context, name string, data []byte, origin m.Origin, source m.Path) (*m.Materialized, error) {
	unit, err := r.engine.Define(ctx, name, data, origin, source)
	if err != nil {
		// Lost a race with a concurrent request for the same name.
		if errors.Is(err, adapter.ErrDuplicateDefinition) {
			if loaded, ok := r.engine.Loaded(name); ok {
				metrics.Resolutions.WithLabelValues("cached").Inc()
				return loaded, nil
			}
		}

		metrics.Resolutions.WithLabelValues("error").Inc()
		slog.Error("Failed to materialize unit", "name", name, "origin", origin, "error", err)

		return nil, &ResolutionError{Name: name, Err: err}
	}

	metrics.Resolutions.WithLabelValues(string(origin)).Inc()
	slog.Debug("materialized unit", "name", name, "origin", origin, "size", unit.Size)

	return unit, nil
}

// apply puts the scan result into the index and appends its entry to the
// search path. Callers hold the write lock (or own the resolver exclusively).
func (r *Resolver) apply(ctx context.Context, result ScanResult) {
	for _, unit := range result.Units {
		r.index.Put(unit)
	}

	r.diagnostics = append(r.diagnostics, result.Diagnostics...)
	r.entries = append(r.entries, result.Entry)

	layer, closer := r.openLayer(ctx, result.Entry)
	if layer == nil {
		return
	}

	if closer != nil {
		r.closers = append(r.closers, closer)
	}

	r.layers = append(r.layers, layer)
	r.search = merged_fs.MergeMultiple(r.layers...)
}

func (r *Resolver) openLayer(ctx context.Context, entry m.Entry) (fs.FS, io.Closer) {
	switch entry.Type {
	case m.EntryDirectory:
		return os.DirFS(string(entry.Path)), nil
	case m.EntryArchive:
		reader, err := r.fsAdapter.OpenArchive(ctx, entry.Path)
		if err != nil {
			slog.Debug("archive left off the search path", "path", entry.Path, "error", err)
			return nil, nil
		}

		return reader, reader
	default:
		return nil, nil
	}
}

// readSearchPath reads name from the merged search path. When the merged view
// fails, for example because an earlier entry holds a plain file where a
// later entry has a directory, the entries are searched one by one in
// registration order.
func readSearchPath(search fs.FS, layers []fs.FS, name string) ([]byte, error) {
	if search == nil || !fs.ValidPath(name) {
		return nil, fs.ErrNotExist
	}

	data, err := fs.ReadFile(search, name)
	if err == nil {
		return data, nil
	}

	var readErr error

	for _, layer := range layers {
		data, err := fs.ReadFile(layer, name)
		if err == nil {
			return data, nil
		}

		if !isSearchMiss(err) && readErr == nil {
			readErr = err
		}
	}

	if readErr != nil {
		return nil, readErr
	}

	return nil, fs.ErrNotExist
}

// isSearchMiss reports whether err only means name is absent from one entry.
func isSearchMiss(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) || errors.Is(err, fs.ErrInvalid)
}
