package domain

import (
	"log/slog"
	"maps"
	"sort"
	"strings"

	"loadpath.dev/pkg/loadpath/internal/metrics"
	m "loadpath.dev/pkg/loadpath/internal/model"
)

// IndexView is the read-only side of the unit index.
type IndexView interface {
	Code(name string) ([]byte, bool)
	Resource(name string) ([]byte, bool)
	Lookup(kind m.UnitKind, name string) (m.Unit, bool)
	IsTransformable(name string) bool
	Manifests() map[string]string
	ManifestList() []m.Manifest
	ExportAll() m.OverrideSet
	Units(kind m.UnitKind) []m.Unit
	Len(kind m.UnitKind) int
}

// Index is the aggregate namespace of code and resource units. It has a
// single writer (the resolver during its build phases) and is not safe for
// concurrent mutation.
type Index struct {
	manifestSuffix string
	code           map[string]m.Unit
	resources      map[string]m.Unit
	transformable  map[string]bool
	manifests      map[string]string
}

var _ IndexView = (*Index)(nil)

// NewIndex constructs an empty index using the manifest suffix from opts.
func NewIndex(opts Options) *Index {
	opts = opts.withDefaults()

	return &Index{
		manifestSuffix: opts.ManifestSuffix,
		code:           make(map[string]m.Unit),
		resources:      make(map[string]m.Unit),
		transformable:  make(map[string]bool),
		manifests:      make(map[string]string),
	}
}

// Put inserts unit into the table for its kind, replacing any unit with the
// same name. A name lives in at most one table.
func (x *Index) Put(unit m.Unit) {
	switch unit.Kind {
	case m.KindCode:
		x.dropResource(unit.Name)
		x.code[unit.Name] = unit

		// A true flag is never cleared by a later overwrite.
		if unit.Transformable {
			x.transformable[unit.Name] = true
		} else if _, ok := x.transformable[unit.Name]; !ok {
			x.transformable[unit.Name] = false
		}

	case m.KindResource:
		delete(x.code, unit.Name)
		delete(x.transformable, unit.Name)
		x.resources[unit.Name] = unit

		if owner, ok := x.manifestOwner(unit.Name); ok {
			x.manifests[owner] = string(unit.Data)
		}

	default:
		slog.Warn("ignoring unit of unknown kind", "name", unit.Name, "kind", unit.Kind)
		return
	}

	metrics.UnitsIndexed.WithLabelValues(unit.Kind.String()).Inc()
}

// Code returns the bytes of the code unit name.
func (x *Index) Code(name string) ([]byte, bool) {
	unit, ok := x.code[name]
	return unit.Data, ok
}

// Resource returns the bytes of the resource unit name.
func (x *Index) Resource(name string) ([]byte, bool) {
	unit, ok := x.resources[name]
	return unit.Data, ok
}

// Lookup returns the full unit record.
func (x *Index) Lookup(kind m.UnitKind, name string) (m.Unit, bool) {
	var (
		unit m.Unit
		ok   bool
	)

	switch kind {
	case m.KindCode:
		unit, ok = x.code[name]
		unit.Transformable = x.transformable[name]
	case m.KindResource:
		unit, ok = x.resources[name]
	}

	return unit, ok
}

// IsTransformable reports the provenance flag of a code unit; absent names are false.
func (x *Index) IsTransformable(name string) bool {
	return x.transformable[name]
}

// Manifests returns a copy of the owner -> manifest text table.
func (x *Index) Manifests() map[string]string {
	return maps.Clone(x.manifests)
}

// ManifestList returns the manifests sorted by owner.
func (x *Index) ManifestList() []m.Manifest {
	out := make([]m.Manifest, 0, len(x.manifests))
	for owner, text := range x.manifests {
		out = append(out, m.Manifest{Owner: owner, Text: text})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Owner < out[j].Owner })

	return out
}

// ExportAll returns the whole code table keyed by slash-form names. Resource
// units are never included.
func (x *Index) ExportAll() m.OverrideSet {
	set := make(m.OverrideSet, len(x.code))
	for name, unit := range x.code {
		set[ForeignName(name)] = unit.Data
	}

	return set
}

// MergeOverrides replaces the bytes of every named code unit. Names that were
// not indexed are admitted as new transformable code units.
func (x *Index) MergeOverrides(set m.OverrideSet) m.MergeReport {
	report := m.MergeReport{}

	foreign := make([]string, 0, len(set))
	for name := range set {
		foreign = append(foreign, name)
	}

	sort.Strings(foreign)

	for _, raw := range foreign {
		name := NameFromForeign(raw)

		if unit, ok := x.code[name]; ok {
			unit.Data = set[raw]
			x.code[name] = unit
			report.Replaced++

			metrics.OverridesApplied.WithLabelValues("existing").Inc()

			continue
		}

		slog.Warn("override targets a unit that was never indexed", "name", name)
		x.Put(m.Unit{Name: name, Data: set[raw], Kind: m.KindCode, Transformable: true})
		report.Added = append(report.Added, name)

		metrics.OverridesApplied.WithLabelValues("new").Inc()
	}

	return report
}

// Units returns every unit of kind sorted by name.
func (x *Index) Units(kind m.UnitKind) []m.Unit {
	table := x.code
	if kind == m.KindResource {
		table = x.resources
	}

	out := make([]m.Unit, 0, len(table))
	for name, unit := range table {
		if kind == m.KindCode {
			unit.Transformable = x.transformable[name]
		}

		out = append(out, unit)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

// Len returns the number of units of kind.
func (x *Index) Len(kind m.UnitKind) int {
	if kind == m.KindResource {
		return len(x.resources)
	}

	return len(x.code)
}

func (x *Index) manifestOwner(name string) (string, bool) {
	if !strings.HasSuffix(name, x.manifestSuffix) {
		return "", false
	}

	return strings.TrimSuffix(name, x.manifestSuffix), true
}

func (x *Index) dropResource(name string) {
	if _, ok := x.resources[name]; !ok {
		return
	}

	delete(x.resources, name)

	if owner, ok := x.manifestOwner(name); ok {
		delete(x.manifests, owner)
	}
}
