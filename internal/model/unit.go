// Package model defines the data structures shared by the unit index, the
// resolver and the launch workflow.
package model

// UnitKind partitions the index into code and resource tables.
type UnitKind int

const (
	// KindCode is executable code that can be materialized by the engine.
	KindCode UnitKind = iota
	// KindResource is an auxiliary asset.
	KindResource
)

// String returns a human-readable kind name.
func (k UnitKind) String() string {
	switch k {
	case KindCode:
		return "code"
	case KindResource:
		return "resource"
	default:
		return "unknown"
	}
}

// Unit is a single indexed piece of loadable content.
type Unit struct {
	// Name is dot-joined, e.g. "p.q.R" for code or "assets.logo.png" for resources.
	Name          string
	Data          []byte
	Kind          UnitKind
	Transformable bool
	// Source is the entry the unit was discovered in.
	Source Path
}

// Manifest is the configuration text bundled with a module.
type Manifest struct {
	// Owner is the resource name with the manifest suffix removed.
	Owner string
	Text  string
}

// OverrideSet maps slash-separated unit names ("p/q/R") to replacement bytes.
type OverrideSet map[string][]byte

// MergeReport summarizes one override merge.
type MergeReport struct {
	// Replaced counts overrides that targeted an already indexed code unit.
	Replaced int
	// Added lists dot-form names that were not indexed before the merge.
	Added []string
}
