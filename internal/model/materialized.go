package model

// Origin tells where the bytes of a materialized unit came from.
type Origin string

const (
	// OriginIndex means the bytes were served from the unit index.
	OriginIndex Origin = "index"
	// OriginFallback means the bytes were found on the raw source search path.
	OriginFallback Origin = "fallback"
)

// Materialized is the engine-side form of a unit. Once created for a name it
// is never replaced.
type Materialized struct {
	Name   string
	Digest string // lowercase hex sha256 of the materialized bytes
	Size   int
	Origin Origin
	Source Path
}

// Phase is the resolver lifecycle state.
type Phase int

const (
	// PhaseCollecting accepts new sources; overrides are not merged yet.
	PhaseCollecting Phase = iota
	// PhaseActive means overrides were merged and the index is final.
	PhaseActive
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseCollecting:
		return "collecting"
	case PhaseActive:
		return "active"
	default:
		return "unknown"
	}
}
