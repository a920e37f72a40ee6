package model

// Path represents a file system path.
type Path string

// EntryType describes what kind of location a classpath entry points at.
type EntryType string

const (
	// EntryDirectory is a directory tree scanned recursively.
	EntryDirectory EntryType = "directory"

	// EntryArchive is a zip-format container (e.g. a .jar).
	EntryArchive EntryType = "archive"

	// EntryFile is a single loose file named relative to its parent directory.
	EntryFile EntryType = "file"

	// EntryMissing marks a location that did not exist when it was registered.
	EntryMissing EntryType = "missing"
)

// Entry is a single source location on the search path. Entries are created
// once, in registration order, and never change afterwards.
type Entry struct {
	Path Path
	Type EntryType
	// Transformable records provenance: true for sources added explicitly after
	// construction, false for the bundled sources passed at construction time.
	Transformable bool
}
