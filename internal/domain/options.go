package domain

import "strings"

const (
	// DefaultCodeSuffix marks a file as a code unit.
	DefaultCodeSuffix = ".class"
	// DefaultArchiveSuffix marks a file as an archive container.
	DefaultArchiveSuffix = ".jar"
	// DefaultManifestSuffix marks a resource as a module configuration manifest.
	DefaultManifestSuffix = ".mod.json"
	// DefaultResourceCacheSize bounds the fallback resource cache.
	DefaultResourceCacheSize = 256
)

// Options configures the naming conventions and scanning behaviour shared by
// the scanner, the index and the resolver.
type Options struct {
	CodeSuffix     string
	ArchiveSuffix  string
	ManifestSuffix string
	// Exclude holds glob patterns matched against slash-separated paths
	// relative to a source root (or archive entry names).
	Exclude []string
	// Parallel bounds how many sources are read concurrently during the
	// initial build. Results are always applied in registration order.
	Parallel          int
	ResourceCacheSize int
}

// DefaultOptions returns the built-in conventions.
func DefaultOptions() Options {
	return Options{
		CodeSuffix:        DefaultCodeSuffix,
		ArchiveSuffix:     DefaultArchiveSuffix,
		ManifestSuffix:    DefaultManifestSuffix,
		Parallel:          1,
		ResourceCacheSize: DefaultResourceCacheSize,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()

	if o.CodeSuffix == "" {
		o.CodeSuffix = def.CodeSuffix
	}

	if o.ArchiveSuffix == "" {
		o.ArchiveSuffix = def.ArchiveSuffix
	}

	if o.ManifestSuffix == "" {
		o.ManifestSuffix = def.ManifestSuffix
	}

	if o.Parallel < 1 {
		o.Parallel = def.Parallel
	}

	if o.ResourceCacheSize < 1 {
		o.ResourceCacheSize = def.ResourceCacheSize
	}

	return o
}

var separatorReplacer = strings.NewReplacer("\\", ".", "/", ".")

// NormalizeName converts a source-relative path into the dot-joined form.
func NormalizeName(rel string) string {
	return separatorReplacer.Replace(rel)
}

// ForeignName converts a dot-joined name into the slash form used by the
// transformation stage.
func ForeignName(name string) string {
	return strings.ReplaceAll(name, ".", "/")
}

// NameFromForeign converts a slash-separated override name into dot form.
func NameFromForeign(name string) string {
	return strings.ReplaceAll(name, "/", ".")
}
