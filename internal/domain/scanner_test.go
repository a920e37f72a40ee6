package domain

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loadpath.dev/pkg/loadpath/internal/adapter"
	m "loadpath.dev/pkg/loadpath/internal/model"
)

func unitNames(units []m.Unit) map[string]m.UnitKind {
	out := make(map[string]m.UnitKind, len(units))
	for _, unit := range units {
		out[unit.Name] = unit.Kind
	}

	return out
}

func TestClassifyEntry(t *testing.T) {
	ctx := context.Background()
	fsAdapter := adapter.NewLocalSourceFSAdapter()
	root := t.TempDir()

	writeTree(t, root, map[string]string{"loose.class": "x"})
	writeJar(t, filepath.Join(root, "app.jar"), archiveEntry{"A.class", "a"})

	assert.Equal(t, m.EntryDirectory, ClassifyEntry(ctx, fsAdapter, m.Path(root), false, ".jar").Type)
	assert.Equal(t, m.EntryArchive, ClassifyEntry(ctx, fsAdapter, m.Path(filepath.Join(root, "app.jar")), false, ".jar").Type)
	assert.Equal(t, m.EntryFile, ClassifyEntry(ctx, fsAdapter, m.Path(filepath.Join(root, "loose.class")), false, ".jar").Type)

	missing := ClassifyEntry(ctx, fsAdapter, m.Path(filepath.Join(root, "nope")), true, ".jar")
	assert.Equal(t, m.EntryMissing, missing.Type)
	assert.True(t, missing.Transformable)
}

func TestScanner_DirectoryNamesRelativeToTopRoot(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"p/q/R.class":     "r",
		"assets/logo.png": "png",
		"pkgA.mod.json":   "{}",
	})

	scanner, err := NewScanner(adapter.NewLocalSourceFSAdapter(), DefaultOptions())
	require.NoError(t, err)

	result := scanner.Scan(context.Background(), m.Entry{Path: m.Path(root), Type: m.EntryDirectory})

	assert.Empty(t, result.Diagnostics)
	assert.Equal(t, map[string]m.UnitKind{
		"p.q.R":           m.KindCode,
		"assets.logo.png": m.KindResource,
		"pkgA.mod.json":   m.KindResource,
	}, unitNames(result.Units))

	for _, unit := range result.Units {
		assert.Equal(t, m.Path(root), unit.Source)
		assert.False(t, unit.Transformable)
	}
}

func TestScanner_NestedArchiveInDirectory(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"Main.class": "main"})
	writeJar(t, filepath.Join(root, "lib", "dep.jar"),
		archiveEntry{"dep/", ""},
		archiveEntry{"dep/Util.class", "util"},
	)

	scanner, err := NewScanner(adapter.NewLocalSourceFSAdapter(), DefaultOptions())
	require.NoError(t, err)

	result := scanner.Scan(context.Background(), m.Entry{Path: m.Path(root), Type: m.EntryDirectory, Transformable: true})

	assert.Equal(t, map[string]m.UnitKind{
		"Main":     m.KindCode,
		"dep.Util": m.KindCode,
	}, unitNames(result.Units))

	for _, unit := range result.Units {
		assert.True(t, unit.Transformable, unit.Name)
	}
}

func TestScanner_ArchiveCollisionLastEnumeratedWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collide.jar")
	writeJar(t, path,
		archiveEntry{"a/b.txt", "first"},
		archiveEntry{"a.b.txt", "second"},
	)

	resolver, _ := newTestResolver(t, DefaultOptions(), path)

	data, ok := resolver.View().Resource("a.b.txt")
	require.True(t, ok)
	assert.Equal(t, "second", string(data))
}

func TestScanner_ExcludePatterns(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"p/Keep.class":     "k",
		"p/cache/Tmp.tmp":  "t",
		"top.tmp":          "t",
		"docs/readme.txt":  "r",
		"docs/api/ref.txt": "r",
	})

	opts := DefaultOptions()
	opts.Exclude = []string{"**.tmp", "docs/**"}

	scanner, err := NewScanner(adapter.NewLocalSourceFSAdapter(), opts)
	require.NoError(t, err)

	result := scanner.Scan(context.Background(), m.Entry{Path: m.Path(root), Type: m.EntryDirectory})

	assert.Equal(t, map[string]m.UnitKind{"p.Keep": m.KindCode}, unitNames(result.Units))
}

func TestNewScanner_InvalidPattern(t *testing.T) {
	opts := DefaultOptions()
	opts.Exclude = []string{"[unclosed"}

	_, err := NewScanner(adapter.NewLocalSourceFSAdapter(), opts)
	require.Error(t, err)
}

func TestScanner_UnreadableSourcesBecomeDiagnostics(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "corrupt.jar")
	require.NoError(t, os.WriteFile(bad, []byte("not a zip"), 0o644))

	good := filepath.Join(dir, "good")
	writeTree(t, good, map[string]string{"A.class": "a"})

	resolver, _ := newTestResolver(t, DefaultOptions(), bad, filepath.Join(dir, "missing"), good)

	assert.Equal(t, []string{"source_read_failed", "source_missing"}, diagnosticCodes(resolver.Diagnostics()))

	_, ok := resolver.View().Code("A")
	assert.True(t, ok, "scanning continues after an unreadable source")
	assert.Len(t, resolver.Entries(), 3)
}

func TestScanner_ScanAllKeepsRegistrationOrder(t *testing.T) {
	dir := t.TempDir()

	var paths []string

	for _, name := range []string{"one", "two", "three", "four"} {
		root := filepath.Join(dir, name)
		writeTree(t, root, map[string]string{"X.class": name})
		paths = append(paths, root)
	}

	opts := DefaultOptions()
	opts.Parallel = 4

	resolver, _ := newTestResolver(t, opts, paths...)

	data, ok := resolver.View().Code("X")
	require.True(t, ok)
	assert.Equal(t, "four", string(data))

	entries := resolver.Entries()
	require.Len(t, entries, 4)

	for i, entry := range entries {
		assert.Equal(t, m.Path(paths[i]), entry.Path)
	}
}

func TestScanner_LooseFile(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"Boot.class": "boot"})

	resolver, _ := newTestResolver(t, DefaultOptions(), filepath.Join(dir, "Boot.class"))

	data, ok := resolver.View().Code("Boot")
	require.True(t, ok)
	assert.Equal(t, "boot", string(data))
}
