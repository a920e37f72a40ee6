package domain

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"loadpath.dev/pkg/loadpath/internal/adapter"
	m "loadpath.dev/pkg/loadpath/internal/model"
)

// writeTree creates files (slash-separated relative paths) under root.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

type archiveEntry struct {
	name    string
	content string
}

// writeJar writes entries into a zip at path in the given order.
func writeJar(t *testing.T, path string, entries ...archiveEntry) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	file, err := os.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(file)

	for _, entry := range entries {
		w, err := zw.Create(entry.name)
		require.NoError(t, err)

		_, err = w.Write([]byte(entry.content))
		require.NoError(t, err)
	}

	require.NoError(t, zw.Close())
	require.NoError(t, file.Close())
}

func newTestResolver(t *testing.T, opts Options, paths ...string) (*Resolver, *adapter.LocalEngine) {
	t.Helper()

	engine := adapter.NewLocalEngine()

	resolver, err := NewResolver(context.Background(), adapter.NewLocalSourceFSAdapter(), engine, toPaths(paths...), opts)
	require.NoError(t, err)

	t.Cleanup(func() { _ = resolver.Close() })

	return resolver, engine
}

func toPaths(paths ...string) []m.Path {
	out := make([]m.Path, 0, len(paths))
	for _, p := range paths {
		out = append(out, m.Path(p))
	}

	return out
}

// staticTransformer returns a fixed override set and records every call.
type staticTransformer struct {
	set      m.OverrideSet
	err      error
	calls    int
	received m.OverrideSet
}

func (s *staticTransformer) Export(_ context.Context, units m.OverrideSet) (m.OverrideSet, error) {
	s.calls++
	s.received = units

	if s.err != nil {
		return nil, s.err
	}

	return s.set, nil
}

func diagnosticCodes(diagnostics []m.Diagnostic) []string {
	codes := make([]string, 0, len(diagnostics))
	for _, d := range diagnostics {
		codes = append(codes, d.Code)
	}

	return codes
}
