package adapter

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	m "loadpath.dev/pkg/loadpath/internal/model"
)

// Transformer is the external transformation stage. It receives the exported
// code table (slash-separated names) and returns the units it replaces.
// Export is called exactly once per process.
type Transformer interface {
	Export(ctx context.Context, units m.OverrideSet) (m.OverrideSet, error)
}

// NoopTransformer replaces nothing.
type NoopTransformer struct{}

// Export implements Transformer.
func (NoopTransformer) Export(ctx context.Context, _ m.OverrideSet) (m.OverrideSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return m.OverrideSet{}, nil
}

// OverlayTransformer serves replacement units produced ahead of time by an
// external tool, stored in a directory or an archive. Files named
// "p/q/R<codeSuffix>" replace the unit "p/q/R"; other files are ignored.
type OverlayTransformer struct {
	fsAdapter  SourceFSAdapter
	root       m.Path
	codeSuffix string
}

// NewOverlayTransformer constructs an OverlayTransformer reading from root.
func NewOverlayTransformer(fsAdapter SourceFSAdapter, root m.Path, codeSuffix string) *OverlayTransformer {
	return &OverlayTransformer{
		fsAdapter:  fsAdapter,
		root:       root,
		codeSuffix: codeSuffix,
	}
}

// Export implements Transformer.
func (o *OverlayTransformer) Export(ctx context.Context, units m.OverrideSet) (m.OverrideSet, error) {
	info, err := o.fsAdapter.FileInfo(ctx, o.root)
	if err != nil {
		slog.Error("Failed to stat overlay", "path", o.root, "error", err)
		return nil, fmt.Errorf("failed to stat overlay %s: %w", o.root, err)
	}

	var set m.OverrideSet
	if info.IsDir() {
		set, err = o.fromDirectory(ctx)
	} else {
		set, err = o.fromArchive(ctx)
	}

	if err != nil {
		return nil, err
	}

	known := 0

	for name := range set {
		if _, ok := units[name]; ok {
			known++
		}
	}

	slog.Debug("overlay loaded", "path", o.root, "units", len(set), "known", known, "exported", len(units))

	return set, nil
}

func (o *OverlayTransformer) fromDirectory(ctx context.Context) (m.OverrideSet, error) {
	set := m.OverrideSet{}

	err := o.fsAdapter.Walk(ctx, o.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		rel, err := o.fsAdapter.RelPath(ctx, o.root, m.Path(path))
		if err != nil {
			return err
		}

		name, ok := o.unitName(filepath.ToSlash(string(rel)))
		if !ok {
			return nil
		}

		data, err := o.fsAdapter.ReadFile(ctx, m.Path(path))
		if err != nil {
			return err
		}

		set[name] = data

		return nil
	})
	if err != nil {
		slog.Error("Failed to read overlay directory", "path", o.root, "error", err)
		return nil, fmt.Errorf("failed to read overlay directory %s: %w", o.root, err)
	}

	return set, nil
}

func (o *OverlayTransformer) fromArchive(ctx context.Context) (m.OverrideSet, error) {
	reader, err := o.fsAdapter.OpenArchive(ctx, o.root)
	if err != nil {
		slog.Error("Failed to open overlay archive", "path", o.root, "error", err)
		return nil, fmt.Errorf("failed to open overlay archive %s: %w", o.root, err)
	}

	defer func() { _ = reader.Close() }()

	set := m.OverrideSet{}

	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}

		name, ok := o.unitName(strings.TrimPrefix(file.Name, "/"))
		if !ok {
			continue
		}

		data, err := ReadArchiveEntry(file)
		if err != nil {
			slog.Error("Failed to read overlay entry", "path", o.root, "entry", file.Name, "error", err)
			return nil, fmt.Errorf("failed to read overlay entry %s: %w", file.Name, err)
		}

		set[name] = data
	}

	return set, nil
}

func (o *OverlayTransformer) unitName(rel string) (string, bool) {
	if !strings.HasSuffix(rel, o.codeSuffix) {
		return "", false
	}

	name := strings.TrimSuffix(rel, o.codeSuffix)

	return name, name != ""
}

// ReadArchiveEntry reads the full content of a single archive entry.
func ReadArchiveEntry(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}

	defer func() { _ = rc.Close() }()

	return io.ReadAll(rc)
}
