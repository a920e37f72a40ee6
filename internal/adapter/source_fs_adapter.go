// Package adapter contains infrastructure adapters (filesystem, archives,
// execution engine, transformation stage, entry points) used by the domain layer.
package adapter

import (
	"archive/zip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	m "loadpath.dev/pkg/loadpath/internal/model"
)

// FixedArchiveTime keeps written archives byte-for-byte reproducible (1980-01-01 UTC).
var FixedArchiveTime = time.Unix(315532800, 0).UTC()

// SourceFSAdapter abstracts the filesystem and archive operations the scanner
// and resolver rely on. It hides direct `os` access so the domain logic can be
// tested against temp directories without special casing.
//
//nolint:interfacebloat // A richer interface keeps domain logic decoupled from os/fs.
type SourceFSAdapter interface {
	// Walk traverses root recursively in lexical order.
	Walk(ctx context.Context, root m.Path, fn FilepathWalkFunc) error

	// ReadFile loads a file from disk and returns its contents.
	ReadFile(ctx context.Context, path m.Path) ([]byte, error)

	// FileInfo returns metadata for a path so callers can tell files from
	// directories or detect missing sources.
	FileInfo(ctx context.Context, path m.Path) (os.FileInfo, error)

	// OpenArchive opens a zip-format container for reading. The caller owns
	// the returned reader and must close it.
	OpenArchive(ctx context.Context, path m.Path) (*zip.ReadCloser, error)

	// WriteArchive writes entries (slash-separated names) into a new archive
	// at path in sorted order with fixed timestamps.
	WriteArchive(ctx context.Context, path m.Path, entries map[string][]byte) error

	// RelPath returns the relative path from base to target.
	RelPath(ctx context.Context, base, target m.Path) (m.Path, error)

	// AbsPath returns an absolute representation of path.
	AbsPath(ctx context.Context, path m.Path) (m.Path, error)
}

// FilepathWalkFunc mirrors the callback shape used by filepath.Walk. It is
// defined here to avoid leaking the standard-library type into the domain layer.
type FilepathWalkFunc func(path string, info os.FileInfo, err error) error

// LocalSourceFSAdapter is the os-backed SourceFSAdapter.
type LocalSourceFSAdapter struct{}

// NewLocalSourceFSAdapter constructs a LocalSourceFSAdapter instance ready to
// be wired into the scanner and resolver.
func NewLocalSourceFSAdapter() *LocalSourceFSAdapter {
	return &LocalSourceFSAdapter{}
}

// Walk iterates over every file and directory under root.
func (a *LocalSourceFSAdapter) Walk(ctx context.Context, root m.Path, fn FilepathWalkFunc) error {
	return filepath.Walk(string(root), func(path string, info os.FileInfo, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		return fn(path, info, err)
	})
}

// ReadFile loads file contents from disk.
func (a *LocalSourceFSAdapter) ReadFile(ctx context.Context, path m.Path) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// #nosec G304 - path comes from the configured search path
	return os.ReadFile(string(path))
}

// FileInfo returns os.FileInfo metadata for the given path.
func (a *LocalSourceFSAdapter) FileInfo(ctx context.Context, path m.Path) (os.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return os.Stat(string(path))
}

// OpenArchive opens the archive at path.
func (a *LocalSourceFSAdapter) OpenArchive(ctx context.Context, path m.Path) (*zip.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return zip.OpenReader(string(path))
}

// WriteArchive creates path (and its parent directories) and stores entries in it.
func (a *LocalSourceFSAdapter) WriteArchive(ctx context.Context, path m.Path, entries map[string][]byte) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(string(path)), 0o750); err != nil {
		return err
	}

	// #nosec G304 - destination chosen by the operator
	file, err := os.Create(string(path))
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}

	sort.Strings(names)

	zw := zip.NewWriter(file)

	for _, name := range names {
		header := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: FixedArchiveTime}
		header.SetMode(0o644)

		w, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}

		if _, err := w.Write(entries[name]); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}

	return zw.Close()
}

// RelPath returns the relative path from base to target.
func (a *LocalSourceFSAdapter) RelPath(_ context.Context, base, target m.Path) (m.Path, error) {
	rel, err := filepath.Rel(string(base), string(target))
	if err != nil {
		return "", err
	}

	return m.Path(rel), nil
}

// AbsPath returns the absolute form of path.
func (a *LocalSourceFSAdapter) AbsPath(_ context.Context, path m.Path) (m.Path, error) {
	abs, err := filepath.Abs(string(path))
	if err != nil {
		return "", err
	}

	return m.Path(abs), nil
}
