package domain

import (
	"archive/zip"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"golang.org/x/sync/errgroup"

	"loadpath.dev/pkg/loadpath/internal/adapter"
	"loadpath.dev/pkg/loadpath/internal/metrics"
	m "loadpath.dev/pkg/loadpath/internal/model"
)

// ScanResult holds everything a single pass over one entry produced, in the
// order the entry enumerated it.
type ScanResult struct {
	Entry       m.Entry
	Units       []m.Unit
	Diagnostics []m.Diagnostic
}

// Scanner walks one source at a time and yields its units. It never touches
// the index; callers apply results in registration order.
type Scanner struct {
	fsAdapter adapter.SourceFSAdapter
	opts      Options
	exclude   []glob.Glob
}

// NewScanner compiles the exclude patterns and returns a Scanner.
func NewScanner(fsAdapter adapter.SourceFSAdapter, opts Options) (*Scanner, error) {
	opts = opts.withDefaults()

	exclude := make([]glob.Glob, 0, len(opts.Exclude))

	for _, pattern := range opts.Exclude {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}

		exclude = append(exclude, g)
	}

	return &Scanner{
		fsAdapter: fsAdapter,
		opts:      opts,
		exclude:   exclude,
	}, nil
}

// ClassifyEntry decides how a search path location is scanned.
func ClassifyEntry(ctx context.Context, fsAdapter adapter.SourceFSAdapter, path m.Path, transformable bool, archiveSuffix string) m.Entry {
	entry := m.Entry{Path: path, Transformable: transformable}

	info, err := fsAdapter.FileInfo(ctx, path)

	switch {
	case err != nil:
		entry.Type = m.EntryMissing
	case info.IsDir():
		entry.Type = m.EntryDirectory
	case strings.HasSuffix(string(path), archiveSuffix):
		entry.Type = m.EntryArchive
	default:
		entry.Type = m.EntryFile
	}

	return entry
}

// ScanAll scans entries with at most parallel concurrent readers. The result
// slice is indexed like entries.
func (s *Scanner) ScanAll(ctx context.Context, entries []m.Entry, parallel int) ([]ScanResult, error) {
	results := make([]ScanResult, len(entries))

	var group errgroup.Group

	group.SetLimit(max(parallel, 1))

	for i, entry := range entries {
		i, entry := i, entry
		group.Go(func() error {
			results[i] = s.Scan(ctx, entry)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// Scan produces every unit contained in entry. Read failures are recorded as
// diagnostics and never abort the scan.
func (s *Scanner) Scan(ctx context.Context, entry m.Entry) ScanResult {
	result := ScanResult{Entry: entry}
	start := time.Now()

	switch entry.Type {
	case m.EntryDirectory:
		s.scanDirectory(ctx, entry, &result)
	case m.EntryArchive:
		s.scanArchive(ctx, entry.Path, entry, &result)
	case m.EntryFile:
		s.scanFile(ctx, entry, &result)
	default:
		s.fail(&result, entry, "source_missing", entry.Path, fmt.Errorf("%w: %s", ErrSourceMissing, entry.Path))
	}

	metrics.SourceScanDuration.WithLabelValues(string(entry.Type)).Observe(time.Since(start).Seconds())
	slog.Debug("scanned source", "path", entry.Path, "type", entry.Type, "units", len(result.Units), "diagnostics", len(result.Diagnostics))

	return result
}

// scanDirectory names every file relative to the top directory root, not its
// immediate parent.
func (s *Scanner) scanDirectory(ctx context.Context, entry m.Entry, result *ScanResult) {
	root := entry.Path

	err := s.fsAdapter.Walk(ctx, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			s.fail(result, entry, "source_read_failed", m.Path(path), err)

			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if info.IsDir() {
			return nil
		}

		rel, err := s.fsAdapter.RelPath(ctx, root, m.Path(path))
		if err != nil {
			s.fail(result, entry, "source_read_failed", m.Path(path), err)
			return nil
		}

		if s.excluded(filepath.ToSlash(string(rel))) {
			return nil
		}

		if strings.HasSuffix(string(rel), s.opts.ArchiveSuffix) {
			s.scanArchive(ctx, m.Path(path), entry, result)
			return nil
		}

		data, err := s.fsAdapter.ReadFile(ctx, m.Path(path))
		if err != nil {
			s.fail(result, entry, "source_read_failed", m.Path(path), err)
			return nil
		}

		result.Units = append(result.Units, s.classify(NormalizeName(string(rel)), data, entry))

		return nil
	})
	if err != nil {
		s.fail(result, entry, "source_read_failed", root, err)
	}
}

// scanFile handles a loose file on the search path, named relative to its parent.
func (s *Scanner) scanFile(ctx context.Context, entry m.Entry, result *ScanResult) {
	name := filepath.Base(string(entry.Path))
	if s.excluded(name) {
		return
	}

	data, err := s.fsAdapter.ReadFile(ctx, entry.Path)
	if err != nil {
		s.fail(result, entry, "source_read_failed", entry.Path, err)
		return
	}

	result.Units = append(result.Units, s.classify(NormalizeName(name), data, entry))
}

// scanArchive reads every non-directory entry of the archive at path in the
// container's enumeration order.
func (s *Scanner) scanArchive(ctx context.Context, path m.Path, entry m.Entry, result *ScanResult) {
	reader, err := s.fsAdapter.OpenArchive(ctx, path)
	if err != nil {
		s.fail(result, entry, "source_read_failed", path, err)
		return
	}

	defer func() {
		if err := reader.Close(); err != nil {
			slog.Warn("failed to close archive", "path", path, "error", err)
		}
	}()

	for _, file := range reader.File {
		if ctx.Err() != nil {
			return
		}

		if isDirectoryMarker(file) || s.excluded(file.Name) {
			continue
		}

		data, err := adapter.ReadArchiveEntry(file)
		if err != nil {
			s.fail(result, entry, "archive_entry_read_failed", m.Path(string(path)+"!"+file.Name), err)
			continue
		}

		result.Units = append(result.Units, s.classify(NameFromForeign(file.Name), data, entry))
	}
}

func (s *Scanner) classify(name string, data []byte, entry m.Entry) m.Unit {
	if strings.HasSuffix(name, s.opts.CodeSuffix) {
		return m.Unit{
			Name:          strings.TrimSuffix(name, s.opts.CodeSuffix),
			Data:          data,
			Kind:          m.KindCode,
			Transformable: entry.Transformable,
			Source:        entry.Path,
		}
	}

	return m.Unit{
		Name:   name,
		Data:   data,
		Kind:   m.KindResource,
		Source: entry.Path,
	}
}

func (s *Scanner) excluded(rel string) bool {
	for _, g := range s.exclude {
		if g.Match(rel) {
			return true
		}
	}

	return false
}

func (s *Scanner) fail(result *ScanResult, entry m.Entry, code string, path m.Path, err error) {
	slog.Warn("skipping unreadable source", "code", code, "path", path, "error", err)
	metrics.SourceScanFailed.WithLabelValues(string(entry.Type)).Inc()

	result.Diagnostics = append(result.Diagnostics, m.Diagnostic{
		Severity: m.SeverityWarning,
		Code:     code,
		Message:  fmt.Sprintf("skipping %s: %v", path, err),
		Path:     path,
		Cause:    err,
	})
}

func isDirectoryMarker(file *zip.File) bool {
	return strings.HasSuffix(file.Name, "/") || file.FileInfo().IsDir()
}
