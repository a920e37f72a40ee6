package domain

import (
	"context"
	"fmt"
	"log/slog"

	"loadpath.dev/pkg/loadpath/internal/adapter"
	m "loadpath.dev/pkg/loadpath/internal/model"
)

// Merger hands the code table to the transformation stage once and folds the
// returned replacements back into the index.
type Merger struct{}

// NewMerger constructs a Merger.
func NewMerger() *Merger {
	return &Merger{}
}

// Apply exports index, calls the transformer and merges its result.
func (mg *Merger) Apply(ctx context.Context, index *Index, transformer adapter.Transformer) (m.MergeReport, error) {
	if err := ctx.Err(); err != nil {
		return m.MergeReport{}, err
	}

	exported := index.ExportAll()

	overrides, err := transformer.Export(ctx, exported)
	if err != nil {
		slog.Error("Transformation stage failed", "exported", len(exported), "error", err)
		return m.MergeReport{}, fmt.Errorf("failed to export overrides: %w", err)
	}

	report := index.MergeOverrides(overrides)

	slog.Info("merged overrides", "exported", len(exported), "replaced", report.Replaced, "added", len(report.Added))

	return report, nil
}
