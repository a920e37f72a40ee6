// Package controller provides output adapters for displaying the unit index,
// manifests and bootstrap results.
package controller

import (
	"context"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	m "loadpath.dev/pkg/loadpath/internal/model"
)

// UI defines the interface for displaying index contents and bootstrap results.
// Implementations can use different output methods (simple text, TUI, etc).
type UI interface {
	DisplayUnits(ctx context.Context, units []m.Unit) error
	DisplayManifests(ctx context.Context, manifests []m.Manifest) error
	DisplayDiagnostics(ctx context.Context, diagnostics []m.Diagnostic)
	DisplayMergeReport(ctx context.Context, report m.MergeReport)
	DisplayResolution(ctx context.Context, unit *m.Materialized) error
	DisplayExport(ctx context.Context, path m.Path, count int)
}

// NewUI picks the interactive TUI when stdout is a terminal and the plain
// table output otherwise.
func NewUI(cmd *cobra.Command, tty bool) UI {
	simple := NewSimpleUI(cmd)
	if !tty {
		return simple
	}

	return NewTUI(simple, cmd.OutOrStdout())
}

// IsTTY reports whether f is an interactive terminal.
func IsTTY(f *os.File) bool {
	if f == nil {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
