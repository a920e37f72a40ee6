package domain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"loadpath.dev/pkg/loadpath/internal/adapter"
	"loadpath.dev/pkg/loadpath/internal/controller"
	"loadpath.dev/pkg/loadpath/internal/metrics"
	m "loadpath.dev/pkg/loadpath/internal/model"
)

// BootstrapArgs contains everything needed to build an Active resolver.
type BootstrapArgs struct {
	// Classpath entries are indexed in order with non-transformable code.
	Classpath []m.Path
	// Archives are added after construction with transformable code. A
	// missing archive is fatal.
	Archives []m.Path
	// Overrides is a directory or archive read by the overlay transformer.
	// Empty means no transformation stage.
	Overrides m.Path
	// Transformer takes precedence over Overrides when set.
	Transformer adapter.Transformer
	Options     Options
	// MetricsTextfile receives the collectors after the command ran.
	MetricsTextfile m.Path
}

// Workflow defines the commands run against a freshly built unit index.
type Workflow interface {
	Launch(ctx context.Context, boot BootstrapArgs, args LaunchArgs) error
	List(ctx context.Context, boot BootstrapArgs, kinds ...m.UnitKind) error
	Manifests(ctx context.Context, boot BootstrapArgs) error
	Export(ctx context.Context, boot BootstrapArgs, out m.Path) error
	Resolve(ctx context.Context, boot BootstrapArgs, names []string) error
}

type workflow struct {
	adapter.SourceFSAdapter
	adapter.Engine
	controller.UI

	launcher *Launcher
	out      io.Writer
}

// NewWorkflow creates a new Workflow instance with the provided dependencies.
func NewWorkflow(
	fsAdapter adapter.SourceFSAdapter,
	engine adapter.Engine,
	ui controller.UI,
	launcher *Launcher,
	out io.Writer,
) Workflow {
	return &workflow{
		SourceFSAdapter: fsAdapter,
		Engine:          engine,
		UI:              ui,
		launcher:        launcher,
		out:             out,
	}
}

// Bootstrap builds a resolver from boot: classpath first, then every
// archive, then the override merge when transform is set.
func (w *workflow) Bootstrap(ctx context.Context, boot BootstrapArgs, transform bool) (*Resolver, error) {
	if len(boot.Classpath) == 0 && len(boot.Archives) == 0 {
		slog.Error("Failed to bootstrap", "error", ErrEmptyClasspath)
		return nil, &BootstrapError{Reason: "empty classpath", Err: ErrEmptyClasspath}
	}

	resolver, err := NewResolver(ctx, w.SourceFSAdapter, w.Engine, boot.Classpath, boot.Options)
	if err != nil {
		slog.Error("Failed to build unit index", "error", err)
		return nil, fmt.Errorf("failed to build unit index: %w", err)
	}

	for _, archive := range boot.Archives {
		if err := resolver.AddSource(ctx, archive); err != nil {
			_ = resolver.Close()

			if errors.Is(err, ErrSourceMissing) {
				return nil, &BootstrapError{Reason: "missing archive " + string(archive), Err: err}
			}

			return nil, err
		}
	}

	if transform {
		report, err := resolver.Transform(ctx, w.transformer(boot))
		if err != nil {
			_ = resolver.Close()
			return nil, fmt.Errorf("failed to merge overrides: %w", err)
		}

		w.DisplayMergeReport(ctx, report)
	}

	w.DisplayDiagnostics(ctx, resolver.Diagnostics())

	return resolver, nil
}

// Launch bootstraps the index and hands control to the configured entry point.
func (w *workflow) Launch(ctx context.Context, boot BootstrapArgs, args LaunchArgs) error {
	resolver, err := w.Bootstrap(ctx, boot, true)
	if err != nil {
		return err
	}

	defer w.finish(resolver, boot)

	return w.launcher.Launch(ctx, resolver, w.out, args)
}

// List displays the indexed units of the given kinds (all kinds when empty).
func (w *workflow) List(ctx context.Context, boot BootstrapArgs, kinds ...m.UnitKind) error {
	resolver, err := w.Bootstrap(ctx, boot, true)
	if err != nil {
		return err
	}

	defer w.finish(resolver, boot)

	if len(kinds) == 0 {
		kinds = []m.UnitKind{m.KindCode, m.KindResource}
	}

	var units []m.Unit
	for _, kind := range kinds {
		units = append(units, resolver.View().Units(kind)...)
	}

	if err := w.DisplayUnits(ctx, units); err != nil {
		slog.Error("Failed to display units", "error", err)
		return fmt.Errorf("display: %w", err)
	}

	return nil
}

// Manifests displays the module manifests keyed by owner.
func (w *workflow) Manifests(ctx context.Context, boot BootstrapArgs) error {
	resolver, err := w.Bootstrap(ctx, boot, true)
	if err != nil {
		return err
	}

	defer w.finish(resolver, boot)

	if err := w.DisplayManifests(ctx, resolver.View().ManifestList()); err != nil {
		slog.Error("Failed to display manifests", "error", err)
		return fmt.Errorf("display: %w", err)
	}

	return nil
}

// Export writes the code table, as the transformation stage would receive it,
// to a deterministic archive at out.
func (w *workflow) Export(ctx context.Context, boot BootstrapArgs, out m.Path) error {
	resolver, err := w.Bootstrap(ctx, boot, false)
	if err != nil {
		return err
	}

	defer w.finish(resolver, boot)

	codeSuffix := boot.Options.withDefaults().CodeSuffix
	exported := resolver.View().ExportAll()

	entries := make(map[string][]byte, len(exported))
	for name, data := range exported {
		entries[name+codeSuffix] = data
	}

	if err := w.WriteArchive(ctx, out, entries); err != nil {
		slog.Error("Failed to write export archive", "path", out, "error", err)
		return fmt.Errorf("failed to write export archive: %w", err)
	}

	w.DisplayExport(ctx, out, len(entries))

	return nil
}

// Resolve materializes each name and displays where its bytes came from.
func (w *workflow) Resolve(ctx context.Context, boot BootstrapArgs, names []string) error {
	resolver, err := w.Bootstrap(ctx, boot, true)
	if err != nil {
		return err
	}

	defer w.finish(resolver, boot)

	var errs []error

	for _, name := range names {
		unit, err := resolver.Resolve(ctx, name)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if err := w.DisplayResolution(ctx, unit); err != nil {
			return fmt.Errorf("display: %w", err)
		}
	}

	return errors.Join(errs...)
}

func (w *workflow) transformer(boot BootstrapArgs) adapter.Transformer {
	if boot.Transformer != nil {
		return boot.Transformer
	}

	if boot.Overrides == "" {
		return adapter.NoopTransformer{}
	}

	return adapter.NewOverlayTransformer(w.SourceFSAdapter, boot.Overrides, boot.Options.withDefaults().CodeSuffix)
}

func (w *workflow) finish(resolver *Resolver, boot BootstrapArgs) {
	if err := resolver.Close(); err != nil {
		slog.Warn("failed to close sources", "error", err)
	}

	if boot.MetricsTextfile == "" {
		return
	}

	if err := metrics.WriteTextfile(string(boot.MetricsTextfile)); err != nil {
		slog.Warn("failed to write metrics textfile", "path", boot.MetricsTextfile, "error", err)
	}
}
