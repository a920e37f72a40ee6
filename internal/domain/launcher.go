package domain

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"loadpath.dev/pkg/loadpath/internal/adapter"
	m "loadpath.dev/pkg/loadpath/internal/model"
)

// LaunchArgs describes the program handed control once the unit index is Active.
type LaunchArgs struct {
	// Main is the registered entry point name.
	Main           string
	Username       string
	Version        string
	AccessToken    string
	UserProperties string
	GameDir        m.Path
	// AssetsDir defaults to GameDir/assets.
	AssetsDir m.Path
	// Extra are the caller-supplied arguments.
	Extra []string
}

// Launcher dispatches to a registered entry point with the assembled argument vector.
type Launcher struct {
	registry  adapter.EntryPointRegistry
	fsAdapter adapter.SourceFSAdapter
}

// NewLauncher constructs a Launcher.
func NewLauncher(registry adapter.EntryPointRegistry, fsAdapter adapter.SourceFSAdapter) *Launcher {
	return &Launcher{
		registry:  registry,
		fsAdapter: fsAdapter,
	}
}

// Arguments validates args and returns the full argument vector with the
// directories made absolute.
func (l *Launcher) Arguments(ctx context.Context, args LaunchArgs) ([]string, error) {
	required := []struct {
		flag  string
		value string
	}{
		{"main", args.Main},
		{"username", args.Username},
		{"version", args.Version},
		{"gameDir", string(args.GameDir)},
	}

	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return nil, &BootstrapError{Reason: "missing --" + r.flag, Err: ErrMissingArgument}
		}
	}

	gameDir, err := l.fsAdapter.AbsPath(ctx, args.GameDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve game directory: %w", err)
	}

	assetsDir := args.AssetsDir
	if assetsDir == "" {
		assetsDir = m.Path(filepath.Join(string(gameDir), "assets"))
	}

	assetsDir, err = l.fsAdapter.AbsPath(ctx, assetsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve assets directory: %w", err)
	}

	baseline := []string{
		"--username", args.Username,
		"--version", args.Version,
		"--accessToken", args.AccessToken,
		"--userProperties", args.UserProperties,
		"--assetsDir", string(assetsDir),
		"--gameDir", string(gameDir),
	}

	return AssembleArguments(baseline, args.Extra), nil
}

// AssembleArguments merges extra into baseline. An extra "--key value" pair
// whose key is already in baseline replaces that value in place; everything
// else is appended in order.
func AssembleArguments(baseline, extra []string) []string {
	out := append([]string(nil), baseline...)

	position := make(map[string]int)

	for i := 0; i+1 < len(out); i += 2 {
		if strings.HasPrefix(out[i], "--") {
			position[out[i]] = i + 1
		}
	}

	for i := 0; i < len(extra); i++ {
		arg := extra[i]

		if at, ok := position[arg]; ok && i+1 < len(extra) {
			out[at] = extra[i+1]
			i++

			continue
		}

		out = append(out, arg)
	}

	return out
}

// Launch hands control to the configured entry point. It refuses to run
// before the overrides were merged.
func (l *Launcher) Launch(ctx context.Context, resolver *Resolver, out io.Writer, args LaunchArgs) error {
	if resolver.Phase() != m.PhaseActive {
		slog.Error("Refusing to launch before overrides were merged", "main", args.Main)
		return &BootstrapError{Reason: "launch while collecting", Err: ErrNotActive}
	}

	argv, err := l.Arguments(ctx, args)
	if err != nil {
		return err
	}

	entry, ok := l.registry.Lookup(args.Main)
	if !ok {
		slog.Error("Failed to find entry point", "main", args.Main, "registered", l.registry.Names())
		return &BootstrapError{Reason: "unknown entry point " + args.Main, Err: ErrEntryPointNotFound}
	}

	slog.Info("launching", "main", args.Main, "args", len(argv))

	return entry(ctx, adapter.EntryEnv{Out: out, Units: resolver}, argv)
}
