// Package cmd provides the root command and CLI setup for loadpath.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"loadpath.dev/pkg/loadpath/internal/adapter"
	"loadpath.dev/pkg/loadpath/internal/controller"
	"loadpath.dev/pkg/loadpath/internal/domain"
	m "loadpath.dev/pkg/loadpath/internal/model"
)

var fsAdapter adapter.SourceFSAdapter
var engine adapter.Engine
var registry adapter.EntryPointRegistry
var launcher *domain.Launcher
var workflow domain.Workflow
var ui controller.UI

var classpathFlag string
var archiveFlags []string
var overridesFlag string
var excludePatterns []string
var parallelFlag int
var verboseFlag bool

func init() {
	configureRootFlags(rootCmd)

	// Initialize shared dependencies.
	ui = controller.NewUI(rootCmd, controller.IsTTY(os.Stdout))
	fsAdapter = adapter.NewLocalSourceFSAdapter()
	engine = adapter.NewLocalEngine()
	registry = adapter.NewLocalEntryPointRegistry()
	cobra.CheckErr(domain.RegisterBuiltins(registry))
	launcher = domain.NewLauncher(registry, fsAdapter)
	workflow = domain.NewWorkflow(
		fsAdapter,
		engine,
		ui,
		launcher,
		os.Stdout,
	)
}

const rootLongDescription = `Loadpath builds a single name-keyed index of code units and resources from
an ordered search path of directories and archives, lets an external
transformation stage replace code units once before anything runs, and then
serves every resolution request from the index, falling back to the raw
search path for names it never indexed.

The search path comes from --classpath (an OS path list) and defaults to the
CLASSPATH environment variable. Archives given with --archive are added after
it and their code units are marked transformable.`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "loadpath",
		Short:        "Search path unit index and launcher",
		Long:         rootLongDescription,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger("", viper.GetBool(logVerboseKey))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&classpathFlag, classpathFlagName, viper.GetString(classpathConfigKey), "search path entries separated by the OS path list separator (default $CLASSPATH)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(classpathFlagName), classpathConfigKey)

	cmd.PersistentFlags().StringArrayVarP(&archiveFlags, archiveFlagName, "a", viper.GetStringSlice(archivesConfigKey), "archive added after the search path with transformable code (can be repeated)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(archiveFlagName), archivesConfigKey)

	cmd.PersistentFlags().StringVar(&overridesFlag, overridesFlagName, viper.GetString(overridesConfigKey), "directory or archive holding replacement code units")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(overridesFlagName), overridesConfigKey)

	cmd.PersistentFlags().StringArrayVarP(&excludePatterns, excludeFlagName, "x", viper.GetStringSlice(scanExcludeConfigKey), "skip source files matching glob (can be repeated)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(excludeFlagName), scanExcludeConfigKey)

	cmd.PersistentFlags().IntVarP(&parallelFlag, parallelFlagName, "p", viper.GetInt(scanParallelConfigKey), "number of sources read concurrently while indexing")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(parallelFlagName), scanParallelConfigKey)

	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", viper.GetBool(logVerboseKey), "log at debug level")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(verboseFlagName), logVerboseKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		stop()
		os.Exit(1)
	}
}

func parsePaths(args []string) []m.Path {
	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}
