package cmd

import (
	"github.com/spf13/cobra"
)

// resolveCmd represents the resolve command.
var resolveCmd = newResolveCmd()

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <name>...",
		Short: "Materialize code units and show where they came from",
		Long: `Build the unit index, merge the overrides and materialize each dot-joined
name, printing whether its bytes came from the index or the raw search path.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return workflow.Resolve(cmd.Context(), bootstrapArgs(), args)
		},
	}
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
