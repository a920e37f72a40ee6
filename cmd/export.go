package cmd

import (
	"github.com/spf13/cobra"

	m "loadpath.dev/pkg/loadpath/internal/model"
)

// exportCmd represents the export command.
var exportCmd = newExportCmd()

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <out.zip>",
		Short: "Write the code table to an archive for an external transformation tool",
		Long: `Build the unit index without merging overrides and write every code unit,
named the way the transformation stage sees it, into a reproducible archive.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return workflow.Export(cmd.Context(), bootstrapArgs(), m.Path(args[0]))
		},
	}
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
