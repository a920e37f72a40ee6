package cmd

import (
	"github.com/spf13/cobra"
)

// manifestsCmd represents the manifests command.
var manifestsCmd = newManifestsCmd()

func newManifestsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "manifests",
		Short: "Print module manifests as YAML",
		Long: `Print the text of every module manifest resource found on the search path,
keyed by its owning module.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return workflow.Manifests(cmd.Context(), bootstrapArgs())
		},
	}
}

func init() {
	rootCmd.AddCommand(manifestsCmd)
}
