package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	m "loadpath.dev/pkg/loadpath/internal/model"
)

var listKindFlag string

// listCmd represents the list command.
var listCmd = newListCmd()

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List indexed code units and resources",
		Long: `Build the unit index, merge the overrides and list every indexed unit with
its kind, size, provenance flag and the source it was found in.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kinds, err := parseKinds(listKindFlag)
			if err != nil {
				return err
			}

			return workflow.List(cmd.Context(), bootstrapArgs(), kinds...)
		},
	}

	cmd.Flags().StringVarP(&listKindFlag, "kind", "k", "", "only list units of this kind (code or resource)")

	return cmd
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func parseKinds(value string) ([]m.UnitKind, error) {
	switch value {
	case "":
		return nil, nil
	case m.KindCode.String():
		return []m.UnitKind{m.KindCode}, nil
	case m.KindResource.String():
		return []m.UnitKind{m.KindResource}, nil
	default:
		return nil, fmt.Errorf("unknown unit kind %q", value)
	}
}
