package controller

import (
	"bytes"
	"context"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	m "loadpath.dev/pkg/loadpath/internal/model"
)

// SimpleUI implements UI using cobra Command's Println.
type SimpleUI struct {
	cmd *cobra.Command
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// DisplayUnits prints the units as a table.
func (s *SimpleUI) DisplayUnits(ctx context.Context, units []m.Unit) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("%s", renderUnitsTable(units))

	return nil
}

// DisplayManifests prints manifests as a YAML document keyed by owner.
func (s *SimpleUI) DisplayManifests(ctx context.Context, manifests []m.Manifest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	out, err := renderManifests(manifests)
	if err != nil {
		return err
	}

	s.printf("%s", out)

	return nil
}

// DisplayDiagnostics prints each diagnostic on its own line.
func (s *SimpleUI) DisplayDiagnostics(ctx context.Context, diagnostics []m.Diagnostic) {
	if ctx.Err() != nil {
		return
	}

	for _, d := range diagnostics {
		s.errorf("%s: %s: %s\n", d.Severity, d.Code, d.Message)
	}
}

// DisplayMergeReport prints the override merge summary.
func (s *SimpleUI) DisplayMergeReport(ctx context.Context, report m.MergeReport) {
	if ctx.Err() != nil {
		return
	}

	s.errorf("overrides: %d replaced, %d added\n", report.Replaced, len(report.Added))
}

// DisplayResolution prints a materialized unit.
func (s *SimpleUI) DisplayResolution(ctx context.Context, unit *m.Materialized) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator(":")
	table.AppendBulk([][]string{
		{"name", unit.Name},
		{"origin", string(unit.Origin)},
		{"source", string(unit.Source)},
		{"size", fmt.Sprintf("%d", unit.Size)},
		{"sha256", unit.Digest},
	})
	table.Render()

	s.printf("%s", tableBuffer.String())

	return nil
}

// DisplayExport confirms a written export archive.
func (s *SimpleUI) DisplayExport(ctx context.Context, path m.Path, count int) {
	if ctx.Err() != nil {
		return
	}

	s.printf("exported %d code units to %s\n", count, path)
}

func renderUnitsTable(units []m.Unit) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Name", "Kind", "Size", "Transformable", "Source"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_LEFT,
	})

	code := 0

	for _, unit := range units {
		transformable := ""
		if unit.Kind == m.KindCode && unit.Transformable {
			transformable = "yes"
		}

		if unit.Kind == m.KindCode {
			code++
		}

		table.Append([]string{
			unit.Name,
			unit.Kind.String(),
			fmt.Sprintf("%d", len(unit.Data)),
			transformable,
			string(unit.Source),
		})
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Units %d", len(units)),
		fmt.Sprintf("code %d", code),
		"", "", "",
	})

	table.Render()

	return tableBuffer.String()
}

func renderManifests(manifests []m.Manifest) (string, error) {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, manifest := range manifests {
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: manifest.Owner},
			&yaml.Node{Kind: yaml.ScalarNode, Value: manifest.Text, Style: yaml.LiteralStyle},
		)
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode manifests: %w", err)
	}

	return string(out), nil
}

func (s *SimpleUI) printf(format string, args ...any) {
	if s == nil || s.cmd == nil {
		return
	}

	s.cmd.Printf(format, args...)
}

func (s *SimpleUI) errorf(format string, args ...any) {
	if s == nil || s.cmd == nil {
		return
	}

	s.cmd.PrintErrf(format, args...)
}
