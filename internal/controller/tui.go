package controller

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	m "loadpath.dev/pkg/loadpath/internal/model"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	footerStyle = lipgloss.NewStyle().Faint(true)
)

// TUI implements UI using Bubble Tea for the unit listing. Everything else is
// delegated to the plain output.
type TUI struct {
	*SimpleUI
	output io.Writer
}

// NewTUI creates a new TUI.
func NewTUI(simple *SimpleUI, output io.Writer) *TUI {
	return &TUI{SimpleUI: simple, output: output}
}

// DisplayUnits shows the unit table in a scrollable pager.
func (t *TUI) DisplayUnits(ctx context.Context, units []m.Unit) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	model := newUnitPagerModel(fmt.Sprintf("%d units", len(units)), renderUnitsTable(units))

	program := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithOutput(t.output),
		tea.WithAltScreen(),
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run unit pager: %w", err)
	}

	return nil
}

// unitPagerModel represents the Bubble Tea model for paging through a table.
type unitPagerModel struct {
	title    string
	content  string
	viewport viewport.Model
	ready    bool
}

func newUnitPagerModel(title, content string) unitPagerModel {
	return unitPagerModel{title: title, content: content}
}

func (u unitPagerModel) Init() tea.Cmd {
	return nil
}

func (u unitPagerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return u, tea.Quit
		}

	case tea.WindowSizeMsg:
		height := max(msg.Height-lipgloss.Height(u.headerView())-lipgloss.Height(u.footerView()), 1)

		if !u.ready {
			u.viewport = viewport.New(msg.Width, height)
			u.viewport.SetContent(u.content)
			u.ready = true
		} else {
			u.viewport.Width = msg.Width
			u.viewport.Height = height
		}
	}

	var cmd tea.Cmd

	u.viewport, cmd = u.viewport.Update(msg)

	return u, cmd
}

func (u unitPagerModel) View() string {
	if !u.ready {
		return "loading..."
	}

	return u.headerView() + "\n" + u.viewport.View() + "\n" + u.footerView()
}

func (u unitPagerModel) headerView() string {
	return titleStyle.Render("loadpath: " + u.title)
}

func (u unitPagerModel) footerView() string {
	percent := 100
	if u.ready {
		percent = int(u.viewport.ScrollPercent() * 100)
	}

	return footerStyle.Render(fmt.Sprintf("%3d%%  q quit  j/k scroll", percent))
}
