// Package tui provides terminal user interface components for lab-ctl
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/lifecycle"
)

// Action represents the action to take after picker selection
type Action int

const (
	ActionNone Action = iota
	ActionAssign
	ActionQuit
)

// PickerResult holds the result of the picker
type PickerResult struct {
	Action     Action
	Containers []string
}

// containerItem implements list.Item for container display
type containerItem struct {
	container lifecycle.Container
	held      bool
	selected  bool
}

func (i containerItem) Title() string {
	switch {
	case i.held:
		return "[✓] " + i.container.Name
	case i.selected:
		return "[x] " + i.container.Name
	default:
		return "[ ] " + i.container.Name
	}
}

func (i containerItem) Description() string {
	statusIcon := "●"
	switch i.container.Status {
	case "running":
		statusIcon = "✓"
	case "stopped":
		statusIcon = "○"
	}

	desc := fmt.Sprintf("%s %s", statusIcon, i.container.Status)
	if i.container.Image != "" {
		desc += " | " + truncate(i.container.Image, 30)
	}
	if i.held {
		desc += " | assigned"
	}
	return desc
}

func (i containerItem) FilterValue() string {
	return i.container.Name
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen+3:]
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)
)

// Model is the bubbletea model for the container picker
type Model struct {
	list     list.Model
	result   PickerResult
	quitting bool
	width    int
	height   int
}

// NewPicker creates a container multi-select for username. Containers in
// held are shown as already assigned and cannot be toggled.
func NewPicker(username string, containers []lifecycle.Container, held map[string]bool) Model {
	items := make([]list.Item, len(containers))
	for i, c := range containers {
		items[i] = containerItem{container: c, held: held[c.Name]}
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = selectedStyle
	delegate.Styles.SelectedDesc = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	l := list.New(items, delegate, 80, 20)
	l.Title = fmt.Sprintf("Assign containers to %s", username)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle

	return Model{list: l}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// Selected returns the names of the toggled containers in list order.
func (m Model) Selected() []string {
	var names []string
	for _, it := range m.list.Items() {
		if ci, ok := it.(containerItem); ok && ci.selected {
			names = append(names, ci.container.Name)
		}
	}
	return names
}

func (m Model) toggle() (Model, tea.Cmd) {
	item, ok := m.list.SelectedItem().(containerItem)
	if !ok || item.held {
		return m, nil
	}
	item.selected = !item.selected
	cmd := m.list.SetItem(m.list.Index(), item)
	return m, cmd
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-4)
		return m, nil

	case tea.KeyMsg:
		// Don't handle keys if filtering
		if m.list.FilterState() == list.Filtering {
			break
		}

		switch msg.String() {
		case " ", "x":
			return m.toggle()

		case "enter":
			selected := m.Selected()
			if len(selected) == 0 {
				if item, ok := m.list.SelectedItem().(containerItem); ok && !item.held {
					selected = []string{item.container.Name}
				}
			}
			if len(selected) == 0 {
				return m, nil
			}
			m.result = PickerResult{Action: ActionAssign, Containers: selected}
			m.quitting = true
			return m, tea.Quit

		case "q", "esc":
			m.result = PickerResult{Action: ActionQuit}
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	help := helpStyle.Render("[space] Toggle  [enter] Assign  [/] Filter  [q] Quit")

	return m.list.View() + "\n" + help
}

// Result returns the picker result
func (m Model) Result() PickerResult {
	return m.result
}

// RunPicker runs the interactive container picker
func RunPicker(username string, containers []lifecycle.Container, held map[string]bool) (PickerResult, error) {
	if len(containers) == 0 {
		return PickerResult{Action: ActionQuit}, nil
	}

	m := NewPicker(username, containers, held)
	p := tea.NewProgram(m, tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return PickerResult{}, err
	}

	return finalModel.(Model).Result(), nil
}

// SimplePicker is a non-interactive listing of the containers an account
// could be assigned
func SimplePicker(username string, containers []lifecycle.Container, held map[string]bool) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Containers for %s\n", username))
	sb.WriteString(strings.Repeat("─", 60) + "\n\n")

	if len(containers) == 0 {
		sb.WriteString("No containers found.\n")
		sb.WriteString("Create one with: lab-ctl containers create\n")
		return sb.String()
	}

	for i, c := range containers {
		item := containerItem{container: c, held: held[c.Name]}
		sb.WriteString(fmt.Sprintf("%d. %s\n   %s\n\n", i+1, item.Title(), item.Description()))
	}

	return sb.String()
}
