// Package ui provides interactive terminal pickers built on Bubble Tea.
// All items are rendered as plain text, nothing from remote data is
// shell-interpreted.
package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("205")).
			Foreground(lipgloss.Color("205")).
			Padding(0, 0, 0, 1)

	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
)

// ErrCancelled is returned when the user dismisses a picker without choosing.
var ErrCancelled = fmt.Errorf("selection cancelled")

type item struct {
	index int
	label string
}

func (i item) Title() string       { return i.label }
func (i item) Description() string { return "" }
func (i item) FilterValue() string { return i.label }

type selectModel struct {
	list   list.Model
	chosen int
}

func (m selectModel) Init() tea.Cmd { return nil }

func (m selectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height)
	case tea.KeyMsg:
		// Filtering consumes most keys, only handle chords when idle.
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "enter":
			if it, ok := m.list.SelectedItem().(item); ok {
				m.chosen = it.index
			}
			return m, tea.Quit
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m selectModel) View() string { return m.list.View() }

// Select presents items and returns the chosen item's index.
func Select(prompt string, items []string) (int, error) {
	if len(items) == 0 {
		return -1, fmt.Errorf("no items to select from")
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return -1, fmt.Errorf("stdout is not a terminal")
	}

	listItems := make([]list.Item, len(items))
	for i, label := range items {
		listItems[i] = item{index: i, label: label}
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	delegate.SetSpacing(0)
	delegate.Styles.SelectedTitle = selectedStyle

	l := list.New(listItems, delegate, 0, 0)
	l.Title = prompt
	l.Styles.Title = titleStyle
	l.SetShowStatusBar(false)

	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		l.SetSize(w, h)
	}

	final, err := tea.NewProgram(selectModel{list: l, chosen: -1}, tea.WithAltScreen()).Run()
	if err != nil {
		return -1, fmt.Errorf("running picker: %w", err)
	}

	chosen := final.(selectModel).chosen
	if chosen < 0 {
		return -1, ErrCancelled
	}
	return chosen, nil
}

type inputModel struct {
	input     textinput.Model
	prompt    string
	submitted bool
}

func (m inputModel) Init() tea.Cmd { return textinput.Blink }

func (m inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			m.submitted = true
			return m, tea.Quit
		case "esc", "ctrl+c":
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m inputModel) View() string {
	return fmt.Sprintf("%s\n%s\n", titleStyle.Render(m.prompt), m.input.View())
}

// Input prompts for a single line of free text.
func Input(prompt string) (string, error) {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return "", fmt.Errorf("stdout is not a terminal")
	}

	ti := textinput.New()
	ti.Prompt = promptStyle.Render("> ")
	ti.CharLimit = 120
	ti.Focus()

	final, err := tea.NewProgram(inputModel{input: ti, prompt: prompt}).Run()
	if err != nil {
		return "", fmt.Errorf("running input: %w", err)
	}

	m := final.(inputModel)
	if !m.submitted || m.input.Value() == "" {
		return "", ErrCancelled
	}
	return m.input.Value(), nil
}

// Confirm asks a yes/no question.
func Confirm(prompt string) (bool, error) {
	idx, err := Select(prompt, []string{"Yes", "No"})
	if err != nil {
		return false, err
	}
	return idx == 0, nil
}
