package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/wippyai/rtti/types"
)

type interactiveModel struct {
	err      error
	app      *app
	sources  string
	detail   string
	encoded  string
	decoded  string
	types    []*types.Type
	input    textinput.Model
	selected int
	offset   int
	height   int
	state    modelState
}

type modelState int

const (
	stateSelectType modelState = iota
	stateInputValue
	stateShowResult
)

const defaultListHeight = 20

func newInteractiveModel(a *app, sources []string) *interactiveModel {
	ti := textinput.New()
	ti.Prompt = "value: "
	ti.Width = 60
	return &interactiveModel{
		app:     a,
		sources: strings.Join(sources, ", "),
		types:   a.reg.Types(),
		input:   ti,
		height:  defaultListHeight,
		state:   stateSelectType,
	}
}

type roundTripMsg struct {
	err     error
	encoded string
	decoded string
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = max(msg.Height-8, 5)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state != stateInputValue {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectType && m.selected > 0 {
				m.selected--
				m.offset = min(m.offset, m.selected)
			}

		case "down", "j":
			if m.state == stateSelectType && m.selected < len(m.types)-1 {
				m.selected++
				if m.selected >= m.offset+m.height {
					m.offset = m.selected - m.height + 1
				}
			}

		case "enter":
			switch m.state {
			case stateSelectType:
				m.open()
				return m, textinput.Blink

			case stateInputValue:
				return m, m.roundTrip

			case stateShowResult:
				m.state = stateInputValue
				m.err = nil
				m.input.Focus()
			}

		case "esc":
			switch m.state {
			case stateInputValue:
				m.state = stateSelectType
				m.input.Blur()
			case stateShowResult:
				m.state = stateInputValue
				m.err = nil
				m.input.Focus()
			}
		}

	case roundTripMsg:
		m.encoded = msg.encoded
		m.decoded = msg.decoded
		m.err = msg.err
		m.state = stateShowResult
		m.input.Blur()
	}

	if m.state == stateInputValue {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *interactiveModel) open() {
	t := m.types[m.selected]
	var b strings.Builder
	if err := m.app.describe(&b, t); err != nil {
		fmt.Fprintf(&b, "%v\n", err)
	}
	m.detail = b.String()
	m.input.SetValue("")
	m.input.Placeholder = placeholder(t)
	m.input.Focus()
	m.state = stateInputValue
}

func placeholder(t *types.Type) string {
	switch t.Kind() {
	case types.KindCompound:
		return fmt.Sprintf(`{"@type":%q}`, t.Name())
	case types.KindContainer:
		return "[]"
	case types.KindPointer:
		return "null"
	}
	return t.Name()
}

func (m *interactiveModel) roundTrip() tea.Msg {
	t := m.types[m.selected]
	encoded, decoded, err := m.app.roundTrip(t, m.input.Value())
	return roundTripMsg{err: err, encoded: encoded, decoded: decoded}
}

func (m *interactiveModel) View() string {
	if len(m.types) == 0 {
		return errorStyle.Render("No types loaded.\n\nPress q to quit.")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("RTTI Browser"))
	b.WriteString(" ")
	b.WriteString(m.sources)
	if m.app.swap {
		b.WriteString(helpStyle.Render(" (swapped)"))
	}
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectType:
		end := min(m.offset+m.height, len(m.types))
		for i := m.offset; i < end; i++ {
			t := m.types[i]
			line := fmt.Sprintf("%-11s %s", t.Kind(), t.Name())
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render(fmt.Sprintf("%d/%d • ↑/↓ select • enter open • q quit", m.selected+1, len(m.types))))

	case stateInputValue:
		b.WriteString(m.detail)
		b.WriteString("\n")
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter encode • esc back"))

	case stateShowResult:
		t := m.types[m.selected]
		b.WriteString(fmt.Sprintf("Round trip of %s:\n\n", nameStyle.Render(t.Name())))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString("binary  ")
			b.WriteString(resultStyle.Render(m.encoded))
			b.WriteString("\ntext    ")
			b.WriteString(typeStyle.Render(m.decoded))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter edit • q quit"))
	}

	return b.String()
}

func runInteractive(a *app, sources []string) error {
	p := tea.NewProgram(newInteractiveModel(a, sources), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
