package inspect

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	pickerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Padding(1, 0, 1, 2)

	pickerItemStyle = lipgloss.NewStyle().
			Padding(0, 0, 0, 4)

	pickerSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 0, 0, 2)

	pickerHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(1, 0, 0, 2)
)

// Choice is one entry in the source picker.
type Choice struct {
	Name string
	Kind string
	Mode string
}

func (c Choice) label() string {
	return fmt.Sprintf("%s (%s, %s)", c.Name, c.Kind, c.Mode)
}

const (
	notChosen = -1
	quit      = -2
)

type pickerModel struct {
	choices []Choice
	cursor  int
	chosen  int
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.chosen = quit
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.choices)-1 {
				m.cursor++
			}
		case "enter":
			m.chosen = m.cursor
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m pickerModel) View() string {
	s := pickerTitleStyle.Render("Inspect: select a source")
	s += "\n"

	for i, c := range m.choices {
		if i == m.cursor {
			s += pickerSelectedStyle.Render("> "+c.label()) + "\n"
		} else {
			s += pickerItemStyle.Render(c.label()) + "\n"
		}
	}

	s += pickerHintStyle.Render("↑/↓/j/k navigate  enter select  q quit")
	return s
}

// RunPicker shows an interactive source selector.
// Returns the index of the chosen source, or -1 if the user quit.
func RunPicker(choices []Choice) (int, error) {
	m := pickerModel{choices: choices, chosen: notChosen}

	result, err := tea.NewProgram(m).Run()
	if err != nil {
		return -1, err
	}

	final := result.(pickerModel)
	if final.chosen < 0 {
		return -1, nil
	}
	return final.chosen, nil
}
