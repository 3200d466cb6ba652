package inspect

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrCanceled is returned by RunLoader when the user interrupts the poll.
var ErrCanceled = errors.New("canceled")

const loadTimeout = 2 * time.Minute

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

var spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))

type spinnerTickMsg struct{}

type loadDoneMsg struct {
	snap Snapshot
	err  error
}

type loaderModel struct {
	source string
	load   Loader
	ctx    context.Context
	cancel context.CancelFunc
	frame  int
	result Snapshot
	err    error
	done   bool
}

func newLoaderModel(ctx context.Context, source string, load Loader) loaderModel {
	ctx, cancel := context.WithTimeout(ctx, loadTimeout)
	return loaderModel{
		source: source,
		load:   load,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (m loaderModel) Init() tea.Cmd {
	return tea.Batch(m.doLoad(), m.tick())
}

func (m loaderModel) doLoad() tea.Cmd {
	load, ctx := m.load, m.ctx
	return func() tea.Msg {
		snap, err := load(ctx)
		return loadDoneMsg{snap: snap, err: err}
	}
}

func (m loaderModel) tick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}

func (m loaderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadDoneMsg:
		m.result = msg.snap
		m.err = msg.err
		m.done = true
		m.cancel()
		return m, tea.Quit
	case spinnerTickMsg:
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, m.tick()
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancel()
			m.done = true
			m.err = ErrCanceled
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m loaderModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s Polling %s...\n", spinnerStyle.Render(spinnerFrames[m.frame]), m.source)
}

// RunLoader shows a spinner while load runs. It renders inline (no alt screen).
func RunLoader(ctx context.Context, source string, load Loader) (Snapshot, error) {
	m := newLoaderModel(ctx, source, load)
	defer m.cancel()

	result, err := tea.NewProgram(m).Run()
	if err != nil {
		return Snapshot{}, err
	}
	final := result.(loaderModel)
	return final.result, final.err
}
