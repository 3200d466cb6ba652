package inspect

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobpulse/internal/fingerprint"
	"github.com/amishk599/jobpulse/internal/model"
)

// Lines per listing in the list view (title + subtitle + blank separator).
const itemHeight = 3

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

const (
	paneAll = iota
	paneMatched
)

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("39"))

	inactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	activeHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("39"))

	inactiveHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	titleStyle = lipgloss.NewStyle().
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	selectedTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("24"))

	selectedSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("24"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(16)

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)

	changedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))
)

type inspectModel struct {
	snap          Snapshot
	leftViewport  viewport.Model
	rightViewport viewport.Model
	activePane    int
	leftCursor    int
	rightCursor   int
	width         int
	height        int
	ready         bool

	view           viewState
	detail         model.Listing
	detailViewport viewport.Model

	open func(url string)
}

func newInspectModel(snap Snapshot) inspectModel {
	return inspectModel{snap: snap, open: openURL}
}

func (m inspectModel) Init() tea.Cmd {
	return nil
}

func (m inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view == viewDetail {
			m.detailViewport.Width = m.width - 4
			m.detailViewport.Height = m.height - 4
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}

	return m, nil
}

func (m inspectModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "tab", "left", "right":
		m.activePane = 1 - m.activePane
		m.recalcContent()
		return m, nil
	case "up", "k":
		m.moveCursor(-1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "enter":
		return m.openDetailView(), nil
	}

	// Forward other keys (pgup/pgdn/home/end) to the active viewport.
	var cmd tea.Cmd
	if m.activePane == paneAll {
		m.leftViewport, cmd = m.leftViewport.Update(msg)
	} else {
		m.rightViewport, cmd = m.rightViewport.Update(msg)
	}
	return m, cmd
}

func (m inspectModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		return m, nil
	case "o":
		if m.detail.URL != "" && m.open != nil {
			m.open(m.detail.URL)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

func (m *inspectModel) moveCursor(delta int) {
	if m.activePane == paneAll {
		m.leftCursor = clamp(m.leftCursor+delta, 0, max(len(m.snap.All)-1, 0))
	} else {
		m.rightCursor = clamp(m.rightCursor+delta, 0, max(len(m.snap.Matched)-1, 0))
	}
}

func (m *inspectModel) ensureCursorVisible() {
	vp, cursor := &m.leftViewport, m.leftCursor
	if m.activePane == paneMatched {
		vp, cursor = &m.rightViewport, m.rightCursor
	}

	top := cursor * itemHeight
	bottom := top + itemHeight - 1

	if top < vp.YOffset {
		vp.SetYOffset(top)
	} else if bottom >= vp.YOffset+vp.Height {
		vp.SetYOffset(bottom - vp.Height + 1)
	}
}

func (m inspectModel) openDetailView() inspectModel {
	listings, cursor := m.snap.All, m.leftCursor
	if m.activePane == paneMatched {
		listings, cursor = m.snap.Matched, m.rightCursor
	}
	if len(listings) == 0 {
		return m
	}

	m.view = viewDetail
	m.detail = listings[cursor]
	m.detailViewport = viewport.New(m.width-4, m.height-4)
	m.detailViewport.SetContent(m.renderDetail())
	return m
}

func (m *inspectModel) recalcLayout() {
	// 2 border chars per pane + 1 gap between panes.
	paneWidth := max((m.width-5)/2, 20)

	// Summary + header (2 lines) + border top/bottom (2) + status bar (1).
	paneHeight := max(m.height-5, 5)

	if !m.ready {
		m.leftViewport = viewport.New(paneWidth, paneHeight)
		m.rightViewport = viewport.New(paneWidth, paneHeight)
		m.ready = true
	} else {
		m.leftViewport.Width = paneWidth
		m.leftViewport.Height = paneHeight
		m.rightViewport.Width = paneWidth
		m.rightViewport.Height = paneHeight
	}

	m.recalcContent()
}

func (m *inspectModel) recalcContent() {
	m.leftViewport.SetContent(m.renderListings(m.snap.All, m.leftCursor, m.activePane == paneAll))
	m.rightViewport.SetContent(m.renderListings(m.snap.Matched, m.rightCursor, m.activePane == paneMatched))
}

func (m inspectModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.view == viewDetail {
		return m.viewDetail()
	}
	return m.viewList()
}

// summary is the one-line header above the panes.
func (m inspectModel) summary() string {
	s := m.snap
	parts := []string{s.Source, string(s.Mode)}
	switch {
	case s.Blob:
		parts = append(parts, "strategy blob")
	case s.Strategy != "":
		parts = append(parts, "strategy "+s.Strategy)
	}
	if s.Empty {
		parts = append(parts, "source reports no jobs")
	}
	parts = append(parts, "signal "+shortSignal(s.Signal))

	status := "first run"
	if s.HasState {
		status = "unchanged"
		if s.Changed() {
			status = changedStyle.Render("changed")
		}
	}
	parts = append(parts, status)
	return " " + strings.Join(parts, " · ")
}

func (m inspectModel) viewList() string {
	paneWidth := m.leftViewport.Width

	leftHeader := fmt.Sprintf(" Extracted (%d)", len(m.snap.All))
	rightHeader := fmt.Sprintf(" Matched (%d)", len(m.snap.Matched))

	leftHeaderRendered := inactiveHeaderStyle.Render(leftHeader)
	rightHeaderRendered := inactiveHeaderStyle.Render(rightHeader)
	leftBorder := inactiveBorderStyle.Width(paneWidth)
	rightBorder := inactiveBorderStyle.Width(paneWidth)
	if m.activePane == paneAll {
		leftHeaderRendered = activeHeaderStyle.Render(leftHeader)
		leftBorder = activeBorderStyle.Width(paneWidth)
	} else {
		rightHeaderRendered = activeHeaderStyle.Render(rightHeader)
		rightBorder = activeBorderStyle.Width(paneWidth)
	}

	headerRow := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(paneWidth+2).Render(leftHeaderRendered),
		" ",
		lipgloss.NewStyle().Width(paneWidth+2).Render(rightHeaderRendered),
	)

	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		leftBorder.Render(m.leftViewport.View()),
		" ",
		rightBorder.Render(m.rightViewport.View()),
	)

	statusText := fmt.Sprintf(" %d extracted | %d matched | top %d fingerprinted    ←/→/Tab switch  ↑/↓ cursor  Enter detail  q quit",
		len(m.snap.All), len(m.snap.Matched), len(fingerprint.Snapshot(m.snap.Matched, m.snap.TopK)))
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return m.summary() + "\n" + headerRow + "\n" + panes + "\n" + statusBar
}

func (m inspectModel) viewDetail() string {
	title := detailTitleStyle.Render("Listing")
	content := activeBorderStyle.Width(m.width - 2).Render(m.detailViewport.View())
	statusBar := statusBarStyle.Width(m.width).Render(" o open URL  esc/backspace back  ↑/↓ scroll  q quit")
	return title + "\n" + content + "\n" + statusBar
}

func (m inspectModel) renderDetail() string {
	l := m.detail
	var b strings.Builder

	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(value)
		b.WriteByte('\n')
	}

	addField("Title", l.Title)
	addField("Location", l.Location)
	addField("ID", l.ID)
	addField("URL", l.URL)
	b.WriteByte('\n')
	addField("Key", fingerprint.Key(l))
	addField("Matched", yesNo(m.matched(l)))
	addField("In top-K", yesNo(m.snap.InSnapshot(l)))
	if m.snap.Mode == model.ModeSet {
		addField("Seen", yesNo(m.snap.Seen(l)))
	}

	return b.String()
}

func (m inspectModel) matched(l model.Listing) bool {
	key := fingerprint.Key(l)
	for _, x := range m.snap.Matched {
		if fingerprint.Key(x) == key {
			return true
		}
	}
	return false
}

func (m inspectModel) renderListings(listings []model.Listing, cursor int, isActive bool) string {
	if len(listings) == 0 {
		return "  (no listings)"
	}

	var b strings.Builder
	for i, l := range listings {
		titleSt, subtitleSt, prefix := titleStyle, subtitleStyle, "  "
		if isActive && i == cursor {
			titleSt, subtitleSt, prefix = selectedTitleStyle, selectedSubtitleStyle, "> "
		}

		b.WriteString(prefix)
		b.WriteString(titleSt.Render(l.Title))
		b.WriteByte('\n')

		b.WriteString(prefix)
		b.WriteString(subtitleSt.Render(m.subtitle(l)))
		b.WriteByte('\n')

		if i < len(listings)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (m inspectModel) subtitle(l model.Listing) string {
	parts := make([]string, 0, 3)
	if l.Location != "" {
		parts = append(parts, l.Location)
	}
	if l.ID != "" {
		parts = append(parts, "#"+l.ID)
	}
	if m.snap.Mode == model.ModeSet && m.snap.HasState && !m.snap.Seen(l) {
		parts = append(parts, "new")
	}
	if len(parts) == 0 {
		return "n/a"
	}
	return strings.Join(parts, " · ")
}

func shortSignal(sig model.Signal) string {
	if sig.Mode == model.ModeSet {
		return sig.String()
	}
	if len(sig.Digest) > 12 {
		return sig.Digest[:12]
	}
	return sig.Digest
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// Run launches the split-pane browser for snap in the alternate screen.
func Run(snap Snapshot) error {
	_, err := tea.NewProgram(newInspectModel(snap), tea.WithAltScreen()).Run()
	return err
}
