package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Italic(true)
)

// RefreshFunc produces the text shown by a Viewer.
type RefreshFunc func() (string, error)

// Viewer is a scrollable terminal view over rendered buffer contents.
type Viewer struct {
	viewport viewport.Model
	title    string
	refresh  RefreshFunc
	content  string
	status   string
	err      error
	width    int
	height   int
	ready    bool
	updates  int
}

type contentMsg struct {
	content string
	err     error
}

// chromeLines is the height taken by the title, status and help lines.
const chromeLines = 4

// NewViewer creates a viewer whose content comes from refresh. Pressing r
// calls refresh again.
func NewViewer(title string, refresh RefreshFunc) Viewer {
	vp := viewport.New(80, 20)
	vp.SetContent("Loading...")

	return Viewer{
		viewport: vp,
		title:    title,
		refresh:  refresh,
	}
}

func (m Viewer) Init() tea.Cmd {
	return m.load()
}

func (m Viewer) load() tea.Cmd {
	refresh := m.refresh
	return func() tea.Msg {
		content, err := refresh()
		return contentMsg{content: content, err: err}
	}
}

func (m Viewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var vpCmd tea.Cmd
	m.viewport, vpCmd = m.viewport.Update(msg)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		if !m.ready {
			m.viewport = viewport.New(msg.Width, max(msg.Height-chromeLines, 1))
			m.viewport.SetContent(m.content)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = max(msg.Height-chromeLines, 1)
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "r":
			m.status = "refreshing..."
			return m, m.load()
		}

	case contentMsg:
		m.err = msg.err
		if msg.err == nil {
			m.content = msg.content
			m.updates++
			m.status = fmt.Sprintf("update %d", m.updates)
			m.viewport.SetContent(m.content)
		} else {
			m.status = ""
		}
		return m, nil
	}

	return m, vpCmd
}

func (m Viewer) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(m.title))
	sb.WriteString("\n")

	sb.WriteString(m.viewport.View())
	sb.WriteString("\n")

	if m.err != nil {
		sb.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	} else {
		sb.WriteString(infoStyle.Render(m.status))
	}
	sb.WriteString("\n")

	sb.WriteString(helpStyle.Render("↑/↓: Scroll | r: Refresh | q: Quit"))

	return sb.String()
}

// Content returns the text currently displayed.
func (m Viewer) Content() string {
	return m.content
}

// Err returns the error from the last refresh, if any.
func (m Viewer) Err() error {
	return m.err
}
