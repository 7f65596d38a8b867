// Package tui implements the live watch view for a running loop. It reads
// the event log and the run snapshot from disk, so it can observe a daemon
// running in another process without talking to it.
package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/runoshun/beanloop/internal/domain"
	"github.com/runoshun/beanloop/internal/infra/runstate"
)

// Config contains the data sources for the watch view.
type Config struct {
	// LoadEvents reads the full event log. A missing log is an empty slice,
	// not an error.
	LoadEvents func() ([]domain.Event, error)
	// LoadState reads the run snapshot; nil means no run recorded yet.
	LoadState func() (*runstate.State, error)
	// Paused reports the pause flag.
	Paused func() bool
	// RepoRoot is shown in the header.
	RepoRoot string
}

// Model is the bubbletea model for the watch view.
type Model struct {
	err    error
	state  *runstate.State
	config Config
	events []domain.Event

	keys     KeyMap
	styles   Styles
	spinner  spinner.Model
	viewport viewport.Model

	width  int
	height int
	paused bool
	follow bool
}

// Messages
type eventsLoadedMsg struct {
	events []domain.Event
}

type stateLoadedMsg struct {
	state  *runstate.State
	paused bool
}

type errMsg struct {
	err error
}

type tickMsg struct{}

// New creates a new watch model.
func New(cfg Config) Model {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(Colors.Warning)

	vp := viewport.New(80, 20)

	return Model{
		config:   cfg,
		keys:     DefaultKeyMap(),
		styles:   DefaultStyles(),
		spinner:  sp,
		viewport: vp,
		follow:   true,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.loadEvents,
		m.loadState,
		m.tick(),
	)
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Second, func(_ time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m Model) loadEvents() tea.Msg {
	if m.config.LoadEvents == nil {
		return eventsLoadedMsg{}
	}
	events, err := m.config.LoadEvents()
	if err != nil {
		return errMsg{err: err}
	}
	return eventsLoadedMsg{events: events}
}

func (m Model) loadState() tea.Msg {
	msg := stateLoadedMsg{}
	if m.config.LoadState != nil {
		// A snapshot that fails to parse is treated as absent.
		if state, err := m.config.LoadState(); err == nil {
			msg.state = state
		}
	}
	if m.config.Paused != nil {
		msg.paused = m.config.Paused()
	}
	return msg
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil

	case eventsLoadedMsg:
		m.events = msg.events
		m.err = nil
		m.updateViewportContent()
		return m, nil

	case stateLoadedMsg:
		m.state = msg.state
		m.paused = msg.paused
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.loadEvents, m.loadState, m.tick())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Refresh):
		return m, tea.Batch(m.loadEvents, m.loadState)

	case key.Matches(msg, m.keys.Follow):
		m.viewport.GotoBottom()
		m.follow = true
		return m, nil
	}

	// Scrolling away from the tail stops following; scrolling back resumes.
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	m.follow = m.viewport.AtBottom()
	return m, cmd
}

func (m *Model) updateLayout() {
	h := m.height - chromeHeight
	if h < 3 {
		h = 3
	}
	m.viewport.Width = m.width
	m.viewport.Height = h
	m.updateViewportContent()
}

func (m *Model) updateViewportContent() {
	m.viewport.SetContent(m.renderEvents())
	if m.follow {
		m.viewport.GotoBottom()
	}
}

// Run starts the watch view and blocks until the user quits.
func Run(cfg Config) error {
	p := tea.NewProgram(New(cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m *Model) renderEvents() string {
	if len(m.events) == 0 {
		return m.styles.EventDetail.Render("no events yet")
	}
	lines := make([]string, 0, len(m.events))
	for _, e := range m.events {
		lines = append(lines, m.eventLine(e))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) eventLine(e domain.Event) string {
	var b strings.Builder
	b.WriteString(m.styles.EventTime.Render(e.Time.Local().Format("15:04:05")))
	b.WriteString(" ")
	b.WriteString(m.styles.KindStyle(e).Render(e.Kind))
	b.WriteString(" ")
	if e.TaskID != "" {
		b.WriteString(m.styles.EventTask.Render(e.TaskID))
		b.WriteString("  ")
	}
	if e.Detail != "" {
		b.WriteString(m.styles.EventDetail.Render(e.Detail))
	}
	return b.String()
}
