package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/runoshun/beanloop/internal/domain"
)

// Colors defines the color palette for the watch view.
var Colors = struct {
	Primary lipgloss.Color
	Muted   lipgloss.Color
	Error   lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Text    lipgloss.Color
}{
	Primary: lipgloss.Color("#6C5CE7"), // Purple
	Muted:   lipgloss.Color("#636E72"), // Gray
	Error:   lipgloss.Color("#D63031"), // Red
	Success: lipgloss.Color("#00B894"), // Green
	Warning: lipgloss.Color("#FDCB6E"), // Yellow
	Text:    lipgloss.Color("#DFE6E9"), // Light gray
}

// Styles contains the lipgloss styles for the watch view.
type Styles struct {
	Header     lipgloss.Style
	HeaderText lipgloss.Style

	StatLabel lipgloss.Style
	StatValue lipgloss.Style

	PhaseRunning lipgloss.Style
	PhaseIdle    lipgloss.Style
	PhasePaused  lipgloss.Style
	PhaseDone    lipgloss.Style

	EventTime    lipgloss.Style
	EventKind    lipgloss.Style
	EventTask    lipgloss.Style
	EventDetail  lipgloss.Style
	EventGood    lipgloss.Style
	EventBad     lipgloss.Style
	EventNeutral lipgloss.Style

	Footer    lipgloss.Style
	FooterKey lipgloss.Style
	ErrorMsg  lipgloss.Style
}

// DefaultStyles returns the default styles for the watch view.
func DefaultStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(Colors.Primary),

		HeaderText: lipgloss.NewStyle().
			Foreground(Colors.Text),

		StatLabel: lipgloss.NewStyle().
			Foreground(Colors.Muted),

		StatValue: lipgloss.NewStyle().
			Foreground(Colors.Text),

		PhaseRunning: lipgloss.NewStyle().
			Foreground(Colors.Warning).
			Bold(true),

		PhaseIdle: lipgloss.NewStyle().
			Foreground(Colors.Muted),

		PhasePaused: lipgloss.NewStyle().
			Foreground(Colors.Warning),

		PhaseDone: lipgloss.NewStyle().
			Foreground(Colors.Success),

		EventTime: lipgloss.NewStyle().
			Foreground(Colors.Muted),

		EventKind: lipgloss.NewStyle().
			Foreground(Colors.Primary).
			Width(12),

		EventTask: lipgloss.NewStyle().
			Foreground(Colors.Text),

		EventDetail: lipgloss.NewStyle().
			Foreground(Colors.Muted),

		EventGood: lipgloss.NewStyle().
			Foreground(Colors.Success).
			Width(12),

		EventBad: lipgloss.NewStyle().
			Foreground(Colors.Error).
			Width(12),

		EventNeutral: lipgloss.NewStyle().
			Foreground(Colors.Muted).
			Width(12),

		Footer: lipgloss.NewStyle().
			Foreground(Colors.Muted),

		FooterKey: lipgloss.NewStyle().
			Foreground(Colors.Primary).
			Bold(true),

		ErrorMsg: lipgloss.NewStyle().
			Foreground(Colors.Error).
			Bold(true),
	}
}

// PhaseStyle returns the style for a run phase.
func (s Styles) PhaseStyle(phase string) lipgloss.Style {
	switch phase {
	case "running":
		return s.PhaseRunning
	case "idle":
		return s.PhaseIdle
	case "paused":
		return s.PhasePaused
	case "done":
		return s.PhaseDone
	default:
		return s.PhaseIdle
	}
}

// KindStyle returns the style for an event kind column.
func (s Styles) KindStyle(e domain.Event) lipgloss.Style {
	switch e.Kind {
	case domain.EventOutcome:
		if domain.Outcome(e.Detail).Failed() {
			return s.EventBad
		}
		return s.EventGood
	case domain.EventIdle, domain.EventPaused:
		return s.EventNeutral
	default:
		return s.EventKind
	}
}
