package tui

import (
	"strconv"
	"strings"

	"github.com/runoshun/beanloop/internal/infra/runstate"
)

// chromeHeight is the number of rows around the event viewport: header,
// blank separator, three stat lines and the footer.
const chromeHeight = 6

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.viewHeader())
	b.WriteString("\n\n")
	b.WriteString(m.viewStats())
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.viewFooter())
	return b.String()
}

func (m Model) viewHeader() string {
	return m.styles.Header.Render("beanloop") +
		m.styles.StatLabel.Render(" watch · "+m.config.RepoRoot)
}

// viewStats renders exactly three lines so the viewport height stays stable.
func (m Model) viewStats() string {
	label := m.styles.StatLabel
	value := m.styles.StatValue

	if m.state == nil {
		l1 := label.Render("phase   ") + m.styles.PhaseIdle.Render("no runs recorded")
		l2 := label.Render("paused  ") + value.Render(strconv.FormatBool(m.paused))
		return l1 + "\n" + l2 + "\n" + "\n"
	}

	phase := m.styles.PhaseStyle(m.state.Phase).Render(m.state.Phase)
	if m.state.Phase == runstate.PhaseRunning {
		phase = m.spinner.View() + " " + phase
	}
	if m.paused {
		phase += m.styles.PhasePaused.Render("  (pause requested)")
	}

	l1 := label.Render("phase   ") + phase +
		label.Render("   run ") + value.Render(shortID(m.state.RunID)) +
		label.Render("  pid ") + value.Render(strconv.Itoa(m.state.PID))

	l2 := label.Render("done    ") + m.styles.PhaseDone.Render(strconv.Itoa(m.state.Completed)) +
		label.Render("   failed ") + m.styles.ErrorMsg.Render(strconv.Itoa(m.state.Failed)) +
		label.Render("   updated ") + value.Render(m.state.UpdatedAt.Local().Format("15:04:05"))

	active := "-"
	if len(m.state.Active) > 0 {
		active = strings.Join(m.state.Active, ", ")
	}
	l3 := label.Render("active  ") + value.Render(active)

	return l1 + "\n" + l2 + "\n" + l3 + "\n"
}

func (m Model) viewFooter() string {
	if m.err != nil {
		return m.styles.ErrorMsg.Render("error: " + m.err.Error())
	}

	hints := []string{
		m.styles.FooterKey.Render("j/k") + " scroll",
		m.styles.FooterKey.Render("f") + " follow",
		m.styles.FooterKey.Render("r") + " refresh",
		m.styles.FooterKey.Render("q") + " quit",
	}
	line := strings.Join(hints, "  ")
	if !m.follow {
		line += m.styles.StatLabel.Render("   scrolled, f to follow")
	}
	return m.styles.Footer.Render(line)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
