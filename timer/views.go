package timer

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"

	"github.com/hyperworkchat/hyperwork/internal/models"
	"github.com/hyperworkchat/hyperwork/internal/timeutil"
)

func (m *Model) phaseLabel(phase models.Phase) string {
	if phase == models.PhaseBreak {
		return m.style.Break.String()
	}

	return m.style.Work.String()
}

func (m *Model) idleView() string {
	var s strings.Builder

	title := "Ready to focus?"
	msg := fmt.Sprintf(
		"Press enter to start a %s work session.",
		timeutil.FormatClock(m.snap.Planned),
	)

	if m.snap.Next == models.PhaseBreak {
		title = "Your focus session is complete"
		msg = "It's time to take a well-deserved break!"
	}

	s.WriteString(m.phaseLabel(m.snap.Next))
	s.WriteString(m.style.Main.Render(title))
	s.WriteString("\n\n" + m.style.Secondary.Render(msg))
	s.WriteString("\n\n" + m.help.ShortHelpView([]key.Binding{
		defaultKeymap.start,
		defaultKeymap.quit,
	}))

	return s.String()
}

func (m *Model) chainingView() string {
	var s strings.Builder

	s.WriteString(m.phaseLabel(models.PhaseBreak))
	s.WriteString(m.style.Main.Render("Work session complete"))
	s.WriteString("\n\n" + m.style.Secondary.Render(
		fmt.Sprintf("Your break starts in %ds", m.snap.ChainRemaining),
	))
	s.WriteString("\n\n" + m.help.ShortHelpView([]key.Binding{
		defaultKeymap.start,
		defaultKeymap.stop,
		defaultKeymap.quit,
	}))

	return s.String()
}

func (m *Model) timerView() string {
	var s strings.Builder

	s.WriteString(m.phaseLabel(m.snap.Phase))

	if m.snap.State == Paused {
		s.WriteString(m.style.Secondary.Render("[Paused]"))
	} else {
		until := time.Now().Add(time.Duration(m.snap.Remaining) * time.Second)

		s.WriteString(
			strings.TrimSpace(
				m.style.Hint.Render("until " + until.Format(m.settings.timeFormat())),
			),
		)
	}

	var percent float64
	if m.snap.Planned > 0 {
		percent = float64(m.snap.Remaining) / float64(m.snap.Planned)
	}

	s.WriteString("\n\n")
	s.WriteString(m.style.Main.Render(timeutil.FormatClock(m.snap.Remaining)))
	s.WriteString("\n\n")
	s.WriteString(m.progress.ViewAs(1 - percent))
	s.WriteString("\n\n" + m.help.ShortHelpView([]key.Binding{
		defaultKeymap.togglePlay,
		defaultKeymap.stop,
		defaultKeymap.quit,
	}))

	return s.String()
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var view string

	switch m.snap.State {
	case Idle:
		view = m.idleView()
	case Chaining:
		view = m.chainingView()
	default:
		view = m.timerView()
	}

	if m.showPoints {
		view += "\n\n" + m.style.Hint.Render(fmt.Sprintf("Points: %d", m.points))
	}

	if m.err != nil {
		view += "\n\n" + m.style.Error.Render(m.err.Error())
	}

	return m.style.Base.Render(view)
}
