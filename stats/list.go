package stats

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/hyperworkchat/hyperwork/internal/models"
	"github.com/hyperworkchat/hyperwork/internal/timeutil"
	"github.com/hyperworkchat/hyperwork/internal/ui"
)

const (
	barChartChar  = "▇"
	barWidth      = 30
	dateFormat    = "Jan 02, 2006 03:04 PM"
	noSessionsMsg = "No sessions found"
)

// PrintSessions writes a table of sessions to w.
func PrintSessions(w io.Writer, sessions []models.WorkSession) {
	if len(sessions) == 0 {
		pterm.Info.WithWriter(w).Println(noSessionsMsg)
		return
	}

	table := ui.NewTable("#", "START", "PHASE", "PLANNED", "ACTUAL", "PAUSED", "POINTS", "STATUS")

	for i := range sessions {
		sess := &sessions[i]

		paused := ""
		if sess.WasPaused {
			paused = "yes"
		}

		table.Row(
			fmt.Sprintf("%d", i+1),
			sess.StartTime.Local().Format(dateFormat),
			string(sess.Phase),
			timeutil.FormatClock(sess.PlannedDuration),
			timeutil.FormatClock(sess.ActualDuration),
			paused,
			fmt.Sprintf("%d", sess.PointsEarned),
			ui.SessionStatus(sess),
		)
	}

	table.Print(w)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)

	h := int(d.Hours())
	m := int(d.Minutes()) % 60

	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}

	return fmt.Sprintf("%dm", m)
}

// PrintStats writes a summary of s and its daily series to w.
func PrintStats(w io.Writer, s Stats) {
	fmt.Fprintln(w, pterm.LightBlue("Summary"))

	rows := [][]string{
		{"Total sessions", fmt.Sprintf("%d", s.TotalSessions)},
		{"Completed", fmt.Sprintf("%d", s.CompletedSessions)},
		{"Completion rate", fmt.Sprintf("%.0f%%", s.CompletionRate)},
		{"Focused time", formatDuration(s.TotalTime)},
		{"Average completed session", formatDuration(s.AverageCompleted)},
		{"Points earned", fmt.Sprintf("%d", s.TotalPoints)},
		{"Best streak", fmt.Sprintf("%d", s.BestStreak)},
		{"Current streak", fmt.Sprintf("%d", s.CurrentStreak)},
	}

	for _, row := range rows {
		fmt.Fprintf(w, "%s: %s\n", row[0], ui.Highlight(row[1]))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, pterm.LightBlue("Last 7 days"))

	var longest time.Duration
	for _, d := range s.Daily {
		longest = max(longest, d.Time)
	}

	for _, d := range s.Daily {
		var bar string
		if longest > 0 {
			bar = strings.Repeat(barChartChar, int(float64(barWidth)*float64(d.Time)/float64(longest)))
		}

		fmt.Fprintf(
			w,
			"%s %s %s (%d points)\n",
			d.Date.Format("Mon 02"),
			ui.Green(bar),
			formatDuration(d.Time),
			d.Points,
		)
	}
}
