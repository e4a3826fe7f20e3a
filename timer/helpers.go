package timer

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/kballard/go-shellquote"

	"github.com/hyperworkchat/hyperwork/internal/models"
	"github.com/hyperworkchat/hyperwork/internal/timeutil"
	"github.com/hyperworkchat/hyperwork/internal/ui"
)

// notifier sends desktop notifications. It is swapped out in tests.
var notifier = beeep.Notify

// runSessionCmd executes the specified command.
func runSessionCmd(ctx context.Context, sessionCmd string) error {
	if sessionCmd == "" {
		return nil
	}

	cmdSlice, err := shellquote.Split(sessionCmd)
	if err != nil {
		return errSessionCmd.Wrap(err)
	}

	if len(cmdSlice) == 0 {
		return nil
	}

	name := cmdSlice[0]
	args := cmdSlice[1:]

	cmd := exec.CommandContext(ctx, name, args...)

	return cmd.Run()
}

// completionMessage returns the notification shown when a session completes.
func completionMessage(tr Transition) (title, msg string) {
	if tr.Phase == models.PhaseBreak {
		return "Break is over", "Time to refocus and get back to work!"
	}

	title = "Work session complete"
	msg = fmt.Sprintf("You earned %d points. Time for a break!", tr.Points)

	if tr.To == Chaining {
		msg = fmt.Sprintf("You earned %d points. Your break starts now.", tr.Points)
	}

	return title, msg
}

// notify sends a desktop notification for a completed session.
func notify(tr Transition) error {
	title, msg := completionMessage(tr)

	return notifier(title, msg, "")
}

// completed reports whether tr is the natural end of a session.
func completed(tr Transition) bool {
	return tr.From == Running && tr.Session != nil && tr.Session.IsCompleted
}

// printTransition writes a one-line summary of tr for the headless timer.
func printTransition(w io.Writer, tr Transition, timeFormat string) {
	label := ui.PhaseLabel(tr.Phase)

	switch {
	case tr.To == Running && tr.From != Paused:
		end := tr.Session.StartTime.Add(
			time.Duration(tr.Session.PlannedDuration) * time.Second,
		)

		fmt.Fprintf(w, "%s started (until %s)\n", label, ui.Highlight(end.Format(timeFormat)))
	case completed(tr):
		fmt.Fprintf(w, "%s completed: +%d points\n", label, tr.Points)
	case tr.To == Idle && tr.Session != nil:
		fmt.Fprintf(
			w,
			"%s stopped after %s\n",
			label,
			timeutil.FormatClock(tr.Session.ActualDuration),
		)
	case tr.To == Paused && tr.From == Running:
		fmt.Fprintf(w, "%s paused\n", label)
	case tr.To == Running && tr.From == Paused:
		fmt.Fprintf(w, "%s resumed\n", label)
	}
}
