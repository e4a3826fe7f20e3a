package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"

	"github.com/hyperworkchat/hyperwork/internal/config"
	"github.com/hyperworkchat/hyperwork/internal/exam"
)

var errExamStreamClosed = errors.New("exam announcements stopped before an exam started")

// awaitExam returns the first announced exam that is still running.
func awaitExam(
	ctx context.Context,
	events <-chan exam.Event,
	now func() time.Time,
) (exam.Exam, error) {
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return exam.Exam{}, errExamStreamClosed
			}

			if e.Kind == exam.KindStarted && e.Exam != nil && e.Exam.Remaining(now()) > 0 {
				return *e.Exam, nil
			}
		case <-ctx.Done():
			return exam.Exam{}, ctx.Err()
		}
	}
}

// collectResults adds every result of the board's exam to b until deadline
// fires, ctx is cancelled or the stream ends. Each new result is reported to
// out.
func collectResults(
	ctx context.Context,
	events <-chan exam.Event,
	b *exam.Board,
	deadline <-chan time.Time,
	out io.Writer,
) []exam.Result {
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return b.Results()
			}

			if b.Add(e) {
				fmt.Fprintf(out, "%s finished in %s\n", e.Result.StudentName, e.Result.CompletedIn)
			}
		case <-deadline:
			return b.Results()
		case <-ctx.Done():
			return b.Results()
		}
	}
}

// waitForEnter reports whether a line was read from in before deadline
// fired or ctx was cancelled.
func waitForEnter(ctx context.Context, in io.Reader, deadline <-chan time.Time) bool {
	line := make(chan struct{}, 1)

	go func() {
		_, err := bufio.NewReader(in).ReadString('\n')
		if err == nil {
			line <- struct{}{}
		}
	}()

	select {
	case <-line:
		return true
	case <-deadline:
		return false
	case <-ctx.Done():
		return false
	}
}

// examStartAction announces an exam and shows the results as students
// finish, until the countdown ends or the command is interrupted.
func examStartAction(ctx *cli.Context) error {
	s, err := setup(ctx)
	if err != nil {
		return err
	}

	defer s.Close()

	u, err := s.user()
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// subscribe first so that no result is missed
	events, unsubscribe, err := s.exam.Watch(sigCtx)
	if err != nil {
		return err
	}

	defer unsubscribe()

	d := time.Duration(ctx.Int("minutes")) * time.Minute

	ex, err := s.exam.Start(sigCtx, u, d)
	if err != nil {
		return err
	}

	pterm.Info.Printfln(
		"Exam started: %s. It ends at %s. Press Ctrl-C to stop early",
		d,
		ex.EndsAt().Local().Format(time.Kitchen),
	)

	timer := time.NewTimer(d)
	defer timer.Stop()

	results := collectResults(sigCtx, events, exam.NewBoard(ex), timer.C, config.Stdout)

	if ctx.Bool("json") {
		return printJSON(config.Stdout, results)
	}

	printResults(config.Stdout, results)

	return nil
}

// examJoinAction waits for the next exam and reports the student's
// completion when they press ENTER.
func examJoinAction(ctx *cli.Context) error {
	s, err := setup(ctx)
	if err != nil {
		return err
	}

	defer s.Close()

	u, err := s.user()
	if err != nil {
		return err
	}

	if u.IsTeacher() {
		return exam.ErrNotStudent
	}

	sigCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	events, unsubscribe, err := s.exam.Watch(sigCtx)
	if err != nil {
		return err
	}

	defer unsubscribe()

	pterm.Info.Println("Waiting for your teacher to start the exam")

	ex, err := awaitExam(sigCtx, events, time.Now)
	if err != nil {
		return err
	}

	left := ex.Remaining(time.Now())

	pterm.Info.Printfln(
		"The exam has started and ends at %s (%s left). Press ENTER when you finish",
		ex.EndsAt().Local().Format(time.Kitchen),
		left.Round(time.Second),
	)

	timer := time.NewTimer(left)
	defer timer.Stop()

	if !waitForEnter(sigCtx, config.Stdin, timer.C) {
		pterm.Warning.Println("The exam ended before you finished")
		return nil
	}

	r, err := s.exam.Finish(sigCtx, u, ex)
	if err != nil {
		return err
	}

	pterm.Success.Printfln("You finished the exam in %s", r.CompletedIn)

	return nil
}
