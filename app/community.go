package app

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"

	"github.com/hyperworkchat/hyperwork/internal/config"
)

// classArg returns the class section given as the first argument or with
// --class.
func classArg(ctx *cli.Context) string {
	return firstNonEmptyString(ctx.Args().First(), ctx.String("class"))
}

func classesAction(ctx *cli.Context) error {
	s, err := setup(ctx)
	if err != nil {
		return err
	}

	defer s.Close()

	u, err := s.user()
	if err != nil {
		return err
	}

	classes, err := s.classroom.Classes(ctx.Context, u)
	if err != nil {
		return err
	}

	if ctx.Bool("json") {
		return printJSON(config.Stdout, classes)
	}

	if len(classes) == 0 {
		pterm.Info.Println("No students have joined a class yet")
		return nil
	}

	for _, c := range classes {
		pterm.Println(c)
	}

	return nil
}

func rosterAction(ctx *cli.Context) error {
	s, err := setup(ctx)
	if err != nil {
		return err
	}

	defer s.Close()

	u, err := s.user()
	if err != nil {
		return err
	}

	r, err := s.classroom.Roster(ctx.Context, u, classArg(ctx))
	if err != nil {
		return err
	}

	if ctx.Bool("json") {
		return printJSON(config.Stdout, r)
	}

	printRoster(config.Stdout, &r)

	return nil
}

// pickAction picks a random student that has not been picked yet.
func pickAction(ctx *cli.Context) error {
	s, err := setup(ctx)
	if err != nil {
		return err
	}

	defer s.Close()

	u, err := s.user()
	if err != nil {
		return err
	}

	pick, err := s.classroom.Pick(ctx.Context, u, classArg(ctx))
	if err != nil {
		return err
	}

	if ctx.Bool("json") {
		return printJSON(config.Stdout, pick)
	}

	pterm.Success.Printfln(
		"%s was picked. %d student(s) left to pick",
		pick.Student.DisplayName(),
		pick.Remaining,
	)

	return nil
}

func pickResetAction(ctx *cli.Context) error {
	s, err := setup(ctx)
	if err != nil {
		return err
	}

	defer s.Close()

	u, err := s.user()
	if err != nil {
		return err
	}

	class := classArg(ctx)

	r, err := s.classroom.Roster(ctx.Context, u, class)
	if err != nil {
		return err
	}

	names := make(map[string]string, len(r.Students))
	for i := range r.Students {
		names[r.Students[i].ID] = r.Students[i].DisplayName()
	}

	n, err := resetPicks(
		ctx.Context,
		s.classroom,
		u,
		class,
		names,
		config.Stdin,
		config.Stdout,
		!ctx.Bool("yes"),
	)
	if err != nil {
		return err
	}

	pterm.Success.Printfln("Cleared %d pick(s) for %s", n, r.Summary.ClassSection)

	return nil
}

func chatSendAction(ctx *cli.Context) error {
	s, err := setup(ctx)
	if err != nil {
		return err
	}

	defer s.Close()

	u, err := s.user()
	if err != nil {
		return err
	}

	m, err := s.chat.Send(ctx.Context, u, strings.Join(ctx.Args().Slice(), " "))
	if err != nil {
		return err
	}

	printMessage(config.Stdout, &m)

	return nil
}

func chatListAction(ctx *cli.Context) error {
	s, err := setup(ctx)
	if err != nil {
		return err
	}

	defer s.Close()

	limit := ctx.Int("limit")
	if limit <= 0 {
		limit = s.cfg.Settings.ChatHistory
	}

	msgs, err := s.chat.History(ctx.Context, limit)
	if err != nil {
		return err
	}

	if ctx.Bool("json") {
		return printJSON(config.Stdout, msgs)
	}

	printMessages(config.Stdout, msgs)

	return nil
}

// chatWatchAction prints the recent history and then every new message
// until interrupted.
func chatWatchAction(ctx *cli.Context) error {
	s, err := setup(ctx)
	if err != nil {
		return err
	}

	defer s.Close()

	sigCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	msgs, err := s.chat.History(sigCtx, s.cfg.Settings.ChatHistory)
	if err != nil {
		return err
	}

	printMessages(config.Stdout, msgs)

	stream, unsubscribe, err := s.chat.Subscribe(sigCtx)
	if err != nil {
		return err
	}

	defer unsubscribe()

	for m := range stream {
		printMessage(config.Stdout, &m)
	}

	return nil
}
