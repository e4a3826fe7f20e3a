package app

import (
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"

	"github.com/hyperworkchat/hyperwork/internal/config"
)

var errNoGroupID = errors.New("a group id is required")

// groupArg returns the group id given as the first argument.
func groupArg(ctx *cli.Context) (string, error) {
	id := strings.TrimSpace(ctx.Args().First())
	if id == "" {
		return "", errNoGroupID
	}

	return id, nil
}

func groupCreateAction(ctx *cli.Context) error {
	s, err := setup(ctx)
	if err != nil {
		return err
	}

	defer s.Close()

	u, err := s.user()
	if err != nil {
		return err
	}

	g, err := s.chat.CreateGroup(
		ctx.Context,
		u,
		strings.Join(ctx.Args().Slice(), " "),
		ctx.String("description"),
	)
	if err != nil {
		return err
	}

	if ctx.Bool("json") {
		return printJSON(config.Stdout, g)
	}

	pterm.Success.Printfln("Created %s (%s)", g.Name, g.ID)

	return nil
}

func groupListAction(ctx *cli.Context) error {
	s, err := setup(ctx)
	if err != nil {
		return err
	}

	defer s.Close()

	u, err := s.user()
	if err != nil {
		return err
	}

	groups, err := s.chat.Groups(ctx.Context, u)
	if err != nil {
		return err
	}

	if ctx.Bool("json") {
		return printJSON(config.Stdout, groups)
	}

	printGroups(config.Stdout, groups)

	return nil
}

func groupJoinAction(ctx *cli.Context) error {
	id, err := groupArg(ctx)
	if err != nil {
		return err
	}

	s, err := setup(ctx)
	if err != nil {
		return err
	}

	defer s.Close()

	u, err := s.user()
	if err != nil {
		return err
	}

	g, err := s.chat.Join(ctx.Context, u, id)
	if err != nil {
		return err
	}

	pterm.Success.Printfln("You joined %s", g.Name)

	return nil
}

func groupMembersAction(ctx *cli.Context) error {
	id, err := groupArg(ctx)
	if err != nil {
		return err
	}

	s, err := setup(ctx)
	if err != nil {
		return err
	}

	defer s.Close()

	u, err := s.user()
	if err != nil {
		return err
	}

	members, err := s.chat.Members(ctx.Context, u, id)
	if err != nil {
		return err
	}

	if ctx.Bool("json") {
		return printJSON(config.Stdout, members)
	}

	names := make(map[string]string, len(members))

	for i := range members {
		p, err := s.db.GetProfile(ctx.Context, members[i].UserID)
		if err == nil && p.DisplayName() != "" {
			names[p.ID] = p.DisplayName()
		}
	}

	printMembers(config.Stdout, members, names)

	return nil
}

func groupSendAction(ctx *cli.Context) error {
	id, err := groupArg(ctx)
	if err != nil {
		return err
	}

	s, err := setup(ctx)
	if err != nil {
		return err
	}

	defer s.Close()

	u, err := s.user()
	if err != nil {
		return err
	}

	m, err := s.chat.SendGroup(ctx.Context, u, id, strings.Join(ctx.Args().Tail(), " "))
	if err != nil {
		return err
	}

	printMessage(config.Stdout, &m)

	return nil
}

func groupHistoryAction(ctx *cli.Context) error {
	id, err := groupArg(ctx)
	if err != nil {
		return err
	}

	s, err := setup(ctx)
	if err != nil {
		return err
	}

	defer s.Close()

	u, err := s.user()
	if err != nil {
		return err
	}

	limit := ctx.Int("limit")
	if limit <= 0 {
		limit = s.cfg.Settings.ChatHistory
	}

	msgs, err := s.chat.GroupHistory(ctx.Context, u, id, limit)
	if err != nil {
		return err
	}

	if ctx.Bool("json") {
		return printJSON(config.Stdout, msgs)
	}

	printMessages(config.Stdout, msgs)

	return nil
}

// groupWatchAction prints the group's recent messages and then every new
// one until interrupted.
func groupWatchAction(ctx *cli.Context) error {
	id, err := groupArg(ctx)
	if err != nil {
		return err
	}

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

	msgs, err := s.chat.GroupHistory(sigCtx, u, id, s.cfg.Settings.ChatHistory)
	if err != nil {
		return err
	}

	printMessages(config.Stdout, msgs)

	stream, unsubscribe, err := s.chat.SubscribeGroup(sigCtx, u, id)
	if err != nil {
		return err
	}

	defer unsubscribe()

	for m := range stream {
		printMessage(config.Stdout, &m)
	}

	return nil
}
