package app

import (
	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"

	"github.com/hyperworkchat/hyperwork/internal/config"
)

// disableStyling disables all styling provided by pterm.
func disableStyling() {
	pterm.DisableColor()
	pterm.DisableStyling()
	pterm.Debug.Prefix.Text = ""
	pterm.Info.Prefix.Text = ""
	pterm.Success.Prefix.Text = ""
	pterm.Warning.Prefix.Text = ""
	pterm.Error.Prefix.Text = ""
	pterm.Fatal.Prefix.Text = ""
}

func classCommand(name, usage string, action cli.ActionFunc, flags ...cli.Flag) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<class>",
		Flags:     append([]cli.Flag{classFlag}, flags...),
		Action:    action,
	}
}

// Get retrieves the hyperwork app instance.
func Get() *cli.App {
	startFlags := append(timerFlags(), headlessFlag)

	hyperworkApp := &cli.App{
		Name: "hyperwork",
		Usage: `
		HyperWork is a Pomodoro timer for students and teachers. Finish focused
		work sessions to earn points, climb the class leaderboard and chat
		with your class.`,
		UsageText:            "[COMMAND] [OPTIONS]",
		Version:              config.Version,
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			{
				Name:   "start",
				Usage:  "Start the timer (the default command)",
				Flags:  startFlags,
				Action: defaultAction,
			},
			{
				Name:   "register",
				Usage:  "Create an account. You will be prompted for any missing details",
				Flags:  append([]cli.Flag{emailFlag, passwordFlag, teacherFlag}, profileFlags()...),
				Action: registerAction,
			},
			{
				Name:   "login",
				Usage:  "Sign in to an existing account",
				Flags:  []cli.Flag{emailFlag, passwordFlag},
				Action: loginAction,
			},
			{
				Name:   "logout",
				Usage:  "Sign out",
				Action: logoutAction,
			},
			{
				Name:   "profile",
				Usage:  "Show your profile",
				Flags:  []cli.Flag{jsonFlag},
				Action: profileAction,
				Subcommands: []*cli.Command{
					{
						Name:   "edit",
						Usage:  "Update your name, class and work schedule",
						Flags:  append(profileFlags(), yesFlag),
						Action: profileEditAction,
					},
				},
			},
			{
				Name:   "history",
				Usage:  "List your recent sessions",
				Flags:  []cli.Flag{limitFlag, sinceFlag, jsonFlag},
				Action: historyAction,
			},
			{
				Name:   "stats",
				Usage:  "Summarise your recent work sessions",
				Flags:  []cli.Flag{sinceFlag, jsonFlag},
				Action: statsAction,
			},
			{
				Name:   "leaderboard",
				Usage:  "Show the profiles with the most points",
				Flags:  []cli.Flag{roleFlag, limitFlag, jsonFlag},
				Action: leaderboardAction,
			},
			{
				Name:  "chat",
				Usage: "Talk with your class",
				Subcommands: []*cli.Command{
					{
						Name:      "send",
						Usage:     "Send a message",
						ArgsUsage: "<message>",
						Action:    chatSendAction,
					},
					{
						Name:   "list",
						Usage:  "Show recent messages",
						Flags:  []cli.Flag{limitFlag, jsonFlag},
						Action: chatListAction,
					},
					{
						Name:   "watch",
						Usage:  "Show new messages as they arrive",
						Action: chatWatchAction,
					},
				},
			},
			{
				Name:  "group",
				Usage: "Talk in smaller chat groups",
				Subcommands: []*cli.Command{
					{
						Name:      "create",
						Usage:     "Create a group. A teacher's group includes their class",
						ArgsUsage: "<name>",
						Flags:     []cli.Flag{descriptionFlag, jsonFlag},
						Action:    groupCreateAction,
					},
					{
						Name:   "list",
						Usage:  "List the groups you can join",
						Flags:  []cli.Flag{jsonFlag},
						Action: groupListAction,
					},
					{
						Name:      "join",
						Usage:     "Join a group",
						ArgsUsage: "<group-id>",
						Action:    groupJoinAction,
					},
					{
						Name:      "members",
						Usage:     "List the members of a group",
						ArgsUsage: "<group-id>",
						Flags:     []cli.Flag{jsonFlag},
						Action:    groupMembersAction,
					},
					{
						Name:      "send",
						Usage:     "Send a message to a group",
						ArgsUsage: "<group-id> <message>",
						Action:    groupSendAction,
					},
					{
						Name:      "history",
						Usage:     "Show recent messages of a group",
						ArgsUsage: "<group-id>",
						Flags:     []cli.Flag{limitFlag, jsonFlag},
						Action:    groupHistoryAction,
					},
					{
						Name:      "watch",
						Usage:     "Show new messages of a group as they arrive",
						ArgsUsage: "<group-id>",
						Action:    groupWatchAction,
					},
				},
			},
			{
				Name:  "exam",
				Usage: "Run an exam countdown with your class",
				Subcommands: []*cli.Command{
					{
						Name:   "start",
						Usage:  "Start an exam and collect the results (teachers only)",
						Flags:  []cli.Flag{minutesFlag, jsonFlag},
						Action: examStartAction,
					},
					{
						Name:   "join",
						Usage:  "Wait for the next exam and press ENTER when you finish",
						Action: examJoinAction,
					},
				},
			},
			{
				Name:   "classes",
				Usage:  "List the class sections of all students (teachers only)",
				Flags:  []cli.Flag{jsonFlag},
				Action: classesAction,
			},
			classCommand("roster", "Show the students of a class (teachers only)", rosterAction, jsonFlag),
			classCommand("pick", "Pick a random student who has not been picked yet (teachers only)", pickAction, jsonFlag),
			classCommand("pick-reset", "Make every student of a class available to pick again (teachers only)", pickResetAction, yesFlag),
			{
				Name:   "serve",
				Usage:  "Run the HTTP API and background jobs",
				Action: serveAction,
			},
			{
				Name:   "edit-config",
				Usage:  "Edit the configuration file",
				Action: editConfigAction,
			},
		},
		Flags:  append(startFlags, noColorFlag),
		Action: defaultAction,
		Before: beforeAction,
		After:  afterAction,
	}

	return hyperworkApp
}
