package app

import "github.com/urfave/cli/v2"

var (
	noColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable coloured output",
	}

	disableNotificationFlag = &cli.BoolFlag{
		Name:    "disable-notification",
		Aliases: []string{"d"},
		Usage:   "Disable the system notification that appears after a session is completed",
	}

	sessionCmdFlag = &cli.StringFlag{
		Name:    "session-cmd",
		Aliases: []string{"cmd"},
		Usage:   "Execute an arbitrary command after each session",
	}

	workFlag = &cli.StringFlag{
		Name:    "work",
		Aliases: []string{"w"},
		Usage:   "Work duration (e.g. 25m or 25). Minutes are assumed when no unit is given (default: 20)",
	}

	breakFlag = &cli.StringFlag{
		Name:    "break",
		Aliases: []string{"b"},
		Usage:   "Break duration (e.g. 5m or 5). Minutes are assumed when no unit is given (default: 5)",
	}

	autoBreakDelayFlag = &cli.StringFlag{
		Name:  "auto-break-delay",
		Usage: "How long to wait before a break starts automatically (default: 2s)",
	}

	noAutoBreakFlag = &cli.BoolFlag{
		Name:  "no-auto-break",
		Usage: "Do not start a break automatically after a work session",
	}

	headlessFlag = &cli.BoolFlag{
		Name:  "headless",
		Usage: "Run a single work session without the interactive interface",
	}

	limitFlag = &cli.IntFlag{
		Name:    "limit",
		Aliases: []string{"n"},
		Usage:   "Maximum number of entries to show",
	}

	sinceFlag = &cli.StringFlag{
		Name:  "since",
		Usage: "Only show sessions started after this date (e.g. 'last week', '2 days ago', '2026-03-01')",
	}

	jsonFlag = &cli.BoolFlag{
		Name:  "json",
		Usage: "Print the output as JSON",
	}

	roleFlag = &cli.StringFlag{
		Name:  "role",
		Usage: "Rank profiles with this role: student or teacher",
		Value: "student",
	}

	emailFlag = &cli.StringFlag{
		Name:    "email",
		Aliases: []string{"e"},
		Usage:   "Account email address",
	}

	passwordFlag = &cli.StringFlag{
		Name:    "password",
		Aliases: []string{"p"},
		Usage:   "Account password. You will be prompted for it when omitted",
		EnvVars: []string{"HYPERWORK_PASSWORD"},
	}

	firstNameFlag = &cli.StringFlag{
		Name:  "first-name",
		Usage: "First name shown on the leaderboard and in chat",
	}

	lastNameFlag = &cli.StringFlag{
		Name:  "last-name",
		Usage: "Last name",
	}

	teacherFlag = &cli.BoolFlag{
		Name:  "teacher",
		Usage: "Register a teacher account",
	}

	classFlag = &cli.StringFlag{
		Name:    "class",
		Aliases: []string{"c"},
		Usage:   "Class section (e.g. 10A)",
	}

	workDaysFlag = &cli.StringSliceFlag{
		Name:  "work-days",
		Usage: "Comma-delimited days you plan to work on (e.g. mon,wed,fri)",
	}

	dailyMinutesFlag = &cli.IntFlag{
		Name:  "daily-minutes",
		Usage: "Daily work goal in minutes",
	}

	yesFlag = &cli.BoolFlag{
		Name:    "yes",
		Aliases: []string{"y"},
		Usage:   "Skip the confirmation prompt",
	}

	descriptionFlag = &cli.StringFlag{
		Name:    "description",
		Aliases: []string{"d"},
		Usage:   "What the group is about",
	}

	minutesFlag = &cli.IntFlag{
		Name:    "minutes",
		Aliases: []string{"m"},
		Usage:   "Length of the exam in minutes",
		Value:   60,
	}
)

// timerFlags are accepted by the root command and by start.
func timerFlags() []cli.Flag {
	return []cli.Flag{
		workFlag,
		breakFlag,
		autoBreakDelayFlag,
		noAutoBreakFlag,
		disableNotificationFlag,
		sessionCmdFlag,
	}
}

func profileFlags() []cli.Flag {
	return []cli.Flag{
		firstNameFlag,
		lastNameFlag,
		classFlag,
		workDaysFlag,
		dailyMinutesFlag,
	}
}
