package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"

	"github.com/hyperworkchat/hyperwork/internal/auth"
	"github.com/hyperworkchat/hyperwork/internal/config"
	"github.com/hyperworkchat/hyperwork/internal/jobs"
	"github.com/hyperworkchat/hyperwork/internal/logger"
	"github.com/hyperworkchat/hyperwork/internal/models"
	"github.com/hyperworkchat/hyperwork/internal/osutil"
	"github.com/hyperworkchat/hyperwork/internal/pathutil"
	"github.com/hyperworkchat/hyperwork/internal/server"
	"github.com/hyperworkchat/hyperwork/internal/timeutil"
	"github.com/hyperworkchat/hyperwork/stats"
	"github.com/hyperworkchat/hyperwork/timer"
)

const (
	envUpdateNotifier   = "HYPERWORK_UPDATE_NOTIFIER"
	envNoColor          = "NO_COLOR"
	envHyperWorkNoColor = "HYPERWORK_NO_COLOR"

	// statsWindow is the number of recent sessions summarised by stats
	statsWindow = 100

	shutdownTimeout = 10 * time.Second
)

var errInvalidRole = errors.New("role must be 'student' or 'teacher'")

// firstNonEmptyString returns its first non-empty argument, or "" if all
// arguments are empty.
func firstNonEmptyString(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}

	return ""
}

// checkForUpdates alerts the user if there is
// an updated version of HyperWork from the one currently installed.
func checkForUpdates(app *cli.App) {
	spinner, _ := pterm.DefaultSpinner.Start("Checking for updates...")
	c := http.Client{Timeout: 10 * time.Second}

	resp, err := c.Get("https://github.com/hyperworkchat/hyperwork/releases/latest")
	if err != nil {
		pterm.Error.Println("HTTP Error: Failed to check for update")
		return
	}

	defer resp.Body.Close()

	var version string

	_, err = fmt.Sscanf(
		resp.Request.URL.String(),
		"https://github.com/hyperworkchat/hyperwork/releases/tag/%s",
		&version,
	)
	if err != nil {
		pterm.Error.Println("Failed to get latest version")
		return
	}

	if version == app.Version {
		text := pterm.Sprintf(
			"Congratulations, you are using the latest version of %s",
			app.Name,
		)
		spinner.Success(text)
	} else {
		pterm.Warning.Prefix = pterm.Prefix{
			Text:  "UPDATE AVAILABLE",
			Style: pterm.NewStyle(pterm.BgYellow, pterm.FgBlack),
		}
		pterm.Warning.Printfln("A new release of hyperwork is available: %s at %s", version, resp.Request.URL.String())
	}
}

// sessionsSince returns up to limit of the user's sessions, newest first,
// dropping those started before since. A failed read yields no sessions.
func sessionsSince(
	ctx context.Context,
	s *services,
	userID string,
	limit int,
	since string,
) ([]models.WorkSession, error) {
	var cutoff time.Time

	if since != "" {
		var err error

		cutoff, err = timeutil.FromStr(since, time.Now())
		if err != nil {
			return nil, err
		}
	}

	sessions, err := s.db.ListSessions(ctx, userID, limit, time.Time{})
	if err != nil {
		slog.WarnContext(ctx, "reading sessions failed, showing none",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)

		return []models.WorkSession{}, nil
	}

	if cutoff.IsZero() {
		return sessions, nil
	}

	filtered := sessions[:0]

	for i := range sessions {
		if !sessions[i].StartTime.Before(cutoff) {
			filtered = append(filtered, sessions[i])
		}
	}

	return filtered, nil
}

// pointsWatcher follows the point total of the user's profile.
func pointsWatcher(p *auth.Provider, userID string) timer.PointsWatcher {
	return func(ctx context.Context, fn func(total int)) (func(), error) {
		return p.OnProfileChange(ctx, userID, func(profile models.Profile) {
			fn(profile.TotalPoints)
		})
	}
}

// editConfigAction handles the edit-config command which opens the
// hyperwork config file in the user's default text editor.
func editConfigAction(_ *cli.Context) error {
	err := pathutil.Initialize()
	if err != nil {
		return err
	}

	defaultEditor := "nano"

	if runtime.GOOS == osutil.Windows {
		defaultEditor = "C:\\Windows\\system32\\notepad.exe"
	}

	editor := firstNonEmptyString(
		os.Getenv("VISUAL"),
		os.Getenv("EDITOR"),
		defaultEditor,
	)

	cmd := exec.Command(editor, pathutil.ConfigFilePath())

	cmd.Stderr = config.Stderr
	cmd.Stdin = config.Stdin
	cmd.Stdout = config.Stdout

	return cmd.Run()
}

// defaultAction starts the timer for the signed-in user. The first run
// asks for the preferred session lengths.
func defaultAction(ctx *cli.Context) error {
	s, err := setup(ctx, config.WithPromptConfig(pathutil.ConfigFilePath()))
	if err != nil {
		return err
	}

	defer s.Close()

	u, err := s.user()
	if err != nil {
		return err
	}

	e, err := timer.New(s.db, u, timer.FromConfig(s.cfg))
	if err != nil {
		return err
	}

	slog.InfoContext(ctx.Context, "starting timer",
		slog.String("user_id", u.ID),
		slog.String("timer", s.cfg.Timer.String()),
	)

	settings := timer.SettingsFromConfig(s.cfg)

	if ctx.Bool("headless") {
		err = timer.RunHeadless(ctx.Context, e, settings, config.Stdout)
	} else {
		current := s.provider.Profile(ctx.Context, u.ID)

		err = timer.Run(
			ctx.Context,
			e,
			settings,
			config.Stdin,
			config.Stdout,
			timer.WithPoints(current.TotalPoints, pointsWatcher(s.provider, u.ID)),
		)
	}

	if err != nil {
		return err
	}

	p := s.provider.Profile(ctx.Context, u.ID)
	pterm.Info.Printfln("You have %d points", p.TotalPoints)

	return nil
}

// historyAction prints a table of the user's recent sessions.
func historyAction(ctx *cli.Context) error {
	s, err := setup(ctx)
	if err != nil {
		return err
	}

	defer s.Close()

	u, err := s.user()
	if err != nil {
		return err
	}

	sessions, err := sessionsSince(
		ctx.Context,
		s,
		u.ID,
		ctx.Int("limit"),
		ctx.String("since"),
	)
	if err != nil {
		return err
	}

	if ctx.Bool("json") {
		return printJSON(config.Stdout, sessions)
	}

	stats.PrintSessions(config.Stdout, sessions)

	return nil
}

// statsAction summarises the user's recent work sessions.
func statsAction(ctx *cli.Context) error {
	s, err := setup(ctx)
	if err != nil {
		return err
	}

	defer s.Close()

	u, err := s.user()
	if err != nil {
		return err
	}

	sessions, err := sessionsSince(ctx.Context, s, u.ID, statsWindow, ctx.String("since"))
	if err != nil {
		return err
	}

	summary := stats.Compute(sessions, time.Now())

	if ctx.Bool("json") {
		return printJSON(config.Stdout, summary)
	}

	stats.PrintStats(config.Stdout, summary)

	return nil
}

// leaderboardAction prints the top profiles of a role.
func leaderboardAction(ctx *cli.Context) error {
	role := models.Role(ctx.String("role"))
	if !role.Valid() {
		return errInvalidRole
	}

	s, err := setup(ctx)
	if err != nil {
		return err
	}

	defer s.Close()

	limit := ctx.Int("limit")
	if limit <= 0 {
		limit = s.cfg.Settings.LeaderboardSize
	}

	profiles, err := s.classroom.Leaderboard(ctx.Context, role, limit)
	if err != nil {
		return err
	}

	if ctx.Bool("json") {
		return printJSON(config.Stdout, profiles)
	}

	var currentID string
	if u := s.provider.CurrentUser(); u != nil {
		currentID = u.ID
	}

	printLeaderboard(config.Stdout, profiles, currentID)

	return nil
}

// serveAction runs the HTTP API and the background jobs until an interrupt
// or termination signal is received.
func serveAction(ctx *cli.Context) error {
	s, err := setup(ctx)
	if err != nil {
		return err
	}

	defer s.Close()

	log := logger.NewServer(config.Stderr, s.cfg.Environment)

	handlers := server.NewHandlerSet(
		log,
		s.cfg.Environment,
		s.db,
		s.auth,
		s.classroom,
		s.chat,
	)

	srv := server.NewHTTPServer(s.cfg, log, handlers)
	scheduler := jobs.NewScheduler(s.db, s.cfg.Jobs, log)

	err = scheduler.Start()
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)

	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-sigCtx.Done():
		log.Info().Msg("shutdown signal received")
	case err = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	scheduler.Stop(shutdownCtx)

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Error().Err(shutdownErr).Msg("http server shutdown failed")
	}

	return err
}

func beforeAction(ctx *cli.Context) error {
	// Override the default help template
	cli.AppHelpTemplate = helpText()

	// Override the default version printer
	oldVersionPrinter := cli.VersionPrinter
	cli.VersionPrinter = func(c *cli.Context) {
		oldVersionPrinter(c)
		fmt.Printf(
			"https://github.com/hyperworkchat/hyperwork/releases/%s\n",
			c.App.Version,
		)

		if _, found := os.LookupEnv(envUpdateNotifier); found {
			checkForUpdates(c.App)
		}
	}

	pterm.Error.MessageStyle = pterm.NewStyle(pterm.FgRed)
	pterm.Error.Prefix = pterm.Prefix{
		Text:  "ERROR",
		Style: pterm.NewStyle(pterm.BgRed, pterm.FgBlack),
	}

	// Disable colour output if NO_COLOR is set
	if _, exists := os.LookupEnv(envNoColor); exists {
		disableStyling()
	}

	// Disable colour output if HYPERWORK_NO_COLOR is set
	if _, exists := os.LookupEnv(envHyperWorkNoColor); exists {
		disableStyling()
	}

	if ctx.Bool("no-color") {
		disableStyling()
	}

	return nil
}

func afterAction(ctx *cli.Context) error {
	slog.InfoContext(ctx.Context, "exiting hyperwork")

	return nil
}
