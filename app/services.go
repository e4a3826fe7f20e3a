package app

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/hyperworkchat/hyperwork/internal/auth"
	"github.com/hyperworkchat/hyperwork/internal/chat"
	"github.com/hyperworkchat/hyperwork/internal/classroom"
	"github.com/hyperworkchat/hyperwork/internal/config"
	"github.com/hyperworkchat/hyperwork/internal/exam"
	"github.com/hyperworkchat/hyperwork/internal/logger"
	"github.com/hyperworkchat/hyperwork/internal/models"
	"github.com/hyperworkchat/hyperwork/internal/pathutil"
	"github.com/hyperworkchat/hyperwork/internal/realtime"
	"github.com/hyperworkchat/hyperwork/internal/ui"
	"github.com/hyperworkchat/hyperwork/store"
)

// services holds everything a command needs once the configuration is
// loaded.
type services struct {
	cfg       *config.Config
	db        store.DB
	broker    realtime.Broker
	auth      *auth.Service
	provider  *auth.Provider
	classroom *classroom.Service
	chat      *chat.Service
	exam      *exam.Service
	logs      io.Closer
}

// loadConfig builds the configuration from the .env file, the config file
// and the command-line flags, in that order of precedence.
func loadConfig(ctx *cli.Context, extra ...config.Option) (*config.Config, error) {
	err := pathutil.Initialize()
	if err != nil {
		return nil, err
	}

	opts := append([]config.Option{config.WithEnvFile(".env")}, extra...)
	opts = append(opts,
		config.WithViperConfig(pathutil.ConfigFilePath()),
		config.WithCLIConfig(ctx),
		config.WithDBPath(pathutil.DBFilePath()),
	)

	return config.New(opts...)
}

// setup loads the configuration, installs the file logger and opens the
// store and broker.
func setup(ctx *cli.Context, extra ...config.Option) (*services, error) {
	cfg, err := loadConfig(ctx, extra...)
	if err != nil {
		return nil, err
	}

	logs, err := logger.Setup(pathutil.LogFilePath(), cfg.Environment)
	if err != nil {
		return nil, err
	}

	ui.DarkTheme = cfg.Display.DarkTheme

	s, err := openServices(ctx.Context, cfg, pathutil.CredentialsFilePath())
	if err != nil {
		_ = logs.Close()
		return nil, err
	}

	s.logs = logs

	return s, nil
}

// openServices connects to the configured broker and database and restores
// the signed-in user from credsPath.
func openServices(
	ctx context.Context,
	cfg *config.Config,
	credsPath string,
) (*services, error) {
	broker, err := realtime.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	db, err := store.Open(ctx, cfg.Database)
	if err != nil {
		_ = broker.Close()
		return nil, err
	}

	notifying := store.NewNotifying(db, broker)
	authSvc := auth.NewService(notifying, cfg.Auth)

	s := &services{
		cfg:       cfg,
		db:        notifying,
		broker:    broker,
		auth:      authSvc,
		provider:  auth.NewProvider(authSvc, notifying, broker, credsPath),
		classroom: classroom.NewService(notifying),
		chat:      chat.NewService(notifying, broker),
		exam:      exam.NewService(notifying, broker),
	}

	err = s.provider.Load()
	if err != nil {
		slog.WarnContext(ctx, "restoring credentials failed", slog.Any("error", err))
	}

	return s, nil
}

// Close releases the database, the broker and the log file.
func (s *services) Close() error {
	errs := []error{s.db.Close(), s.broker.Close()}

	if s.logs != nil {
		errs = append(errs, s.logs.Close())
	}

	return errors.Join(errs...)
}

func (s *services) user() (models.User, error) {
	return s.provider.RequireUser()
}
