package config_test

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/hyperworkchat/hyperwork/internal/config"
	"github.com/hyperworkchat/hyperwork/internal/scoring"
)

// defaultConfig returns a new Config instance with default values.
func defaultConfig() *config.Config {
	return &config.Config{
		Environment: config.EnvDevelopment,
		Timer: config.TimerConfig{
			WorkDuration:   20 * time.Minute,
			BreakDuration:  5 * time.Minute,
			AutoBreak:      true,
			AutoBreakDelay: 2 * time.Second,
		},
		Scoring: scoring.Policy{Full: 100, Paused: 50},
		Database: config.DatabaseConfig{
			Driver:          config.DriverBolt,
			MaxConns:        10,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Realtime: config.RealtimeConfig{Driver: config.DriverMemory},
		Redis:    config.RedisConfig{Addr: "127.0.0.1:6379"},
		Auth: config.AuthConfig{
			Issuer:   "hyperwork",
			TokenTTL: 720 * time.Hour,
		},
		Server: config.ServerConfig{
			Addr:         ":8080",
			AllowOrigins: []string{"*"},
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Jobs: config.JobsConfig{
			SweepSchedule: "0 */10 * * * *",
			StaleAfter:    3 * time.Hour,
		},
		Notifications: config.NotificationConfig{Enabled: true},
		Settings: config.SettingsConfig{
			LeaderboardSize: 50,
			ChatHistory:     50,
		},
		Display: config.DisplayConfig{
			WorkColor:  "#B0DB43",
			BreakColor: "#12EAEA",
			DarkTheme:  true,
		},
	}
}

// ignoreSecret skips the randomly generated signing key.
var ignoreSecret = cmpopts.IgnoreFields(config.AuthConfig{}, "JWTSecret")

func TestViperWriteConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yml")

	cfg, err := config.New(
		config.WithViperConfig(configPath),
	)
	require.NoError(t, err)

	if diff := cmp.Diff(defaultConfig(), cfg, ignoreSecret, cmpopts.IgnoreUnexported(config.Config{})); diff != "" {
		t.Fatalf("default config mismatch (-want +got):\n%s", diff)
	}

	assert.Len(t, cfg.Auth.JWTSecret, 64)

	_, err = os.Stat(configPath)
	assert.NoError(t, err, "default config should be written to disk")

	// the secret written on first run must be reused afterwards
	again, err := config.New(config.WithViperConfig(configPath))
	require.NoError(t, err)

	assert.Equal(t, cfg.Auth.JWTSecret, again.Auth.JWTSecret)
}

func TestViperReadConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yml")

	yml := `
timer:
  work_duration: 50m
  break_duration: 10m
  auto_break: false
scoring:
  full_points: 10
  paused_points: 5
auth:
  jwt_secret: a-very-long-test-secret
server:
  allow_origins: http://localhost:3000,http://localhost:5173
`

	require.NoError(t, os.WriteFile(configPath, []byte(yml), 0o600))

	cfg, err := config.New(config.WithViperConfig(configPath))
	require.NoError(t, err)

	assert.Equal(t, 50*time.Minute, cfg.Timer.WorkDuration)
	assert.Equal(t, 10*time.Minute, cfg.Timer.BreakDuration)
	assert.False(t, cfg.Timer.AutoBreak)
	assert.Equal(t, scoring.Policy{Full: 10, Paused: 5}, cfg.Scoring)
	assert.Equal(t, "a-very-long-test-secret", cfg.Auth.JWTSecret)
	assert.Equal(
		t,
		[]string{"http://localhost:3000", "http://localhost:5173"},
		cfg.Server.AllowOrigins,
	)
	// keys absent from the file keep their defaults
	assert.Equal(t, 2*time.Second, cfg.Timer.AutoBreakDelay)
}

func TestEnvOverrides(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yml")

	t.Setenv("HYPERWORK_DATABASE_DRIVER", "postgres")
	t.Setenv("HYPERWORK_DATABASE_DSN", "postgres://localhost/hyperwork")
	t.Setenv("HYPERWORK_TIMER_WORK_DURATION", "30m")

	cfg, err := config.New(config.WithViperConfig(configPath))
	require.NoError(t, err)

	assert.Equal(t, config.DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/hyperwork", cfg.Database.DSN)
	assert.Equal(t, 30*time.Minute, cfg.Timer.WorkDuration)

	b, err := os.ReadFile(configPath)
	require.NoError(t, err)

	assert.NotContains(t, string(b), "postgres://localhost/hyperwork")
}

func TestEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")

	require.NoError(
		t,
		os.WriteFile(envPath, []byte("HYPERWORK_SETTINGS_CHAT_HISTORY=20\n"), 0o600),
	)

	t.Cleanup(func() {
		os.Unsetenv("HYPERWORK_SETTINGS_CHAT_HISTORY")
	})

	cfg, err := config.New(
		config.WithEnvFile(envPath),
		config.WithViperConfig(filepath.Join(dir, "config.yml")),
	)
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Settings.ChatHistory)
}

func TestMissingEnvFileIsIgnored(t *testing.T) {
	dir := t.TempDir()

	_, err := config.New(
		config.WithEnvFile(filepath.Join(dir, ".env")),
		config.WithViperConfig(filepath.Join(dir, "config.yml")),
	)
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		mutate func(c *config.Config)
		name   string
		ok     bool
	}{
		{
			name:   "defaults",
			mutate: func(_ *config.Config) {},
			ok:     true,
		},
		{
			name: "break longer than work",
			mutate: func(c *config.Config) {
				c.Timer.BreakDuration = 30 * time.Minute
			},
		},
		{
			name: "zero work duration",
			mutate: func(c *config.Config) {
				c.Timer.WorkDuration = 0
			},
		},
		{
			name: "paused points above full points",
			mutate: func(c *config.Config) {
				c.Scoring = scoring.Policy{Full: 50, Paused: 100}
			},
		},
		{
			name: "postgres without dsn",
			mutate: func(c *config.Config) {
				c.Database.Driver = config.DriverPostgres
			},
		},
		{
			name: "unknown realtime driver",
			mutate: func(c *config.Config) {
				c.Realtime.Driver = "nats"
			},
		},
		{
			name: "short secret",
			mutate: func(c *config.Config) {
				c.Auth.JWTSecret = "short"
			},
		},
		{
			name: "stale threshold below work duration",
			mutate: func(c *config.Config) {
				c.Jobs.StaleAfter = time.Minute
			},
		},
		{
			name: "invalid color",
			mutate: func(c *config.Config) {
				c.Display.WorkColor = "green"
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Auth.JWTSecret = "0123456789abcdef0123"

			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestCLIConfig(t *testing.T) {
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.String("work", "", "")
	set.String("break", "", "")
	set.String("auto-break-delay", "", "")
	set.String("session-cmd", "", "")
	set.Bool("no-auto-break", false, "")
	set.Bool("disable-notification", false, "")

	err := set.Parse([]string{
		"--work", "45",
		"--break", "10m",
		"--no-auto-break",
		"--disable-notification",
		"--session-cmd", "notify-send done",
	})
	require.NoError(t, err)

	ctx := cli.NewContext(cli.NewApp(), set, nil)

	cfg, err := config.New(
		config.WithViperConfig(filepath.Join(t.TempDir(), "config.yml")),
		config.WithCLIConfig(ctx),
		config.WithDBPath("/tmp/hyperwork.db"),
	)
	require.NoError(t, err)

	assert.Equal(t, 45*time.Minute, cfg.Timer.WorkDuration)
	assert.Equal(t, 10*time.Minute, cfg.Timer.BreakDuration)
	assert.False(t, cfg.Timer.AutoBreak)
	assert.False(t, cfg.Notifications.Enabled)
	assert.Equal(t, "notify-send done", cfg.Settings.Cmd)
	assert.Equal(t, "/tmp/hyperwork.db", cfg.Database.Path)
}

func TestCLIConfigInvalidDuration(t *testing.T) {
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.String("work", "", "")

	require.NoError(t, set.Parse([]string{"--work", "soon"}))

	ctx := cli.NewContext(cli.NewApp(), set, nil)

	_, err := config.New(
		config.WithViperConfig(filepath.Join(t.TempDir(), "config.yml")),
		config.WithCLIConfig(ctx),
	)
	assert.Error(t, err)
}
