package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hyperworkchat/hyperwork/internal/scoring"
)

type (
	// Config holds all configuration settings
	Config struct {
		Environment   string             `mapstructure:"environment"`
		Timer         TimerConfig        `mapstructure:"timer"`
		Scoring       scoring.Policy     `mapstructure:"scoring"`
		Database      DatabaseConfig     `mapstructure:"database"`
		Realtime      RealtimeConfig     `mapstructure:"realtime"`
		Redis         RedisConfig        `mapstructure:"redis"`
		Auth          AuthConfig         `mapstructure:"auth"`
		Server        ServerConfig       `mapstructure:"server"`
		Jobs          JobsConfig         `mapstructure:"jobs"`
		Notifications NotificationConfig `mapstructure:"notifications"`
		Settings      SettingsConfig     `mapstructure:"settings"`
		Display       DisplayConfig      `mapstructure:"display"`

		prompted *PromptOptions
	}

	// TimerConfig holds session lengths and break chaining settings
	TimerConfig struct {
		WorkDuration   time.Duration `mapstructure:"work_duration"`
		BreakDuration  time.Duration `mapstructure:"break_duration"`
		AutoBreakDelay time.Duration `mapstructure:"auto_break_delay"`
		AutoBreak      bool          `mapstructure:"auto_break"`
	}

	// DatabaseConfig selects and configures the storage driver
	DatabaseConfig struct {
		Driver          string        `mapstructure:"driver"`
		Path            string        `mapstructure:"path"`
		DSN             string        `mapstructure:"dsn"`
		MaxConns        int           `mapstructure:"max_conns"`
		MinConns        int           `mapstructure:"min_conns"`
		ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	}

	// RealtimeConfig selects the change notification broker
	RealtimeConfig struct {
		Driver string `mapstructure:"driver"`
	}

	RedisConfig struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	}

	// AuthConfig holds token signing settings
	AuthConfig struct {
		JWTSecret string        `mapstructure:"jwt_secret"`
		Issuer    string        `mapstructure:"issuer"`
		TokenTTL  time.Duration `mapstructure:"token_ttl"`
	}

	// ServerConfig holds HTTP API settings
	ServerConfig struct {
		Addr         string        `mapstructure:"addr"`
		AllowOrigins []string      `mapstructure:"allow_origins"`
		ReadTimeout  time.Duration `mapstructure:"read_timeout"`
		WriteTimeout time.Duration `mapstructure:"write_timeout"`
		IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	}

	// JobsConfig holds background job settings
	JobsConfig struct {
		SweepSchedule string        `mapstructure:"sweep_schedule"`
		StaleAfter    time.Duration `mapstructure:"stale_after"`
	}

	// NotificationConfig holds notification settings
	NotificationConfig struct {
		Enabled bool `mapstructure:"enabled"`
	}

	// SettingsConfig holds miscellaneous client settings
	SettingsConfig struct {
		Cmd             string `mapstructure:"cmd"`
		LeaderboardSize int    `mapstructure:"leaderboard_size"`
		ChatHistory     int    `mapstructure:"chat_history"`
	}

	// DisplayConfig holds display-related settings
	DisplayConfig struct {
		WorkColor      string `mapstructure:"work_color"`
		BreakColor     string `mapstructure:"break_color"`
		DarkTheme      bool   `mapstructure:"dark_theme"`
		TwentyFourHour bool   `mapstructure:"24hr_clock"`
	}

	// Option is a function that modifies Config
	Option func(*Config) error
)

const Version = "v0.3.0"

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const (
	DriverBolt     = "bolt"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
	DriverRedis    = "redis"
)

var (
	Stdin  io.Reader = os.Stdin
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

// IsProduction reports whether the configured environment is production.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// New creates a new Config with default values and applies options
func New(opts ...Option) (*Config, error) {
	cfg := &Config{}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, errConfigOption.Wrap(err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, errConfigValidation.Wrap(err)
	}

	return cfg, nil
}

func (t TimerConfig) String() string {
	return fmt.Sprintf(
		"work=%s break=%s auto_break=%t delay=%s",
		t.WorkDuration,
		t.BreakDuration,
		t.AutoBreak,
		t.AutoBreakDelay,
	)
}
