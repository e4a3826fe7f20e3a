package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, so that
// database.dsn is read from HYPERWORK_DATABASE_DSN.
const EnvPrefix = "HYPERWORK"

// viperKeys defines the mapping between config keys and their Viper counterparts.
const (
	keyEnvironment          = "environment"
	keyWorkDuration         = "timer.work_duration"
	keyBreakDuration        = "timer.break_duration"
	keyAutoBreak            = "timer.auto_break"
	keyAutoBreakDelay       = "timer.auto_break_delay"
	keyFullPoints           = "scoring.full_points"
	keyPausedPoints         = "scoring.paused_points"
	keyDatabaseDriver       = "database.driver"
	keyDatabasePath         = "database.path"
	keyDatabaseDSN          = "database.dsn"
	keyDatabaseMaxConns     = "database.max_conns"
	keyDatabaseMinConns     = "database.min_conns"
	keyDatabaseConnLifetime = "database.conn_max_lifetime"
	keyRealtimeDriver       = "realtime.driver"
	keyRedisAddr            = "redis.addr"
	keyRedisPassword        = "redis.password"
	keyRedisDB              = "redis.db"
	keyJWTSecret            = "auth.jwt_secret"
	keyIssuer               = "auth.issuer"
	keyTokenTTL             = "auth.token_ttl"
	keyServerAddr           = "server.addr"
	keyAllowOrigins         = "server.allow_origins"
	keyReadTimeout          = "server.read_timeout"
	keyWriteTimeout         = "server.write_timeout"
	keyIdleTimeout          = "server.idle_timeout"
	keySweepSchedule        = "jobs.sweep_schedule"
	keyStaleAfter           = "jobs.stale_after"
	keyNotificationsEnabled = "notifications.enabled"
	keySessionCmd           = "settings.cmd"
	keyLeaderboardSize      = "settings.leaderboard_size"
	keyChatHistory          = "settings.chat_history"
	keyWorkColor            = "display.work_color"
	keyBreakColor           = "display.break_color"
	keyDarkTheme            = "display.dark_theme"
	keyTwentyFourHour       = "display.24hr_clock"
)

// WithEnvFile returns an Option that loads environment variables from a
// dotenv file. A missing file is not an error.
func WithEnvFile(path string) Option {
	return func(_ *Config) error {
		err := godotenv.Load(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return errLoadEnvFile.Fmt(path).Wrap(err)
		}

		return nil
	}
}

// WithViperConfig returns an Option that loads configuration from Viper.
// The file is created with default values if it does not exist. Environment
// variables take precedence over the file.
func WithViperConfig(configPath string) Option {
	return func(c *Config) error {
		v := viper.New()

		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")

		setupViper(v, c)

		err := v.ReadInConfig()
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return errReadConfig.Wrap(err)
			}

			if err := v.WriteConfig(); err != nil {
				return errWriteConfig.Wrap(err)
			}
		}

		// env overrides are bound after the file is written so that secrets
		// passed through the environment never end up on disk
		v.SetEnvPrefix(EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()

		return loadViperConfig(v, c)
	}
}

// setupViper configures Viper with defaults and prompt values.
func setupViper(v *viper.Viper, c *Config) {
	v.SetDefault(keyEnvironment, EnvDevelopment)

	v.SetDefault(keyWorkDuration, "20m")
	v.SetDefault(keyBreakDuration, "5m")
	v.SetDefault(keyAutoBreak, true)
	v.SetDefault(keyAutoBreakDelay, "2s")

	v.SetDefault(keyFullPoints, 100)
	v.SetDefault(keyPausedPoints, 50)

	v.SetDefault(keyDatabaseDriver, DriverBolt)
	v.SetDefault(keyDatabasePath, "")
	v.SetDefault(keyDatabaseDSN, "")
	v.SetDefault(keyDatabaseMaxConns, 10)
	v.SetDefault(keyDatabaseMinConns, 0)
	v.SetDefault(keyDatabaseConnLifetime, "30m")

	v.SetDefault(keyRealtimeDriver, DriverMemory)
	v.SetDefault(keyRedisAddr, "127.0.0.1:6379")
	v.SetDefault(keyRedisPassword, "")
	v.SetDefault(keyRedisDB, 0)

	v.SetDefault(keyJWTSecret, generateSecret())
	v.SetDefault(keyIssuer, "hyperwork")
	v.SetDefault(keyTokenTTL, "720h")

	v.SetDefault(keyServerAddr, ":8080")
	v.SetDefault(keyAllowOrigins, []string{"*"})
	v.SetDefault(keyReadTimeout, "10s")
	v.SetDefault(keyWriteTimeout, "15s")
	v.SetDefault(keyIdleTimeout, "60s")

	v.SetDefault(keySweepSchedule, "0 */10 * * * *")
	v.SetDefault(keyStaleAfter, "3h")

	v.SetDefault(keyNotificationsEnabled, true)
	v.SetDefault(keySessionCmd, "")
	v.SetDefault(keyLeaderboardSize, 50)
	v.SetDefault(keyChatHistory, 50)

	v.SetDefault(keyWorkColor, "#B0DB43")
	v.SetDefault(keyBreakColor, "#12EAEA")
	v.SetDefault(keyDarkTheme, true)
	v.SetDefault(keyTwentyFourHour, false)

	if p := c.prompted; p != nil {
		v.SetDefault(keyWorkDuration, p.WorkDuration.String())
		v.SetDefault(keyBreakDuration, p.BreakDuration.String())
		v.SetDefault(keyAutoBreak, p.AutoBreak)
	}
}

// loadViperConfig loads configuration from Viper into the Config struct.
func loadViperConfig(v *viper.Viper, c *Config) error {
	err := v.Unmarshal(c, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	})
	if err != nil {
		return errDecodeConfig.Wrap(err)
	}

	return nil
}

// generateSecret returns a random signing key for installs that have not
// set one.
func generateSecret() string {
	b := make([]byte, 32)

	_, _ = rand.Read(b)

	return hex.EncodeToString(b)
}
