package config

import (
	"regexp"
	"time"
)

var (
	// Minimum and maximum duration constraints.
	minSessionDuration = 1 * time.Second
	maxSessionDuration = 720 * time.Minute // 12 hours

	maxAutoBreakDelay = 1 * time.Minute

	minSecretLength = 16

	// Color format validation.
	hexColorRegex = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
)

// Validate performs validation checks on the Config struct and its fields.
func (c *Config) Validate() error {
	if err := c.validateTimer(); err != nil {
		return err
	}

	if c.Scoring.Paused < 0 || c.Scoring.Paused > c.Scoring.Full {
		return errInvalidPoints.Fmt(c.Scoring.Paused, c.Scoring.Full)
	}

	if err := c.validateDrivers(); err != nil {
		return err
	}

	if len(c.Auth.JWTSecret) < minSecretLength {
		return errMissingSecret.Fmt(minSecretLength)
	}

	if c.Auth.TokenTTL <= 0 {
		return errInvalidTTL
	}

	if c.Jobs.StaleAfter <= c.Timer.WorkDuration {
		return errInvalidStaleAfter.Fmt(c.Jobs.StaleAfter, c.Timer.WorkDuration)
	}

	if !hexColorRegex.MatchString(c.Display.WorkColor) {
		return errInvalidColor.Fmt("work", c.Display.WorkColor)
	}

	if !hexColorRegex.MatchString(c.Display.BreakColor) {
		return errInvalidColor.Fmt("break", c.Display.BreakColor)
	}

	return nil
}

func (c *Config) validateTimer() error {
	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"work", c.Timer.WorkDuration},
		{"break", c.Timer.BreakDuration},
	} {
		if d.value < minSessionDuration || d.value > maxSessionDuration {
			return errInvalidDuration.Fmt(
				d.name,
				minSessionDuration,
				maxSessionDuration,
			)
		}
	}

	if c.Timer.BreakDuration >= c.Timer.WorkDuration {
		return errBreakTooLong.Fmt(c.Timer.BreakDuration, c.Timer.WorkDuration)
	}

	if c.Timer.AutoBreakDelay < 0 || c.Timer.AutoBreakDelay > maxAutoBreakDelay {
		return errInvalidDelay.Fmt(maxAutoBreakDelay)
	}

	return nil
}

func (c *Config) validateDrivers() error {
	switch c.Database.Driver {
	case DriverBolt:
	case DriverPostgres:
		if c.Database.DSN == "" {
			return errMissingDSN
		}
	default:
		return errUnknownDriver.Fmt("database", c.Database.Driver)
	}

	switch c.Realtime.Driver {
	case DriverMemory:
	case DriverRedis:
		if c.Redis.Addr == "" {
			return errMissingRedisAddr
		}
	default:
		return errUnknownDriver.Fmt("realtime", c.Realtime.Driver)
	}

	return nil
}
