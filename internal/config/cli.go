package config

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
)

// CLIOptions represents command-line configuration options.
type CLIOptions struct {
	Work           string
	Break          string
	AutoBreakDelay string
	SessionCmd     string
	NoAutoBreak    bool
	DisableNotify  bool
}

// WithCLIConfig returns an Option that loads configuration from CLI flags.
func WithCLIConfig(ctx *cli.Context) Option {
	return func(c *Config) error {
		opts := CLIOptions{
			Work:           ctx.String("work"),
			Break:          ctx.String("break"),
			AutoBreakDelay: ctx.String("auto-break-delay"),
			SessionCmd:     ctx.String("session-cmd"),
			NoAutoBreak:    ctx.Bool("no-auto-break"),
			DisableNotify:  ctx.Bool("disable-notification"),
		}

		return applyCLIOptions(c, opts)
	}
}

// WithDBPath sets the bolt database path unless the config file names one.
func WithDBPath(path string) Option {
	return func(c *Config) error {
		if c.Database.Path == "" {
			c.Database.Path = path
		}

		return nil
	}
}

// applyCLIOptions applies CLI options to the config.
func applyCLIOptions(c *Config, opts CLIOptions) error {
	if err := applyCLIDurations(c, opts); err != nil {
		return fmt.Errorf("applying CLI durations: %w", err)
	}

	if opts.NoAutoBreak {
		c.Timer.AutoBreak = false
	}

	if opts.DisableNotify {
		c.Notifications.Enabled = false
	}

	if opts.SessionCmd != "" {
		c.Settings.Cmd = opts.SessionCmd
	}

	return nil
}

// applyCLIDurations handles parsing and applying duration settings from CLI.
func applyCLIDurations(c *Config, opts CLIOptions) error {
	durations := []struct {
		dst   *time.Duration
		name  string
		value string
	}{
		{&c.Timer.WorkDuration, "work", opts.Work},
		{&c.Timer.BreakDuration, "break", opts.Break},
		{&c.Timer.AutoBreakDelay, "auto break delay", opts.AutoBreakDelay},
	}

	for _, d := range durations {
		if d.value == "" {
			continue
		}

		dur, err := parseDuration(d.value)
		if err != nil {
			return errInvalidCLIDuration.Fmt(d.name, err)
		}

		*d.dst = dur
	}

	return nil
}

// parseDuration accepts Go duration strings and bare numbers, which are
// treated as minutes.
func parseDuration(s string) (time.Duration, error) {
	dur, err := time.ParseDuration(s)
	if err == nil {
		return dur, nil
	}

	mins, err := time.ParseDuration(s + "m")
	if err != nil {
		return 0, fmt.Errorf("invalid duration format: %s", s)
	}

	return mins, nil
}
