package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
)

const asciiLogo = `
 _   _                        __        __         _
| | | |_   _ _ __   ___ _ __  \ \      / /__  _ __| | __
| |_| | | | | '_ \ / _ \ '__|  \ \ /\ / / _ \| '__| |/ /
|  _  | |_| | |_) |  __/ |      \ V  V / (_) | |  |   <
|_| |_|\__, | .__/ \___|_|       \_/\_/ \___/|_|  |_|\_\
       |___/|_|`

// PromptOptions holds the user's responses to the configuration prompts.
type PromptOptions struct {
	WorkDuration  time.Duration
	BreakDuration time.Duration
	AutoBreak     bool
}

// WithPromptConfig returns an Option that configures settings via
// interactive prompts. It only prompts when the config file does not exist
// yet, and must come before WithViperConfig.
func WithPromptConfig(configPath string) Option {
	return func(c *Config) error {
		_, err := os.Stat(configPath)
		if err == nil || !errors.Is(err, os.ErrNotExist) {
			return err
		}

		opts, err := promptUser()
		if err != nil {
			return fmt.Errorf("user prompt failed: %w", err)
		}

		c.prompted = &opts

		return nil
	}
}

// promptUser handles the interactive configuration process.
func promptUser() (PromptOptions, error) {
	opts := PromptOptions{AutoBreak: true}

	pterm.Println(asciiLogo)

	_ = putils.BulletListFromString(`Follow the prompts below to configure HyperWork for the first time.
Select your preferred value, or press ENTER to accept the defaults.
Edit the config file with 'hyperwork edit-config' to change any settings.`, " ").
		Render()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[time.Duration]().
				Title("Work session length").
				Options(
					huh.NewOption("20 minutes", 20*time.Minute).Selected(true),
					huh.NewOption("25 minutes", 25*time.Minute),
					huh.NewOption("30 minutes", 30*time.Minute),
					huh.NewOption("45 minutes", 45*time.Minute),
					huh.NewOption("60 minutes", 60*time.Minute),
				).
				Value(&opts.WorkDuration),
		),
		huh.NewGroup(
			huh.NewSelect[time.Duration]().
				Title("Break length").
				Options(
					huh.NewOption("5 minutes", 5*time.Minute).Selected(true),
					huh.NewOption("10 minutes", 10*time.Minute),
					huh.NewOption("15 minutes", 15*time.Minute),
				).
				Value(&opts.BreakDuration),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Start the break automatically after a work session?").
				Value(&opts.AutoBreak),
		),
	)

	err := form.Run()
	if err != nil {
		return opts, fmt.Errorf("form interaction failed: %w", err)
	}

	return opts, nil
}
