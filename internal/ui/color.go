// Package ui holds the pterm colour and table helpers shared by the console
// commands
package ui

import (
	"github.com/pterm/pterm"

	"github.com/hyperworkchat/hyperwork/internal/models"
)

// DarkTheme switches every colour to its light variant, which is easier to
// read on a dark terminal background.
var DarkTheme bool

type shade struct {
	normal pterm.Color
	light  pterm.Color
}

func (s shade) paint(a any) string {
	if DarkTheme {
		return s.light.Sprint(a)
	}

	return s.normal.Sprint(a)
}

var (
	green     = shade{pterm.FgGreen, pterm.FgLightGreen}
	cyan      = shade{pterm.FgCyan, pterm.FgLightCyan}
	magenta   = shade{pterm.FgMagenta, pterm.FgLightMagenta}
	blue      = shade{pterm.FgBlue, pterm.FgLightBlue}
	red       = shade{pterm.FgRed, pterm.FgLightRed}
	highlight = shade{pterm.FgBlack, pterm.FgLightWhite}
)

func Green(a any) string { return green.paint(a) }

func Cyan(a any) string { return cyan.paint(a) }

func Magenta(a any) string { return magenta.paint(a) }

func Blue(a any) string { return blue.paint(a) }

func Red(a any) string { return red.paint(a) }

func Highlight(a any) string { return highlight.paint(a) }

// PhaseLabel returns the bracketed name of a timer phase in its colour.
func PhaseLabel(p models.Phase) string {
	if p == models.PhaseBreak {
		return Blue("[Break]")
	}

	return Green("[Work]")
}

// SessionStatus describes where a session ended up.
func SessionStatus(s *models.WorkSession) string {
	switch {
	case s.IsCompleted:
		return Green("completed")
	case s.Ended():
		return Red("stopped")
	}

	return Cyan("in progress")
}
