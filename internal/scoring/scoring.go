// Package scoring maps the outcome of a session to the points it earns
package scoring

import "github.com/hyperworkchat/hyperwork/internal/models"

const (
	FullPoints   = 100
	PausedPoints = 50
)

// Policy holds the point values awarded for completed work sessions.
type Policy struct {
	// Full is awarded when the session was never paused
	Full int `mapstructure:"full_points"`
	// Paused is awarded when the session was paused at least once
	Paused int `mapstructure:"paused_points"`
}

// Default is the policy used when no overrides are configured.
var Default = Policy{
	Full:   FullPoints,
	Paused: PausedPoints,
}

// Score returns the points earned by a session. Only completed work sessions
// earn points; a manual stop forfeits them regardless of pause history.
func (p Policy) Score(phase models.Phase, wasPaused, isCompleted bool) int {
	if phase != models.PhaseWork || !isCompleted {
		return 0
	}

	if wasPaused {
		return p.Paused
	}

	return p.Full
}

// Score scores a session with the default policy.
func Score(phase models.Phase, wasPaused, isCompleted bool) int {
	return Default.Score(phase, wasPaused, isCompleted)
}
