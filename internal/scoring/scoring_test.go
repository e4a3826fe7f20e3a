package scoring

import (
	"testing"

	"github.com/hyperworkchat/hyperwork/internal/models"
)

func TestScore(t *testing.T) {
	cases := []struct {
		name      string
		phase     models.Phase
		wasPaused bool
		completed bool
		want      int
	}{
		{"completed work without pause", models.PhaseWork, false, true, 100},
		{"completed work with pause", models.PhaseWork, true, true, 50},
		{"stopped work without pause", models.PhaseWork, false, false, 0},
		{"stopped work with pause", models.PhaseWork, true, false, 0},
		{"completed break", models.PhaseBreak, false, true, 0},
		{"completed paused break", models.PhaseBreak, true, true, 0},
		{"stopped break", models.PhaseBreak, false, false, 0},
		{"unknown phase", models.Phase("nap"), false, true, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Score(tc.phase, tc.wasPaused, tc.completed)
			if got != tc.want {
				t.Errorf("expected %d points, but got: %d", tc.want, got)
			}
		})
	}
}

func TestCustomPolicy(t *testing.T) {
	p := Policy{Full: 30, Paused: 10}

	if got := p.Score(models.PhaseWork, false, true); got != 30 {
		t.Errorf("expected 30 points, but got: %d", got)
	}

	if got := p.Score(models.PhaseWork, true, true); got != 10 {
		t.Errorf("expected 10 points, but got: %d", got)
	}

	if got := p.Score(models.PhaseWork, true, false); got != 0 {
		t.Errorf("expected 0 points for a stopped session, but got: %d", got)
	}
}

// Points are only ever awarded to completed sessions.
func TestPointsImplyCompletion(t *testing.T) {
	for _, phase := range []models.Phase{models.PhaseWork, models.PhaseBreak} {
		for _, paused := range []bool{true, false} {
			if got := Score(phase, paused, false); got != 0 {
				t.Errorf("%s (paused=%v): incomplete session scored %d", phase, paused, got)
			}
		}
	}
}
