// Package stats summarises a user's work history
package stats

import (
	"slices"
	"time"

	"github.com/hyperworkchat/hyperwork/internal/models"
	"github.com/hyperworkchat/hyperwork/internal/timeutil"
)

const (
	// recentWindow is the number of most recent sessions that the current
	// streak is counted over
	recentWindow = 10
	seriesDays   = 7
)

// Day aggregates the work sessions started on one calendar day.
type Day struct {
	Date     time.Time     `json:"date"`
	Time     time.Duration `json:"time"`
	Points   int           `json:"points"`
	Sessions int           `json:"sessions"`
}

// Stats is a summary of a set of work sessions.
type Stats struct {
	Daily             []Day         `json:"daily"`
	TotalTime         time.Duration `json:"total_time"`
	AverageCompleted  time.Duration `json:"average_completed"`
	CompletionRate    float64       `json:"completion_rate"`
	TotalSessions     int           `json:"total_sessions"`
	CompletedSessions int           `json:"completed_sessions"`
	TotalPoints       int           `json:"total_points"`
	BestStreak        int           `json:"best_streak"`
	CurrentStreak     int           `json:"current_streak"`
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// Compute summarises the work sessions in sessions. Break sessions are
// ignored. The daily series covers the seven days ending on now's day, oldest
// first, in now's location.
func Compute(sessions []models.WorkSession, now time.Time) Stats {
	work := make([]models.WorkSession, 0, len(sessions))

	for i := range sessions {
		if sessions[i].Phase == models.PhaseWork {
			work = append(work, sessions[i])
		}
	}

	slices.SortStableFunc(work, func(a, b models.WorkSession) int {
		return a.StartTime.Compare(b.StartTime)
	})

	var (
		s             Stats
		completedTime time.Duration
		streak        int
	)

	s.TotalSessions = len(work)

	for i := range work {
		sess := &work[i]

		s.TotalTime += seconds(sess.ActualDuration)
		s.TotalPoints += sess.PointsEarned

		if sess.IsCompleted {
			s.CompletedSessions++
			completedTime += seconds(sess.ActualDuration)

			streak++
			s.BestStreak = max(s.BestStreak, streak)
		} else {
			streak = 0
		}
	}

	if s.CompletedSessions > 0 {
		s.AverageCompleted = completedTime / time.Duration(s.CompletedSessions)
	}

	if s.TotalSessions > 0 {
		s.CompletionRate = float64(s.CompletedSessions) / float64(s.TotalSessions) * 100
	}

	recent := work[max(0, len(work)-recentWindow):]

	for i := len(recent) - 1; i >= 0; i-- {
		if !recent[i].IsCompleted {
			break
		}

		s.CurrentStreak++
	}

	s.Daily = dailySeries(work, now)

	return s
}

func dailySeries(work []models.WorkSession, now time.Time) []Day {
	today := timeutil.RoundToStart(now)
	first := today.AddDate(0, 0, -(seriesDays - 1))

	days := make([]Day, seriesDays)
	for i := range days {
		days[i].Date = first.AddDate(0, 0, i)
	}

	for i := range work {
		sess := &work[i]

		start := timeutil.RoundToStart(sess.StartTime.In(now.Location()))
		if start.Before(first) || start.After(today) {
			continue
		}

		for j := range days {
			if days[j].Date.Equal(start) {
				days[j].Time += seconds(sess.ActualDuration)
				days[j].Points += sess.PointsEarned
				days[j].Sessions++

				break
			}
		}
	}

	return days
}
