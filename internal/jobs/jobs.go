// Package jobs runs the API server's background jobs
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/hyperworkchat/hyperwork/internal/config"
	"github.com/hyperworkchat/hyperwork/internal/models"
)

const sweepTimeout = time.Minute

// Store is the persistence used by the jobs.
type Store interface {
	ListOpenSessions(ctx context.Context, startedBefore time.Time) ([]models.WorkSession, error)
	UpdateSession(ctx context.Context, id string, upd models.SessionUpdate) error
}

// Scheduler runs jobs on cron schedules (with a seconds field).
type Scheduler struct {
	cron *cron.Cron
	db   Store
	now  func() time.Time
	log  zerolog.Logger
	cfg  config.JobsConfig
}

func NewScheduler(db Store, cfg config.JobsConfig, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		db:   db,
		cfg:  cfg,
		log:  log,
		now:  time.Now,
	}
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.cfg.SweepSchedule, s.runSweep)
	if err != nil {
		return err
	}

	s.cron.Start()

	s.log.Info().
		Str("schedule", s.cfg.SweepSchedule).
		Dur("stale_after", s.cfg.StaleAfter).
		Msg("job scheduler started")

	return nil
}

// Stop stops the scheduler and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()

	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn().Msg("jobs still running at shutdown")
	}
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	n, err := s.SweepStaleSessions(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("stale session sweep failed")
		return
	}

	if n > 0 {
		s.log.Info().Int("closed", n).Msg("stale sessions closed")
	}
}

// SweepStaleSessions closes sessions that were started more than StaleAfter
// ago and never ended, as a client crash would leave them. They are recorded
// as stopped with no points. It returns the number of sessions closed.
func (s *Scheduler) SweepStaleSessions(ctx context.Context) (int, error) {
	now := s.now()

	open, err := s.db.ListOpenSessions(ctx, now.Add(-s.cfg.StaleAfter))
	if err != nil {
		return 0, err
	}

	var closed int

	for i := range open {
		sess := &open[i]

		elapsed := int(now.Sub(sess.StartTime) / time.Second)
		actual := min(sess.PlannedDuration, elapsed)
		zero := 0
		completed := false

		err := s.db.UpdateSession(ctx, sess.ID, models.SessionUpdate{
			EndTime:        &now,
			ActualDuration: &actual,
			PointsEarned:   &zero,
			IsCompleted:    &completed,
		})
		if err != nil {
			s.log.Warn().
				Err(err).
				Str("session_id", sess.ID).
				Msg("closing stale session failed")

			continue
		}

		closed++
	}

	return closed, nil
}
