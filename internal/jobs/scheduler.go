package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// SessionSweeper deletes expired sessions and reports how many it removed.
type SessionSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

type SweepRecorder interface {
	SessionsSwept(n int64)
}

type Scheduler struct {
	cron     *cron.Cron
	sessions SessionSweeper
	metrics  SweepRecorder
	spec     string
	log      zerolog.Logger
}

// NewScheduler runs the session sweep on spec, a six-field cron expression
// with seconds. metrics may be nil.
func NewScheduler(sessions SessionSweeper, spec string, metrics SweepRecorder, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:     c,
		sessions: sessions,
		metrics:  metrics,
		spec:     spec,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if s.spec == "" {
		return nil
	}

	if _, err := s.cron.AddFunc(s.spec, s.sweepSessions); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) sweepSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := s.sessions.SweepExpired(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("sweep expired sessions failed")
		return
	}
	if s.metrics != nil {
		s.metrics.SessionsSwept(n)
	}
	if n > 0 {
		s.log.Info().Int64("removed", n).Msg("expired sessions swept")
	}
}
