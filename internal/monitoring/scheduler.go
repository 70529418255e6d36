package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/isdelr/bizops-api/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scheduler runs the maintenance jobs on a cron schedule.
type Scheduler struct {
	maintenanceSvc services.MaintenanceServiceProvider
	schedule       cron.Schedule
	retention      time.Duration
	interval       time.Duration
	now            func() time.Time
	nextRun        time.Time
	ticker         *time.Ticker
	done           chan bool
}

// NewScheduler creates a new scheduler from a standard five field cron spec.
// Soft deleted rows older than retention are purged on every run; a zero
// retention disables purging.
func NewScheduler(maintenanceSvc services.MaintenanceServiceProvider, spec string, retention time.Duration) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid maintenance schedule %q: %w", spec, err)
	}
	return &Scheduler{
		maintenanceSvc: maintenanceSvc,
		schedule:       schedule,
		retention:      retention,
		interval:       time.Minute,
		now:            time.Now,
		done:           make(chan bool),
	}, nil
}

// Run starts the scheduler's ticking loop.
func (s *Scheduler) Run() {
	log.Info().Msg("Starting maintenance scheduler...")
	s.ticker = time.NewTicker(s.interval)
	defer s.ticker.Stop()

	s.nextRun = s.schedule.Next(s.now())
	log.Info().Time("next_run", s.nextRun).Msg("Maintenance scheduled")

	for {
		select {
		case <-s.done:
			log.Info().Msg("Stopping maintenance scheduler.")
			return
		case <-s.ticker.C:
			s.tick(context.Background())
		}
	}
}

// Stop halts the scheduler.
func (s *Scheduler) Stop() {
	s.done <- true
}

// tick runs the jobs when the next run time has passed.
func (s *Scheduler) tick(ctx context.Context) bool {
	now := s.now()
	if now.Before(s.nextRun) {
		return false
	}
	s.nextRun = s.schedule.Next(now)
	s.RunOnce(ctx, now)
	return true
}

// RunOnce executes every maintenance job once.
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) {
	if n, err := s.maintenanceSvc.ExpireEstimates(ctx, now); err != nil {
		log.Error().Err(err).Msg("Scheduler: Failed to expire estimates")
	} else {
		log.Debug().Int64("estimates", n).Msg("Scheduler: Estimate expiry done")
	}

	if s.retention <= 0 {
		return
	}
	if n, err := s.maintenanceSvc.PurgeTrashed(ctx, now.Add(-s.retention)); err != nil {
		log.Error().Err(err).Msg("Scheduler: Failed to purge soft deleted records")
	} else {
		log.Debug().Int64("rows", n).Msg("Scheduler: Purge done")
	}
}
