package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dnldd/rebound/shared"
	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

// SchedulerConfig represents the configuration of the backtest scheduler.
type SchedulerConfig struct {
	// Cron is the five field cron expression runs are scheduled with.
	Cron string
	// Location is the time zone the cron expression is evaluated in.
	Location *time.Location
	// RunImmediately runs the job once when the scheduler starts.
	RunImmediately bool
	// Job is the scheduled work.
	Job func(ctx context.Context) error
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *SchedulerConfig) Validate() error {
	var errs error

	if cfg.Cron == "" {
		errs = errors.Join(errs, fmt.Errorf("%w: cron expression cannot be an empty string", shared.ErrConfiguration))
	}
	if cfg.Location == nil {
		errs = errors.Join(errs, fmt.Errorf("%w: location cannot be nil", shared.ErrConfiguration))
	}
	if cfg.Job == nil {
		errs = errors.Join(errs, fmt.Errorf("%w: job cannot be nil", shared.ErrConfiguration))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("%w: logger cannot be nil", shared.ErrConfiguration))
	}

	return errs
}

// Scheduler reruns a backtest on a cron schedule. Runs never overlap.
type Scheduler struct {
	cfg          *SchedulerConfig
	jobScheduler *gocron.Scheduler
	job          *gocron.Job
	ctx          context.Context
}

// NewScheduler initializes a new backtest scheduler.
func NewScheduler(cfg *SchedulerConfig) (*Scheduler, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating scheduler config: %w", err)
	}

	s := &Scheduler{
		cfg:          cfg,
		jobScheduler: gocron.NewScheduler(cfg.Location),
		ctx:          context.Background(),
	}
	s.jobScheduler.SingletonModeAll()

	s.job, err = s.jobScheduler.Cron(cfg.Cron).Do(s.execute)
	if err != nil {
		return nil, fmt.Errorf("%w: scheduling %q: %v", shared.ErrConfiguration, cfg.Cron, err)
	}

	return s, nil
}

// execute runs the scheduled job.
func (s *Scheduler) execute() {
	start := time.Now()
	err := s.cfg.Job(s.ctx)
	if err != nil {
		s.cfg.Logger.Error().Msgf("scheduled backtest failed: %v", err)
		return
	}

	s.cfg.Logger.Info().Msgf("scheduled backtest completed in %s", time.Since(start).Round(time.Millisecond))
}

// NextRun returns the time of the next scheduled run.
func (s *Scheduler) NextRun() time.Time {
	return s.job.NextRun()
}

// Run starts the scheduler and blocks until the provided context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.ctx = ctx
	s.jobScheduler.StartAsync()
	if s.cfg.RunImmediately {
		s.jobScheduler.RunAll()
	}

	s.cfg.Logger.Info().Msgf("backtest scheduled with %q, next run at %s", s.cfg.Cron,
		s.NextRun().Format(shared.DateLayout))

	<-ctx.Done()
	s.jobScheduler.Stop()
}
