package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dnldd/rebound/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog/log"
)

func TestSchedulerConfig(t *testing.T) {
	job := func(context.Context) error { return nil }

	// Ensure invalid scheduler configurations are rejected.
	_, err := NewScheduler(&SchedulerConfig{Location: time.UTC, Job: job, Logger: &log.Logger})
	assert.True(t, errors.Is(err, shared.ErrConfiguration))

	_, err = NewScheduler(&SchedulerConfig{Cron: "not a cron", Location: time.UTC, Job: job, Logger: &log.Logger})
	assert.True(t, errors.Is(err, shared.ErrConfiguration))

	s, err := NewScheduler(&SchedulerConfig{Cron: "30 17 * * 1-5", Location: time.UTC, Job: job, Logger: &log.Logger})
	assert.NoError(t, err)
	assert.True(t, s.NextRun().IsZero() || s.NextRun().After(time.Now()))
}

func TestSchedulerRun(t *testing.T) {
	ran := make(chan struct{}, 1)
	s, err := NewScheduler(&SchedulerConfig{
		Cron:           "0 0 1 1 *",
		Location:       time.UTC,
		RunImmediately: true,
		Job: func(ctx context.Context) error {
			select {
			case ran <- struct{}{}:
			default:
			}
			return nil
		},
		Logger: &log.Logger,
	})
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	// Ensure the job runs on start and the scheduler stops with its context.
	select {
	case <-ran:
	case <-time.After(time.Second * 5):
		t.Fatal("expected the scheduled job to run")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second * 5):
		t.Fatal("expected the scheduler to stop")
	}
}
