package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/dnldd/rebound/database"
	"github.com/dnldd/rebound/saver"
	"github.com/dnldd/rebound/service"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

// run wires the backtest service from the provided config and runs it once, or on
// schedule when one is configured.
func run(ctx context.Context, cfg *Config) error {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	if cfg.LogLevel != "" {
		level, err := zerolog.ParseLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		zerolog.SetGlobalLevel(level)
	}

	logger := log.With().Str("service", "rebound").Logger()

	strategy, err := service.LoadStrategyConfig(cfg.StrategyFilepath, cfg.Market)
	if err != nil {
		return fmt.Errorf("loading strategy config: %w", err)
	}

	mode, err := service.ParseRunMode(cfg.Mode)
	if err != nil {
		return err
	}

	tps, err := cfg.sweepTakeProfits()
	if err != nil {
		return err
	}

	var ledger saver.LedgerSaver
	if cfg.OutputDir != "" {
		ledger, err = saver.NewLedgerSaver(cfg.Format)
		if err != nil {
			return err
		}
	}

	var store database.RunStorer
	if cfg.DBEndpoint != "" {
		dbLogger := logger.With().Str("component", "database").Logger()
		store, err = database.NewDatabase(ctx, &database.DatabaseConfig{
			Endpoint: cfg.DBEndpoint,
			User:     cfg.DBUser,
			Pass:     cfg.DBPass,
			Logger:   &dbLogger,
		})
		if err != nil {
			return fmt.Errorf("creating database: %w", err)
		}
	}

	backtestLogger := logger.With().Str("component", "backtest").Logger()
	backtest, err := service.NewBacktest(&service.BacktestConfig{
		Strategy:         strategy.Strategy,
		Session:          strategy.Session,
		Mode:             mode,
		BarsPath:         cfg.BarsFilepath,
		TicksPath:        cfg.TicksFilepath,
		OutputDir:        cfg.OutputDir,
		Saver:            ledger,
		SweepTakeProfits: tps,
		SweepConcurrency: cfg.SweepWorkers,
		Store:            store,
		Logger:           &backtestLogger,
	})
	if err != nil {
		return fmt.Errorf("creating backtest service: %w", err)
	}

	if cfg.Schedule == "" {
		_, err := backtest.Run(ctx)
		return err
	}

	schedulerLogger := logger.With().Str("component", "scheduler").Logger()
	scheduler, err := service.NewScheduler(&service.SchedulerConfig{
		Cron:           cfg.Schedule,
		Location:       strategy.Session.Location,
		RunImmediately: true,
		Job: func(ctx context.Context) error {
			_, err := backtest.Run(ctx)
			return err
		},
		Logger: &schedulerLogger,
	})
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}

	scheduler.Run(ctx)

	return nil
}

func main() {
	var cfg Config
	err := loadConfig(&cfg, "")
	if err != nil {
		log.Error().Msgf("loading config: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go handleTermination(ctx, cancel)

	err = run(ctx, &cfg)
	if err != nil {
		log.Error().Msgf("running backtest: %v", err)
		cancel()
		os.Exit(1)
	}
}
