package service

import (
	"context"
	"fmt"

	"github.com/dnldd/rebound/engine"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

// sweepStrategy returns a copy of the provided strategy trading the provided take profit
// on both sides.
func sweepStrategy(strategy *engine.Config, takeProfit float64) *engine.Config {
	cfg := *strategy
	cfg.Long.TakeProfitPoints = takeProfit
	cfg.Short.TakeProfitPoints = takeProfit

	return &cfg
}

// sweep runs the strategy once per configured take profit in parallel. Runs resolve
// fills with ticks when ticks are loaded and with bars otherwise.
func (b *Backtest) sweep(ctx context.Context, data *marketData) ([]*RunResult, error) {
	fidelity := engine.BarFidelity
	if data.ticks != nil {
		fidelity = engine.TickFidelity
	}

	limit := b.cfg.SweepConcurrency
	if limit == 0 {
		limit = 1
	}

	tps := b.cfg.SweepTakeProfits
	runs := make([]*RunResult, len(tps))
	completed := atomic.NewInt32(0)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for idx, tp := range tps {
		g.Go(func() error {
			strategy := sweepStrategy(b.cfg.Strategy, tp)
			res, err := b.simulate(gctx, strategy, fidelity, data)
			if err != nil {
				return fmt.Errorf("simulating take profit %g: %w", tp, err)
			}

			run, err := b.finish(gctx, strategy, res, "")
			if err != nil {
				return fmt.Errorf("finishing take profit %g: %w", tp, err)
			}
			runs[idx] = run

			done := completed.Inc()
			b.logger.Info().Msgf("sweep progress: %d/%d runs complete", done, len(tps))

			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		return nil, err
	}

	sortRuns(runs)

	return runs, nil
}
