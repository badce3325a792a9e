package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/dnldd/rebound/database"
	"github.com/dnldd/rebound/engine"
	"github.com/dnldd/rebound/fetch"
	"github.com/dnldd/rebound/report"
	"github.com/dnldd/rebound/saver"
	"github.com/dnldd/rebound/session"
	"github.com/dnldd/rebound/shared"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// reconciliationTolerance is the largest accepted difference between the per exit reason
// point totals and the overall total.
const reconciliationTolerance = 1e-6

// RunMode represents the kind of backtest to run.
type RunMode int

const (
	BarMode RunMode = iota
	TickMode
	CompareMode
	SweepMode
)

// String stringifies the provided run mode.
func (m RunMode) String() string {
	switch m {
	case BarMode:
		return "bar"
	case TickMode:
		return "tick"
	case CompareMode:
		return "compare"
	case SweepMode:
		return "sweep"
	default:
		return "unknown"
	}
}

// ParseRunMode parses the provided run mode string.
func ParseRunMode(s string) (RunMode, error) {
	for _, mode := range []RunMode{BarMode, TickMode, CompareMode, SweepMode} {
		if strings.EqualFold(strings.TrimSpace(s), mode.String()) {
			return mode, nil
		}
	}

	return 0, fmt.Errorf("%w: invalid run mode %q, expected bar, tick, compare or sweep",
		shared.ErrConfiguration, s)
}

// BacktestConfig represents the configuration of the backtest service.
type BacktestConfig struct {
	// Strategy is the strategy configuration.
	Strategy *engine.Config
	// Session is the trading session configuration.
	Session *session.Config
	// Mode is the kind of backtest to run.
	Mode RunMode
	// BarsPath is the csv or json bar file. When empty bars are built from the ticks.
	BarsPath string
	// TicksPath is the csv tick file, required by tick and compare runs.
	TicksPath string
	// OutputDir is the directory results are written to. Empty disables file output.
	OutputDir string
	// Saver writes trade ledgers and equity curves, required with an output directory.
	Saver saver.LedgerSaver
	// SweepTakeProfits lists the take profit distances of a sweep.
	SweepTakeProfits []float64
	// SweepConcurrency bounds the parallel runs of a sweep, defaults to one.
	SweepConcurrency int
	// Store optionally persists completed runs.
	Store database.RunStorer
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *BacktestConfig) Validate() error {
	var errs error

	if cfg.Strategy == nil {
		errs = errors.Join(errs, fmt.Errorf("%w: strategy config cannot be nil", shared.ErrConfiguration))
	}
	if cfg.Session == nil {
		errs = errors.Join(errs, fmt.Errorf("%w: session config cannot be nil", shared.ErrConfiguration))
	}
	if cfg.BarsPath == "" && cfg.TicksPath == "" {
		errs = errors.Join(errs, fmt.Errorf("%w: a bars or ticks path is required", shared.ErrConfiguration))
	}
	switch cfg.Mode {
	case BarMode:
	case TickMode, CompareMode:
		if cfg.TicksPath == "" {
			errs = errors.Join(errs, fmt.Errorf("%w: %s runs require a ticks path",
				shared.ErrConfiguration, cfg.Mode.String()))
		}
	case SweepMode:
		if len(cfg.SweepTakeProfits) == 0 {
			errs = errors.Join(errs, fmt.Errorf("%w: sweeps require take profit values", shared.ErrConfiguration))
		}
		seen := make(map[float64]struct{}, len(cfg.SweepTakeProfits))
		for _, tp := range cfg.SweepTakeProfits {
			if tp <= 0 {
				errs = errors.Join(errs, fmt.Errorf("%w: sweep take profit %g must be positive",
					shared.ErrConfiguration, tp))
			}
			if _, ok := seen[tp]; ok {
				errs = errors.Join(errs, fmt.Errorf("%w: duplicate sweep take profit %g",
					shared.ErrConfiguration, tp))
			}
			seen[tp] = struct{}{}
		}
	default:
		errs = errors.Join(errs, fmt.Errorf("%w: unknown run mode %d", shared.ErrConfiguration, cfg.Mode))
	}
	if cfg.SweepConcurrency < 0 {
		errs = errors.Join(errs, fmt.Errorf("%w: sweep concurrency cannot be negative", shared.ErrConfiguration))
	}
	if cfg.OutputDir != "" && cfg.Saver == nil {
		errs = errors.Join(errs, fmt.Errorf("%w: ledger saver cannot be nil with an output directory",
			shared.ErrConfiguration))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("%w: logger cannot be nil", shared.ErrConfiguration))
	}

	return errs
}

// RunResult represents the outcome of a single simulation.
type RunResult struct {
	// ID uniquely identifies the run.
	ID string
	// TakeProfit is the take profit distance of the run's first traded side.
	TakeProfit float64
	Result     *engine.Result
	Summary    report.Summary
	// Paths holds the written files, nil when file output is disabled.
	Paths *saver.RunPaths
}

// Report represents the outcome of a backtest.
type Report struct {
	Mode RunMode
	// Runs holds the simulations in execution order, ordered by take profit for sweeps.
	Runs []*RunResult
	// Comparison pairs the bar and tick runs of a compare backtest.
	Comparison *report.Comparison
}

// Backtest represents the backtest service.
type Backtest struct {
	cfg    *BacktestConfig
	clock  *session.Clock
	loader *fetch.Loader
	logger *zerolog.Logger
}

// NewBacktest initializes a new backtest service.
func NewBacktest(cfg *BacktestConfig) (*Backtest, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating backtest config: %w", err)
	}

	err = cfg.Strategy.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating strategy config: %w", err)
	}

	clock, err := session.NewClock(cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("creating session clock: %w", err)
	}

	loaderLogger := cfg.Logger.With().Str("component", "loader").Logger()
	loader, err := fetch.NewLoader(&fetch.LoaderConfig{
		Market:    cfg.Strategy.Market,
		Timeframe: cfg.Strategy.Timeframe,
		Location:  clock.Location(),
		Logger:    &loaderLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating loader: %w", err)
	}

	return &Backtest{
		cfg:    cfg,
		clock:  clock,
		loader: loader,
		logger: cfg.Logger,
	}, nil
}

// marketData holds the loaded bars and ticks of a backtest.
type marketData struct {
	candles []shared.Candlestick
	ticks   *fetch.TickIndex
}

// load reads the configured bar and tick files, building bars from ticks when no bar
// file is configured.
func (b *Backtest) load() (*marketData, error) {
	data := &marketData{}

	if b.cfg.TicksPath != "" {
		ticks, err := b.loader.LoadTicksCSV(b.cfg.TicksPath)
		if err != nil {
			return nil, fmt.Errorf("loading ticks: %w", err)
		}
		data.ticks = fetch.NewTickIndex(ticks)

		if b.cfg.BarsPath == "" {
			data.candles, err = fetch.BuildCandlesticks(ticks, b.cfg.Strategy.Market, b.cfg.Strategy.Timeframe)
			if err != nil {
				return nil, fmt.Errorf("building candlesticks from ticks: %w", err)
			}
			b.logger.Info().Msgf("built %d %s candlesticks from %d ticks", len(data.candles),
				b.cfg.Strategy.Timeframe.String(), len(ticks))
		}
	}

	if b.cfg.BarsPath != "" {
		candles, err := b.loader.LoadCandlesticks(b.cfg.BarsPath)
		if err != nil {
			return nil, fmt.Errorf("loading candlesticks: %w", err)
		}
		data.candles = candles
	}

	return data, nil
}

// takeProfit returns the take profit distance of the first traded side.
func takeProfit(strategy *engine.Config) float64 {
	directions := strategy.Mode.Directions()
	if len(directions) == 0 {
		return 0
	}

	return strategy.Side(directions[0]).TakeProfitPoints
}

// simulate runs a single simulation of the provided strategy.
func (b *Backtest) simulate(ctx context.Context, strategy *engine.Config, fidelity engine.Fidelity, data *marketData) (*engine.Result, error) {
	simLogger := b.logger.With().Str("component", fidelity.String()+"simulator").Logger()
	simCfg := &engine.SimulatorConfig{
		Strategy: strategy,
		Clock:    b.clock,
		Logger:   &simLogger,
	}

	switch fidelity {
	case engine.TickFidelity:
		sim, err := engine.NewTickSimulator(simCfg)
		if err != nil {
			return nil, err
		}
		return sim.Run(ctx, data.candles, data.ticks)
	default:
		sim, err := engine.NewBarSimulator(simCfg)
		if err != nil {
			return nil, err
		}
		return sim.Run(ctx, data.candles)
	}
}

// finish summarizes, saves and persists a completed simulation.
func (b *Backtest) finish(ctx context.Context, strategy *engine.Config, res *engine.Result, label string) (*RunResult, error) {
	run := &RunResult{
		ID:         uuid.New().String(),
		TakeProfit: takeProfit(strategy),
		Result:     res,
		Summary:    report.Summarize(res.Trades, strategy.StartingCapital),
	}

	if recon := run.Summary.ReconciliationError(); recon > reconciliationTolerance {
		b.logger.Error().Msgf("exit reason totals do not reconcile: %s", spew.Sdump(run.Summary.PointsByReason))
		return nil, fmt.Errorf("exit reason point totals differ from the total by %g", recon)
	}

	if b.cfg.OutputDir != "" {
		paths, err := saver.SaveRun(b.cfg.Saver, b.cfg.OutputDir, &saver.RunOutput{
			Market:     res.Market,
			Fidelity:   res.Fidelity.String(),
			Label:      label,
			TakeProfit: run.TakeProfit,
			Trades:     res.Trades,
			Summary:    &run.Summary,
		})
		if err != nil {
			return nil, fmt.Errorf("saving run: %w", err)
		}
		run.Paths = paths
	}

	if b.cfg.Store != nil {
		err := b.cfg.Store.PersistRun(ctx, &database.Run{
			ID:         run.ID,
			Market:     res.Market,
			Fidelity:   res.Fidelity.String(),
			Mode:       res.Mode.String(),
			TakeProfit: run.TakeProfit,
			CreatedOn:  time.Now(),
			Summary:    &run.Summary,
		}, res.Trades)
		if err != nil {
			return nil, fmt.Errorf("persisting run: %w", err)
		}
	}

	b.logSummary(run)

	return run, nil
}

// logSummary logs the headline statistics of a run.
func (b *Backtest) logSummary(run *RunResult) {
	res, sum := run.Result, &run.Summary
	b.logger.Info().Msgf("%s %s run (tp %g): %d trades, %d wins, %d losses, win rate %.2f%%",
		res.Market, res.Fidelity.String(), run.TakeProfit, sum.Trades, sum.Wins, sum.Losses, sum.WinRate)
	b.logger.Info().Msgf("total %.2f pts (%.2f), expectancy %.2f pts, max drawdown %.2f pts, "+
		"final balance %.2f (%.2f%%)", sum.TotalPoints, sum.TotalCurrency, sum.ExpectancyPoints,
		sum.MaxDrawdownPoints, sum.FinalBalance, sum.ReturnPercent)
	b.logger.Info().Msgf("%d signals, %d blocked by margin, %d positions open at end of data",
		res.Signals, res.BlockedTrades, res.OpenPositions)
	for _, reason := range shared.ExitReasons {
		b.logger.Debug().Msgf("%s: %d exits, %.2f pts", reason.String(), sum.ExitCounts[reason],
			sum.PointsByReason[reason])
	}
	b.logger.Debug().Msgf("eod exits: %d profitable, %d breakeven, %d losses", sum.EODProfitable,
		sum.EODBreakeven, sum.EODLosses)
	b.logger.Debug().Msgf("margin: balance %.2f, used %.2f, free %.2f", res.Margin.Balance,
		res.Margin.UsedMargin, res.Margin.FreeMargin)
}

// Run loads the market data and runs the configured backtest.
func (b *Backtest) Run(ctx context.Context) (*Report, error) {
	data, err := b.load()
	if err != nil {
		return nil, err
	}

	rpt := &Report{Mode: b.cfg.Mode}
	switch b.cfg.Mode {
	case BarMode, TickMode:
		fidelity := engine.BarFidelity
		if b.cfg.Mode == TickMode {
			fidelity = engine.TickFidelity
		}

		res, err := b.simulate(ctx, b.cfg.Strategy, fidelity, data)
		if err != nil {
			return nil, err
		}
		run, err := b.finish(ctx, b.cfg.Strategy, res, "")
		if err != nil {
			return nil, err
		}
		rpt.Runs = append(rpt.Runs, run)

	case CompareMode:
		for _, fidelity := range []engine.Fidelity{engine.BarFidelity, engine.TickFidelity} {
			res, err := b.simulate(ctx, b.cfg.Strategy, fidelity, data)
			if err != nil {
				return nil, err
			}
			run, err := b.finish(ctx, b.cfg.Strategy, res, fidelity.String())
			if err != nil {
				return nil, err
			}
			rpt.Runs = append(rpt.Runs, run)
		}

		comparison := report.Compare(rpt.Runs[0].Summary, rpt.Runs[1].Summary)
		rpt.Comparison = &comparison
		for _, delta := range comparison.Deltas() {
			b.logger.Info().Msgf("%-16s bar %12.2f  tick %12.2f  diff %12.2f", delta.Metric,
				delta.Bar, delta.Tick, delta.Difference())
		}

	case SweepMode:
		rpt.Runs, err = b.sweep(ctx, data)
		if err != nil {
			return nil, err
		}
	}

	return rpt, nil
}

// sortRuns orders sweep runs by take profit.
func sortRuns(runs []*RunResult) {
	slices.SortFunc(runs, func(a, b *RunResult) int {
		switch {
		case a.TakeProfit < b.TakeProfit:
			return -1
		case a.TakeProfit > b.TakeProfit:
			return 1
		default:
			return 0
		}
	})
}
