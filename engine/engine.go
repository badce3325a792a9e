package engine

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dnldd/rebound/indicator"
	"github.com/dnldd/rebound/margin"
	"github.com/dnldd/rebound/position"
	"github.com/dnldd/rebound/session"
	"github.com/dnldd/rebound/shared"
	"github.com/rs/zerolog"
)

// Fidelity represents the price resolution a simulation resolves fills at.
type Fidelity int

const (
	BarFidelity Fidelity = iota
	TickFidelity
)

// String stringifies the provided fidelity.
func (f Fidelity) String() string {
	switch f {
	case BarFidelity:
		return "bar"
	case TickFidelity:
		return "tick"
	default:
		return "unknown"
	}
}

// SimulatorConfig is the configuration for the simulators.
type SimulatorConfig struct {
	// Strategy is the strategy configuration.
	Strategy *Config
	// Clock is the session clock bars are filtered and annotated with.
	Clock *session.Clock
	// Logger is the simulator logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *SimulatorConfig) Validate() error {
	var errs error

	if cfg.Strategy == nil {
		errs = errors.Join(errs, fmt.Errorf("%w: strategy config cannot be nil", shared.ErrConfiguration))
	} else {
		errs = errors.Join(errs, cfg.Strategy.Validate())
	}
	if cfg.Clock == nil {
		errs = errors.Join(errs, fmt.Errorf("%w: session clock cannot be nil", shared.ErrConfiguration))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("%w: logger cannot be nil", shared.ErrConfiguration))
	}

	return errs
}

// Result represents the outcome of a simulation run.
type Result struct {
	Market   string
	Mode     shared.StrategyMode
	Fidelity Fidelity
	// Trades is the trade ledger ordered by entry time.
	Trades []shared.Trade
	// Signals is the number of armed signals that reached execution.
	Signals int
	// BlockedTrades is the number of signals rejected for insufficient margin.
	BlockedTrades int
	// Bars is the number of in-session bars simulated.
	Bars int
	// BarsWithoutTicks is the number of bars with no ticks, tick fidelity only.
	BarsWithoutTicks int
	// OpenPositions is the number of positions still open when the data ran out.
	OpenPositions int
	// Margin is the account status at the end of the run.
	Margin margin.Status
}

// fill represents a resolved exit.
type fill struct {
	price  float64
	at     time.Time
	reason shared.ExitReason
}

// executor resolves entry and exit fills at a given price fidelity.
type executor interface {
	// prepare loads any per-bar state before the bar is evaluated.
	prepare(bar *session.AnnotatedBar)
	// entry returns the fill price and time of a position entered on the bar.
	entry(direction shared.Direction, bar *session.AnnotatedBar) (float64, time.Time)
	// scan marks the position through the bar and returns the first stop or take profit hit.
	scan(sd *side, bar *session.AnnotatedBar) *fill
	// closePrice returns the exit-side price at the close of the bar.
	closePrice(direction shared.Direction, bar *session.AnnotatedBar) float64
}

// side represents the runtime state of one side of the strategy.
type side struct {
	direction shared.Direction
	cfg       *SideConfig
	machine   *position.Machine
	trailing  *position.TrailingStop
	pos       *position.Position
}

// simulator drives the per-side machines over session bars. It holds no
// per-run state so a single instance can run repeatedly.
type simulator struct {
	cfg    *SimulatorConfig
	spread *spreadModel
	logger *zerolog.Logger
}

// newSimulator initializes the simulation core.
func newSimulator(cfg *SimulatorConfig) (*simulator, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating simulator config: %w", err)
	}

	sim := &simulator{
		cfg: cfg,
		spread: &spreadModel{
			clock:              cfg.Clock,
			points:             cfg.Strategy.SpreadPoints,
			offHoursMultiplier: cfg.Strategy.OffHoursSpreadMultiplier,
		},
		logger: cfg.Logger,
	}

	return sim, nil
}

// newSides creates fresh runtime state for the traded sides, long first.
func (s *simulator) newSides() []*side {
	directions := s.cfg.Strategy.Mode.Directions()
	sides := make([]*side, 0, len(directions))
	for _, direction := range directions {
		cfg := s.cfg.Strategy.Side(direction)
		sides = append(sides, &side{
			direction: direction,
			cfg:       cfg,
			machine:   position.NewMachine(direction, cfg.Threshold),
			trailing: &position.TrailingStop{
				Enabled:          cfg.UseTrailingStop,
				ActivationPoints: cfg.TrailingActivationPoints,
				DistancePoints:   cfg.TrailingDistancePoints,
			},
		})
	}

	return sides
}

// openEntries returns the entry prices of open positions, excluding the provided side.
func openEntries(sides []*side, exclude *side) []float64 {
	var prices []float64
	for _, sd := range sides {
		if sd == exclude || sd.pos == nil {
			continue
		}
		prices = append(prices, sd.pos.EntryPrice)
	}

	return prices
}

// run simulates the strategy over the provided candlesticks.
func (s *simulator) run(ctx context.Context, candles []shared.Candlestick, fidelity Fidelity, x executor) (*Result, error) {
	strategy := s.cfg.Strategy
	err := shared.ValidateCandlesticks(candles)
	if err != nil {
		return nil, err
	}
	for idx := range candles {
		if candles[idx].Timeframe != strategy.Timeframe {
			return nil, fmt.Errorf("%w: candlestick at %s has timeframe %s, expected %s", shared.ErrData,
				candles[idx].Date.Format(shared.DateLayout), candles[idx].Timeframe.String(),
				strategy.Timeframe.String())
		}
	}

	bars := s.cfg.Clock.Annotate(candles)
	series, err := indicator.RSI(indicator.CandlestickCloses(sessionCandles(bars)), strategy.RSIPeriod)
	if err != nil {
		return nil, err
	}

	validator, err := margin.NewValidator(&margin.Config{
		StartingCapital:          strategy.StartingCapital,
		MarginRequirementPercent: strategy.MarginRequirementPercent,
		SizePerPoint:             strategy.SizePerPoint,
		Logger:                   s.logger,
	})
	if err != nil {
		return nil, err
	}

	res := &Result{
		Market:   strategy.Market,
		Mode:     strategy.Mode,
		Fidelity: fidelity,
		Bars:     len(bars),
	}
	if len(bars) == 0 {
		s.logger.Warn().Msgf("no in-session bars for %s out of %d provided", strategy.Market, len(candles))
	}

	sides := s.newSides()
	for idx := range bars {
		err := ctx.Err()
		if err != nil {
			return nil, fmt.Errorf("simulating %s: %w", strategy.Market, err)
		}

		bar := &bars[idx]
		for _, sd := range sides {
			sd.machine.OnBar(bar.TradingDate)
		}

		rsi, ok := series.Value(idx)
		if !ok {
			continue
		}

		x.prepare(bar)

		for _, sd := range sides {
			if !sd.machine.OnRSI(rsi, bar.EntryAllowed) {
				continue
			}

			res.Signals++
			err := s.open(sd, bar, x, validator, openEntries(sides, sd), res)
			if err != nil {
				return nil, err
			}
		}

		for _, sd := range sides {
			if sd.pos == nil {
				continue
			}

			trade, err := s.manage(sd, bar, x)
			if err != nil {
				return nil, err
			}
			if trade == nil {
				continue
			}

			validator.OnTradeClosed(trade.NetCurrency)
			res.Trades = append(res.Trades, *trade)
		}
	}

	slices.SortStableFunc(res.Trades, func(a, b shared.Trade) int {
		return cmp.Or(a.EntryTime.Compare(b.EntryTime), cmp.Compare(a.Direction, b.Direction))
	})

	open := openEntries(sides, nil)
	res.OpenPositions = len(open)
	res.Margin = validator.Status(open...)
	if res.OpenPositions > 0 {
		s.logger.Warn().Msgf("%d %s position(s) still open at the end of the data",
			res.OpenPositions, strategy.Market)
	}

	s.logger.Info().Msgf("%s %s simulation of %s complete: %d bars, %d signals, %d trades, %d blocked",
		strategy.Mode.String(), fidelity.String(), strategy.Market, res.Bars, res.Signals,
		len(res.Trades), res.BlockedTrades)

	return res, nil
}

// sessionCandles returns the candlesticks of the provided annotated bars.
func sessionCandles(bars []session.AnnotatedBar) []shared.Candlestick {
	candles := make([]shared.Candlestick, len(bars))
	for idx := range bars {
		candles[idx] = bars[idx].Candlestick
	}

	return candles
}

// open executes an armed signal, subject to the margin check.
func (s *simulator) open(sd *side, bar *session.AnnotatedBar, x executor, validator *margin.Validator, others []float64, res *Result) error {
	price, at := x.entry(sd.direction, bar)
	ok, reason := validator.CanOpen(price, others...)
	if !ok {
		res.BlockedTrades++
		s.logger.Info().Msgf("%s entry at %.2f on %s blocked: %s", sd.direction.String(), price,
			at.Format(shared.DateLayout), reason)
		return sd.machine.Rejected()
	}

	pos, err := position.NewPosition(&position.Params{
		Market:           s.cfg.Strategy.Market,
		Direction:        sd.direction,
		EntryPrice:       price,
		EntryTime:        at,
		EntryDate:        bar.TradingDate,
		TakeProfitPoints: sd.cfg.TakeProfitPoints,
		StopLossPoints:   sd.cfg.StopLossPoints,
	})
	if err != nil {
		return fmt.Errorf("opening %s position: %w", sd.direction.String(), err)
	}

	sd.pos = pos
	s.logger.Debug().Msgf("opened %s position at %.2f on %s (tp %.2f, sl %.2f)", sd.direction.String(),
		pos.EntryPrice, at.Format(shared.DateLayout), pos.TakeProfit, pos.StopLoss)

	return sd.machine.Opened()
}

// manage advances an open position through the bar and closes it when an exit triggers.
// Exits are evaluated as max hold days, then stop, then take profit, then end of day.
func (s *simulator) manage(sd *side, bar *session.AnnotatedBar, x executor) (*shared.Trade, error) {
	pos := sd.pos
	pos.BarsHeld++
	pos.AccrueOvernight(bar.TradingDate, s.cfg.Strategy.OvernightFundingRate)

	var exit *fill
	switch {
	case sd.cfg.MaxHoldDays > 0 && pos.DaysHeld >= sd.cfg.MaxHoldDays:
		exit = &fill{price: x.closePrice(sd.direction, bar), at: bar.End(), reason: shared.MaxHoldDays}
	default:
		exit = x.scan(sd, bar)
		if exit == nil && sd.cfg.ForceEODExit && bar.EOD {
			exit = &fill{price: x.closePrice(sd.direction, bar), at: bar.End(), reason: shared.EndOfDay}
		}
	}
	if exit == nil {
		return nil, nil
	}

	trade := pos.Close(exit.price, exit.at, exit.reason, s.cfg.Strategy.SizePerPoint)
	sd.pos = nil
	s.logger.Debug().Msgf("closed %s position at %.2f on %s (%s, %.2f pts net)", sd.direction.String(),
		trade.ExitPrice, trade.ExitTime.Format(shared.DateLayout), trade.ExitReason.String(), trade.NetPoints)

	err := sd.machine.Closed()
	if err != nil {
		return nil, err
	}

	return &trade, nil
}
