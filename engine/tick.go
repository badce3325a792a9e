package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/dnldd/rebound/session"
	"github.com/dnldd/rebound/shared"
)

// TickRanger defines the requirements for querying ticks by time.
type TickRanger interface {
	// Range returns the ordered ticks in [start, end).
	Range(start time.Time, end time.Time) []shared.Tick
}

// TickSimulator simulates the strategy with bar signals and tick fills.
type TickSimulator struct {
	sim *simulator
}

// tickExecutor resolves fills from the ticks within each bar, falling back to
// spread-adjusted bar prices for bars without ticks.
type tickExecutor struct {
	spread  *spreadModel
	ticks   TickRanger
	current []shared.Tick
	empty   int
}

// Ensure the tick executor implements the executor interface.
var _ executor = (*tickExecutor)(nil)

// NewTickSimulator initializes a new tick simulator.
func NewTickSimulator(cfg *SimulatorConfig) (*TickSimulator, error) {
	sim, err := newSimulator(cfg)
	if err != nil {
		return nil, err
	}

	return &TickSimulator{sim: sim}, nil
}

// Run simulates the strategy over the provided ordered candlesticks, resolving fills with
// the ticks of each bar.
func (t *TickSimulator) Run(ctx context.Context, candles []shared.Candlestick, ticks TickRanger) (*Result, error) {
	if ticks == nil {
		return nil, fmt.Errorf("%w: tick source cannot be nil", shared.ErrData)
	}

	x := &tickExecutor{spread: t.sim.spread, ticks: ticks}
	res, err := t.sim.run(ctx, candles, TickFidelity, x)
	if err != nil {
		return nil, err
	}

	res.BarsWithoutTicks = x.empty
	if x.empty > 0 {
		t.sim.logger.Warn().Msgf("%d of %d bars had no ticks and used bar prices", x.empty, res.Bars)
	}

	return res, nil
}

// prepare loads the ticks of the bar.
func (x *tickExecutor) prepare(bar *session.AnnotatedBar) {
	x.current = x.ticks.Range(bar.Date, bar.End())
	if len(x.current) == 0 {
		x.empty++
	}
}

// entry fills at the first tick of the bar.
func (x *tickExecutor) entry(direction shared.Direction, bar *session.AnnotatedBar) (float64, time.Time) {
	if len(x.current) == 0 {
		return x.spread.entryPrice(direction, bar.Open, bar.Date), bar.Date
	}

	first := &x.current[0]
	return first.EntryPrice(direction), first.Date
}

// scan walks the ticks after the position's entry, trailing the stop before checking
// the stop and take profit on each tick. Bars without ticks are scanned from their range.
func (x *tickExecutor) scan(sd *side, bar *session.AnnotatedBar) *fill {
	if len(x.current) == 0 {
		return scanBar(x.spread, sd, bar)
	}

	pos := sd.pos
	for idx := range x.current {
		tick := &x.current[idx]
		if !tick.Date.After(pos.EntryTime) {
			continue
		}

		price := tick.ExitPrice(sd.direction)
		pos.Observe(price, sd.trailing)

		switch {
		case pos.StopHit(price):
			return &fill{price: pos.StopLoss, at: tick.Date, reason: pos.StopReason()}
		case pos.TakeProfitHit(price):
			return &fill{price: pos.TakeProfit, at: tick.Date, reason: shared.TakeProfit}
		}
	}

	return nil
}

// closePrice returns the exit-side price of the last tick of the bar.
func (x *tickExecutor) closePrice(direction shared.Direction, bar *session.AnnotatedBar) float64 {
	if len(x.current) == 0 {
		return x.spread.exitPrice(direction, bar.Close, bar.Date)
	}

	last := &x.current[len(x.current)-1]
	return last.ExitPrice(direction)
}
