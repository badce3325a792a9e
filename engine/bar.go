package engine

import (
	"context"
	"time"

	"github.com/dnldd/rebound/session"
	"github.com/dnldd/rebound/shared"
)

// BarSimulator simulates the strategy at bar fidelity, reconstructing bid and ask
// prices from bar prices and the configured spread.
type BarSimulator struct {
	sim *simulator
}

// barExecutor resolves fills from bar prices.
type barExecutor struct {
	spread *spreadModel
}

// Ensure the bar executor implements the executor interface.
var _ executor = (*barExecutor)(nil)

// NewBarSimulator initializes a new bar simulator.
func NewBarSimulator(cfg *SimulatorConfig) (*BarSimulator, error) {
	sim, err := newSimulator(cfg)
	if err != nil {
		return nil, err
	}

	return &BarSimulator{sim: sim}, nil
}

// Run simulates the strategy over the provided ordered candlesticks.
func (b *BarSimulator) Run(ctx context.Context, candles []shared.Candlestick) (*Result, error) {
	return b.sim.run(ctx, candles, BarFidelity, &barExecutor{spread: b.sim.spread})
}

// prepare is a no-op, bar prices need no loading.
func (x *barExecutor) prepare(*session.AnnotatedBar) {}

// entry fills at the bar open adjusted by half the spread.
func (x *barExecutor) entry(direction shared.Direction, bar *session.AnnotatedBar) (float64, time.Time) {
	return x.spread.entryPrice(direction, bar.Open, bar.Date), bar.Date
}

// scan resolves the stop and take profit from the bar's range.
func (x *barExecutor) scan(sd *side, bar *session.AnnotatedBar) *fill {
	return scanBar(x.spread, sd, bar)
}

// scanBar marks the position with the bar's best exit-side price before checking the stop
// against the worst one. Stops and take profits fill at their levels at the close of the bar.
func scanBar(spread *spreadModel, sd *side, bar *session.AnnotatedBar) *fill {
	best, worst := bar.High, bar.Low
	if sd.direction == shared.Short {
		best, worst = bar.Low, bar.High
	}

	best = spread.exitPrice(sd.direction, best, bar.Date)
	worst = spread.exitPrice(sd.direction, worst, bar.Date)

	pos := sd.pos
	pos.Observe(best, sd.trailing)

	switch {
	case pos.StopHit(worst):
		return &fill{price: pos.StopLoss, at: bar.End(), reason: pos.StopReason()}
	case pos.TakeProfitHit(best):
		return &fill{price: pos.TakeProfit, at: bar.End(), reason: shared.TakeProfit}
	default:
		return nil
	}
}

// closePrice returns the bar close adjusted to the exit side.
func (x *barExecutor) closePrice(direction shared.Direction, bar *session.AnnotatedBar) float64 {
	return x.spread.exitPrice(direction, bar.Close, bar.Date)
}
