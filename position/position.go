package position

import (
	"errors"
	"fmt"
	"time"

	"github.com/dnldd/rebound/shared"
	"github.com/google/uuid"
)

// Params represents the details required to open a position.
type Params struct {
	Market           string
	Direction        shared.Direction
	EntryPrice       float64
	EntryTime        time.Time
	EntryDate        shared.Date
	TakeProfitPoints float64
	StopLossPoints   float64
}

// TrailingStop represents the trailing stop policy of a position.
type TrailingStop struct {
	// Enabled toggles the trailing stop.
	Enabled bool
	// ActivationPoints is the favourable excursion required before the stop trails.
	ActivationPoints float64
	// DistancePoints is how far behind the best price the stop trails.
	DistancePoints float64
}

// Position represents an open simulated position.
type Position struct {
	ID               string
	Market           string
	Direction        shared.Direction
	EntryPrice       float64
	EntryTime        time.Time
	EntryDate        shared.Date
	TakeProfitPoints float64
	StopLossPoints   float64
	// TakeProfit is the fixed take profit level.
	TakeProfit float64
	// StopLoss is the current stop level, moved only in the position's favour.
	StopLoss float64
	// TrailingActive reports whether the trailing stop has been activated.
	TrailingActive bool
	// Extremum is the best exit-side price observed, highest bid for longs and lowest ask for shorts.
	Extremum float64
	BarsHeld int
	DaysHeld int
	// OvernightCharges is the accumulated overnight funding in points.
	OvernightCharges float64
}

// NewPosition initializes a new position.
func NewPosition(params *Params) (*Position, error) {
	if params == nil {
		return nil, fmt.Errorf("position params cannot be nil")
	}

	var errs error
	if params.EntryPrice <= 0 {
		errs = errors.Join(errs, fmt.Errorf("entry price must be positive, got %f", params.EntryPrice))
	}
	if params.TakeProfitPoints <= 0 {
		errs = errors.Join(errs, fmt.Errorf("take profit points must be positive, got %f",
			params.TakeProfitPoints))
	}
	if params.StopLossPoints <= 0 {
		errs = errors.Join(errs, fmt.Errorf("stop loss points must be positive, got %f",
			params.StopLossPoints))
	}
	if params.Direction != shared.Long && params.Direction != shared.Short {
		errs = errors.Join(errs, fmt.Errorf("unknown direction for position: %s", params.Direction.String()))
	}
	if errs != nil {
		return nil, errs
	}

	sign := params.Direction.Sign()
	pos := &Position{
		ID:               uuid.New().String(),
		Market:           params.Market,
		Direction:        params.Direction,
		EntryPrice:       params.EntryPrice,
		EntryTime:        params.EntryTime,
		EntryDate:        params.EntryDate,
		TakeProfitPoints: params.TakeProfitPoints,
		StopLossPoints:   params.StopLossPoints,
		TakeProfit:       params.EntryPrice + sign*params.TakeProfitPoints,
		StopLoss:         params.EntryPrice - sign*params.StopLossPoints,
		Extremum:         params.EntryPrice,
	}

	return pos, nil
}

// ProfitPoints returns the unrealized points of the position marked at the provided price.
func (p *Position) ProfitPoints(price float64) float64 {
	return (price - p.EntryPrice) * p.Direction.Sign()
}

// Observe marks the position at the provided exit-side price, tracking the best price seen
// and trailing the stop when the trailing policy is active. It reports whether the stop moved.
func (p *Position) Observe(price float64, trailing *TrailingStop) bool {
	if p.Direction.Improves(price, p.Extremum) {
		p.Extremum = price
	}

	if trailing == nil || !trailing.Enabled {
		return false
	}

	if !p.TrailingActive && p.ProfitPoints(p.Extremum) >= trailing.ActivationPoints {
		p.TrailingActive = true
	}
	if !p.TrailingActive {
		return false
	}

	stop := p.Extremum - p.Direction.Sign()*trailing.DistancePoints
	if !p.Direction.Improves(stop, p.StopLoss) {
		return false
	}

	p.StopLoss = stop
	return true
}

// StopHit reports whether the provided exit-side price reaches the stop.
func (p *Position) StopHit(price float64) bool {
	if p.Direction == shared.Short {
		return price >= p.StopLoss
	}

	return price <= p.StopLoss
}

// TakeProfitHit reports whether the provided exit-side price reaches the take profit.
func (p *Position) TakeProfitHit(price float64) bool {
	if p.Direction == shared.Short {
		return price <= p.TakeProfit
	}

	return price >= p.TakeProfit
}

// StopReason returns the exit reason for a stop hit.
func (p *Position) StopReason() shared.ExitReason {
	if p.TrailingActive {
		return shared.TrailingStopLoss
	}

	return shared.StopLoss
}

// AccrueOvernight charges overnight funding for every calendar day boundary crossed since
// the last accrual and returns the points charged. Charges are computed off the entry price.
func (p *Position) AccrueOvernight(date shared.Date, annualRate float64) float64 {
	days := p.EntryDate.DaysUntil(date)
	if days <= p.DaysHeld {
		return 0
	}

	nights := days - p.DaysHeld
	charge := p.EntryPrice * annualRate / 365 * float64(nights)
	p.OvernightCharges += charge
	p.DaysHeld = days

	return charge
}

// Close closes the position at the provided price and returns the resulting trade.
func (p *Position) Close(exitPrice float64, exitTime time.Time, reason shared.ExitReason, sizePerPoint float64) shared.Trade {
	gross := p.ProfitPoints(exitPrice)
	net := gross - p.OvernightCharges

	return shared.Trade{
		ID:               p.ID,
		Market:           p.Market,
		Direction:        p.Direction,
		EntryPrice:       p.EntryPrice,
		EntryTime:        p.EntryTime,
		ExitPrice:        exitPrice,
		ExitTime:         exitTime,
		ExitReason:       reason,
		TakeProfitPoints: p.TakeProfitPoints,
		StopLossPoints:   p.StopLossPoints,
		GrossPoints:      gross,
		OvernightCharges: p.OvernightCharges,
		NetPoints:        net,
		GrossCurrency:    gross * sizePerPoint,
		NetCurrency:      net * sizePerPoint,
		DaysHeld:         p.DaysHeld,
		BarsHeld:         p.BarsHeld,
	}
}
