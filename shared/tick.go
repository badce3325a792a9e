package shared

import (
	"fmt"
	"time"
)

// Tick represents a single quote update.
type Tick struct {
	Date time.Time
	Bid  float64
	Ask  float64
}

// Mid returns the mid price of the tick.
func (t *Tick) Mid() float64 {
	return (t.Bid + t.Ask) / 2
}

// Spread returns the quoted spread of the tick.
func (t *Tick) Spread() float64 {
	return t.Ask - t.Bid
}

// EntryPrice returns the price a position in the provided direction fills at.
func (t *Tick) EntryPrice(direction Direction) float64 {
	if direction == Short {
		return t.Bid
	}

	return t.Ask
}

// ExitPrice returns the price a position in the provided direction is marked and closed at.
func (t *Tick) ExitPrice(direction Direction) float64 {
	if direction == Short {
		return t.Ask
	}

	return t.Bid
}

// ValidateTicks asserts the provided ticks are quoted sanely and strictly ordered in time.
func ValidateTicks(ticks []Tick) error {
	for idx := range ticks {
		tick := &ticks[idx]
		if tick.Ask < tick.Bid {
			return fmt.Errorf("%w: tick at %s has ask %f below bid %f", ErrData,
				tick.Date.Format(DateLayout), tick.Ask, tick.Bid)
		}

		if idx > 0 && !tick.Date.After(ticks[idx-1].Date) {
			return fmt.Errorf("%w: tick at %s is not after %s", ErrData,
				tick.Date.Format(DateLayout), ticks[idx-1].Date.Format(DateLayout))
		}
	}

	return nil
}
