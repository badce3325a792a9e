package shared

import (
	"fmt"
	"time"
)

// Candlestick represents a unit price bar for a market.
type Candlestick struct {
	Open   float64
	Low    float64
	High   float64
	Close  float64
	Volume float64
	Date   time.Time

	// Metadata fields.
	Market    string
	Timeframe Timeframe
}

// End returns the close time of the candlestick.
func (c *Candlestick) End() time.Time {
	return c.Date.Add(c.Timeframe.Duration())
}

// Validate asserts the candlestick prices are internally consistent.
func (c *Candlestick) Validate() error {
	switch {
	case c.Date.IsZero():
		return fmt.Errorf("%w: candlestick has no timestamp", ErrData)
	case c.High < c.Low:
		return fmt.Errorf("%w: candlestick at %s has high %f below low %f",
			ErrData, c.Date.Format(DateLayout), c.High, c.Low)
	case c.Open > c.High || c.Open < c.Low:
		return fmt.Errorf("%w: candlestick at %s has open %f outside its range",
			ErrData, c.Date.Format(DateLayout), c.Open)
	case c.Close > c.High || c.Close < c.Low:
		return fmt.Errorf("%w: candlestick at %s has close %f outside its range",
			ErrData, c.Date.Format(DateLayout), c.Close)
	}

	return nil
}

// ValidateCandlesticks asserts the provided candlesticks are non-empty, internally
// consistent and strictly ordered in time.
func ValidateCandlesticks(candles []Candlestick) error {
	if len(candles) == 0 {
		return fmt.Errorf("%w: no candlesticks provided", ErrData)
	}

	for idx := range candles {
		err := candles[idx].Validate()
		if err != nil {
			return err
		}

		if idx > 0 && !candles[idx].Date.After(candles[idx-1].Date) {
			return fmt.Errorf("%w: candlestick at %s is not after %s", ErrData,
				candles[idx].Date.Format(DateLayout), candles[idx-1].Date.Format(DateLayout))
		}
	}

	return nil
}
