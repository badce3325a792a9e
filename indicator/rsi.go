package indicator

import (
	"fmt"
	"math"

	"github.com/dnldd/rebound/shared"
)

// RSIGenerator represents the Relative Strength Index indicator using Wilder's smoothing.
//
// Gains and losses are averaged with a simple mean over the first period deltas and
// exponentially smoothed with a factor of 1/period afterwards.
type RSIGenerator struct {
	period    int
	count     int
	prevClose float64
	sumGain   float64
	sumLoss   float64
	avgGain   float64
	avgLoss   float64
}

// NewRSIGenerator initializes an RSI indicator with the provided period.
func NewRSIGenerator(period int) (*RSIGenerator, error) {
	if period < 1 {
		return nil, fmt.Errorf("%w: rsi period must be at least 1, got %d",
			shared.ErrConfiguration, period)
	}

	return &RSIGenerator{period: period}, nil
}

// Period returns the smoothing period of the indicator.
func (r *RSIGenerator) Period() int {
	return r.period
}

// Update feeds the next close price to the indicator. The returned flag is false
// until period deltas have been observed.
func (r *RSIGenerator) Update(price float64) (float64, bool) {
	idx := r.count
	r.count++
	if idx == 0 {
		r.prevClose = price
		return math.NaN(), false
	}

	delta := price - r.prevClose
	r.prevClose = price
	gain := math.Max(delta, 0)
	loss := math.Max(-delta, 0)

	switch {
	case idx < r.period:
		r.sumGain += gain
		r.sumLoss += loss
		return math.NaN(), false

	case idx == r.period:
		r.sumGain += gain
		r.sumLoss += loss
		r.avgGain = r.sumGain / float64(r.period)
		r.avgLoss = r.sumLoss / float64(r.period)

	default:
		alpha := 1 / float64(r.period)
		r.avgGain = alpha*gain + (1-alpha)*r.avgGain
		r.avgLoss = alpha*loss + (1-alpha)*r.avgLoss
	}

	return relativeStrengthIndex(r.avgGain, r.avgLoss), true
}

// relativeStrengthIndex converts smoothed gains and losses into an rsi value.
func relativeStrengthIndex(avgGain float64, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}

	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// Series represents an rsi series aligned one to one with its input prices.
type Series struct {
	Period int
	values []float64
}

// Len returns the number of entries in the series.
func (s *Series) Len() int {
	return len(s.values)
}

// Value returns the rsi value at the provided index. The flag is false for
// entries without a value.
func (s *Series) Value(idx int) (float64, bool) {
	if idx < 0 || idx >= len(s.values) {
		return math.NaN(), false
	}

	val := s.values[idx]
	return val, !math.IsNaN(val)
}

// Values returns a copy of the raw series, with NaN marking entries without a value.
func (s *Series) Values() []float64 {
	out := make([]float64, len(s.values))
	copy(out, s.values)
	return out
}

// RSI computes the rsi series for the provided ordered close prices.
func RSI(closes []float64, period int) (*Series, error) {
	gen, err := NewRSIGenerator(period)
	if err != nil {
		return nil, err
	}

	series := &Series{
		Period: period,
		values: make([]float64, len(closes)),
	}

	for idx, price := range closes {
		series.values[idx], _ = gen.Update(price)
	}

	return series, nil
}

// CandlestickCloses extracts the close prices of the provided candlesticks.
func CandlestickCloses(candles []shared.Candlestick) []float64 {
	closes := make([]float64, len(candles))
	for idx := range candles {
		closes[idx] = candles[idx].Close
	}

	return closes
}
