package fetch

import (
	"fmt"
	"math"

	"github.com/dnldd/rebound/shared"
)

// BuildCandlesticks aggregates the provided ordered ticks into mid price candlesticks of the
// provided timeframe. Buckets are truncated from the zero time, which keeps them aligned to
// utc days for timeframes that divide a day. Empty buckets are skipped.
// Volume holds the number of ticks in the bucket.
func BuildCandlesticks(ticks []shared.Tick, market string, timeframe shared.Timeframe) ([]shared.Candlestick, error) {
	duration := timeframe.Duration()
	if duration == 0 {
		return nil, fmt.Errorf("%w: unknown timeframe %d", shared.ErrConfiguration, timeframe)
	}
	if len(ticks) == 0 {
		return nil, fmt.Errorf("%w: no ticks to build candlesticks from", shared.ErrData)
	}

	var candles []shared.Candlestick
	var current *shared.Candlestick
	for idx := range ticks {
		tick := &ticks[idx]
		mid := tick.Mid()
		bucket := tick.Date.Truncate(duration).In(tick.Date.Location())

		if current == nil || !current.Date.Equal(bucket) {
			candles = append(candles, shared.Candlestick{
				Open:      mid,
				High:      mid,
				Low:       mid,
				Close:     mid,
				Date:      bucket,
				Market:    market,
				Timeframe: timeframe,
			})
			current = &candles[len(candles)-1]
		}

		current.High = math.Max(current.High, mid)
		current.Low = math.Min(current.Low, mid)
		current.Close = mid
		current.Volume++
	}

	return candles, nil
}
