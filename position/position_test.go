package position

import (
	"math"
	"testing"
	"time"

	"github.com/dnldd/rebound/shared"
	"github.com/peterldowns/testy/assert"
)

// approxEqual reports whether a and b agree within a small tolerance.
func approxEqual(a float64, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestNewPosition(t *testing.T) {
	entry := time.Date(2024, time.June, 3, 10, 30, 0, 0, time.UTC)

	// Ensure invalid params are rejected.
	_, err := NewPosition(nil)
	assert.Error(t, err)

	_, err = NewPosition(&Params{Direction: shared.Long, EntryPrice: 100})
	assert.Error(t, err)

	_, err = NewPosition(&Params{Direction: shared.Direction(3), EntryPrice: 100,
		TakeProfitPoints: 1, StopLossPoints: 1})
	assert.Error(t, err)

	// Ensure long levels are placed above and below the entry.
	long, err := NewPosition(&Params{
		Market:           "NDX",
		Direction:        shared.Long,
		EntryPrice:       16700,
		EntryTime:        entry,
		EntryDate:        shared.NewDate(entry),
		TakeProfitPoints: 40,
		StopLossPoints:   100,
	})
	assert.NoError(t, err)
	assert.True(t, long.ID != "")
	assert.Equal(t, long.TakeProfit, 16740.0)
	assert.Equal(t, long.StopLoss, 16600.0)
	assert.Equal(t, long.Extremum, 16700.0)

	// Ensure short levels mirror the long ones.
	short, err := NewPosition(&Params{
		Direction:        shared.Short,
		EntryPrice:       16700,
		TakeProfitPoints: 40,
		StopLossPoints:   80,
	})
	assert.NoError(t, err)
	assert.Equal(t, short.TakeProfit, 16660.0)
	assert.Equal(t, short.StopLoss, 16780.0)
}

func TestTrailingStop(t *testing.T) {
	trailing := &TrailingStop{Enabled: true, ActivationPoints: 25, DistancePoints: 10}

	long, err := NewPosition(&Params{
		Direction:        shared.Long,
		EntryPrice:       16700,
		TakeProfitPoints: 100,
		StopLossPoints:   100,
	})
	assert.NoError(t, err)

	// Ensure the stop does not trail before activation.
	assert.False(t, long.Observe(16720, trailing))
	assert.False(t, long.TrailingActive)
	assert.Equal(t, long.StopLoss, 16600.0)
	assert.Equal(t, long.StopReason(), shared.StopLoss)

	// Ensure the stop trails once the excursion reaches the activation.
	assert.True(t, long.Observe(16725, trailing))
	assert.True(t, long.TrailingActive)
	assert.Equal(t, long.StopLoss, 16715.0)

	assert.True(t, long.Observe(16740, trailing))
	assert.Equal(t, long.StopLoss, 16730.0)
	assert.Equal(t, long.Extremum, 16740.0)

	// Ensure the stop never moves back on a retracement.
	assert.False(t, long.Observe(16705, trailing))
	assert.Equal(t, long.StopLoss, 16730.0)
	assert.True(t, long.StopHit(16705))
	assert.Equal(t, long.StopReason(), shared.TrailingStopLoss)

	trade := long.Close(long.StopLoss, time.Now(), long.StopReason(), 2)
	assert.Equal(t, trade.GrossPoints, 30.0)
	assert.Equal(t, trade.NetCurrency, 60.0)
	assert.Equal(t, trade.ExitReason, shared.TrailingStopLoss)

	// Ensure shorts trail from the lowest ask.
	short, err := NewPosition(&Params{
		Direction:        shared.Short,
		EntryPrice:       16700,
		TakeProfitPoints: 100,
		StopLossPoints:   80,
	})
	assert.NoError(t, err)
	assert.False(t, short.Observe(16680, trailing))
	assert.True(t, short.Observe(16670, trailing))
	assert.Equal(t, short.StopLoss, 16680.0)
	assert.False(t, short.Observe(16690, trailing))
	assert.Equal(t, short.StopLoss, 16680.0)
	assert.True(t, short.StopHit(16690))
	assert.False(t, short.StopHit(16675))

	// Ensure a disabled or missing policy only tracks the extremum.
	plain, err := NewPosition(&Params{
		Direction:        shared.Long,
		EntryPrice:       100,
		TakeProfitPoints: 10,
		StopLossPoints:   10,
	})
	assert.NoError(t, err)
	assert.False(t, plain.Observe(150, nil))
	assert.False(t, plain.Observe(160, &TrailingStop{ActivationPoints: 1, DistancePoints: 1}))
	assert.Equal(t, plain.Extremum, 160.0)
	assert.Equal(t, plain.StopLoss, 90.0)
}

func TestStopMonotonic(t *testing.T) {
	trailing := &TrailingStop{Enabled: true, ActivationPoints: 5, DistancePoints: 3}
	prices := []float64{101, 104, 106, 103, 109, 102, 111, 110, 95, 120}

	for _, direction := range []shared.Direction{shared.Long, shared.Short} {
		pos, err := NewPosition(&Params{
			Direction:        direction,
			EntryPrice:       100,
			TakeProfitPoints: 50,
			StopLossPoints:   20,
		})
		assert.NoError(t, err)

		// Ensure the stop only ever moves in the position's favour.
		prev := pos.StopLoss
		for _, price := range prices {
			if direction == shared.Short {
				price = 200 - price
			}
			pos.Observe(price, trailing)
			assert.False(t, direction.Improves(prev, pos.StopLoss))
			prev = pos.StopLoss
		}
	}
}

func TestTakeProfitHit(t *testing.T) {
	long := &Position{Direction: shared.Long, TakeProfit: 110}
	assert.True(t, long.TakeProfitHit(110))
	assert.False(t, long.TakeProfitHit(109.9))

	short := &Position{Direction: shared.Short, TakeProfit: 90}
	assert.True(t, short.TakeProfitHit(90))
	assert.False(t, short.TakeProfitHit(90.1))
}

func TestAccrueOvernight(t *testing.T) {
	monday := shared.Date{Year: 2024, Month: time.June, Day: 3}
	pos, err := NewPosition(&Params{
		Direction:        shared.Long,
		EntryPrice:       16700,
		EntryDate:        monday,
		TakeProfitPoints: 40,
		StopLossPoints:   100,
	})
	assert.NoError(t, err)

	perNight := 16700 * 0.035 / 365

	// Ensure nothing is charged on the entry day.
	assert.Equal(t, pos.AccrueOvernight(monday, 0.035), 0.0)
	assert.Equal(t, pos.DaysHeld, 0)

	// Ensure a single night is charged once, however many bars follow.
	tuesday := shared.Date{Year: 2024, Month: time.June, Day: 4}
	assert.True(t, approxEqual(pos.AccrueOvernight(tuesday, 0.035), perNight))
	assert.Equal(t, pos.AccrueOvernight(tuesday, 0.035), 0.0)
	assert.Equal(t, pos.DaysHeld, 1)

	// Ensure a weekend gap is charged per calendar day.
	friday := shared.Date{Year: 2024, Month: time.June, Day: 7}
	nextMonday := shared.Date{Year: 2024, Month: time.June, Day: 10}
	pos.AccrueOvernight(friday, 0.035)
	assert.True(t, approxEqual(pos.AccrueOvernight(nextMonday, 0.035), perNight*3))
	assert.Equal(t, pos.DaysHeld, 7)
	assert.True(t, approxEqual(pos.OvernightCharges, perNight*7))

	// Ensure net points are gross less charges.
	trade := pos.Close(16740, time.Now(), shared.TakeProfit, 2)
	assert.Equal(t, trade.GrossPoints, 40.0)
	assert.True(t, approxEqual(trade.NetPoints, 40-perNight*7))
	assert.True(t, approxEqual(trade.NetCurrency, trade.NetPoints*2))
	assert.Equal(t, trade.DaysHeld, 7)
}
