package report

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/dnldd/rebound/shared"
	"github.com/google/go-cmp/cmp"
	"github.com/peterldowns/testy/assert"
)

// approxEqual reports whether a and b agree within a small tolerance.
func approxEqual(a float64, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// newTrade creates a closed trade with the provided outcome.
func newTrade(entry time.Time, direction shared.Direction, reason shared.ExitReason, gross float64, charges float64, bars int) shared.Trade {
	net := gross - charges
	return shared.Trade{
		Direction:        direction,
		EntryTime:        entry,
		ExitTime:         entry.Add(time.Minute * 30 * time.Duration(bars)),
		ExitReason:       reason,
		GrossPoints:      gross,
		OvernightCharges: charges,
		NetPoints:        net,
		GrossCurrency:    gross * 2,
		NetCurrency:      net * 2,
		BarsHeld:         bars,
	}
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil, 10000)

	// Ensure an empty ledger yields a zero-valued summary.
	assert.Equal(t, summary.Trades, 0)
	assert.Equal(t, summary.WinRate, 0.0)
	assert.Equal(t, summary.MaxDrawdownPoints, 0.0)
	assert.Equal(t, summary.FinalBalance, 10000.0)
	assert.Equal(t, summary.ReturnPercent, 0.0)
	assert.Equal(t, len(summary.ExitCounts), len(shared.ExitReasons))
	assert.Equal(t, summary.ReconciliationError(), 0.0)
	assert.Equal(t, len(EquityCurve(nil)), 0)
}

func TestSummarize(t *testing.T) {
	start := time.Date(2024, time.June, 3, 11, 30, 0, 0, time.UTC)
	at := func(day int) time.Time { return start.AddDate(0, 0, day) }

	trades := []shared.Trade{
		newTrade(at(0), shared.Long, shared.TakeProfit, 40, 0, 2),
		newTrade(at(1), shared.Long, shared.StopLoss, -100, 0, 3),
		newTrade(at(2), shared.Short, shared.EndOfDay, 12, 2, 5),
		newTrade(at(3), shared.Long, shared.EndOfDay, -8, 0, 4),
		newTrade(at(4), shared.Short, shared.TrailingStopLoss, 15, 0, 2),
		newTrade(at(5), shared.Long, shared.EndOfDay, 0, 0, 4),
	}

	summary := Summarize(trades, 10000)
	assert.Equal(t, summary.Trades, 6)
	assert.Equal(t, summary.LongTrades, 4)
	assert.Equal(t, summary.ShortTrades, 2)

	// Ensure only take profits count as wins and only stops and losing eod exits as losses.
	assert.Equal(t, summary.Wins, 1)
	assert.Equal(t, summary.Losses, 2)
	assert.True(t, approxEqual(summary.WinRate, 100.0/6))
	assert.Equal(t, summary.EODProfitable, 1)
	assert.Equal(t, summary.EODLosses, 1)
	assert.Equal(t, summary.EODBreakeven, 1)
	assert.Equal(t, summary.ExitCounts[shared.EndOfDay], 3)
	assert.Equal(t, summary.ExitCounts[shared.TrailingStopLoss], 1)
	assert.Equal(t, summary.ExitCounts[shared.MaxHoldDays], 0)

	// Ensure averages cover every profitable and losing trade.
	// Net points: 40, -100, 10, -8, 15, 0.
	assert.True(t, approxEqual(summary.AvgWinPoints, 65.0/3))
	assert.True(t, approxEqual(summary.AvgLossPoints, -54))
	assert.True(t, approxEqual(summary.PayoffRatio, (65.0/3)/54))
	assert.True(t, approxEqual(summary.ExpectancyPoints, -43.0/6))
	assert.Equal(t, summary.TotalPoints, -43.0)
	assert.Equal(t, summary.GrossPoints, -41.0)
	assert.Equal(t, summary.OvernightChargesPoints, 2.0)
	assert.Equal(t, summary.OvernightChargesCurrency, 4.0)
	assert.True(t, approxEqual(summary.AvgBarsHeld, 20.0/6))

	// Ensure the drawdown is measured from the running maximum of the equity curve.
	// Equity: 40, -60, -50, -58, -43, -43 -> deepest fall 40 -> -60.
	assert.Equal(t, summary.MaxDrawdownPoints, -100.0)

	// Ensure currency totals flow into the balance.
	assert.Equal(t, summary.TotalCurrency, -86.0)
	assert.Equal(t, summary.FinalBalance, 9914.0)
	assert.True(t, approxEqual(summary.ReturnPercent, -0.86))
	assert.True(t, summary.ReconciliationError() <= 1e-6)

	// Ensure the equity curve accumulates in ledger order.
	curve := EquityCurve(trades)
	want := []float64{40, -60, -50, -58, -43, -43}
	var got []float64
	for _, point := range curve {
		got = append(got, point.Points)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected equity curve (-want +got):\n%s", diff)
	}
	assert.Equal(t, curve[5].Currency, -86.0)
	assert.True(t, curve[0].Date.Equal(trades[0].ExitTime))
}

func TestSummarizeFirstTradeLoss(t *testing.T) {
	start := time.Date(2024, time.June, 3, 11, 30, 0, 0, time.UTC)
	trades := []shared.Trade{
		newTrade(start, shared.Long, shared.StopLoss, -100, 0, 1),
		newTrade(start.Add(time.Hour), shared.Long, shared.StopLoss, -50, 0, 1),
	}

	// Ensure the running maximum starts at the first trade's equity.
	summary := Summarize(trades, 10000)
	assert.Equal(t, summary.MaxDrawdownPoints, -50.0)
	assert.Equal(t, summary.PayoffRatio, 0.0)
	assert.Equal(t, summary.AvgWinPoints, 0.0)
}

func TestReconciliation(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	start := time.Date(2024, time.June, 3, 11, 30, 0, 0, time.UTC)

	var trades []shared.Trade
	for idx := range 2000 {
		reason := shared.ExitReasons[rng.Intn(len(shared.ExitReasons))]
		trades = append(trades, newTrade(start.Add(time.Duration(idx)*time.Hour), shared.Long, reason,
			rng.NormFloat64()*50, rng.Float64(), 1+rng.Intn(10)))
	}

	// Ensure per-reason totals reconcile with the overall total.
	summary := Summarize(trades, 10000)
	assert.True(t, summary.ReconciliationError() <= 1e-6)

	var count int
	for _, n := range summary.ExitCounts {
		count += n
	}
	assert.Equal(t, count, len(trades))
	assert.True(t, summary.MaxDrawdownPoints <= 0)
}

func TestCompare(t *testing.T) {
	bar := Summary{TotalPoints: 100, Trades: 10, Wins: 6}
	tick := Summary{TotalPoints: 80, Trades: 11, Wins: 5}

	comparison := Compare(bar, tick)
	deltas := comparison.Deltas()
	assert.Equal(t, deltas[0].Metric, "total_pts")
	assert.Equal(t, deltas[0].Difference(), -20.0)
	assert.Equal(t, deltas[4].Metric, "trades")
	assert.Equal(t, deltas[4].Difference(), 1.0)
	assert.Equal(t, deltas[5].Difference(), -1.0)
}
