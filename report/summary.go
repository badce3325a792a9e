package report

import (
	"math"

	"github.com/dnldd/rebound/shared"
	"github.com/shopspring/decimal"
)

// Summary represents the aggregate statistics of a trade ledger.
type Summary struct {
	Trades      int
	LongTrades  int
	ShortTrades int
	// Wins counts take profit exits only.
	Wins int
	// Losses counts stop loss exits and losing end of day exits.
	Losses int
	// WinRate is wins as a percent of trades.
	WinRate float64
	// AvgWinPoints is the mean of all profitable trades.
	AvgWinPoints float64
	// AvgLossPoints is the mean of all losing trades, negative.
	AvgLossPoints    float64
	PayoffRatio      float64
	ExpectancyPoints float64
	GrossPoints      float64
	// TotalPoints is the net points after overnight charges.
	TotalPoints              float64
	OvernightChargesPoints   float64
	OvernightChargesCurrency float64
	TotalCurrency            float64
	// MaxDrawdownPoints is the deepest fall of the cumulative points curve from its running
	// maximum, zero or negative.
	MaxDrawdownPoints float64
	AvgBarsHeld       float64
	ExitCounts        map[shared.ExitReason]int
	PointsByReason    map[shared.ExitReason]float64
	EODProfitable     int
	EODBreakeven      int
	EODLosses         int
	StartingCapital   float64
	FinalBalance      float64
	ReturnPercent     float64
}

// Summarize aggregates the provided trade ledger, ordered by entry time.
func Summarize(trades []shared.Trade, startingCapital float64) Summary {
	summary := Summary{
		Trades:          len(trades),
		ExitCounts:      make(map[shared.ExitReason]int, len(shared.ExitReasons)),
		PointsByReason:  make(map[shared.ExitReason]float64, len(shared.ExitReasons)),
		StartingCapital: startingCapital,
		FinalBalance:    startingCapital,
	}
	for _, reason := range shared.ExitReasons {
		summary.ExitCounts[reason] = 0
		summary.PointsByReason[reason] = 0
	}
	if len(trades) == 0 {
		return summary
	}

	var winSum, lossSum float64
	var winCount, lossCount, barsHeld int
	var equity, peak float64
	currency := decimal.Zero
	charges := decimal.Zero

	for idx := range trades {
		trade := &trades[idx]
		switch trade.Direction {
		case shared.Long:
			summary.LongTrades++
		case shared.Short:
			summary.ShortTrades++
		}

		summary.ExitCounts[trade.ExitReason]++
		summary.PointsByReason[trade.ExitReason] += trade.NetPoints
		summary.GrossPoints += trade.GrossPoints
		summary.TotalPoints += trade.NetPoints
		summary.OvernightChargesPoints += trade.OvernightCharges
		barsHeld += trade.BarsHeld

		currency = currency.Add(decimal.NewFromFloat(trade.NetCurrency))
		charges = charges.Add(decimal.NewFromFloat(trade.GrossCurrency - trade.NetCurrency))

		switch {
		case trade.NetPoints > 0:
			winSum += trade.NetPoints
			winCount++
		case trade.NetPoints < 0:
			lossSum += trade.NetPoints
			lossCount++
		}

		if trade.ExitReason == shared.EndOfDay {
			switch {
			case trade.NetPoints > 0:
				summary.EODProfitable++
			case trade.NetPoints < 0:
				summary.EODLosses++
			default:
				summary.EODBreakeven++
			}
		}

		equity += trade.NetPoints
		if idx == 0 || equity > peak {
			peak = equity
		}
		summary.MaxDrawdownPoints = math.Min(summary.MaxDrawdownPoints, equity-peak)
	}

	n := float64(len(trades))
	summary.Wins = summary.ExitCounts[shared.TakeProfit]
	summary.Losses = summary.ExitCounts[shared.StopLoss] + summary.EODLosses
	summary.WinRate = float64(summary.Wins) / n * 100
	if winCount > 0 {
		summary.AvgWinPoints = winSum / float64(winCount)
	}
	if lossCount > 0 {
		summary.AvgLossPoints = lossSum / float64(lossCount)
		summary.PayoffRatio = math.Abs(summary.AvgWinPoints / summary.AvgLossPoints)
	}
	summary.ExpectancyPoints = summary.TotalPoints / n
	summary.AvgBarsHeld = float64(barsHeld) / n

	summary.TotalCurrency = currency.InexactFloat64()
	summary.OvernightChargesCurrency = charges.InexactFloat64()
	final := decimal.NewFromFloat(startingCapital).Add(currency)
	summary.FinalBalance = final.InexactFloat64()
	if startingCapital != 0 {
		summary.ReturnPercent = currency.Div(decimal.NewFromFloat(startingCapital)).
			Mul(decimal.NewFromInt(100)).InexactFloat64()
	}

	return summary
}

// ReconciliationError returns the absolute difference between the per exit reason
// point totals and the overall total. It should never exceed 1e-6.
func (s *Summary) ReconciliationError() float64 {
	var sum float64
	for _, points := range s.PointsByReason {
		sum += points
	}

	return math.Abs(sum - s.TotalPoints)
}
