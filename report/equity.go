package report

import (
	"time"

	"github.com/dnldd/rebound/shared"
)

// EquityPoint represents the cumulative result after a closed trade.
type EquityPoint struct {
	Date     time.Time
	Points   float64
	Currency float64
}

// EquityCurve returns the cumulative net points and currency after each trade, in
// ledger order and stamped with each trade's exit time.
func EquityCurve(trades []shared.Trade) []EquityPoint {
	curve := make([]EquityPoint, len(trades))
	var points, currency float64
	for idx := range trades {
		points += trades[idx].NetPoints
		currency += trades[idx].NetCurrency
		curve[idx] = EquityPoint{
			Date:     trades[idx].ExitTime,
			Points:   points,
			Currency: currency,
		}
	}

	return curve
}
