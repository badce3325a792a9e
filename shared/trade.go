package shared

import "time"

// Trade represents a closed position.
type Trade struct {
	ID               string
	Market           string
	Direction        Direction
	EntryPrice       float64
	EntryTime        time.Time
	ExitPrice        float64
	ExitTime         time.Time
	ExitReason       ExitReason
	TakeProfitPoints float64
	StopLossPoints   float64
	// GrossPoints is the price move captured by the trade.
	GrossPoints float64
	// OvernightCharges is the accumulated overnight funding in points.
	OvernightCharges float64
	// NetPoints is the gross points less overnight charges.
	NetPoints     float64
	GrossCurrency float64
	NetCurrency   float64
	DaysHeld      int
	BarsHeld      int
}

// IsWin reports whether the trade closed in profit.
func (t *Trade) IsWin() bool {
	return t.NetPoints > 0
}
