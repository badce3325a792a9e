package engine

import (
	"time"

	"github.com/dnldd/rebound/session"
	"github.com/dnldd/rebound/shared"
)

// spreadModel reconstructs bid and ask prices from mid prices using a time of day spread.
type spreadModel struct {
	clock              *session.Clock
	points             float64
	offHoursMultiplier float64
}

// halfSpread returns half the spread in effect at the provided time.
func (s *spreadModel) halfSpread(ts time.Time) float64 {
	half := s.points / 2
	if !s.clock.IsCoreHours(ts) {
		half *= s.offHoursMultiplier
	}

	return half
}

// entryPrice returns the fill price for entering the provided direction at a mid price,
// the ask for longs and the bid for shorts.
func (s *spreadModel) entryPrice(direction shared.Direction, mid float64, ts time.Time) float64 {
	return mid + direction.Sign()*s.halfSpread(ts)
}

// exitPrice returns the price a position in the provided direction is marked at,
// the bid for longs and the ask for shorts.
func (s *spreadModel) exitPrice(direction shared.Direction, mid float64, ts time.Time) float64 {
	return mid - direction.Sign()*s.halfSpread(ts)
}
