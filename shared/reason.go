package shared

import (
	"fmt"
	"strings"
)

// ExitReason represents the reason a position was closed.
type ExitReason int

const (
	TakeProfit ExitReason = iota
	StopLoss
	TrailingStopLoss
	EndOfDay
	MaxHoldDays
)

// ExitReasons lists every exit reason in report order.
var ExitReasons = []ExitReason{TakeProfit, StopLoss, TrailingStopLoss, EndOfDay, MaxHoldDays}

// String stringifies the provided exit reason.
func (r ExitReason) String() string {
	switch r {
	case TakeProfit:
		return "TP"
	case StopLoss:
		return "SL"
	case TrailingStopLoss:
		return "TRAILING_SL"
	case EndOfDay:
		return "EOD"
	case MaxHoldDays:
		return "MAX_HOLD_DAYS"
	default:
		return "unknown"
	}
}

// ParseExitReason parses the provided exit reason string.
func ParseExitReason(s string) (ExitReason, error) {
	for _, reason := range ExitReasons {
		if strings.EqualFold(reason.String(), s) {
			return reason, nil
		}
	}

	return 0, fmt.Errorf("unknown exit reason %q", s)
}

// Direction represents position direction.
type Direction int

const (
	Long Direction = iota
	Short
)

// String stringifies the provided direction.
func (d Direction) String() string {
	switch d {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "unknown"
	}
}

// Sign returns 1 for long and -1 for short, the multiplier converting a raw
// price difference into profit.
func (d Direction) Sign() float64 {
	if d == Short {
		return -1
	}

	return 1
}

// IsExtreme reports whether the provided rsi value is at or beyond the direction's
// threshold, oversold for long and overbought for short.
func (d Direction) IsExtreme(rsi float64, threshold float64) bool {
	if d == Short {
		return rsi >= threshold
	}

	return rsi <= threshold
}

// IsRebound reports whether the provided rsi value has moved back across the
// direction's threshold.
func (d Direction) IsRebound(rsi float64, threshold float64) bool {
	if d == Short {
		return rsi < threshold
	}

	return rsi > threshold
}

// Improves reports whether price a is more favourable than price b for the direction.
func (d Direction) Improves(a float64, b float64) bool {
	if d == Short {
		return a < b
	}

	return a > b
}

// StrategyMode represents the sides a backtest trades.
type StrategyMode int

const (
	LongOnly StrategyMode = iota
	ShortOnly
	Both
)

// String stringifies the provided strategy mode.
func (m StrategyMode) String() string {
	switch m {
	case LongOnly:
		return "long"
	case ShortOnly:
		return "short"
	case Both:
		return "both"
	default:
		return "unknown"
	}
}

// Directions returns the directions traded by the mode, long first.
func (m StrategyMode) Directions() []Direction {
	switch m {
	case LongOnly:
		return []Direction{Long}
	case ShortOnly:
		return []Direction{Short}
	case Both:
		return []Direction{Long, Short}
	default:
		return nil
	}
}

// ParseStrategyMode parses the provided strategy mode string.
func ParseStrategyMode(s string) (StrategyMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long", "long_only":
		return LongOnly, nil
	case "short", "short_only":
		return ShortOnly, nil
	case "both":
		return Both, nil
	default:
		return 0, fmt.Errorf("%w: invalid strategy mode %q, expected long, short or both",
			ErrConfiguration, s)
	}
}
