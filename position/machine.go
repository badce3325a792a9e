package position

import (
	"fmt"

	"github.com/dnldd/rebound/shared"
)

// State represents the signal state of one side of the strategy.
type State int

const (
	// Idle waits for an extreme rsi reading followed by a rebound.
	Idle State = iota
	// Armed has a signal that executes on the next bar.
	Armed
	// Open holds a position.
	Open
)

// String stringifies the provided state.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Open:
		return "open"
	default:
		return "unknown"
	}
}

// Machine tracks the rebound signal of one side of the strategy.
//
// An extreme reading (oversold for longs, overbought for shorts) latches. A latched side
// arms when the rsi crosses back over the threshold on a bar that allows entries, and the
// armed signal executes on the following bar. Latch and armed signal are discarded on a
// new trading day unless a position is open.
type Machine struct {
	direction shared.Direction
	threshold float64
	state     State
	latched   bool
	date      shared.Date
}

// NewMachine initializes a signal machine for the provided direction and rsi threshold.
func NewMachine(direction shared.Direction, threshold float64) *Machine {
	return &Machine{
		direction: direction,
		threshold: threshold,
	}
}

// Direction returns the side tracked by the machine.
func (m *Machine) Direction() shared.Direction {
	return m.direction
}

// State returns the current state of the machine.
func (m *Machine) State() State {
	return m.state
}

// Latched reports whether an extreme reading has been seen since the last reset.
func (m *Machine) Latched() bool {
	return m.latched
}

// OnBar advances the machine to the trading date of a new bar, resetting the
// day's signal when the date changes and no position is open.
func (m *Machine) OnBar(date shared.Date) {
	if date == m.date {
		return
	}

	m.date = date
	if m.state == Open {
		return
	}

	m.state = Idle
	m.latched = false
}

// OnRSI processes the bar's rsi value and reports whether an armed signal
// should be executed on this bar.
func (m *Machine) OnRSI(rsi float64, entryAllowed bool) bool {
	if m.direction.IsExtreme(rsi, m.threshold) {
		m.latched = true
	}

	switch m.state {
	case Idle:
		if m.latched && entryAllowed && m.direction.IsRebound(rsi, m.threshold) {
			m.state = Armed
			m.latched = false
		}
		return false

	case Armed:
		return true

	default:
		return false
	}
}

// transition moves the machine between states, asserting the expected current state.
func (m *Machine) transition(from State, to State) error {
	if m.state != from {
		return fmt.Errorf("%s machine: cannot move to %s from %s, expected %s",
			m.direction.String(), to.String(), m.state.String(), from.String())
	}

	m.state = to
	return nil
}

// Opened records the execution of the armed signal.
func (m *Machine) Opened() error {
	return m.transition(Armed, Open)
}

// Rejected records that the armed signal was dropped without a position.
func (m *Machine) Rejected() error {
	return m.transition(Armed, Idle)
}

// Closed records that the open position was closed.
func (m *Machine) Closed() error {
	return m.transition(Open, Idle)
}
