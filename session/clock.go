package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/dnldd/rebound/shared"
)

const (
	// Default cash session for us index markets in new york time.
	DefaultLocation            = "America/New_York"
	DefaultOpen                = "09:30"
	DefaultClose               = "16:00"
	DefaultNoTradeFirstMinutes = 30
)

// Config is the configuration for the session clock.
type Config struct {
	// Location is the time zone session times are expressed in.
	Location *time.Location
	// Open is the session open time of day (15:04).
	Open string
	// Close is the session close time of day (15:04).
	Close string
	// NoTradeFirstMinutes is the warm-up period after the open where entries are not allowed.
	NoTradeFirstMinutes int
	// CoreOpen is the start of the tight-spread window, defaults to Open.
	CoreOpen string
	// CoreClose is the end of the tight-spread window, defaults to Close.
	CoreClose string
}

// DefaultConfig returns the default new york cash session configuration.
func DefaultConfig() (*Config, error) {
	loc, err := time.LoadLocation(DefaultLocation)
	if err != nil {
		return nil, fmt.Errorf("loading %s timezone: %w", DefaultLocation, err)
	}

	return &Config{
		Location:            loc,
		Open:                DefaultOpen,
		Close:               DefaultClose,
		NoTradeFirstMinutes: DefaultNoTradeFirstMinutes,
	}, nil
}

// Clock answers session questions about timestamps in a configured time zone.
// Offsets are durations since local midnight.
type Clock struct {
	loc        *time.Location
	open       time.Duration
	close      time.Duration
	entryStart time.Duration
	coreOpen   time.Duration
	coreClose  time.Duration
}

// parseTimeOfDay parses the provided session time into an offset from midnight.
func parseTimeOfDay(name string, value string) (time.Duration, error) {
	t, err := time.Parse(shared.SessionTimeLayout, value)
	if err != nil {
		return 0, fmt.Errorf("%w: parsing %s %q: %v", shared.ErrConfiguration, name, value, err)
	}

	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// NewClock initializes a session clock.
func NewClock(cfg *Config) (*Clock, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: session config cannot be nil", shared.ErrConfiguration)
	}

	var errs error
	if cfg.Location == nil {
		errs = errors.Join(errs, fmt.Errorf("%w: session location cannot be nil", shared.ErrConfiguration))
	}
	if cfg.NoTradeFirstMinutes < 0 {
		errs = errors.Join(errs, fmt.Errorf("%w: no trade first minutes cannot be negative",
			shared.ErrConfiguration))
	}

	sessionOpen, err := parseTimeOfDay("session open", cfg.Open)
	errs = errors.Join(errs, err)
	sessionClose, err := parseTimeOfDay("session close", cfg.Close)
	errs = errors.Join(errs, err)
	if errs != nil {
		return nil, errs
	}

	if sessionClose <= sessionOpen {
		return nil, fmt.Errorf("%w: session close %s must be after open %s",
			shared.ErrConfiguration, cfg.Close, cfg.Open)
	}

	entryStart := sessionOpen + time.Duration(cfg.NoTradeFirstMinutes)*time.Minute
	if entryStart >= sessionClose {
		return nil, fmt.Errorf("%w: no trade window of %d minutes leaves no entry time",
			shared.ErrConfiguration, cfg.NoTradeFirstMinutes)
	}

	coreOpen, coreClose := sessionOpen, sessionClose
	if cfg.CoreOpen != "" {
		coreOpen, err = parseTimeOfDay("core open", cfg.CoreOpen)
		if err != nil {
			return nil, err
		}
	}
	if cfg.CoreClose != "" {
		coreClose, err = parseTimeOfDay("core close", cfg.CoreClose)
		if err != nil {
			return nil, err
		}
	}
	if coreClose <= coreOpen {
		return nil, fmt.Errorf("%w: core close must be after core open", shared.ErrConfiguration)
	}

	clock := &Clock{
		loc:        cfg.Location,
		open:       sessionOpen,
		close:      sessionClose,
		entryStart: entryStart,
		coreOpen:   coreOpen,
		coreClose:  coreClose,
	}

	return clock, nil
}

// Location returns the time zone of the clock.
func (c *Clock) Location() *time.Location {
	return c.loc
}

// Localize converts the provided timestamp to the clock's time zone.
func (c *Clock) Localize(ts time.Time) time.Time {
	return ts.In(c.loc)
}

// timeOfDay returns the local offset from midnight of the provided timestamp.
func (c *Clock) timeOfDay(ts time.Time) time.Duration {
	local := c.Localize(ts)
	return time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second +
		time.Duration(local.Nanosecond())
}

// IsSessionOpen reports whether the provided timestamp is within the session.
func (c *Clock) IsSessionOpen(ts time.Time) bool {
	tod := c.timeOfDay(ts)
	return tod >= c.open && tod < c.close
}

// IsEntryAllowed reports whether new positions may be signalled at the provided timestamp.
func (c *Clock) IsEntryAllowed(ts time.Time) bool {
	tod := c.timeOfDay(ts)
	return tod >= c.entryStart && tod < c.close
}

// IsEODBar reports whether a bar starting at the provided timestamp reaches the session close.
func (c *Clock) IsEODBar(ts time.Time, barDuration time.Duration) bool {
	return c.timeOfDay(ts)+barDuration >= c.close
}

// IsCoreHours reports whether the provided timestamp is within the tight-spread window.
func (c *Clock) IsCoreHours(ts time.Time) bool {
	tod := c.timeOfDay(ts)
	return tod >= c.coreOpen && tod < c.coreClose
}

// TradingDate returns the local calendar date of the provided timestamp.
func (c *Clock) TradingDate(ts time.Time) shared.Date {
	return shared.NewDate(c.Localize(ts))
}

// AnnotatedBar represents an in-session candlestick and its session annotations.
type AnnotatedBar struct {
	shared.Candlestick
	EntryAllowed bool
	EOD          bool
	TradingDate  shared.Date
}

// Annotate filters the provided candlesticks to those within the session and annotates them.
func (c *Clock) Annotate(candles []shared.Candlestick) []AnnotatedBar {
	bars := make([]AnnotatedBar, 0, len(candles))
	for idx := range candles {
		candle := candles[idx]
		if !c.IsSessionOpen(candle.Date) {
			continue
		}

		bars = append(bars, AnnotatedBar{
			Candlestick:  candle,
			EntryAllowed: c.IsEntryAllowed(candle.Date),
			EOD:          c.IsEODBar(candle.Date, candle.Timeframe.Duration()),
			TradingDate:  c.TradingDate(candle.Date),
		})
	}

	return bars
}
