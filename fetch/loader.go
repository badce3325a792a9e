package fetch

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dnldd/rebound/shared"
	"github.com/rs/zerolog"
)

// timestampLayouts lists the accepted timestamp formats, zoned layouts first.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
}

// LoaderConfig represents the historic data loader configuration.
type LoaderConfig struct {
	// Market represents the historic data market.
	Market string
	// Timeframe represents the timeframe of the historic bars.
	Timeframe shared.Timeframe
	// Location is the time zone timestamps without an offset are read in, defaults to utc.
	Location *time.Location
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *LoaderConfig) Validate() error {
	var errs error

	if cfg.Market == "" {
		errs = errors.Join(errs, fmt.Errorf("%w: market cannot be an empty string", shared.ErrConfiguration))
	}
	if cfg.Timeframe.Duration() == 0 {
		errs = errors.Join(errs, fmt.Errorf("%w: unknown timeframe %d", shared.ErrConfiguration, cfg.Timeframe))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("%w: logger cannot be nil", shared.ErrConfiguration))
	}

	return errs
}

// Loader loads historic bars and ticks from disk.
type Loader struct {
	cfg *LoaderConfig
	loc *time.Location
}

// NewLoader initializes a new historic data loader.
func NewLoader(cfg *LoaderConfig) (*Loader, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating loader config: %w", err)
	}

	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	return &Loader{cfg: cfg, loc: loc}, nil
}

// parseTimestamp parses the provided timestamp, reading naive values in the loader's location.
func (l *Loader) parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		ts, err := time.ParseInLocation(layout, value, l.loc)
		if err == nil {
			return ts, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: unparseable timestamp %q", shared.ErrData, value)
}

// LoadCandlesticks loads ordered candlesticks from the provided csv or json file.
func (l *Loader) LoadCandlesticks(path string) ([]shared.Candlestick, error) {
	var candles []shared.Candlestick
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		candles, err = l.LoadCandlesticksCSV(path)
	case ".json":
		candles, err = l.LoadCandlesticksJSON(path)
	default:
		return nil, fmt.Errorf("%w: unsupported bar file extension for %s", shared.ErrData, path)
	}
	if err != nil {
		return nil, err
	}

	l.cfg.Logger.Info().Msgf("loaded %d %s %s candlesticks from %s", len(candles), l.cfg.Market,
		l.cfg.Timeframe.String(), path)

	return candles, nil
}

// finalizeCandlesticks orders the provided candlesticks and validates them.
func finalizeCandlesticks(candles []shared.Candlestick) ([]shared.Candlestick, error) {
	sortByDate(candles, func(c *shared.Candlestick) time.Time { return c.Date })
	err := shared.ValidateCandlesticks(candles)
	if err != nil {
		return nil, err
	}

	return candles, nil
}
