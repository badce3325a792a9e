package service

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dnldd/rebound/shared"
	"github.com/peterldowns/testy/assert"
)

const testStrategyYAML = `
mode: both
rsi_period: 2
timeframe: 30m
spread_points: 2
off_hours_spread_multiplier: 1.5
long:
  threshold: 10
  take_profit_points: 30
short:
  threshold: 90
session:
  location: America/New_York
  core_open: "10:00"
  core_close: "15:30"
markets:
  ndx:
    spread_points: 1.5
    long:
      take_profit_points: 45
  spx:
    mode: short
`

// writeStrategy writes the provided strategy yaml to a temporary file.
func writeStrategy(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "strategy.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadStrategyConfig(t *testing.T) {
	path := writeStrategy(t, testStrategyYAML)
	t.Setenv("REBOUND_LONG_STOP_LOSS_POINTS", "90")

	cfg, err := LoadStrategyConfig(path, "NDX")
	assert.NoError(t, err)

	// Ensure market overrides win over globals, and globals over defaults.
	strategy := cfg.Strategy
	assert.Equal(t, strategy.Market, "NDX")
	assert.Equal(t, strategy.Mode, shared.Both)
	assert.Equal(t, strategy.Timeframe, shared.ThirtyMinute)
	assert.Equal(t, strategy.SpreadPoints, 1.5)
	assert.Equal(t, strategy.OffHoursSpreadMultiplier, 1.5)
	assert.Equal(t, strategy.Long.Threshold, 10.0)
	assert.Equal(t, strategy.Long.TakeProfitPoints, 45.0)
	assert.Equal(t, strategy.Long.UseTrailingStop, true)
	assert.Equal(t, strategy.Short.Threshold, 90.0)
	assert.Equal(t, strategy.Short.TakeProfitPoints, 40.0)
	assert.Equal(t, strategy.StartingCapital, 10000.0)

	// Ensure environment overrides apply.
	assert.Equal(t, strategy.Long.StopLossPoints, 90.0)

	// Ensure the session section resolves.
	assert.Equal(t, cfg.Session.Location.String(), "America/New_York")
	assert.Equal(t, cfg.Session.Open, "09:30")
	assert.Equal(t, cfg.Session.CoreOpen, "10:00")
	assert.Equal(t, cfg.Session.NoTradeFirstMinutes, 30)

	// Ensure other markets get their own overrides and globals otherwise.
	cfg, err = LoadStrategyConfig(path, "SPX")
	assert.NoError(t, err)
	assert.Equal(t, cfg.Strategy.Mode, shared.ShortOnly)
	assert.Equal(t, cfg.Strategy.SpreadPoints, 2.0)
	assert.Equal(t, cfg.Strategy.Long.TakeProfitPoints, 30.0)
}

func TestLoadStrategyConfigDefaults(t *testing.T) {
	// Ensure an empty path yields the defaults.
	cfg, err := LoadStrategyConfig("", "NDX")
	assert.NoError(t, err)
	assert.Equal(t, cfg.Strategy.Mode, shared.LongOnly)
	assert.Equal(t, cfg.Strategy.RSIPeriod, 2)
	assert.Equal(t, cfg.Strategy.Long.Threshold, 5.0)
	assert.Equal(t, cfg.Strategy.Long.StopLossPoints, 100.0)
	assert.Equal(t, cfg.Strategy.Short.Threshold, 96.0)
	assert.Equal(t, cfg.Session.Close, "16:00")
}

func TestLoadStrategyConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid mode", "mode: sideways\n"},
		{"invalid timeframe", "timeframe: 7m\n"},
		{"invalid rsi period", "rsi_period: 0\n"},
		{"contradictory thresholds", "mode: both\nlong:\n  threshold: 60\nshort:\n  threshold: 40\n"},
		{"unknown location", "session:\n  location: Mars/Olympus\n"},
		{"malformed yaml", "long: [\n"},
	}

	// Ensure invalid strategy files are configuration errors.
	for _, test := range tests {
		_, err := LoadStrategyConfig(writeStrategy(t, test.content), "NDX")
		if !errors.Is(err, shared.ErrConfiguration) {
			t.Errorf("%s: expected a configuration error, got %v", test.name, err)
		}
	}

	// Ensure a missing file is reported.
	_, err := LoadStrategyConfig(filepath.Join(t.TempDir(), "missing.yaml"), "NDX")
	assert.Error(t, err)
}
