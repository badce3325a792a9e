package fetch

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dnldd/rebound/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog/log"
)

// writeFile writes the provided content to a file in a temporary directory.
func writeFile(t *testing.T, name string, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	err := os.WriteFile(path, []byte(content), 0o600)
	assert.NoError(t, err)
	return path
}

// newTestLoader creates a loader for half hour bars.
func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	loader, err := NewLoader(&LoaderConfig{
		Market:    "NDX",
		Timeframe: shared.ThirtyMinute,
		Logger:    &log.Logger,
	})
	assert.NoError(t, err)
	return loader
}

func TestLoaderConfig(t *testing.T) {
	// Ensure invalid loader configuration is rejected.
	_, err := NewLoader(&LoaderConfig{Timeframe: shared.Timeframe(30)})
	assert.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrConfiguration))
}

func TestLoadCandlesticksCSV(t *testing.T) {
	loader := newTestLoader(t)

	// Ensure aliased headers, byte order marks and unordered rows are handled.
	path := writeFile(t, "bars.csv", "\ufeffDateTime,Open,High,Low,Close\n"+
		"2024-06-03 14:00:00,101,103,100,102\n"+
		"2024-06-03 13:30:00,100,102,99,101\n")
	candles, err := loader.LoadCandlesticks(path)
	assert.NoError(t, err)
	assert.Equal(t, len(candles), 2)
	assert.Equal(t, candles[0].Open, 100.0)
	assert.Equal(t, candles[0].Date, time.Date(2024, time.June, 3, 13, 30, 0, 0, time.UTC))
	assert.Equal(t, candles[1].Close, 102.0)
	assert.Equal(t, candles[1].Volume, 0.0)
	assert.Equal(t, candles[1].Market, "NDX")
	assert.Equal(t, candles[1].Timeframe, shared.ThirtyMinute)

	// Ensure zoned timestamps and volume are read.
	path = writeFile(t, "zoned.csv", "timestamp,open,high,low,close,volume\n"+
		"2024-06-03T09:30:00-04:00,100,102,99,101,1500\n")
	candles, err = loader.LoadCandlesticksCSV(path)
	assert.NoError(t, err)
	assert.True(t, candles[0].Date.Equal(time.Date(2024, time.June, 3, 13, 30, 0, 0, time.UTC)))
	assert.Equal(t, candles[0].Volume, 1500.0)

	tests := []struct {
		name    string
		content string
	}{
		{"missing columns", "timestamp,open,close\n2024-06-03 13:30:00,1,1\n"},
		{"empty file", ""},
		{"header only", "timestamp,open,high,low,close\n"},
		{"bad timestamp", "timestamp,open,high,low,close\nyesterday,1,1,1,1\n"},
		{"bad number", "timestamp,open,high,low,close\n2024-06-03 13:30:00,one,1,1,1\n"},
		{"inconsistent bar", "timestamp,open,high,low,close\n2024-06-03 13:30:00,5,1,2,1\n"},
		{"duplicate bars", "timestamp,open,high,low,close\n2024-06-03 13:30:00,1,1,1,1\n2024-06-03 13:30:00,1,1,1,1\n"},
	}

	// Ensure malformed input is a data error.
	for _, test := range tests {
		path := writeFile(t, "bad.csv", test.content)
		_, err := loader.LoadCandlesticksCSV(path)
		if !errors.Is(err, shared.ErrData) {
			t.Errorf("%s: expected a data error, got %v", test.name, err)
		}
	}

	// Ensure unknown extensions are rejected.
	_, err = loader.LoadCandlesticks(writeFile(t, "bars.txt", "x"))
	assert.True(t, errors.Is(err, shared.ErrData))
}

func TestLoadCandlesticksLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	assert.NoError(t, err)

	loader, err := NewLoader(&LoaderConfig{
		Market:    "NDX",
		Timeframe: shared.ThirtyMinute,
		Location:  loc,
		Logger:    &log.Logger,
	})
	assert.NoError(t, err)

	// Ensure naive timestamps are read in the configured location.
	path := writeFile(t, "bars.csv", "timestamp,open,high,low,close\n2024-06-03 09:30:00,1,1,1,1\n")
	candles, err := loader.LoadCandlesticksCSV(path)
	assert.NoError(t, err)
	assert.True(t, candles[0].Date.Equal(time.Date(2024, time.June, 3, 9, 30, 0, 0, loc)))
}

func TestLoadCandlesticksJSON(t *testing.T) {
	loader := newTestLoader(t)

	path := writeFile(t, "bars.json", `[
		{"date": "2024-06-03 14:00:00", "open": 101, "high": 103, "low": 100, "close": 102, "volume": 20},
		{"date": "2024-06-03 13:30:00", "open": 100, "high": 102, "low": 99, "close": 101, "volume": 10}
	]`)
	candles, err := loader.LoadCandlesticks(path)
	assert.NoError(t, err)
	assert.Equal(t, len(candles), 2)
	assert.Equal(t, candles[0].Volume, 10.0)
	assert.Equal(t, candles[1].High, 103.0)

	// Ensure wrapped payloads are accepted.
	path = writeFile(t, "wrapped.json", `{"symbol": "NDX", "historical": [
		{"date": "2024-06-03 13:30:00", "open": 100, "high": 102, "low": 99, "close": 101}
	]}`)
	candles, err = loader.LoadCandlesticksJSON(path)
	assert.NoError(t, err)
	assert.Equal(t, len(candles), 1)

	tests := []struct {
		name    string
		content string
	}{
		{"invalid json", `[{"date": `},
		{"not an array", `{"date": "2024-06-03 13:30:00"}`},
		{"empty array", `[]`},
		{"missing price", `[{"date": "2024-06-03 13:30:00", "open": 1, "high": 1, "low": 1}]`},
		{"bad date", `[{"date": "soon", "open": 1, "high": 1, "low": 1, "close": 1}]`},
	}

	// Ensure malformed input is a data error.
	for _, test := range tests {
		_, err := loader.LoadCandlesticksJSON(writeFile(t, "bad.json", test.content))
		if !errors.Is(err, shared.ErrData) {
			t.Errorf("%s: expected a data error, got %v", test.name, err)
		}
	}

	// Ensure a missing file is reported.
	_, err = loader.LoadCandlesticksJSON(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadTicksCSV(t *testing.T) {
	loader := newTestLoader(t)

	// Ensure ticks are ordered and duplicate timestamps keep the last quote.
	path := writeFile(t, "ticks.csv", "timestamp,bid,ask,mid\n"+
		"2024-06-03 13:30:02,100.5,101.5,101\n"+
		"2024-06-03 13:30:01,100,101,100.5\n"+
		"2024-06-03 13:30:02,100.75,101.75,101.25\n")
	ticks, err := loader.LoadTicksCSV(path)
	assert.NoError(t, err)
	assert.Equal(t, len(ticks), 2)
	assert.Equal(t, ticks[0].Bid, 100.0)
	assert.Equal(t, ticks[1].Bid, 100.75)

	// Ensure crossed quotes are a data error.
	path = writeFile(t, "crossed.csv", "timestamp,bid,ask\n2024-06-03 13:30:01,101,100\n")
	_, err = loader.LoadTicksCSV(path)
	assert.True(t, errors.Is(err, shared.ErrData))

	// Ensure missing columns are a data error.
	path = writeFile(t, "nobid.csv", "timestamp,ask\n2024-06-03 13:30:01,101\n")
	_, err = loader.LoadTicksCSV(path)
	assert.True(t, errors.Is(err, shared.ErrData))
}

func TestBuildCandlesticks(t *testing.T) {
	start := time.Date(2024, time.June, 3, 13, 30, 0, 0, time.UTC)
	ticks := []shared.Tick{
		{Date: start.Add(time.Minute), Bid: 99, Ask: 101},
		{Date: start.Add(time.Minute * 10), Bid: 104, Ask: 106},
		{Date: start.Add(time.Minute * 20), Bid: 94, Ask: 96},
		{Date: start.Add(time.Minute * 29), Bid: 101, Ask: 103},
		{Date: start.Add(time.Minute * 95), Bid: 109, Ask: 111},
	}

	candles, err := BuildCandlesticks(ticks, "NDX", shared.ThirtyMinute)
	assert.NoError(t, err)

	// Ensure mid price ohlc buckets are built and empty buckets are skipped.
	assert.Equal(t, len(candles), 2)
	assert.True(t, candles[0].Date.Equal(start))
	assert.Equal(t, candles[0].Open, 100.0)
	assert.Equal(t, candles[0].High, 105.0)
	assert.Equal(t, candles[0].Low, 95.0)
	assert.Equal(t, candles[0].Close, 102.0)
	assert.Equal(t, candles[0].Volume, 4.0)
	assert.True(t, candles[1].Date.Equal(start.Add(time.Minute*90)))
	assert.Equal(t, candles[1].Open, 110.0)
	assert.NoError(t, shared.ValidateCandlesticks(candles))

	// Ensure zoned ticks bucket on utc hour boundaries and keep their location.
	loc, err := time.LoadLocation("America/New_York")
	assert.NoError(t, err)
	zoned := []shared.Tick{
		{Date: time.Date(2024, time.June, 3, 9, 45, 0, 0, loc), Bid: 99, Ask: 101},
		{Date: time.Date(2024, time.June, 3, 10, 15, 0, 0, loc), Bid: 99, Ask: 101},
	}
	candles, err = BuildCandlesticks(zoned, "NDX", shared.OneHour)
	assert.NoError(t, err)
	assert.Equal(t, len(candles), 2)
	assert.True(t, candles[0].Date.Equal(time.Date(2024, time.June, 3, 13, 0, 0, 0, time.UTC)))
	assert.True(t, candles[1].Date.Equal(time.Date(2024, time.June, 3, 14, 0, 0, 0, time.UTC)))
	assert.Equal(t, candles[1].Date.Location(), loc)

	_, err = BuildCandlesticks(nil, "NDX", shared.ThirtyMinute)
	assert.True(t, errors.Is(err, shared.ErrData))
	_, err = BuildCandlesticks(ticks, "NDX", shared.Timeframe(77))
	assert.True(t, errors.Is(err, shared.ErrConfiguration))
}

func TestTickIndex(t *testing.T) {
	start := time.Date(2024, time.June, 3, 13, 30, 0, 0, time.UTC)
	var ticks []shared.Tick
	for idx := range 10 {
		ticks = append(ticks, shared.Tick{Date: start.Add(time.Duration(idx) * time.Minute * 10), Bid: 1, Ask: 2})
	}

	index := NewTickIndex(ticks)
	assert.Equal(t, index.Len(), 10)

	// Ensure the range is start inclusive and end exclusive.
	got := index.Range(start, start.Add(time.Minute*30))
	assert.Equal(t, len(got), 3)
	assert.True(t, got[0].Date.Equal(start))

	got = index.Range(start.Add(time.Minute*5), start.Add(time.Minute*31))
	assert.Equal(t, len(got), 3)

	// Ensure empty windows yield nothing.
	assert.Equal(t, len(index.Range(start.Add(-time.Hour), start)), 0)
	assert.Equal(t, len(index.Range(start.Add(time.Hour*5), start.Add(time.Hour*6))), 0)
}
