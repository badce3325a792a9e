package fetch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dnldd/rebound/shared"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// columnAliases maps accepted header names to their canonical column.
var columnAliases = map[string]string{
	"datetime": "timestamp",
	"date":     "timestamp",
	"time":     "timestamp",
}

// csvTable represents a csv file indexed by canonical column name.
type csvTable struct {
	path    string
	columns map[string]int
	rows    [][]string
}

// readCSV reads the provided csv file, tolerating byte order marks and utf-16 encodings.
func readCSV(path string, required []string) (*csvTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(transform.NewReader(f, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s is empty", shared.ErrData, path)
		}
		return nil, fmt.Errorf("%w: reading header of %s: %v", shared.ErrData, path, err)
	}

	table := &csvTable{path: path, columns: make(map[string]int, len(header))}
	for idx, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		if alias, ok := columnAliases[name]; ok {
			name = alias
		}
		if _, ok := table.columns[name]; !ok {
			table.columns[name] = idx
		}
	}

	var missing []string
	for _, name := range required {
		if _, ok := table.columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s is missing required columns %s", shared.ErrData, path,
			strings.Join(missing, ", "))
	}

	table.rows, err = reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", shared.ErrData, path, err)
	}
	if len(table.rows) == 0 {
		return nil, fmt.Errorf("%w: %s has no rows", shared.ErrData, path)
	}

	return table, nil
}

// has reports whether the table has the provided column.
func (t *csvTable) has(column string) bool {
	_, ok := t.columns[column]
	return ok
}

// value returns the raw value of a column in the provided row.
func (t *csvTable) value(row int, column string) string {
	idx := t.columns[column]
	if idx >= len(t.rows[row]) {
		return ""
	}

	return t.rows[row][idx]
}

// float parses a numeric column in the provided row.
func (t *csvTable) float(row int, column string) (float64, error) {
	raw := strings.TrimSpace(t.value(row, column))
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s row %d: parsing %s %q", shared.ErrData, t.path, row+2, column, raw)
	}

	return val, nil
}

// LoadCandlesticksCSV loads candlesticks from a csv file with timestamp, open, high, low and
// close columns and an optional volume column.
func (l *Loader) LoadCandlesticksCSV(path string) ([]shared.Candlestick, error) {
	table, err := readCSV(path, []string{"timestamp", "open", "high", "low", "close"})
	if err != nil {
		return nil, err
	}

	hasVolume := table.has("volume")
	candles := make([]shared.Candlestick, len(table.rows))
	for row := range table.rows {
		candle := &candles[row]
		candle.Market = l.cfg.Market
		candle.Timeframe = l.cfg.Timeframe

		candle.Date, err = l.parseTimestamp(table.value(row, "timestamp"))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, row+2, err)
		}

		fields := []struct {
			column string
			dst    *float64
		}{
			{"open", &candle.Open},
			{"high", &candle.High},
			{"low", &candle.Low},
			{"close", &candle.Close},
		}
		if hasVolume {
			fields = append(fields, struct {
				column string
				dst    *float64
			}{"volume", &candle.Volume})
		}

		for _, field := range fields {
			*field.dst, err = table.float(row, field.column)
			if err != nil {
				return nil, err
			}
		}
	}

	return finalizeCandlesticks(candles)
}

// LoadTicksCSV loads ordered ticks from a csv file with timestamp, bid and ask columns.
func (l *Loader) LoadTicksCSV(path string) ([]shared.Tick, error) {
	table, err := readCSV(path, []string{"timestamp", "bid", "ask"})
	if err != nil {
		return nil, err
	}

	ticks := make([]shared.Tick, len(table.rows))
	for row := range table.rows {
		tick := &ticks[row]
		tick.Date, err = l.parseTimestamp(table.value(row, "timestamp"))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, row+2, err)
		}
		tick.Bid, err = table.float(row, "bid")
		if err != nil {
			return nil, err
		}
		tick.Ask, err = table.float(row, "ask")
		if err != nil {
			return nil, err
		}
	}

	sortByDate(ticks, func(t *shared.Tick) time.Time { return t.Date })
	ticks = dedupeTicks(ticks)
	err = shared.ValidateTicks(ticks)
	if err != nil {
		return nil, err
	}

	l.cfg.Logger.Info().Msgf("loaded %d %s ticks from %s", len(ticks), l.cfg.Market, path)

	return ticks, nil
}

// dedupeTicks keeps the last quote of ticks sharing a timestamp.
func dedupeTicks(ticks []shared.Tick) []shared.Tick {
	out := ticks[:0]
	for idx := range ticks {
		if len(out) > 0 && out[len(out)-1].Date.Equal(ticks[idx].Date) {
			out[len(out)-1] = ticks[idx]
			continue
		}
		out = append(out, ticks[idx])
	}

	return out
}

// sortByDate stably orders the provided items by their timestamp.
func sortByDate[T any](items []T, date func(*T) time.Time) {
	slices.SortStableFunc(items, func(a, b T) int {
		return date(&a).Compare(date(&b))
	})
}
