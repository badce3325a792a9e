package fetch

import (
	"fmt"
	"os"

	"github.com/dnldd/rebound/shared"
	"github.com/tidwall/gjson"
)

// loadHistoricData loads the historic data records from the provided json file path.
func loadHistoricData(path string) ([]gjson.Result, error) {
	readb, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading historic data from file with path '%s': %w", path, err)
	}
	if !gjson.ValidBytes(readb) {
		return nil, fmt.Errorf("%w: %s is not valid json", shared.ErrData, path)
	}

	data := gjson.ParseBytes(readb)
	if !data.IsArray() {
		// Accept wrapped payloads such as {"historical": [...]}.
		data = data.Get("historical")
	}
	if !data.IsArray() {
		return nil, fmt.Errorf("%w: %s does not hold an array of bars", shared.ErrData, path)
	}

	return data.Array(), nil
}

// LoadCandlesticksJSON loads candlesticks from a json array of bars with date, open,
// high, low, close and optional volume fields.
func (l *Loader) LoadCandlesticksJSON(path string) ([]shared.Candlestick, error) {
	data, err := loadHistoricData(path)
	if err != nil {
		return nil, err
	}

	return l.ParseCandlesticks(data)
}

// ParseCandlesticks parses candlesticks from the provided json records.
func (l *Loader) ParseCandlesticks(data []gjson.Result) ([]shared.Candlestick, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no bars provided", shared.ErrData)
	}

	candles := make([]shared.Candlestick, len(data))
	for idx := range data {
		record := data[idx]
		for _, field := range []string{"open", "high", "low", "close"} {
			if record.Get(field).Type != gjson.Number {
				return nil, fmt.Errorf("%w: bar %d has no numeric %s", shared.ErrData, idx, field)
			}
		}

		date := record.Get("date")
		if !date.Exists() {
			date = record.Get("timestamp")
		}

		dt, err := l.parseTimestamp(date.String())
		if err != nil {
			return nil, fmt.Errorf("parsing candlestick %d date: %w", idx, err)
		}

		candles[idx] = shared.Candlestick{
			Open:      record.Get("open").Float(),
			Low:       record.Get("low").Float(),
			High:      record.Get("high").Float(),
			Close:     record.Get("close").Float(),
			Volume:    record.Get("volume").Float(),
			Date:      dt,
			Market:    l.cfg.Market,
			Timeframe: l.cfg.Timeframe,
		}
	}

	return finalizeCandlesticks(candles)
}
