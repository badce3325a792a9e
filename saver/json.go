package saver

import (
	"encoding/json"
	"fmt"
	"os"
)

// JSONSaver writes ledgers as indented json arrays.
type JSONSaver struct{}

// Extension returns the json file extension.
func (JSONSaver) Extension() string {
	return "json"
}

// SaveTrades writes the trade ledger to the provided path.
func (JSONSaver) SaveTrades(rows []TradeRow, path string) error {
	return writeJSON(path, rows)
}

// SaveEquity writes the equity curve to the provided path.
func (JSONSaver) SaveEquity(rows []EquityRow, path string) error {
	return writeJSON(path, rows)
}

// writeJSON encodes the provided value as indented json to a new file at the provided path.
func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	err = enc.Encode(v)
	if err != nil {
		return fmt.Errorf("encoding json to %s: %w", path, err)
	}

	return f.Close()
}
