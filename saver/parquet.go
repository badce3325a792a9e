package saver

import (
	"fmt"

	"github.com/parquet-go/parquet-go"
)

// ParquetSaver writes ledgers as parquet files.
type ParquetSaver struct{}

// Extension returns the parquet file extension.
func (ParquetSaver) Extension() string {
	return "parquet"
}

// SaveTrades writes the trade ledger to the provided path.
func (ParquetSaver) SaveTrades(rows []TradeRow, path string) error {
	err := parquet.WriteFile(path, rows)
	if err != nil {
		return fmt.Errorf("writing parquet trades to %s: %w", path, err)
	}

	return nil
}

// SaveEquity writes the equity curve to the provided path.
func (ParquetSaver) SaveEquity(rows []EquityRow, path string) error {
	err := parquet.WriteFile(path, rows)
	if err != nil {
		return fmt.Errorf("writing parquet equity to %s: %w", path, err)
	}

	return nil
}
