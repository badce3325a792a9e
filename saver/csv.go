package saver

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"
)

// CSVSaver writes ledgers as csv with a header row.
type CSVSaver struct{}

// Extension returns the csv file extension.
func (CSVSaver) Extension() string {
	return "csv"
}

// SaveTrades writes the trade ledger to the provided path.
func (CSVSaver) SaveTrades(rows []TradeRow, path string) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			r.ID, r.Market, r.Direction,
			r.EntryTime.Format(time.RFC3339), floatStr(r.EntryPrice),
			r.ExitTime.Format(time.RFC3339), floatStr(r.ExitPrice), r.ExitReason,
			floatStr(r.TakeProfitPoints), floatStr(r.StopLossPoints),
			floatStr(r.GrossPoints), floatStr(r.OvernightCharges), floatStr(r.NetPoints),
			floatStr(r.GrossCurrency), floatStr(r.NetCurrency),
			strconv.FormatInt(r.DaysHeld, 10), strconv.FormatInt(r.BarsHeld, 10),
		})
	}

	return writeCSV(path, []string{
		"id", "market", "direction", "entry_time", "entry_price", "exit_time", "exit_price",
		"exit_reason", "take_profit_points", "stop_loss_points", "gross_points",
		"overnight_charges", "net_points", "gross_currency", "net_currency", "days_held",
		"bars_held",
	}, records)
}

// SaveEquity writes the equity curve to the provided path.
func (CSVSaver) SaveEquity(rows []EquityRow, path string) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			r.Date.Format(time.RFC3339), floatStr(r.Points), floatStr(r.Currency),
		})
	}

	return writeCSV(path, []string{"date", "points", "currency"}, records)
}

// writeCSV writes the header and records to a new file at the provided path.
func writeCSV(path string, header []string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	err = w.Write(header)
	if err != nil {
		return fmt.Errorf("writing csv header to %s: %w", path, err)
	}

	err = w.WriteAll(records)
	if err != nil {
		return fmt.Errorf("writing csv records to %s: %w", path, err)
	}

	return f.Close()
}

// floatStr formats the provided float with the fewest digits that round trip.
func floatStr(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
