package saver

// LedgerSaver persists trade ledgers and equity curves in a file format.
type LedgerSaver interface {
	// SaveTrades writes the provided trade rows to path.
	SaveTrades(rows []TradeRow, path string) error
	// SaveEquity writes the provided equity rows to path.
	SaveEquity(rows []EquityRow, path string) error
	// Extension returns the file extension of the format, without a leading dot.
	Extension() string
}
