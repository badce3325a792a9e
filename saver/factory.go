package saver

import (
	"fmt"
	"strings"

	"github.com/dnldd/rebound/shared"
)

// Formats lists the supported ledger formats.
var Formats = []string{"csv", "json", "parquet"}

// NewLedgerSaver returns the ledger saver of the provided format (csv, json, parquet).
func NewLedgerSaver(format string) (LedgerSaver, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVSaver{}, nil
	case "json":
		return JSONSaver{}, nil
	case "parquet":
		return ParquetSaver{}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported ledger format %q (use: %s)", shared.ErrConfiguration,
			format, strings.Join(Formats, ", "))
	}
}
