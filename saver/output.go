package saver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dnldd/rebound/report"
	"github.com/dnldd/rebound/shared"
)

// RunOutput describes the results of a single backtest run to persist.
type RunOutput struct {
	// Market is the market the run traded.
	Market string
	// Fidelity is the simulator fidelity of the run.
	Fidelity string
	// Label optionally distinguishes runs sharing a take profit, such as bar and tick runs
	// of a comparison.
	Label string
	// TakeProfit is the take profit distance the run used.
	TakeProfit float64
	Trades     []shared.Trade
	Summary    *report.Summary
}

// RunPaths holds the files written for a run.
type RunPaths struct {
	Trades  string
	Equity  string
	Summary string
}

// fileStem returns the file name stem for the provided output kind, for example trades_tp40.
func fileStem(kind string, label string, takeProfit float64) string {
	tp := strconv.FormatFloat(takeProfit, 'f', -1, 64)
	if label == "" {
		return fmt.Sprintf("%s_tp%s", kind, tp)
	}

	return fmt.Sprintf("%s_%s_tp%s", kind, label, tp)
}

// SaveRun writes the trade ledger, equity curve and summary of a run to the provided
// directory. The summary is always written as json.
func SaveRun(saver LedgerSaver, dir string, run *RunOutput) (*RunPaths, error) {
	if saver == nil {
		return nil, fmt.Errorf("%w: ledger saver cannot be nil", shared.ErrConfiguration)
	}
	if run.Summary == nil {
		return nil, errors.New("run summary cannot be nil")
	}

	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("creating output directory %s: %w", dir, err)
	}

	ext := saver.Extension()
	paths := &RunPaths{
		Trades:  filepath.Join(dir, fileStem("trades", run.Label, run.TakeProfit)+"."+ext),
		Equity:  filepath.Join(dir, fileStem("equity", run.Label, run.TakeProfit)+"."+ext),
		Summary: filepath.Join(dir, fileStem("summary", run.Label, run.TakeProfit)+".json"),
	}

	err = saver.SaveTrades(NewTradeRows(run.Trades), paths.Trades)
	if err != nil {
		return nil, fmt.Errorf("saving trades to %s: %w", paths.Trades, err)
	}
	err = saver.SaveEquity(NewEquityRows(report.EquityCurve(run.Trades)), paths.Equity)
	if err != nil {
		return nil, fmt.Errorf("saving equity curve to %s: %w", paths.Equity, err)
	}
	summary := NewSummaryFile(run.Market, run.Fidelity, run.TakeProfit, run.Summary)
	err = writeJSON(paths.Summary, summary)
	if err != nil {
		return nil, fmt.Errorf("saving summary to %s: %w", paths.Summary, err)
	}

	return paths, nil
}
