package saver

import (
	"time"

	"github.com/dnldd/rebound/report"
	"github.com/dnldd/rebound/shared"
)

// TradeRow is the flat trade record written by every ledger format.
type TradeRow struct {
	ID               string    `json:"id" parquet:"id"`
	Market           string    `json:"market" parquet:"market"`
	Direction        string    `json:"direction" parquet:"direction"`
	EntryTime        time.Time `json:"entry_time" parquet:"entry_time"`
	EntryPrice       float64   `json:"entry_price" parquet:"entry_price"`
	ExitTime         time.Time `json:"exit_time" parquet:"exit_time"`
	ExitPrice        float64   `json:"exit_price" parquet:"exit_price"`
	ExitReason       string    `json:"exit_reason" parquet:"exit_reason"`
	TakeProfitPoints float64   `json:"take_profit_points" parquet:"take_profit_points"`
	StopLossPoints   float64   `json:"stop_loss_points" parquet:"stop_loss_points"`
	GrossPoints      float64   `json:"gross_points" parquet:"gross_points"`
	OvernightCharges float64   `json:"overnight_charges" parquet:"overnight_charges"`
	NetPoints        float64   `json:"net_points" parquet:"net_points"`
	GrossCurrency    float64   `json:"gross_currency" parquet:"gross_currency"`
	NetCurrency      float64   `json:"net_currency" parquet:"net_currency"`
	DaysHeld         int64     `json:"days_held" parquet:"days_held"`
	BarsHeld         int64     `json:"bars_held" parquet:"bars_held"`
}

// NewTradeRows converts the provided trade ledger to rows.
func NewTradeRows(trades []shared.Trade) []TradeRow {
	rows := make([]TradeRow, len(trades))
	for idx := range trades {
		trade := &trades[idx]
		rows[idx] = TradeRow{
			ID:               trade.ID,
			Market:           trade.Market,
			Direction:        trade.Direction.String(),
			EntryTime:        trade.EntryTime.UTC(),
			EntryPrice:       trade.EntryPrice,
			ExitTime:         trade.ExitTime.UTC(),
			ExitPrice:        trade.ExitPrice,
			ExitReason:       trade.ExitReason.String(),
			TakeProfitPoints: trade.TakeProfitPoints,
			StopLossPoints:   trade.StopLossPoints,
			GrossPoints:      trade.GrossPoints,
			OvernightCharges: trade.OvernightCharges,
			NetPoints:        trade.NetPoints,
			GrossCurrency:    trade.GrossCurrency,
			NetCurrency:      trade.NetCurrency,
			DaysHeld:         int64(trade.DaysHeld),
			BarsHeld:         int64(trade.BarsHeld),
		}
	}

	return rows
}

// EquityRow is a point of the cumulative equity curve.
type EquityRow struct {
	Date     time.Time `json:"date" parquet:"date"`
	Points   float64   `json:"points" parquet:"points"`
	Currency float64   `json:"currency" parquet:"currency"`
}

// NewEquityRows converts the provided equity curve to rows.
func NewEquityRows(curve []report.EquityPoint) []EquityRow {
	rows := make([]EquityRow, len(curve))
	for idx := range curve {
		rows[idx] = EquityRow{
			Date:     curve[idx].Date.UTC(),
			Points:   curve[idx].Points,
			Currency: curve[idx].Currency,
		}
	}

	return rows
}

// SummaryFile is the serialized form of a run summary.
type SummaryFile struct {
	Market                   string             `json:"market"`
	Fidelity                 string             `json:"fidelity"`
	TakeProfitPoints         float64            `json:"take_profit_points"`
	Trades                   int                `json:"trades"`
	LongTrades               int                `json:"long_trades"`
	ShortTrades              int                `json:"short_trades"`
	Wins                     int                `json:"wins"`
	Losses                   int                `json:"losses"`
	WinRate                  float64            `json:"win_rate"`
	AvgWinPoints             float64            `json:"avg_win_points"`
	AvgLossPoints            float64            `json:"avg_loss_points"`
	PayoffRatio              float64            `json:"payoff_ratio"`
	ExpectancyPoints         float64            `json:"expectancy_points"`
	GrossPoints              float64            `json:"gross_points"`
	TotalPoints              float64            `json:"total_points"`
	OvernightChargesPoints   float64            `json:"overnight_charges_points"`
	OvernightChargesCurrency float64            `json:"overnight_charges_currency"`
	TotalCurrency            float64            `json:"total_currency"`
	MaxDrawdownPoints        float64            `json:"max_drawdown_points"`
	AvgBarsHeld              float64            `json:"avg_bars_held"`
	ExitCounts               map[string]int     `json:"exit_counts"`
	PointsByReason           map[string]float64 `json:"points_by_reason"`
	EODProfitable            int                `json:"eod_profitable"`
	EODBreakeven             int                `json:"eod_breakeven"`
	EODLosses                int                `json:"eod_losses"`
	StartingCapital          float64            `json:"starting_capital"`
	FinalBalance             float64            `json:"final_balance"`
	ReturnPercent            float64            `json:"return_percent"`
}

// NewSummaryFile converts the provided summary to its serialized form.
func NewSummaryFile(market string, fidelity string, takeProfit float64, summary *report.Summary) SummaryFile {
	file := SummaryFile{
		Market:                   market,
		Fidelity:                 fidelity,
		TakeProfitPoints:         takeProfit,
		Trades:                   summary.Trades,
		LongTrades:               summary.LongTrades,
		ShortTrades:              summary.ShortTrades,
		Wins:                     summary.Wins,
		Losses:                   summary.Losses,
		WinRate:                  summary.WinRate,
		AvgWinPoints:             summary.AvgWinPoints,
		AvgLossPoints:            summary.AvgLossPoints,
		PayoffRatio:              summary.PayoffRatio,
		ExpectancyPoints:         summary.ExpectancyPoints,
		GrossPoints:              summary.GrossPoints,
		TotalPoints:              summary.TotalPoints,
		OvernightChargesPoints:   summary.OvernightChargesPoints,
		OvernightChargesCurrency: summary.OvernightChargesCurrency,
		TotalCurrency:            summary.TotalCurrency,
		MaxDrawdownPoints:        summary.MaxDrawdownPoints,
		AvgBarsHeld:              summary.AvgBarsHeld,
		ExitCounts:               make(map[string]int, len(summary.ExitCounts)),
		PointsByReason:           make(map[string]float64, len(summary.PointsByReason)),
		EODProfitable:            summary.EODProfitable,
		EODBreakeven:             summary.EODBreakeven,
		EODLosses:                summary.EODLosses,
		StartingCapital:          summary.StartingCapital,
		FinalBalance:             summary.FinalBalance,
		ReturnPercent:            summary.ReturnPercent,
	}
	for reason, count := range summary.ExitCounts {
		file.ExitCounts[reason.String()] = count
	}
	for reason, points := range summary.PointsByReason {
		file.PointsByReason[reason.String()] = points
	}

	return file
}
