package report

// Comparison represents bar and tick fidelity results of the same strategy side by side.
type Comparison struct {
	Bar  Summary
	Tick Summary
}

// Delta represents a single compared metric.
type Delta struct {
	Metric string
	Bar    float64
	Tick   float64
}

// Difference returns the tick value less the bar value.
func (d Delta) Difference() float64 {
	return d.Tick - d.Bar
}

// Compare pairs the provided bar and tick summaries.
func Compare(bar Summary, tick Summary) Comparison {
	return Comparison{Bar: bar, Tick: tick}
}

// Deltas returns the compared metrics in display order.
func (c *Comparison) Deltas() []Delta {
	return []Delta{
		{"total_pts", c.Bar.TotalPoints, c.Tick.TotalPoints},
		{"total_currency", c.Bar.TotalCurrency, c.Tick.TotalCurrency},
		{"return_pct", c.Bar.ReturnPercent, c.Tick.ReturnPercent},
		{"final_balance", c.Bar.FinalBalance, c.Tick.FinalBalance},
		{"trades", float64(c.Bar.Trades), float64(c.Tick.Trades)},
		{"wins", float64(c.Bar.Wins), float64(c.Tick.Wins)},
		{"losses", float64(c.Bar.Losses), float64(c.Tick.Losses)},
		{"win_rate", c.Bar.WinRate, c.Tick.WinRate},
		{"avg_win_pts", c.Bar.AvgWinPoints, c.Tick.AvgWinPoints},
		{"avg_loss_pts", c.Bar.AvgLossPoints, c.Tick.AvgLossPoints},
		{"expectancy_pts", c.Bar.ExpectancyPoints, c.Tick.ExpectancyPoints},
		{"max_drawdown_pts", c.Bar.MaxDrawdownPoints, c.Tick.MaxDrawdownPoints},
		{"avg_bars_held", c.Bar.AvgBarsHeld, c.Tick.AvgBarsHeld},
	}
}
