package reclaim

import "math"

// ComputeStats compounds trades in order from equity 1 and derives the
// summary statistics. Drawdown is sampled at trade closes.
//
// Profit factor follows a fixed sentinel policy: winning/|losing| when any
// loss exists, nil when there are wins but no losses, 0 when neither.
func ComputeStats(trades []Trade) Stats {
	stats := Stats{
		TradeCount:   len(trades),
		EndingEquity: 1.0,
	}

	equity := 1.0
	maxEquity := 1.0
	sumWin := 0.0
	sumLoss := 0.0
	sumPnL := 0.0
	sumBars := 0

	for _, t := range trades {
		switch {
		case t.PnLFraction > 0:
			stats.Wins++
			sumWin += t.PnLFraction
		case t.PnLFraction < 0:
			stats.Losses++
			sumLoss += t.PnLFraction
		}
		sumPnL += t.PnLFraction
		sumBars += t.BarsHeld

		equity *= 1 + t.PnLFraction
		maxEquity = math.Max(maxEquity, equity)
		stats.MaxDrawdown = math.Min(stats.MaxDrawdown, equity/maxEquity-1)
	}

	stats.EndingEquity = equity

	if stats.TradeCount > 0 {
		n := float64(stats.TradeCount)
		stats.WinRate = float64(stats.Wins) / n
		stats.AvgPnLPerTrade = sumPnL / n
		stats.AvgBarsHeld = float64(sumBars) / n
	}

	switch {
	case stats.Losses > 0:
		pf := sumWin / math.Abs(sumLoss)
		stats.ProfitFactor = &pf
	case stats.Wins > 0:
		stats.ProfitFactor = nil
	default:
		zero := 0.0
		stats.ProfitFactor = &zero
	}

	return stats
}
