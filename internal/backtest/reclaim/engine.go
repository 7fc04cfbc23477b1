package reclaim

import (
	"github.com/sawpanic/pivotscope/internal/domain/indicators"
	"github.com/sawpanic/pivotscope/internal/domain/pivots"
	"github.com/sawpanic/pivotscope/internal/domain/series"
	"github.com/sawpanic/pivotscope/internal/exits"
)

// position is the open long state between entry and exit
type position struct {
	entryIndex int
	fraction   float64
	trail      *exits.Trail
}

// Run backtests cfg over the whole series, detecting pivots with the fixed
// zigzag width when one is set.
func Run(s *series.Series, cfg Config) *Result {
	pvts := pivots.DetectSeries(s, cfg.FixedZigzagPct)
	return RunRange(s, pvts, cfg, NewRange(s, 0, s.Len()))
}

// RunRange backtests cfg over the bars of r. Indicators come from the full
// series and a pivot becomes usable only on its confirmation bar, so nothing
// after the current bar is ever read.
func RunRange(s *series.Series, pvts []pivots.Pivot, cfg Config, r Range) *Result {
	start := max(r.Start, cfg.MinBarsForIndicators, 0)
	end := min(r.End, s.Len())

	result := &Result{
		Range:  r,
		Trades: make([]Trade, 0),
	}

	if cfg.VolGateMode == VolGateMedian {
		if cfg.VolBaseline != nil {
			result.VolBaseline = indicators.Some(*cfg.VolBaseline)
		} else {
			result.VolBaseline = s.VolatilityMedian(start, end)
		}
	}

	ma := s.MovingAverage
	if cfg.UseTrendFilter && cfg.MAPeriod > 0 && cfg.MAPeriod != s.Config.MAPeriod {
		ma = indicators.SMA(s.Closes, cfg.MAPeriod)
	}

	stopWidth := func(i int) series.Num {
		if cfg.FixedTrailingStopPct != nil {
			return indicators.Some(*cfg.FixedTrailingStopPct)
		}
		return series.At(s.TrailingStopPct, i)
	}

	var (
		lastPeak   *pivots.Pivot
		next       int
		pos        *position
		lastExit   = -1
		lastIdx    = -1
		lastPrice  float64
		firstPrice float64
		priced     int
		long       int
	)

	closePosition := func(i int, price float64, reason exits.ExitReason) {
		entryPrice := pos.trail.EntryPrice
		pnl := pos.fraction * exits.NetReturn(entryPrice, price, cfg.CostBpsRoundTrip)
		result.Trades = append(result.Trades, Trade{
			EntryIndex:       pos.entryIndex,
			ExitIndex:        i,
			EntryDate:        s.Date(pos.entryIndex),
			ExitDate:         s.Date(i),
			EntryPrice:       entryPrice,
			ExitPrice:        price,
			BarsHeld:         i - pos.entryIndex,
			PositionFraction: pos.fraction,
			PnLFraction:      pnl,
			ExitReason:       reason,
		})
		pos = nil
		lastExit = i
	}

	for i := start; i < end; i++ {
		for next < len(pvts) && pvts[next].ConfirmIndex <= i {
			if pvts[next].Type == pivots.Peak {
				lastPeak = &pvts[next]
			}
			next++
		}

		price, ok := s.Close(i).Get()
		if !ok {
			continue
		}
		if priced == 0 {
			firstPrice = price
		}
		priced++
		lastIdx, lastPrice = i, price

		if pos != nil {
			long++
			if pos.trail.Evaluate(price, stopWidth(i)) == exits.TrailingStop {
				closePosition(i, price, exits.TrailingStop)
			}
			continue
		}

		if lastExit >= 0 && i-lastExit <= cfg.CooldownBars {
			continue
		}
		if lastPeak == nil {
			continue
		}
		if cfg.UseTrendFilter {
			avg, ok := series.At(ma, i).Get()
			if !ok || price < avg {
				continue
			}
		}
		if cfg.VolGateMode == VolGateMedian && !volGatePasses(s, i, result.VolBaseline, cfg.VolGateMultiplier) {
			continue
		}
		if price < lastPeak.Close {
			continue
		}

		stopPct, ok := stopWidth(i).Get()
		if !ok {
			continue
		}
		pos = &position{
			entryIndex: i,
			fraction:   positionFraction(cfg.RiskPerTrade, stopPct, cfg.MaxPositionFraction),
			trail:      exits.NewTrail(price, stopPct),
		}
	}

	if pos != nil {
		closePosition(lastIdx, lastPrice, exits.EndOfData)
	}

	result.Stats = ComputeStats(result.Trades)
	if priced > 0 {
		result.BuyAndHold = indicators.Some(lastPrice/firstPrice - 1)
		result.Exposure = float64(long) / float64(priced)
	}

	return result
}

// volGatePasses rejects entries when today's volatility exceeds the baseline
// scaled by multiplier. Without a baseline the gate is inactive; without
// today's volatility it cannot be passed.
func volGatePasses(s *series.Series, i int, baseline series.Num, multiplier float64) bool {
	base, ok := baseline.Get()
	if !ok {
		return true
	}
	vol, ok := series.At(s.RollingVolatility, i).Get()
	if !ok {
		return false
	}
	return vol <= base*multiplier
}

// positionFraction sizes a position so that a full stop-out loses roughly
// risk, capped at maxFraction
func positionFraction(risk, stopPct, maxFraction float64) float64 {
	if maxFraction < 0 {
		maxFraction = 0
	}
	if stopPct <= 0 {
		return maxFraction
	}
	return indicators.Clamp(risk/stopPct, 0, maxFraction)
}
