package strategy

import (
	"fmt"
	"math"

	"crypto-signal-engine/internal/analysis"
	"crypto-signal-engine/internal/indicators"
	"crypto-signal-engine/internal/marketdata"
)

// EvaluateTrend4H runs the 4h trend-continuation setup: a directional 4h
// trend pulled back to the 4h 21 EMA, with the 1h not fighting it and the
// lower-timeframe stochs not both rolling over.
//
// In AGGRESSIVE mode a FLAT 4h can be substituted by the HTF bias when the
// bias is confident and the 1h/15m agree with it.
func EvaluateTrend4H(tfs *analysis.TimeframeSet, bias analysis.HTFBias, mode Mode) *Signal {
	rec4h := tfRecord(tfs, marketdata.Interval4h)
	rec1h := tfRecord(tfs, marketdata.Interval1h)
	rec15m := tfRecord(tfs, marketdata.Interval15m)
	rec5m := tfRecord(tfs, marketdata.Interval5m)

	conditions := []string{
		"4H trend non-FLAT (or confident HTF bias in AGGRESSIVE)",
		"Price not OVEREXTENDED from 4H 21 EMA",
		"1H trend not opposing",
		"15m/5m stochs not both curling against the trade",
	}

	if rec4h == nil || ema21Of(rec4h) == nil {
		return NoTradeSignal(StrategyTrend4H, SetupTrend4H,
			"4H trend: missing 4H data", conditions)
	}

	trend4h := trendOf(rec4h)
	usedEffective := false

	if trend4h == indicators.TrendFlat {
		if mode != ModeAggressive {
			return NoTradeSignal(StrategyTrend4H, SetupTrend4H,
				"4H trend: 4H is FLAT", conditions)
		}
		effective := effectiveTrend4h(bias, rec1h, rec15m)
		if effective == indicators.TrendFlat {
			return NoTradeSignal(StrategyTrend4H, SetupTrend4H,
				"4H trend: 4H FLAT and HTF bias not strong enough to substitute", conditions)
		}
		trend4h = effective
		usedEffective = true
	}

	direction := DirectionLong
	if trend4h == indicators.TrendDown {
		direction = DirectionShort
	}

	if pullbackOf(rec4h) == indicators.PullbackOverextended {
		return NoTradeSignal(StrategyTrend4H, SetupTrend4H,
			"4H trend: price overextended from 4H 21 EMA", conditions)
	}

	trend1h := trendOf(rec1h)
	if direction == DirectionLong && trend1h == indicators.TrendDown {
		return NoTradeSignal(StrategyTrend4H, SetupTrend4H,
			"4H trend: 1H downtrend opposes long", conditions)
	}
	if direction == DirectionShort && trend1h == indicators.TrendUp {
		return NoTradeSignal(StrategyTrend4H, SetupTrend4H,
			"4H trend: 1H uptrend opposes short", conditions)
	}

	stoch15m := stochOf(rec15m)
	stoch5m := stochOf(rec5m)
	if direction == DirectionLong && stochCurlDown(stoch15m) && stochCurlDown(stoch5m) {
		return NoTradeSignal(StrategyTrend4H, SetupTrend4H,
			"4H trend: 15m and 5m stochs both curling down", conditions)
	}
	if direction == DirectionShort && stochCurlUp(stoch15m) && stochCurlUp(stoch5m) {
		return NoTradeSignal(StrategyTrend4H, SetupTrend4H,
			"4H trend: 15m and 5m stochs both curling up", conditions)
	}

	ema4h := *ema21Of(rec4h)
	zone := trend4hEntryZone(ema4h, direction)
	mid := zone.Mid()

	stop := trend4hStop(tfs, mid, direction)

	risk := mid - stop
	if direction == DirectionShort {
		risk = stop - mid
	}
	if risk <= 0 {
		return NoTradeSignal(StrategyTrend4H, SetupTrend4H,
			"4H trend: no viable stop below entry", conditions)
	}

	var targets []float64
	if direction == DirectionLong {
		targets = []float64{mid + risk, mid + 2*risk}
	} else {
		targets = []float64{mid - risk, mid - 2*risk}
	}

	confidence := trend4hConfidence(rec4h, rec1h, stoch15m, stoch5m, zone, direction, usedEffective)

	reason := fmt.Sprintf("4H %s continuation: pullback %s at 4H 21 EMA %.2f",
		trend4h, pullbackOf(rec4h), ema4h)
	notes := []string{
		fmt.Sprintf("4H trend %s", trendOf(rec4h)),
		fmt.Sprintf("1H trend %s", trend1h),
	}
	if usedEffective {
		notes = append(notes, fmt.Sprintf("Effective 4H trend %s from HTF bias (%d%%)", trend4h, bias.Confidence))
	}

	return &Signal{
		Valid:              true,
		Direction:          direction,
		SetupType:          SetupTrend4H,
		SelectedStrategy:   StrategyTrend4H,
		StrategiesChecked:  []string{StrategyTrend4H},
		Confidence:         confidence,
		EntryZone:          &zone,
		StopLoss:           floatPtr(stop),
		InvalidationLevel:  floatPtr(stop),
		Targets:            targets,
		RiskReward:         RiskReward{TP1RR: floatPtr(1.0), TP2RR: floatPtr(2.0)},
		ReasonSummary:      reason,
		Confluence:         Confluence{Notes: notes},
		ConditionsRequired: []string{},
	}
}

// effectiveTrend4h substitutes a confident HTF bias for a FLAT 4h trend
// when the 1h and 15m agree with the bias direction.
func effectiveTrend4h(bias analysis.HTFBias, rec1h, rec15m *indicators.Record) string {
	if bias.Confidence < 70 || bias.Direction == analysis.BiasNeutral {
		return indicators.TrendFlat
	}
	want := biasTrend(bias.Direction)

	trend1h := trendOf(rec1h)
	trend15m := trendOf(rec15m)
	align := func(t string) bool { return t == want || t == indicators.TrendFlat }
	if !align(trend1h) || !align(trend15m) {
		return indicators.TrendFlat
	}
	if trend1h == indicators.TrendFlat && trend15m == indicators.TrendFlat {
		return indicators.TrendFlat
	}
	return want
}

func trend4hEntryZone(ema float64, direction string) EntryZone {
	if direction == DirectionLong {
		return EntryZone{Min: ema * 0.996, Max: ema * 1.002}
	}
	return EntryZone{Min: ema * 0.998, Max: ema * 1.004}
}

// trend4hStop uses the 4h swing extreme with a small buffer, falling back
// to a fixed 3% distance when no swing is available.
func trend4hStop(tfs *analysis.TimeframeSet, entryMid float64, direction string) float64 {
	swings := swingsOf(tfs, marketdata.Interval4h)
	if direction == DirectionLong {
		if swings != nil && swings.SwingLow > 0 && swings.SwingLow < entryMid {
			return swings.SwingLow * 0.997
		}
		return entryMid * 0.97
	}
	if swings != nil && swings.SwingHigh > 0 && swings.SwingHigh > entryMid {
		return swings.SwingHigh * 1.003
	}
	return entryMid * 1.03
}

func trend4hConfidence(rec4h, rec1h *indicators.Record, stoch15m, stoch5m *indicators.StochRSIInfo, zone EntryZone, direction string, usedEffective bool) int {
	score := 0.0

	if usedEffective {
		score += 0.1
	} else if trendMatches(trendOf(rec4h), direction) {
		score += 0.4
	}

	switch {
	case trendMatches(trendOf(rec1h), direction):
		score += 0.2
	case trendOf(rec1h) == indicators.TrendFlat:
		score += 0.1
	}

	curl := stochCurlUp
	if direction == DirectionShort {
		curl = stochCurlDown
	}
	curls := 0
	if curl(stoch15m) {
		curls++
	}
	if curl(stoch5m) {
		curls++
	}
	switch curls {
	case 2:
		score += 0.2
	case 1:
		score += 0.1
	}

	price := priceOf(rec4h)
	pullback := pullbackOf(rec4h)
	if (price >= zone.Min && price <= zone.Max) || pullback == indicators.PullbackRetracing {
		score += 0.1
	}
	switch pullback {
	case indicators.PullbackEntryZone:
		score += 0.1
	case indicators.PullbackRetracing:
		score += 0.05
	}

	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return int(math.Round(score * 100))
}
