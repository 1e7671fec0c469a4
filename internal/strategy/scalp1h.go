package strategy

import (
	"fmt"
	"math"

	"crypto-signal-engine/internal/analysis"
	"crypto-signal-engine/internal/indicators"
	"crypto-signal-engine/internal/marketdata"
)

// EvaluateScalp1H runs the 1h scalp setup: a directional 1h trend with
// price tucked against the 1h and 15m 21 EMAs and the 15m stoch leaning
// the same way. The 4h is deliberately not consulted.
func EvaluateScalp1H(tfs *analysis.TimeframeSet, bias analysis.HTFBias) *Signal {
	rec1h := tfRecord(tfs, marketdata.Interval1h)
	rec15m := tfRecord(tfs, marketdata.Interval15m)

	conditions := []string{
		"1H trend non-FLAT",
		"Price within 2% of 1H 21 EMA and 1.5% of 15m 21 EMA",
		"1H and 15m pullback ENTRY_ZONE or RETRACING",
		"15m stoch aligned with 1H direction",
	}

	if rec1h == nil || rec15m == nil || ema21Of(rec1h) == nil || ema21Of(rec15m) == nil {
		return NoTradeSignal(StrategyScalp1H, SetupScalp,
			"1H scalp: missing 1H/15m data", conditions)
	}

	trend1h := trendOf(rec1h)
	if trend1h == indicators.TrendFlat {
		return NoTradeSignal(StrategyScalp1H, SetupScalp,
			"1H scalp: 1H trend is FLAT", conditions)
	}
	direction := DirectionLong
	if trend1h == indicators.TrendDown {
		direction = DirectionShort
	}

	price := priceOf(rec1h)
	ema1h := *ema21Of(rec1h)
	ema15m := *ema21Of(rec15m)
	if !withinPctOf(price, ema1h, 2.0) || !withinPctOf(price, ema15m, 1.5) {
		return NoTradeSignal(StrategyScalp1H, SetupScalp,
			"1H scalp: price too far from 1H/15m 21 EMAs", conditions)
	}

	if !pullbackIn(pullbackOf(rec1h), indicators.PullbackEntryZone, indicators.PullbackRetracing) ||
		!pullbackIn(pullbackOf(rec15m), indicators.PullbackEntryZone, indicators.PullbackRetracing) {
		return NoTradeSignal(StrategyScalp1H, SetupScalp,
			"1H scalp: pullback state out of range on 1H or 15m", conditions)
	}

	if !stochAligned(stochOf(rec15m), direction) {
		return NoTradeSignal(StrategyScalp1H, SetupScalp,
			"1H scalp: 15m stoch not aligned with 1H direction", conditions)
	}

	zone := trend4hEntryZone(ema1h, direction)
	mid := zone.Mid()

	stop, ok := scalpStop(tfs, mid, direction)
	if !ok {
		return NoTradeSignal(StrategyScalp1H, SetupScalp,
			"1H scalp: no structural stop available", conditions)
	}

	risk := mid - stop
	if direction == DirectionShort {
		risk = stop - mid
	}
	if risk <= 0 {
		return NoTradeSignal(StrategyScalp1H, SetupScalp,
			"1H scalp: stop on the wrong side of entry", conditions)
	}

	var targets []float64
	if direction == DirectionLong {
		targets = []float64{mid + 1.5*risk, mid + 3*risk}
	} else {
		targets = []float64{mid - 1.5*risk, mid - 3*risk}
	}

	confidence := 60
	if bias.Direction == direction {
		confidence = int(math.Min(85, 60+0.2*float64(bias.Confidence)))
	}

	return &Signal{
		Valid:             true,
		Direction:         direction,
		SetupType:         SetupScalp,
		SelectedStrategy:  StrategyScalp1H,
		StrategiesChecked: []string{StrategyScalp1H},
		Confidence:        confidence,
		EntryZone:         &zone,
		StopLoss:          floatPtr(stop),
		InvalidationLevel: floatPtr(stop),
		Targets:           targets,
		RiskReward:        RiskReward{TP1RR: floatPtr(1.5), TP2RR: floatPtr(3.0)},
		ReasonSummary: fmt.Sprintf("1H scalp %s: %s pullback %s at 1H 21 EMA %.2f",
			direction, trend1h, pullbackOf(rec1h), ema1h),
		Confluence: Confluence{
			Notes: []string{
				fmt.Sprintf("1H trend %s, pullback %s", trend1h, pullbackOf(rec1h)),
				fmt.Sprintf("15m pullback %s", pullbackOf(rec15m)),
			},
		},
		ConditionsRequired: []string{},
	}
}

// scalpStop prefers the tightest structural stop: 5m swing, then 15m,
// then 4h.
func scalpStop(tfs *analysis.TimeframeSet, entryMid float64, direction string) (float64, bool) {
	for _, iv := range []marketdata.Interval{marketdata.Interval5m, marketdata.Interval15m, marketdata.Interval4h} {
		swings := swingsOf(tfs, iv)
		if swings == nil {
			continue
		}
		if direction == DirectionLong && swings.SwingLow > 0 && swings.SwingLow < entryMid {
			return swings.SwingLow, true
		}
		if direction == DirectionShort && swings.SwingHigh > 0 && swings.SwingHigh > entryMid {
			return swings.SwingHigh, true
		}
	}
	return 0, false
}
