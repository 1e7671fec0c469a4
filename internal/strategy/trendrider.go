package strategy

import (
	"fmt"
	"math"

	"crypto-signal-engine/internal/analysis"
	"crypto-signal-engine/internal/features"
	"crypto-signal-engine/internal/indicators"
	"crypto-signal-engine/internal/marketdata"
)

// Trend rider scoring weights. Version-locked: changing any of these
// changes every emitted score, so they move only with a schema bump.
const (
	riderHTFWeight        = 20.0
	riderStructure4H      = 10.0
	riderStructure1H      = 7.0
	riderPullback4H       = 8.0
	riderPullback1H       = 5.0
	riderLiquidityCap     = 15.0
	riderLiquidityPerZone = 5.0
	riderFVGWeight        = 10.0
	riderDivRegular       = 10.0
	riderDivHidden        = 5.0
	riderVolProfileEdge   = 7.0
	riderVolProfileMid    = -3.0
)

// EvaluateTrendRider runs the confluence scoring engine over all
// timeframes and emits a signal when the winning side clears the mode
// threshold.
func EvaluateTrendRider(tfs *analysis.TimeframeSet, bias analysis.HTFBias, mode Mode) *Signal {
	tf4h := tfAnalysis(tfs, marketdata.Interval4h)
	tf1h := tfAnalysis(tfs, marketdata.Interval1h)

	conditions := []string{
		"Confluence score over mode threshold",
		"ATR within mode ceiling",
		"HTF alignment (SAFE mode)",
	}

	if tf4h == nil || tf1h == nil || tf4h.Indicators == nil {
		return NoTradeSignal(StrategyTrendRider, SetupAuto,
			"Trend rider: missing 4H/1H data", conditions)
	}

	price := tf4h.Indicators.Price.Current
	longScore, shortScore, notes := riderScores(tf4h, tf1h, bias, price)

	direction := DirectionLong
	score := longScore
	if shortScore > longScore {
		direction = DirectionShort
		score = shortScore
	}

	// Volatility and value-area adjustments apply to the winning side.
	volAdj := riderVolatilityAdj(tf4h.Volatility.State)
	vpAdj := riderVolumeProfileAdj(tf4h.VolumeProfile, price, direction)
	score = clampScore(score + volAdj + vpAdj)

	atrPct := tf4h.Volatility.ATRPctOfPrice

	threshold, maxAtr := 70.0, 3.0
	if mode == ModeAggressive {
		threshold, maxAtr = 50.0, 5.0
	}

	if score < threshold {
		return NoTradeSignal(StrategyTrendRider, SetupAuto,
			fmt.Sprintf("Trend rider: score %.0f below %s threshold %.0f", score, mode, threshold), conditions)
	}
	if atrPct > maxAtr {
		return NoTradeSignal(StrategyTrendRider, SetupAuto,
			fmt.Sprintf("Trend rider: 4H ATR %.2f%% over %s ceiling %.1f%%", atrPct, mode, maxAtr), conditions)
	}
	if mode == ModeSafe && bias.Direction != direction {
		return NoTradeSignal(StrategyTrendRider, SetupAuto,
			"Trend rider: SAFE mode requires HTF alignment", conditions)
	}

	selected := riderSelectStrategy(tf4h, tf1h, direction, score)

	atr, ok := riderATR(tf4h)
	if !ok || price <= 0 {
		return NoTradeSignal(StrategyTrendRider, SetupAuto,
			"Trend rider: no ATR available for stop sizing", conditions)
	}

	atrMult := 1.5
	if selected == StrategyTrendRider {
		atrMult = 2.0
	}

	zone := EntryZone{Min: price * 0.999, Max: price * 1.001}
	mid := zone.Mid()

	var stop float64
	if direction == DirectionLong {
		stop = mid - atrMult*atr
	} else {
		stop = mid + atrMult*atr
	}
	risk := math.Abs(mid - stop)
	if risk <= 0 {
		return NoTradeSignal(StrategyTrendRider, SetupAuto,
			"Trend rider: degenerate risk distance", conditions)
	}

	targets := make([]float64, 0, 3)
	rr := RiskReward{TP1RR: floatPtr(1.0), TP2RR: floatPtr(2.0)}
	if direction == DirectionLong {
		targets = append(targets, mid+risk, mid+2*risk)
	} else {
		targets = append(targets, mid-risk, mid-2*risk)
	}
	if tp3, ok := riderLiquidityTarget(tf4h.LiquidityZones, mid, direction); ok {
		targets = append(targets, tp3)
		rr.TP3RR = floatPtr(math.Abs(tp3-mid) / risk)
	}

	return &Signal{
		Valid:             true,
		Direction:         direction,
		SetupType:         setupForStrategy(selected),
		SelectedStrategy:  selected,
		StrategiesChecked: []string{StrategyTrendRider},
		Confidence:        int(math.Round(score)),
		EntryZone:         &zone,
		StopLoss:          floatPtr(stop),
		InvalidationLevel: floatPtr(stop),
		Targets:           targets,
		RiskReward:        rr,
		ReasonSummary: fmt.Sprintf("Trend rider %s: confluence score %.0f/%s threshold %.0f",
			direction, score, mode, threshold),
		Confluence:         Confluence{Notes: notes},
		ConditionsRequired: []string{},
	}
}

func riderScores(tf4h, tf1h *analysis.TimeframeAnalysis, bias analysis.HTFBias, price float64) (long, short float64, notes []string) {
	notes = []string{}

	switch bias.Direction {
	case analysis.BiasLong:
		long += float64(bias.Confidence) / 100 * riderHTFWeight
		notes = append(notes, fmt.Sprintf("HTF bias long %d%%", bias.Confidence))
	case analysis.BiasShort:
		short += float64(bias.Confidence) / 100 * riderHTFWeight
		notes = append(notes, fmt.Sprintf("HTF bias short %d%%", bias.Confidence))
	}

	addStructure := func(structure string, weight float64, label string) {
		switch structure {
		case "uptrend":
			long += weight
			notes = append(notes, label+" structure uptrend")
		case "downtrend":
			short += weight
			notes = append(notes, label+" structure downtrend")
		}
	}
	addStructure(tf4h.MarketStructure.CurrentStructure, riderStructure4H, "4H")
	addStructure(tf1h.MarketStructure.CurrentStructure, riderStructure1H, "1H")

	addPullback := func(rec *indicators.Record, weight float64, label string) {
		if rec == nil {
			return
		}
		if !pullbackIn(rec.Analysis.PullbackState, indicators.PullbackEntryZone, indicators.PullbackRetracing) {
			return
		}
		switch rec.Analysis.Trend {
		case indicators.TrendUp:
			long += weight
			notes = append(notes, label+" pullback in uptrend")
		case indicators.TrendDown:
			short += weight
			notes = append(notes, label+" pullback in downtrend")
		}
	}
	addPullback(tf4h.Indicators, riderPullback4H, "4H")
	addPullback(tf1h.Indicators, riderPullback1H, "1H")

	var liqLong, liqShort float64
	for _, z := range tf4h.LiquidityZones {
		if z.Type == "equal_lows" && z.Price < price {
			liqLong += riderLiquidityPerZone
		}
		if z.Type == "equal_highs" && z.Price > price {
			liqShort += riderLiquidityPerZone
		}
	}
	long += math.Min(liqLong, riderLiquidityCap)
	short += math.Min(liqShort, riderLiquidityCap)

	var fvgLong, fvgShort float64
	for _, f := range tf4h.FairValueGaps {
		if f.Filled {
			continue
		}
		if f.Direction == "bullish" && f.Top < price {
			fvgLong = riderFVGWeight
		}
		if f.Direction == "bearish" && f.Bottom > price {
			fvgShort = riderFVGWeight
		}
	}
	long += fvgLong
	short += fvgShort

	var divLong, divShort float64
	for _, tf := range []*analysis.TimeframeAnalysis{tf4h, tf1h} {
		for _, d := range tf.Divergences {
			w := riderDivHidden
			if d.Type == "regular" {
				w = riderDivRegular
			}
			if d.Side == "bullish" {
				divLong = math.Max(divLong, w)
			} else {
				divShort = math.Max(divShort, w)
			}
		}
	}
	long += divLong
	short += divShort

	return long, short, notes
}

func riderVolatilityAdj(state string) float64 {
	switch state {
	case indicators.VolatilityExtreme:
		return -8
	case indicators.VolatilityHigh:
		return -3
	case indicators.VolatilityNormal:
		return 5
	}
	return 0
}

func riderVolumeProfileAdj(vp features.VolumeProfile, price float64, direction string) float64 {
	if vp.ValueAreaHigh <= vp.ValueAreaLow {
		return 0
	}
	if direction == DirectionLong && price < vp.ValueAreaLow {
		return riderVolProfileEdge
	}
	if direction == DirectionShort && price > vp.ValueAreaHigh {
		return riderVolProfileEdge
	}
	if price > vp.ValueAreaLow && price < vp.ValueAreaHigh {
		return riderVolProfileMid
	}
	return 0
}

func riderSelectStrategy(tf4h, tf1h *analysis.TimeframeAnalysis, direction string, score float64) string {
	trend4h := trendOf(tf4h.Indicators)
	trend1h := trendOf(tf1h.Indicators)

	if trendMatches(trend4h, direction) && trendMatches(trend1h, direction) && score >= 75 {
		return StrategyTrendRider
	}
	if trendMatches(trend4h, direction) {
		return StrategyTrend4H
	}
	if trendMatches(trend1h, direction) {
		return StrategyScalp1H
	}
	return StrategySwing
}

func riderATR(tf4h *analysis.TimeframeAnalysis) (float64, bool) {
	if tf4h.Volatility.ATR <= 0 {
		return 0, false
	}
	return tf4h.Volatility.ATR, true
}

// riderLiquidityTarget uses the nearest equal-high (long) or equal-low
// (short) cluster beyond the second target side as tp3.
func riderLiquidityTarget(zones []features.LiquidityZone, entryMid float64, direction string) (float64, bool) {
	best := 0.0
	found := false
	for _, z := range zones {
		if direction == DirectionLong && z.Type == "equal_highs" && z.Price > entryMid {
			if !found || z.Price < best {
				best = z.Price
				found = true
			}
		}
		if direction == DirectionShort && z.Type == "equal_lows" && z.Price < entryMid {
			if !found || z.Price > best {
				best = z.Price
				found = true
			}
		}
	}
	return best, found
}

func setupForStrategy(strategy string) string {
	switch strategy {
	case StrategySwing:
		return SetupSwing
	case StrategyTrend4H:
		return SetupTrend4H
	case StrategyScalp1H:
		return SetupScalp
	case StrategyMicroScalp:
		return SetupMicroScalp
	}
	return SetupAuto
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
