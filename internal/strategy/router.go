package strategy

import (
	"fmt"
	"math"
	"strings"
	"time"

	"crypto-signal-engine/internal/analysis"
	"crypto-signal-engine/internal/indicators"
	"crypto-signal-engine/internal/marketdata"
)

// Versions stamped onto every aggregator response. Bump SchemaVersion on
// any breaking change to the signal or RichSymbol shape.
const (
	SchemaVersion = "2.1"
	JSONVersion   = "1.0"
)

const safeFlatReason = "4H trend is FLAT — no trade allowed per SAFE rules"

// RichSymbol is the full all-strategies evaluation for one symbol
type RichSymbol struct {
	Symbol        string                 `json:"symbol"`
	Mode          Mode                   `json:"mode"`
	CurrentPrice  *float64               `json:"currentPrice"`
	HTFBias       analysis.HTFBias       `json:"htfBias"`
	Timeframes    *analysis.TimeframeSet `json:"timeframes"`
	Strategies    map[string]*Signal     `json:"strategies"`
	BestSignal    *string                `json:"bestSignal"`
	OverrideUsed  bool                   `json:"overrideUsed"`
	OverrideNotes []string               `json:"overrideNotes"`
	MarketData    any                    `json:"marketData"`
	DflowData     any                    `json:"dflowData"`
	SchemaVersion string                 `json:"schemaVersion"`
	JSONVersion   string                 `json:"jsonVersion"`
	GeneratedAt   string                 `json:"generatedAt"`
}

var strategyOrder = []string{
	StrategySwing, StrategyTrend4H, StrategyScalp1H, StrategyMicroScalp, StrategyTrendRider,
}

// BiasFor computes the HTF bias for a timeframe snapshot
func BiasFor(tfs *analysis.TimeframeSet) analysis.HTFBias {
	return analysis.ComputeHTFBias(
		tfRecord(tfs, marketdata.Interval4h),
		tfRecord(tfs, marketdata.Interval1h),
	)
}

func dist4hFor(tfs *analysis.TimeframeSet) *float64 {
	return distFrom21EMA(tfRecord(tfs, marketdata.Interval4h))
}

// EvaluateStrategy dispatches a single evaluator by setup type, or runs
// the auto cascade SWING, TREND_4H, SCALP_1H and finally the AGGRESSIVE
// override path before giving up with NO_TRADE.
func EvaluateStrategy(symbol string, tfs *analysis.TimeframeSet, setupType string, mode Mode) *Signal {
	bias := BiasFor(tfs)
	dist4h := dist4hFor(tfs)

	normalize := func(s *Signal) *Signal { return Normalize(s, bias, dist4h) }

	switch strings.ToLower(strings.TrimSpace(setupType)) {
	case "swing":
		return normalize(safeEval(StrategySwing, func() *Signal { return EvaluateSwing(tfs, bias) }))
	case "4h", "trend", "trend_4h":
		return normalize(safeEval(StrategyTrend4H, func() *Signal { return EvaluateTrend4H(tfs, bias, mode) }))
	case "scalp", "scalp_1h", "1h":
		return normalize(safeEval(StrategyScalp1H, func() *Signal { return EvaluateScalp1H(tfs, bias) }))
	case "microscalp", "micro_scalp", "micro":
		return normalize(safeEval(StrategyMicroScalp, func() *Signal { return EvaluateMicroScalp(tfs) }))
	case "trendrider", "trend_rider":
		return normalize(safeEval(StrategyTrendRider, func() *Signal { return EvaluateTrendRider(tfs, bias, mode) }))
	}

	checked := []string{}
	reasons := []string{}

	cascade := []struct {
		name string
		run  func() *Signal
	}{
		{StrategySwing, func() *Signal { return EvaluateSwing(tfs, bias) }},
		{StrategyTrend4H, func() *Signal { return EvaluateTrend4H(tfs, bias, mode) }},
		{StrategyScalp1H, func() *Signal { return EvaluateScalp1H(tfs, bias) }},
		{StrategyMicroScalp, func() *Signal { return EvaluateMicroScalp(tfs) }},
	}

	for _, step := range cascade {
		// MICRO_SCALP joins the cascade only on the AGGRESSIVE override path
		if step.name == StrategyMicroScalp && mode != ModeAggressive {
			checked = append(checked, step.name)
			reasons = append(reasons, step.name+": not eligible in SAFE auto routing")
			continue
		}
		sig := safeEval(step.name, step.run)
		checked = append(checked, step.name)
		if sig.Valid {
			sig.StrategiesChecked = checked
			return normalize(sig)
		}
		reasons = append(reasons, sig.ReasonSummary)
	}

	noTrade := NoTradeSignal(StrategyNoTrade, SetupAuto, strings.Join(reasons, "; "), []string{
		"SWING: 3D/1D/4H trend and pullback alignment",
		"TREND_4H: directional 4H with EMA pullback",
		"SCALP_1H: directional 1H tight to 21 EMAs",
		"MICRO_SCALP: 15m/5m tight confluence",
	})
	noTrade.StrategiesChecked = checked
	return normalize(noTrade)
}

// EvaluateAllStrategies runs every evaluator for the symbol under the
// given mode and selects a best signal.
func EvaluateAllStrategies(symbol string, tfs *analysis.TimeframeSet, mode Mode, marketData, dflowData any) *RichSymbol {
	bias := BiasFor(tfs)
	dist4h := dist4hFor(tfs)
	rec4h := tfRecord(tfs, marketdata.Interval4h)
	trend4h := trendOf(rec4h)

	rich := &RichSymbol{
		Symbol:        symbol,
		Mode:          mode,
		HTFBias:       bias,
		Timeframes:    tfs,
		Strategies:    make(map[string]*Signal, len(strategyOrder)),
		OverrideNotes: []string{},
		MarketData:    marketData,
		DflowData:     dflowData,
		SchemaVersion: SchemaVersion,
		JSONVersion:   JSONVersion,
		GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	if rec4h != nil {
		price := rec4h.Price.Current
		rich.CurrentPrice = &price
	} else if rec1h := tfRecord(tfs, marketdata.Interval1h); rec1h != nil {
		price := rec1h.Price.Current
		rich.CurrentPrice = &price
	}

	// SAFE mode with a flat 4H shuts everything down, micro scalp included.
	if mode == ModeSafe && trend4h == indicators.TrendFlat {
		for _, name := range strategyOrder {
			sig := NoTradeSignal(name, setupForStrategy(name), safeFlatReason, []string{"4H trend must be non-FLAT"})
			rich.Strategies[name] = Normalize(sig, bias, dist4h)
		}
		return rich
	}

	rich.Strategies[StrategySwing] = Normalize(
		safeEval(StrategySwing, func() *Signal { return EvaluateSwing(tfs, bias) }), bias, dist4h)
	rich.Strategies[StrategyTrend4H] = Normalize(
		safeEval(StrategyTrend4H, func() *Signal { return EvaluateTrend4H(tfs, bias, mode) }), bias, dist4h)
	rich.Strategies[StrategyScalp1H] = Normalize(
		safeEval(StrategyScalp1H, func() *Signal { return EvaluateScalp1H(tfs, bias) }), bias, dist4h)
	rich.Strategies[StrategyMicroScalp] = Normalize(
		safeEval(StrategyMicroScalp, func() *Signal { return EvaluateMicroScalp(tfs) }), bias, dist4h)
	rich.Strategies[StrategyTrendRider] = Normalize(
		safeEval(StrategyTrendRider, func() *Signal { return EvaluateTrendRider(tfs, bias, mode) }), bias, dist4h)

	if mode == ModeAggressive && trend4h == indicators.TrendFlat &&
		bias.Confidence >= 70 && ltfAligned(tfs, bias) {
		applyAggressiveOverride(rich, tfs, bias, dist4h)
	}

	rich.BestSignal = pickBestSignal(rich.Strategies, mode)
	return rich
}

// ltfAligned checks that the 1h and 15m trends lean with the bias and at
// least one of them is directional.
func ltfAligned(tfs *analysis.TimeframeSet, bias analysis.HTFBias) bool {
	return effectiveTrend4h(bias,
		tfRecord(tfs, marketdata.Interval1h),
		tfRecord(tfs, marketdata.Interval15m)) != indicators.TrendFlat
}

// applyAggressiveOverride forces at least one scalping strategy valid when
// the bias is strong enough to trade a flat 4H.
func applyAggressiveOverride(rich *RichSymbol, tfs *analysis.TimeframeSet, bias analysis.HTFBias, dist4h *float64) {
	for _, name := range []string{StrategyTrend4H, StrategyScalp1H, StrategyMicroScalp} {
		if sig := rich.Strategies[name]; sig != nil && sig.Valid {
			rich.OverrideUsed = true
			rich.OverrideNotes = append(rich.OverrideNotes,
				fmt.Sprintf("AGGRESSIVE: %s trades flat 4H on HTF bias %s (%d%%)", name, bias.Direction, bias.Confidence))
			return
		}
	}

	for _, name := range []string{StrategyTrend4H, StrategyScalp1H, StrategyMicroScalp} {
		forced := forceStrategy(name, tfs, bias)
		if forced == nil {
			continue
		}
		rich.Strategies[name] = Normalize(forced, bias, dist4h)
		if !rich.Strategies[name].Valid {
			continue
		}
		rich.OverrideUsed = true
		rich.OverrideNotes = append(rich.OverrideNotes,
			fmt.Sprintf("AGGRESSIVE override: forced %s %s from HTF bias (%d%%)", name, bias.Direction, bias.Confidence))
		return
	}
}

// forceStrategy builds a bias-directed signal using the strategy's own
// entry and stop geometry, bypassing its gates. Returns nil when the data
// needed for the geometry is missing.
func forceStrategy(name string, tfs *analysis.TimeframeSet, bias analysis.HTFBias) *Signal {
	direction := DirectionLong
	if bias.Direction == analysis.BiasShort {
		direction = DirectionShort
	}

	var zone EntryZone
	var stop float64
	var rr RiskReward
	var tpMults []float64
	setup := SetupAuto

	switch name {
	case StrategyTrend4H:
		ema := ema21Of(tfRecord(tfs, marketdata.Interval4h))
		if ema == nil {
			return nil
		}
		zone = trend4hEntryZone(*ema, direction)
		stop = trend4hStop(tfs, zone.Mid(), direction)
		rr = RiskReward{TP1RR: floatPtr(1.0), TP2RR: floatPtr(2.0)}
		tpMults = []float64{1, 2}
		setup = SetupTrend4H
	case StrategyScalp1H:
		ema := ema21Of(tfRecord(tfs, marketdata.Interval1h))
		if ema == nil {
			return nil
		}
		zone = trend4hEntryZone(*ema, direction)
		s, ok := scalpStop(tfs, zone.Mid(), direction)
		if !ok {
			return nil
		}
		stop = s
		rr = RiskReward{TP1RR: floatPtr(1.5), TP2RR: floatPtr(3.0)}
		tpMults = []float64{1.5, 3}
		setup = SetupScalp
	case StrategyMicroScalp:
		ema15m := ema21Of(tfRecord(tfs, marketdata.Interval15m))
		ema5m := ema21Of(tfRecord(tfs, marketdata.Interval5m))
		swings15m := swingsOf(tfs, marketdata.Interval15m)
		swings5m := swingsOf(tfs, marketdata.Interval5m)
		if ema15m == nil || ema5m == nil || swings15m == nil || swings5m == nil {
			return nil
		}
		mid := (*ema15m + *ema5m) / 2
		zone = EntryZone{Min: mid * 0.999, Max: mid * 1.001}
		if direction == DirectionLong {
			stop = math.Min(swings15m.SwingLow, swings5m.SwingLow)
		} else {
			stop = math.Max(swings15m.SwingHigh, swings5m.SwingHigh)
		}
		rr = RiskReward{TP1RR: floatPtr(1.0), TP2RR: floatPtr(1.5)}
		tpMults = []float64{1, 1.5}
		setup = SetupMicroScalp
	default:
		return nil
	}

	mid := zone.Mid()
	risk := mid - stop
	if direction == DirectionShort {
		risk = stop - mid
	}
	if risk <= 0 {
		return nil
	}

	targets := make([]float64, 0, len(tpMults))
	for _, m := range tpMults {
		if direction == DirectionLong {
			targets = append(targets, mid+m*risk)
		} else {
			targets = append(targets, mid-m*risk)
		}
	}

	confidence := bias.Confidence
	if confidence > 75 {
		confidence = 75
	}

	return &Signal{
		Valid:             true,
		Direction:         direction,
		SetupType:         setup,
		SelectedStrategy:  name,
		StrategiesChecked: []string{name},
		Confidence:        confidence,
		EntryZone:         &zone,
		StopLoss:          floatPtr(stop),
		InvalidationLevel: floatPtr(stop),
		Targets:           targets,
		RiskReward:        rr,
		ReasonSummary: fmt.Sprintf("%s %s forced by AGGRESSIVE override on HTF bias (%d%%)",
			name, direction, bias.Confidence),
		ConditionsRequired: []string{},
	}
}

// pickBestSignal applies the mode's priority list, then falls back to the
// highest-confidence valid signal.
func pickBestSignal(strategies map[string]*Signal, mode Mode) *string {
	priority := []string{StrategyTrend4H, StrategySwing, StrategyScalp1H, StrategyMicroScalp}
	if mode == ModeAggressive {
		priority = []string{StrategyTrend4H, StrategyScalp1H, StrategyMicroScalp, StrategySwing}
	}

	for _, name := range priority {
		if sig := strategies[name]; sig != nil && sig.Valid {
			return &name
		}
	}

	var bestName string
	bestConf := -1
	for _, name := range strategyOrder {
		if sig := strategies[name]; sig != nil && sig.Valid && sig.Confidence > bestConf {
			bestName = name
			bestConf = sig.Confidence
		}
	}
	if bestConf >= 0 {
		return &bestName
	}
	return nil
}

// safeEval shields the aggregator from evaluator panics: any failure
// becomes a NO_TRADE carrying the error.
func safeEval(strategy string, run func() *Signal) (sig *Signal) {
	defer func() {
		if r := recover(); r != nil {
			sig = NoTradeSignal(strategy, setupForStrategy(strategy),
				fmt.Sprintf("%s: evaluator error: %v", strategy, r), nil)
		}
	}()
	sig = run()
	if sig == nil {
		sig = NoTradeSignal(strategy, setupForStrategy(strategy),
			strategy+": evaluator returned no signal", nil)
	}
	return sig
}
