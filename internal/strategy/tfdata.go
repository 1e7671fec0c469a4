package strategy

import (
	"math"

	"crypto-signal-engine/internal/analysis"
	"crypto-signal-engine/internal/indicators"
	"crypto-signal-engine/internal/marketdata"
)

// Accessors over the per-request timeframe snapshot. Evaluators read only
// through these so a missing or failed interval degrades to nil instead of
// panicking mid-evaluation.

func tfAnalysis(tfs *analysis.TimeframeSet, iv marketdata.Interval) *analysis.TimeframeAnalysis {
	if tfs == nil {
		return nil
	}
	tfa := tfs.Get(iv)
	if tfa == nil || tfa.Error != "" {
		return nil
	}
	return tfa
}

func tfRecord(tfs *analysis.TimeframeSet, iv marketdata.Interval) *indicators.Record {
	tfa := tfAnalysis(tfs, iv)
	if tfa == nil {
		return nil
	}
	return tfa.Indicators
}

func trendOf(rec *indicators.Record) string {
	if rec == nil {
		return indicators.TrendFlat
	}
	return rec.Analysis.Trend
}

func pullbackOf(rec *indicators.Record) string {
	if rec == nil {
		return indicators.PullbackUnknown
	}
	return rec.Analysis.PullbackState
}

func ema21Of(rec *indicators.Record) *float64 {
	if rec == nil || rec.EMA == nil {
		return nil
	}
	return &rec.EMA.EMA21
}

func stochOf(rec *indicators.Record) *indicators.StochRSIInfo {
	if rec == nil {
		return nil
	}
	return rec.StochRSI
}

func priceOf(rec *indicators.Record) float64 {
	if rec == nil {
		return 0
	}
	return rec.Price.Current
}

func swingsOf(tfs *analysis.TimeframeSet, iv marketdata.Interval) *indicators.SwingPoints {
	tfa := tfAnalysis(tfs, iv)
	if tfa == nil {
		return nil
	}
	return &tfa.Structure
}

func distFrom21EMA(rec *indicators.Record) *float64 {
	if rec == nil || rec.EMA == nil {
		return nil
	}
	return &rec.Analysis.DistanceFrom21EMA
}

// withinPctOf reports whether price sits within pct percent of the level
func withinPctOf(price, level, pct float64) bool {
	if level == 0 {
		return false
	}
	return math.Abs(price-level)/level*100 <= pct
}

// pullbackIn reports whether the state is one of the accepted ones
func pullbackIn(state string, accepted ...string) bool {
	for _, a := range accepted {
		if state == a {
			return true
		}
	}
	return false
}

// stochCurl classifies the %K/%D relationship. Curling up means %K over
// %D, curling down the opposite.
func stochCurlUp(stoch *indicators.StochRSIInfo) bool {
	return stoch != nil && stoch.K > stoch.D
}

func stochCurlDown(stoch *indicators.StochRSIInfo) bool {
	return stoch != nil && stoch.K < stoch.D
}

// stochAligned reports whether the stoch leans with the trade direction
func stochAligned(stoch *indicators.StochRSIInfo, direction string) bool {
	if stoch == nil {
		return false
	}
	if direction == DirectionLong {
		return stoch.Condition == indicators.StochBullish || stoch.Condition == indicators.StochOversold
	}
	return stoch.Condition == indicators.StochBearish || stoch.Condition == indicators.StochOverbought
}

// trendMatches maps a trade direction onto the trend label it needs
func trendMatches(trend, direction string) bool {
	if direction == DirectionLong {
		return trend == indicators.TrendUp
	}
	return trend == indicators.TrendDown
}

// biasTrend converts a bias direction into the trend label it implies
func biasTrend(direction string) string {
	switch direction {
	case analysis.BiasLong:
		return indicators.TrendUp
	case analysis.BiasShort:
		return indicators.TrendDown
	}
	return indicators.TrendFlat
}
