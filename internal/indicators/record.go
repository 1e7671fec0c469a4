package indicators

import (
	"math"
	"time"

	"crypto-signal-engine/internal/marketdata"
)

// Trend classifications. UPTREND requires price > ema21 > ema200 and
// DOWNTREND the mirror; everything else is FLAT.
const (
	TrendUp   = "UPTREND"
	TrendDown = "DOWNTREND"
	TrendFlat = "FLAT"
)

// Pullback states relative to the 21 EMA
const (
	PullbackEntryZone    = "ENTRY_ZONE"   // within 0.5% of the 21 EMA
	PullbackRetracing    = "RETRACING"    // between 0.5% and 3%
	PullbackOverextended = "OVEREXTENDED" // more than 3% away
	PullbackUnknown      = "UNKNOWN"
)

// Stochastic RSI conditions
const (
	StochOversold   = "OVERSOLD"
	StochOverbought = "OVERBOUGHT"
	StochBullish    = "BULLISH"
	StochBearish    = "BEARISH"
	StochNeutral    = "NEUTRAL"
)

// ADX trend strength categories
const (
	ADXVeryStrong = "VERY_STRONG" // >= 50
	ADXStrong     = "STRONG"      // >= 25
	ADXModerate   = "MODERATE"    // >= 20
	ADXWeak       = "WEAK"
)

// PriceInfo is the current price with the recent extremes
type PriceInfo struct {
	Current float64 `json:"current"`
	High    float64 `json:"high"`
	Low     float64 `json:"low"`
}

// EMAInfo holds the 21/200 EMAs with short histories
type EMAInfo struct {
	EMA21         float64   `json:"ema21"`
	EMA200        *float64  `json:"ema200"`
	EMA21History  []float64 `json:"ema21History"`
	EMA200History []float64 `json:"ema200History"`
}

// StochRSIInfo is the %K/%D pair with a categorical condition
type StochRSIInfo struct {
	K         float64   `json:"k"`
	D         float64   `json:"d"`
	Condition string    `json:"condition"`
	History   []float64 `json:"history"`
}

// RSIInfo is the RSI value with overbought/oversold flags
type RSIInfo struct {
	Value      float64   `json:"value"`
	History    []float64 `json:"history"`
	Overbought bool      `json:"overbought"`
	Oversold   bool      `json:"oversold"`
}

// AnalysisInfo is the trend/pullback classification for the timeframe
type AnalysisInfo struct {
	Trend             string  `json:"trend"`
	PullbackState     string  `json:"pullbackState"`
	DistanceFrom21EMA float64 `json:"distanceFrom21EMA"`
}

// TrendStrengthInfo wraps the ADX with its category flags
type TrendStrengthInfo struct {
	ADX        float64 `json:"adx"`
	Strong     bool    `json:"strong"`
	Weak       bool    `json:"weak"`
	VeryStrong bool    `json:"veryStrong"`
	Category   string  `json:"category"`
}

// Metadata describes the input series behind a record
type Metadata struct {
	CandleCount int    `json:"candleCount"`
	LastUpdate  string `json:"lastUpdate"`
}

// Record is the uniform indicator record for one timeframe. Any indicator
// without enough input data is nil; the record itself always exists with
// every other field populated.
type Record struct {
	Price               PriceInfo          `json:"price"`
	EMA                 *EMAInfo           `json:"ema"`
	StochRSI            *StochRSIInfo      `json:"stochRSI"`
	RSI                 *RSIInfo           `json:"rsi"`
	Analysis            AnalysisInfo       `json:"analysis"`
	TrendStrength       *TrendStrengthInfo `json:"trendStrength"`
	CandlestickPatterns []Pattern          `json:"candlestickPatterns"`
	WickAnalysis        *WickAnalysis      `json:"wickAnalysis"`
	Metadata            Metadata           `json:"metadata"`
}

// ClassifyTrend applies the price/ema21/ema200 ordering rule
func ClassifyTrend(price, ema21 float64, ema200 *float64) string {
	if ema200 == nil {
		return TrendFlat
	}
	if price > ema21 && ema21 > *ema200 {
		return TrendUp
	}
	if price < ema21 && ema21 < *ema200 {
		return TrendDown
	}
	return TrendFlat
}

// ClassifyPullback buckets the signed distance from the 21 EMA
func ClassifyPullback(distancePct float64) string {
	abs := math.Abs(distancePct)
	switch {
	case abs < 0.5:
		return PullbackEntryZone
	case abs > 3.0:
		return PullbackOverextended
	default:
		return PullbackRetracing
	}
}

// classifyStochCondition buckets the smoothed %K/%D pair
func classifyStochCondition(k, d float64) string {
	switch {
	case k <= 20:
		return StochOversold
	case k >= 80:
		return StochOverbought
	case k > d:
		return StochBullish
	case k < d:
		return StochBearish
	default:
		return StochNeutral
	}
}

// classifyADX buckets the ADX scalar
func classifyADX(adx float64) *TrendStrengthInfo {
	info := &TrendStrengthInfo{ADX: adx}
	switch {
	case adx >= 50:
		info.Category = ADXVeryStrong
		info.VeryStrong = true
		info.Strong = true
	case adx >= 25:
		info.Category = ADXStrong
		info.Strong = true
	case adx >= 20:
		info.Category = ADXModerate
	default:
		info.Category = ADXWeak
		info.Weak = true
	}
	return info
}

// BuildRecord assembles the uniform indicator record from a candle series.
// Every indicator degrades to nil independently on short input.
func BuildRecord(candles []marketdata.Candle) *Record {
	record := &Record{
		Analysis: AnalysisInfo{Trend: TrendFlat, PullbackState: PullbackUnknown},
		Metadata: Metadata{
			CandleCount: len(candles),
			LastUpdate:  time.Now().UTC().Format(time.RFC3339),
		},
	}
	if len(candles) == 0 {
		return record
	}

	closes := marketdata.Closes(candles)
	last := candles[len(candles)-1]
	swings := DetectSwingPoints(candles, 20)

	record.Price = PriceInfo{Current: last.Close, High: swings.SwingHigh, Low: swings.SwingLow}
	record.WickAnalysis = AnalyzeWick(last)
	record.CandlestickPatterns = DetectCandlestickPatterns(candles)

	ema21Series := EMASeries(closes, 21)
	if ema21Series != nil {
		info := &EMAInfo{
			EMA21:        ema21Series[len(ema21Series)-1],
			EMA21History: tail(ema21Series, 50),
		}
		if ema200Series := EMASeries(closes, 200); ema200Series != nil {
			v := ema200Series[len(ema200Series)-1]
			info.EMA200 = &v
			info.EMA200History = tail(ema200Series, 50)
		}
		record.EMA = info

		dist := 0.0
		if info.EMA21 != 0 {
			dist = (last.Close - info.EMA21) / info.EMA21 * 100
		}
		record.Analysis = AnalysisInfo{
			Trend:             ClassifyTrend(last.Close, info.EMA21, info.EMA200),
			PullbackState:     ClassifyPullback(dist),
			DistanceFrom21EMA: dist,
		}
	}

	if rsi := RSISeries(closes, 14); rsi != nil {
		v := rsi[len(rsi)-1]
		record.RSI = &RSIInfo{
			Value:      v,
			History:    tail(rsi, 50),
			Overbought: v >= 70,
			Oversold:   v <= 30,
		}
	}

	if stoch := StochRSI(closes, 14, 14, 3, 3); stoch != nil {
		record.StochRSI = &StochRSIInfo{
			K:         stoch.K,
			D:         stoch.D,
			Condition: classifyStochCondition(stoch.K, stoch.D),
			History:   stoch.History,
		}
	}

	if adx, ok := ADX(candles, 14); ok {
		record.TrendStrength = classifyADX(adx)
	}

	return record
}

func tail(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}
