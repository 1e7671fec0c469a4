package analysis

import (
	"bytes"
	"encoding/json"

	"crypto-signal-engine/internal/features"
	"crypto-signal-engine/internal/indicators"
	"crypto-signal-engine/internal/marketdata"
)

// Volatility is the ATR-derived state for a timeframe
type Volatility struct {
	ATR           float64 `json:"atr"`
	ATRPctOfPrice float64 `json:"atrPctOfPrice"`
	State         string  `json:"state"`
}

// VolumeInfo compares current volume against its 20-candle average
type VolumeInfo struct {
	Current float64 `json:"current"`
	Avg20   float64 `json:"avg20"`
	Trend   string  `json:"trend"` // up, down, neutral
}

// AdvancedIndicators are the timeframe-gated extras: VWAP on intraday
// frames, Bollinger on 4h/1h/15m, the MA stack on 4h/1h.
type AdvancedIndicators struct {
	VWAP      *indicators.VWAPResult     `json:"vwap,omitempty"`
	Bollinger *indicators.BollingerBands `json:"bollinger,omitempty"`
	MAStack   *indicators.MAStack        `json:"maStack,omitempty"`
}

// TimeframeAnalysis is the per-interval composite. The structured feature
// containers are always present, even on failed or short input.
type TimeframeAnalysis struct {
	Indicators      *indicators.Record        `json:"indicators"`
	Structure       indicators.SwingPoints    `json:"structure"`
	CandleCount     int                       `json:"candleCount"`
	LastCandle      *marketdata.Candle        `json:"lastCandle"`
	Anatomy         *features.CandleAnatomy   `json:"anatomy"`
	PriceAction     features.PriceActionFlags `json:"priceAction"`
	SupportResist   *features.SRLevels        `json:"supportResistance,omitempty"`
	MarketStructure features.MarketStructure  `json:"marketStructure"`
	Volatility      Volatility                `json:"volatility"`
	Volume          *VolumeInfo               `json:"volume"`
	VolumeProfile   features.VolumeProfile    `json:"volumeProfile"`
	LiquidityZones  []features.LiquidityZone  `json:"liquidityZones"`
	FairValueGaps   []features.FairValueGap   `json:"fairValueGaps"`
	Divergences     []features.Divergence     `json:"divergences"`
	Advanced        AdvancedIndicators        `json:"advanced"`
	Error           string                    `json:"error,omitempty"`
}

// intraday frames get a VWAP read
var vwapIntervals = map[marketdata.Interval]bool{
	marketdata.Interval1m:  true,
	marketdata.Interval3m:  true,
	marketdata.Interval5m:  true,
	marketdata.Interval15m: true,
	marketdata.Interval30m: true,
	marketdata.Interval1h:  true,
}

var bollingerIntervals = map[marketdata.Interval]bool{
	marketdata.Interval4h:  true,
	marketdata.Interval1h:  true,
	marketdata.Interval15m: true,
}

var maStackIntervals = map[marketdata.Interval]bool{
	marketdata.Interval4h: true,
	marketdata.Interval1h: true,
}

// higher frames get pivot support/resistance
var srIntervals = map[marketdata.Interval]bool{
	marketdata.Interval4h: true,
	marketdata.Interval1h: true,
}

// AnalyzeTimeframe builds the full composite for one interval. Every
// sub-analysis is individually null-safe; the returned record is always
// structurally complete.
func AnalyzeTimeframe(interval marketdata.Interval, candles []marketdata.Candle) *TimeframeAnalysis {
	tfa := &TimeframeAnalysis{
		CandleCount: len(candles),
	}

	tfa.Indicators = indicators.BuildRecord(candles)
	tfa.Structure = indicators.DetectSwingPoints(candles, 20)

	if len(candles) > 0 {
		last := candles[len(candles)-1]
		tfa.LastCandle = &last
	}

	var ema21 *float64
	if tfa.Indicators.EMA != nil {
		ema21 = &tfa.Indicators.EMA.EMA21
	}
	tfa.Anatomy = features.AnalyzeAnatomy(candles, ema21)
	tfa.PriceAction = features.DetectPriceAction(candles)

	if srIntervals[interval] {
		tfa.SupportResist = features.FindSupportResistance(candles, 0.005)
	}

	tfa.MarketStructure = features.AnalyzeMarketStructure(candles)
	tfa.LiquidityZones = features.DetectLiquidityZones(candles)
	tfa.FairValueGaps = features.DetectFairValueGaps(candles)
	tfa.VolumeProfile = features.BuildVolumeProfile(candles)

	tfa.Divergences = []features.Divergence{}
	if tfa.Indicators.RSI != nil {
		tfa.Divergences = append(tfa.Divergences,
			features.DetectDivergences(candles, tfa.Indicators.RSI.History, "RSI")...)
	}
	if tfa.Indicators.StochRSI != nil {
		tfa.Divergences = append(tfa.Divergences,
			features.DetectDivergences(candles, tfa.Indicators.StochRSI.History, "StochRSI")...)
	}

	if atr, ok := indicators.ATR(candles, 14); ok && tfa.LastCandle != nil && tfa.LastCandle.Close > 0 {
		pct := atr / tfa.LastCandle.Close * 100
		tfa.Volatility = Volatility{ATR: atr, ATRPctOfPrice: pct, State: indicators.VolatilityState(pct)}
	} else {
		tfa.Volatility = Volatility{State: indicators.VolatilityLow}
	}

	tfa.Volume = analyzeVolume(candles)

	closes := marketdata.Closes(candles)
	if vwapIntervals[interval] {
		tfa.Advanced.VWAP = indicators.VWAP(candles)
	}
	if bollingerIntervals[interval] {
		tfa.Advanced.Bollinger = indicators.Bollinger(closes, 20, 2.0)
	}
	if maStackIntervals[interval] {
		tfa.Advanced.MAStack = indicators.CalcMAStack(closes)
	}

	return ValidateTimeframe(tfa)
}

// FailedTimeframe builds a structurally complete analysis carrying an
// upstream error, so downstream consumers can skip it without nil checks.
func FailedTimeframe(err error) *TimeframeAnalysis {
	tfa := &TimeframeAnalysis{
		Indicators: indicators.BuildRecord(nil),
	}
	if err != nil {
		tfa.Error = err.Error()
	}
	return ValidateTimeframe(tfa)
}

// ValidateTimeframe enforces the always-present containers at the
// boundary instead of relying on every write site.
func ValidateTimeframe(tfa *TimeframeAnalysis) *TimeframeAnalysis {
	if tfa == nil {
		tfa = &TimeframeAnalysis{}
	}
	if tfa.Indicators == nil {
		tfa.Indicators = indicators.BuildRecord(nil)
	}
	if tfa.MarketStructure.SwingHighs == nil {
		tfa.MarketStructure.SwingHighs = []features.SwingPivot{}
	}
	if tfa.MarketStructure.SwingLows == nil {
		tfa.MarketStructure.SwingLows = []features.SwingPivot{}
	}
	if tfa.MarketStructure.CurrentStructure == "" {
		tfa.MarketStructure.CurrentStructure = "unknown"
	}
	if tfa.Volatility.State == "" {
		tfa.Volatility.State = indicators.VolatilityLow
	}
	if tfa.VolumeProfile.HighVolumeNodes == nil {
		tfa.VolumeProfile.HighVolumeNodes = []features.VolumeNode{}
	}
	if tfa.VolumeProfile.LowVolumeNodes == nil {
		tfa.VolumeProfile.LowVolumeNodes = []features.VolumeNode{}
	}
	if tfa.LiquidityZones == nil {
		tfa.LiquidityZones = []features.LiquidityZone{}
	}
	if tfa.FairValueGaps == nil {
		tfa.FairValueGaps = []features.FairValueGap{}
	}
	if tfa.Divergences == nil {
		tfa.Divergences = []features.Divergence{}
	}
	return tfa
}

func analyzeVolume(candles []marketdata.Candle) *VolumeInfo {
	if len(candles) < 21 {
		return nil
	}

	current := candles[len(candles)-1].Volume
	sum := 0.0
	for i := len(candles) - 21; i < len(candles)-1; i++ {
		sum += candles[i].Volume
	}
	avg := sum / 20
	if avg == 0 && current == 0 {
		return nil
	}

	trend := "neutral"
	if avg > 0 {
		switch {
		case current > avg*1.2:
			trend = "up"
		case current < avg*0.8:
			trend = "down"
		}
	}
	return &VolumeInfo{Current: current, Avg20: avg, Trend: trend}
}

// TimeframeSet preserves the insertion order of requested intervals when
// marshaling, which plain Go maps do not.
type TimeframeSet struct {
	order []marketdata.Interval
	byKey map[marketdata.Interval]*TimeframeAnalysis
}

// NewTimeframeSet creates an empty ordered timeframe collection
func NewTimeframeSet() *TimeframeSet {
	return &TimeframeSet{byKey: make(map[marketdata.Interval]*TimeframeAnalysis)}
}

// Set inserts or replaces an interval's analysis, keeping first-insert order
func (ts *TimeframeSet) Set(interval marketdata.Interval, tfa *TimeframeAnalysis) {
	if _, exists := ts.byKey[interval]; !exists {
		ts.order = append(ts.order, interval)
	}
	ts.byKey[interval] = tfa
}

// Get returns the analysis for an interval, or nil
func (ts *TimeframeSet) Get(interval marketdata.Interval) *TimeframeAnalysis {
	return ts.byKey[interval]
}

// Intervals returns the insertion-ordered keys
func (ts *TimeframeSet) Intervals() []marketdata.Interval {
	return ts.order
}

// Len returns the number of intervals present
func (ts *TimeframeSet) Len() int {
	return len(ts.order)
}

// MarshalJSON writes the timeframes as an object in insertion order
func (ts *TimeframeSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, iv := range ts.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(string(iv))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(ts.byKey[iv])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
