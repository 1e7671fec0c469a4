package indicators

import (
	"math"

	"crypto-signal-engine/internal/marketdata"
)

// ============================================================================
// MOVING AVERAGES
// ============================================================================

// SMA calculates the simple moving average of the last period values
func SMA(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) < period {
		return 0, false
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period), true
}

// EMASeries calculates the exponential moving average for every index from
// period-1 onward, seeded by the period-length SMA. Returns nil when the
// series is too short.
func EMASeries(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}

	seed := 0.0
	for i := 0; i < period; i++ {
		seed += values[i]
	}
	seed /= float64(period)

	multiplier := 2.0 / float64(period+1)
	out := make([]float64, 0, len(values)-period+1)
	out = append(out, seed)

	ema := seed
	for i := period; i < len(values); i++ {
		ema = (values[i] * multiplier) + (ema * (1 - multiplier))
		out = append(out, ema)
	}
	return out
}

// EMA returns the latest EMA value
func EMA(values []float64, period int) (float64, bool) {
	series := EMASeries(values, period)
	if series == nil {
		return 0, false
	}
	return series[len(series)-1], true
}

// ============================================================================
// RSI / STOCHASTIC RSI
// ============================================================================

// RSISeries calculates the RSI with Wilder smoothing for every index from
// period onward. Returns nil when the series is too short.
func RSISeries(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) < period+1 {
		return nil
	}

	avgGain := 0.0
	avgLoss := 0.0
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += -change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	out := make([]float64, 0, len(closes)-period)
	out = append(out, rsiFrom(avgGain, avgLoss))

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out = append(out, rsiFrom(avgGain, avgLoss))
	}
	return out
}

func rsiFrom(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// StochRSIResult holds the smoothed %K/%D pair of a stochastic applied to
// an RSI series. K and D are always clamped to [0,100].
type StochRSIResult struct {
	K       float64   `json:"k"`
	D       float64   `json:"d"`
	History []float64 `json:"history"`
}

// StochRSI computes stochastic(stochPeriod) over RSI(rsiPeriod), with
// %K = SMA(kSmooth) of the raw stochastic and %D = SMA(dSmooth) of %K.
// Requires len(closes) >= rsiPeriod + stochPeriod.
func StochRSI(closes []float64, rsiPeriod, stochPeriod, kSmooth, dSmooth int) *StochRSIResult {
	rsi := RSISeries(closes, rsiPeriod)
	if rsi == nil || len(rsi) < stochPeriod {
		return nil
	}

	raw := make([]float64, 0, len(rsi)-stochPeriod+1)
	for i := stochPeriod - 1; i < len(rsi); i++ {
		lo, hi := rsi[i], rsi[i]
		for j := i - stochPeriod + 1; j <= i; j++ {
			if rsi[j] < lo {
				lo = rsi[j]
			}
			if rsi[j] > hi {
				hi = rsi[j]
			}
		}
		v := 50.0
		if hi != lo {
			v = (rsi[i] - lo) / (hi - lo) * 100
		}
		raw = append(raw, clamp(v, 0, 100))
	}

	kSeries := smaSeries(raw, kSmooth)
	if kSeries == nil {
		return nil
	}
	dSeries := smaSeries(kSeries, dSmooth)

	k := clamp(kSeries[len(kSeries)-1], 0, 100)
	d := k
	if dSeries != nil {
		d = clamp(dSeries[len(dSeries)-1], 0, 100)
	}

	history := kSeries
	if len(history) > 50 {
		history = history[len(history)-50:]
	}

	return &StochRSIResult{K: k, D: d, History: history}
}

func smaSeries(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	out := make([]float64, 0, len(values)-period+1)
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out = append(out, sum/float64(period))
		}
	}
	return out
}

// ============================================================================
// ADX (Wilder)
// ============================================================================

// ADX calculates the Average Directional Index with +DI/−DI and Wilder
// smoothing. Requires at least 2*period candles.
func ADX(candles []marketdata.Candle, period int) (float64, bool) {
	if period <= 0 || len(candles) < 2*period+1 {
		return 0, false
	}

	var trs, plusDMs, minusDMs []float64
	for i := 1; i < len(candles); i++ {
		cur, prev := candles[i], candles[i-1]

		tr := math.Max(cur.High-cur.Low,
			math.Max(math.Abs(cur.High-prev.Close), math.Abs(cur.Low-prev.Close)))
		trs = append(trs, tr)

		upMove := cur.High - prev.High
		downMove := prev.Low - cur.Low
		plusDM, minusDM := 0.0, 0.0
		if upMove > downMove && upMove > 0 {
			plusDM = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM = downMove
		}
		plusDMs = append(plusDMs, plusDM)
		minusDMs = append(minusDMs, minusDM)
	}

	smTR := wilderSum(trs, period)
	smPlus := wilderSum(plusDMs, period)
	smMinus := wilderSum(minusDMs, period)

	var dxs []float64
	for i := range smTR {
		if smTR[i] == 0 {
			dxs = append(dxs, 0)
			continue
		}
		plusDI := smPlus[i] / smTR[i] * 100
		minusDI := smMinus[i] / smTR[i] * 100
		sum := plusDI + minusDI
		if sum == 0 {
			dxs = append(dxs, 0)
			continue
		}
		dxs = append(dxs, math.Abs(plusDI-minusDI)/sum*100)
	}

	if len(dxs) < period {
		return 0, false
	}

	adx := 0.0
	for i := 0; i < period; i++ {
		adx += dxs[i]
	}
	adx /= float64(period)
	for i := period; i < len(dxs); i++ {
		adx = (adx*float64(period-1) + dxs[i]) / float64(period)
	}

	return adx, true
}

// wilderSum applies Wilder's smoothed sum over the series
func wilderSum(values []float64, period int) []float64 {
	if len(values) < period {
		return nil
	}
	out := make([]float64, 0, len(values)-period+1)
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	out = append(out, sum)
	for i := period; i < len(values); i++ {
		sum = sum - sum/float64(period) + values[i]
		out = append(out, sum)
	}
	return out
}

// ============================================================================
// ATR & VOLATILITY STATE
// ============================================================================

// ATR calculates the Average True Range over the last period candles
func ATR(candles []marketdata.Candle, period int) (float64, bool) {
	if period <= 0 || len(candles) < period+1 {
		return 0, false
	}

	trSum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		high := candles[i].High
		low := candles[i].Low
		prevClose := candles[i-1].Close
		tr := math.Max(high-low,
			math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
		trSum += tr
	}
	return trSum / float64(period), true
}

// Volatility state classification thresholds over ATR as percent of price.
// Fixed across the whole engine.
const (
	VolatilityLow     = "low"     // atrPct < 0.5
	VolatilityNormal  = "normal"  // atrPct < 1.5
	VolatilityHigh    = "high"    // atrPct < 3.0
	VolatilityExtreme = "extreme" // otherwise
)

// VolatilityState classifies ATR as a percent of price
func VolatilityState(atrPct float64) string {
	switch {
	case atrPct < 0.5:
		return VolatilityLow
	case atrPct < 1.5:
		return VolatilityNormal
	case atrPct < 3.0:
		return VolatilityHigh
	default:
		return VolatilityExtreme
	}
}

// ============================================================================
// BOLLINGER BANDS
// ============================================================================

// BollingerBands holds the band values plus a squeeze flag
type BollingerBands struct {
	Upper   float64 `json:"upper"`
	Middle  float64 `json:"middle"`
	Lower   float64 `json:"lower"`
	Squeeze bool    `json:"squeeze"`
}

// Bollinger calculates Bollinger Bands over closes. A squeeze is flagged
// when the band width is under 4% of the middle band.
func Bollinger(closes []float64, period int, stdDevMult float64) *BollingerBands {
	middle, ok := SMA(closes, period)
	if !ok {
		return nil
	}

	variance := 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		diff := closes[i] - middle
		variance += diff * diff
	}
	stdDev := math.Sqrt(variance / float64(period))

	bands := &BollingerBands{
		Upper:  middle + stdDev*stdDevMult,
		Middle: middle,
		Lower:  middle - stdDev*stdDevMult,
	}
	if middle > 0 {
		bands.Squeeze = (bands.Upper-bands.Lower)/middle*100 < 4.0
	}
	return bands
}

// ============================================================================
// VWAP
// ============================================================================

// VWAPResult is the volume weighted average price with price positioning
type VWAPResult struct {
	Value       float64 `json:"value"`
	AboveVWAP   bool    `json:"aboveVWAP"`
	DistancePct float64 `json:"distancePct"`
}

// VWAP calculates the volume weighted average of the typical price over
// the window. Candles without volume fall back to a plain average.
func VWAP(candles []marketdata.Candle) *VWAPResult {
	if len(candles) == 0 {
		return nil
	}

	var pvSum, volSum float64
	for _, c := range candles {
		typical := (c.High + c.Low + c.Close) / 3
		pvSum += typical * c.Volume
		volSum += c.Volume
	}

	var vwap float64
	if volSum > 0 {
		vwap = pvSum / volSum
	} else {
		for _, c := range candles {
			vwap += (c.High + c.Low + c.Close) / 3
		}
		vwap /= float64(len(candles))
	}

	price := candles[len(candles)-1].Close
	result := &VWAPResult{Value: vwap, AboveVWAP: price > vwap}
	if vwap > 0 {
		result.DistancePct = (price - vwap) / vwap * 100
	}
	return result
}

// ============================================================================
// MA STACK
// ============================================================================

// MAStack captures the 21/50/200 moving average alignment
type MAStack struct {
	EMA21     float64 `json:"ema21"`
	SMA50     float64 `json:"sma50"`
	EMA200    float64 `json:"ema200"`
	BullStack bool    `json:"bullStack"`
	BearStack bool    `json:"bearStack"`
	Flat      bool    `json:"flat"`
}

// CalcMAStack computes the 21 EMA / 50 SMA / 200 EMA stack flags
func CalcMAStack(closes []float64) *MAStack {
	ema21, ok21 := EMA(closes, 21)
	sma50, ok50 := SMA(closes, 50)
	ema200, ok200 := EMA(closes, 200)
	if !ok21 || !ok50 || !ok200 {
		return nil
	}

	stack := &MAStack{EMA21: ema21, SMA50: sma50, EMA200: ema200}
	stack.BullStack = ema21 > sma50 && sma50 > ema200
	stack.BearStack = ema21 < sma50 && sma50 < ema200
	stack.Flat = !stack.BullStack && !stack.BearStack
	return stack
}

// ============================================================================
// SWING POINTS & WICKS
// ============================================================================

// SwingPoints is the min low / max high over a recent window
type SwingPoints struct {
	SwingHigh float64 `json:"swingHigh"`
	SwingLow  float64 `json:"swingLow"`
}

// DetectSwingPoints finds the extreme high and low of the last lookback
// candles (default 20 when lookback <= 0).
func DetectSwingPoints(candles []marketdata.Candle, lookback int) SwingPoints {
	if lookback <= 0 {
		lookback = 20
	}
	if len(candles) == 0 {
		return SwingPoints{}
	}

	start := len(candles) - lookback
	if start < 0 {
		start = 0
	}

	sp := SwingPoints{SwingHigh: candles[start].High, SwingLow: candles[start].Low}
	for i := start; i < len(candles); i++ {
		if candles[i].High > sp.SwingHigh {
			sp.SwingHigh = candles[i].High
		}
		if candles[i].Low < sp.SwingLow {
			sp.SwingLow = candles[i].Low
		}
	}
	return sp
}

// WickAnalysis classifies a single candle's wick rejection
type WickAnalysis struct {
	UpperWick        float64 `json:"upperWick"`
	LowerWick        float64 `json:"lowerWick"`
	Body             float64 `json:"body"`
	BullishRejection bool    `json:"bullishRejection"`
	BearishRejection bool    `json:"bearishRejection"`
}

// AnalyzeWick flags a rejection wick: wick >= 2x body and wick > half the
// candle range. A lower-wick rejection is bullish, an upper-wick one bearish.
func AnalyzeWick(c marketdata.Candle) *WickAnalysis {
	body := math.Abs(c.Close - c.Open)
	upper := c.High - math.Max(c.Open, c.Close)
	lower := math.Min(c.Open, c.Close) - c.Low
	candleRange := c.High - c.Low

	wa := &WickAnalysis{UpperWick: upper, LowerWick: lower, Body: body}
	if candleRange <= 0 {
		return wa
	}

	wa.BullishRejection = lower >= 2*body && lower > 0.5*candleRange
	wa.BearishRejection = upper >= 2*body && upper > 0.5*candleRange
	return wa
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
