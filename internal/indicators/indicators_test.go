package indicators

import (
	"math"
	"testing"

	"crypto-signal-engine/internal/marketdata"
)

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func flatCandles(n int, price float64) []marketdata.Candle {
	out := make([]marketdata.Candle, n)
	for i := range out {
		out[i] = marketdata.Candle{
			Timestamp: int64(i) * 60_000,
			Open:      price, High: price, Low: price, Close: price,
		}
	}
	return out
}

func trendingCandles(n int, start, step float64) []marketdata.Candle {
	out := make([]marketdata.Candle, n)
	price := start
	for i := range out {
		out[i] = marketdata.Candle{
			Timestamp: int64(i) * 60_000,
			Open:      price,
			High:      price + step,
			Low:       price - step/2,
			Close:     price + step,
			Volume:    100,
		}
		price += step
	}
	return out
}

func TestSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}

	got, ok := SMA(values, 5)
	if !ok || got != 3 {
		t.Errorf("SMA(5) = %v,%v want 3,true", got, ok)
	}
	got, ok = SMA(values, 2)
	if !ok || got != 4.5 {
		t.Errorf("SMA(2) = %v,%v want 4.5,true", got, ok)
	}
	if _, ok := SMA(values, 6); ok {
		t.Error("SMA over short input should report not ok")
	}
	if _, ok := SMA(values, 0); ok {
		t.Error("SMA with period 0 should report not ok")
	}
}

func TestEMAExactMinimumLength(t *testing.T) {
	values := []float64{2, 4, 6}

	// At exactly period-length input the EMA equals its SMA seed.
	got, ok := EMA(values, 3)
	if !ok || got != 4 {
		t.Errorf("EMA at minimum length = %v,%v want 4,true", got, ok)
	}
	if _, ok := EMA(values[:2], 3); ok {
		t.Error("EMA below minimum length should report not ok")
	}
}

func TestEMAConstantSeries(t *testing.T) {
	values := make([]float64, 300)
	for i := range values {
		values[i] = 42
	}
	got, ok := EMA(values, 200)
	if !ok || !almostEqual(got, 42, 1e-9) {
		t.Errorf("EMA of constant series = %v,%v want 42,true", got, ok)
	}
}

func TestRSISeriesBounds(t *testing.T) {
	closes := []float64{10, 11, 10.5, 12, 11.8, 13, 12.5, 14, 13.2, 15, 14.8, 16, 15.5, 17, 16.2, 18}
	rsi := RSISeries(closes, 14)
	if rsi == nil {
		t.Fatal("expected RSI series")
	}
	for i, v := range rsi {
		if v < 0 || v > 100 {
			t.Errorf("rsi[%d] = %v out of [0,100]", i, v)
		}
	}

	if RSISeries(closes[:14], 14) != nil {
		t.Error("RSI needs period+1 closes, got series from period")
	}
}

func TestRSIAllGains(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	rsi := RSISeries(closes, 14)
	if rsi == nil {
		t.Fatal("expected RSI series")
	}
	if last := rsi[len(rsi)-1]; last != 100 {
		t.Errorf("monotonic gains should produce RSI 100, got %v", last)
	}
}

func TestStochRSIClamped(t *testing.T) {
	closes := make([]float64, 60)
	price := 100.0
	for i := range closes {
		if i%3 == 0 {
			price *= 1.02
		} else {
			price *= 0.995
		}
		closes[i] = price
	}

	result := StochRSI(closes, 14, 14, 3, 3)
	if result == nil {
		t.Fatal("expected stoch result")
	}
	if result.K < 0 || result.K > 100 || result.D < 0 || result.D > 100 {
		t.Errorf("k/d out of range: k=%v d=%v", result.K, result.D)
	}
	for i, v := range result.History {
		if v < 0 || v > 100 {
			t.Errorf("history[%d] = %v out of [0,100]", i, v)
		}
	}
}

func TestStochRSITooShort(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = float64(i)
	}
	if StochRSI(closes, 14, 14, 3, 3) != nil {
		t.Error("expected nil stoch on input below rsiPeriod+stochPeriod")
	}
}

func TestATR(t *testing.T) {
	candles := trendingCandles(30, 100, 1)
	atr, ok := ATR(candles, 14)
	if !ok || atr <= 0 {
		t.Errorf("ATR = %v,%v want positive,true", atr, ok)
	}

	if _, ok := ATR(candles[:14], 14); ok {
		t.Error("ATR needs period+1 candles")
	}

	flat := flatCandles(30, 50)
	atr, ok = ATR(flat, 14)
	if !ok || atr != 0 {
		t.Errorf("ATR of identical candles = %v,%v want 0,true", atr, ok)
	}
}

func TestADXMinimumLength(t *testing.T) {
	if _, ok := ADX(trendingCandles(28, 100, 1), 14); ok {
		t.Error("ADX below 2*period+1 candles should report not ok")
	}
	adx, ok := ADX(trendingCandles(60, 100, 1), 14)
	if !ok {
		t.Fatal("expected ADX on long trending input")
	}
	if adx < 0 || adx > 100 {
		t.Errorf("ADX = %v out of [0,100]", adx)
	}
}

func TestVolatilityState(t *testing.T) {
	tests := []struct {
		atrPct float64
		want   string
	}{
		{0.0, VolatilityLow},
		{0.49, VolatilityLow},
		{0.5, VolatilityNormal},
		{1.49, VolatilityNormal},
		{1.5, VolatilityHigh},
		{2.99, VolatilityHigh},
		{3.0, VolatilityExtreme},
		{10, VolatilityExtreme},
	}
	for _, tt := range tests {
		if got := VolatilityState(tt.atrPct); got != tt.want {
			t.Errorf("VolatilityState(%v) = %q, want %q", tt.atrPct, got, tt.want)
		}
	}
}

func TestClassifyTrend(t *testing.T) {
	ema200 := func(v float64) *float64 { return &v }
	tests := []struct {
		name   string
		price  float64
		ema21  float64
		ema200 *float64
		want   string
	}{
		{"uptrend", 110, 105, ema200(100), TrendUp},
		{"downtrend", 90, 95, ema200(100), TrendDown},
		{"price below ema21 in up stack", 104, 105, ema200(100), TrendFlat},
		{"price above ema21 in down stack", 96, 95, ema200(100), TrendFlat},
		{"missing ema200", 110, 105, nil, TrendFlat},
		{"equal values", 100, 100, ema200(100), TrendFlat},
	}
	for _, tt := range tests {
		if got := ClassifyTrend(tt.price, tt.ema21, tt.ema200); got != tt.want {
			t.Errorf("%s: ClassifyTrend = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestClassifyPullback(t *testing.T) {
	tests := []struct {
		dist float64
		want string
	}{
		{0, PullbackEntryZone},
		{0.49, PullbackEntryZone},
		{-0.49, PullbackEntryZone},
		{0.5, PullbackRetracing},
		{3.0, PullbackRetracing},
		{-2.5, PullbackRetracing},
		{3.01, PullbackOverextended},
		{-10, PullbackOverextended},
	}
	for _, tt := range tests {
		if got := ClassifyPullback(tt.dist); got != tt.want {
			t.Errorf("ClassifyPullback(%v) = %q, want %q", tt.dist, got, tt.want)
		}
	}
}

func TestDetectSwingPoints(t *testing.T) {
	candles := trendingCandles(30, 100, 1)
	sp := DetectSwingPoints(candles, 20)

	if sp.SwingHigh <= sp.SwingLow {
		t.Errorf("swingHigh %v should exceed swingLow %v", sp.SwingHigh, sp.SwingLow)
	}

	empty := DetectSwingPoints(nil, 20)
	if empty.SwingHigh != 0 || empty.SwingLow != 0 {
		t.Errorf("empty input should return zero swings, got %+v", empty)
	}
}

func TestAnalyzeWickZeroRange(t *testing.T) {
	wa := AnalyzeWick(marketdata.Candle{Open: 10, High: 10, Low: 10, Close: 10})
	if wa.BullishRejection || wa.BearishRejection {
		t.Error("zero-range candle must not flag rejections")
	}
}

func TestAnalyzeWickRejection(t *testing.T) {
	// Long lower wick: open 100, dip to 90, close 101
	bullish := AnalyzeWick(marketdata.Candle{Open: 100, High: 101.5, Low: 90, Close: 101})
	if !bullish.BullishRejection {
		t.Error("expected bullish rejection on long lower wick")
	}
	if bullish.BearishRejection {
		t.Error("unexpected bearish rejection")
	}

	bearish := AnalyzeWick(marketdata.Candle{Open: 100, High: 110, Low: 99.5, Close: 99.8})
	if !bearish.BearishRejection {
		t.Error("expected bearish rejection on long upper wick")
	}
}

func TestBuildRecordShortInput(t *testing.T) {
	record := BuildRecord(flatCandles(5, 100))
	if record == nil {
		t.Fatal("record must exist on short input")
	}
	if record.EMA != nil || record.StochRSI != nil || record.RSI != nil || record.TrendStrength != nil {
		t.Error("indicators needing more data must be nil on short input")
	}
	if record.Analysis.Trend != TrendFlat {
		t.Errorf("trend = %q, want FLAT", record.Analysis.Trend)
	}
	if record.Analysis.PullbackState != PullbackUnknown {
		t.Errorf("pullbackState = %q, want UNKNOWN", record.Analysis.PullbackState)
	}
	if record.Metadata.CandleCount != 5 {
		t.Errorf("candleCount = %d, want 5", record.Metadata.CandleCount)
	}
}

func TestBuildRecordEmptyInput(t *testing.T) {
	record := BuildRecord(nil)
	if record == nil {
		t.Fatal("record must exist on empty input")
	}
	if record.Metadata.CandleCount != 0 {
		t.Errorf("candleCount = %d, want 0", record.Metadata.CandleCount)
	}
}

func TestBuildRecordFullSeries(t *testing.T) {
	record := BuildRecord(trendingCandles(300, 100, 0.5))
	if record.EMA == nil || record.EMA.EMA200 == nil {
		t.Fatal("expected full EMA block on 300 candles")
	}
	if record.RSI == nil || record.StochRSI == nil || record.TrendStrength == nil {
		t.Fatal("expected RSI, stoch and ADX on 300 candles")
	}
	if record.Analysis.Trend != TrendUp {
		t.Errorf("steady uptrend classified as %q", record.Analysis.Trend)
	}
	if record.StochRSI.K < 0 || record.StochRSI.K > 100 {
		t.Errorf("stoch K %v out of range", record.StochRSI.K)
	}
}

func TestBuildRecordIdenticalCandles(t *testing.T) {
	record := BuildRecord(flatCandles(300, 100))
	if record.EMA == nil {
		t.Fatal("EMA should compute on constant series")
	}
	if !almostEqual(record.EMA.EMA21, 100, 1e-9) {
		t.Errorf("EMA21 of constant series = %v", record.EMA.EMA21)
	}
	if record.Analysis.Trend != TrendFlat {
		t.Errorf("constant series trend = %q, want FLAT", record.Analysis.Trend)
	}
	if record.Analysis.PullbackState != PullbackEntryZone {
		t.Errorf("constant series pullback = %q, want ENTRY_ZONE", record.Analysis.PullbackState)
	}
}
