package features

import (
	"math"
	"testing"

	"crypto-signal-engine/internal/marketdata"
)

func TestAnalyzeAnatomyZeroRange(t *testing.T) {
	candles := []marketdata.Candle{{Open: 50, High: 50, Low: 50, Close: 50}}
	ema := 49.0

	anatomy := AnalyzeAnatomy(candles, &ema)
	if anatomy == nil {
		t.Fatal("expected anatomy")
	}
	if anatomy.Direction != "doji" {
		t.Errorf("direction = %q, want doji", anatomy.Direction)
	}
	if anatomy.BodyPct != 0 || anatomy.UpperWickPct != 0 || anatomy.LowerWickPct != 0 || anatomy.CloseRelativeToRange != 0 {
		t.Errorf("zero-range candle must zero all percentages: %+v", anatomy)
	}
	if !anatomy.CloseAboveEma21 || anatomy.CloseBelowEma21 {
		t.Error("close 50 vs ema 49 should flag closeAboveEma21 only")
	}
}

func TestAnalyzeAnatomyBull(t *testing.T) {
	candles := []marketdata.Candle{{Open: 100, High: 110, Low: 98, Close: 108}}
	anatomy := AnalyzeAnatomy(candles, nil)
	if anatomy.Direction != "bull" {
		t.Errorf("direction = %q, want bull", anatomy.Direction)
	}
	if math.Abs(anatomy.BodyPct-(8.0/12.0)*100) > 1e-9 {
		t.Errorf("bodyPct = %v", anatomy.BodyPct)
	}
	if anatomy.CloseAboveEma21 || anatomy.CloseBelowEma21 {
		t.Error("missing EMA must leave both flags false")
	}
}

func TestAnalyzeAnatomyEmpty(t *testing.T) {
	if AnalyzeAnatomy(nil, nil) != nil {
		t.Error("empty input should return nil anatomy")
	}
}

func TestDetectPriceActionEngulfing(t *testing.T) {
	candles := []marketdata.Candle{
		{Open: 105, High: 106, Low: 99, Close: 100},
		{Open: 99, High: 107, Low: 98, Close: 106},
	}
	flags := DetectPriceAction(candles)
	if !flags.EngulfingBull {
		t.Error("expected bullish engulfing")
	}
	if flags.EngulfingBear || flags.InsideBar {
		t.Errorf("unexpected flags: %+v", flags)
	}
}

func TestDetectPriceActionInsideBar(t *testing.T) {
	candles := []marketdata.Candle{
		{Open: 100, High: 110, Low: 90, Close: 105},
		{Open: 104, High: 106, Low: 101, Close: 102},
	}
	flags := DetectPriceAction(candles)
	if !flags.InsideBar {
		t.Error("expected inside bar")
	}
}

func TestDetectFairValueGaps(t *testing.T) {
	// Bullish FVG: candle 0 high (101) below candle 2 low (103)
	candles := []marketdata.Candle{
		{Open: 100, High: 101, Low: 99, Close: 100.5},
		{Open: 100.5, High: 104, Low: 100, Close: 103.5},
		{Open: 103.5, High: 105, Low: 103, Close: 104.5},
		{Open: 104.5, High: 106, Low: 104, Close: 105},
	}

	fvgs := DetectFairValueGaps(candles)
	if len(fvgs) != 1 {
		t.Fatalf("expected 1 FVG, got %d", len(fvgs))
	}
	fvg := fvgs[0]
	if fvg.Direction != "bullish" {
		t.Errorf("direction = %q, want bullish", fvg.Direction)
	}
	if fvg.Top != 103 || fvg.Bottom != 101 {
		t.Errorf("gap bounds = [%v,%v], want [101,103]", fvg.Bottom, fvg.Top)
	}
	if fvg.Filled {
		t.Error("gap was never traded back into, must not be filled")
	}
}

func TestDetectFairValueGapsFilled(t *testing.T) {
	candles := []marketdata.Candle{
		{Open: 100, High: 101, Low: 99, Close: 100.5},
		{Open: 100.5, High: 104, Low: 100, Close: 103.5},
		{Open: 103.5, High: 105, Low: 103, Close: 104.5},
		// trades back into the gap
		{Open: 104.5, High: 104.6, Low: 102, Close: 102.5},
	}

	fvgs := DetectFairValueGaps(candles)
	if len(fvgs) != 1 {
		t.Fatalf("expected 1 FVG, got %d", len(fvgs))
	}
	if !fvgs[0].Filled {
		t.Error("later candle re-entered the gap, must be filled")
	}
}

func TestDetectFairValueGapsShortInput(t *testing.T) {
	fvgs := DetectFairValueGaps([]marketdata.Candle{{High: 1, Low: 0}})
	if fvgs == nil || len(fvgs) != 0 {
		t.Errorf("short input must return empty slice, got %v", fvgs)
	}
}

func pivotCandle(ts int64, high, low float64) marketdata.Candle {
	mid := (high + low) / 2
	return marketdata.Candle{Timestamp: ts, Open: mid, High: high, Low: low, Close: mid}
}

func TestAnalyzeMarketStructureUptrend(t *testing.T) {
	// Rising swing highs and lows with 5-candle pivot confirmation
	var candles []marketdata.Candle
	levels := []float64{100, 96, 104, 100, 108, 104, 112}
	ts := int64(0)
	for i, peak := range levels {
		for j := 0; j < 5; j++ {
			candles = append(candles, pivotCandle(ts, peak-2, peak-4))
			ts += 60_000
		}
		base := peak
		if i%2 == 0 {
			base = peak
		}
		candles = append(candles, pivotCandle(ts, base, base-2))
		ts += 60_000
	}
	for j := 0; j < 6; j++ {
		candles = append(candles, pivotCandle(ts, 111, 109))
		ts += 60_000
	}

	ms := AnalyzeMarketStructure(candles)
	if ms.CurrentStructure == "unknown" {
		t.Fatalf("expected a classified structure, got %q", ms.CurrentStructure)
	}
	if ms.SwingHighs == nil || ms.SwingLows == nil {
		t.Fatal("swing containers must not be nil")
	}
}

func TestAnalyzeMarketStructureShortInput(t *testing.T) {
	ms := AnalyzeMarketStructure([]marketdata.Candle{{High: 1, Low: 0}})
	if ms.CurrentStructure != "unknown" {
		t.Errorf("structure = %q, want unknown", ms.CurrentStructure)
	}
	if ms.SwingHighs == nil || ms.SwingLows == nil {
		t.Error("containers must be present even on short input")
	}
}

func TestDetectLiquidityZones(t *testing.T) {
	// Two pivot highs at nearly the same price separated by dips
	var candles []marketdata.Candle
	pattern := []float64{100, 100, 100, 110, 100, 100, 100, 110.05, 100, 100, 100}
	for i, p := range pattern {
		candles = append(candles, pivotCandle(int64(i)*60_000, p, p-5))
	}

	zones := DetectLiquidityZones(candles)
	found := false
	for _, z := range zones {
		if z.Type == "equal_highs" && z.Count >= 2 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an equal_highs cluster, got %v", zones)
	}
}

func TestBuildVolumeProfileContainers(t *testing.T) {
	vp := BuildVolumeProfile(nil)
	if vp.HighVolumeNodes == nil || vp.LowVolumeNodes == nil {
		t.Error("empty input must return non-nil node slices")
	}

	var candles []marketdata.Candle
	for i := 0; i < 50; i++ {
		price := 100 + float64(i%10)
		candles = append(candles, marketdata.Candle{
			Timestamp: int64(i) * 60_000,
			Open:      price, High: price + 1, Low: price - 1, Close: price,
			Volume: 100,
		})
	}
	vp = BuildVolumeProfile(candles)
	if vp.ValueAreaHigh <= vp.ValueAreaLow {
		t.Errorf("value area [%v,%v] not ordered", vp.ValueAreaLow, vp.ValueAreaHigh)
	}
}

func TestBuildVolumeProfileNodeOrdering(t *testing.T) {
	// Heavy trading at 105, lighter at 100, a trickle at 110. The heavier
	// node must come first regardless of price order.
	var candles []marketdata.Candle
	add := func(price, volume float64, n int) {
		for i := 0; i < n; i++ {
			candles = append(candles, marketdata.Candle{
				Timestamp: int64(len(candles)) * 60_000,
				Open:      price, High: price + 1, Low: price - 1, Close: price,
				Volume: volume,
			})
		}
	}
	add(100, 60, 10)
	add(105, 100, 10)
	add(110, 1, 10)

	vp := BuildVolumeProfile(candles)
	if len(vp.HighVolumeNodes) < 2 {
		t.Fatalf("expected at least 2 high volume nodes, got %d", len(vp.HighVolumeNodes))
	}
	for i := 1; i < len(vp.HighVolumeNodes); i++ {
		if vp.HighVolumeNodes[i-1].Volume < vp.HighVolumeNodes[i].Volume {
			t.Errorf("high volume nodes not descending: %v", vp.HighVolumeNodes)
		}
	}
	if vp.HighVolumeNodes[0].Volume != 1000 {
		t.Errorf("heaviest node volume = %v, want 1000", vp.HighVolumeNodes[0].Volume)
	}
	for i := 1; i < len(vp.LowVolumeNodes); i++ {
		if vp.LowVolumeNodes[i-1].Volume < vp.LowVolumeNodes[i].Volume {
			t.Errorf("low volume nodes not descending: %v", vp.LowVolumeNodes)
		}
	}
}

func TestFindSupportResistance(t *testing.T) {
	// Build pivots around 100 with a clear high at 110 and low at 90
	var candles []marketdata.Candle
	shape := []float64{100, 100, 100, 110, 100, 100, 90, 100, 100, 100, 100}
	for i, p := range shape {
		candles = append(candles, pivotCandle(int64(i)*60_000, p+1, p-1))
	}

	levels := FindSupportResistance(candles, 0.005)
	if levels == nil {
		t.Fatal("expected levels")
	}
	if levels.Resistance == 0 {
		t.Error("expected a resistance above price")
	}
	if levels.Support == 0 {
		t.Error("expected a support below price")
	}
}
