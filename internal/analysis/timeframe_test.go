package analysis

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"crypto-signal-engine/internal/marketdata"
)

func trendingCandles(n int) []marketdata.Candle {
	out := make([]marketdata.Candle, n)
	price := 100.0
	for i := range out {
		out[i] = marketdata.Candle{
			Timestamp: int64(i) * 60_000,
			Open:      price,
			High:      price + 1,
			Low:       price - 0.5,
			Close:     price + 0.8,
			Volume:    50,
		}
		price += 0.8
	}
	return out
}

func TestAnalyzeTimeframeContainers(t *testing.T) {
	tfa := AnalyzeTimeframe(marketdata.Interval4h, trendingCandles(300))

	if tfa.Indicators == nil {
		t.Fatal("indicators record must exist")
	}
	if tfa.MarketStructure.SwingHighs == nil || tfa.MarketStructure.SwingLows == nil {
		t.Error("market structure containers must be non-nil")
	}
	if tfa.LiquidityZones == nil || tfa.FairValueGaps == nil || tfa.Divergences == nil {
		t.Error("feature slices must be non-nil")
	}
	if tfa.VolumeProfile.HighVolumeNodes == nil || tfa.VolumeProfile.LowVolumeNodes == nil {
		t.Error("volume profile nodes must be non-nil")
	}
	if tfa.Volatility.State == "" {
		t.Error("volatility state must be set")
	}
	if tfa.CandleCount != 300 {
		t.Errorf("candleCount = %d, want 300", tfa.CandleCount)
	}
	if tfa.LastCandle == nil {
		t.Error("lastCandle must be set")
	}
}

func TestAnalyzeTimeframeGating(t *testing.T) {
	candles := trendingCandles(300)

	tf4h := AnalyzeTimeframe(marketdata.Interval4h, candles)
	if tf4h.Advanced.VWAP != nil {
		t.Error("4h must not carry VWAP")
	}
	if tf4h.Advanced.Bollinger == nil || tf4h.Advanced.MAStack == nil {
		t.Error("4h must carry Bollinger and MA stack")
	}
	if tf4h.SupportResist == nil {
		t.Error("4h must carry support/resistance")
	}

	tf5m := AnalyzeTimeframe(marketdata.Interval5m, candles)
	if tf5m.Advanced.VWAP == nil {
		t.Error("5m must carry VWAP")
	}
	if tf5m.Advanced.Bollinger != nil || tf5m.Advanced.MAStack != nil {
		t.Error("5m must not carry Bollinger or MA stack")
	}
	if tf5m.SupportResist != nil {
		t.Error("5m must not carry support/resistance")
	}
}

func TestFailedTimeframe(t *testing.T) {
	tfa := FailedTimeframe(errors.New("upstream down"))

	if tfa.Error != "upstream down" {
		t.Errorf("error = %q", tfa.Error)
	}
	if tfa.Indicators == nil {
		t.Error("failed slot must still carry an indicators record")
	}
	if tfa.MarketStructure.SwingHighs == nil || tfa.LiquidityZones == nil ||
		tfa.FairValueGaps == nil || tfa.Divergences == nil {
		t.Error("failed slot must carry complete containers")
	}
	if tfa.MarketStructure.CurrentStructure != "unknown" {
		t.Errorf("structure = %q, want unknown", tfa.MarketStructure.CurrentStructure)
	}
}

func TestAnalyzeTimeframeEmpty(t *testing.T) {
	tfa := AnalyzeTimeframe(marketdata.Interval1h, nil)
	if tfa.Indicators == nil || tfa.LiquidityZones == nil {
		t.Error("empty input must produce a structurally complete record")
	}
	if tfa.LastCandle != nil {
		t.Error("empty input has no last candle")
	}
}

func TestTimeframeSetOrdering(t *testing.T) {
	ts := NewTimeframeSet()
	order := []marketdata.Interval{
		marketdata.Interval1M, marketdata.Interval4h, marketdata.Interval1m,
	}
	for _, iv := range order {
		ts.Set(iv, FailedTimeframe(nil))
	}

	got := ts.Intervals()
	if len(got) != len(order) {
		t.Fatalf("len = %d, want %d", len(got), len(order))
	}
	for i := range order {
		if got[i] != order[i] {
			t.Errorf("intervals[%d] = %s, want %s", i, got[i], order[i])
		}
	}

	raw, err := json.Marshal(ts)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(raw)
	i1M := strings.Index(s, `"1M"`)
	i4h := strings.Index(s, `"4h"`)
	i1m := strings.Index(s, `"1m":`)
	if i1M == -1 || i4h == -1 || i1m == -1 {
		t.Fatalf("missing keys in %s", s[:min(len(s), 200)])
	}
	if !(i1M < i4h && i4h < i1m) {
		t.Errorf("keys not in insertion order: 1M@%d 4h@%d 1m@%d", i1M, i4h, i1m)
	}

	// Re-setting an interval keeps its original position
	ts.Set(marketdata.Interval4h, FailedTimeframe(nil))
	if ts.Len() != 3 {
		t.Errorf("re-set grew the set to %d", ts.Len())
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
