package scanner

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"crypto-signal-engine/internal/marketdata"
	"crypto-signal-engine/internal/strategy"
)

func syntheticMarket() *marketdata.Service {
	return marketdata.NewService(marketdata.ServiceConfig{SyntheticOnly: true}, zerolog.Nop())
}

func TestSnapshot(t *testing.T) {
	market := syntheticMarket()
	intervals := []marketdata.Interval{marketdata.Interval4h, marketdata.Interval1h}

	tfs, err := Snapshot(context.Background(), market, "BTC", intervals, 100)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if tfs.Len() != 2 {
		t.Fatalf("len = %d, want 2", tfs.Len())
	}
	for _, iv := range intervals {
		slot := tfs.Get(iv)
		if slot == nil {
			t.Fatalf("missing %s slot", iv)
		}
		if slot.Error != "" {
			t.Errorf("%s slot errored: %s", iv, slot.Error)
		}
		if slot.CandleCount != 100 {
			t.Errorf("%s candleCount = %d, want 100", iv, slot.CandleCount)
		}
		if slot.Indicators == nil || slot.Indicators.EMA == nil {
			t.Errorf("%s indicators incomplete", iv)
		}
	}
}

func TestSnapshotUnknownSymbol(t *testing.T) {
	market := syntheticMarket()
	if _, err := Snapshot(context.Background(), market, "NOPE", DefaultIntervals, 0); err == nil {
		t.Fatal("expected error for unknown symbol")
	}
}

func TestScanStoresLastResult(t *testing.T) {
	market := syntheticMarket()
	s := New(market, 4, zerolog.Nop())

	if s.LastResult() != nil {
		t.Fatal("fresh scanner must have no last result")
	}

	result, err := s.Scan(context.Background(), Options{
		Mode:       strategy.ModeSafe,
		Intervals:  []marketdata.Interval{marketdata.Interval4h, marketdata.Interval1h},
		MaxResults: 5,
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	if result.Summary.ScanID == "" {
		t.Error("scanId missing")
	}
	if result.Summary.Scanned == 0 {
		t.Error("scanned count must cover the default universe")
	}
	if result.Opportunities == nil {
		t.Error("opportunities must be non-nil even when empty")
	}
	if len(result.Opportunities) > 5 {
		t.Errorf("maxResults not applied: %d", len(result.Opportunities))
	}
	for i := 1; i < len(result.Opportunities); i++ {
		if result.Opportunities[i-1].Confidence < result.Opportunities[i].Confidence {
			t.Error("opportunities not sorted by confidence descending")
		}
	}

	if s.LastResult() != result {
		t.Error("last result not stored")
	}
}

func TestScanCancelledContext(t *testing.T) {
	market := syntheticMarket()
	s := New(market, 2, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := s.Scan(ctx, Options{Mode: strategy.ModeSafe})
	if err != nil {
		return
	}
	// All workers fail on the dead context; the sweep completes empty.
	if len(result.Opportunities) != 0 {
		t.Errorf("cancelled scan produced %d opportunities", len(result.Opportunities))
	}
}
