package strategy

import (
	"reflect"
	"testing"

	"crypto-signal-engine/internal/analysis"
)

func TestNormalizeNil(t *testing.T) {
	bias := analysis.HTFBias{Direction: analysis.BiasNeutral, Source: "none"}
	sig := Normalize(nil, bias, nil)

	if sig.Valid {
		t.Error("nil input must normalize to invalid")
	}
	if sig.Direction != DirectionNoTrade {
		t.Errorf("direction = %q, want NO_TRADE", sig.Direction)
	}
	if sig.Confidence != 0 {
		t.Errorf("confidence = %d, want 0", sig.Confidence)
	}
	if len(sig.ConditionsRequired) == 0 {
		t.Error("NO_TRADE must carry non-empty conditionsRequired")
	}
	if sig.Targets == nil || sig.StrategiesChecked == nil {
		t.Error("slices must be non-nil")
	}
	if sig.Confluence.LiquidityZones != "Awaiting price positioning data" {
		t.Errorf("liquidity summary = %q", sig.Confluence.LiquidityZones)
	}
}

func TestNormalizeDemotesIncompleteValid(t *testing.T) {
	bias := analysis.HTFBias{Direction: analysis.BiasLong, Confidence: 80, Source: "4h"}

	// claims valid but has no stop
	sig := &Signal{
		Valid:     true,
		Direction: DirectionLong,
		EntryZone: &EntryZone{Min: 99, Max: 101},
		Targets:   []float64{105},
	}
	out := Normalize(sig, bias, nil)

	if out.Valid {
		t.Error("signal without stop must be demoted")
	}
	if out.Direction != DirectionNoTrade {
		t.Errorf("direction = %q, want NO_TRADE", out.Direction)
	}
	if out.EntryZone != nil || out.StopLoss != nil || len(out.Targets) != 0 {
		t.Error("demoted signal must null its price fields")
	}
}

func TestNormalizeClampsConfidence(t *testing.T) {
	bias := analysis.HTFBias{Direction: analysis.BiasLong, Confidence: 80, Source: "4h"}
	stop := 95.0
	rr := 1.0
	sig := &Signal{
		Valid:      true,
		Direction:  DirectionLong,
		Confidence: 140,
		EntryZone:  &EntryZone{Min: 99, Max: 101},
		StopLoss:   &stop,
		Targets:    []float64{105},
		RiskReward: RiskReward{TP1RR: &rr},
	}
	out := Normalize(sig, bias, nil)
	if out.Confidence != 100 {
		t.Errorf("confidence = %d, want 100", out.Confidence)
	}
	if !out.Valid {
		t.Error("complete valid signal must survive normalization")
	}
}

func TestNormalizeLiquiditySummary(t *testing.T) {
	bias := analysis.HTFBias{Direction: analysis.BiasNeutral, Source: "none"}
	dist := 1.2345
	out := Normalize(NoTradeSignal(StrategySwing, SetupSwing, "x", nil), bias, &dist)
	if out.Confluence.LiquidityZones != "1.23% from 4H 21 EMA" {
		t.Errorf("liquidity summary = %q", out.Confluence.LiquidityZones)
	}
}

func TestNormalizeRecomputesHTFConfirmation(t *testing.T) {
	bias := analysis.HTFBias{Direction: analysis.BiasShort, Confidence: 75, Source: "mixed"}
	sig := NoTradeSignal(StrategySwing, SetupSwing, "x", nil)
	sig.Confluence.HTFConfirmation = "stale value"

	out := Normalize(sig, bias, nil)
	if out.Confluence.HTFConfirmation != "short (75% from mixed)" {
		t.Errorf("htfConfirmation = %q", out.Confluence.HTFConfirmation)
	}
	if !reflect.DeepEqual(out.HTFBias, bias) {
		t.Errorf("signal bias %+v diverges from top-level %+v", out.HTFBias, bias)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	bias := analysis.HTFBias{Direction: analysis.BiasLong, Confidence: 80, Source: "4h"}
	dist := -0.4

	stop := 95.0
	rr1, rr2 := 1.0, 2.0
	signals := []*Signal{
		NoTradeSignal(StrategyTrend4H, SetupTrend4H, "gate failed", nil),
		{
			Valid:      true,
			Direction:  DirectionLong,
			SetupType:  SetupTrend4H,
			Confidence: 80,
			EntryZone:  &EntryZone{Min: 99.6, Max: 100.2},
			StopLoss:   &stop,
			Targets:    []float64{105, 110},
			RiskReward: RiskReward{TP1RR: &rr1, TP2RR: &rr2},
		},
	}

	for i, sig := range signals {
		once := Normalize(sig, bias, &dist)
		onceCopy := *once
		twice := Normalize(once, bias, &dist)
		if !reflect.DeepEqual(&onceCopy, twice) {
			t.Errorf("signal %d: normalize is not idempotent:\nonce:  %+v\ntwice: %+v", i, onceCopy, *twice)
		}
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"", ModeSafe},
		{"SAFE", ModeSafe},
		{"STANDARD", ModeSafe},
		{"standard", ModeSafe},
		{"AGGRESSIVE", ModeAggressive},
		{"aggressive", ModeAggressive},
		{"bogus", ModeSafe},
	}
	for _, tt := range tests {
		if got := ParseMode(tt.in); got != tt.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
