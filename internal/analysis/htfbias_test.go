package analysis

import (
	"testing"

	"crypto-signal-engine/internal/indicators"
)

func biasRecord(trend, stochCondition string) *indicators.Record {
	rec := &indicators.Record{}
	rec.Analysis.Trend = trend
	if stochCondition != "" {
		rec.StochRSI = &indicators.StochRSIInfo{Condition: stochCondition}
	}
	return rec
}

func TestComputeHTFBias(t *testing.T) {
	tests := []struct {
		name           string
		tf4h, tf1h     *indicators.Record
		wantDirection  string
		wantConfidence int
		wantSource     string
	}{
		{
			name:           "both nil",
			wantDirection:  BiasNeutral,
			wantConfidence: 0,
			wantSource:     "none",
		},
		{
			name:           "all flat no stoch",
			tf4h:           biasRecord(indicators.TrendFlat, ""),
			tf1h:           biasRecord(indicators.TrendFlat, ""),
			wantDirection:  BiasNeutral,
			wantConfidence: 0,
			wantSource:     "none",
		},
		{
			name:           "clean long alignment",
			tf4h:           biasRecord(indicators.TrendUp, indicators.StochBullish),
			tf1h:           biasRecord(indicators.TrendUp, indicators.StochBullish),
			wantDirection:  BiasLong,
			wantConfidence: 100,
			wantSource:     "4h",
		},
		{
			name:           "clean short alignment",
			tf4h:           biasRecord(indicators.TrendDown, indicators.StochBearish),
			tf1h:           biasRecord(indicators.TrendDown, indicators.StochOverbought),
			wantDirection:  BiasShort,
			wantConfidence: 100,
			wantSource:     "4h",
		},
		{
			name: "1h only",
			tf4h: biasRecord(indicators.TrendFlat, ""),
			tf1h: biasRecord(indicators.TrendUp, indicators.StochBullish),
			// long 1.5 of total 1.5
			wantDirection:  BiasLong,
			wantConfidence: 100,
			wantSource:     "1h",
		},
		{
			name: "conflict leans 4h",
			tf4h: biasRecord(indicators.TrendUp, ""),
			tf1h: biasRecord(indicators.TrendDown, ""),
			// long 2 vs short 1 of total 3
			wantDirection:  BiasLong,
			wantConfidence: 67,
			wantSource:     "4h",
		},
		{
			name: "tie breaks neutral",
			tf4h: biasRecord(indicators.TrendFlat, indicators.StochBullish),
			tf1h: biasRecord(indicators.TrendFlat, indicators.StochBearish),
			// long 0.5 vs short 0.5
			wantDirection:  BiasNeutral,
			wantConfidence: 50,
			wantSource:     "mixed",
		},
		{
			name: "oversold counts as long lean",
			tf4h: biasRecord(indicators.TrendFlat, indicators.StochOversold),
			tf1h: biasRecord(indicators.TrendFlat, ""),
			// long 0.5 of 0.5, only 4h contributed
			wantDirection:  BiasLong,
			wantConfidence: 100,
			wantSource:     "4h",
		},
		{
			name: "mixed contributions",
			tf4h: biasRecord(indicators.TrendUp, ""),
			tf1h: biasRecord(indicators.TrendUp, indicators.StochBullish),
			// long: 4h 2.0, 1h 1.5; 4h > 1h so 4h dominated
			wantDirection:  BiasLong,
			wantConfidence: 100,
			wantSource:     "4h",
		},
		{
			name: "1h dominates weighting",
			tf4h: biasRecord(indicators.TrendFlat, indicators.StochBullish),
			tf1h: biasRecord(indicators.TrendUp, indicators.StochBullish),
			// long: 4h 0.5, 1h 1.5 -> mixed
			wantDirection:  BiasLong,
			wantConfidence: 100,
			wantSource:     "mixed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeHTFBias(tt.tf4h, tt.tf1h)
			if got.Direction != tt.wantDirection {
				t.Errorf("direction = %q, want %q", got.Direction, tt.wantDirection)
			}
			if got.Confidence != tt.wantConfidence {
				t.Errorf("confidence = %d, want %d", got.Confidence, tt.wantConfidence)
			}
			if got.Source != tt.wantSource {
				t.Errorf("source = %q, want %q", got.Source, tt.wantSource)
			}
			if got.Confidence < 0 || got.Confidence > 100 {
				t.Errorf("confidence %d out of [0,100]", got.Confidence)
			}
		})
	}
}
