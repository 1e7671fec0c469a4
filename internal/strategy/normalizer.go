package strategy

import (
	"fmt"
	"time"

	"crypto-signal-engine/internal/analysis"
)

// Normalize enforces the canonical signal shape. It is idempotent: running
// it twice with the same bias and positioning yields the same signal.
//
// dist4h is the 4h distance-from-21EMA in percent, nil when unavailable.
func Normalize(s *Signal, bias analysis.HTFBias, dist4h *float64) *Signal {
	if s == nil {
		s = NoTradeSignal(StrategyNoTrade, SetupAuto, "No signal produced", nil)
	}

	if s.SetupType == "" {
		s.SetupType = SetupAuto
	}
	if s.SelectedStrategy == "" {
		s.SelectedStrategy = StrategyNoTrade
	}
	if s.StrategiesChecked == nil {
		s.StrategiesChecked = []string{}
	}
	if s.Targets == nil {
		s.Targets = []float64{}
	}
	if s.ConditionsRequired == nil {
		s.ConditionsRequired = []string{}
	}
	if s.Confluence.Notes == nil {
		s.Confluence.Notes = []string{}
	}

	// A valid signal must carry a complete trade plan. Anything short of
	// that is demoted rather than emitted half-formed.
	if s.Valid {
		if s.EntryZone == nil || s.StopLoss == nil || len(s.Targets) == 0 || s.RiskReward.TP1RR == nil {
			s.Valid = false
			if s.ReasonSummary == "" {
				s.ReasonSummary = "Signal missing entry, stop, or targets"
			}
		}
	}

	if !s.Valid {
		s.Direction = DirectionNoTrade
		s.Confidence = 0
		s.EntryZone = nil
		s.StopLoss = nil
		s.InvalidationLevel = nil
		s.Targets = []float64{}
		s.RiskReward = RiskReward{}
		if len(s.ConditionsRequired) == 0 {
			s.ConditionsRequired = []string{"Awaiting valid setup conditions"}
		}
	}

	if s.Confidence < 0 {
		s.Confidence = 0
	}
	if s.Confidence > 100 {
		s.Confidence = 100
	}

	s.HTFBias = bias
	s.Confluence.HTFConfirmation = htfConfirmation(bias)
	s.Confluence.LiquidityZones = liquiditySummary(dist4h)

	if s.Timestamp == "" {
		s.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	return s
}

func htfConfirmation(bias analysis.HTFBias) string {
	if bias.Direction == analysis.BiasNeutral {
		return "neutral"
	}
	return fmt.Sprintf("%s (%d%% from %s)", bias.Direction, bias.Confidence, bias.Source)
}

func liquiditySummary(dist4h *float64) string {
	if dist4h == nil {
		return "Awaiting price positioning data"
	}
	return fmt.Sprintf("%.2f%% from 4H 21 EMA", *dist4h)
}
