package strategy

import (
	"strings"

	"crypto-signal-engine/internal/analysis"
)

// Mode selects the risk posture of the engine
type Mode string

const (
	ModeSafe       Mode = "SAFE"
	ModeAggressive Mode = "AGGRESSIVE"
)

// ParseMode maps the query-level mode parameter onto an engine mode.
// STANDARD and SAFE are the same thing; anything unrecognized is SAFE.
func ParseMode(raw string) Mode {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "AGGRESSIVE":
		return ModeAggressive
	default:
		return ModeSafe
	}
}

// Signal directions
const (
	DirectionLong    = "long"
	DirectionShort   = "short"
	DirectionNoTrade = "NO_TRADE"
)

// Setup types, the semantic family of a signal
const (
	SetupSwing      = "Swing"
	SetupTrend4H    = "4h"
	SetupScalp      = "Scalp"
	SetupMicroScalp = "MicroScalp"
	SetupAuto       = "auto"
)

// Strategy names
const (
	StrategySwing      = "SWING"
	StrategyTrend4H    = "TREND_4H"
	StrategyScalp1H    = "SCALP_1H"
	StrategyMicroScalp = "MICRO_SCALP"
	StrategyTrendRider = "TREND_RIDER"
	StrategyNoTrade    = "NO_TRADE"
)

// EntryZone is the price band a trade should be entered within
type EntryZone struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Mid returns the zone midpoint
func (z EntryZone) Mid() float64 {
	return (z.Min + z.Max) / 2
}

// RiskReward expresses each target as a multiple of risk
type RiskReward struct {
	TP1RR *float64 `json:"tp1RR"`
	TP2RR *float64 `json:"tp2RR"`
	TP3RR *float64 `json:"tp3RR,omitempty"`
}

// Confluence carries the supporting-evidence summary attached to a signal
type Confluence struct {
	HTFConfirmation string   `json:"htfConfirmation"`
	LiquidityZones  string   `json:"liquidityZones"`
	Notes           []string `json:"notes"`
}

// Signal is the canonical trade signal. Every evaluator output passes
// through Normalize before leaving the engine, so the shape is identical
// for valid and invalid signals in both modes.
type Signal struct {
	Valid              bool             `json:"valid"`
	Direction          string           `json:"direction"`
	SetupType          string           `json:"setupType"`
	SelectedStrategy   string           `json:"selectedStrategy"`
	StrategiesChecked  []string         `json:"strategiesChecked"`
	Confidence         int              `json:"confidence"`
	EntryZone          *EntryZone       `json:"entryZone"`
	StopLoss           *float64         `json:"stopLoss"`
	InvalidationLevel  *float64         `json:"invalidationLevel"`
	Targets            []float64        `json:"targets"`
	RiskReward         RiskReward       `json:"riskReward"`
	ReasonSummary      string           `json:"reason_summary"`
	Confluence         Confluence       `json:"confluence"`
	ConditionsRequired []string         `json:"conditionsRequired"`
	HTFBias            analysis.HTFBias `json:"htfBias"`
	Timestamp          string           `json:"timestamp"`
}

// NoTradeSignal builds an invalid signal carrying the reason and the
// conditions that would have to hold for the strategy to fire.
func NoTradeSignal(strategy, setupType, reason string, conditions []string) *Signal {
	if len(conditions) == 0 {
		conditions = []string{"Awaiting valid setup conditions"}
	}
	return &Signal{
		Valid:              false,
		Direction:          DirectionNoTrade,
		SetupType:          setupType,
		SelectedStrategy:   strategy,
		Confidence:         0,
		Targets:            []float64{},
		ReasonSummary:      reason,
		ConditionsRequired: conditions,
	}
}

func floatPtr(v float64) *float64 { return &v }
