package features

import (
	"sort"

	"crypto-signal-engine/internal/marketdata"
)

// VolumeNode is one price bin of the profile
type VolumeNode struct {
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`
}

// VolumeProfile holds the high/low volume nodes and the value area over
// the recent window. Containers are never nil.
type VolumeProfile struct {
	HighVolumeNodes []VolumeNode `json:"highVolumeNodes"`
	LowVolumeNodes  []VolumeNode `json:"lowVolumeNodes"`
	ValueAreaHigh   float64      `json:"valueAreaHigh"`
	ValueAreaLow    float64      `json:"valueAreaLow"`
}

// BuildVolumeProfile bins candle volume by typical price into 12 buckets
// over the last 100 candles. High volume nodes are bins over 1.5x the bin
// average, low ones under 0.5x. The value area covers 70% of traded
// volume expanding outward from the point of control.
func BuildVolumeProfile(candles []marketdata.Candle) VolumeProfile {
	profile := VolumeProfile{
		HighVolumeNodes: []VolumeNode{},
		LowVolumeNodes:  []VolumeNode{},
	}
	if len(candles) == 0 {
		return profile
	}

	window := candles
	if len(window) > 100 {
		window = window[len(window)-100:]
	}

	lo, hi := window[0].Low, window[0].High
	totalVolume := 0.0
	for _, c := range window {
		if c.Low < lo {
			lo = c.Low
		}
		if c.High > hi {
			hi = c.High
		}
		totalVolume += c.Volume
	}
	if hi <= lo || totalVolume <= 0 {
		profile.ValueAreaHigh = hi
		profile.ValueAreaLow = lo
		return profile
	}

	const bins = 12
	binSize := (hi - lo) / bins
	volumes := make([]float64, bins)

	for _, c := range window {
		typical := (c.High + c.Low + c.Close) / 3
		idx := int((typical - lo) / binSize)
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		volumes[idx] += c.Volume
	}

	avg := totalVolume / bins
	for i, v := range volumes {
		node := VolumeNode{Price: lo + (float64(i)+0.5)*binSize, Volume: v}
		if v > 1.5*avg {
			profile.HighVolumeNodes = append(profile.HighVolumeNodes, node)
		} else if v < 0.5*avg {
			profile.LowVolumeNodes = append(profile.LowVolumeNodes, node)
		}
	}
	SortNodesByVolume(profile.HighVolumeNodes)
	SortNodesByVolume(profile.LowVolumeNodes)

	// Point of control, then expand until 70% of volume is covered.
	poc := 0
	for i, v := range volumes {
		if v > volumes[poc] {
			poc = i
		}
	}

	covered := volumes[poc]
	loIdx, hiIdx := poc, poc
	for covered < 0.7*totalVolume && (loIdx > 0 || hiIdx < bins-1) {
		nextLo, nextHi := -1.0, -1.0
		if loIdx > 0 {
			nextLo = volumes[loIdx-1]
		}
		if hiIdx < bins-1 {
			nextHi = volumes[hiIdx+1]
		}
		if nextHi >= nextLo {
			hiIdx++
			covered += nextHi
		} else {
			loIdx--
			covered += nextLo
		}
	}

	profile.ValueAreaLow = lo + float64(loIdx)*binSize
	profile.ValueAreaHigh = lo + float64(hiIdx+1)*binSize
	return profile
}

// SortNodesByVolume orders nodes descending by volume, for presentation
func SortNodesByVolume(nodes []VolumeNode) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Volume > nodes[j].Volume })
}
