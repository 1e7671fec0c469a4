package marketdata

import (
	"fmt"
)

// Candle is a single OHLCV bar. Timestamp is the open time in milliseconds.
// Candle slices are always ascending by timestamp.
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Interval identifies a chart timeframe
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval3m  Interval = "3m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
	Interval1d  Interval = "1d"
	Interval3d  Interval = "3d"
	Interval1w  Interval = "1w"
	Interval1M  Interval = "1M"
)

// intervalMinutes maps every supported interval to its minute count.
// 1M uses 43200 (30 days) as the nominal month length.
var intervalMinutes = map[Interval]int{
	Interval1m:  1,
	Interval3m:  3,
	Interval5m:  5,
	Interval15m: 15,
	Interval30m: 30,
	Interval1h:  60,
	Interval4h:  240,
	Interval1d:  1440,
	Interval3d:  4320,
	Interval1w:  10080,
	Interval1M:  43200,
}

// aggregationRule describes how to build an interval the primary source
// does not serve natively: fetch Base and reduce fixed-size chunks.
type aggregationRule struct {
	Base  Interval
	Chunk int
}

// Kraken has no 3m, 3d or 1M granularity. 1M from 30 daily candles is a
// nominal month; the boundary drift is acceptable for HTF trend reads.
var aggregationRules = map[Interval]aggregationRule{
	Interval3m: {Base: Interval1m, Chunk: 3},
	Interval3d: {Base: Interval1d, Chunk: 3},
	Interval1M: {Base: Interval1d, Chunk: 30},
}

// ParseInterval validates an interval string
func ParseInterval(s string) (Interval, error) {
	iv := Interval(s)
	if _, ok := intervalMinutes[iv]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidInterval, s)
	}
	return iv, nil
}

// Minutes returns the interval length in minutes
func (iv Interval) Minutes() int {
	return intervalMinutes[iv]
}

// Valid reports whether the interval is one of the supported codes
func (iv Interval) Valid() bool {
	_, ok := intervalMinutes[iv]
	return ok
}

// AggregateCandles reduces consecutive fixed-size chunks of base candles
// into one candle each: first open, max high, min low, last close, summed
// volume, first timestamp. A trailing partial chunk is reduced the same
// way so the series always ends with the forming candle.
func AggregateCandles(base []Candle, chunk int) []Candle {
	if chunk <= 1 || len(base) == 0 {
		return base
	}

	out := make([]Candle, 0, (len(base)+chunk-1)/chunk)

	for start := 0; start < len(base); start += chunk {
		end := start + chunk
		if end > len(base) {
			end = len(base)
		}

		agg := Candle{
			Timestamp: base[start].Timestamp,
			Open:      base[start].Open,
			High:      base[start].High,
			Low:       base[start].Low,
			Close:     base[end-1].Close,
		}
		for i := start; i < end; i++ {
			if base[i].High > agg.High {
				agg.High = base[i].High
			}
			if base[i].Low < agg.Low {
				agg.Low = base[i].Low
			}
			agg.Volume += base[i].Volume
		}
		out = append(out, agg)
	}

	return out
}

// Closes extracts the close series from candles
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}
