package marketdata

import (
	"hash/fnv"
	"math"
	"math/rand"
	"time"
)

// syntheticBasePrices anchor the random walk so generated data sits in a
// plausible range per asset. Unknown symbols fall back to 100.
var syntheticBasePrices = map[string]float64{
	"BTC":  65000,
	"ETH":  3200,
	"SOL":  150,
	"XRP":  0.55,
	"ADA":  0.45,
	"DOGE": 0.12,
	"DOT":  6.5,
	"LINK": 14,
	"AVAX": 28,
	"LTC":  75,
}

// GenerateSyntheticCandles produces a deterministic candle series for
// (symbol, interval, now). The seed is stable within one interval bucket,
// so repeated calls in the same bucket return identical data. Used as the
// last resort when both upstreams fail.
func GenerateSyntheticCandles(symbol string, interval Interval, limit int, now time.Time) []Candle {
	if limit <= 0 {
		limit = 500
	}

	stepMs := int64(interval.Minutes()) * 60_000
	bucket := now.UnixMilli() / stepMs

	h := fnv.New64a()
	h.Write([]byte(symbol))
	h.Write([]byte(interval))
	seed := int64(h.Sum64()) ^ bucket
	rng := rand.New(rand.NewSource(seed))

	base := syntheticBasePrices[symbol]
	if base == 0 {
		base = 100
	}

	// Scale step volatility with the timeframe: roughly 0.2% on 1m up to
	// a few percent on weekly bars.
	vol := 0.002 * math.Sqrt(float64(interval.Minutes()))
	if vol > 0.05 {
		vol = 0.05
	}

	start := now.UnixMilli() - int64(limit)*stepMs
	candles := make([]Candle, limit)
	price := base * (0.9 + 0.2*rng.Float64())

	for i := 0; i < limit; i++ {
		open := price
		drift := (rng.Float64() - 0.5) * 2 * vol
		close := open * (1 + drift)

		high := math.Max(open, close) * (1 + rng.Float64()*vol*0.5)
		low := math.Min(open, close) * (1 - rng.Float64()*vol*0.5)
		volume := base * 10 * (0.5 + rng.Float64())

		candles[i] = Candle{
			Timestamp: start + int64(i)*stepMs,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    volume,
		}
		price = close
	}

	return candles
}
