package marketdata

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"crypto-signal-engine/internal/metrics"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// TimeframeCandles is one slot of a multi-timeframe fetch. Err is set when
// every source for that interval failed; downstream analysis must treat
// any slot as potentially failed and skip it.
type TimeframeCandles struct {
	Candles []Candle
	Source  string
	Err     error
}

// ServiceConfig configures the market data service
type ServiceConfig struct {
	KrakenBaseURL  string
	BinanceBaseURL string
	RequestTimeout time.Duration
	SyntheticOnly  bool // skip upstreams entirely, for tests and offline runs
}

// Service returns standardized candles per (symbol, interval) with a
// primary→secondary→synthetic fallback chain. The symbol map is read-only
// after construction; the fallback decision is per call and stateless.
type Service struct {
	kraken    *KrakenClient
	binance   *BinanceClient
	breaker   *gobreaker.CircuitBreaker
	symbols   map[string]symbolEntry
	synthOnly bool
	log       zerolog.Logger
}

// NewService wires the upstream clients and the primary-side breaker.
// The breaker trips after 5 consecutive Kraken failures and probes again
// after 30s; while open, calls go straight to the secondary.
func NewService(cfg ServiceConfig, log zerolog.Logger) *Service {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "kraken",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("upstream breaker state changed")
		},
	})

	symbols := make(map[string]symbolEntry, len(defaultSymbols))
	for k, v := range defaultSymbols {
		symbols[k] = v
	}

	return &Service{
		kraken:    NewKrakenClient(cfg.KrakenBaseURL, cfg.RequestTimeout),
		binance:   NewBinanceClient(cfg.BinanceBaseURL, cfg.RequestTimeout),
		breaker:   breaker,
		symbols:   symbols,
		synthOnly: cfg.SyntheticOnly,
		log:       log.With().Str("component", "marketdata").Logger(),
	}
}

// BreakerState reports the primary upstream breaker state for health checks
func (s *Service) BreakerState() string {
	return s.breaker.State().String()
}

// SymbolCount returns the size of the read-only symbol map
func (s *Service) SymbolCount() int {
	return len(s.symbols)
}

// KnownSymbol reports whether the symbol is in the pair map
func (s *Service) KnownSymbol(symbol string) bool {
	_, ok := s.symbols[symbol]
	return ok
}

// GetCandles fetches candles for (symbol, interval): primary upstream,
// then secondary, then deterministic synthetic data. Intervals the primary
// does not serve are aggregated from their base interval in fixed chunks.
func (s *Service) GetCandles(ctx context.Context, symbol string, interval Interval, limit int) ([]Candle, error) {
	entry, ok := s.symbols[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSymbol, symbol)
	}
	if !interval.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidInterval, interval)
	}
	if limit <= 0 {
		limit = 500
	}

	if !s.synthOnly {
		candles, err := s.fetchKraken(ctx, entry.KrakenPair, interval, limit)
		if err == nil && len(candles) > 0 {
			metrics.UpstreamFetches.WithLabelValues("kraken", "ok").Inc()
			return candles, nil
		}
		if err != nil {
			metrics.UpstreamFetches.WithLabelValues("kraken", "error").Inc()
			s.log.Debug().Err(err).Str("symbol", symbol).Str("interval", string(interval)).
				Msg("primary candle fetch failed, trying secondary")
		}

		candles, err = s.binance.GetKlines(ctx, entry.BinancePair, interval, limit)
		if err == nil && len(candles) > 0 {
			metrics.UpstreamFetches.WithLabelValues("binance", "ok").Inc()
			metrics.FallbacksTotal.Inc()
			return candles, nil
		}
		if err != nil {
			metrics.UpstreamFetches.WithLabelValues("binance", "error").Inc()
			s.log.Warn().Err(err).Str("symbol", symbol).Str("interval", string(interval)).
				Msg("secondary candle fetch failed, generating synthetic data")
		}
	}

	metrics.SyntheticTotal.Inc()
	return GenerateSyntheticCandles(symbol, interval, limit, time.Now()), nil
}

// fetchKraken routes through the breaker and handles interval aggregation
func (s *Service) fetchKraken(ctx context.Context, pair string, interval Interval, limit int) ([]Candle, error) {
	rule, aggregated := aggregationRules[interval]

	fetchInterval := interval
	fetchLimit := limit
	if aggregated {
		fetchInterval = rule.Base
		fetchLimit = limit * rule.Chunk
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.kraken.GetOHLC(ctx, pair, fetchInterval.Minutes(), fetchLimit)
	})
	if err != nil {
		return nil, err
	}

	candles := result.([]Candle)
	if aggregated {
		candles = AggregateCandles(candles, rule.Chunk)
		if len(candles) > limit {
			candles = candles[len(candles)-limit:]
		}
	}
	return candles, nil
}

// GetMultiTimeframeData fetches all requested intervals in parallel,
// fail-soft per interval: a failed slot carries its error instead of
// aborting the whole request.
func (s *Service) GetMultiTimeframeData(ctx context.Context, symbol string, intervals []Interval, limit int) (map[Interval]TimeframeCandles, error) {
	if _, ok := s.symbols[symbol]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSymbol, symbol)
	}

	result := make(map[Interval]TimeframeCandles, len(intervals))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, iv := range intervals {
		wg.Add(1)
		go func(interval Interval) {
			defer wg.Done()

			candles, err := s.GetCandles(ctx, symbol, interval, limit)
			slot := TimeframeCandles{Candles: candles, Err: err}

			mu.Lock()
			result[interval] = slot
			mu.Unlock()
		}(iv)
	}

	wg.Wait()
	return result, nil
}

// GetTickerPrice returns the last price and 24h change for a symbol,
// falling back to the latest candle close when the ticker upstream fails.
func (s *Service) GetTickerPrice(ctx context.Context, symbol string) (*TickerPrice, error) {
	entry, ok := s.symbols[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSymbol, symbol)
	}

	if !s.synthOnly {
		ticker, err := s.kraken.GetTicker(ctx, entry.KrakenPair)
		if err == nil {
			return ticker, nil
		}
		s.log.Debug().Err(err).Str("symbol", symbol).Msg("ticker fetch failed, using candle close")
	}

	candles, err := s.GetCandles(ctx, symbol, Interval1h, 25)
	if err != nil || len(candles) == 0 {
		return nil, fmt.Errorf("%w: ticker for %s", ErrAllSourcesFailed, symbol)
	}

	last := candles[len(candles)-1].Close
	first := candles[0].Close
	change := 0.0
	if first > 0 {
		change = (last - first) / first * 100
	}
	return &TickerPrice{Price: last, PriceChangePercent: change}, nil
}

// GetAllPairs returns USD-quoted pairs: dynamic discovery from the primary
// upstream when reachable, the built-in table otherwise. The second return
// names the source used.
func (s *Service) GetAllPairs(ctx context.Context) ([]PairInfo, string) {
	if !s.synthOnly {
		pairs, err := s.kraken.GetUSDPairs(ctx)
		if err == nil && len(pairs) > 0 {
			sort.Slice(pairs, func(i, j int) bool { return pairs[i].Symbol < pairs[j].Symbol })
			return pairs, "kraken"
		}
		if err != nil {
			s.log.Warn().Err(err).Msg("pair discovery failed, serving built-in symbol table")
		}
	}

	pairs := DefaultSymbols()
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Symbol < pairs[j].Symbol })
	return pairs, "static"
}
