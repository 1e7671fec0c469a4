package scanner

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"crypto-signal-engine/internal/analysis"
	"crypto-signal-engine/internal/marketdata"
	"crypto-signal-engine/internal/metrics"
	"crypto-signal-engine/internal/strategy"
)

// Upstream pacing between per-symbol fetches during a sweep
const interCallDelay = 350 * time.Millisecond

// DefaultIntervals is the timeframe set a sweep evaluates per symbol
var DefaultIntervals = []marketdata.Interval{
	marketdata.Interval4h, marketdata.Interval1h,
	marketdata.Interval15m, marketdata.Interval5m,
}

// Opportunity is one tradeable result from a sweep
type Opportunity struct {
	Symbol     string           `json:"symbol"`
	Name       string           `json:"name"`
	Price      *float64         `json:"price"`
	Direction  string           `json:"direction"`
	Strategy   string           `json:"strategy"`
	Confidence int              `json:"confidence"`
	HTFBias    analysis.HTFBias `json:"htfBias"`
	Signal     *strategy.Signal `json:"signal"`
}

// Summary describes a completed sweep
type Summary struct {
	ScanID        string `json:"scanId"`
	Mode          string `json:"mode"`
	Scanned       int    `json:"scanned"`
	Opportunities int    `json:"opportunities"`
	Errors        int    `json:"errors"`
	DurationMs    int64  `json:"durationMs"`
	GeneratedAt   string `json:"generatedAt"`
}

// Result is the full output of one sweep
type Result struct {
	Summary       Summary       `json:"summary"`
	Opportunities []Opportunity `json:"opportunities"`
}

// Options filter a sweep
type Options struct {
	MinConfidence int
	MaxResults    int
	Direction     string // long, short or empty
	Intervals     []marketdata.Interval
	Mode          strategy.Mode
	All           bool // scan the full discovered pair list, not just defaults
}

// Scanner sweeps the symbol universe, evaluates every strategy per symbol
// and keeps the latest result for cheap reads.
type Scanner struct {
	market  *marketdata.Service
	limiter *rate.Limiter
	workers int
	log     zerolog.Logger

	mu   sync.RWMutex
	last *Result
}

// New builds a scanner over the market data service
func New(market *marketdata.Service, workers int, log zerolog.Logger) *Scanner {
	if workers <= 0 {
		workers = 4
	}
	return &Scanner{
		market:  market,
		limiter: rate.NewLimiter(rate.Every(interCallDelay), 1),
		workers: workers,
		log:     log.With().Str("component", "scanner").Logger(),
	}
}

// Snapshot fetches and analyzes all requested intervals for one symbol.
// Failed intervals produce error-carrying slots instead of aborting.
func Snapshot(ctx context.Context, market *marketdata.Service, symbol string, intervals []marketdata.Interval, limit int) (*analysis.TimeframeSet, error) {
	data, err := market.GetMultiTimeframeData(ctx, symbol, intervals, limit)
	if err != nil {
		return nil, err
	}

	tfs := analysis.NewTimeframeSet()
	for _, iv := range intervals {
		slot, ok := data[iv]
		if !ok || slot.Err != nil {
			var slotErr error
			if ok {
				slotErr = slot.Err
			}
			tfs.Set(iv, analysis.FailedTimeframe(slotErr))
			continue
		}
		tfs.Set(iv, analysis.AnalyzeTimeframe(iv, slot.Candles))
	}
	return tfs, nil
}

// Scan sweeps the symbol universe under the given options
func (s *Scanner) Scan(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	metrics.ScansTotal.Inc()

	intervals := opts.Intervals
	if len(intervals) == 0 {
		intervals = DefaultIntervals
	}

	symbols, err := s.universe(ctx, opts.All)
	if err != nil {
		return nil, err
	}

	type scanItem struct {
		opp *Opportunity
		err error
	}

	jobs := make(chan marketdata.PairInfo)
	results := make(chan scanItem)

	var wg sync.WaitGroup
	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pair := range jobs {
				if err := s.limiter.Wait(ctx); err != nil {
					results <- scanItem{err: err}
					continue
				}
				opp, err := s.scanSymbol(ctx, pair, intervals, opts.Mode)
				results <- scanItem{opp: opp, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, pair := range symbols {
			select {
			case jobs <- pair:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	opportunities := []Opportunity{}
	errCount := 0
	for item := range results {
		if item.err != nil {
			errCount++
			continue
		}
		if item.opp == nil || !s.matches(item.opp, opts) {
			continue
		}
		opportunities = append(opportunities, *item.opp)
	}

	sort.Slice(opportunities, func(i, j int) bool {
		return opportunities[i].Confidence > opportunities[j].Confidence
	})
	if opts.MaxResults > 0 && len(opportunities) > opts.MaxResults {
		opportunities = opportunities[:opts.MaxResults]
	}

	result := &Result{
		Summary: Summary{
			ScanID:        uuid.NewString(),
			Mode:          string(opts.Mode),
			Scanned:       len(symbols),
			Opportunities: len(opportunities),
			Errors:        errCount,
			DurationMs:    time.Since(start).Milliseconds(),
			GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
		},
		Opportunities: opportunities,
	}

	s.mu.Lock()
	s.last = result
	s.mu.Unlock()

	s.log.Info().
		Str("scanId", result.Summary.ScanID).
		Int("scanned", result.Summary.Scanned).
		Int("opportunities", result.Summary.Opportunities).
		Int64("durationMs", result.Summary.DurationMs).
		Msg("scan complete")

	return result, nil
}

func (s *Scanner) universe(ctx context.Context, all bool) ([]marketdata.PairInfo, error) {
	if all {
		pairs, _ := s.market.GetAllPairs(ctx)
		return pairs, nil
	}
	return marketdata.DefaultSymbols(), nil
}

func (s *Scanner) scanSymbol(ctx context.Context, pair marketdata.PairInfo, intervals []marketdata.Interval, mode strategy.Mode) (*Opportunity, error) {
	tfs, err := Snapshot(ctx, s.market, pair.Symbol, intervals, 0)
	if err != nil {
		return nil, err
	}

	rich := strategy.EvaluateAllStrategies(pair.Symbol, tfs, mode, nil, nil)
	if rich.BestSignal == nil {
		return nil, nil
	}

	best := rich.Strategies[*rich.BestSignal]
	if best == nil || !best.Valid {
		return nil, nil
	}
	metrics.SignalsEmitted.WithLabelValues(*rich.BestSignal, "true").Inc()

	return &Opportunity{
		Symbol:     pair.Symbol,
		Name:       pair.Name,
		Price:      rich.CurrentPrice,
		Direction:  best.Direction,
		Strategy:   *rich.BestSignal,
		Confidence: best.Confidence,
		HTFBias:    rich.HTFBias,
		Signal:     best,
	}, nil
}

func (s *Scanner) matches(opp *Opportunity, opts Options) bool {
	if opp.Confidence < opts.MinConfidence {
		return false
	}
	if opts.Direction != "" && opp.Direction != opts.Direction {
		return false
	}
	return true
}

// LastResult returns the most recent completed sweep, or nil
func (s *Scanner) LastResult() *Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// RunBackground re-sweeps on the given cadence until the context ends,
// handing each result to onResult.
func (s *Scanner) RunBackground(ctx context.Context, every time.Duration, opts Options, onResult func(*Result)) {
	if every <= 0 {
		every = 5 * time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		result, err := s.Scan(ctx, opts)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Error().Err(err).Msg("background scan failed")
		} else if onResult != nil {
			onResult(result)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
