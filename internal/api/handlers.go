package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"crypto-signal-engine/internal/marketdata"
	"crypto-signal-engine/internal/scanner"
	"crypto-signal-engine/internal/strategy"
)

var defaultAnalyzeIntervals = []marketdata.Interval{
	marketdata.Interval4h, marketdata.Interval1h,
	marketdata.Interval15m, marketdata.Interval5m,
}

var defaultFullIntervals = []marketdata.Interval{
	marketdata.Interval1M, marketdata.Interval1w, marketdata.Interval3d,
	marketdata.Interval1d, marketdata.Interval4h, marketdata.Interval1h,
	marketdata.Interval15m, marketdata.Interval5m, marketdata.Interval3m,
	marketdata.Interval1m,
}

var serverStart = time.Now()

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"uptimeSeconds": int(time.Since(serverStart).Seconds()),
		"symbols":       s.market.SymbolCount(),
		"breaker":       s.market.BreakerState(),
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	})
}

// handleAnalyze runs a single-strategy evaluation for one symbol
func (s *Server) handleAnalyze(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	if !s.market.KnownSymbol(symbol) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown symbol: " + symbol})
		return
	}

	intervals, err := parseIntervals(c.Query("intervals"), defaultAnalyzeIntervals)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	mode := strategy.ParseMode(c.Query("mode"))
	setupType := c.DefaultQuery("setupType", "auto")

	tfs, err := scanner.Snapshot(c.Request.Context(), s.market, symbol, intervals, 0)
	if err != nil {
		s.writeError(c, err)
		return
	}

	signal := strategy.EvaluateStrategy(symbol, tfs, setupType, mode)

	analysisMap := gin.H{}
	for _, iv := range tfs.Intervals() {
		analysisMap[string(iv)] = tfs.Get(iv)
	}

	resp := gin.H{
		"symbol":      symbol,
		"htfBias":     signal.HTFBias,
		"signal":      signal,
		"tradeSignal": signal,
		"analysis":    analysisMap,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}
	if ticker, err := s.market.GetTickerPrice(c.Request.Context(), symbol); err == nil {
		resp["currentPrice"] = ticker.Price
		resp["priceChange24h"] = ticker.PriceChangePercent
	} else {
		resp["currentPrice"] = nil
		resp["priceChange24h"] = nil
	}

	c.JSON(http.StatusOK, resp)
}

// handleAnalyzeFull runs every strategy and returns the rich symbol view
func (s *Server) handleAnalyzeFull(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Query("symbol")))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol query parameter is required"})
		return
	}
	if !s.market.KnownSymbol(symbol) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown symbol: " + symbol})
		return
	}

	intervals, err := parseIntervals(c.Query("intervals"), defaultFullIntervals)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	mode := strategy.ParseMode(c.Query("mode"))

	tfs, err := scanner.Snapshot(c.Request.Context(), s.market, symbol, intervals, 0)
	if err != nil {
		s.writeError(c, err)
		return
	}

	var market any
	if ticker, err := s.market.GetTickerPrice(c.Request.Context(), symbol); err == nil {
		market = ticker
	}
	var feed any
	if s.feed != nil {
		feed = s.feed.Get(c.Request.Context(), symbol)
	}

	rich := strategy.EvaluateAllStrategies(symbol, tfs, mode, market, feed)
	c.JSON(http.StatusOK, rich)
}

// handleScan sweeps the symbol universe with the requested filters
func (s *Server) handleScan(c *gin.Context) {
	opts := scanner.Options{
		Mode: strategy.ParseMode(c.Query("mode")),
	}

	var err error
	if opts.MinConfidence, err = intQuery(c, "minConfidence", 0); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if opts.MaxResults, err = intQuery(c, "maxResults", 0); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if opts.MinConfidence < 0 || opts.MinConfidence > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "minConfidence must be in [0,100]"})
		return
	}

	direction := c.Query("direction")
	if direction != "" && direction != strategy.DirectionLong && direction != strategy.DirectionShort {
		c.JSON(http.StatusBadRequest, gin.H{"error": "direction must be long or short"})
		return
	}
	opts.Direction = direction
	opts.All = c.Query("all") == "true"

	if opts.Intervals, err = parseIntervals(c.Query("intervals"), scanner.DefaultIntervals); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.scanner.Scan(c.Request.Context(), opts)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleSymbols lists the tradeable universe
func (s *Server) handleSymbols(c *gin.Context) {
	if c.Query("all") == "true" {
		pairs, source := s.market.GetAllPairs(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"count": len(pairs), "symbols": pairs, "source": source})
		return
	}

	pairs := marketdata.DefaultSymbols()
	c.JSON(http.StatusOK, gin.H{"count": len(pairs), "symbols": pairs, "source": "static"})
}

func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, marketdata.ErrUnknownSymbol):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, marketdata.ErrInvalidInterval):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, marketdata.ErrAllSourcesFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		s.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func parseIntervals(raw string, fallback []marketdata.Interval) ([]marketdata.Interval, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]marketdata.Interval, 0, len(parts))
	for _, p := range parts {
		iv, err := marketdata.ParseInterval(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	return out, nil
}

func intQuery(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(key + " must be an integer")
	}
	return v, nil
}
