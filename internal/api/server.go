package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"crypto-signal-engine/internal/dflow"
	"crypto-signal-engine/internal/marketdata"
	"crypto-signal-engine/internal/metrics"
	"crypto-signal-engine/internal/scanner"
)

// Server hosts the HTTP API over the analysis engine
type Server struct {
	market  *marketdata.Service
	scanner *scanner.Scanner
	feed    *dflow.Client
	hub     *Hub
	log     zerolog.Logger

	engine *gin.Engine
	http   *http.Server
}

// Options configure the HTTP server
type Options struct {
	Port            string
	AllowedOrigins  []string
	RateLimitPerMin int
	RateLimitBurst  int
}

// NewServer wires the routes and middleware
func NewServer(market *marketdata.Service, sc *scanner.Scanner, feed *dflow.Client, log zerolog.Logger, opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	s := &Server{
		market:  market,
		scanner: sc,
		feed:    feed,
		hub:     NewHub(log),
		log:     log.With().Str("component", "api").Logger(),
		engine:  engine,
	}

	engine.Use(gin.Recovery())
	engine.Use(requestLogger(s.log))
	engine.Use(metrics.GinMiddleware())
	corsCfg := cors.Config{
		AllowOrigins: opts.AllowedOrigins,
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}
	if len(opts.AllowedOrigins) == 1 && opts.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowOrigins = nil
	}
	engine.Use(cors.New(corsCfg))

	if opts.RateLimitPerMin > 0 {
		engine.Use(rateLimitMiddleware(opts.RateLimitPerMin, opts.RateLimitBurst))
	}

	engine.GET("/health", s.handleHealth)
	engine.GET("/metrics", metrics.Handler())

	apiGroup := engine.Group("/api")
	{
		apiGroup.GET("/analyze/:symbol", s.handleAnalyze)
		apiGroup.GET("/analyze-full", s.handleAnalyzeFull)
		apiGroup.GET("/scan", s.handleScan)
		apiGroup.GET("/symbols", s.handleSymbols)
	}

	engine.GET("/ws/scan", s.handleScanStream)

	s.http = &http.Server{
		Addr:    ":" + opts.Port,
		Handler: engine,
	}
	return s
}

// Hub exposes the scan broadcast hub so the background scanner can push
func (s *Server) Hub() *Hub {
	return s.hub
}

// Run serves until the listener fails or Shutdown is called
func (s *Server) Run() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server listening")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests within the context deadline
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.http.Shutdown(ctx)
}

func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

// rateLimitMiddleware applies a per-client token bucket keyed by IP
func rateLimitMiddleware(perMin, burst int) gin.HandlerFunc {
	if burst <= 0 {
		burst = perMin
	}

	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	limiterFor := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		lim, ok := limiters[ip]
		if !ok {
			lim = rate.NewLimiter(rate.Limit(float64(perMin)/60.0), burst)
			limiters[ip] = lim
		}
		return lim
	}

	return func(c *gin.Context) {
		if !limiterFor(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
