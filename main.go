package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"crypto-signal-engine/config"
	"crypto-signal-engine/internal/api"
	"crypto-signal-engine/internal/dflow"
	"crypto-signal-engine/internal/logging"
	"crypto-signal-engine/internal/marketdata"
	"crypto-signal-engine/internal/scanner"
)

func main() {
	cfg := config.Load()
	log := logging.Setup(cfg.LogLevel, cfg.LogPretty)

	market := marketdata.NewService(marketdata.ServiceConfig{
		KrakenBaseURL:  cfg.KrakenBaseURL,
		BinanceBaseURL: cfg.BinanceBaseURL,
		RequestTimeout: cfg.RequestTimeout,
		SyntheticOnly:  cfg.SyntheticOnly,
	}, log)

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, feed cache falls back to memory")
			rdb = nil
		}
	}

	feed := dflow.New(dflow.Config{
		BaseURL: cfg.DflowBaseURL,
		TTL:     cfg.DflowTTL,
		Redis:   rdb,
		Logger:  log,
	})

	sc := scanner.New(market, cfg.ScanWorkers, log)

	server := api.NewServer(market, sc, feed, log, api.Options{
		Port:            cfg.Port,
		AllowedOrigins:  cfg.AllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		RateLimitBurst:  cfg.RateLimitBurst,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.BackgroundScan {
		go sc.RunBackground(ctx, cfg.ScanInterval, scanner.Options{
			All: cfg.ScanAllPairs,
		}, server.Hub().Broadcast)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Run() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server failed")
		}
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownDeadline)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown incomplete")
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}
