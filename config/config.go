package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process configuration, loaded from the environment with
// an optional .env file for local runs.
type Config struct {
	Port      string
	LogLevel  string
	LogPretty bool

	KrakenBaseURL  string
	BinanceBaseURL string
	RequestTimeout time.Duration
	SyntheticOnly  bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	DflowBaseURL string
	DflowTTL     time.Duration

	ScanWorkers      int
	ScanInterval     time.Duration
	BackgroundScan   bool
	ScanAllPairs     bool
	AllowedOrigins   []string
	RateLimitPerMin  int
	RateLimitBurst   int
	ShutdownDeadline time.Duration
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:      getEnv("PORT", "8090"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getBool("LOG_PRETTY", false),

		KrakenBaseURL:  getEnv("KRAKEN_BASE_URL", "https://api.kraken.com"),
		BinanceBaseURL: getEnv("BINANCE_BASE_URL", "https://api.binance.com"),
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 5*time.Second),
		SyntheticOnly:  getBool("SYNTHETIC_ONLY", false),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),

		DflowBaseURL: getEnv("DFLOW_BASE_URL", ""),
		DflowTTL:     getDuration("DFLOW_TTL", 5*time.Minute),

		ScanWorkers:      getInt("SCAN_WORKERS", 4),
		ScanInterval:     getDuration("SCAN_INTERVAL", 5*time.Minute),
		BackgroundScan:   getBool("BACKGROUND_SCAN", true),
		ScanAllPairs:     getBool("SCAN_ALL_PAIRS", false),
		AllowedOrigins:   getList("ALLOWED_ORIGINS", []string{"*"}),
		RateLimitPerMin:  getInt("RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:   getInt("RATE_LIMIT_BURST", 30),
		ShutdownDeadline: getDuration("SHUTDOWN_DEADLINE", 10*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
