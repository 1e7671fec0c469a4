package dflow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Item is one entry of the news-style feed
type Item struct {
	Title       string `json:"title"`
	Source      string `json:"source"`
	URL         string `json:"url"`
	Sentiment   string `json:"sentiment"` // positive, negative, neutral
	PublishedAt string `json:"publishedAt"`
}

// Snapshot is the cached per-symbol feed read attached to rich analysis
type Snapshot struct {
	Symbol    string `json:"symbol"`
	Items     []Item `json:"items"`
	Sentiment string `json:"sentiment"`
	FetchedAt string `json:"fetchedAt"`
	Stale     bool   `json:"stale"`
}

const minTTL = 5 * time.Minute

// Config for the feed client. Redis is optional; without it the client
// caches in memory only.
type Config struct {
	BaseURL string
	TTL     time.Duration
	Timeout time.Duration
	Redis   *redis.Client
	Logger  zerolog.Logger
}

// Client fetches the secondary news-style feed with a short-TTL cache so
// scanner sweeps do not hammer it.
type Client struct {
	http    *http.Client
	baseURL string
	ttl     time.Duration
	rdb     *redis.Client
	log     zerolog.Logger

	mu  sync.RWMutex
	mem map[string]memEntry
}

type memEntry struct {
	snap    *Snapshot
	expires time.Time
}

// New builds a feed client. The TTL floor is 5 minutes.
func New(cfg Config) *Client {
	ttl := cfg.TTL
	if ttl < minTTL {
		ttl = minTTL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: cfg.BaseURL,
		ttl:     ttl,
		rdb:     cfg.Redis,
		log:     cfg.Logger,
		mem:     make(map[string]memEntry),
	}
}

// Get returns the cached snapshot for the symbol, fetching on a miss.
// A fetch failure degrades to an empty stale snapshot rather than an
// error so the analysis pipeline never blocks on the feed.
func (c *Client) Get(ctx context.Context, symbol string) *Snapshot {
	if snap := c.cached(ctx, symbol); snap != nil {
		return snap
	}

	snap, err := c.fetch(ctx, symbol)
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("dflow fetch failed")
		return &Snapshot{
			Symbol:    symbol,
			Items:     []Item{},
			Sentiment: "neutral",
			FetchedAt: time.Now().UTC().Format(time.RFC3339),
			Stale:     true,
		}
	}

	c.store(ctx, symbol, snap)
	return snap
}

func (c *Client) cached(ctx context.Context, symbol string) *Snapshot {
	if c.rdb != nil {
		raw, err := c.rdb.Get(ctx, cacheKey(symbol)).Bytes()
		if err == nil {
			var snap Snapshot
			if json.Unmarshal(raw, &snap) == nil {
				return &snap
			}
		}
	}

	c.mu.RLock()
	entry, ok := c.mem[symbol]
	c.mu.RUnlock()
	if ok && time.Now().Before(entry.expires) {
		return entry.snap
	}
	return nil
}

func (c *Client) store(ctx context.Context, symbol string, snap *Snapshot) {
	c.mu.Lock()
	c.mem[symbol] = memEntry{snap: snap, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()

	if c.rdb != nil {
		if raw, err := json.Marshal(snap); err == nil {
			if err := c.rdb.Set(ctx, cacheKey(symbol), raw, c.ttl).Err(); err != nil {
				c.log.Debug().Err(err).Str("symbol", symbol).Msg("dflow redis store failed")
			}
		}
	}
}

func (c *Client) fetch(ctx context.Context, symbol string) (*Snapshot, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("no feed endpoint configured")
	}

	u := fmt.Sprintf("%s/v1/news?symbol=%s", c.baseURL, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	var items []Item
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode feed response: %w", err)
	}
	if items == nil {
		items = []Item{}
	}

	return &Snapshot{
		Symbol:    symbol,
		Items:     items,
		Sentiment: aggregateSentiment(items),
		FetchedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func aggregateSentiment(items []Item) string {
	score := 0
	for _, it := range items {
		switch it.Sentiment {
		case "positive":
			score++
		case "negative":
			score--
		}
	}
	switch {
	case score > 0:
		return "positive"
	case score < 0:
		return "negative"
	}
	return "neutral"
}

func cacheKey(symbol string) string {
	return "dflow:news:" + symbol
}
