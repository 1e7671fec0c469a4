package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// KrakenClient is the primary candle upstream. All endpoints used are
// public and keyless.
type KrakenClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewKrakenClient creates a Kraken REST client. timeout bounds every call.
func NewKrakenClient(baseURL string, timeout time.Duration) *KrakenClient {
	if baseURL == "" {
		baseURL = "https://api.kraken.com"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &KrakenClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// krakenEnvelope is the common {error, result} wrapper
type krakenEnvelope struct {
	Error  []string        `json:"error"`
	Result json.RawMessage `json:"result"`
}

func (k *KrakenClient) get(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	fullURL := fmt.Sprintf("%s%s?%s", k.baseURL, endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kraken API error: status %d", resp.StatusCode)
	}

	var envelope krakenEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(envelope.Error) > 0 {
		return nil, fmt.Errorf("kraken API error: %s", strings.Join(envelope.Error, ", "))
	}

	return envelope.Result, nil
}

// GetOHLC fetches candles for a Kraken pair at the given minute interval.
// Kraken rows are [time, open, high, low, close, vwap, volume, count] with
// time in seconds and numeric fields as strings.
func (k *KrakenClient) GetOHLC(ctx context.Context, pair string, intervalMin, limit int) ([]Candle, error) {
	params := url.Values{}
	params.Set("pair", pair)
	params.Set("interval", strconv.Itoa(intervalMin))

	result, err := k.get(ctx, "/0/public/OHLC", params)
	if err != nil {
		return nil, err
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(result, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse OHLC result: %w", err)
	}

	// The result holds the pair data plus a "last" cursor; take the pair key.
	var rows [][]json.RawMessage
	for key, raw := range payload {
		if key == "last" {
			continue
		}
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, fmt.Errorf("failed to parse OHLC rows: %w", err)
		}
		break
	}
	if rows == nil {
		return nil, fmt.Errorf("no OHLC data for pair %s", pair)
	}

	candles := make([]Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 7 {
			continue
		}
		var ts float64
		if err := json.Unmarshal(row[0], &ts); err != nil {
			continue
		}
		candles = append(candles, Candle{
			Timestamp: int64(ts) * 1000,
			Open:      parseKrakenFloat(row[1]),
			High:      parseKrakenFloat(row[2]),
			Low:       parseKrakenFloat(row[3]),
			Close:     parseKrakenFloat(row[4]),
			Volume:    parseKrakenFloat(row[6]),
		})
	}

	if limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}

	return candles, nil
}

// TickerPrice is the last trade price with its 24h change
type TickerPrice struct {
	Price              float64 `json:"price"`
	PriceChangePercent float64 `json:"priceChangePercent"`
}

// GetTicker fetches the last price and 24h change for a Kraken pair
func (k *KrakenClient) GetTicker(ctx context.Context, pair string) (*TickerPrice, error) {
	params := url.Values{}
	params.Set("pair", pair)

	result, err := k.get(ctx, "/0/public/Ticker", params)
	if err != nil {
		return nil, err
	}

	var payload map[string]struct {
		C []string `json:"c"` // last trade [price, lot volume]
		O string   `json:"o"` // today's opening price
	}
	if err := json.Unmarshal(result, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse ticker result: %w", err)
	}

	for _, t := range payload {
		if len(t.C) == 0 {
			continue
		}
		last, err := strconv.ParseFloat(t.C[0], 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse ticker price: %w", err)
		}
		open, _ := strconv.ParseFloat(t.O, 64)

		change := 0.0
		if open > 0 {
			change = (last - open) / open * 100
		}
		return &TickerPrice{Price: last, PriceChangePercent: change}, nil
	}

	return nil, fmt.Errorf("no ticker data for pair %s", pair)
}

// PairInfo describes a tradable pair discovered on the upstream
type PairInfo struct {
	Symbol     string `json:"symbol"`
	Name       string `json:"name"`
	KrakenPair string `json:"krakenPair"`
	Base       string `json:"base"`
	Quote      string `json:"quote"`
}

// GetUSDPairs discovers all online USD-quoted spot pairs
func (k *KrakenClient) GetUSDPairs(ctx context.Context) ([]PairInfo, error) {
	result, err := k.get(ctx, "/0/public/AssetPairs", url.Values{})
	if err != nil {
		return nil, err
	}

	var payload map[string]struct {
		Altname string `json:"altname"`
		WSName  string `json:"wsname"`
		Base    string `json:"base"`
		Quote   string `json:"quote"`
		Status  string `json:"status"`
	}
	if err := json.Unmarshal(result, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse asset pairs: %w", err)
	}

	var pairs []PairInfo
	for krakenPair, p := range payload {
		if p.Quote != "ZUSD" && p.Quote != "USD" {
			continue
		}
		if p.Status != "" && p.Status != "online" {
			continue
		}

		base := normalizeKrakenAsset(p.Base)
		pairs = append(pairs, PairInfo{
			Symbol:     base,
			Name:       base,
			KrakenPair: krakenPair,
			Base:       base,
			Quote:      "USD",
		})
	}

	return pairs, nil
}

// normalizeKrakenAsset strips Kraken's legacy X/Z asset prefixes and maps
// XBT back to BTC.
func normalizeKrakenAsset(asset string) string {
	if len(asset) == 4 && (asset[0] == 'X' || asset[0] == 'Z') {
		asset = asset[1:]
	}
	if asset == "XBT" {
		return "BTC"
	}
	return asset
}

func parseKrakenFloat(raw json.RawMessage) float64 {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		v, _ := strconv.ParseFloat(s, 64)
		return v
	}
	var v float64
	_ = json.Unmarshal(raw, &v)
	return v
}
