package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"crypto-signal-engine/internal/marketdata"
	"crypto-signal-engine/internal/scanner"
)

func testServer(t *testing.T, opts Options) *Server {
	t.Helper()
	market := marketdata.NewService(marketdata.ServiceConfig{SyntheticOnly: true}, zerolog.Nop())
	sc := scanner.New(market, 2, zerolog.Nop())
	if opts.Port == "" {
		opts.Port = "0"
	}
	if opts.AllowedOrigins == nil {
		opts.AllowedOrigins = []string{"*"}
	}
	return NewServer(market, sc, nil, zerolog.Nop(), opts)
}

func doGet(s *Server, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "192.0.2.1:40000"
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v\n%s", err, w.Body.String())
	}
	return body
}

func TestHealth(t *testing.T) {
	s := testServer(t, Options{})
	w := doGet(s, "/health")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
	if n, ok := body["symbols"].(float64); !ok || n <= 0 {
		t.Errorf("symbols = %v, want positive count", body["symbols"])
	}
	if body["breaker"] == "" {
		t.Error("breaker state missing")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := testServer(t, Options{})
	w := doGet(s, "/metrics")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Error("expected prometheus exposition output")
	}
}

func TestSymbolsStatic(t *testing.T) {
	s := testServer(t, Options{})
	w := doGet(s, "/api/symbols")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["source"] != "static" {
		t.Errorf("source = %v, want static", body["source"])
	}
	syms, ok := body["symbols"].([]any)
	if !ok || len(syms) == 0 {
		t.Fatalf("symbols = %v", body["symbols"])
	}
	if int(body["count"].(float64)) != len(syms) {
		t.Errorf("count %v != len(symbols) %d", body["count"], len(syms))
	}
}

func TestAnalyzeKnownSymbol(t *testing.T) {
	s := testServer(t, Options{})
	w := doGet(s, "/api/analyze/BTC?intervals=4h,1h")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["symbol"] != "BTC" {
		t.Errorf("symbol = %v", body["symbol"])
	}

	sig, ok := body["signal"].(map[string]any)
	if !ok {
		t.Fatalf("signal missing: %v", body)
	}
	if _, ok := sig["direction"].(string); !ok {
		t.Error("signal.direction missing")
	}
	if _, ok := sig["reason_summary"]; !ok {
		t.Error("signal.reason_summary missing")
	}
	if _, ok := body["tradeSignal"]; !ok {
		t.Error("tradeSignal alias missing")
	}

	tfMap, ok := body["analysis"].(map[string]any)
	if !ok {
		t.Fatalf("analysis missing: %v", body)
	}
	for _, iv := range []string{"4h", "1h"} {
		if _, ok := tfMap[iv]; !ok {
			t.Errorf("analysis missing %s slot", iv)
		}
	}
	if _, ok := tfMap["15m"]; ok {
		t.Error("analysis carries an interval that was not requested")
	}
}

func TestAnalyzeLowercaseSymbol(t *testing.T) {
	s := testServer(t, Options{})
	if w := doGet(s, "/api/analyze/btc?intervals=1h"); w.Code != http.StatusOK {
		t.Errorf("lowercase symbol: status = %d", w.Code)
	}
}

func TestAnalyzeUnknownSymbol(t *testing.T) {
	s := testServer(t, Options{})
	if w := doGet(s, "/api/analyze/NOPE"); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestAnalyzeBadIntervals(t *testing.T) {
	s := testServer(t, Options{})
	if w := doGet(s, "/api/analyze/BTC?intervals=7h"); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAnalyzeFull(t *testing.T) {
	s := testServer(t, Options{})
	w := doGet(s, "/api/analyze-full?symbol=ETH&intervals=4h,1h,15m,5m")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["symbol"] != "ETH" {
		t.Errorf("symbol = %v", body["symbol"])
	}
	if body["schemaVersion"] != "2.1" || body["jsonVersion"] != "1.0" {
		t.Errorf("versions = %v/%v", body["schemaVersion"], body["jsonVersion"])
	}
	if body["mode"] != "SAFE" {
		t.Errorf("mode = %v, want SAFE default", body["mode"])
	}

	strategies, ok := body["strategies"].(map[string]any)
	if !ok {
		t.Fatalf("strategies missing: %v", body)
	}
	for _, name := range []string{"SWING", "TREND_4H", "SCALP_1H", "MICRO_SCALP", "TREND_RIDER"} {
		if _, ok := strategies[name]; !ok {
			t.Errorf("strategies missing %s", name)
		}
	}
	if _, ok := body["htfBias"].(map[string]any); !ok {
		t.Error("htfBias missing")
	}
	if _, ok := body["bestSignal"]; !ok {
		t.Error("bestSignal key must be present even when null")
	}
}

func TestAnalyzeFullRequiresSymbol(t *testing.T) {
	s := testServer(t, Options{})
	if w := doGet(s, "/api/analyze-full"); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestScanValidation(t *testing.T) {
	s := testServer(t, Options{})

	if w := doGet(s, "/api/scan?minConfidence=150"); w.Code != http.StatusBadRequest {
		t.Errorf("minConfidence=150: status = %d, want 400", w.Code)
	}
	if w := doGet(s, "/api/scan?minConfidence=abc"); w.Code != http.StatusBadRequest {
		t.Errorf("minConfidence=abc: status = %d, want 400", w.Code)
	}
	if w := doGet(s, "/api/scan?direction=sideways"); w.Code != http.StatusBadRequest {
		t.Errorf("direction=sideways: status = %d, want 400", w.Code)
	}
}

func TestScanSynthetic(t *testing.T) {
	s := testServer(t, Options{})
	w := doGet(s, "/api/scan?maxResults=3&intervals=4h,1h")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	summary, ok := body["summary"].(map[string]any)
	if !ok {
		t.Fatalf("summary missing: %v", body)
	}
	if summary["scanId"] == "" {
		t.Error("scanId missing")
	}
	if opps, ok := body["opportunities"].([]any); ok && len(opps) > 3 {
		t.Errorf("maxResults not applied: %d opportunities", len(opps))
	}
}

func TestRateLimit(t *testing.T) {
	s := testServer(t, Options{RateLimitPerMin: 60, RateLimitBurst: 1})

	if w := doGet(s, "/health"); w.Code != http.StatusOK {
		t.Fatalf("first request: status = %d", w.Code)
	}
	if w := doGet(s, "/health"); w.Code != http.StatusTooManyRequests {
		t.Errorf("second request: status = %d, want 429", w.Code)
	}
}
