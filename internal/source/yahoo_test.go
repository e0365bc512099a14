package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Warboard/internal/fetch"
	"Warboard/pkg/config"
)

func yahooConfig(baseURL string, symbols ...string) *config.Config {
	cfg := &config.Config{}
	cfg.Sources.Yahoo.BaseURL = baseURL
	cfg.Sources.Yahoo.TTLSeconds = 60
	cfg.Sources.Yahoo.CooldownSeconds = 120
	cfg.Sources.Yahoo.TimeoutSeconds = 5
	cfg.Sources.Yahoo.Symbols = symbols
	return cfg
}

func TestYahooQuotesCachesWithinTTL(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/v7/finance/quote", r.URL.Path)
		fmt.Fprint(w, `{"quoteResponse":{"result":[
			{"symbol":"AAPL","shortName":"Apple Inc.","regularMarketPrice":150,"regularMarketChangePercent":2.0,"currency":"USD"}
		]}}`)
	}))
	defer srv.Close()

	y := NewYahoo(yahooConfig(srv.URL, "AAPL"), Deps{Status: fetch.NewRegistry()})
	defer y.Close()

	quotes, ok := y.Quotes(context.Background(), nil)
	require.True(t, ok)
	require.Contains(t, quotes, "AAPL")
	assert.Equal(t, 150.0, quotes["AAPL"].Price)
	assert.Equal(t, 2.0, quotes["AAPL"].ChangePercent)
	assert.Equal(t, int32(1), hits.Load())

	// A second call inside the TTL serves the cached map without a
	// second network call.
	again, ok := y.Quotes(context.Background(), []string{"AAPL"})
	require.True(t, ok)
	assert.Equal(t, quotes["AAPL"], again["AAPL"])
	assert.Equal(t, int32(1), hits.Load())
}

func TestYahooQuotesSymbolOrderSharesCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{"quoteResponse":{"result":[
			{"symbol":"AAPL","regularMarketPrice":150},
			{"symbol":"NVDA","regularMarketPrice":500}
		]}}`)
	}))
	defer srv.Close()

	y := NewYahoo(yahooConfig(srv.URL), Deps{Status: fetch.NewRegistry()})
	defer y.Close()

	_, ok := y.Quotes(context.Background(), []string{"AAPL", "NVDA"})
	require.True(t, ok)
	_, ok = y.Quotes(context.Background(), []string{"NVDA", "AAPL"})
	require.True(t, ok)

	assert.Equal(t, int32(1), hits.Load(), "reordered symbol lists must hit the same cache key")
}

func TestYahooRateLimitedEntersBackoff(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	reg := fetch.NewRegistry()
	y := NewYahoo(yahooConfig(srv.URL, "AAPL"), Deps{Status: reg})
	defer y.Close()

	// Cold cache plus 429: empty result, RateLimited status.
	quotes, ok := y.Quotes(context.Background(), nil)
	assert.False(t, ok)
	assert.Empty(t, quotes)
	assert.Equal(t, int32(1), hits.Load())

	info, found := reg.Get("yahoo")
	require.True(t, found)
	assert.Equal(t, fetch.StateRateLimited, info.State)

	// Inside the cooldown no further network calls are made.
	_, ok = y.Quotes(context.Background(), nil)
	assert.False(t, ok)
	assert.Equal(t, int32(1), hits.Load())
}

func TestYahooMalformedResponseEntersBackoff(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{"unexpected":true}`)
	}))
	defer srv.Close()

	reg := fetch.NewRegistry()
	y := NewYahoo(yahooConfig(srv.URL, "AAPL"), Deps{Status: reg})
	defer y.Close()

	_, ok := y.Quotes(context.Background(), nil)
	assert.False(t, ok)

	info, _ := reg.Get("yahoo")
	assert.Equal(t, fetch.StateError, info.State)

	_, _ = y.Quotes(context.Background(), nil)
	assert.Equal(t, int32(1), hits.Load())
}
