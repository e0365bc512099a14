package source

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"Warboard/internal/domain/models"
	"Warboard/internal/fetch"
	"Warboard/pkg/config"
	whttp "Warboard/pkg/http"
	"Warboard/pkg/queue"
)

const yahooName = "yahoo"

const yahooQuoteFields = "shortName,regularMarketPrice,regularMarketChange,regularMarketChangePercent,currency,marketState,regularMarketTime"

// Yahoo fetches batch quotes (equities, commodities, forex, bond yields)
// from the Yahoo Finance v7 quote endpoint.
type Yahoo struct {
	baseURL string
	symbols []string
	client  *whttp.Client
	queue   *queue.Queue
	pipe    *fetch.Pipeline[map[string]*models.Quote]
}

// NewYahoo creates the Yahoo quotes adapter.
func NewYahoo(cfg *config.Config, deps Deps) *Yahoo {
	sc := cfg.Sources.Yahoo

	var q *queue.Queue
	if sc.Gap() > 0 {
		q = queue.New(yahooName, sc.Gap())
	}

	return &Yahoo{
		baseURL: sc.BaseURL,
		symbols: sc.Symbols,
		client:  whttp.NewClient(whttp.WithTimeout(sc.Timeout())),
		queue:   q,
		pipe:    fetch.New[map[string]*models.Quote](yahooName, deps.options(sc.Source, q, nil)),
	}
}

type yahooResponse struct {
	QuoteResponse *struct {
		Result []struct {
			Symbol      string  `json:"symbol"`
			ShortName   string  `json:"shortName"`
			Price       float64 `json:"regularMarketPrice"`
			ChangePct   float64 `json:"regularMarketChangePercent"`
			Change      float64 `json:"regularMarketChange"`
			Currency    string  `json:"currency"`
			MarketState string  `json:"marketState"`
			MarketTime  int64   `json:"regularMarketTime"`
		} `json:"result"`
	} `json:"quoteResponse"`
}

// Quotes returns normalized quotes keyed by symbol. An empty symbol
// list falls back to the configured watchlist.
func (y *Yahoo) Quotes(ctx context.Context, symbols []string) (map[string]*models.Quote, bool) {
	if len(symbols) == 0 {
		symbols = y.symbols
	}
	if len(symbols) == 0 {
		return map[string]*models.Quote{}, true
	}

	sorted := append([]string(nil), symbols...)
	sort.Strings(sorted)
	joined := strings.Join(sorted, ",")
	key := fetch.Key("/v7/finance/quote", map[string]string{"symbols": joined})

	return y.pipe.Fetch(ctx, key, func(ctx context.Context) (map[string]*models.Quote, error) {
		var resp yahooResponse
		err := y.client.SendAndParse(ctx, &whttp.RequestOptions{
			Method: whttp.MethodGet,
			URL:    y.baseURL + "/v7/finance/quote",
			QueryParams: map[string][]string{
				"symbols": {joined},
				"fields":  {yahooQuoteFields},
			},
		}, &resp)
		if err != nil {
			return nil, err
		}
		if resp.QuoteResponse == nil {
			return nil, fetch.Malformed(fmt.Errorf("quoteResponse missing"))
		}

		out := make(map[string]*models.Quote, len(resp.QuoteResponse.Result))
		for _, r := range resp.QuoteResponse.Result {
			if r.Symbol == "" {
				continue
			}
			q := &models.Quote{
				Symbol:        r.Symbol,
				ShortName:     r.ShortName,
				Price:         r.Price,
				ChangePercent: r.ChangePct,
				Change:        r.Change,
				Currency:      r.Currency,
				MarketState:   r.MarketState,
			}
			if r.MarketTime > 0 {
				q.RegularMarketDay = time.Unix(r.MarketTime, 0).UTC()
			}
			out[r.Symbol] = q
		}
		return out, nil
	})
}

// Watchlist returns the configured default symbols.
func (y *Yahoo) Watchlist() []string {
	return y.symbols
}

// Close stops the rate-limit queue worker.
func (y *Yahoo) Close() {
	if y.queue != nil {
		y.queue.Close()
	}
}
