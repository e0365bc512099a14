package source

import (
	"context"
	"fmt"
	"strconv"

	"Warboard/internal/domain/models"
	"Warboard/internal/fetch"
	"Warboard/pkg/config"
	whttp "Warboard/pkg/http"
	"Warboard/pkg/queue"
)

const coingeckoName = "coingecko"

// CoinGecko fetches the crypto market overview and global stats. Both
// endpoints share one backoff window and one rate-limit queue since
// CoinGecko enforces its free-tier quota per client, not per endpoint.
type CoinGecko struct {
	baseURL    string
	perPage    int
	client     *whttp.Client
	queue      *queue.Queue
	pipeCoins  *fetch.Pipeline[[]models.CoinMarket]
	pipeGlobal *fetch.Pipeline[*models.GlobalCrypto]
}

// NewCoinGecko creates the CoinGecko adapter.
func NewCoinGecko(cfg *config.Config, deps Deps) *CoinGecko {
	sc := cfg.Sources.Coingecko

	var q *queue.Queue
	if sc.Gap() > 0 {
		q = queue.New(coingeckoName, sc.Gap())
	}
	breaker := fetch.NewBreaker(sc.Cooldown())

	return &CoinGecko{
		baseURL:    sc.BaseURL,
		perPage:    sc.PerPage,
		client:     whttp.NewClient(whttp.WithTimeout(sc.Timeout())),
		queue:      q,
		pipeCoins:  fetch.New[[]models.CoinMarket](coingeckoName, deps.options(sc.Source, q, breaker)),
		pipeGlobal: fetch.New[*models.GlobalCrypto](coingeckoName, deps.options(sc.Source, q, breaker)),
	}
}

type geckoMarketRow struct {
	ID             string  `json:"id"`
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	Image          string  `json:"image"`
	CurrentPrice   float64 `json:"current_price"`
	MarketCap      float64 `json:"market_cap"`
	MarketCapRank  int     `json:"market_cap_rank"`
	TotalVolume    float64 `json:"total_volume"`
	PriceChange24h float64 `json:"price_change_percentage_24h"`
	Sparkline      *struct {
		Price []float64 `json:"price"`
	} `json:"sparkline_in_7d"`
}

// Markets returns the top coins by market cap.
func (g *CoinGecko) Markets(ctx context.Context, limit int) ([]models.CoinMarket, bool) {
	if limit <= 0 || limit > g.perPage {
		limit = g.perPage
	}

	params := map[string]string{
		"vs_currency": "usd",
		"order":       "market_cap_desc",
		"per_page":    strconv.Itoa(g.perPage),
		"page":        "1",
		"sparkline":   "true",
	}
	key := fetch.Key("/api/v3/coins/markets", params)

	coins, ok := g.pipeCoins.Fetch(ctx, key, func(ctx context.Context) ([]models.CoinMarket, error) {
		var rows []geckoMarketRow
		err := g.client.SendAndParse(ctx, &whttp.RequestOptions{
			Method:      whttp.MethodGet,
			URL:         g.baseURL + "/api/v3/coins/markets",
			QueryParams: toQuery(params),
		}, &rows)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, fetch.Malformed(fmt.Errorf("empty markets response"))
		}

		out := make([]models.CoinMarket, 0, len(rows))
		for _, r := range rows {
			coin := models.CoinMarket{
				ID:             r.ID,
				Symbol:         r.Symbol,
				Name:           r.Name,
				Image:          r.Image,
				CurrentPrice:   r.CurrentPrice,
				MarketCap:      r.MarketCap,
				MarketCapRank:  r.MarketCapRank,
				TotalVolume:    r.TotalVolume,
				PriceChange24h: r.PriceChange24h,
			}
			if r.Sparkline != nil {
				coin.Sparkline = r.Sparkline.Price
			}
			out = append(out, coin)
		}
		return out, nil
	})
	if !ok {
		return nil, false
	}
	if limit < len(coins) {
		coins = coins[:limit]
	}
	return coins, true
}

type geckoGlobalResponse struct {
	Data *struct {
		TotalMarketCap     map[string]float64 `json:"total_market_cap"`
		TotalVolume        map[string]float64 `json:"total_volume"`
		MarketCapPct       map[string]float64 `json:"market_cap_percentage"`
		MarketCapChangePct float64            `json:"market_cap_change_percentage_24h_usd"`
		ActiveCurrencies   int                `json:"active_cryptocurrencies"`
	} `json:"data"`
}

// Global returns the market-wide crypto summary.
func (g *CoinGecko) Global(ctx context.Context) (*models.GlobalCrypto, bool) {
	return g.pipeGlobal.Fetch(ctx, "/api/v3/global", func(ctx context.Context) (*models.GlobalCrypto, error) {
		var resp geckoGlobalResponse
		err := g.client.SendAndParse(ctx, &whttp.RequestOptions{
			Method: whttp.MethodGet,
			URL:    g.baseURL + "/api/v3/global",
		}, &resp)
		if err != nil {
			return nil, err
		}
		if resp.Data == nil {
			return nil, fetch.Malformed(fmt.Errorf("data missing"))
		}

		return &models.GlobalCrypto{
			TotalMarketCapUSD: resp.Data.TotalMarketCap["usd"],
			TotalVolumeUSD:    resp.Data.TotalVolume["usd"],
			BTCDominance:      resp.Data.MarketCapPct["btc"],
			ETHDominance:      resp.Data.MarketCapPct["eth"],
			MarketCapChange:   resp.Data.MarketCapChangePct,
			ActiveCurrencies:  resp.Data.ActiveCurrencies,
		}, nil
	})
}

// Close stops the rate-limit queue worker.
func (g *CoinGecko) Close() {
	if g.queue != nil {
		g.queue.Close()
	}
}

func toQuery(params map[string]string) map[string][]string {
	q := make(map[string][]string, len(params))
	for k, v := range params {
		q[k] = []string{v}
	}
	return q
}
