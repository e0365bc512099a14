package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"Warboard/internal/domain/models"
	"Warboard/internal/fetch"
	"Warboard/pkg/config"
	whttp "Warboard/pkg/http"
)

const polymarketName = "polymarket"

// Polymarket fetches active prediction markets ordered by volume.
type Polymarket struct {
	baseURL string
	limit   int
	client  *whttp.Client
	pipe    *fetch.Pipeline[[]models.PredictionMarket]
}

// NewPolymarket creates the Polymarket adapter.
func NewPolymarket(cfg *config.Config, deps Deps) *Polymarket {
	sc := cfg.Sources.Polymarket
	return &Polymarket{
		baseURL: sc.BaseURL,
		limit:   sc.Limit,
		client:  whttp.NewClient(whttp.WithTimeout(sc.Timeout())),
		pipe:    fetch.New[[]models.PredictionMarket](polymarketName, deps.options(sc.Source, nil, nil)),
	}
}

type polymarketRow struct {
	ID            string `json:"id"`
	Question      string `json:"question"`
	Slug          string `json:"slug"`
	OutcomePrices string `json:"outcomePrices"` // JSON-encoded array of strings
	Volume        string `json:"volume"`
	Liquidity     string `json:"liquidity"`
	EndDate       string `json:"endDate"`
	Active        bool   `json:"active"`
}

// Markets returns active prediction markets ordered by volume.
func (p *Polymarket) Markets(ctx context.Context, limit int) ([]models.PredictionMarket, bool) {
	if limit <= 0 || limit > p.limit {
		limit = p.limit
	}

	params := map[string]string{
		"active":    "true",
		"closed":    "false",
		"order":     "volume",
		"ascending": "false",
		"limit":     strconv.Itoa(p.limit),
	}
	key := fetch.Key("/markets", params)

	markets, ok := p.pipe.Fetch(ctx, key, func(ctx context.Context) ([]models.PredictionMarket, error) {
		var rows []polymarketRow
		err := p.client.SendAndParse(ctx, &whttp.RequestOptions{
			Method:      whttp.MethodGet,
			URL:         p.baseURL + "/markets",
			QueryParams: toQuery(params),
		}, &rows)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, fetch.Malformed(fmt.Errorf("empty markets response"))
		}

		out := make([]models.PredictionMarket, 0, len(rows))
		for _, r := range rows {
			m := models.PredictionMarket{
				ID:        r.ID,
				Question:  r.Question,
				Slug:      r.Slug,
				Volume:    parseUpstreamFloat(r.Volume),
				Liquidity: parseUpstreamFloat(r.Liquidity),
				Active:    r.Active,
			}
			m.YesPrice, m.NoPrice = parseOutcomePrices(r.OutcomePrices)
			if r.EndDate != "" {
				if t, err := time.Parse(time.RFC3339, r.EndDate); err == nil {
					m.EndDate = t
				}
			}
			out = append(out, m)
		}
		return out, nil
	})
	if !ok {
		return nil, false
	}
	if limit < len(markets) {
		markets = markets[:limit]
	}
	return markets, true
}

// parseOutcomePrices decodes the doubly encoded outcomePrices field,
// a JSON string holding an array of numeric strings.
func parseOutcomePrices(raw string) (yes, no float64) {
	var prices []string
	if err := json.Unmarshal([]byte(raw), &prices); err != nil {
		return 0, 0
	}
	if len(prices) > 0 {
		yes = parseUpstreamFloat(prices[0])
	}
	if len(prices) > 1 {
		no = parseUpstreamFloat(prices[1])
	}
	return yes, no
}

func parseUpstreamFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
