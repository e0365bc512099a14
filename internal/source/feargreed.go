package source

import (
	"context"
	"fmt"
	"strconv"

	"Warboard/internal/domain/models"
	"Warboard/internal/fetch"
	"Warboard/pkg/config"
	whttp "Warboard/pkg/http"
)

const fearGreedName = "feargreed"

// FearGreed fetches the alternative.me crypto Fear & Greed index.
type FearGreed struct {
	baseURL string
	client  *whttp.Client
	pipe    *fetch.Pipeline[*models.FearGreed]
}

// NewFearGreed creates the Fear & Greed adapter.
func NewFearGreed(cfg *config.Config, deps Deps) *FearGreed {
	sc := cfg.Sources.FearGreed
	return &FearGreed{
		baseURL: sc.BaseURL,
		client:  whttp.NewClient(whttp.WithTimeout(sc.Timeout())),
		pipe:    fetch.New[*models.FearGreed](fearGreedName, deps.options(sc, nil, nil)),
	}
}

type fngResponse struct {
	Data []struct {
		Value          string `json:"value"`
		Classification string `json:"value_classification"`
		Timestamp      string `json:"timestamp"`
	} `json:"data"`
}

// Current returns the latest index reading.
func (f *FearGreed) Current(ctx context.Context) (*models.FearGreed, bool) {
	return f.pipe.Fetch(ctx, "/fng/", func(ctx context.Context) (*models.FearGreed, error) {
		var resp fngResponse
		err := f.client.SendAndParse(ctx, &whttp.RequestOptions{
			Method:      whttp.MethodGet,
			URL:         f.baseURL + "/fng/",
			QueryParams: map[string][]string{"limit": {"1"}},
		}, &resp)
		if err != nil {
			return nil, err
		}
		if len(resp.Data) == 0 {
			return nil, fetch.Malformed(fmt.Errorf("data missing"))
		}

		// Upstream encodes numbers as strings.
		row := resp.Data[0]
		value, err := strconv.Atoi(row.Value)
		if err != nil {
			return nil, fetch.Malformed(fmt.Errorf("value %q: %w", row.Value, err))
		}
		ts, _ := strconv.ParseInt(row.Timestamp, 10, 64)

		return &models.FearGreed{
			Value:          value,
			Classification: row.Classification,
			Timestamp:      ts,
		}, nil
	})
}
