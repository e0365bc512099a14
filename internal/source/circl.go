package source

import (
	"context"
	"encoding/json"
	"fmt"

	"Warboard/internal/domain/models"
	"Warboard/internal/fetch"
	"Warboard/pkg/config"
	whttp "Warboard/pkg/http"
	"Warboard/pkg/util"
)

const circlName = "circl"

// Circl fetches recently published CVEs from the CIRCL feed.
type Circl struct {
	baseURL string
	limit   int
	client  *whttp.Client
	pipe    *fetch.Pipeline[[]models.CveEntry]
}

// NewCircl creates the CIRCL CVE adapter.
func NewCircl(cfg *config.Config, deps Deps) *Circl {
	sc := cfg.Sources.Circl
	return &Circl{
		baseURL: sc.BaseURL,
		limit:   sc.Limit,
		client:  whttp.NewClient(whttp.WithTimeout(sc.Timeout())),
		pipe:    fetch.New[[]models.CveEntry](circlName, deps.options(sc.Source, nil, nil)),
	}
}

type circlRow struct {
	ID         string          `json:"id"`
	Summary    string          `json:"summary"`
	CVSS       json.RawMessage `json:"cvss"` // number or numeric string depending on record age
	Published  string          `json:"Published"`
	References []string        `json:"references"`
}

// Latest returns the most recently published CVEs.
func (c *Circl) Latest(ctx context.Context, limit int) ([]models.CveEntry, bool) {
	if limit <= 0 || limit > c.limit {
		limit = c.limit
	}

	path := fmt.Sprintf("/api/last/%d", c.limit)

	entries, ok := c.pipe.Fetch(ctx, path, func(ctx context.Context) ([]models.CveEntry, error) {
		var rows []circlRow
		err := c.client.SendAndParse(ctx, &whttp.RequestOptions{
			Method: whttp.MethodGet,
			URL:    c.baseURL + path,
		}, &rows)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, fetch.Malformed(fmt.Errorf("empty cve response"))
		}

		out := make([]models.CveEntry, 0, len(rows))
		for _, r := range rows {
			if r.ID == "" {
				continue
			}
			entry := models.CveEntry{
				ID:         r.ID,
				Summary:    r.Summary,
				CVSS:       parseCVSS(r.CVSS),
				References: r.References,
			}
			entry.PublishedAt = util.ParseTimeDefault(r.Published, entry.PublishedAt)
			out = append(out, entry)
		}
		return out, nil
	})
	if !ok {
		return nil, false
	}
	if limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, true
}

// parseCVSS tolerates both numeric and string-encoded scores.
func parseCVSS(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return util.ParseFloatDefault(s, 0)
	}
	return 0
}
