package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"Warboard/internal/domain/models"
	"Warboard/internal/fetch"
	"Warboard/pkg/config"
	whttp "Warboard/pkg/http"
)

const gdeltName = "gdelt"

const gdeltQuery = `(airstrike OR missile OR drone OR offensive OR invasion OR shelling OR cyberattack OR "naval incident") sourcelang:english`

// GDELT fetches conflict and cyber headlines from the GDELT doc API and
// classifies them by event type. The classification is a best-effort
// keyword heuristic over titles, not an upstream guarantee.
type GDELT struct {
	baseURL    string
	maxRecords int
	client     *whttp.Client
	pipe       *fetch.Pipeline[[]models.ConflictEvent]
}

// NewGDELT creates the GDELT conflict-feed adapter.
func NewGDELT(cfg *config.Config, deps Deps) *GDELT {
	sc := cfg.Sources.GDELT
	return &GDELT{
		baseURL:    sc.BaseURL,
		maxRecords: sc.MaxRecords,
		client:     whttp.NewClient(whttp.WithTimeout(sc.Timeout()), whttp.WithRateLimit(0.5, 1)),
		pipe:       fetch.New[[]models.ConflictEvent](gdeltName, deps.options(sc.Source, nil, nil)),
	}
}

type gdeltResponse struct {
	Articles []struct {
		Title         string `json:"title"`
		URL           string `json:"url"`
		Domain        string `json:"domain"`
		SeenDate      string `json:"seendate"`
		SourceCountry string `json:"sourcecountry"`
		Language      string `json:"language"`
		SocialImage   string `json:"socialimage"`
	} `json:"articles"`
}

// Events returns classified conflict events from the last 24 hours.
func (g *GDELT) Events(ctx context.Context) ([]models.ConflictEvent, bool) {
	params := map[string]string{
		"query":      gdeltQuery,
		"mode":       "ArtList",
		"format":     "json",
		"timespan":   "24h",
		"maxrecords": strconv.Itoa(g.maxRecords),
	}
	key := fetch.Key("/api/v2/doc/doc", params)

	return g.pipe.Fetch(ctx, key, func(ctx context.Context) ([]models.ConflictEvent, error) {
		// GDELT is documented to occasionally return error pages with a
		// 200 status, so decode from raw bytes and treat any JSON
		// failure as a malformed response.
		var raw []byte
		err := g.client.SendAndParse(ctx, &whttp.RequestOptions{
			Method:      whttp.MethodGet,
			URL:         g.baseURL + "/api/v2/doc/doc",
			QueryParams: toQuery(params),
		}, &raw)
		if err != nil {
			return nil, err
		}

		var resp gdeltResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, fetch.Malformed(fmt.Errorf("non-JSON body: %w", err))
		}
		if resp.Articles == nil {
			return nil, fetch.Malformed(fmt.Errorf("articles missing"))
		}

		out := make([]models.ConflictEvent, 0, len(resp.Articles))
		seen := make(map[string]struct{}, len(resp.Articles))
		for _, a := range resp.Articles {
			if a.Title == "" || a.URL == "" {
				continue
			}
			if _, dup := seen[a.URL]; dup {
				continue
			}
			seen[a.URL] = struct{}{}

			out = append(out, models.ConflictEvent{
				Title:    a.Title,
				URL:      a.URL,
				Source:   a.Domain,
				Type:     ClassifyEvent(a.Title),
				Country:  a.SourceCountry,
				SeenAt:   parseGdeltDate(a.SeenDate),
				Language: a.Language,
				ImageURL: a.SocialImage,
			})
		}
		return out, nil
	})
}

// eventKeywords maps event types to title keywords, checked in order so
// the more specific types win.
var eventKeywords = []struct {
	kind  string
	words []string
}{
	{"nuclear", []string{"nuclear", "icbm", "warhead", "enrichment"}},
	{"cyber", []string{"cyberattack", "cyber attack", "ransomware", "hacked", "hackers", "malware", "breach"}},
	{"drone", []string{"drone", "uav", "loitering munition", "shahed"}},
	{"airstrike", []string{"airstrike", "air strike", "missile", "bombing", "shelling", "rocket"}},
	{"naval", []string{"naval", "warship", "frigate", "submarine", "destroyer", "carrier", "vessel"}},
	{"ground", []string{"offensive", "invasion", "troops", "ground assault", "front line", "frontline"}},
}

// ClassifyEvent assigns a best-effort event type from title keywords.
func ClassifyEvent(title string) string {
	lower := strings.ToLower(title)
	for _, group := range eventKeywords {
		for _, w := range group.words {
			if strings.Contains(lower, w) {
				return group.kind
			}
		}
	}
	return "other"
}

// parseGdeltDate parses GDELT's compact "20240101T120000Z" timestamps.
func parseGdeltDate(s string) time.Time {
	t, err := time.Parse("20060102T150405Z", s)
	if err != nil {
		return time.Time{}
	}
	return t
}
