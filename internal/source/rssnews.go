package source

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"Warboard/internal/domain/models"
	"Warboard/internal/fetch"
	"Warboard/pkg/config"
	whttp "Warboard/pkg/http"
)

const rssName = "rss"

// RSSNews fetches configured RSS feeds through the rss2json conversion
// API and merges them into one reverse-chronological headline list.
type RSSNews struct {
	baseURL string
	feeds   map[string]string
	client  *whttp.Client
	pipe    *fetch.Pipeline[[]models.NewsItem]
}

// NewRSSNews creates the RSS news adapter.
func NewRSSNews(cfg *config.Config, deps Deps) *RSSNews {
	sc := cfg.Sources.RSS
	return &RSSNews{
		baseURL: sc.BaseURL,
		feeds:   sc.Feeds,
		client:  whttp.NewClient(whttp.WithTimeout(sc.Timeout())),
		pipe:    fetch.New[[]models.NewsItem](rssName, deps.options(sc.Source, nil, nil)),
	}
}

type rssResponse struct {
	Status string `json:"status"`
	Items  []struct {
		Title       string `json:"title"`
		Link        string `json:"link"`
		PubDate     string `json:"pubDate"`
		Description string `json:"description"`
	} `json:"items"`
}

// Headlines returns merged headlines from every configured feed.
// Individual feed failures are tolerated as long as at least one feed
// succeeds.
func (r *RSSNews) Headlines(ctx context.Context) ([]models.NewsItem, bool) {
	names := make([]string, 0, len(r.feeds))
	for name := range r.feeds {
		names = append(names, name)
	}
	sort.Strings(names)

	key := fetch.Key("/v1/api.json", map[string]string{"feeds": strings.Join(names, ",")})

	return r.pipe.Fetch(ctx, key, func(ctx context.Context) ([]models.NewsItem, error) {
		var (
			mu    sync.Mutex
			items []models.NewsItem
		)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(4)
		var firstErr error
		for _, name := range names {
			name, feedURL := name, r.feeds[name]
			g.Go(func() error {
				var resp rssResponse
				err := r.client.SendAndParse(gctx, &whttp.RequestOptions{
					Method:      whttp.MethodGet,
					URL:         r.baseURL + "/v1/api.json",
					QueryParams: map[string][]string{"rss_url": {feedURL}},
				}, &resp)
				if err != nil || resp.Status != "ok" {
					// Partial feed failure, keep the rest.
					mu.Lock()
					if firstErr == nil && err != nil {
						firstErr = err
					}
					mu.Unlock()
					return nil
				}

				mu.Lock()
				for _, it := range resp.Items {
					item := models.NewsItem{
						Title:       it.Title,
						Link:        it.Link,
						Feed:        name,
						Description: it.Description,
					}
					if t, err := time.Parse("2006-01-02 15:04:05", it.PubDate); err == nil {
						item.PublishedAt = t
					}
					items = append(items, item)
				}
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		if len(items) == 0 {
			if firstErr != nil {
				return nil, firstErr
			}
			return nil, fetch.Malformed(errNoFeeds)
		}

		sort.Slice(items, func(i, j int) bool {
			return items[i].PublishedAt.After(items[j].PublishedAt)
		})
		return items, nil
	})
}

var errNoFeeds = errors.New("no feeds returned items")
