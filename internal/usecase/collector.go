package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"Warboard/internal/domain/models"
	drepo "Warboard/internal/domain/repository"
	"Warboard/internal/source"
	"Warboard/pkg/config"
	"Warboard/pkg/logger"
)

// Collector refreshes every enabled source on a fixed interval so the
// cache stays warm without an HTTP caller in the loop, and fans each
// successful refresh out as a snapshot to subscribers, the Kafka
// publisher and the quote archive.
type Collector struct {
	cfg       *config.Config
	sources   *source.Set
	publisher drepo.Publisher
	archive   drepo.QuoteArchive
	log       *logger.Logger

	mu          sync.RWMutex
	subscribers []func(*models.Snapshot)

	quit chan struct{}
	wg   sync.WaitGroup
}

// NewCollector creates the background collector. Publisher and archive
// may be nil when their backends are disabled.
func NewCollector(cfg *config.Config, sources *source.Set, publisher drepo.Publisher, archive drepo.QuoteArchive, log *logger.Logger) *Collector {
	return &Collector{
		cfg:       cfg,
		sources:   sources,
		publisher: publisher,
		archive:   archive,
		log:       log,
		quit:      make(chan struct{}),
	}
}

// Subscribe registers a callback invoked for every snapshot. Callbacks
// must not block; slow consumers should buffer internally.
func (c *Collector) Subscribe(fn func(*models.Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

// Start launches the refresh loop. The first refresh runs immediately.
func (c *Collector) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ticker := time.NewTicker(c.cfg.CollectorInterval())
		defer ticker.Stop()

		c.refresh(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.quit:
				return
			case <-ticker.C:
				c.refresh(ctx)
			}
		}
	}()
}

// Stop terminates the refresh loop and waits for it to exit.
func (c *Collector) Stop() {
	close(c.quit)
	c.wg.Wait()
}

// refresh fans out over every enabled source. Failures are already
// absorbed by the pipelines; a refresh never aborts the loop.
func (c *Collector) refresh(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(5)

	src := c.cfg.Sources

	if src.Yahoo.Enabled {
		g.Go(func() error {
			if quotes, ok := c.sources.Yahoo.Quotes(gctx, nil); ok {
				c.emit(gctx, "yahoo", quotes)
				c.archiveQuotes(gctx, quotes)
			}
			return nil
		})
	}
	if src.Coingecko.Enabled {
		g.Go(func() error {
			if coins, ok := c.sources.CoinGecko.Markets(gctx, 0); ok {
				c.emit(gctx, "coingecko", coins)
			}
			if global, ok := c.sources.CoinGecko.Global(gctx); ok {
				c.emit(gctx, "coingecko.global", global)
			}
			return nil
		})
	}
	if src.FearGreed.Enabled {
		g.Go(func() error {
			if fng, ok := c.sources.FearGreed.Current(gctx); ok {
				c.emit(gctx, "feargreed", fng)
			}
			return nil
		})
	}
	if src.Polymarket.Enabled {
		g.Go(func() error {
			if markets, ok := c.sources.Polymarket.Markets(gctx, 0); ok {
				c.emit(gctx, "polymarket", markets)
			}
			return nil
		})
	}
	if src.RSS.Enabled {
		g.Go(func() error {
			if items, ok := c.sources.RSS.Headlines(gctx); ok {
				c.emit(gctx, "rss", items)
			}
			return nil
		})
	}
	if src.GDELT.Enabled {
		g.Go(func() error {
			if events, ok := c.sources.GDELT.Events(gctx); ok {
				c.emit(gctx, "gdelt", events)
			}
			return nil
		})
	}
	if src.Firms.Enabled {
		g.Go(func() error {
			if hotspots, ok := c.sources.Firms.Hotspots(gctx, "world"); ok {
				c.emit(gctx, "firms", hotspots)
			}
			return nil
		})
	}
	if src.AIS.Enabled {
		g.Go(func() error {
			if vessels, ok := c.sources.AIS.Vessels(gctx); ok {
				c.emit(gctx, "ais", vessels)
			}
			return nil
		})
	}
	if src.Circl.Enabled {
		g.Go(func() error {
			if cves, ok := c.sources.Circl.Latest(gctx, 0); ok {
				c.emit(gctx, "circl", cves)
			}
			return nil
		})
	}
	if src.OpenSky.Enabled {
		g.Go(func() error {
			if aircraft, ok := c.sources.OpenSky.Aircraft(gctx); ok {
				c.emit(gctx, "opensky", aircraft)
			}
			return nil
		})
	}

	_ = g.Wait()
}

// emit wraps a refreshed payload in a snapshot envelope and fans it out.
func (c *Collector) emit(ctx context.Context, sourceName string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		c.log.Error("marshal snapshot", logger.String("source", sourceName), logger.Error(err))
		return
	}

	snap := &models.Snapshot{
		Source:    sourceName,
		FetchedAt: time.Now().UTC(),
		Payload:   raw,
	}

	c.mu.RLock()
	subs := c.subscribers
	c.mu.RUnlock()
	for _, fn := range subs {
		fn(snap)
	}

	if c.publisher != nil {
		if err := c.publisher.Publish(ctx, snap); err != nil {
			c.log.Warn("publish snapshot", logger.String("source", sourceName), logger.Error(err))
		}
	}
}

func (c *Collector) archiveQuotes(ctx context.Context, quotes map[string]*models.Quote) {
	if c.archive == nil || len(quotes) == 0 {
		return
	}

	batch := make([]*models.Quote, 0, len(quotes))
	for _, q := range quotes {
		batch = append(batch, q)
	}
	if err := c.archive.Store(ctx, batch, time.Now().UTC()); err != nil {
		c.log.Warn("archive quotes", logger.Error(err))
	}
}
