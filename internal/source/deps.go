package source

import (
	"Warboard/internal/fetch"
	"Warboard/pkg/cache"
	"Warboard/pkg/config"
	"Warboard/pkg/logger"
	"Warboard/pkg/metrics"
	"Warboard/pkg/queue"
)

// Deps are the shared collaborators injected into every adapter.
type Deps struct {
	Status  *fetch.Registry
	Shared  cache.Service
	Metrics *metrics.Recorder
	Logger  *logger.Logger
}

// options assembles pipeline options from a per-source config section.
func (d Deps) options(sc config.Source, q *queue.Queue, b *fetch.Breaker) fetch.Options {
	return fetch.Options{
		TTL:      sc.TTL(),
		Cooldown: sc.Cooldown(),
		Queue:    q,
		Breaker:  b,
		Shared:   d.Shared,
		Status:   d.Status,
		Metrics:  d.Metrics,
		Logger:   d.Logger,
	}
}
