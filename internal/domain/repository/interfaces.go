package repository

import (
	"context"
	"time"

	"Warboard/internal/domain/models"
)

// Publisher fans successful source refreshes out to a message bus.
type Publisher interface {
	Publish(ctx context.Context, s *models.Snapshot) error
	PublishBatch(ctx context.Context, snapshots []*models.Snapshot) error
	Close() error
}

// QuoteArchive persists quote observations for history queries.
type QuoteArchive interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, quotes []*models.Quote, observedAt time.Time) error
	Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.QuotePoint, error)
	Health(ctx context.Context) error
	Close() error
}
