package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"Warboard/internal/domain/models"
	"Warboard/internal/domain/repository"
)

const quoteArchiveSchema = `
CREATE TABLE IF NOT EXISTS %s (
    symbol         String,
    price          Float64,
    change_percent Float64,
    observed_at    DateTime
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(observed_at)
ORDER BY (symbol, observed_at)
TTL observed_at + INTERVAL 90 DAY`

// ClickHouseQuoteArchive implements QuoteArchive on ClickHouse.
type ClickHouseQuoteArchive struct {
	db    *sql.DB
	table string
}

// NewClickHouseQuoteArchive creates a ClickHouse quote archive.
func NewClickHouseQuoteArchive(db *sql.DB, table string) repository.QuoteArchive {
	return &ClickHouseQuoteArchive{db: db, table: table}
}

func (a *ClickHouseQuoteArchive) Init(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, fmt.Sprintf(quoteArchiveSchema, a.table)); err != nil {
		return fmt.Errorf("init quote archive: %w", err)
	}
	return nil
}

func (a *ClickHouseQuoteArchive) Store(ctx context.Context, quotes []*models.Quote, observedAt time.Time) error {
	if len(quotes) == 0 {
		return nil
	}

	const chunkSize = 2000
	for start := 0; start < len(quotes); start += chunkSize {
		end := start + chunkSize
		if end > len(quotes) {
			end = len(quotes)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*4)
		for _, q := range quotes[start:end] {
			if q == nil || q.Symbol == "" {
				continue
			}
			values = append(values, "(?, ?, ?, ?)")
			args = append(args, q.Symbol, q.Price, q.ChangePercent, observedAt)
		}
		if len(values) == 0 {
			continue
		}

		stmt := fmt.Sprintf("INSERT INTO %s (symbol, price, change_percent, observed_at) VALUES %s",
			a.table, strings.Join(values, ","))
		if _, err := a.db.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("store quotes: %w", err)
		}
	}
	return nil
}

func (a *ClickHouseQuoteArchive) Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.QuotePoint, error) {
	stmt := fmt.Sprintf(
		"SELECT symbol, price, change_percent, observed_at FROM %s WHERE symbol = ? AND observed_at >= ? AND observed_at <= ? ORDER BY observed_at DESC LIMIT ?",
		a.table)

	rows, err := a.db.QueryContext(ctx, stmt, symbol, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()

	var points []*models.QuotePoint
	for rows.Next() {
		var p models.QuotePoint
		if err := rows.Scan(&p.Symbol, &p.Price, &p.ChangePercent, &p.ObservedAt); err != nil {
			return nil, err
		}
		points = append(points, &p)
	}
	return points, rows.Err()
}

func (a *ClickHouseQuoteArchive) Health(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *ClickHouseQuoteArchive) Close() error {
	return nil // connection pool managed by pkg/clickhouse
}
