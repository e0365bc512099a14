package di

import (
	"context"
	"fmt"
	"time"

	domrepo "Warboard/internal/domain/repository"
	"Warboard/internal/fetch"
	"Warboard/internal/handler/api"
	internalrepo "Warboard/internal/repository"
	"Warboard/internal/source"
	"Warboard/internal/usecase"
	"Warboard/pkg/cache"
	pkgch "Warboard/pkg/clickhouse"
	"Warboard/pkg/config"
	pkgkafka "Warboard/pkg/kafka"
	"Warboard/pkg/logger"
	"Warboard/pkg/metrics"
	"Warboard/pkg/server"
)

// ProvideLogger creates the application logger. Production gets JSON,
// everything else gets the console writer.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	format := "console"
	if cfg.Environment == "production" {
		format = "json"
	}
	return logger.New(&logger.Config{
		Level:  "info",
		Format: format,
		Output: "stdout",
	})
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New()
}

// ProvideStatusRegistry creates the pipeline status registry.
func ProvideStatusRegistry() *fetch.Registry {
	return fetch.NewRegistry()
}

// ProvideSnapshotCache selects the last-good snapshot store backend.
func ProvideSnapshotCache(cfg *config.Config) (cache.Service, error) {
	switch cfg.Snapshot.Backend {
	case "redis":
		return newRedisSnapshotCache(cfg)
	case "layered":
		remote, err := newRedisSnapshotCache(cfg)
		if err != nil {
			return nil, err
		}
		return cache.NewLayeredCache(cache.NewMemoryCache(), remote), nil
	default:
		return cache.NewMemoryCache(), nil
	}
}

func newRedisSnapshotCache(cfg *config.Config) (cache.Service, error) {
	c, err := cache.NewRedisCache(
		cache.WithAddr(cfg.Snapshot.Redis.Addr),
		cache.WithPassword(cfg.Snapshot.Redis.Password),
		cache.WithDB(cfg.Snapshot.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("snapshot cache: %w", err)
	}
	return c, nil
}

// ProvideKafkaProducer creates the Kafka producer, nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithAsync(cfg.Kafka.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideSnapshotPublisher creates the Kafka snapshot publisher, nil
// when Kafka is disabled.
func ProvideSnapshotPublisher(producer *pkgkafka.Producer, cfg *config.Config, rec *metrics.Recorder) domrepo.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaSnapshotPublisher(producer, cfg.Kafka.Topic, rec)
}

// ProvideClickHouseClient creates the ClickHouse client, nil when the
// archive is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", cfg.ClickHouse.Database),
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideQuoteArchive creates the ClickHouse quote archive, nil when
// disabled.
func ProvideQuoteArchive(client *pkgch.Client, cfg *config.Config) (domrepo.QuoteArchive, error) {
	if client == nil {
		return nil, nil
	}

	archive := internalrepo.NewClickHouseQuoteArchive(client.DB(), cfg.ClickHouse.Database+".quotes_history")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := archive.Init(ctx); err != nil {
		return nil, err
	}
	return archive, nil
}

// ProvideSources constructs every upstream adapter with shared
// collaborators.
func ProvideSources(cfg *config.Config, status *fetch.Registry, shared cache.Service, rec *metrics.Recorder, log *logger.Logger) *source.Set {
	return source.NewSet(cfg, source.Deps{
		Status:  status,
		Shared:  shared,
		Metrics: rec,
		Logger:  log,
	})
}

// ProvideCollector creates the background refresh collector.
func ProvideCollector(cfg *config.Config, sources *source.Set, publisher domrepo.Publisher, archive domrepo.QuoteArchive, log *logger.Logger) *usecase.Collector {
	return usecase.NewCollector(cfg, sources, publisher, archive, log)
}

// ProvideHub creates the WebSocket push hub.
func ProvideHub(log *logger.Logger) *api.Hub {
	return api.NewHub(log)
}

// ProvideDashboardHandler creates the HTTP API handler.
func ProvideDashboardHandler(cfg *config.Config, log *logger.Logger, sources *source.Set, status *fetch.Registry, archive domrepo.QuoteArchive) *api.DashboardHandler {
	return api.NewDashboardHandler(cfg, log, sources, status, archive)
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	handler *api.DashboardHandler,
	hub *api.Hub,
	collector *usecase.Collector,
	sources *source.Set,
	status *fetch.Registry,
	snapshots cache.Service,
	publisher domrepo.Publisher,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
) *server.App {
	app := server.New(cfg, log, handler, hub, collector, sources, status, snapshots)
	app.SetPublisher(publisher)
	app.SetClickHouse(chClient)
	app.SetLogPublisher(producer)
	return app
}
