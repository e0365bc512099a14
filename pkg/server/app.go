package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	domrepo "Warboard/internal/domain/repository"
	"Warboard/internal/fetch"
	"Warboard/internal/handler/api"
	"Warboard/internal/source"
	"Warboard/internal/usecase"
	"Warboard/pkg/cache"
	pkgch "Warboard/pkg/clickhouse"
	"Warboard/pkg/config"
	xhttp "Warboard/pkg/http"
	pkgkafka "Warboard/pkg/kafka"
	applogger "Warboard/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg       *config.Config
	log       *applogger.Logger
	handler   *api.DashboardHandler
	hub       *api.Hub
	collector *usecase.Collector
	sources   *source.Set
	status    *fetch.Registry
	snapshots cache.Service

	publisher  domrepo.Publisher
	chClient   *pkgch.Client
	logPub     *pkgkafka.Producer
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	handler *api.DashboardHandler,
	hub *api.Hub,
	collector *usecase.Collector,
	sources *source.Set,
	status *fetch.Registry,
	snapshots cache.Service,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		handler:   handler,
		hub:       hub,
		collector: collector,
		sources:   sources,
		status:    status,
		snapshots: snapshots,
	}
}

// SetPublisher injects the optional snapshot publisher.
func (a *App) SetPublisher(p domrepo.Publisher) { a.publisher = p }

// SetClickHouse injects the optional archive client.
func (a *App) SetClickHouse(c *pkgch.Client) { a.chClient = c }

// SetLogPublisher injects the producer used for aggregated log export.
func (a *App) SetLogPublisher(p *pkgkafka.Producer) { a.logPub = p }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Warn/error aggregation rides the same Kafka producer when one is
	// configured.
	if a.logPub != nil {
		a.log.AttachCollector(&applogger.CollectorConfig{
			FlushInterval:  30 * time.Second,
			CountThreshold: 100,
			Topic:          "warboard.logs",
			Publisher:      a.logPub,
		})
	}

	// Push every refresh and status transition to WebSocket clients.
	a.collector.Subscribe(a.hub.BroadcastSnapshot)
	a.status.OnChange(a.hub.BroadcastStatus)

	metricsPath := ""
	if a.cfg.Metrics.Enabled {
		metricsPath = a.cfg.Metrics.Path
	}
	a.httpServer = xhttp.NewServer(
		xhttp.Handlers{a.handler, a.hub},
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.ReadTimeout(), a.cfg.WriteTimeout(), a.cfg.ShutdownTimeout()),
		xhttp.WithMetricsPath(metricsPath),
	)

	if a.cfg.Collector.Enabled {
		a.collector.Start(ctx)
		a.log.Info("collector started",
			applogger.Duration("interval", a.cfg.CollectorInterval()),
			applogger.Strings("watchlist", a.cfg.Sources.Yahoo.Symbols))
	}

	if err := a.httpServer.Start(); err != nil {
		return err
	}
	a.log.Info("server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown stops all services in reverse dependency order.
func (a *App) shutdown(ctx context.Context) error {
	if a.cfg.Collector.Enabled {
		a.collector.Stop()
	}
	a.hub.Close()

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.ShutdownTimeout())
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	a.sources.Close()
	a.log.DetachCollector()

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("publisher close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.snapshots != nil {
		if err := a.snapshots.Close(); err != nil {
			a.log.Warn("snapshot cache close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
