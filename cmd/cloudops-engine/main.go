package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cloudopsstack/cloudops-engine/internal/api"
	"github.com/cloudopsstack/cloudops-engine/internal/cache"
	"github.com/cloudopsstack/cloudops-engine/internal/config"
	"github.com/cloudopsstack/cloudops-engine/internal/engine"
	"github.com/cloudopsstack/cloudops-engine/internal/ingest"
	"github.com/cloudopsstack/cloudops-engine/internal/metrics"
	"github.com/cloudopsstack/cloudops-engine/internal/notify"
	"github.com/cloudopsstack/cloudops-engine/internal/services"
	"github.com/cloudopsstack/cloudops-engine/internal/store"
	"github.com/cloudopsstack/cloudops-engine/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting cloudops-engine", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var incidentStore store.IncidentStore
	if cfg.Database.DSN != "" {
		db, err := store.Open(ctx, cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
		if err != nil {
			logger.Error("failed to connect to postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer db.Close()

		pg := store.NewPostgresStore(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Error("failed to ensure schema", slog.Any("error", err))
			os.Exit(1)
		}
		incidentStore = pg
	} else {
		logger.Warn("no database DSN configured, using in-memory store")
		incidentStore = store.NewMemoryStore()
	}

	var cacheProvider cache.Provider = cache.NoopProvider{}
	if cfg.Cache.Enabled && cfg.Cache.Addr != "" {
		provider, err := cache.NewValkeyProvider(cache.ValkeyConfig{
			Addr:         cfg.Cache.Addr,
			Username:     cfg.Cache.Username,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
			MaxRetries:   cfg.Cache.MaxRetries,
			TLS:          cfg.Cache.TLS,
		})
		if err != nil {
			logger.Warn("valkey cache unavailable", slog.Any("error", err))
		} else {
			cacheProvider = provider
			defer provider.Close()
		}
	}

	var nc *nats.Conn
	if cfg.NATS.URL != "" {
		nc, err = nats.Connect(cfg.NATS.URL,
			nats.Name("cloudops-engine"),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
		)
		if err != nil {
			logger.Error("failed to connect to nats", slog.String("url", cfg.NATS.URL), slog.Any("error", err))
			os.Exit(1)
		}
		defer nc.Close()
	}

	var publisher notify.Publisher = notify.NoopPublisher{}
	if cfg.Notifications.Enabled && nc != nil {
		publisher, err = notify.NewNATSPublisher(nc, cfg.Notifications.Subject)
		if err != nil {
			logger.Error("failed to create alert publisher", slog.Any("error", err))
			os.Exit(1)
		}
	}

	packRules, err := engine.LoadRulePack(cfg.Incidents.RulesPath, logger)
	if err != nil {
		logger.Error("failed to load severity rule pack", slog.Any("error", err))
		os.Exit(1)
	}

	builder := engine.NewBuilder(
		engine.NewClassifier(packRules...),
		engine.NewIDGenerator(cfg.Incidents.IDStrategy),
		logger,
	)
	gate := notify.NewGate(publisher, logger)

	service := services.NewIncidentService(
		logger,
		incidentStore,
		builder,
		gate,
		cacheProvider,
		cfg.MetricsReport.Window,
		cfg.MetricsReport.CacheTTL,
	)

	if nc != nil && cfg.NATS.EventsSubject != "" {
		subscriber, err := ingest.NewSubscriber(nc, cfg.NATS.EventsSubject, cfg.NATS.Queue, service, logger)
		if err != nil {
			logger.Error("failed to create event subscriber", slog.Any("error", err))
			os.Exit(1)
		}
		if err := subscriber.Start(ctx); err != nil {
			logger.Error("failed to subscribe to events", slog.Any("error", err))
			os.Exit(1)
		}
		defer subscriber.Close()
	}

	server, err := api.NewServer(cfg.Server, service, logger)
	if err != nil {
		logger.Error("failed to create http server", slog.Any("error", err))
		os.Exit(1)
	}

	var healthServer *api.HealthServer
	if cfg.Server.HealthAddress != "" {
		healthServer, err = api.NewHealthServer(cfg.Server.HealthAddress)
		if err != nil {
			logger.Error("failed to create health server", slog.Any("error", err))
			os.Exit(1)
		}
		go func() {
			logger.Info("health server listening", slog.String("address", healthServer.Address()))
			if serveErr := healthServer.Start(); serveErr != nil {
				logger.Error("health server exited", slog.Any("error", serveErr))
				stop()
			}
		}()
	}

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("http server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	if healthServer != nil {
		healthServer.SetNotServing()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", slog.Any("error", err))
	}
	if healthServer != nil {
		healthServer.Shutdown(shutdownCtx)
	}

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("cloudops-engine stopped")
}
