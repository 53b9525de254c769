package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/paulthebutcher/strat-os-phere-sub000/internal/api"
	"github.com/paulthebutcher/strat-os-phere-sub000/internal/cache"
	"github.com/paulthebutcher/strat-os-phere-sub000/internal/config"
	"github.com/paulthebutcher/strat-os-phere-sub000/internal/engine"
	"github.com/paulthebutcher/strat-os-phere-sub000/internal/invariants"
	"github.com/paulthebutcher/strat-os-phere-sub000/internal/jobs"
	"github.com/paulthebutcher/strat-os-phere-sub000/internal/metrics"
	"github.com/paulthebutcher/strat-os-phere-sub000/internal/models"
	"github.com/paulthebutcher/strat-os-phere-sub000/internal/patterns"
	"github.com/paulthebutcher/strat-os-phere-sub000/internal/repo"
	"github.com/paulthebutcher/strat-os-phere-sub000/internal/services"
	"github.com/paulthebutcher/strat-os-phere-sub000/internal/store"
	"github.com/paulthebutcher/strat-os-phere-sub000/internal/utils"
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
	logger.Info("starting guardrail-engine",
		slog.String("address", cfg.Server.Address),
		slog.String("http_address", cfg.Server.HTTPAddress),
		slog.Duration("evidence_ttl", cfg.EvidenceTTL()),
	)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cacheProvider := newCacheProvider(cfg.Cache, logger)
	defer cacheProvider.Close()

	st, err := store.Open(ctx, store.Options{
		Driver:        cfg.Storage.Driver,
		MongoURI:      cfg.Storage.Mongo.URI,
		MongoDatabase: cfg.Storage.Mongo.Database,
		MongoTimeout:  cfg.Storage.Mongo.Timeout,
		SQLitePath:    cfg.Storage.SQLite.Path,
	})
	if err != nil {
		logger.Error("failed to open store", slog.String("driver", cfg.Storage.Driver), slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.Close(closeCtx); err != nil {
			logger.Warn("store close", slog.Any("error", err))
		}
	}()

	lexicon, err := patterns.LoadLexicon(cfg.Guardrails.LexiconPath, logger)
	if err != nil {
		logger.Error("failed to load lexicon", slog.Any("error", err))
		os.Exit(1)
	}
	validator := patterns.NewValidator(lexicon)

	thresholds := cfg.Thresholds()
	checker := invariants.NewChecker(logger, cfg.Guardrails.StrictInvariants, func(id invariants.ID) {
		metrics.InvariantViolation(string(id))
	})

	var lookup engine.EvidenceLookup
	if cfg.Evidence.BaseURL != "" {
		lookup = repo.NewEvidenceClient(
			cfg.Evidence.BaseURL,
			cfg.Evidence.CompetitorPath,
			cfg.Evidence.DomainPath,
			cfg.Evidence.Timeout,
			cacheProvider,
			cfg.EvidenceTTL(),
			logger,
		)
	} else {
		logger.Warn("evidence base URL not configured; every evidence check will find no sources")
	}
	evidence := engine.NewEvidenceChecker(logger, lookup, thresholds,
		engine.WithConcurrency(cfg.Evidence.Concurrency),
		engine.WithFallbackRecorder(metrics.EvidenceFallback),
	)

	evaluator := engine.NewEvaluator(logger, st, evidence, validator, thresholds, checker,
		func(verdict models.ArtifactVerdict, elapsed time.Duration) {
			metrics.ObserveEvaluation(string(verdict.Band), elapsed, verdict.AdjustedScore < verdict.RawScore)
		},
	)
	driftDetector := engine.NewDriftDetector(logger, st, thresholds, checker)

	guardrailService := services.NewGuardrailService(logger, services.Dependencies{
		Evaluator:  evaluator,
		Evidence:   evidence,
		Validator:  validator,
		Drift:      driftDetector,
		Store:      st,
		Thresholds: thresholds,
	})

	server, err := api.NewServer(cfg.Server, guardrailService, logger)
	if err != nil {
		logger.Error("failed to create gRPC server", slog.Any("error", err))
		os.Exit(1)
	}

	var httpServer *http.Server
	if cfg.Server.HTTPAddress != "" {
		httpServer = &http.Server{
			Addr:         cfg.Server.HTTPAddress,
			Handler:      api.NewRouter(guardrailService, logger, promhttp.Handler()),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("http server listening", slog.String("address", cfg.Server.HTTPAddress))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	var sweep *jobs.DriftSweep
	if cfg.Drift.SweepEnabled {
		sweep, err = jobs.NewDriftSweep(logger, st, driftDetector, cfg.Drift.SweepSchedule, cfg.Drift.SweepLookback)
		if err != nil {
			logger.Error("failed to configure drift sweep", slog.Any("error", err))
			os.Exit(1)
		}
		if err := sweep.Start(ctx); err != nil {
			logger.Error("failed to start drift sweep", slog.Any("error", err))
			os.Exit(1)
		}
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("gRPC server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if sweep != nil {
		sweep.Stop(shutdownCtx)
	}
	server.Shutdown(shutdownCtx)

	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("http server shutdown", slog.Any("error", err))
		}
	}

	logger.Info("guardrail-engine stopped", slog.Duration("evaluation_p95", guardrailService.LatencyP95()))
}

func newCacheProvider(cfg config.CacheConfig, logger *slog.Logger) cache.Provider {
	switch strings.ToLower(cfg.Driver) {
	case "none":
		return cache.NoopProvider{}
	case "redis":
		provider, err := cache.NewRedisProvider(cache.RedisConfig{
			Addr:         cfg.Addr,
			Username:     cfg.Username,
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			MaxRetries:   cfg.MaxRetries,
			TLS:          cfg.TLS,
			KeyPrefix:    cfg.KeyPrefix,
		})
		if err == nil {
			return provider
		}
		logger.Warn("redis cache unavailable, using in-process cache", slog.Any("error", err))
	}
	return cache.NewMemoryProvider()
}
