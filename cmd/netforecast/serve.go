package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/miradorstack/mirador-netforecast/internal/api"
	"github.com/miradorstack/mirador-netforecast/internal/artifact"
	"github.com/miradorstack/mirador-netforecast/internal/config"
	"github.com/miradorstack/mirador-netforecast/internal/engine"
	"github.com/miradorstack/mirador-netforecast/internal/forecast"
	"github.com/miradorstack/mirador-netforecast/internal/history"
	"github.com/miradorstack/mirador-netforecast/internal/live"
	"github.com/miradorstack/mirador-netforecast/internal/metrics"
	"github.com/miradorstack/mirador-netforecast/internal/models"
	"github.com/miradorstack/mirador-netforecast/internal/observability"
	"github.com/miradorstack/mirador-netforecast/internal/services"
	"github.com/miradorstack/mirador-netforecast/internal/telemetry"
	"github.com/miradorstack/mirador-netforecast/internal/utils"
)

func newServeCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the forecasting pipeline and serve its snapshots over gRPC and HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting netforecast",
		slog.String("address", cfg.Server.Address),
		slog.String("http_address", cfg.Server.HTTPAddress),
	)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing)
	if err != nil {
		return utils.NewAppError("serve", "init tracing", err)
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(tctx); err != nil {
			logger.Warn("tracing shutdown", slog.Any("error", err))
		}
	}()

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return utils.NewAppError("serve", "register metrics", err)
	}

	var persist forecast.ArtifactStore
	store, err := artifact.FromConfig(ctx, cfg.Artifact)
	if err != nil {
		logger.Warn("artifact store unavailable, model will not be persisted", slog.Any("error", err))
	} else {
		defer store.Close()
		persist = store
	}

	res, err := forecast.Bootstrap(ctx, persist, bootstrapOptions(cfg, logger))
	if err != nil {
		return utils.NewAppError("serve", "bootstrap forecaster", err)
	}
	publishModel(res)

	factory, err := scheduleFactory(cfg.Sampler)
	if err != nil {
		return utils.NewAppError("serve", "sampler schedule", err)
	}
	sampler := telemetry.NewSampler(time.Now(), cfg.Pipeline.Interval, cfg.Sampler.Seed, factory)

	liveSource, err := live.FromConfig(cfg.Live)
	if err != nil {
		return utils.NewAppError("serve", "live source", err)
	}

	buffer := utils.NewRing[models.TelemetrySample](cfg.Pipeline.BufferCapacity)
	blender := telemetry.NewBlender(cfg.Blend.LiveWeight, buffer)

	commands, err := engine.LoadCommandPack(cfg.Actions.CommandsPath, logger)
	if err != nil {
		return utils.NewAppError("serve", "command pack", err)
	}
	actions := engine.NewActionEngine(engine.ActionEngineOptions{
		Threshold:      cfg.Pipeline.CongestionThreshold,
		RollbackWindow: cfg.Pipeline.RollbackWindow(),
		MaxPendingAge:  cfg.Actions.MaxPendingAge,
		Commands:       commands,
		Logger:         logger,
	})

	pipeline := engine.NewPipeline(
		logger,
		engine.PipelineOptions{
			Interval:      cfg.Pipeline.Interval,
			Backoff:       cfg.Pipeline.Backoff,
			WindowSize:    cfg.Pipeline.WindowSize,
			Horizon:       cfg.Pipeline.Horizon,
			Threshold:     cfg.Pipeline.CongestionThreshold,
			OverlayPoints: cfg.Pipeline.ActualOverlayPoints,
		},
		sampler,
		liveSource,
		blender,
		buffer,
		forecast.NewForecaster(res.Artifact),
		actions,
		history.NewStore(cfg.History.Predictions, cfg.History.Alerts, cfg.History.ActionLog),
	)
	pipeline.Warmup(cfg.Pipeline.WarmupSamples)

	server, err := api.NewServer(cfg.Server, services.NewForecastService(logger, pipeline))
	if err != nil {
		return utils.NewAppError("serve", "create gRPC server", err)
	}
	go func() {
		logger.Info("gRPC server listening", slog.String("address", server.Address()))
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("gRPC server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	var httpServer *api.HTTPServer
	if cfg.Server.HTTPAddress != "" {
		httpServer, err = api.NewHTTPServer(cfg.Server.HTTPAddress, api.NewRouter(pipeline, prometheus.DefaultGatherer, logger), logger)
		if err != nil {
			return utils.NewAppError("serve", "create http server", err)
		}
		go func() {
			if serveErr := httpServer.Start(); serveErr != nil {
				logger.Error("http server exited", slog.Any("error", serveErr))
				stop()
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = pipeline.Run(ctx)
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")
	<-done

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http server shutdown", slog.Any("error", err))
		}
	}

	logger.Info("netforecast stopped", slog.Duration("tick_p95", pipeline.TickLatency(95)))
	return nil
}
