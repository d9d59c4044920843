package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/miradorstack/mirador-netforecast/internal/artifact"
	"github.com/miradorstack/mirador-netforecast/internal/forecast"
	"github.com/miradorstack/mirador-netforecast/internal/observability"
	"github.com/miradorstack/mirador-netforecast/internal/utils"
)

func newTrainCommand(load configLoader) *cobra.Command {
	var points int

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a forecaster on synthetic telemetry and save it to the artifact store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if points > 0 {
				cfg.Forecaster.TrainingPoints = points
			}
			logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
			ctx := cmd.Context()

			shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing)
			if err != nil {
				return utils.NewAppError("train", "init tracing", err)
			}
			defer func() {
				tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdownTracing(tctx)
			}()

			store, err := artifact.FromConfig(ctx, cfg.Artifact)
			if err != nil {
				return utils.NewAppError("train", "open artifact store", err)
			}
			defer store.Close()

			start := time.Now()
			a, err := forecast.TrainSynthetic(ctx, bootstrapOptions(cfg, logger))
			if err != nil {
				return utils.NewAppError("train", "train forecaster", err)
			}
			blob, err := forecast.Encode(a)
			if err != nil {
				return utils.NewAppError("train", "encode artifact", err)
			}
			if err := store.Save(ctx, blob); err != nil {
				return utils.NewAppError("train", "save artifact", err)
			}

			logger.Info("forecaster saved",
				slog.String("backend", cfg.Artifact.Backend),
				slog.Int("bytes", len(blob)),
				slog.Int("epochs", a.Epochs),
				slog.Float64("rmse", a.Metrics.RMSE),
				slog.Float64("mae", a.Metrics.MAE),
				slog.Float64("r2", a.Metrics.R2),
				slog.Float64("f1", a.Metrics.F1),
				slog.Duration("took", time.Since(start)),
			)
			return nil
		},
	}
	cmd.Flags().IntVar(&points, "points", 0, "Synthetic training points (overrides forecaster.trainingPoints)")
	return cmd
}
