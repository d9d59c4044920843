package forecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/miradorstack/mirador-netforecast/internal/artifact"
	"github.com/miradorstack/mirador-netforecast/internal/features"
	"github.com/miradorstack/mirador-netforecast/internal/models"
	"github.com/miradorstack/mirador-netforecast/internal/observability"
	"github.com/miradorstack/mirador-netforecast/internal/telemetry"
)

// ArtifactStore persists encoded artifacts. Load returns artifact.ErrArtifactNotFound when
// nothing has been saved yet.
type ArtifactStore interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, blob []byte) error
}

// BootstrapOptions describes the synthetic training pass used when no usable artifact exists.
type BootstrapOptions struct {
	WindowSize     int
	Horizon        int
	Interval       time.Duration
	TrainingPoints int
	TrainRatio     float64
	SeriesSeed     int64
	Train          TrainOptions
	Logger         *slog.Logger
}

// BootstrapResult reports which artifact is being served and whether it was trained now.
type BootstrapResult struct {
	Artifact *Artifact
	Trained  bool
	Duration time.Duration
}

// Bootstrap loads the persisted artifact, or trains and saves a fresh one when it is
// missing, corrupt, unreadable or built for a different window geometry. Only training
// failures are returned; a failed save is logged.
func Bootstrap(ctx context.Context, store ArtifactStore, opts BootstrapOptions) (BootstrapResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if store != nil {
		if a, ok := loadUsable(ctx, store, opts, logger); ok {
			logger.Info("forecaster artifact loaded",
				slog.Time("trained_at", a.TrainedAt),
				slog.Float64("rmse", a.Metrics.RMSE),
			)
			return BootstrapResult{Artifact: a}, nil
		}
	}

	start := time.Now()
	a, err := TrainSynthetic(ctx, opts)
	if err != nil {
		return BootstrapResult{}, err
	}
	took := time.Since(start)
	logger.Info("forecaster trained",
		slog.Int("epochs", a.Epochs),
		slog.Float64("rmse", a.Metrics.RMSE),
		slog.Float64("f1", a.Metrics.F1),
		slog.Duration("took", took),
	)

	if store != nil {
		blob, err := Encode(a)
		if err == nil {
			err = store.Save(ctx, blob)
		}
		if err != nil {
			logger.Warn("forecaster artifact not persisted", slog.Any("error", err))
		}
	}
	return BootstrapResult{Artifact: a, Trained: true, Duration: took}, nil
}

func loadUsable(ctx context.Context, store ArtifactStore, opts BootstrapOptions, logger *slog.Logger) (*Artifact, bool) {
	blob, err := store.Load(ctx)
	if err != nil {
		if errors.Is(err, artifact.ErrArtifactNotFound) {
			logger.Info("no forecaster artifact stored, training")
		} else {
			logger.Warn("forecaster artifact load failed, training", slog.Any("error", err))
		}
		return nil, false
	}
	a, err := Decode(blob)
	if err != nil {
		logger.Warn("forecaster artifact rejected, training", slog.Any("error", err))
		return nil, false
	}
	if a.Arch.WindowSize != opts.WindowSize || a.Arch.Horizon != opts.Horizon || a.Arch.FeatureCount != models.FeatureCount {
		logger.Warn("forecaster artifact geometry differs from config, training",
			slog.Int("artifact_window", a.Arch.WindowSize),
			slog.Int("artifact_horizon", a.Arch.Horizon),
			slog.Int("artifact_features", a.Arch.FeatureCount),
		)
		return nil, false
	}
	return a, true
}

// TrainSynthetic generates a synthetic telemetry series and trains an artifact on it.
func TrainSynthetic(ctx context.Context, opts BootstrapOptions) (*Artifact, error) {
	ctx, span := observability.StartSpan(ctx, "forecast.train",
		attribute.Int("training_points", opts.TrainingPoints),
		attribute.Int("window_size", opts.WindowSize),
		attribute.Int("horizon", opts.Horizon),
	)
	defer span.End()

	interval := opts.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	start := time.Now().Add(-time.Duration(opts.TrainingPoints) * interval)
	series := telemetry.GenerateSeries(opts.TrainingPoints, start, interval, nil, opts.SeriesSeed)
	trainSeries, valSeries := features.Split(series, opts.TrainRatio)

	train := features.Build(trainSeries, opts.WindowSize, opts.Horizon)
	validation := features.Build(valSeries, opts.WindowSize, opts.Horizon)
	span.SetAttributes(attribute.Int("train_windows", len(train)), attribute.Int("validation_windows", len(validation)))

	a, err := Train(ctx, train, validation, opts.Train)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("train forecaster: %w", err)
	}
	return a, nil
}
