package main

import (
	"fmt"
	"log/slog"

	"github.com/miradorstack/mirador-netforecast/internal/config"
	"github.com/miradorstack/mirador-netforecast/internal/forecast"
	"github.com/miradorstack/mirador-netforecast/internal/metrics"
	"github.com/miradorstack/mirador-netforecast/internal/telemetry"
)

type configLoader func() (*config.Config, error)

func trainOptions(cfg *config.Config) forecast.TrainOptions {
	f := cfg.Forecaster
	return forecast.TrainOptions{
		HiddenSize:   f.HiddenSize,
		Layers:       f.Layers,
		Epochs:       f.Epochs,
		BatchSize:    f.BatchSize,
		LearningRate: f.LearningRate,
		Patience:     f.Patience,
		MinDelta:     f.MinDelta,
		Seed:         f.Seed,
		Threshold:    cfg.Pipeline.CongestionThreshold,
	}
}

func bootstrapOptions(cfg *config.Config, logger *slog.Logger) forecast.BootstrapOptions {
	return forecast.BootstrapOptions{
		WindowSize:     cfg.Pipeline.WindowSize,
		Horizon:        cfg.Pipeline.Horizon,
		Interval:       cfg.Pipeline.Interval,
		TrainingPoints: cfg.Forecaster.TrainingPoints,
		TrainRatio:     cfg.Forecaster.TrainRatio,
		SeriesSeed:     cfg.Forecaster.Seed,
		Train:          trainOptions(cfg),
		Logger:         logger,
	}
}

// scheduleFactory returns the live sampler's schedule source. Without an explicit schedule
// every regime runs for sampler.phaseTicks ticks.
func scheduleFactory(cfg config.SamplerConfig) (func() []telemetry.Phase, error) {
	if len(cfg.Schedule) == 0 {
		ticks := cfg.PhaseTicks
		return func() []telemetry.Phase { return telemetry.DefaultSchedule(ticks) }, nil
	}
	phases := make([]telemetry.Phase, 0, len(cfg.Schedule))
	for i, p := range cfg.Schedule {
		regime, err := telemetry.ParseRegime(p.Regime)
		if err != nil {
			return nil, fmt.Errorf("sampler.schedule[%d]: %w", i, err)
		}
		phases = append(phases, telemetry.Phase{Regime: regime, Ticks: p.Ticks})
	}
	return func() []telemetry.Phase {
		return append([]telemetry.Phase(nil), phases...)
	}, nil
}

func publishModel(res forecast.BootstrapResult) {
	m := res.Artifact.Metrics
	metrics.SetModelQuality(map[string]float64{
		"rmse":      m.RMSE,
		"mae":       m.MAE,
		"r2":        m.R2,
		"precision": m.Precision,
		"recall":    m.Recall,
		"f1":        m.F1,
	})
	if res.Trained {
		metrics.ObserveTraining(res.Duration)
	}
}
