// Package features turns the telemetry history into supervised windows for the forecaster.
package features

import (
	"fmt"

	"github.com/miradorstack/mirador-netforecast/internal/models"
	"github.com/miradorstack/mirador-netforecast/internal/utils"
)

// Window pairs W consecutive feature vectors with the utilization of the H samples that follow.
type Window struct {
	Features [][]float64
	Target   []float64
}

// Build slides a W-sample input window with an H-sample utilization target over samples.
// It yields N-W-H+1 windows when N >= W+H and none otherwise.
func Build(samples []models.TelemetrySample, windowSize, horizon int) []Window {
	if windowSize <= 0 || horizon <= 0 {
		return nil
	}
	count := len(samples) - windowSize - horizon + 1
	if count <= 0 {
		return nil
	}

	vectors := make([][]float64, len(samples))
	for i, s := range samples {
		vectors[i] = s.Features()
	}

	windows := make([]Window, 0, count)
	for i := 0; i < count; i++ {
		target := make([]float64, horizon)
		for k := 0; k < horizon; k++ {
			target[k] = samples[i+windowSize+k].LinkUtilizationPercent
		}
		windows = append(windows, Window{
			Features: vectors[i : i+windowSize : i+windowSize],
			Target:   target,
		})
	}
	return windows
}

// Latest returns the most recent windowSize feature vectors, oldest first.
func Latest(samples []models.TelemetrySample, windowSize int) ([][]float64, error) {
	if windowSize <= 0 {
		return nil, fmt.Errorf("window size %d: %w", windowSize, utils.ErrDataInsufficient)
	}
	if len(samples) < windowSize {
		return nil, fmt.Errorf("have %d samples, need %d: %w", len(samples), windowSize, utils.ErrDataInsufficient)
	}
	tail := samples[len(samples)-windowSize:]
	out := make([][]float64, len(tail))
	for i, s := range tail {
		out[i] = s.Features()
	}
	return out, nil
}

// Split divides samples chronologically; the first max(1, int(N*ratio)) samples train.
func Split(samples []models.TelemetrySample, ratio float64) (train, validation []models.TelemetrySample) {
	if len(samples) == 0 {
		return nil, nil
	}
	cut := int(float64(len(samples)) * ratio)
	if cut < 1 {
		cut = 1
	}
	if cut > len(samples) {
		cut = len(samples)
	}
	return samples[:cut], samples[cut:]
}
