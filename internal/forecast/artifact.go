package forecast

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/miradorstack/mirador-netforecast/internal/models"
	"github.com/miradorstack/mirador-netforecast/internal/utils"
)

// ErrWindowShape reports a predict input that does not match the artifact architecture.
var ErrWindowShape = errors.New("window shape does not match model")

// Metrics are validation scores computed on un-normalised utilization values.
type Metrics struct {
	RMSE      float64
	MAE       float64
	R2        float64
	Precision float64
	Recall    float64
	F1        float64
	Threshold float64
}

// Artifact is a trained forecaster: architecture, parameters, frozen scaler and the
// validation metrics it was accepted with. It is immutable once published.
type Artifact struct {
	Arch      Architecture
	Layers    []Layer
	Scaler    Scaler
	Metrics   Metrics
	TrainedAt time.Time
	Epochs    int
}

// Predict forecasts Horizon utilization values from a WindowSize x FeatureCount window.
func (a *Artifact) Predict(window [][]float64) ([]float64, error) {
	if a == nil || len(a.Layers) == 0 {
		return nil, utils.ErrModelUnavailable
	}
	if len(window) != a.Arch.WindowSize {
		return nil, fmt.Errorf("got %d rows, want %d: %w", len(window), a.Arch.WindowSize, ErrWindowShape)
	}
	x := make([]float64, 0, a.Arch.InputSize())
	for r, row := range window {
		if len(row) != a.Arch.FeatureCount {
			return nil, fmt.Errorf("row %d has %d features, want %d: %w", r, len(row), a.Arch.FeatureCount, ErrWindowShape)
		}
		for j, v := range row {
			x = append(x, a.Scaler.Transform(v, j))
		}
	}
	out := mat.Row(nil, 0, forward(a.Layers, mat.NewDense(1, len(x), x)))
	for i, v := range out {
		out[i] = a.Scaler.Inverse(v, utilizationColumn)
	}
	return out, nil
}

// ModelMetrics reports the artifact's validation scores as a ready snapshot.
func (a *Artifact) ModelMetrics() models.ModelMetrics {
	if a == nil {
		return models.ModelMetrics{}
	}
	return models.ModelMetrics{
		Ready:     true,
		RMSE:      a.Metrics.RMSE,
		MAE:       a.Metrics.MAE,
		R2:        a.Metrics.R2,
		Precision: a.Metrics.Precision,
		Recall:    a.Metrics.Recall,
		F1:        a.Metrics.F1,
		Threshold: a.Metrics.Threshold,
		TrainedAt: a.TrainedAt,
	}
}

// validate checks every shape and value a decoded artifact must satisfy.
func (a *Artifact) validate() error {
	arch := a.Arch
	if arch.FeatureCount <= 0 || arch.WindowSize <= 0 || arch.HiddenSize <= 0 || arch.Layers < 0 || arch.Horizon <= 0 {
		return fmt.Errorf("invalid architecture %+v", arch)
	}
	shapes := arch.shapes()
	if len(a.Layers) != len(shapes) {
		return fmt.Errorf("have %d layers, architecture needs %d", len(a.Layers), len(shapes))
	}
	for i, l := range a.Layers {
		if l.In != shapes[i][0] || l.Out != shapes[i][1] {
			return fmt.Errorf("layer %d is %dx%d, want %dx%d", i, l.In, l.Out, shapes[i][0], shapes[i][1])
		}
		if len(l.Weights) != l.In*l.Out || len(l.Bias) != l.Out {
			return fmt.Errorf("layer %d parameter length mismatch", i)
		}
		if !allFinite(l.Weights) || !allFinite(l.Bias) {
			return fmt.Errorf("layer %d has non-finite parameters", i)
		}
	}
	if len(a.Scaler.Min) != arch.FeatureCount || len(a.Scaler.Max) != arch.FeatureCount {
		return fmt.Errorf("scaler covers %d features, want %d", len(a.Scaler.Min), arch.FeatureCount)
	}
	if !allFinite(a.Scaler.Min) || !allFinite(a.Scaler.Max) {
		return fmt.Errorf("scaler has non-finite bounds")
	}
	for i := range a.Scaler.Min {
		if a.Scaler.Max[i] < a.Scaler.Min[i] {
			return fmt.Errorf("scaler feature %d has max below min", i)
		}
	}
	return nil
}

func allFinite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
