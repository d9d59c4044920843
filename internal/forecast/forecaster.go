package forecast

import (
	"sync/atomic"

	"github.com/miradorstack/mirador-netforecast/internal/models"
	"github.com/miradorstack/mirador-netforecast/internal/utils"
)

// Forecaster serves predictions from the active artifact. Replacing the artifact is a
// single atomic swap; readers never see a partially installed model.
type Forecaster struct {
	active atomic.Pointer[Artifact]
}

// NewForecaster returns a forecaster serving a, which may be nil.
func NewForecaster(a *Artifact) *Forecaster {
	f := &Forecaster{}
	if a != nil {
		f.active.Store(a)
	}
	return f
}

// Swap installs a as the active artifact.
func (f *Forecaster) Swap(a *Artifact) { f.active.Store(a) }

// Active returns the artifact currently served, or nil.
func (f *Forecaster) Active() *Artifact {
	if f == nil {
		return nil
	}
	return f.active.Load()
}

// Predict forecasts the horizon from a window of raw feature vectors.
func (f *Forecaster) Predict(window [][]float64) ([]float64, error) {
	a := f.Active()
	if a == nil {
		return nil, utils.ErrModelUnavailable
	}
	return a.Predict(window)
}

// Metrics snapshots the active artifact's validation scores; Ready is false without one.
func (f *Forecaster) Metrics() models.ModelMetrics {
	return f.Active().ModelMetrics()
}
