package forecast

import (
	"math"

	"github.com/miradorstack/mirador-netforecast/internal/features"
)

// utilizationColumn is the feature index the forecast targets are expressed in.
const utilizationColumn = 0

// Scaler is a per-feature min/max normaliser. It is fitted on training windows once and
// frozen inside the artifact.
type Scaler struct {
	Min []float64
	Max []float64
}

// FitScaler computes per-feature bounds over every row of every window.
func FitScaler(windows []features.Window, featureCount int) Scaler {
	s := Scaler{Min: make([]float64, featureCount), Max: make([]float64, featureCount)}
	for i := range s.Min {
		s.Min[i] = math.Inf(1)
		s.Max[i] = math.Inf(-1)
	}
	seen := false
	for _, w := range windows {
		for _, row := range w.Features {
			for j := 0; j < featureCount && j < len(row); j++ {
				s.Min[j] = math.Min(s.Min[j], row[j])
				s.Max[j] = math.Max(s.Max[j], row[j])
				seen = true
			}
		}
	}
	if !seen {
		for i := range s.Min {
			s.Min[i], s.Max[i] = 0, 1
		}
	}
	return s
}

// span guards constant features, which would otherwise divide by zero.
func (s Scaler) span(i int) float64 {
	r := s.Max[i] - s.Min[i]
	if r == 0 {
		return 1
	}
	return r
}

// Transform scales v of feature i into [0,1] relative to the fitted bounds.
func (s Scaler) Transform(v float64, i int) float64 {
	return (v - s.Min[i]) / s.span(i)
}

// Inverse maps a scaled value of feature i back to its original units.
func (s Scaler) Inverse(v float64, i int) float64 {
	return v*s.span(i) + s.Min[i]
}
