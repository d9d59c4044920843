package models

import "time"

// Point is a timestamped utilization value used for forecast overlays.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// PredictionPayload is the forecast published for one tick.
type PredictionPayload struct {
	Ready                 bool      `json:"ready"`
	Timestamp             time.Time `json:"timestamp"`
	Actual                []Point   `json:"actual"`
	Predicted             []Point   `json:"predicted"`
	CongestionProbability float64   `json:"congestion_probability"`
	Confidence            float64   `json:"confidence"`
}

// PeakPredicted returns the maximum predicted utilization, or zero without predictions.
func (p PredictionPayload) PeakPredicted() float64 {
	peak := 0.0
	for i, pt := range p.Predicted {
		if i == 0 || pt.Value > peak {
			peak = pt.Value
		}
	}
	return peak
}

// ModelMetrics summarises validation quality of the active forecaster artifact.
type ModelMetrics struct {
	Ready     bool      `json:"ready"`
	RMSE      float64   `json:"rmse"`
	MAE       float64   `json:"mae"`
	R2        float64   `json:"r2"`
	Precision float64   `json:"precision"`
	Recall    float64   `json:"recall"`
	F1        float64   `json:"f1"`
	Threshold float64   `json:"threshold"`
	TrainedAt time.Time `json:"trained_at"`
}
