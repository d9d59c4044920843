package forecast

import (
	"math"

	"github.com/miradorstack/mirador-netforecast/internal/features"
)

// Evaluate scores the artifact against windows. Regression errors and the congestion
// confusion matrix are computed over every horizon step.
func Evaluate(a *Artifact, windows []features.Window, threshold float64) Metrics {
	var actual, predicted []float64
	for _, w := range windows {
		out, err := a.Predict(w.Features)
		if err != nil {
			continue
		}
		for k := 0; k < len(out) && k < len(w.Target); k++ {
			actual = append(actual, w.Target[k])
			predicted = append(predicted, out[k])
		}
	}
	m := Metrics{Threshold: threshold}
	m.RMSE, m.MAE, m.R2 = regressionScores(actual, predicted)
	m.Precision, m.Recall, m.F1 = congestionScores(actual, predicted, threshold)
	return m
}

func regressionScores(actual, predicted []float64) (rmse, mae, r2 float64) {
	n := float64(len(actual))
	if n == 0 {
		return 0, 0, 0
	}
	var sse, sae, mean float64
	for i := range actual {
		d := actual[i] - predicted[i]
		sse += d * d
		sae += math.Abs(d)
		mean += actual[i]
	}
	mean /= n
	var sst float64
	for _, v := range actual {
		sst += (v - mean) * (v - mean)
	}
	rmse = math.Sqrt(sse / n)
	mae = sae / n
	if sst > 0 {
		r2 = 1 - sse/sst
	}
	return rmse, mae, r2
}

func congestionScores(actual, predicted []float64, threshold float64) (precision, recall, f1 float64) {
	var tp, fp, fn float64
	for i := range actual {
		hot := actual[i] >= threshold
		called := predicted[i] >= threshold
		switch {
		case hot && called:
			tp++
		case called:
			fp++
		case hot:
			fn++
		}
	}
	precision = tp / math.Max(tp+fp, 1)
	recall = tp / math.Max(tp+fn, 1)
	f1 = 2 * precision * recall / math.Max(precision+recall, 1e-8)
	return precision, recall, f1
}
