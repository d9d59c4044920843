package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomePredicted labels ticks that published a forecast.
	OutcomePredicted = "predicted"
	// OutcomeSkipped labels ticks without a forecast (short history or no model).
	OutcomeSkipped = "skipped"
	// OutcomeError labels ticks that failed or panicked.
	OutcomeError = "error"

	// RollbackResolved labels pending actions rolled back after the congestion cleared.
	RollbackResolved = "resolved"
	// RollbackExpired labels pending actions dropped at their maximum age.
	RollbackExpired = "expired"
)

const namespace = "netforecast"

var (
	ticksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Pipeline ticks, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	tickDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_seconds",
			Help:      "Pipeline tick latency in seconds.",
			Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	alertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alerts raised by the action engine.",
		},
		[]string{"type", "severity"},
	)

	pendingActions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_actions",
			Help:      "Remediation actions awaiting rollback.",
		},
	)

	rollbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rollbacks_total",
			Help:      "Pending actions retired, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	predictedPeak = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "predicted_peak_utilization",
			Help:      "Highest utilization percent in the latest forecast horizon.",
		},
	)

	congestionProbability = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "congestion_probability",
			Help:      "Fraction of the latest forecast horizon at or above the congestion threshold.",
		},
	)

	modelQuality = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_quality",
			Help:      "Validation metrics of the active forecaster artifact.",
		},
		[]string{"metric"},
	)

	trainingSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "training_seconds",
			Help:      "Duration of the last forecaster training pass.",
		},
	)
)

// Register attaches netforecast collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		ticksTotal,
		tickDurationSeconds,
		alertsTotal,
		pendingActions,
		rollbacksTotal,
		predictedPeak,
		congestionProbability,
		modelQuality,
		trainingSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveTick records a tick duration and outcome label.
func ObserveTick(duration time.Duration, outcome string) {
	switch outcome {
	case OutcomePredicted, OutcomeSkipped:
	default:
		outcome = OutcomeError
	}
	ticksTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	tickDurationSeconds.Observe(duration.Seconds())
}

// ObserveForecast publishes the latest forecast summary.
func ObserveForecast(peak, probability float64) {
	predictedPeak.Set(peak)
	congestionProbability.Set(probability)
}

// IncAlert counts one raised alert.
func IncAlert(alertType, severity string) {
	alertsTotal.WithLabelValues(alertType, severity).Inc()
}

// SetPendingActions publishes the size of the pending set.
func SetPendingActions(n int) {
	pendingActions.Set(float64(n))
}

// AddRollbacks counts retired pending actions.
func AddRollbacks(outcome string, n int) {
	if n <= 0 {
		return
	}
	rollbacksTotal.WithLabelValues(outcome).Add(float64(n))
}

// SetModelQuality publishes artifact validation metrics keyed by name.
func SetModelQuality(values map[string]float64) {
	for name, v := range values {
		modelQuality.WithLabelValues(name).Set(v)
	}
}

// ObserveTraining records how long the last training pass took.
func ObserveTraining(duration time.Duration) {
	trainingSeconds.Set(duration.Seconds())
}
