package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/miradorstack/mirador-netforecast/internal/features"
	"github.com/miradorstack/mirador-netforecast/internal/history"
	"github.com/miradorstack/mirador-netforecast/internal/live"
	"github.com/miradorstack/mirador-netforecast/internal/metrics"
	"github.com/miradorstack/mirador-netforecast/internal/models"
	"github.com/miradorstack/mirador-netforecast/internal/observability"
	"github.com/miradorstack/mirador-netforecast/internal/telemetry"
	"github.com/miradorstack/mirador-netforecast/internal/utils"
)

// SampleSource produces the synthetic sample for the next tick.
type SampleSource interface {
	Next() models.TelemetrySample
}

// Predictor forecasts the horizon from a raw feature window and reports model quality.
type Predictor interface {
	Predict(window [][]float64) ([]float64, error)
	Metrics() models.ModelMetrics
}

// PipelineOptions carries the tick geometry.
type PipelineOptions struct {
	Interval      time.Duration
	Backoff       time.Duration
	WindowSize    int
	Horizon       int
	Threshold     float64
	OverlayPoints int
}

// regimeSource is implemented by samplers that know which traffic regime they draw from.
type regimeSource interface {
	Current() telemetry.Regime
}

// TickResult summarises one completed tick. Regime is empty when the sampler does not
// report one.
type TickResult struct {
	Sample     models.TelemetrySample
	Regime     string
	Prediction *models.PredictionPayload
	Evaluation Evaluation
}

// Pipeline runs sample → blend → window → predict → evaluate → record once per tick.
type Pipeline struct {
	logger     *slog.Logger
	opts       PipelineOptions
	sampler    SampleSource
	live       live.Source
	blender    *telemetry.Blender
	buffer     *utils.Ring[models.TelemetrySample]
	forecaster Predictor
	actions    *ActionEngine
	history    *history.Store
	latency    *utils.LatencyTracker
	now        func() time.Time
}

// NewPipeline wires the tick stages. liveSource may be nil.
func NewPipeline(
	logger *slog.Logger,
	opts PipelineOptions,
	sampler SampleSource,
	liveSource live.Source,
	blender *telemetry.Blender,
	buffer *utils.Ring[models.TelemetrySample],
	forecaster Predictor,
	actions *ActionEngine,
	store *history.Store,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Second
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 5 * time.Second
	}
	if opts.OverlayPoints <= 0 {
		opts.OverlayPoints = 30
	}
	if store == nil {
		store = history.NewStore(0, 0, 0)
	}
	return &Pipeline{
		logger:     logger,
		opts:       opts,
		sampler:    sampler,
		live:       liveSource,
		blender:    blender,
		buffer:     buffer,
		forecaster: forecaster,
		actions:    actions,
		history:    store,
		latency:    utils.NewLatencyTracker(256),
		now:        time.Now,
	}
}

// Warmup appends n live-free samples, back-dated one interval apart, so that forecasts can
// start on the first tick.
func (p *Pipeline) Warmup(n int) {
	if n <= 0 {
		return
	}
	base := p.now().Add(-time.Duration(n+1) * p.opts.Interval)
	for _, ts := range utils.TickOffsets(base, p.opts.Interval, n) {
		sample := p.sampler.Next()
		sample.Timestamp = ts
		p.blender.Ingest(sample, nil)
	}
	p.logger.Info("telemetry buffer warmed", slog.Int("samples", n))
}

// Run ticks until ctx is cancelled. Failed or panicking ticks are followed by the backoff
// delay instead of the regular interval.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started",
		slog.Duration("interval", p.opts.Interval),
		slog.Int("window", p.opts.WindowSize),
		slog.Int("horizon", p.opts.Horizon),
		slog.Float64("live_weight", p.blender.Weight()),
	)
	for {
		wait := p.opts.Interval
		if _, err := p.safeTick(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Error("pipeline tick failed", slog.Any("error", err), slog.Duration("backoff", p.opts.Backoff))
			wait = p.opts.Backoff
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			p.logger.Info("pipeline stopped")
			return nil
		case <-timer.C:
		}
	}
}

func (p *Pipeline) safeTick(ctx context.Context) (res TickResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick panic: %v", r)
			metrics.ObserveTick(0, metrics.OutcomeError)
		}
	}()
	return p.Tick(ctx)
}

// Tick runs one full cycle. A short buffer or missing model skips the forecast without
// failing the tick.
func (p *Pipeline) Tick(ctx context.Context) (TickResult, error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "pipeline.tick")
	defer span.End()

	res, err := p.tick(ctx)
	took := time.Since(start)
	p.latency.Observe(took)

	outcome := metrics.OutcomeSkipped
	switch {
	case err != nil:
		outcome = metrics.OutcomeError
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case res.Prediction != nil:
		outcome = metrics.OutcomePredicted
	}
	span.SetAttributes(
		attribute.String("tick.outcome", outcome),
		attribute.String("tick.regime", res.Regime),
		attribute.Float64("tick.utilization", res.Sample.LinkUtilizationPercent),
		attribute.Int("tick.alerts", len(res.Evaluation.Alerts)),
		attribute.Int("tick.pending", res.Evaluation.Pending),
	)
	metrics.ObserveTick(took, outcome)
	return res, err
}

func (p *Pipeline) tick(ctx context.Context) (TickResult, error) {
	now := p.now()
	var regime string
	if rs, ok := p.sampler.(regimeSource); ok {
		regime = rs.Current().String()
	}
	synthetic := p.sampler.Next()
	synthetic.Timestamp = now

	var liveMetrics *models.LiveMetrics
	if p.live != nil {
		m, err := p.live.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return TickResult{}, ctx.Err()
			}
			p.logger.Debug("live metrics unavailable, using synthetic sample", slog.Any("error", err))
		} else {
			liveMetrics = m
		}
	}

	sample := p.blender.Ingest(synthetic, liveMetrics)
	samples := p.buffer.Snapshot()
	res := TickResult{Sample: sample, Regime: regime}

	prediction, err := p.predict(sample.Timestamp, samples)
	if err != nil {
		return res, err
	}
	if prediction != nil {
		p.history.AppendPrediction(*prediction)
		metrics.ObserveForecast(prediction.PeakPredicted(), prediction.CongestionProbability)
		res.Prediction = prediction
	}

	res.Evaluation = p.actions.Evaluate(now, prediction, samples)
	p.record(res.Evaluation)
	return res, nil
}

func (p *Pipeline) predict(ts time.Time, samples []models.TelemetrySample) (*models.PredictionPayload, error) {
	window, err := features.Latest(samples, p.opts.WindowSize)
	if errors.Is(err, utils.ErrDataInsufficient) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	values, err := p.forecaster.Predict(window)
	if errors.Is(err, utils.ErrModelUnavailable) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	predicted := make([]models.Point, 0, len(values))
	hot := 0
	for i, at := range utils.TickOffsets(ts, p.opts.Interval, len(values)) {
		v := clampUtilization(values[i])
		if v >= p.opts.Threshold {
			hot++
		}
		predicted = append(predicted, models.Point{Timestamp: at, Value: v})
	}

	overlay := samples
	if len(overlay) > p.opts.OverlayPoints {
		overlay = overlay[len(overlay)-p.opts.OverlayPoints:]
	}
	actual := make([]models.Point, len(overlay))
	for i, s := range overlay {
		actual[i] = models.Point{Timestamp: s.Timestamp, Value: s.LinkUtilizationPercent}
	}

	probability := 0.0
	if len(predicted) > 0 {
		probability = float64(hot) / float64(len(predicted))
	}
	return &models.PredictionPayload{
		Ready:                 true,
		Timestamp:             ts,
		Actual:                actual,
		Predicted:             predicted,
		CongestionProbability: probability,
		Confidence:            confidence(p.forecaster.Metrics().RMSE),
	}, nil
}

func (p *Pipeline) record(ev Evaluation) {
	p.history.AppendAlerts(ev.Alerts...)
	p.history.AppendLog(ev.Log...)
	for _, a := range ev.Alerts {
		metrics.IncAlert(string(a.Type), string(a.Severity))
	}
	metrics.SetPendingActions(ev.Pending)
	metrics.AddRollbacks(metrics.RollbackResolved, ev.Resolved)
	metrics.AddRollbacks(metrics.RollbackExpired, ev.Expired)
}

// History exposes the recorded predictions, alerts and action log.
func (p *Pipeline) History() *history.Store { return p.history }

// PendingActions returns the active pending actions.
func (p *Pipeline) PendingActions() []models.PendingAction { return p.actions.Pending() }

// ModelMetrics reports the quality of the served forecaster.
func (p *Pipeline) ModelMetrics() models.ModelMetrics { return p.forecaster.Metrics() }

// RecentTelemetry returns up to n newest buffered samples, oldest first.
func (p *Pipeline) RecentTelemetry(n int) []models.TelemetrySample { return p.buffer.Last(n) }

// TickLatency returns the p-th percentile of recent tick durations.
func (p *Pipeline) TickLatency(percentile float64) time.Duration {
	return p.latency.Percentile(percentile)
}

func confidence(rmse float64) float64 {
	c := 1 - rmse/100
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	return math.Min(c, 1)
}

func clampUtilization(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}
