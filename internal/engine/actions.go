package engine

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/miradorstack/mirador-netforecast/internal/models"
)

const (
	spikeHistory     = 2
	spikeDelta       = 20.0
	spikeFloor       = 70.0
	sustainedHistory = 5
	overloadUtil     = 85.0
	overloadFlows    = 200.0
	degradedUtil     = 60.0
	latencyRiseMs    = 5.0
)

// ActionEngineOptions configures rule thresholds and pending action lifetimes.
type ActionEngineOptions struct {
	Threshold      float64
	RollbackWindow time.Duration
	// MaxPendingAge force-expires actions whose congestion never clears. Zero retries forever.
	MaxPendingAge time.Duration
	Commands      *CommandPack
	Logger        *slog.Logger
	NewID         func() string
}

// Evaluation is everything one tick of the action engine produced.
type Evaluation struct {
	Alerts   []models.Alert
	Log      []models.ActionLogEntry
	Resolved int
	Expired  int
	Pending  int
}

// ActionEngine turns forecasts and recent telemetry into alerts and time-bounded
// remediation actions. Evaluate is called from the driver goroutine; Pending may be called
// from any goroutine.
type ActionEngine struct {
	opts ActionEngineOptions

	mu      sync.Mutex
	pending []models.PendingAction
}

// NewActionEngine applies defaults to opts.
func NewActionEngine(opts ActionEngineOptions) *ActionEngine {
	if opts.Commands == nil {
		opts.Commands = DefaultCommandPack()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.New().String() }
	}
	return &ActionEngine{opts: opts}
}

// Evaluate retires pending actions whose rollback window has elapsed, then runs the rules
// in order. prediction may be nil when no forecast was produced this tick.
func (e *ActionEngine) Evaluate(now time.Time, prediction *models.PredictionPayload, recent []models.TelemetrySample) Evaluation {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out Evaluation
	e.checkRollbacks(now, recent, &out)

	for _, f := range e.fired(prediction, recent) {
		rendered := e.opts.Commands.Render(f.alertType, f.vars)
		alert := models.Alert{
			Type:      f.alertType,
			Severity:  f.severity,
			Message:   rendered.Message,
			Command:   rendered.Command,
			Timestamp: now,
		}
		action := models.PendingAction{
			ID:              e.opts.NewID(),
			AlertType:       f.alertType,
			CreatedAt:       now,
			RollbackCommand: rendered.Rollback,
			State:           models.ActionActive,
		}
		e.pending = append(e.pending, action)
		out.Alerts = append(out.Alerts, alert)
		out.Log = append(out.Log, models.ActionLogEntry{
			Kind:      models.LogAction,
			ActionID:  action.ID,
			AlertType: f.alertType,
			Severity:  f.severity,
			Command:   rendered.Command,
			Message:   rendered.Message,
			Timestamp: now,
		})
		e.opts.Logger.Info("remediation proposed",
			slog.String("alert", string(f.alertType)),
			slog.String("severity", string(f.severity)),
			slog.String("action_id", action.ID),
			slog.String("command", rendered.Command),
		)
	}
	out.Pending = len(e.pending)
	return out
}

// Pending returns a copy of the active pending actions in creation order.
func (e *ActionEngine) Pending() []models.PendingAction {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.PendingAction(nil), e.pending...)
}

func (e *ActionEngine) checkRollbacks(now time.Time, recent []models.TelemetrySample, out *Evaluation) {
	if len(e.pending) == 0 {
		return
	}
	cleared := false
	if n := len(recent); n > 0 {
		cleared = recent[n-1].LinkUtilizationPercent < e.opts.Threshold
	}

	kept := e.pending[:0]
	for _, action := range e.pending {
		age := now.Sub(action.CreatedAt)
		if age < e.opts.RollbackWindow {
			kept = append(kept, action)
			continue
		}
		switch {
		case cleared:
			action.State = models.ActionExpiredResolved
			out.Resolved++
			out.Log = append(out.Log, models.ActionLogEntry{
				Kind:      models.LogRollback,
				ActionID:  action.ID,
				AlertType: action.AlertType,
				Command:   action.RollbackCommand,
				Message:   "congestion cleared, rolling back",
				Timestamp: now,
			})
			e.opts.Logger.Info("remediation rolled back",
				slog.String("action_id", action.ID),
				slog.String("command", action.RollbackCommand),
			)
		case e.opts.MaxPendingAge > 0 && age >= e.opts.MaxPendingAge:
			action.State = models.ActionExpiredUnresolved
			out.Expired++
			out.Log = append(out.Log, models.ActionLogEntry{
				Kind:      models.LogExpired,
				ActionID:  action.ID,
				AlertType: action.AlertType,
				Command:   action.RollbackCommand,
				Message:   "congestion persisted past maximum pending age; rollback not issued",
				Timestamp: now,
			})
			e.opts.Logger.Warn("remediation expired unresolved",
				slog.String("action_id", action.ID),
				slog.Duration("age", age),
			)
		default:
			kept = append(kept, action)
		}
	}
	clear(e.pending[len(kept):])
	e.pending = kept
}

type firedRule struct {
	alertType models.AlertType
	severity  models.Severity
	vars      TemplateVars
}

// fired evaluates the rules in fixed order. Rules lacking history are skipped.
func (e *ActionEngine) fired(prediction *models.PredictionPayload, recent []models.TelemetrySample) []firedRule {
	threshold := e.opts.Threshold
	var out []firedRule
	current := 0.0
	if n := len(recent); n > 0 {
		current = recent[n-1].LinkUtilizationPercent
	}

	if prediction != nil && prediction.Ready && len(prediction.Predicted) > 0 {
		if peak := prediction.PeakPredicted(); peak >= threshold {
			out = append(out, firedRule{models.AlertPredictedCongestion, models.SeverityHigh,
				TemplateVars{Peak: peak, Util: current, Threshold: threshold}})
		}
	}

	if n := len(recent); n >= spikeHistory {
		delta := recent[n-1].LinkUtilizationPercent - recent[n-2].LinkUtilizationPercent
		if delta > spikeDelta && current > spikeFloor {
			out = append(out, firedRule{models.AlertSuddenSpike, models.SeverityMedium,
				TemplateVars{Util: current, Threshold: threshold}})
		}
	}

	if n := len(recent); n >= sustainedHistory {
		window := recent[n-sustainedHistory:]
		var util, flows float64
		for _, s := range window {
			util += s.LinkUtilizationPercent
			flows += s.FlowCount
		}
		util /= sustainedHistory
		flows /= sustainedHistory

		if util > overloadUtil && flows > overloadFlows {
			out = append(out, firedRule{models.AlertSustainedOverload, models.SeverityHigh,
				TemplateVars{Util: util, Threshold: threshold}})
		}
		if util < degradedUtil && window[len(window)-1].LatencyMs-window[0].LatencyMs > latencyRiseMs {
			out = append(out, firedRule{models.AlertLatencyDegradation, models.SeverityMedium,
				TemplateVars{Util: util, Threshold: threshold}})
		}
	}
	return out
}
