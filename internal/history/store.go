// Package history keeps bounded, snapshot-readable records of what the pipeline published.
package history

import (
	"github.com/miradorstack/mirador-netforecast/internal/models"
	"github.com/miradorstack/mirador-netforecast/internal/utils"
)

// Default capacities.
const (
	DefaultPredictions = 300
	DefaultAlerts      = 100
	DefaultActionLog   = 200
)

// Store holds three independent FIFO rings. Reads return copies.
type Store struct {
	predictions *utils.Ring[models.PredictionPayload]
	alerts      *utils.Ring[models.Alert]
	actionLog   *utils.Ring[models.ActionLogEntry]
}

// NewStore sizes the rings; non-positive capacities use the defaults.
func NewStore(predictions, alerts, actionLog int) *Store {
	return &Store{
		predictions: utils.NewRing[models.PredictionPayload](orDefault(predictions, DefaultPredictions)),
		alerts:      utils.NewRing[models.Alert](orDefault(alerts, DefaultAlerts)),
		actionLog:   utils.NewRing[models.ActionLogEntry](orDefault(actionLog, DefaultActionLog)),
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func (s *Store) AppendPrediction(p models.PredictionPayload) { s.predictions.Push(p) }

func (s *Store) AppendAlerts(alerts ...models.Alert) {
	for _, a := range alerts {
		s.alerts.Push(a)
	}
}

func (s *Store) AppendLog(entries ...models.ActionLogEntry) {
	for _, e := range entries {
		s.actionLog.Push(e)
	}
}

// LatestPrediction returns the newest payload, or an empty payload with Ready=false
// whose series are empty rather than nil.
func (s *Store) LatestPrediction() models.PredictionPayload {
	p, ok := s.predictions.Latest()
	if !ok {
		return models.PredictionPayload{
			Ready:     false,
			Actual:    []models.Point{},
			Predicted: []models.Point{},
		}
	}
	return p
}

// RecentPredictions returns up to n newest payloads, oldest first. n <= 0 returns all
// retained payloads.
func (s *Store) RecentPredictions(n int) []models.PredictionPayload { return recent(s.predictions, n) }

func (s *Store) Alerts() []models.Alert { return s.alerts.Snapshot() }

// RecentAlerts returns up to n newest alerts, oldest first. n <= 0 returns all of them.
func (s *Store) RecentAlerts(n int) []models.Alert { return recent(s.alerts, n) }

func (s *Store) ActionLog() []models.ActionLogEntry { return s.actionLog.Snapshot() }

func recent[T any](r *utils.Ring[T], n int) []T {
	if n <= 0 {
		return r.Snapshot()
	}
	return r.Last(n)
}
