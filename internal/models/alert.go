package models

import "time"

// AlertType tags the rule that raised an alert.
type AlertType string

const (
	AlertPredictedCongestion AlertType = "predicted_congestion"
	AlertSuddenSpike         AlertType = "sudden_spike"
	AlertSustainedOverload   AlertType = "sustained_overload"
	AlertLatencyDegradation  AlertType = "latency_degradation"
)

// Severity captures impact levels.
type Severity string

const (
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Alert is an append-only notification raised by the action engine.
type Alert struct {
	Type      AlertType `json:"type"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	Command   string    `json:"command"`
	Timestamp time.Time `json:"timestamp"`
}

// ActionState is the lifecycle state of a pending remediation.
type ActionState string

const (
	ActionActive            ActionState = "ACTIVE"
	ActionExpiredResolved   ActionState = "EXPIRED_RESOLVED"
	ActionExpiredUnresolved ActionState = "EXPIRED_UNRESOLVED"
)

// PendingAction is a proposed remediation awaiting its rollback condition.
type PendingAction struct {
	ID              string      `json:"id"`
	AlertType       AlertType   `json:"alert_type"`
	CreatedAt       time.Time   `json:"created_at"`
	RollbackCommand string      `json:"rollback_command"`
	State           ActionState `json:"state"`
}

// LogKind classifies action log entries.
type LogKind string

const (
	LogAction   LogKind = "action"
	LogRollback LogKind = "rollback"
	LogExpired  LogKind = "expired"
)

// ActionLogEntry is one line of the combined action/rollback log.
type ActionLogEntry struct {
	Kind      LogKind   `json:"kind"`
	ActionID  string    `json:"action_id,omitempty"`
	AlertType AlertType `json:"alert_type"`
	Severity  Severity  `json:"severity,omitempty"`
	Command   string    `json:"command"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
