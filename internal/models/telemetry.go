package models

import "time"

// FeatureCount is the number of numeric features carried by a TelemetrySample.
const FeatureCount = 5

// FeatureNames lists model input features in vector order.
var FeatureNames = [FeatureCount]string{
	"link_utilization_percent",
	"latency_ms",
	"packet_loss_percent",
	"queue_depth",
	"flow_count",
}

// TelemetrySample is one blended network-health observation. Samples are never mutated
// once appended to the telemetry buffer.
type TelemetrySample struct {
	Timestamp              time.Time `json:"timestamp"`
	LinkUtilizationPercent float64   `json:"link_utilization_percent"`
	LatencyMs              float64   `json:"latency_ms"`
	PacketLossPercent      float64   `json:"packet_loss_percent"`
	QueueDepth             float64   `json:"queue_depth"`
	FlowCount              float64   `json:"flow_count"`
}

// Features returns the sample as a model input vector.
func (s TelemetrySample) Features() []float64 {
	return []float64{
		s.LinkUtilizationPercent,
		s.LatencyMs,
		s.PacketLossPercent,
		s.QueueDepth,
		s.FlowCount,
	}
}

// LiveMetrics is the aggregate summary reported by a controller for one tick.
type LiveMetrics struct {
	Controller        string    `json:"controller"`
	Throughput        float64   `json:"throughput"`
	LatencyMs         float64   `json:"latency"`
	PacketLossPercent float64   `json:"packet_loss"`
	FlowCount         float64   `json:"flow_count"`
	ObservedAt        time.Time `json:"observed_at"`
}
