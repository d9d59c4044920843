package telemetry

import (
	"math"

	"github.com/miradorstack/mirador-netforecast/internal/models"
	"github.com/miradorstack/mirador-netforecast/internal/utils"
)

// Live metrics are mapped onto the synthetic feature scales before blending.
const (
	utilizationPerMbps = 20.0 // 5 Mbps saturates a link
	queueBase          = 10.0
	queuePerFlow       = 15.0
	flowCountPerFlow   = 25.0
	minLatencyMs       = 0.5
)

// Blender folds live controller metrics into synthetic samples and appends the result to
// the shared telemetry buffer.
type Blender struct {
	weight float64
	buffer *utils.Ring[models.TelemetrySample]
}

// NewBlender creates a blender with live weight w, clamped to [0,1].
func NewBlender(w float64, buffer *utils.Ring[models.TelemetrySample]) *Blender {
	return &Blender{weight: clamp(finite(w), 0, 1), buffer: buffer}
}

// Weight returns the live share of the convex combination.
func (b *Blender) Weight() float64 { return b.weight }

// Blend combines synthetic with live as (1-w)*synthetic + w*live. A nil live summary
// yields the clamped synthetic sample.
func (b *Blender) Blend(synthetic models.TelemetrySample, live *models.LiveMetrics) models.TelemetrySample {
	util := finite(synthetic.LinkUtilizationPercent)
	latency := finite(synthetic.LatencyMs)
	loss := finite(synthetic.PacketLossPercent)
	queue := finite(synthetic.QueueDepth)
	flows := finite(synthetic.FlowCount)

	if live != nil && b.weight > 0 {
		w := b.weight
		liveFlows := finite(live.FlowCount)
		util = mix(util, finite(live.Throughput)*utilizationPerMbps, w)
		latency = mix(latency, finite(live.LatencyMs), w)
		loss = mix(loss, finite(live.PacketLossPercent), w)
		queue = mix(queue, queueBase+queuePerFlow*liveFlows, w)
		flows = mix(flows, flowCountPerFlow*liveFlows, w)
	}

	return models.TelemetrySample{
		Timestamp:              synthetic.Timestamp,
		LinkUtilizationPercent: clamp(util, 0, 100),
		LatencyMs:              math.Max(latency, minLatencyMs),
		PacketLossPercent:      math.Max(loss, 0),
		QueueDepth:             math.Max(queue, 0),
		FlowCount:              math.Max(math.Round(flows), 1),
	}
}

// Ingest blends and appends the sample to the buffer.
func (b *Blender) Ingest(synthetic models.TelemetrySample, live *models.LiveMetrics) models.TelemetrySample {
	sample := b.Blend(synthetic, live)
	if b.buffer != nil {
		b.buffer.Push(sample)
	}
	return sample
}

func mix(synthetic, live, w float64) float64 {
	return (1-w)*synthetic + w*live
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
