package telemetry

import (
	"math/rand"
	"time"

	"github.com/miradorstack/mirador-netforecast/internal/models"
)

// Phase runs one regime for a fixed number of ticks.
type Phase struct {
	Regime Regime
	Ticks  int
}

// DefaultSchedule runs every regime for phaseTicks ticks in declaration order.
func DefaultSchedule(phaseTicks int) []Phase {
	if phaseTicks <= 0 {
		phaseTicks = 1
	}
	phases := make([]Phase, 0, len(Regimes))
	for _, r := range Regimes {
		phases = append(phases, Phase{Regime: r, Ticks: phaseTicks})
	}
	return phases
}

// Sampler emits one synthetic sample per tick, walking a regime schedule. When the schedule
// is exhausted it is rebuilt from the factory and the tick counter restarts at zero.
// A Sampler is owned by a single goroutine.
type Sampler struct {
	rng      *rand.Rand
	factory  func() []Phase
	phases   []Phase
	phase    int
	used     int
	t        int
	next     time.Time
	interval time.Duration
}

// NewSampler builds a sampler whose first sample is stamped start. A nil factory uses
// DefaultSchedule(60).
func NewSampler(start time.Time, interval time.Duration, seed int64, factory func() []Phase) *Sampler {
	if factory == nil {
		factory = func() []Phase { return DefaultSchedule(60) }
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	s := &Sampler{
		rng:      rand.New(rand.NewSource(seed)),
		factory:  factory,
		next:     start,
		interval: interval,
	}
	s.reset()
	return s
}

// Next generates the next sample and advances the schedule by one tick.
func (s *Sampler) Next() models.TelemetrySample {
	regime := s.phases[s.phase].Regime
	sample := toSample(s.next, regime.generate(s.t, s.noise))

	s.t++
	s.used++
	s.next = s.next.Add(s.interval)
	if s.used >= s.phases[s.phase].Ticks {
		s.phase++
		s.used = 0
		if s.phase >= len(s.phases) {
			s.reset()
		}
	}
	return sample
}

// Current returns the regime that the next sample will be drawn from.
func (s *Sampler) Current() Regime {
	return s.phases[s.phase].Regime
}

func (s *Sampler) reset() {
	phases := make([]Phase, 0)
	for _, p := range s.factory() {
		if p.Ticks > 0 {
			phases = append(phases, p)
		}
	}
	if len(phases) == 0 {
		phases = []Phase{{Regime: Normal, Ticks: 1}}
	}
	s.phases = phases
	s.phase = 0
	s.used = 0
	s.t = 0
}

func (s *Sampler) noise(scale float64) float64 {
	return (s.rng.Float64()*2 - 1) * scale
}

func toSample(ts time.Time, r reading) models.TelemetrySample {
	return models.TelemetrySample{
		Timestamp:              ts,
		LinkUtilizationPercent: r.util,
		LatencyMs:              r.latency,
		PacketLossPercent:      r.loss,
		QueueDepth:             r.queue,
		FlowCount:              r.flows,
	}
}
