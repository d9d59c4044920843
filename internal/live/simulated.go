package live

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/miradorstack/mirador-netforecast/internal/models"
)

type flowProfile struct {
	throughput [2]float64
	latency    [2]float64
	loss       [2]float64
}

var profiles = map[string]flowProfile{
	ControllerAdaptive: {
		throughput: [2]float64{4.0, 5.0},
		latency:    [2]float64{1, 8},
		loss:       [2]float64{0, 0.5},
	},
	ControllerTraditional: {
		throughput: [2]float64{2.0, 3.5},
		latency:    [2]float64{5, 25},
		loss:       [2]float64{0.5, 2.0},
	},
}

// SimulatedSource reproduces a small controller testbed: each fetch draws 2 to 4 active flows
// and reports their mean throughput, latency and loss.
type SimulatedSource struct {
	controller string
	profile    flowProfile

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewSimulatedSource creates a simulated source. Unknown controllers use the adaptive profile.
func NewSimulatedSource(controller string, seed int64) *SimulatedSource {
	profile, ok := profiles[controller]
	if !ok {
		controller = ControllerAdaptive
		profile = profiles[ControllerAdaptive]
	}
	return &SimulatedSource{
		controller: controller,
		profile:    profile,
		rng:        rand.New(rand.NewSource(seed)),
		now:        time.Now,
	}
}

// Fetch draws one aggregate reading.
func (s *SimulatedSource) Fetch(ctx context.Context) (*models.LiveMetrics, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	flows := 2 + s.rng.Intn(3)
	var throughput, latency, loss float64
	for i := 0; i < flows; i++ {
		throughput += s.uniform(s.profile.throughput)
		latency += s.uniform(s.profile.latency)
		loss += s.uniform(s.profile.loss)
	}
	n := float64(flows)
	return &models.LiveMetrics{
		Controller:        s.controller,
		Throughput:        throughput / n,
		LatencyMs:         latency / n,
		PacketLossPercent: loss / n,
		FlowCount:         n,
		ObservedAt:        s.now(),
	}, nil
}

func (s *SimulatedSource) uniform(r [2]float64) float64 {
	return r[0] + s.rng.Float64()*(r[1]-r[0])
}
