package telemetry

import (
	"math/rand"
	"time"

	"github.com/miradorstack/mirador-netforecast/internal/models"
)

// SeriesSchedule splits points into five equal phases, one per regime, with the remainder
// going to the last phase.
func SeriesSchedule(points int) []Phase {
	fifth := points / 5
	if fifth < 1 {
		fifth = 1
	}
	last := points - 4*fifth
	if last < 0 {
		last = 0
	}
	return []Phase{
		{Regime: Normal, Ticks: fifth},
		{Regime: Growth, Ticks: fifth},
		{Regime: Microburst, Ticks: fifth},
		{Regime: Overload, Ticks: fifth},
		{Regime: Degradation, Ticks: last},
	}
}

// GenerateSeries produces up to points samples walking schedule once, with a single tick
// counter shared across phases. A nil schedule uses SeriesSchedule(points). The result is
// shorter than points when the schedule runs out first.
func GenerateSeries(points int, start time.Time, interval time.Duration, schedule []Phase, seed int64) []models.TelemetrySample {
	if points <= 0 {
		return nil
	}
	if schedule == nil {
		schedule = SeriesSchedule(points)
	}
	rng := rand.New(rand.NewSource(seed))
	noise := func(scale float64) float64 { return (rng.Float64()*2 - 1) * scale }

	out := make([]models.TelemetrySample, 0, points)
	t := 0
	ts := start
	for _, phase := range schedule {
		for i := 0; i < phase.Ticks; i++ {
			out = append(out, toSample(ts, phase.Regime.generate(t, noise)))
			t++
			ts = ts.Add(interval)
			if len(out) >= points {
				return out
			}
		}
	}
	return out
}
