package telemetry

import (
	"fmt"
	"math"
	"strings"
)

// Regime is a named synthetic traffic pattern. The set is closed; every value maps to
// exactly one generator.
type Regime int

const (
	Normal Regime = iota
	Growth
	Microburst
	Overload
	Degradation
)

// Regimes lists every regime in default schedule order.
var Regimes = []Regime{Normal, Growth, Microburst, Overload, Degradation}

var regimeNames = [...]string{
	Normal:      "normal",
	Growth:      "growth",
	Microburst:  "microburst",
	Overload:    "overload",
	Degradation: "degradation",
}

func (r Regime) String() string {
	if r < 0 || int(r) >= len(regimeNames) {
		return fmt.Sprintf("regime(%d)", int(r))
	}
	return regimeNames[r]
}

// ParseRegime resolves a config name. "ddos" and "attack" are aliases of overload.
func ParseRegime(name string) (Regime, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "normal":
		return Normal, nil
	case "growth":
		return Growth, nil
	case "microburst":
		return Microburst, nil
	case "overload", "ddos", "attack":
		return Overload, nil
	case "degradation":
		return Degradation, nil
	}
	return Normal, fmt.Errorf("unknown regime %q", name)
}

// Noise returns a uniform sample in [-scale, scale].
type Noise func(scale float64) float64

type reading struct {
	util, latency, loss, queue, flows float64
}

type generator func(t int, noise Noise) reading

var generators = [...]generator{
	Normal:      normalRegime,
	Growth:      growthRegime,
	Microburst:  microburstRegime,
	Overload:    overloadRegime,
	Degradation: degradationRegime,
}

func (r Regime) generate(t int, noise Noise) reading {
	if r < 0 || int(r) >= len(generators) {
		return normalRegime(t, noise)
	}
	return generators[r](t, noise)
}

const (
	microburstPeriod = 18
	microburstWidth  = 3
)

func normalRegime(t int, noise Noise) reading {
	x := float64(t)
	return reading{
		util:    clamp(35+5*math.Sin(x/18)+noise(2), 10, 60),
		latency: clamp(6+1.2*math.Sin(x/14)+noise(0.5), 2, 15),
		loss:    clamp(0.4+noise(0.1), 0, 1.2),
		queue:   clamp(20+4*math.Sin(x/22)+noise(2), 5, 60),
		flows:   math.Trunc(clamp(80+10*math.Sin(x/20)+noise(3), 40, 140)),
	}
}

func growthRegime(t int, noise Noise) reading {
	x := float64(t)
	return reading{
		util:    clamp(30+x/6+8*math.Sin(x/16)+noise(3), 25, 95),
		latency: clamp(7+x/40+noise(0.8), 3, 40),
		loss:    clamp(0.6+x/80+noise(0.15), 0.1, 2.5),
		queue:   clamp(18+x/3+noise(3), 10, 120),
		flows:   math.Trunc(clamp(70+x/3+noise(4), 60, 220)),
	}
}

func microburstRegime(t int, noise Noise) reading {
	burst := 0.0
	if t%microburstPeriod < microburstWidth {
		burst = 50
	}
	return reading{
		util:    clamp(35+burst+noise(5), 20, 100),
		latency: clamp(8+burst*0.15+noise(1.2), 4, 60),
		loss:    clamp(0.8+burst*0.02+noise(0.2), 0.1, 4.0),
		queue:   clamp(25+burst*0.5+noise(4), 10, 200),
		flows:   math.Trunc(clamp(85+burst*0.3+noise(5), 70, 280)),
	}
}

func overloadRegime(t int, noise Noise) reading {
	x := float64(t)
	return reading{
		util:    clamp(85+8*math.Sin(x/8)+noise(4), 70, 100),
		latency: clamp(25+5*math.Sin(x/10)+noise(2.0), 10, 120),
		loss:    clamp(2.5+noise(0.4), 1.0, 8.0),
		queue:   clamp(140+20*math.Sin(x/12)+noise(8), 80, 280),
		flows:   math.Trunc(clamp(260+30*math.Sin(x/9)+noise(10), 180, 420)),
	}
}

func degradationRegime(t int, noise Noise) reading {
	x := float64(t)
	return reading{
		util:    clamp(40+6*math.Sin(x/20)+noise(2.5), 25, 70),
		latency: clamp(18+6*math.Sin(x/16)+noise(1.5), 10, 50),
		loss:    clamp(0.8+noise(0.2), 0.2, 2.0),
		queue:   clamp(30+6*math.Sin(x/18)+noise(3), 12, 90),
		flows:   math.Trunc(clamp(90+10*math.Sin(x/19)+noise(4), 60, 160)),
	}
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
