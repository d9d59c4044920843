package live

import (
	"context"
	"fmt"
	"strings"

	"github.com/miradorstack/mirador-netforecast/internal/config"
	"github.com/miradorstack/mirador-netforecast/internal/models"
)

// Controller variants reported by the stats endpoint.
const (
	ControllerAdaptive    = "adaptive"
	ControllerTraditional = "traditional"
)

// Source yields the current aggregate metrics for one controller variant.
type Source interface {
	Fetch(ctx context.Context) (*models.LiveMetrics, error)
}

// FromConfig builds the configured source. Source "none" returns a nil Source, which the
// pipeline treats as "no live metrics".
func FromConfig(cfg config.LiveConfig) (Source, error) {
	controller := strings.ToLower(strings.TrimSpace(cfg.Controller))
	if controller == "" {
		controller = ControllerAdaptive
	}
	switch strings.ToLower(cfg.Source) {
	case "", "simulated":
		return NewSimulatedSource(controller, cfg.Seed), nil
	case "http":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("live source http requires baseURL")
		}
		return NewHTTPSource(cfg.BaseURL, cfg.StatsPath, controller, cfg.Timeout), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown live source %q", cfg.Source)
	}
}
