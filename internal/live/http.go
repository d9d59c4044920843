package live

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/miradorstack/mirador-netforecast/internal/models"
	"github.com/miradorstack/mirador-netforecast/internal/utils"
)

// HTTPSource polls a controller stats endpoint that reports the latest aggregate per
// controller variant:
//
//	{"adaptive": {"throughput": 4.4, "latency": 3.1, "packet_loss": 0.2, "flows": 3}, "traditional": {...}, "timestamp": "..."}
type HTTPSource struct {
	baseURL    string
	statsPath  string
	controller string
	httpClient *http.Client
}

// NewHTTPSource constructs a client targeting the controller stats endpoint.
func NewHTTPSource(baseURL, statsPath, controller string, timeout time.Duration) *HTTPSource {
	if statsPath == "" {
		statsPath = "/api/metrics"
	}
	if timeout <= 0 {
		timeout = time.Second
	}
	return &HTTPSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		statsPath:  statsPath,
		controller: controller,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type controllerStats struct {
	Throughput *float64 `json:"throughput"`
	Latency    float64  `json:"latency"`
	PacketLoss float64  `json:"packet_loss"`
	Flows      float64  `json:"flows"`
}

// Fetch retrieves the latest summary for the configured controller.
func (c *HTTPSource) Fetch(ctx context.Context) (*models.LiveMetrics, error) {
	if c == nil {
		return nil, fmt.Errorf("controller stats client not initialised")
	}
	if c.baseURL == "" {
		return nil, fmt.Errorf("controller stats base URL not configured")
	}

	var response struct {
		Adaptive    *controllerStats `json:"adaptive"`
		Traditional *controllerStats `json:"traditional"`
		Timestamp   string           `json:"timestamp"`
	}
	if err := c.getJSON(ctx, c.resolvePath(c.statsPath), &response); err != nil {
		return nil, fmt.Errorf("controller stats request failed: %w", err)
	}

	stats := response.Adaptive
	if c.controller == ControllerTraditional {
		stats = response.Traditional
	}
	if stats == nil || stats.Throughput == nil {
		return nil, fmt.Errorf("controller stats returned no %s metrics", c.controller)
	}

	observed := time.Now()
	if ts, err := utils.ParseRFC3339(response.Timestamp); err == nil {
		observed = ts
	}
	return &models.LiveMetrics{
		Controller:        c.controller,
		Throughput:        *stats.Throughput,
		LatencyMs:         stats.Latency,
		PacketLossPercent: stats.PacketLoss,
		FlowCount:         stats.Flows,
		ObservedAt:        observed,
	}, nil
}

func (c *HTTPSource) resolvePath(p string) string {
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

func (c *HTTPSource) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("controller returned %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
