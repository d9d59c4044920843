package features

import (
	"errors"
	"testing"
	"time"

	"github.com/miradorstack/mirador-netforecast/internal/models"
	"github.com/miradorstack/mirador-netforecast/internal/utils"
)

func series(n int) []models.TelemetrySample {
	out := make([]models.TelemetrySample, n)
	for i := range out {
		out[i] = models.TelemetrySample{
			Timestamp:              time.Unix(int64(i), 0),
			LinkUtilizationPercent: float64(i),
			LatencyMs:              float64(i) + 0.5,
			FlowCount:              float64(100 + i),
		}
	}
	return out
}

func TestBuildCountAndAlignment(t *testing.T) {
	samples := series(30)
	windows := Build(samples, 20, 6)
	if len(windows) != 5 {
		t.Fatalf("expected 5 windows, got %d", len(windows))
	}
	for i, w := range windows {
		if len(w.Features) != 20 || len(w.Target) != 6 {
			t.Fatalf("window %d has shape %dx%d", i, len(w.Features), len(w.Target))
		}
		if w.Features[0][0] != float64(i) || w.Features[19][0] != float64(i+19) {
			t.Fatalf("window %d misaligned features", i)
		}
		if w.Features[0][4] != float64(100+i) {
			t.Fatalf("window %d flow feature out of order", i)
		}
		for k, v := range w.Target {
			if v != float64(i+20+k) {
				t.Fatalf("window %d target %d = %v", i, k, v)
			}
		}
	}
}

func TestBuildDegenerateInputs(t *testing.T) {
	if got := Build(series(25), 20, 6); len(got) != 0 {
		t.Fatalf("expected no windows when N < W+H, got %d", len(got))
	}
	if got := Build(series(26), 20, 6); len(got) != 1 {
		t.Fatalf("expected one window when N == W+H, got %d", len(got))
	}
	if got := Build(series(10), 0, 3); got != nil {
		t.Fatalf("expected nil for zero window")
	}
	if got := Build(series(10), 3, -1); got != nil {
		t.Fatalf("expected nil for negative horizon")
	}
	if got := Build(nil, 3, 1); got != nil {
		t.Fatalf("expected nil for empty input")
	}
}

func TestLatest(t *testing.T) {
	samples := series(8)
	window, err := Latest(samples, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(window) != 5 || window[0][0] != 3 || window[4][0] != 7 {
		t.Fatalf("unexpected latest window %v", window)
	}
	if _, err := Latest(samples, 9); !errors.Is(err, utils.ErrDataInsufficient) {
		t.Fatalf("expected ErrDataInsufficient, got %v", err)
	}
}

func TestSplit(t *testing.T) {
	train, val := Split(series(10), 0.8)
	if len(train) != 8 || len(val) != 2 {
		t.Fatalf("unexpected split %d/%d", len(train), len(val))
	}
	if val[0].LinkUtilizationPercent != 8 {
		t.Fatalf("split is not chronological")
	}
	train, val = Split(series(3), 0.1)
	if len(train) != 1 || len(val) != 2 {
		t.Fatalf("expected at least one training sample, got %d/%d", len(train), len(val))
	}
}
