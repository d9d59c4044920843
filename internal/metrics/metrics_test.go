package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second register should tolerate duplicates: %v", err)
	}
}

func TestObserveTickNormalisesOutcome(t *testing.T) {
	before := testutil.ToFloat64(ticksTotal.WithLabelValues(OutcomeError))
	ObserveTick(time.Millisecond, "exploded")
	if got := testutil.ToFloat64(ticksTotal.WithLabelValues(OutcomeError)); got != before+1 {
		t.Fatalf("expected unknown outcome counted as error, got %v", got)
	}
}

func TestGauges(t *testing.T) {
	ObserveForecast(91.5, 0.5)
	if got := testutil.ToFloat64(predictedPeak); got != 91.5 {
		t.Fatalf("unexpected peak %v", got)
	}
	SetPendingActions(3)
	if got := testutil.ToFloat64(pendingActions); got != 3 {
		t.Fatalf("unexpected pending gauge %v", got)
	}
	SetModelQuality(map[string]float64{"rmse": 4.2})
	if got := testutil.ToFloat64(modelQuality.WithLabelValues("rmse")); got != 4.2 {
		t.Fatalf("unexpected rmse gauge %v", got)
	}
	before := testutil.ToFloat64(rollbacksTotal.WithLabelValues(RollbackResolved))
	AddRollbacks(RollbackResolved, 2)
	AddRollbacks(RollbackResolved, 0)
	if got := testutil.ToFloat64(rollbacksTotal.WithLabelValues(RollbackResolved)); got != before+2 {
		t.Fatalf("unexpected rollback count %v", got)
	}
}
