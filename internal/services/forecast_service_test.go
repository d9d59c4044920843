package services

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-netforecast/internal/api"
	"github.com/miradorstack/mirador-netforecast/internal/config"
	forecastv1 "github.com/miradorstack/mirador-netforecast/internal/grpc/forecastv1"
	"github.com/miradorstack/mirador-netforecast/internal/history"
	"github.com/miradorstack/mirador-netforecast/internal/models"
)

type snapshotStub struct {
	store   *history.Store
	pending []models.PendingAction
	metrics models.ModelMetrics
	samples []models.TelemetrySample
}

func (s *snapshotStub) History() *history.Store { return s.store }
func (s *snapshotStub) PendingActions() []models.PendingAction { return s.pending }
func (s *snapshotStub) ModelMetrics() models.ModelMetrics { return s.metrics }
func (s *snapshotStub) RecentTelemetry(n int) []models.TelemetrySample {
	return api.Tail(s.samples, n)
}

func newSnapshotStub() *snapshotStub {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := history.NewStore(10, 10, 10)
	store.AppendPrediction(models.PredictionPayload{
		Ready:                 true,
		Timestamp:             base,
		Predicted:             []models.Point{{Timestamp: base.Add(2 * time.Second), Value: 91}},
		CongestionProbability: 0.91,
		Confidence:            0.95,
	})
	store.AppendAlerts(
		models.Alert{Type: models.AlertSuddenSpike, Severity: models.SeverityMedium, Timestamp: base},
		models.Alert{Type: models.AlertPredictedCongestion, Severity: models.SeverityHigh, Timestamp: base},
	)
	store.AppendLog(models.ActionLogEntry{Kind: models.LogAction, AlertType: models.AlertSuddenSpike, Timestamp: base})

	var samples []models.TelemetrySample
	for i := 0; i < 100; i++ {
		samples = append(samples, models.TelemetrySample{Timestamp: base.Add(time.Duration(i) * time.Second), LinkUtilizationPercent: float64(i % 100)})
	}
	return &snapshotStub{
		store:   store,
		pending: []models.PendingAction{{ID: "a-1", AlertType: models.AlertSuddenSpike, State: models.ActionActive}},
		metrics: models.ModelMetrics{Ready: true, RMSE: 5},
		samples: samples,
	}
}

func dialBufconn(t *testing.T, svc forecastv1.ForecastServer) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	server := api.NewServerOnListener(config.ServerConfig{GracefulTimeout: time.Second}, lis, svc)
	go func() { _ = server.Start() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		server.Shutdown(ctx)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial bufconn: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func limitRequest(t *testing.T, limit any) *structpb.Struct {
	t.Helper()
	req, err := structpb.NewStruct(map[string]any{"limit": limit})
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	return req
}

func TestForecastServiceOverGRPC(t *testing.T) {
	stub := newSnapshotStub()
	conn := dialBufconn(t, NewForecastService(nil, stub))
	client := forecastv1.NewForecastClient(conn)
	ctx := context.Background()

	pred, err := client.LatestPrediction(ctx, &emptypb.Empty{})
	if err != nil {
		t.Fatalf("LatestPrediction: %v", err)
	}
	if !pred.GetFields()["ready"].GetBoolValue() {
		t.Fatalf("expected ready prediction, got %v", pred)
	}
	if got := pred.GetFields()["congestion_probability"].GetNumberValue(); got != 0.91 {
		t.Fatalf("unexpected probability %v", got)
	}

	alerts, err := client.Alerts(ctx, limitRequest(t, 1))
	if err != nil {
		t.Fatalf("Alerts: %v", err)
	}
	items := alerts.GetFields()["items"].GetListValue().GetValues()
	if len(items) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(items))
	}
	if got := items[0].GetStructValue().GetFields()["type"].GetStringValue(); got != string(models.AlertPredictedCongestion) {
		t.Fatalf("expected newest alert, got %s", got)
	}

	telemetry, err := client.RecentTelemetry(ctx, &structpb.Struct{})
	if err != nil {
		t.Fatalf("RecentTelemetry: %v", err)
	}
	if got := telemetry.GetFields()["count"].GetNumberValue(); got != api.DefaultTelemetryLimit {
		t.Fatalf("expected default telemetry limit, got %v", got)
	}

	pending, err := client.PendingActions(ctx, &emptypb.Empty{})
	if err != nil {
		t.Fatalf("PendingActions: %v", err)
	}
	if got := pending.GetFields()["count"].GetNumberValue(); got != 1 {
		t.Fatalf("expected 1 pending action, got %v", got)
	}

	metrics, err := client.ModelMetrics(ctx, &emptypb.Empty{})
	if err != nil {
		t.Fatalf("ModelMetrics: %v", err)
	}
	if got := metrics.GetFields()["rmse"].GetNumberValue(); got != 5 {
		t.Fatalf("unexpected rmse %v", got)
	}

	log, err := client.ActionLog(ctx, &structpb.Struct{})
	if err != nil {
		t.Fatalf("ActionLog: %v", err)
	}
	if got := log.GetFields()["count"].GetNumberValue(); got != 1 {
		t.Fatalf("expected 1 log entry, got %v", got)
	}

	health, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: forecastv1.ServiceName})
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	if health.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected SERVING, got %v", health.GetStatus())
	}
}

func TestForecastServiceRejectsBadLimit(t *testing.T) {
	svc := NewForecastService(nil, newSnapshotStub())

	for _, limit := range []any{-1, 2.5, "ten"} {
		_, err := svc.Alerts(context.Background(), limitRequest(t, limit))
		if status.Code(err) != codes.InvalidArgument {
			t.Fatalf("limit %v: expected invalid argument, got %v", limit, err)
		}
	}
}

func TestForecastServiceWithoutPipeline(t *testing.T) {
	svc := NewForecastService(nil, nil)

	_, err := svc.LatestPrediction(context.Background(), &emptypb.Empty{})
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected failed precondition, got %v", err)
	}
}

func TestForecastServiceNotReadyPrediction(t *testing.T) {
	stub := newSnapshotStub()
	stub.store = history.NewStore(0, 0, 0)
	svc := NewForecastService(nil, stub)

	pred, err := svc.LatestPrediction(context.Background(), &emptypb.Empty{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pred.GetFields()["ready"].GetBoolValue() {
		t.Fatalf("expected ready=false before the first forecast")
	}
	if pred.GetFields()["predicted"].GetListValue() == nil {
		t.Fatalf("expected an empty predicted list, got %v", pred.GetFields()["predicted"])
	}
}

type latencyLogCounter struct {
	mu    sync.Mutex
	lines int
}

func (c *latencyLogCounter) Enabled(context.Context, slog.Level) bool { return true }
func (c *latencyLogCounter) WithAttrs([]slog.Attr) slog.Handler { return c }
func (c *latencyLogCounter) WithGroup(string) slog.Handler { return c }
func (c *latencyLogCounter) Handle(_ context.Context, r slog.Record) error {
	if r.Message == "forecast rpc latency" {
		c.mu.Lock()
		c.lines++
		c.mu.Unlock()
	}
	return nil
}

func TestForecastServiceLatencyLogSurvivesFullTracker(t *testing.T) {
	counter := &latencyLogCounter{}
	svc := NewForecastService(slog.New(counter), newSnapshotStub())

	const calls = 1100
	for i := 0; i < calls; i++ {
		if _, err := svc.ModelMetrics(context.Background(), &emptypb.Empty{}); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if want := calls / latencyLogEvery; counter.lines != want {
		t.Fatalf("expected %d latency log lines, got %d", want, counter.lines)
	}
	if svc.LatencyP95() <= 0 {
		t.Fatalf("expected a recorded p95 latency")
	}
}
