package services

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-netforecast/internal/api"
	forecastv1 "github.com/miradorstack/mirador-netforecast/internal/grpc/forecastv1"
	"github.com/miradorstack/mirador-netforecast/internal/utils"
)

// latencyLogEvery is how many served calls pass between p95 latency log lines.
const latencyLogEvery = 20

// ForecastService implements the gRPC Forecast service over pipeline snapshots.
type ForecastService struct {
	forecastv1.UnimplementedForecastServer

	logger    *slog.Logger
	snapshots api.Snapshots
	latencies *utils.LatencyTracker
	calls     atomic.Int64
}

// NewForecastService constructs the snapshot service facade.
func NewForecastService(logger *slog.Logger, snapshots api.Snapshots) *ForecastService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ForecastService{
		logger:    logger,
		snapshots: snapshots,
		latencies: utils.NewLatencyTracker(1024),
	}
}

// LatestPrediction returns the newest forecast payload. Before the first forecast the
// payload carries ready=false.
func (s *ForecastService) LatestPrediction(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.serve("LatestPrediction", func() (any, error) {
		return api.LatestPrediction(s.snapshots), nil
	})
}

// ModelMetrics returns validation quality of the served forecaster.
func (s *ForecastService) ModelMetrics(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.serve("ModelMetrics", func() (any, error) {
		return s.snapshots.ModelMetrics(), nil
	})
}

// Alerts returns recent alerts, oldest first, optionally limited.
func (s *ForecastService) Alerts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.serve("Alerts", func() (any, error) {
		limit, err := api.LimitFromProto(req)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return api.NewList(s.snapshots.History().RecentAlerts(limit)), nil
	})
}

// ActionLog returns recent action, rollback and expiry entries, oldest first.
func (s *ForecastService) ActionLog(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.serve("ActionLog", func() (any, error) {
		limit, err := api.LimitFromProto(req)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return api.NewList(api.Tail(s.snapshots.History().ActionLog(), limit)), nil
	})
}

// PendingActions returns the remediations still awaiting rollback.
func (s *ForecastService) PendingActions(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.serve("PendingActions", func() (any, error) {
		return api.NewList(s.snapshots.PendingActions()), nil
	})
}

// RecentTelemetry returns the newest buffered samples.
func (s *ForecastService) RecentTelemetry(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.serve("RecentTelemetry", func() (any, error) {
		limit, err := api.LimitFromProto(req)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return api.NewList(api.RecentTelemetry(s.snapshots, limit)), nil
	})
}

// LatencyP95 returns the 95th percentile of recent call latencies.
func (s *ForecastService) LatencyP95() time.Duration {
	return s.latencies.Percentile(95)
}

func (s *ForecastService) serve(method string, snapshot func() (any, error)) (*structpb.Struct, error) {
	if s.snapshots == nil {
		return nil, status.Error(codes.FailedPrecondition, "pipeline not configured")
	}
	s.logger.Debug("forecast rpc", slog.String("method", method))

	start := time.Now()
	v, err := snapshot()
	if err != nil {
		return nil, err
	}
	out, err := api.ToProtoStruct(v)
	if err != nil {
		s.logger.Error("snapshot conversion failed", slog.String("method", method), slog.Any("error", err))
		return nil, status.Errorf(codes.Internal, "convert %s: %v", method, err)
	}

	s.latencies.Observe(time.Since(start))
	if n := s.calls.Add(1); n%latencyLogEvery == 0 {
		s.logger.Debug("forecast rpc latency",
			slog.Int64("calls", n),
			slog.Int("window", s.latencies.Count()),
			slog.Duration("p95", s.latencies.Percentile(95)),
		)
	}
	return out, nil
}
