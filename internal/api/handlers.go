package api

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-netforecast/internal/history"
	"github.com/miradorstack/mirador-netforecast/internal/models"
)

const (
	// DefaultTelemetryLimit is the number of samples returned when no limit is given.
	DefaultTelemetryLimit = 60
	// MaxListLimit caps any requested list length.
	MaxListLimit = 1000
)

// Snapshots is the read-only view of the running pipeline served over gRPC and HTTP.
type Snapshots interface {
	History() *history.Store
	PendingActions() []models.PendingAction
	ModelMetrics() models.ModelMetrics
	RecentTelemetry(n int) []models.TelemetrySample
}

// List is the envelope used for every list response.
type List[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

// NewList wraps items, never producing a null items field.
func NewList[T any](items []T) List[T] {
	if items == nil {
		items = []T{}
	}
	return List[T]{Items: items, Count: len(items)}
}

// Tail returns the newest n items of an oldest-first slice. n <= 0 returns everything.
func Tail[T any](items []T, n int) []T {
	if n <= 0 || n >= len(items) {
		return items
	}
	return items[len(items)-n:]
}

// ParseLimit parses a "limit" query value. An empty value yields zero (no limit).
func ParseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("limit must be an integer: %q", raw)
	}
	return checkLimit(n)
}

// LimitFromProto reads the optional numeric "limit" field of a list request.
func LimitFromProto(req *structpb.Struct) (int, error) {
	if req == nil {
		return 0, nil
	}
	v, ok := req.GetFields()["limit"]
	if !ok {
		return 0, nil
	}
	if _, isNum := v.GetKind().(*structpb.Value_NumberValue); !isNum {
		return 0, fmt.Errorf("limit must be a number")
	}
	f := v.GetNumberValue()
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("limit must be an integer")
	}
	return checkLimit(int(f))
}

func checkLimit(n int) (int, error) {
	if n < 0 {
		return 0, fmt.Errorf("limit must not be negative")
	}
	if n > MaxListLimit {
		n = MaxListLimit
	}
	return n, nil
}

// ToProtoStruct maps any JSON-serialisable snapshot onto a google.protobuf.Struct.
// Field names follow the JSON tags of the model types.
func ToProtoStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("snapshot is not an object: %w", err)
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("convert snapshot: %w", err)
	}
	return out, nil
}

// LatestPrediction returns the most recent payload, or a not-ready payload before the first forecast.
func LatestPrediction(s Snapshots) models.PredictionPayload {
	return s.History().LatestPrediction()
}

// RecentTelemetry applies the default telemetry limit.
func RecentTelemetry(s Snapshots, limit int) []models.TelemetrySample {
	if limit <= 0 {
		limit = DefaultTelemetryLimit
	}
	return s.RecentTelemetry(limit)
}
