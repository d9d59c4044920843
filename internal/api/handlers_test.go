package api

import (
	"testing"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-netforecast/internal/models"
)

func TestToProtoStructPrediction(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	payload := models.PredictionPayload{
		Ready:     true,
		Timestamp: ts,
		Predicted: []models.Point{{Timestamp: ts, Value: 82.5}},
	}

	out, err := ToProtoStruct(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.GetFields()["timestamp"].GetStringValue(); got != "2024-05-01T12:00:00Z" {
		t.Fatalf("unexpected timestamp %q", got)
	}
	points := out.GetFields()["predicted"].GetListValue().GetValues()
	if len(points) != 1 || points[0].GetStructValue().GetFields()["value"].GetNumberValue() != 82.5 {
		t.Fatalf("unexpected predicted points: %v", points)
	}
}

func TestToProtoStructRejectsNonObject(t *testing.T) {
	if _, err := ToProtoStruct([]int{1, 2}); err == nil {
		t.Fatalf("expected error for non-object snapshot")
	}
}

func TestNewListNeverNull(t *testing.T) {
	out, err := ToProtoStruct(NewList[models.Alert](nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.GetFields()["items"].GetListValue() == nil {
		t.Fatalf("expected empty list, got %v", out.GetFields()["items"])
	}
}

func TestTail(t *testing.T) {
	items := []int{1, 2, 3, 4}
	if got := Tail(items, 2); len(got) != 2 || got[0] != 3 {
		t.Fatalf("unexpected tail %v", got)
	}
	if got := Tail(items, 0); len(got) != 4 {
		t.Fatalf("zero limit should return everything, got %v", got)
	}
	if got := Tail(items, 10); len(got) != 4 {
		t.Fatalf("oversized limit should return everything, got %v", got)
	}
}

func TestParseLimit(t *testing.T) {
	if n, err := ParseLimit(""); err != nil || n != 0 {
		t.Fatalf("empty limit: %d %v", n, err)
	}
	if n, err := ParseLimit("25"); err != nil || n != 25 {
		t.Fatalf("limit 25: %d %v", n, err)
	}
	if n, err := ParseLimit("5000"); err != nil || n != MaxListLimit {
		t.Fatalf("expected cap at %d, got %d %v", MaxListLimit, n, err)
	}
	for _, raw := range []string{"-1", "abc", "1.5"} {
		if _, err := ParseLimit(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestLimitFromProto(t *testing.T) {
	if n, err := LimitFromProto(nil); err != nil || n != 0 {
		t.Fatalf("nil request: %d %v", n, err)
	}
	req, _ := structpb.NewStruct(map[string]any{"limit": 7})
	if n, err := LimitFromProto(req); err != nil || n != 7 {
		t.Fatalf("limit 7: %d %v", n, err)
	}
	req, _ = structpb.NewStruct(map[string]any{"limit": true})
	if _, err := LimitFromProto(req); err == nil {
		t.Fatalf("expected error for boolean limit")
	}
}
