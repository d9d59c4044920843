package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/miradorstack/mirador-netforecast/internal/config"
	"github.com/miradorstack/mirador-netforecast/internal/models"
	"github.com/miradorstack/mirador-netforecast/internal/telemetry"
	"github.com/miradorstack/mirador-netforecast/internal/utils"
)

func runRoot(t *testing.T, args ...string) string {
	t.Helper()
	t.Setenv("NETFORECAST_CONFIG", "")
	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("execute %v: %v", args, err)
	}
	return out.String()
}

func TestSimulateCSV(t *testing.T) {
	out := runRoot(t, "simulate", "--points", "12", "--format", "csv")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 13 {
		t.Fatalf("expected header plus 12 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "timestamp,link_utilization_percent") {
		t.Fatalf("unexpected header %q", lines[0])
	}
}

func TestSimulateJSONSingleRegime(t *testing.T) {
	out := runRoot(t, "simulate", "--points", "20", "--regime", "overload", "--seed", "3")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 20 {
		t.Fatalf("expected 20 samples, got %d", len(lines))
	}
	for _, line := range lines {
		var s models.TelemetrySample
		if err := json.Unmarshal([]byte(line), &s); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		if s.LinkUtilizationPercent < 70 {
			t.Fatalf("overload utilization below floor: %v", s.LinkUtilizationPercent)
		}
	}
}

func TestSimulateRejectsUnknownInputs(t *testing.T) {
	t.Setenv("NETFORECAST_CONFIG", "")
	for _, args := range [][]string{
		{"simulate", "--regime", "meteor"},
		{"simulate", "--format", "xml"},
	} {
		root := newRootCommand()
		root.SetOut(&bytes.Buffer{})
		root.SetErr(&bytes.Buffer{})
		root.SetArgs(args)
		if err := root.Execute(); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}

func TestRootLeavesErrorReportingToMain(t *testing.T) {
	t.Setenv("NETFORECAST_CONFIG", "")
	var stderr bytes.Buffer
	root := newRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&stderr)
	root.SetArgs([]string{"simulate", "--format", "xml"})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected error for unknown format")
	}
	if stderr.Len() != 0 {
		t.Fatalf("expected cobra to stay silent, got %q", stderr.String())
	}
}

func TestTrainWrapsFailures(t *testing.T) {
	t.Setenv("NETFORECAST_CONFIG", "")
	t.Setenv("NETFORECAST_ARTIFACT_BACKEND", "memory")
	root := newRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"train", "--points", "5"})

	err := root.Execute()
	var appErr *utils.AppError
	if !errors.As(err, &appErr) || appErr.Op != "train" || appErr.Msg != "train forecaster" {
		t.Fatalf("expected train AppError, got %v", err)
	}
	if !errors.Is(err, utils.ErrTrainingDataEmpty) {
		t.Fatalf("expected ErrTrainingDataEmpty in chain, got %v", err)
	}
}

func TestServeWrapsBootstrapFailure(t *testing.T) {
	cfg := config.Default()
	cfg.Artifact.Backend = "memory"
	cfg.Tracing.Exporter = "none"
	cfg.Logging.Level = "error"
	cfg.Forecaster.TrainingPoints = 5

	err := serve(context.Background(), &cfg)
	var appErr *utils.AppError
	if !errors.As(err, &appErr) || appErr.Op != "serve" || appErr.Msg != "bootstrap forecaster" {
		t.Fatalf("expected serve AppError, got %v", err)
	}
	if !errors.Is(err, utils.ErrTrainingDataEmpty) {
		t.Fatalf("expected ErrTrainingDataEmpty in chain, got %v", err)
	}
}

func TestScheduleFactory(t *testing.T) {
	factory, err := scheduleFactory(config.SamplerConfig{PhaseTicks: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	phases := factory()
	if len(phases) != len(telemetry.Regimes) || phases[0].Ticks != 4 {
		t.Fatalf("unexpected default schedule %+v", phases)
	}

	factory, err = scheduleFactory(config.SamplerConfig{Schedule: []config.PhaseConfig{{Regime: "ddos", Ticks: 3}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first := factory()
	first[0].Ticks = 99
	if again := factory(); again[0].Regime != telemetry.Overload || again[0].Ticks != 3 {
		t.Fatalf("schedule must be rebuilt unchanged, got %+v", again)
	}

	if _, err := scheduleFactory(config.SamplerConfig{Schedule: []config.PhaseConfig{{Regime: "meteor", Ticks: 1}}}); err == nil {
		t.Fatalf("expected error for unknown regime")
	}
}
