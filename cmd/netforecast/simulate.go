package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/miradorstack/mirador-netforecast/internal/models"
	"github.com/miradorstack/mirador-netforecast/internal/telemetry"
	"github.com/miradorstack/mirador-netforecast/internal/utils"
)

type simulateFlags struct {
	points int
	format string
	regime string
	seed   int64
}

func newSimulateCommand(load configLoader) *cobra.Command {
	var flags simulateFlags

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Write a synthetic telemetry series to stdout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			logger := utils.NewLoggerTo(os.Stderr, cfg.Logging.Level, cfg.Logging.JSON)

			var schedule []telemetry.Phase
			if flags.regime != "" {
				regime, err := telemetry.ParseRegime(flags.regime)
				if err != nil {
					return err
				}
				schedule = []telemetry.Phase{{Regime: regime, Ticks: flags.points}}
			}
			seed := flags.seed
			if !cmd.Flags().Changed("seed") {
				seed = cfg.Sampler.Seed
			}

			interval := cfg.Pipeline.Interval
			start := time.Now().Add(-time.Duration(flags.points) * interval)
			series := telemetry.GenerateSeries(flags.points, start, interval, schedule, seed)
			logger.Info("synthetic series generated",
				slog.Int("points", len(series)),
				slog.String("format", flags.format),
				slog.Int64("seed", seed),
			)
			return writeSeries(cmd.OutOrStdout(), flags.format, series)
		},
	}
	cmd.Flags().IntVar(&flags.points, "points", 500, "Number of samples to generate")
	cmd.Flags().StringVar(&flags.format, "format", "json", "Output format (json, csv)")
	cmd.Flags().StringVar(&flags.regime, "regime", "", "Run a single regime instead of the five-phase schedule")
	cmd.Flags().Int64Var(&flags.seed, "seed", 0, "Noise seed (defaults to sampler.seed)")
	return cmd
}

// writeSeries emits one JSON object per line, or CSV with a header row.
func writeSeries(w io.Writer, format string, series []models.TelemetrySample) error {
	switch strings.ToLower(format) {
	case "json", "jsonl":
		enc := json.NewEncoder(w)
		for _, s := range series {
			if err := enc.Encode(s); err != nil {
				return err
			}
		}
		return nil
	case "csv":
		cw := csv.NewWriter(w)
		header := append([]string{"timestamp"}, models.FeatureNames[:]...)
		if err := cw.Write(header); err != nil {
			return err
		}
		for _, s := range series {
			row := []string{s.Timestamp.UTC().Format(time.RFC3339)}
			for _, v := range s.Features() {
				row = append(row, strconv.FormatFloat(v, 'f', 4, 64))
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
