// Command mock-controller serves controller stats for local runs with live.source=http.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/miradorstack/mirador-netforecast/internal/live"
	"github.com/miradorstack/mirador-netforecast/internal/models"
)

type controllerStats struct {
	Throughput float64 `json:"throughput"`
	Latency    float64 `json:"latency"`
	PacketLoss float64 `json:"packet_loss"`
	Flows      float64 `json:"flows"`
}

func main() {
	addr := flag.String("addr", ":9090", "listen address")
	seed := flag.Int64("seed", 1, "flow simulation seed")
	flag.Parse()

	sources := map[string]*live.SimulatedSource{
		live.ControllerAdaptive:    live.NewSimulatedSource(live.ControllerAdaptive, *seed),
		live.ControllerTraditional: live.NewSimulatedSource(live.ControllerTraditional, *seed+1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/metrics", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		payload := map[string]any{"timestamp": time.Now().UTC().Format(time.RFC3339Nano)}
		for name, src := range sources {
			m, err := src.Fetch(r.Context())
			if err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
			payload[name] = toStats(m)
		}
		writeJSON(w, payload)
	})

	logger := log.New(log.Writer(), "controller-mock ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:              *addr,
		Handler:           logRequests(logger, mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

func toStats(m *models.LiveMetrics) controllerStats {
	return controllerStats{
		Throughput: m.Throughput,
		Latency:    m.LatencyMs,
		PacketLoss: m.PacketLossPercent,
		Flows:      m.FlowCount,
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
