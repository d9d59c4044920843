package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter exposes the pipeline snapshots as JSON plus the Prometheus scrape endpoint.
func NewRouter(snapshots Snapshots, gatherer prometheus.Gatherer, logger *slog.Logger) *mux.Router {
	if logger == nil {
		logger = slog.Default()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	h := &httpHandlers{snapshots: snapshots, logger: logger}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	// Registered on the root router so a method mismatch answers 405 rather than 404.
	router.HandleFunc("/api/prediction", h.prediction).Methods(http.MethodGet)
	router.HandleFunc("/api/predictions", h.predictions).Methods(http.MethodGet)
	router.HandleFunc("/api/model/metrics", h.modelMetrics).Methods(http.MethodGet)
	router.HandleFunc("/api/alerts", h.alerts).Methods(http.MethodGet)
	router.HandleFunc("/api/actions", h.actionLog).Methods(http.MethodGet)
	router.HandleFunc("/api/actions/pending", h.pendingActions).Methods(http.MethodGet)
	router.HandleFunc("/api/telemetry", h.telemetry).Methods(http.MethodGet)
	router.Use(h.recoverMiddleware)
	return router
}

type httpHandlers struct {
	snapshots Snapshots
	logger    *slog.Logger
}

func (h *httpHandlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *httpHandlers) prediction(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, LatestPrediction(h.snapshots))
}

func (h *httpHandlers) predictions(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, NewList(h.snapshots.History().RecentPredictions(limit)))
}

func (h *httpHandlers) modelMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.snapshots.ModelMetrics())
}

func (h *httpHandlers) alerts(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, NewList(h.snapshots.History().RecentAlerts(limit)))
}

func (h *httpHandlers) actionLog(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, NewList(Tail(h.snapshots.History().ActionLog(), limit)))
}

func (h *httpHandlers) pendingActions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, NewList(h.snapshots.PendingActions()))
}

func (h *httpHandlers) telemetry(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, NewList(RecentTelemetry(h.snapshots, limit)))
}

func (h *httpHandlers) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.logger.Error("http handler panic", slog.String("path", r.URL.Path), slog.Any("panic", rec))
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func queryLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	limit, err := ParseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return limit, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// HTTPServer serves the JSON snapshot router.
type HTTPServer struct {
	server   *http.Server
	listener net.Listener
	logger   *slog.Logger
}

// NewHTTPServer listens on address and serves handler.
func NewHTTPServer(address string, handler http.Handler, logger *slog.Logger) (*HTTPServer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	lis, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", address, err)
	}
	return &HTTPServer{
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      15 * time.Second,
		},
		listener: lis,
		logger:   logger,
	}, nil
}

// Start serves until Shutdown. A clean shutdown returns nil.
func (s *HTTPServer) Start() error {
	s.logger.Info("http server listening", slog.String("address", s.Address()))
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Address exposes the bound listener address.
func (s *HTTPServer) Address() string {
	return s.listener.Addr().String()
}
