// Package simserver is the simulator's observation surface: a small HTTP
// API over the running session plus the Prometheus scrape endpoint.
package simserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vrbridge-io/vrbridge/pkg/log"
)

// DeviceInfo is one registered device as the simulated host sees it.
type DeviceInfo struct {
	Serial string `json:"serial"`
	Class  string `json:"class"`
	Index  uint32 `json:"index"`
}

// Status is a point-in-time snapshot of the simulated session.
type Status struct {
	DriverHandle uint64       `json:"driverHandle"`
	Frames       uint64       `json:"frames"`
	PoseUpdates  int          `json:"poseUpdates"`
	Devices      []DeviceInfo `json:"devices"`
}

// StatusFunc produces the current snapshot. Called per request; must be
// safe for concurrent use.
type StatusFunc func() Status

// Server serves the simulator API.
type Server struct {
	addr   string
	router *mux.Router
	status StatusFunc
	logger log.Logger
}

func New(addr string, status StatusFunc) *Server {
	s := &Server{
		addr:   addr,
		router: mux.NewRouter(),
		status: status,
		logger: log.WithName("simserver"),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/devices", s.handleDevices).Methods(http.MethodGet)
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then drains with a short grace period.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("simulator API listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, s.status())
}

func (s *Server) handleDevices(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, s.status().Devices)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error(err, "encoding response")
	}
}
