package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// Pinger is used for readiness (e.g. *sql.DB or the location repository).
type Pinger interface {
	PingContext(ctx context.Context) error
}

const (
	StatusServing    = "SERVING"
	StatusNotServing = "NOT_SERVING"
)

// pingTimeout bounds the readiness ping so a hung database does not hang the probe.
const pingTimeout = 2 * time.Second

// Server answers liveness/readiness probes for Kubernetes, load balancers, and CI.
type Server struct {
	pinger Pinger
}

// NewServer returns a new health server. If pinger is nil, HealthCheck skips the DB ping.
func NewServer(pinger Pinger) *Server {
	return &Server{pinger: pinger}
}

// Register mounts GET /healthz on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.HealthCheck)
}

type healthResponse struct {
	Status string `json:"status"`
}

// HealthCheck returns SERVING with 200, or NOT_SERVING with 503 when the ping fails.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, code := StatusServing, http.StatusOK
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()
		if err := s.pinger.PingContext(ctx); err != nil {
			log.Printf("health: ping failed: %v", err)
			status, code = StatusNotServing, http.StatusServiceUnavailable
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(healthResponse{Status: status})
}
