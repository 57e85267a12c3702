// Package server wires the HTTP handlers and middleware into one http.Handler.
package server

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	healthhandler "location-history/internal/health/handler"
	locationhandler "location-history/internal/location/handler"
	"location-history/internal/server/middleware"
	"location-history/internal/telemetry"
)

// Deps holds optional service dependencies for HTTP handlers.
type Deps struct {
	// Locations answers location history queries. If nil, location routes return 501.
	Locations locationhandler.Querier
	// HealthPinger is used by the health endpoint for readiness (e.g. *sql.DB). If nil, the ping is skipped.
	HealthPinger healthhandler.Pinger
	// Emitter receives one telemetry event per request. If nil, no events are emitted.
	Emitter telemetry.EventEmitter
}

// skipTelemetryPaths are not reported as request events.
var skipTelemetryPaths = map[string]bool{"/healthz": true}

// NewHandler registers all routes and wraps them in request-id, telemetry and OTel tracing middleware.
//
// Route → handler mapping:
//   - GET /locations, GET /devices/{deviceId}/locations → internal/location/handler
//   - GET /healthz                                       → internal/health/handler
func NewHandler(deps Deps) http.Handler {
	mux := http.NewServeMux()
	locationhandler.NewServer(deps.Locations).Register(mux)
	healthhandler.NewServer(deps.HealthPinger).Register(mux)

	var h http.Handler = mux
	h = middleware.Telemetry(deps.Emitter, skipTelemetryPaths)(h)
	h = middleware.RequestID(h)
	return otelhttp.NewHandler(h, "location-history",
		otelhttp.WithFilter(func(r *http.Request) bool { return !skipTelemetryPaths[r.URL.Path] }),
	)
}

// NewHTTPServer returns an http.Server for handler with the given timeouts.
func NewHTTPServer(addr string, handler http.Handler, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       2 * writeTimeout,
	}
}
