package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"location-history/internal/telemetry"
)

// httpRequestMetadata is the JSON shape stored in Event.Metadata for http_request events.
type httpRequestMetadata struct {
	Method     string `json:"method"`
	Path       string `json:"path"`
	Query      string `json:"query,omitempty"`
	StatusCode int    `json:"status_code"`
	DurationMs int64  `json:"duration_ms"`
	ClientIP   string `json:"client_ip"`
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Telemetry returns middleware that emits a telemetry event after each request.
// Best-effort: emits are async and failures are logged. If emitter is nil, the middleware no-ops.
// skipPaths is the set of URL paths to not emit (e.g. /healthz).
func Telemetry(emitter telemetry.EventEmitter, skipPaths map[string]bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if emitter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			if skipPaths[r.URL.Path] {
				return
			}
			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			meta := httpRequestMetadata{
				Method:     r.Method,
				Path:       r.URL.Path,
				Query:      r.URL.RawQuery,
				StatusCode: status,
				DurationMs: time.Since(start).Milliseconds(),
				ClientIP:   ClientIP(r),
			}
			metaJSON, _ := json.Marshal(meta)
			requestID, _ := GetRequestID(r.Context())
			telemetry.EmitAsync(emitter, &telemetry.Event{
				EventType: "http_request",
				Source:    "http_middleware",
				RequestID: requestID,
				DeviceID:  deviceIDFromRequest(r),
				Metadata:  metaJSON,
				CreatedAt: start.UTC(),
			})
		})
	}
}

// ClientIP returns the first X-Forwarded-For address, else the host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// deviceIDFromRequest reads the device id from /devices/{deviceId}/... or the deviceId query parameter.
func deviceIDFromRequest(r *http.Request) string {
	if rest, ok := strings.CutPrefix(r.URL.Path, "/devices/"); ok {
		if id, _, ok := strings.Cut(rest, "/"); ok && id != "" {
			return id
		}
	}
	return r.URL.Query().Get("deviceId")
}
