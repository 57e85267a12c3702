package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// mockPinger implements Pinger for tests.
type mockPinger struct {
	pingErr error
}

func (m *mockPinger) PingContext(context.Context) error {
	return m.pingErr
}

func doHealthCheck(t *testing.T, srv *Server) (int, string) {
	t.Helper()
	mux := http.NewServeMux()
	srv.Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	var body healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return rec.Code, body.Status
}

func TestHealthCheck_NilPinger(t *testing.T) {
	code, status := doHealthCheck(t, NewServer(nil))
	if code != http.StatusOK {
		t.Errorf("code = %d, want 200", code)
	}
	if status != StatusServing {
		t.Errorf("status = %q, want %q", status, StatusServing)
	}
}

func TestHealthCheck_PingerSuccess(t *testing.T) {
	code, status := doHealthCheck(t, NewServer(&mockPinger{}))
	if code != http.StatusOK || status != StatusServing {
		t.Errorf("got %d %q, want 200 %q", code, status, StatusServing)
	}
}

func TestHealthCheck_PingerFailure(t *testing.T) {
	code, status := doHealthCheck(t, NewServer(&mockPinger{pingErr: errors.New("connection refused")}))
	if code != http.StatusServiceUnavailable {
		t.Errorf("code = %d, want 503", code)
	}
	if status != StatusNotServing {
		t.Errorf("status = %q, want %q", status, StatusNotServing)
	}
}
