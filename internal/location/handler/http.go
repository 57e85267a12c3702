package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"location-history/internal/location/domain"
)

// Querier runs a paged location query. Implemented by service.QueryService.
type Querier interface {
	Handle(ctx context.Context, p domain.QueryParams) (*domain.PageResult, error)
}

// Server serves location history over HTTP.
//
//	GET /locations?deviceId=&startTimestamp=&endTimestamp=&limit=&page=
//	GET /devices/{deviceId}/locations?startTimestamp=&endTimestamp=&limit=&page=
type Server struct {
	svc Querier
}

// NewServer returns a new location HTTP server. Pass nil svc for a stub that answers 501.
func NewServer(svc Querier) *Server {
	return &Server{svc: svc}
}

// Register mounts the location routes on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /locations", s.ListLocations)
	mux.HandleFunc("GET /devices/{deviceId}/locations", s.ListLocations)
	mux.HandleFunc("OPTIONS /locations", s.Preflight)
	mux.HandleFunc("OPTIONS /devices/{deviceId}/locations", s.Preflight)
}

type pageResponse struct {
	Items    []*domain.LocationRecord `json:"items"`
	Count    int                      `json:"count"`
	Page     int                      `json:"page"`
	NextPage *int                     `json:"nextPage"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// ListLocations answers one page of location history for a device.
func (s *Server) ListLocations(w http.ResponseWriter, r *http.Request) {
	if s.svc == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Message: "location queries are not configured"})
		return
	}
	res, err := s.svc.Handle(r.Context(), paramsFromRequest(r))
	if err != nil {
		status, body := errorToResponse(err)
		writeJSON(w, status, body)
		return
	}
	items := res.Items
	if items == nil {
		items = []*domain.LocationRecord{}
	}
	writeJSON(w, http.StatusOK, pageResponse{
		Items:    items,
		Count:    res.Count,
		Page:     res.PageIndex,
		NextPage: res.NextPageIndex,
	})
}

// Preflight answers CORS preflight requests.
func (s *Server) Preflight(w http.ResponseWriter, r *http.Request) {
	setCORS(w.Header())
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.WriteHeader(http.StatusNoContent)
}

// paramsFromRequest reads query parameters. Empty values count as absent; a path device id
// takes precedence over the deviceId query parameter.
func paramsFromRequest(r *http.Request) domain.QueryParams {
	q := r.URL.Query()
	opt := func(key string) *string {
		v := strings.TrimSpace(q.Get(key))
		if v == "" {
			return nil
		}
		return &v
	}
	deviceID := r.PathValue("deviceId")
	if deviceID == "" {
		deviceID = q.Get("deviceId")
	}
	return domain.QueryParams{
		DeviceID:       deviceID,
		StartTimestamp: opt("startTimestamp"),
		EndTimestamp:   opt("endTimestamp"),
		Limit:          opt("limit"),
		Page:           opt("page"),
	}
}

func errorToResponse(err error) (int, errorResponse) {
	if errors.Is(err, domain.ErrValidation) {
		return http.StatusBadRequest, errorResponse{Message: err.Error()}
	}
	var storeErr *domain.StoreError
	if errors.As(err, &storeErr) {
		detail := "unknown error"
		if storeErr.Err != nil {
			detail = storeErr.Err.Error()
		}
		return http.StatusInternalServerError, errorResponse{Message: "could not query location history", Error: detail}
	}
	log.Printf("location: unexpected error: %v", err)
	return http.StatusInternalServerError, errorResponse{Message: "internal error"}
}

func setCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	setCORS(w.Header())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("location: write response: %v", err)
	}
}
