package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"location-history/internal/location/domain"
	"location-history/internal/location/repository"
	"location-history/internal/location/service"
)

// mockQuerier implements Querier for tests.
type mockQuerier struct {
	res    *domain.PageResult
	err    error
	params domain.QueryParams
}

func (m *mockQuerier) Handle(ctx context.Context, p domain.QueryParams) (*domain.PageResult, error) {
	m.params = p
	return m.res, m.err
}

type pageBody struct {
	Items    []map[string]any `json:"items"`
	Count    int              `json:"count"`
	Page     int              `json:"page"`
	NextPage *int             `json:"nextPage"`
}

func serve(t *testing.T, svc Querier, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	NewServer(svc).Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func assertJSONWithCORS(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

// fiveRecordService returns a real QueryService over dev1 records at timestamps 1..5.
func fiveRecordService(t *testing.T) *service.QueryService {
	t.Helper()
	store := repository.NewMemoryStore()
	for i := int64(1); i <= 5; i++ {
		rec := &domain.LocationRecord{
			DeviceID:  "dev1",
			Timestamp: i,
			Payload:   json.RawMessage(fmt.Sprintf(`{"lat":%d.5,"lon":-%d.25}`, i, i)),
		}
		if err := store.Put(context.Background(), rec); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	return service.NewQueryService(store, domain.DefaultPageSize, 0)
}

func TestListLocations_Scenarios(t *testing.T) {
	testCases := []struct {
		name     string
		target   string
		wantTS   []float64
		wantPage int
		wantNext *int
	}{
		{"first page", "/locations?deviceId=dev1&limit=2&page=0", []float64{1, 2}, 0, intp(1)},
		{"last page", "/locations?deviceId=dev1&limit=2&page=2", []float64{5}, 2, nil},
		{"beyond data", "/locations?deviceId=dev1&limit=2&page=5", []float64{}, 5, nil},
		{"path device id", "/devices/dev1/locations?limit=2&page=1", []float64{3, 4}, 1, intp(2)},
		{"defaults", "/locations?deviceId=dev1", []float64{1, 2, 3, 4, 5}, 0, nil},
		{"empty params are absent", "/locations?deviceId=dev1&limit=&page=&startTimestamp=&endTimestamp=", []float64{1, 2, 3, 4, 5}, 0, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(t, fiveRecordService(t), http.MethodGet, tc.target)
			if rec.Code != http.StatusOK {
				t.Fatalf("code = %d, want 200; body %s", rec.Code, rec.Body.String())
			}
			assertJSONWithCORS(t, rec)

			var body pageBody
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Items == nil {
				t.Fatal("items must be a JSON array, not null")
			}
			got := make([]float64, len(body.Items))
			for i, it := range body.Items {
				got[i], _ = it["timestamp"].(float64)
				if it["deviceId"] != "dev1" {
					t.Errorf("item %d deviceId = %v", i, it["deviceId"])
				}
				if _, ok := it["lat"]; !ok {
					t.Errorf("item %d should carry payload fields, got %v", i, it)
				}
			}
			if fmt.Sprint(got) != fmt.Sprint(tc.wantTS) {
				t.Errorf("timestamps = %v, want %v", got, tc.wantTS)
			}
			if body.Count != len(tc.wantTS) {
				t.Errorf("count = %d, want %d", body.Count, len(tc.wantTS))
			}
			if body.Page != tc.wantPage {
				t.Errorf("page = %d, want %d", body.Page, tc.wantPage)
			}
			if (body.NextPage == nil) != (tc.wantNext == nil) || (body.NextPage != nil && *body.NextPage != *tc.wantNext) {
				t.Errorf("nextPage = %v, want %v", body.NextPage, tc.wantNext)
			}
		})
	}
}

func TestListLocations_LimitAboveHundred(t *testing.T) {
	rec := serve(t, fiveRecordService(t), http.MethodGet, "/locations?deviceId=dev1&limit=101")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	var body pageBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 5 || body.NextPage != nil {
		t.Errorf("count = %d nextPage = %v, want 5 and null", body.Count, body.NextPage)
	}
}

func TestListLocations_LimitAboveConfiguredMax(t *testing.T) {
	store := repository.NewMemoryStore()
	rec := serve(t, service.NewQueryService(store, 2, 3), http.MethodGet, "/locations?deviceId=dev1&limit=4")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), domain.ErrLimitTooLarge.Error()) {
		t.Errorf("body = %s, want %q", rec.Body.String(), domain.ErrLimitTooLarge.Error())
	}
}

func TestListLocations_NextPageIsExplicitNull(t *testing.T) {
	rec := serve(t, fiveRecordService(t), http.MethodGet, "/locations?deviceId=dev1&limit=2&page=9")
	if !strings.Contains(rec.Body.String(), `"nextPage":null`) {
		t.Errorf("body = %s, want explicit nextPage null", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"items":[]`) {
		t.Errorf("body = %s, want empty items array", rec.Body.String())
	}
}

func TestListLocations_ValidationErrors(t *testing.T) {
	testCases := []struct {
		name    string
		target  string
		wantMsg string
	}{
		{"invalid range", "/locations?deviceId=dev1&startTimestamp=100&endTimestamp=50", domain.ErrInvalidTimeRange.Error()},
		{"incomplete range", "/locations?deviceId=dev1&startTimestamp=100", domain.ErrIncompleteTimeRange.Error()},
		{"missing device", "/locations?limit=2", domain.ErrMissingDeviceID.Error()},
		{"bad page", "/locations?deviceId=dev1&page=-3", domain.ErrInvalidPageIndex.Error()},
		{"bad limit", "/locations?deviceId=dev1&limit=abc", domain.ErrInvalidLimit.Error()},
		{"bad page wins over missing device", "/locations?page=-1", domain.ErrInvalidPageIndex.Error()},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(t, fiveRecordService(t), http.MethodGet, tc.target)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("code = %d, want 400", rec.Code)
			}
			assertJSONWithCORS(t, rec)
			var body map[string]any
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["message"] != tc.wantMsg {
				t.Errorf("message = %v, want %q", body["message"], tc.wantMsg)
			}
			if _, ok := body["error"]; ok {
				t.Errorf("validation errors should not carry an error detail: %v", body)
			}
		})
	}
}

func TestListLocations_StoreError(t *testing.T) {
	svc := &mockQuerier{err: &domain.StoreError{Phase: domain.PhaseSkip, Page: 1, Err: errors.New("table not found")}}
	rec := serve(t, svc, http.MethodGet, "/locations?deviceId=dev1&page=3")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d, want 500", rec.Code)
	}
	assertJSONWithCORS(t, rec)
	var body errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Message == "" {
		t.Error("message should be set")
	}
	if body.Error != "table not found" {
		t.Errorf("error = %q, want %q", body.Error, "table not found")
	}
}

func TestListLocations_UnexpectedError(t *testing.T) {
	rec := serve(t, &mockQuerier{err: errors.New("boom")}, http.MethodGet, "/locations?deviceId=dev1")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "boom") {
		t.Errorf("unexpected errors must not leak detail: %s", rec.Body.String())
	}
}

func TestListLocations_ParamsPassedThrough(t *testing.T) {
	m := &mockQuerier{res: &domain.PageResult{}}
	serve(t, m, http.MethodGet, "/devices/dev-7/locations?deviceId=ignored&startTimestamp=0&endTimestamp=10&limit=5&page=2")
	if m.params.DeviceID != "dev-7" {
		t.Errorf("DeviceID = %q, want path value dev-7", m.params.DeviceID)
	}
	for name, p := range map[string]*string{
		"startTimestamp": m.params.StartTimestamp,
		"endTimestamp":   m.params.EndTimestamp,
		"limit":          m.params.Limit,
		"page":           m.params.Page,
	} {
		if p == nil {
			t.Errorf("%s should be set", name)
		}
	}
	if *m.params.StartTimestamp != "0" {
		t.Errorf("startTimestamp = %q, want 0", *m.params.StartTimestamp)
	}
}

func TestListLocations_NilResultItemsRenderAsArray(t *testing.T) {
	rec := serve(t, &mockQuerier{res: &domain.PageResult{}}, http.MethodGet, "/locations?deviceId=dev1")
	if !strings.Contains(rec.Body.String(), `"items":[]`) {
		t.Errorf("body = %s, want empty items array", rec.Body.String())
	}
}

func TestListLocations_NilService(t *testing.T) {
	rec := serve(t, nil, http.MethodGet, "/locations?deviceId=dev1")
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("code = %d, want 501", rec.Code)
	}
}

func TestPreflight(t *testing.T) {
	rec := serve(t, nil, http.MethodOptions, "/locations")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("code = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "GET") {
		t.Errorf("Access-Control-Allow-Methods = %q", got)
	}
}

func intp(i int) *int { return &i }
