// Package service implements paged time-range queries over device location history.
package service

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"location-history/internal/location/domain"
	"location-history/internal/location/repository"
)

const instrumentationName = "location-history/internal/location/service"

// QueryService answers index-based page requests on top of a Store that only paginates by
// continuation token. Page N costs N+1 sequential store round-trips.
type QueryService struct {
	store           repository.Store
	defaultPageSize int
	maxPageSize     int

	tracer     trace.Tracer
	roundTrips metric.Int64Counter
	duration   metric.Float64Histogram
}

// NewQueryService returns a QueryService over store. A non-positive defaultPageSize falls back
// to domain.DefaultPageSize. maxPageSize caps the limit a request may ask for; zero or less
// leaves it unbounded.
func NewQueryService(store repository.Store, defaultPageSize, maxPageSize int) *QueryService {
	if maxPageSize < 0 {
		maxPageSize = 0
	}
	if defaultPageSize <= 0 {
		defaultPageSize = domain.DefaultPageSize
	}
	if maxPageSize > 0 && defaultPageSize > maxPageSize {
		defaultPageSize = maxPageSize
	}
	s := &QueryService{
		store:           store,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
		tracer:          otel.Tracer(instrumentationName),
	}
	meter := otel.Meter(instrumentationName)
	var err error
	s.roundTrips, err = meter.Int64Counter("location.store.round_trips",
		metric.WithDescription("Range queries issued against the location store"))
	if err != nil {
		s.roundTrips, _ = noop.NewMeterProvider().Meter(instrumentationName).Int64Counter("location.store.round_trips")
	}
	s.duration, err = meter.Float64Histogram("location.query.duration",
		metric.WithDescription("Paged location query latency"), metric.WithUnit("ms"))
	if err != nil {
		s.duration, _ = noop.NewMeterProvider().Meter(instrumentationName).Float64Histogram("location.query.duration")
	}
	return s
}

// Validate checks p and returns the request to run. Checks run in a fixed order and the
// first failure wins; no store access happens here.
func (s *QueryService) Validate(p domain.QueryParams) (*domain.QueryRequest, error) {
	req := &domain.QueryRequest{PageSize: s.defaultPageSize}

	if p.Page != nil {
		n, err := strconv.Atoi(strings.TrimSpace(*p.Page))
		if err != nil || n < 0 {
			return nil, domain.ErrInvalidPageIndex
		}
		req.PageIndex = n
	}

	req.DeviceID = strings.TrimSpace(p.DeviceID)
	if req.DeviceID == "" {
		return nil, domain.ErrMissingDeviceID
	}

	if (p.StartTimestamp == nil) != (p.EndTimestamp == nil) {
		return nil, domain.ErrIncompleteTimeRange
	}
	if p.StartTimestamp != nil {
		start, err := strconv.ParseInt(strings.TrimSpace(*p.StartTimestamp), 10, 64)
		if err != nil {
			return nil, domain.ErrInvalidTimestamp
		}
		end, err := strconv.ParseInt(strings.TrimSpace(*p.EndTimestamp), 10, 64)
		if err != nil {
			return nil, domain.ErrInvalidTimestamp
		}
		if start >= end {
			return nil, domain.ErrInvalidTimeRange
		}
		req.Range = &domain.TimeRange{Start: start, End: end}
	}

	if p.Limit != nil {
		n, err := strconv.Atoi(strings.TrimSpace(*p.Limit))
		if err != nil || n <= 0 {
			return nil, domain.ErrInvalidLimit
		}
		if s.maxPageSize > 0 && n > s.maxPageSize {
			return nil, domain.ErrLimitTooLarge
		}
		req.PageSize = n
	}
	return req, nil
}

// Handle validates p and returns the requested page.
func (s *QueryService) Handle(ctx context.Context, p domain.QueryParams) (*domain.PageResult, error) {
	req, err := s.Validate(p)
	if err != nil {
		return nil, err
	}
	return s.Query(ctx, req)
}

// Query returns page req.PageIndex. Pages before it are fetched only for their continuation
// tokens. A page past the end of the data is an empty result, not an error.
func (s *QueryService) Query(ctx context.Context, req *domain.QueryRequest) (*domain.PageResult, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "location.query", trace.WithAttributes(
		attribute.String("location.device_id", req.DeviceID),
		attribute.Int("location.page", req.PageIndex),
		attribute.Int("location.limit", req.PageSize),
		attribute.Bool("location.ranged", req.Range != nil),
	))
	defer span.End()
	defer func() {
		s.duration.Record(ctx, float64(time.Since(start).Microseconds())/1000)
	}()

	q := domain.RangeQuery{DeviceID: req.DeviceID, Range: req.Range, Limit: req.PageSize}

	var token *repository.Token
	for i := 0; i < req.PageIndex; i++ {
		page, err := s.rangeQuery(ctx, q, token, domain.PhaseSkip)
		if err != nil {
			return nil, s.fail(span, &domain.StoreError{Phase: domain.PhaseSkip, Page: i, Err: err})
		}
		if page.Next == nil {
			span.SetAttributes(attribute.Int("location.pages_skipped", i+1), attribute.Bool("location.exhausted", true))
			return &domain.PageResult{Items: []*domain.LocationRecord{}, PageIndex: req.PageIndex}, nil
		}
		token = page.Next
	}
	span.SetAttributes(attribute.Int("location.pages_skipped", req.PageIndex))

	page, err := s.rangeQuery(ctx, q, token, domain.PhaseFinal)
	if err != nil {
		return nil, s.fail(span, &domain.StoreError{Phase: domain.PhaseFinal, Page: req.PageIndex, Err: err})
	}

	items := page.Items
	if items == nil {
		items = []*domain.LocationRecord{}
	}
	res := &domain.PageResult{Items: items, Count: len(items), PageIndex: req.PageIndex}
	if page.Next != nil {
		next := req.PageIndex + 1
		res.NextPageIndex = &next
	}
	span.SetAttributes(attribute.Int("location.count", res.Count))
	return res, nil
}

func (s *QueryService) rangeQuery(ctx context.Context, q domain.RangeQuery, token *repository.Token, phase domain.Phase) (*repository.Page, error) {
	s.roundTrips.Add(ctx, 1, metric.WithAttributes(attribute.String("phase", string(phase))))
	page, err := s.store.RangeQuery(ctx, q, token)
	if err != nil {
		return nil, err
	}
	if page == nil {
		page = &repository.Page{}
	}
	return page, nil
}

func (s *QueryService) fail(span trace.Span, err *domain.StoreError) error {
	log.Printf("location: %v", err)
	span.RecordError(err)
	span.SetStatus(codes.Error, string(err.Phase))
	return err
}
