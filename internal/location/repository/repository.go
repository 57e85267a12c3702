package repository

import (
	"context"

	"location-history/internal/location/domain"
)

// Token is an opaque resume position returned by a Store. Only stores in this package create or read it.
// A nil *Token means the start of the sequence.
type Token struct {
	after int64
}

// Page is the result of one RangeQuery. Next is nil when no further matching records exist.
type Page struct {
	Items []*domain.LocationRecord
	Next  *Token
}

// Store is an ordered range-query store for location records.
type Store interface {
	// RangeQuery returns at most q.Limit records for q.DeviceID in ascending timestamp order, restricted
	// to q.Range (inclusive) when set, starting after the position held by after.
	// A token is only valid with the query shape that produced it.
	RangeQuery(ctx context.Context, q domain.RangeQuery, after *Token) (*Page, error)
}

// Writer persists location records. Used by the seed tool and tests, never by the query path.
type Writer interface {
	Put(ctx context.Context, rec *domain.LocationRecord) error
}
