package repository

import (
	"context"
	"errors"
	"sort"
	"sync"

	"location-history/internal/location/domain"
)

// MemoryStore is an in-memory Store, chunked exactly like PostgresRepository.
// Used for local development when no database is configured, and in tests.
type MemoryStore struct {
	mu       sync.RWMutex
	byDevice map[string][]*domain.LocationRecord
}

// NewMemoryStore returns an empty in-memory location store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byDevice: make(map[string][]*domain.LocationRecord)}
}

// Put inserts rec, replacing any record with the same device id and timestamp.
func (s *MemoryStore) Put(ctx context.Context, rec *domain.LocationRecord) error {
	if rec == nil || rec.DeviceID == "" {
		return errors.New("location record requires a device id")
	}
	cp := *rec
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.byDevice[rec.DeviceID]
	i := sort.Search(len(list), func(i int) bool { return list[i].Timestamp >= rec.Timestamp })
	if i < len(list) && list[i].Timestamp == rec.Timestamp {
		list[i] = &cp
		return nil
	}
	list = append(list, nil)
	copy(list[i+1:], list[i:])
	list[i] = &cp
	s.byDevice[rec.DeviceID] = list
	return nil
}

// RangeQuery returns one page of records for q, resuming after the given token.
func (s *MemoryStore) RangeQuery(ctx context.Context, q domain.RangeQuery, after *Token) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if q.Limit <= 0 {
		return nil, errors.New("range query limit must be positive")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.byDevice[q.DeviceID]
	i := 0
	if after != nil {
		i = sort.Search(len(list), func(i int) bool { return list[i].Timestamp > after.after })
	} else if q.Range != nil {
		i = sort.Search(len(list), func(i int) bool { return list[i].Timestamp >= q.Range.Start })
	}

	items := make([]*domain.LocationRecord, 0, min(q.Limit, len(list)-i))
	for ; i < len(list); i++ {
		rec := list[i]
		if q.Range != nil && (rec.Timestamp < q.Range.Start || rec.Timestamp > q.Range.End) {
			if rec.Timestamp > q.Range.End {
				break
			}
			continue
		}
		if len(items) == q.Limit {
			return &Page{Items: items, Next: &Token{after: items[len(items)-1].Timestamp}}, nil
		}
		cp := *rec
		items = append(items, &cp)
	}
	return &Page{Items: items}, nil
}
