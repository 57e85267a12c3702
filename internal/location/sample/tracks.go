// Package sample generates development location tracks. cmd/seed writes them to Postgres and
// cmd/server loads them into the in-memory store when SEED_MEMORY_STORE is set.
package sample

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"location-history/internal/location/domain"
	"location-history/internal/location/repository"
)

// DeviceIDs are the devices that receive a sample track.
var DeviceIDs = []string{"dev-device-001", "dev-device-002"}

type point struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Speed   float64 `json:"speed"`
	TripID  string  `json:"tripId"`
	Battery int     `json:"battery"`
}

// Tracks returns count records per device, interval apart, in millisecond timestamps. The first
// record of every track is at start. Each device gets one trip id.
func Tracks(start time.Time, count int, interval time.Duration) ([]*domain.LocationRecord, error) {
	if count < 0 {
		return nil, fmt.Errorf("sample count must not be negative, got %d", count)
	}
	out := make([]*domain.LocationRecord, 0, count*len(DeviceIDs))
	for d, deviceID := range DeviceIDs {
		tripID := uuid.NewString()
		for i := 0; i < count; i++ {
			payload, err := json.Marshal(point{
				Lat:     52.52 + float64(d)*0.1 + float64(i)*0.001,
				Lon:     13.405 - float64(i)*0.0015,
				Speed:   float64(10 + i%7),
				TripID:  tripID,
				Battery: 100 - i%100,
			})
			if err != nil {
				return nil, err
			}
			out = append(out, &domain.LocationRecord{
				DeviceID:  deviceID,
				Timestamp: start.Add(time.Duration(i) * interval).UnixMilli(),
				Payload:   payload,
			})
		}
	}
	return out, nil
}

// Load writes the sample tracks to w and returns the number of records written.
func Load(ctx context.Context, w repository.Writer, start time.Time, count int, interval time.Duration) (int, error) {
	recs, err := Tracks(start, count, interval)
	if err != nil {
		return 0, err
	}
	for i, rec := range recs {
		if err := w.Put(ctx, rec); err != nil {
			return i, fmt.Errorf("put %s@%d: %w", rec.DeviceID, rec.Timestamp, err)
		}
	}
	return len(recs), nil
}

// Anchor returns a start time on a whole hour, so repeated loads within the hour hit the same keys.
func Anchor(now time.Time, count int, interval time.Duration) time.Time {
	return now.UTC().Truncate(time.Hour).Add(-time.Duration(count) * interval)
}
