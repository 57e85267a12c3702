package domain

import (
	"bytes"
	"encoding/json"
)

// DefaultPageSize is the number of records returned when a request has no limit.
const DefaultPageSize = 10

// LocationRecord is one stored location sample keyed by (DeviceID, Timestamp).
// Payload is carried through untouched; only the key is interpreted.
type LocationRecord struct {
	DeviceID  string
	Timestamp int64
	Payload   json.RawMessage
}

// MarshalJSON renders the record as a flat object: the payload's fields plus deviceId and timestamp.
// A payload that is not a JSON object is emitted under "payload".
func (r LocationRecord) MarshalJSON() ([]byte, error) {
	out := map[string]any{}
	if p := bytes.TrimSpace(r.Payload); len(p) > 0 {
		fields := map[string]json.RawMessage{}
		if p[0] == '{' && json.Unmarshal(p, &fields) == nil {
			for k, v := range fields {
				out[k] = v
			}
		} else {
			out["payload"] = json.RawMessage(p)
		}
	}
	out["deviceId"] = r.DeviceID
	out["timestamp"] = r.Timestamp
	return json.Marshal(out)
}

// TimeRange bounds the sort key. Both ends are inclusive when handed to a store.
type TimeRange struct {
	Start int64
	End   int64
}

// QueryParams is the raw, unvalidated request as it arrives from the transport.
// A nil pointer means the parameter was not supplied.
type QueryParams struct {
	DeviceID       string
	StartTimestamp *string
	EndTimestamp   *string
	Limit          *string
	Page           *string
}

// QueryRequest is a validated request.
type QueryRequest struct {
	DeviceID  string
	Range     *TimeRange
	PageSize  int
	PageIndex int
}

// RangeQuery is the query shape handed to a store: equality on DeviceID, optional Range on the
// timestamp, ascending order, at most Limit items.
type RangeQuery struct {
	DeviceID string
	Range    *TimeRange
	Limit    int
}

// PageResult is one page of records. NextPageIndex is nil when no further pages exist.
type PageResult struct {
	Items         []*LocationRecord
	Count         int
	PageIndex     int
	NextPageIndex *int
}
