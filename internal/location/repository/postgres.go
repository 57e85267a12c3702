package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/jackc/pgx/v5"

	"location-history/internal/location/domain"
)

// DefaultTable is the location table used when none is configured.
const DefaultTable = "device_locations"

// maxPrealloc bounds the slice capacity reserved up front; an unbounded limit grows as rows arrive.
const maxPrealloc = 256

// PostgresRepository is a Store backed by a Postgres table keyed by (device_id, ts).
type PostgresRepository struct {
	db    *sql.DB
	table string
}

// NewPostgresRepository returns a location repository reading the given table (optionally
// schema-qualified, e.g. "history.device_locations"). An empty table selects DefaultTable.
func NewPostgresRepository(db *sql.DB, table string) (*PostgresRepository, error) {
	if db == nil {
		return nil, errors.New("location repository requires a database handle")
	}
	table = strings.TrimSpace(table)
	if table == "" {
		table = DefaultTable
	}
	parts := strings.Split(table, ".")
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("invalid location table name %q", table)
		}
	}
	return &PostgresRepository{db: db, table: pgx.Identifier(parts).Sanitize()}, nil
}

// RangeQuery returns one page of records for q. One extra row is read to decide whether
// a continuation token is returned; the token holds the last returned timestamp.
func (r *PostgresRepository) RangeQuery(ctx context.Context, q domain.RangeQuery, after *Token) (*Page, error) {
	if q.Limit <= 0 {
		return nil, errors.New("range query limit must be positive")
	}
	var sb strings.Builder
	args := []any{q.DeviceID}
	fmt.Fprintf(&sb, "SELECT device_id, ts, payload FROM %s WHERE device_id = $1", r.table)
	if q.Range != nil {
		args = append(args, q.Range.Start, q.Range.End)
		fmt.Fprintf(&sb, " AND ts BETWEEN $%d AND $%d", len(args)-1, len(args))
	}
	if after != nil {
		args = append(args, after.after)
		fmt.Fprintf(&sb, " AND ts > $%d", len(args))
	}
	fetch := q.Limit
	if fetch < math.MaxInt {
		fetch++
	}
	args = append(args, int64(fetch))
	fmt.Fprintf(&sb, " ORDER BY ts ASC LIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*domain.LocationRecord, 0, min(q.Limit, maxPrealloc))
	more := false
	for rows.Next() {
		if len(items) == q.Limit {
			more = true
			break
		}
		var (
			rec     domain.LocationRecord
			payload []byte
		)
		if err := rows.Scan(&rec.DeviceID, &rec.Timestamp, &payload); err != nil {
			return nil, err
		}
		rec.Payload = payload
		items = append(items, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	page := &Page{Items: items}
	if more {
		page.Next = &Token{after: items[len(items)-1].Timestamp}
	}
	return page, nil
}

// Put upserts rec. A nil or empty payload is stored as an empty JSON object.
func (r *PostgresRepository) Put(ctx context.Context, rec *domain.LocationRecord) error {
	if rec == nil || rec.DeviceID == "" {
		return errors.New("location record requires a device id")
	}
	payload := "{}"
	if len(rec.Payload) > 0 {
		payload = string(rec.Payload)
	}
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (device_id, ts, payload) VALUES ($1, $2, $3) "+
			"ON CONFLICT (device_id, ts) DO UPDATE SET payload = EXCLUDED.payload", r.table),
		rec.DeviceID, rec.Timestamp, payload)
	return err
}

// PingContext checks the database connection. Used by the health handler.
func (r *PostgresRepository) PingContext(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
