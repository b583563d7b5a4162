package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"

	"github.com/aevon-lab/telemetry-rollup/internal/core/aggregation"
	"github.com/aevon-lab/telemetry-rollup/internal/core/storage"
)

var _ storage.AggregateStore = (*AggregateAdapter)(nil)

// AggregateAdapter implements storage.AggregateStore using PostgreSQL.
// Each record is upserted on its own; there is no cross-record transaction,
// matching the per-item semantics of a batch write.
type AggregateAdapter struct {
	db *sql.DB
}

// NewAggregateAdapter creates an AggregateAdapter sharing the given connection.
func NewAggregateAdapter(db *sql.DB) *AggregateAdapter {
	return &AggregateAdapter{db: db}
}

// BatchWrite upserts each record. Transient failures (see isThrottled) leave
// the record unprocessed for the caller to retry; any other failure aborts.
func (a *AggregateAdapter) BatchWrite(ctx context.Context, records []*aggregation.AggregateRecord) ([]*aggregation.AggregateRecord, error) {
	var unprocessed []*aggregation.AggregateRecord

	for _, rec := range records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("aggregate write: marshal %s/%s: %w", rec.PK, rec.SK, err)
		}
		idx := indexColumns(rec.IndexKeys)

		_, err = a.db.ExecContext(ctx, queryUpsertAggregate,
			rec.PK,
			rec.SK,
			rec.Date,
			string(rec.Family),
			rec.Count,
			payload,
			idx[0], idx[1], idx[2], idx[3], idx[4], idx[5],
			time.Unix(rec.ExpiresAt, 0).UTC(),
		)
		if err != nil {
			if isThrottled(err) {
				unprocessed = append(unprocessed, rec)
				continue
			}
			return nil, fmt.Errorf("aggregate write: upsert %s/%s: %w", rec.PK, rec.SK, err)
		}
	}

	if len(unprocessed) > 0 {
		slog.Warn("[Postgres] Aggregate batch partially written",
			"records", len(records),
			"unprocessed", len(unprocessed))
	}
	return unprocessed, nil
}

// Get returns the unexpired record at (pk, sk).
func (a *AggregateAdapter) Get(ctx context.Context, pk, sk string) (*aggregation.AggregateRecord, error) {
	rec, err := scanAggregateRow(a.db.QueryRowContext(ctx, queryGetAggregate, pk, sk))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get aggregate %s/%s: %w", pk, sk, err)
	}
	return rec, nil
}

// QueryIndex reads one secondary index slot over a date range.
func (a *AggregateAdapter) QueryIndex(ctx context.Context, slot int, pk, fromDate, toDate string) ([]*aggregation.AggregateRecord, error) {
	query, ok := queryIndexBySlot[slot]
	if !ok {
		return nil, fmt.Errorf("query index: unknown slot %d", slot)
	}

	rows, err := a.db.QueryContext(ctx, query, pk, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("query index %d %s: %w", slot, pk, err)
	}
	defer rows.Close()

	var out []*aggregation.AggregateRecord
	for rows.Next() {
		rec, err := scanAggregateRow(rows)
		if err != nil {
			return nil, fmt.Errorf("query index %d %s: %w", slot, pk, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating index %d %s: %w", slot, pk, err)
	}
	return out, nil
}

// PurgeExpired deletes records past their expiry and returns how many went.
func (a *AggregateAdapter) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := a.db.ExecContext(ctx, queryPurgeExpired)
	if err != nil {
		return 0, fmt.Errorf("purge expired aggregates: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge expired aggregates: %w", err)
	}
	if n > 0 {
		slog.Info("[Postgres] Purged expired aggregates", "deleted", n)
	}
	return n, nil
}
