package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/goccy/go-json"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	v1 "github.com/aevon-lab/telemetry-rollup/internal/api/v1"
	"github.com/aevon-lab/telemetry-rollup/internal/core/aggregation"
	"github.com/aevon-lab/telemetry-rollup/internal/core/storage"
)

func testRecord(sk string) *aggregation.AggregateRecord {
	return aggregation.BuildRecord(aggregation.RecordBase{
		PK:     "2025-01-01",
		SK:     sk,
		Date:   "2025-01-01",
		Family: v1.FamilyAPI,
		Count:  2,
	}, aggregation.RecordFields{
		API:       &aggregation.APIStats{RequestCount: 2},
		IndexKeys: []aggregation.IndexKey{{Slot: 2, PK: sk, SK: "2025-01-01"}},
		ExpiresAt: testDay.AddDate(0, 0, 91).Unix(),
	})
}

func TestAggregateAdapter_BatchWrite(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewAggregateAdapter(db)
	ok := testRecord("P#ios")
	throttled := testRecord("P#android")

	mock.ExpectExec(regexp.QuoteMeta(queryUpsertAggregate)).
		WithArgs("2025-01-01", "P#ios", "2025-01-01", "api", int64(2), sqlmock.AnyArg(),
			nil, nil, "P#ios", "2025-01-01", nil, nil,
			time.Unix(ok.ExpiresAt, 0).UTC()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(queryUpsertAggregate)).
		WillReturnError(&pq.Error{Code: "40001"})

	unprocessed, err := adapter.BatchWrite(context.Background(), []*aggregation.AggregateRecord{ok, throttled})
	require.NoError(t, err)
	require.Equal(t, []*aggregation.AggregateRecord{throttled}, unprocessed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAggregateAdapter_BatchWriteHardError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewAggregateAdapter(db)
	mock.ExpectExec(regexp.QuoteMeta(queryUpsertAggregate)).
		WillReturnError(&pq.Error{Code: "23502"})

	_, err = adapter.BatchWrite(context.Background(), []*aggregation.AggregateRecord{testRecord("SUMMARY"), testRecord("E#GET/a")})
	require.Error(t, err)
	require.ErrorContains(t, err, "2025-01-01/SUMMARY")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIsThrottled(t *testing.T) {
	require.True(t, isThrottled(&pq.Error{Code: "40001"}))
	require.True(t, isThrottled(&pq.Error{Code: "40P01"}))
	require.True(t, isThrottled(&pq.Error{Code: "53300"}))
	require.True(t, isThrottled(&pq.Error{Code: "57P03"}))
	require.False(t, isThrottled(&pq.Error{Code: "57P01"}))
	require.False(t, isThrottled(&pq.Error{Code: "23505"}))
	require.False(t, isThrottled(errors.New("boom")))
}

func TestAggregateAdapter_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewAggregateAdapter(db)
	want := testRecord("E#GET/a")
	payload, err := json.Marshal(want)
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(queryGetAggregate)).
		WithArgs("2025-01-01", "E#GET/a").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(payload))
	mock.ExpectQuery(regexp.QuoteMeta(queryGetAggregate)).
		WithArgs("2025-01-01", "E#GET/z").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}))

	got, err := adapter.Get(context.Background(), "2025-01-01", "E#GET/a")
	require.NoError(t, err)
	require.Equal(t, want, got)

	_, err = adapter.Get(context.Background(), "2025-01-01", "E#GET/z")
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAggregateAdapter_QueryIndex(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewAggregateAdapter(db)
	day1, _ := json.Marshal(testRecord("P#ios"))

	mock.ExpectQuery(regexp.QuoteMeta(queryIndexBySlot[2])).
		WithArgs("P#ios", "2025-01-01", "2025-01-07").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(day1))

	got, err := adapter.QueryIndex(context.Background(), 2, "P#ios", "2025-01-01", "2025-01-07")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "P#ios", got[0].SK)

	_, err = adapter.QueryIndex(context.Background(), 4, "P#ios", "2025-01-01", "2025-01-07")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAggregateAdapter_PurgeExpired(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(queryPurgeExpired)).WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := NewAggregateAdapter(db).PurgeExpired(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(4), n)
}
