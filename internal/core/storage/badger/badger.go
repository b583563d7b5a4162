// Package badger stores raw events and aggregates in an embedded BadgerDB.
// It serves single-node deployments and local development; record expiry
// uses Badger's native entry TTL.
package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/goccy/go-json"

	v1 "github.com/aevon-lab/telemetry-rollup/internal/api/v1"
	"github.com/aevon-lab/telemetry-rollup/internal/core/aggregation"
	"github.com/aevon-lab/telemetry-rollup/internal/core/partition"
	"github.com/aevon-lab/telemetry-rollup/internal/core/storage"
)

// Key layout:
//
//	evt/{FAMILY#day#shard}/{sk}                    raw event JSON
//	agg/{pk}\x00{sk}                               aggregate record JSON
//	idx/{slot}/{index pk}\x00{date}\x00{pk}\x00{sk} empty, points at an aggregate
const (
	eventPrefix = "evt/"
	aggPrefix   = "agg/"
	indexPrefix = "idx/"
	nul         = "\x00"

	defaultPageSize = 1000
)

var (
	_ storage.EventStore     = (*Store)(nil)
	_ storage.AggregateStore = (*Store)(nil)
)

// Store implements storage.EventStore and storage.AggregateStore.
type Store struct {
	db  *badger.DB
	now func() time.Time
}

// Config holds BadgerDB configuration.
type Config struct {
	// Path to store database files
	Path string

	// InMemory mode (for testing)
	InMemory bool

	// MaxMemoryMB bounds the memtable; 0 uses 16 MB.
	MaxMemoryMB int64
}

// New opens a Badger store.
func New(cfg Config) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}

	memTableSize := int64(16 << 20)
	if cfg.MaxMemoryMB > 0 {
		memTableSize = cfg.MaxMemoryMB << 20 / 3
	}

	opts = opts.
		WithCompression(options.Snappy).
		WithNumVersionsToKeep(1).
		WithMemTableSize(memTableSize).
		WithBlockCacheSize(memTableSize / 2).
		WithIndexCacheSize(memTableSize / 4).
		WithValueLogFileSize(64 << 20).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	slog.Info("[Badger] Store opened", "path", cfg.Path, "in_memory", cfg.InMemory)
	return &Store{db: db, now: time.Now}, nil
}

func eventKey(e *v1.RawEvent) []byte {
	return []byte(eventPrefix + partition.Key(string(e.Family), e.OccurredAt, e.Shard) + "/" + partition.SortKey(e.OccurredAt, e.ID))
}

func aggKey(pk, sk string) []byte {
	return []byte(aggPrefix + pk + nul + sk)
}

func indexEntryPrefix(slot int, pk string) string {
	return indexPrefix + strconv.Itoa(slot) + "/" + pk + nul
}

// SaveEvents writes events that are not stored yet. Large batches are split
// over several transactions.
func (s *Store) SaveEvents(ctx context.Context, events []*v1.RawEvent) (int, error) {
	saved := 0
	txn := s.db.NewTransaction(true)
	defer func() { txn.Discard() }()

	for _, e := range events {
		if err := ctx.Err(); err != nil {
			return saved, err
		}
		key := eventKey(e)
		if _, err := txn.Get(key); err == nil {
			continue
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return saved, fmt.Errorf("failed to check event %s: %w", e.ID, err)
		}

		value, err := json.Marshal(e)
		if err != nil {
			return saved, fmt.Errorf("failed to encode event %s: %w", e.ID, err)
		}

		err = txn.Set(key, value)
		if errors.Is(err, badger.ErrTxnTooBig) {
			if err := txn.Commit(); err != nil {
				return saved, fmt.Errorf("failed to commit events: %w", err)
			}
			txn = s.db.NewTransaction(true)
			err = txn.Set(key, value)
		}
		if err != nil {
			return saved, fmt.Errorf("failed to write event %s: %w", e.ID, err)
		}
		saved++
	}

	if err := txn.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit events: %w", err)
	}
	return saved, nil
}

// QueryShard iterates one shard's key range from the cursor.
func (s *Store) QueryShard(ctx context.Context, q storage.ShardQuery) (storage.ShardPage, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	prefix := []byte(eventPrefix + q.PartitionKey() + "/")
	seek := append(append([]byte{}, prefix...), partition.SortBound(q.Start)...)
	if q.Cursor != "" {
		after := append(append(append([]byte{}, prefix...), q.Cursor...), 0)
		if bytes.Compare(after, seek) > 0 {
			seek = after
		}
	}
	end := append(append([]byte{}, prefix...), partition.SortBound(q.End)...)

	var page storage.ShardPage
	var lastSK string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchSize = 100
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			if bytes.Compare(item.Key(), end) >= 0 {
				return nil
			}
			var e v1.RawEvent
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return fmt.Errorf("failed to decode event %s: %w", item.Key(), err)
			}
			e.Shard = q.Shard
			page.Events = append(page.Events, &e)
			lastSK = string(item.Key()[len(prefix):])
			if len(page.Events) == limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return storage.ShardPage{}, fmt.Errorf("failed to query shard %s: %w", q.PartitionKey(), err)
	}

	if len(page.Events) == limit {
		page.Next = lastSK
	}
	return page, nil
}

// BatchWrite writes every record and its index entries in one transaction.
// When the transaction fills up, what fits is committed and the remaining
// records come back unprocessed.
func (s *Store) BatchWrite(ctx context.Context, records []*aggregation.AggregateRecord) ([]*aggregation.AggregateRecord, error) {
	txn := s.db.NewTransaction(true)
	defer txn.Discard()

	now := s.now()
	skipped := 0
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ttl := time.Unix(rec.ExpiresAt, 0).Sub(now)
		if ttl <= 0 {
			skipped++
			continue
		}

		err := s.setRecord(txn, rec, ttl)
		if errors.Is(err, badger.ErrTxnTooBig) {
			if err := txn.Commit(); err != nil {
				return nil, fmt.Errorf("aggregate write: commit: %w", err)
			}
			slog.Warn("[Badger] Transaction full, returning remainder",
				"written", i,
				"unprocessed", len(records)-i)
			return records[i:], nil
		}
		if err != nil {
			return nil, fmt.Errorf("aggregate write %s/%s: %w", rec.PK, rec.SK, err)
		}
	}

	if err := txn.Commit(); err != nil {
		return nil, fmt.Errorf("aggregate write: commit: %w", err)
	}
	if skipped > 0 {
		slog.Info("[Badger] Skipped already expired aggregates", "count", skipped)
	}
	return nil, nil
}

func (s *Store) setRecord(txn *badger.Txn, rec *aggregation.AggregateRecord, ttl time.Duration) error {
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err := txn.SetEntry(badger.NewEntry(aggKey(rec.PK, rec.SK), value).WithTTL(ttl)); err != nil {
		return err
	}
	for _, k := range rec.IndexKeys {
		key := []byte(indexEntryPrefix(k.Slot, k.PK) + k.SK + nul + rec.PK + nul + rec.SK)
		if err := txn.SetEntry(badger.NewEntry(key, nil).WithTTL(ttl)); err != nil {
			return err
		}
	}
	return nil
}

// Get returns one record or storage.ErrNotFound.
func (s *Store) Get(_ context.Context, pk, sk string) (*aggregation.AggregateRecord, error) {
	var rec *aggregation.AggregateRecord
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = getRecord(txn, pk, sk)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get aggregate %s/%s: %w", pk, sk, err)
	}
	return rec, nil
}

func getRecord(txn *badger.Txn, pk, sk string) (*aggregation.AggregateRecord, error) {
	item, err := txn.Get(aggKey(pk, sk))
	if err != nil {
		return nil, err
	}
	var rec aggregation.AggregateRecord
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &rec, nil
}

// QueryIndex scans one index slot for dates in [fromDate, toDate].
func (s *Store) QueryIndex(ctx context.Context, slot int, pk, fromDate, toDate string) ([]*aggregation.AggregateRecord, error) {
	prefix := []byte(indexEntryPrefix(slot, pk))
	var out []*aggregation.AggregateRecord

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(append(append([]byte{}, prefix...), fromDate...)); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			parts := bytes.SplitN(it.Item().Key()[len(prefix):], []byte(nul), 3)
			if len(parts) != 3 {
				continue
			}
			if string(parts[0]) > toDate {
				return nil
			}
			rec, err := getRecord(txn, string(parts[1]), string(parts[2]))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query index %d %s: %w", slot, pk, err)
	}
	return out, nil
}

// Ping fails once the store is closed.
func (s *Store) Ping(context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger store is closed")
	}
	return nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger: %w", err)
	}
	slog.Info("[Badger] Store closed")
	return nil
}
