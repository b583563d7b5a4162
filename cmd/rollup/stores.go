package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aevon-lab/telemetry-rollup/internal/aggregation"
	"github.com/aevon-lab/telemetry-rollup/internal/core/config"
	"github.com/aevon-lab/telemetry-rollup/internal/core/storage"
	badgerstore "github.com/aevon-lab/telemetry-rollup/internal/core/storage/badger"
	"github.com/aevon-lab/telemetry-rollup/internal/core/storage/dynamo"
	"github.com/aevon-lab/telemetry-rollup/internal/core/storage/postgres"
	"github.com/aevon-lab/telemetry-rollup/internal/migrations"
)

// stores is the backend selected by store.backend.
type stores struct {
	events     storage.EventStore
	aggregates storage.AggregateStore
	health     storage.Pinger
	// purger is set for backends without native expiry.
	purger aggregation.Purger
	close  func() error
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		db, err := postgres.Open(cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
		if err != nil {
			return nil, err
		}
		if err := migrations.RunMigrations(db, cfg.Database.AutoMigrate); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
		events, err := postgres.NewAdapter(db)
		if err != nil {
			db.Close()
			return nil, err
		}
		aggregates := postgres.NewAggregateAdapter(db)
		return &stores{
			events:     events,
			aggregates: aggregates,
			health:     events,
			purger:     aggregates,
			close:      events.Close,
		}, nil

	case config.BackendBadger:
		store, err := badgerstore.New(badgerstore.Config{
			Path:        cfg.Badger.Path,
			InMemory:    cfg.Badger.InMemory,
			MaxMemoryMB: cfg.Badger.MaxMemoryMB,
		})
		if err != nil {
			return nil, err
		}
		return &stores{events: store, aggregates: store, health: store, close: store.Close}, nil

	case config.BackendDynamoDB:
		client, err := dynamo.NewClient(ctx, dynamo.Config{
			Region:          cfg.DynamoDB.Region,
			Endpoint:        cfg.DynamoDB.Endpoint,
			AccessKey:       cfg.DynamoDB.AccessKey,
			SecretKey:       cfg.DynamoDB.SecretKey,
			EventsTable:     cfg.DynamoDB.EventsTable,
			AggregatesTable: cfg.DynamoDB.AggregatesTable,
		})
		if err != nil {
			return nil, err
		}
		store := dynamo.New(client, cfg.DynamoDB.EventsTable, cfg.DynamoDB.AggregatesTable)
		return &stores{events: store, aggregates: store, health: store, close: func() error { return nil }}, nil
	}
	return nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
}

// openLocker returns the shared Redis lock when redis.url is set, else nil so
// the pipeline keeps its in-process lock.
func openLocker(ctx context.Context, cfg config.RedisConfig) (aggregation.Locker, func() error, error) {
	if cfg.URL == "" {
		slog.Info("[Lock] redis.url not set, using in-process run lock")
		return nil, func() error { return nil }, nil
	}
	client, err := aggregation.OpenRedis(ctx, cfg.URL)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("[Lock] Using redis run lock", "ttl", cfg.LockTTL)
	return aggregation.NewRedisLocker(client), client.Close, nil
}
