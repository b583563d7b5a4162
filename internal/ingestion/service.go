package ingestion

import (
	"github.com/aevon-lab/telemetry-rollup/internal/core/partition"
	"github.com/aevon-lab/telemetry-rollup/internal/core/storage"
	"github.com/gin-gonic/gin"
)

const defaultMaxBatchEvents = 1000

type Service struct {
	store            storage.EventStore
	shardCount       int
	maxBodySizeBytes int
	maxBatchEvents   int
}

// NewService creates the ingest endpoint. shardCount must match the count the
// rollup reads with, or events land in shards that are never fetched.
func NewService(repo storage.EventStore, shardCount, maxBodySizeMB, maxBatchEvents int) *Service {
	if repo == nil {
		panic("ingestion: store must not be nil")
	}
	if shardCount <= 0 {
		shardCount = partition.DefaultCount
	}
	if maxBodySizeMB <= 0 {
		maxBodySizeMB = 1 // default to 1MB
	}
	if maxBatchEvents <= 0 {
		maxBatchEvents = defaultMaxBatchEvents
	}
	return &Service{
		store:            repo,
		shardCount:       shardCount,
		maxBodySizeBytes: maxBodySizeMB * 1024 * 1024,
		maxBatchEvents:   maxBatchEvents,
	}
}

// RegisterRoutes registers the ingestion service routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/events", s.IngestHandler)
}
