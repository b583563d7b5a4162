package aggregation

import (
	"time"

	"github.com/aevon-lab/telemetry-rollup/internal/core/partition"
	"github.com/aevon-lab/telemetry-rollup/internal/core/scoring"
)

const (
	defaultFetchConcurrency = 8
	defaultPageSize         = 1000
	defaultWriteBatchSize   = 25
	defaultWriteConcurrency = 4
	defaultMaxRetries       = 5
	defaultRetryBaseDelay   = 100 * time.Millisecond
	defaultRetentionDays    = 90
)

// JobParameter controls throughput, retry and retention of a run.
type JobParameter struct {
	ShardCount       int
	FetchConcurrency int
	PageSize         int
	WriteBatchSize   int
	WriteConcurrency int
	MaxRetries       int
	RetryBaseDelay   time.Duration
	RetentionDays    int
	ApdexThresholdMs float64
}

// DefaultJobParameter returns the production defaults.
func DefaultJobParameter() JobParameter {
	return JobParameter{
		ShardCount:       partition.DefaultCount,
		FetchConcurrency: defaultFetchConcurrency,
		PageSize:         defaultPageSize,
		WriteBatchSize:   defaultWriteBatchSize,
		WriteConcurrency: defaultWriteConcurrency,
		MaxRetries:       defaultMaxRetries,
		RetryBaseDelay:   defaultRetryBaseDelay,
		RetentionDays:    defaultRetentionDays,
		ApdexThresholdMs: scoring.DefaultApdexThresholdMs,
	}
}

func (o JobParameter) normalized() JobParameter {
	n := o
	if n.ShardCount <= 0 {
		n.ShardCount = partition.DefaultCount
	}
	if n.FetchConcurrency <= 0 {
		n.FetchConcurrency = defaultFetchConcurrency
	}
	if n.PageSize <= 0 {
		n.PageSize = defaultPageSize
	}
	if n.WriteBatchSize <= 0 {
		n.WriteBatchSize = defaultWriteBatchSize
	}
	if n.WriteConcurrency <= 0 {
		n.WriteConcurrency = defaultWriteConcurrency
	}
	if n.MaxRetries < 0 {
		n.MaxRetries = defaultMaxRetries
	}
	if n.RetryBaseDelay <= 0 {
		n.RetryBaseDelay = defaultRetryBaseDelay
	}
	if n.RetentionDays <= 0 {
		n.RetentionDays = defaultRetentionDays
	}
	if n.ApdexThresholdMs <= 0 {
		n.ApdexThresholdMs = scoring.DefaultApdexThresholdMs
	}
	return n
}
