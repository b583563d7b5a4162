package aggregation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/aevon-lab/telemetry-rollup/internal/core/aggregation"
	"github.com/aevon-lab/telemetry-rollup/internal/core/storage"
)

// ChunkState is the lifecycle state of one write chunk.
type ChunkState int

const (
	ChunkPending ChunkState = iota
	ChunkSent
	ChunkPartial
	ChunkRetryWait
	ChunkDone
	ChunkRetriesExhausted
	ChunkFailed
)

func (s ChunkState) String() string {
	switch s {
	case ChunkPending:
		return "PENDING"
	case ChunkSent:
		return "SENT"
	case ChunkPartial:
		return "PARTIAL"
	case ChunkRetryWait:
		return "RETRY_WAIT"
	case ChunkDone:
		return "DONE"
	case ChunkRetriesExhausted:
		return "RETRIES_EXHAUSTED"
	case ChunkFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("ChunkState(%d)", int(s))
	}
}

// UnprocessedError reports records the store still refused after every retry.
type UnprocessedError struct {
	Count int
}

func (e *UnprocessedError) Error() string {
	return fmt.Sprintf("%d aggregate records unprocessed after retries", e.Count)
}

// WriteResult summarizes one Write call.
type WriteResult struct {
	Chunks      int
	Written     int
	Retries     int
	Unprocessed int
}

// Writer persists aggregate records in bounded chunks, resubmitting exactly
// the records the store reports as unprocessed.
type Writer struct {
	store       storage.AggregateStore
	batchSize   int
	concurrency int
	maxRetries  int
	baseDelay   time.Duration

	// sleep waits between attempts; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewWriter creates a writer using the chunking and retry settings of p.
func NewWriter(store storage.AggregateStore, p JobParameter) *Writer {
	p = p.normalized()
	return &Writer{
		store:       store,
		batchSize:   p.WriteBatchSize,
		concurrency: p.WriteConcurrency,
		maxRetries:  p.MaxRetries,
		baseDelay:   p.RetryBaseDelay,
		sleep:       sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// retryDelays yields base, 2·base, 4·base... with no jitter.
func (w *Writer) retryDelays() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.baseDelay
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = time.Duration(math.MaxInt64)
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Write stores every record. A hard store error cancels the remaining chunks
// and is returned as is. Records still unprocessed once a chunk has used up
// its retries are returned as *UnprocessedError, counted across all chunks.
func (w *Writer) Write(ctx context.Context, records []*aggregation.AggregateRecord) (WriteResult, error) {
	var (
		mu  sync.Mutex
		res WriteResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	for i := 0; i < len(records); i += w.batchSize {
		end := min(i+w.batchSize, len(records))
		chunk := records[i:end]
		id := res.Chunks
		res.Chunks++

		g.Go(func() error {
			out, err := w.writeChunk(gctx, id, chunk)

			mu.Lock()
			res.Written += out.Written
			res.Retries += out.Retries
			res.Unprocessed += out.Unprocessed
			mu.Unlock()
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return res, err
	}
	if res.Unprocessed > 0 {
		return res, &UnprocessedError{Count: res.Unprocessed}
	}
	return res, nil
}

func (w *Writer) writeChunk(ctx context.Context, id int, chunk []*aggregation.AggregateRecord) (WriteResult, error) {
	var out WriteResult
	state := ChunkPending
	moveTo := func(next ChunkState) {
		slog.Debug("[Writer] Chunk state", "chunk", id, "from", state, "to", next)
		state = next
	}

	delays := w.retryDelays()
	pending := chunk
	for attempt := 0; ; attempt++ {
		moveTo(ChunkSent)
		unprocessed, err := w.store.BatchWrite(ctx, pending)
		if err != nil {
			moveTo(ChunkFailed)
			return out, fmt.Errorf("chunk %d attempt %d: %w", id, attempt, err)
		}
		out.Written += len(pending) - len(unprocessed)
		if len(unprocessed) == 0 {
			moveTo(ChunkDone)
			return out, nil
		}

		moveTo(ChunkPartial)
		if attempt >= w.maxRetries {
			moveTo(ChunkRetriesExhausted)
			out.Unprocessed = len(unprocessed)
			slog.Warn("[Writer] Chunk retries exhausted",
				"chunk", id,
				"attempts", attempt+1,
				"unprocessed", out.Unprocessed)
			moveTo(ChunkFailed)
			return out, nil
		}

		moveTo(ChunkRetryWait)
		delay := delays.NextBackOff()
		slog.Info("[Writer] Resubmitting unprocessed records",
			"chunk", id,
			"retry", attempt+1,
			"unprocessed", len(unprocessed),
			"delay", delay)
		if err := w.sleep(ctx, delay); err != nil {
			moveTo(ChunkFailed)
			return out, fmt.Errorf("chunk %d: %w", id, err)
		}
		out.Retries++
		pending = unprocessed
	}
}
