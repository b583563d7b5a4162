package ingestion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	v1 "github.com/aevon-lab/telemetry-rollup/internal/api/v1"
	httperr "github.com/aevon-lab/telemetry-rollup/internal/core/errors"
	"github.com/aevon-lab/telemetry-rollup/internal/core/partition"
)

const (
	msgReadBodyFailed  = "Failed to read request body"
	msgInvalidJSON     = "Invalid JSON body"
	msgPersistFailed   = "Failed to persist events"
	msgEmptyBatch      = "Request contains no events"
	msgBatchTooLarge   = "Request contains too many events"
	msgInvalidEnvelope = "One or more events failed validation"
)

// ingestionError carries the structured HTTP error shape from a helper back to the orchestrator.
// Helpers return this instead of writing to gin.Context directly, keeping them decoupled from HTTP.
type ingestionError struct {
	statusCode int
	errorType  string
	message    string
	details    interface{}
}

func (e *ingestionError) Error() string {
	return e.message
}

// IngestResponse reports how many of the received events were new.
type IngestResponse struct {
	Status     string `json:"status"`
	Received   int    `json:"received"`
	Stored     int    `json:"stored"`
	Duplicates int    `json:"duplicates"`
}

// IngestHandler handles POST /v1/events with a JSON array of raw events.
// The batch is all or nothing: one invalid event rejects the whole request.
func (s *Service) IngestHandler(c *gin.Context) {
	events, payloadSize, err := s.parseEvents(c)
	if err != nil {
		writeError(c, err)
		return
	}

	if err := s.validateEvents(events); err != nil {
		writeError(c, err)
		return
	}

	s.assignShards(events)

	slog.Info("[Ingest] Received events",
		"count", len(events),
		"payload_size", payloadSize)

	stored, err := s.persistEvents(c.Request.Context(), events)
	if err != nil {
		writeError(c, err)
		return
	}

	// Events are read by the next daily rollup of their day.
	c.JSON(http.StatusAccepted, IngestResponse{
		Status:     "accepted",
		Received:   len(events),
		Stored:     stored,
		Duplicates: len(events) - stored,
	})
}

// parseEvents reads the raw request body and decodes it into a batch of events.
// Returns the parsed events and the raw payload size (used for structured logging upstream).
func (s *Service) parseEvents(c *gin.Context) ([]*v1.RawEvent, int, *ingestionError) {
	// Enforce maximum body size to prevent OOM attacks
	maxBytes := int64(s.maxBodySizeBytes)
	limitedBody := io.LimitReader(c.Request.Body, maxBytes+1) // +1 to detect oversized requests

	bodyBytes, err := io.ReadAll(limitedBody)
	if err != nil {
		slog.Error("[Ingest] Failed to read request body", "error", err)
		return nil, 0, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgReadBodyFailed,
		}
	}

	if int64(len(bodyBytes)) > maxBytes {
		slog.Warn("[Ingest] Request body exceeds maximum size", "size", len(bodyBytes), "max", maxBytes)
		return nil, len(bodyBytes), &ingestionError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpInvalidJsonError,
			message:    "Request body exceeds maximum allowed size",
			details: map[string]interface{}{
				"max_size_mb": maxBytes / (1024 * 1024),
			},
		}
	}

	var events []*v1.RawEvent
	if err := json.Unmarshal(bodyBytes, &events); err != nil {
		slog.Warn("[Ingest] Invalid JSON body received", "error", err, "payload_size", len(bodyBytes))
		return nil, len(bodyBytes), &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgInvalidJSON,
		}
	}

	if len(events) == 0 {
		return nil, len(bodyBytes), &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpEventValidationError,
			message:    msgEmptyBatch,
		}
	}
	if len(events) > s.maxBatchEvents {
		return nil, len(bodyBytes), &ingestionError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpEventValidationError,
			message:    msgBatchTooLarge,
			details: map[string]interface{}{
				"max_events": s.maxBatchEvents,
			},
		}
	}

	return events, len(bodyBytes), nil
}

// validateEvents runs envelope validation on every event and reports each failure by index.
func (s *Service) validateEvents(events []*v1.RawEvent) *ingestionError {
	failures := map[string]string{}
	for i, evt := range events {
		if evt == nil {
			failures[fmt.Sprint(i)] = "event is null"
			continue
		}
		if err := evt.Validate(); err != nil {
			failures[fmt.Sprint(i)] = err.Error()
		}
	}
	if len(failures) == 0 {
		return nil
	}

	slog.Warn("[Ingest] Envelope validation failed", "invalid", len(failures), "count", len(events))
	return &ingestionError{
		statusCode: http.StatusBadRequest,
		errorType:  httperr.HttpEventValidationError,
		message:    msgInvalidEnvelope,
		details:    failures,
	}
}

// assignShards hashes each event ID onto the shard the rollup will read it from.
func (s *Service) assignShards(events []*v1.RawEvent) {
	for _, evt := range events {
		evt.Shard = partition.For(evt.ID, s.shardCount)
	}
}

// persistEvents saves the batch; already stored events are skipped, not rejected.
func (s *Service) persistEvents(ctx context.Context, events []*v1.RawEvent) (int, *ingestionError) {
	stored, err := s.store.SaveEvents(ctx, events)
	if err != nil {
		slog.Error("[Ingest] Failed to persist events", "error", err, "count", len(events))
		return 0, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgPersistFailed,
		}
	}

	if stored < len(events) {
		slog.Info("[Ingest] Duplicate events skipped", "duplicates", len(events)-stored)
	}
	return stored, nil
}

// writeError serializes an ingestionError as the JSON HTTP response.
func writeError(c *gin.Context, err *ingestionError) {
	c.JSON(err.statusCode, httperr.ErrorResponse{
		ErrorType: err.errorType,
		Message:   err.message,
		Details:   err.details,
	})
}
