package postgres

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/lib/pq"

	v1 "github.com/aevon-lab/telemetry-rollup/internal/api/v1"
	"github.com/aevon-lab/telemetry-rollup/internal/core/aggregation"
)

// marshalEventJSON marshals an event's attributes and values to JSON.
// Nil maps are stored as empty objects.
func marshalEventJSON(event *v1.RawEvent) (attributesJSON, valuesJSON []byte, err error) {
	attrs := event.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	attributesJSON, err = json.Marshal(attrs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal attributes: %w", err)
	}

	values := event.Values
	if values == nil {
		values = map[string]float64{}
	}
	valuesJSON, err = json.Marshal(values)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal values: %w", err)
	}

	return attributesJSON, valuesJSON, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanEventRow scans a raw_events row and returns the event with its sort key.
// Compatible with both sql.Row (single) and sql.Rows (multiple).
func scanEventRow(row scanner) (*v1.RawEvent, string, error) {
	var evt v1.RawEvent
	var sk, family string
	var attributesJSON, valuesJSON []byte

	err := row.Scan(
		&sk,
		&evt.ID,
		&family,
		&evt.OccurredAt,
		&attributesJSON,
		&valuesJSON,
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to scan event row: %w", err)
	}
	evt.Family = v1.Family(family)
	evt.OccurredAt = evt.OccurredAt.UTC()

	if len(attributesJSON) > 0 {
		if err := json.Unmarshal(attributesJSON, &evt.Attributes); err != nil {
			return nil, "", fmt.Errorf("failed to unmarshal attributes: %w", err)
		}
	}
	if len(valuesJSON) > 0 {
		if err := json.Unmarshal(valuesJSON, &evt.Values); err != nil {
			return nil, "", fmt.Errorf("failed to unmarshal values: %w", err)
		}
	}

	return &evt, sk, nil
}

func scanAggregateRow(row scanner) (*aggregation.AggregateRecord, error) {
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		return nil, err
	}
	var rec aggregation.AggregateRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal aggregate payload: %w", err)
	}
	return &rec, nil
}

// indexColumns spreads a record's index pairs over the three slot columns.
// Empty slots are NULL.
func indexColumns(keys []aggregation.IndexKey) [6]interface{} {
	var cols [6]interface{}
	for _, k := range keys {
		if k.Slot < 1 || k.Slot > 3 {
			continue
		}
		cols[(k.Slot-1)*2] = k.PK
		cols[(k.Slot-1)*2+1] = k.SK
	}
	return cols
}

// isThrottled reports whether a write failed for a transient, retryable reason:
// serialization failures and deadlocks (class 40), insufficient resources
// (class 53) and a server that cannot accept connections yet (57P03).
func isThrottled(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch {
	case pqErr.Code.Class() == "40", pqErr.Code.Class() == "53":
		return true
	case pqErr.Code == "57P03":
		return true
	default:
		return false
	}
}
