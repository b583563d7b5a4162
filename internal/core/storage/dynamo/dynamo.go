// Package dynamo implements the raw event and aggregate stores on DynamoDB.
//
// Events table: pk (S, hash), sk (S, range), payload (S).
// Aggregates table: pk (S, hash), sk (S, range), date, family, count, payload,
// gsi{1,2,3}pk / gsi{1,2,3}sk backing indexes "gsi1".."gsi3", and a ttl attribute
// (epoch seconds) configured as the table's TTL attribute.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"

	v1 "github.com/aevon-lab/telemetry-rollup/internal/api/v1"
	"github.com/aevon-lab/telemetry-rollup/internal/core/aggregation"
	"github.com/aevon-lab/telemetry-rollup/internal/core/partition"
	"github.com/aevon-lab/telemetry-rollup/internal/core/storage"
)

// maxBatchItems is the BatchWriteItem request limit.
const maxBatchItems = 25

const defaultPageSize = 1000

var (
	_ storage.EventStore     = (*Store)(nil)
	_ storage.AggregateStore = (*Store)(nil)
)

// API is the subset of the DynamoDB client the store uses.
type API interface {
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Config selects the tables and how to reach them.
type Config struct {
	Region          string
	Endpoint        string // DynamoDB Local or another compatible endpoint
	AccessKey       string
	SecretKey       string
	EventsTable     string
	AggregatesTable string
}

// Store implements storage.EventStore and storage.AggregateStore.
type Store struct {
	client          API
	eventsTable     string
	aggregatesTable string
	// eventRetry bounds retries of unprocessed event puts on the ingest path.
	eventRetry func() backoff.BackOff
}

// NewClient builds a DynamoDB client from cfg.
func NewClient(ctx context.Context, cfg Config) (*dynamodb.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		// Static credentials (for DynamoDB Local or explicit keys)
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// New wraps a client.
func New(client API, eventsTable, aggregatesTable string) *Store {
	return &Store{
		client:          client,
		eventsTable:     eventsTable,
		aggregatesTable: aggregatesTable,
		eventRetry: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 50 * time.Millisecond
			b.MaxElapsedTime = 10 * time.Second
			return b
		},
	}
}

func str(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }

func num(v int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(v, 10)}
}

func getString(item map[string]types.AttributeValue, name string) (string, bool) {
	v, ok := item[name].(*types.AttributeValueMemberS)
	if !ok {
		return "", false
	}
	return v.Value, true
}

// SaveEvents puts events in batches of 25. Events are immutable, so a
// re-sent event overwrites itself with identical content; DynamoDB batch
// writes cannot tell new from existing, so every written event is counted.
func (s *Store) SaveEvents(ctx context.Context, events []*v1.RawEvent) (int, error) {
	for start := 0; start < len(events); start += maxBatchItems {
		end := min(start+maxBatchItems, len(events))
		requests := make([]types.WriteRequest, 0, end-start)
		for _, e := range events[start:end] {
			payload, err := json.Marshal(e)
			if err != nil {
				return 0, fmt.Errorf("failed to encode event %s: %w", e.ID, err)
			}
			requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: map[string]types.AttributeValue{
				"pk":      str(partition.Key(string(e.Family), e.OccurredAt, e.Shard)),
				"sk":      str(partition.SortKey(e.OccurredAt, e.ID)),
				"payload": str(string(payload)),
			}}})
		}
		if err := s.putAll(ctx, requests); err != nil {
			return 0, err
		}
	}
	return len(events), nil
}

// putAll resubmits unprocessed event puts until none remain or the backoff gives up.
func (s *Store) putAll(ctx context.Context, requests []types.WriteRequest) error {
	pending := requests
	op := func() error {
		out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{s.eventsTable: pending},
		})
		if err != nil {
			return backoff.Permanent(fmt.Errorf("batch write events: %w", err))
		}
		pending = out.UnprocessedItems[s.eventsTable]
		if len(pending) > 0 {
			return fmt.Errorf("%d events unprocessed", len(pending))
		}
		return nil
	}
	return backoff.Retry(op, backoff.WithContext(s.eventRetry(), ctx))
}

// QueryShard runs one Query page over the shard partition's sort key range.
// BETWEEN is inclusive, but no event key equals the bare end bound, so the
// range behaves as [Start, End).
func (s *Store) QueryShard(ctx context.Context, q storage.ShardQuery) (storage.ShardPage, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	pk := q.PartitionKey()

	in := &dynamodb.QueryInput{
		TableName:              aws.String(s.eventsTable),
		KeyConditionExpression: aws.String("pk = :pk AND sk BETWEEN :start AND :end"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":    str(pk),
			":start": str(partition.SortBound(q.Start)),
			":end":   str(partition.SortBound(q.End)),
		},
		Limit: aws.Int32(int32(limit)),
	}
	if q.Cursor != "" {
		in.ExclusiveStartKey = map[string]types.AttributeValue{"pk": str(pk), "sk": str(q.Cursor)}
	}

	out, err := s.client.Query(ctx, in)
	if err != nil {
		return storage.ShardPage{}, fmt.Errorf("failed to query shard %s: %w", pk, err)
	}

	page := storage.ShardPage{Events: make([]*v1.RawEvent, 0, len(out.Items))}
	for _, item := range out.Items {
		payload, _ := getString(item, "payload")
		var e v1.RawEvent
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return storage.ShardPage{}, fmt.Errorf("failed to decode event in %s: %w", pk, err)
		}
		e.Shard = q.Shard
		page.Events = append(page.Events, &e)
	}
	if next, ok := getString(out.LastEvaluatedKey, "sk"); ok {
		page.Next = next
	}
	return page, nil
}

func aggregateItem(rec *aggregation.AggregateRecord) (map[string]types.AttributeValue, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode %s/%s: %w", rec.PK, rec.SK, err)
	}
	item := map[string]types.AttributeValue{
		"pk":      str(rec.PK),
		"sk":      str(rec.SK),
		"date":    str(rec.Date),
		"family":  str(string(rec.Family)),
		"count":   num(rec.Count),
		"payload": str(string(payload)),
		"ttl":     num(rec.ExpiresAt),
	}
	for _, k := range rec.IndexKeys {
		slot := strconv.Itoa(k.Slot)
		item["gsi"+slot+"pk"] = str(k.PK)
		item["gsi"+slot+"sk"] = str(k.SK)
	}
	return item, nil
}

func decodeAggregate(item map[string]types.AttributeValue) (*aggregation.AggregateRecord, error) {
	payload, ok := getString(item, "payload")
	if !ok {
		return nil, errors.New("item has no payload")
	}
	var rec aggregation.AggregateRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, fmt.Errorf("decode aggregate: %w", err)
	}
	return &rec, nil
}

// BatchWrite issues one BatchWriteItem per 25 records and maps the returned
// UnprocessedItems back to their records.
func (s *Store) BatchWrite(ctx context.Context, records []*aggregation.AggregateRecord) ([]*aggregation.AggregateRecord, error) {
	var unprocessed []*aggregation.AggregateRecord

	for start := 0; start < len(records); start += maxBatchItems {
		batch := records[start:min(start+maxBatchItems, len(records))]
		byKey := make(map[[2]string]*aggregation.AggregateRecord, len(batch))
		requests := make([]types.WriteRequest, 0, len(batch))
		for _, rec := range batch {
			item, err := aggregateItem(rec)
			if err != nil {
				return nil, fmt.Errorf("aggregate write: %w", err)
			}
			byKey[[2]string{rec.PK, rec.SK}] = rec
			requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
		}

		out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{s.aggregatesTable: requests},
		})
		if err != nil {
			return nil, fmt.Errorf("aggregate write: %w", err)
		}

		for _, req := range out.UnprocessedItems[s.aggregatesTable] {
			if req.PutRequest == nil {
				continue
			}
			pk, _ := getString(req.PutRequest.Item, "pk")
			sk, _ := getString(req.PutRequest.Item, "sk")
			if rec, ok := byKey[[2]string{pk, sk}]; ok {
				unprocessed = append(unprocessed, rec)
			}
		}
	}

	if len(unprocessed) > 0 {
		slog.Warn("[Dynamo] Aggregate batch partially written",
			"records", len(records),
			"unprocessed", len(unprocessed))
	}
	return unprocessed, nil
}

// Get reads one record with a consistent read.
func (s *Store) Get(ctx context.Context, pk, sk string) (*aggregation.AggregateRecord, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.aggregatesTable),
		Key:            map[string]types.AttributeValue{"pk": str(pk), "sk": str(sk)},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get aggregate %s/%s: %w", pk, sk, err)
	}
	if len(out.Item) == 0 {
		return nil, storage.ErrNotFound
	}
	return decodeAggregate(out.Item)
}

// QueryIndex queries index "gsi{slot}" for dates in [fromDate, toDate], following pagination.
func (s *Store) QueryIndex(ctx context.Context, slot int, pk, fromDate, toDate string) ([]*aggregation.AggregateRecord, error) {
	if slot < 1 || slot > 3 {
		return nil, fmt.Errorf("query index: unknown slot %d", slot)
	}
	name := "gsi" + strconv.Itoa(slot)

	in := &dynamodb.QueryInput{
		TableName:              aws.String(s.aggregatesTable),
		IndexName:              aws.String(name),
		KeyConditionExpression: aws.String("#pk = :pk AND #sk BETWEEN :from AND :to"),
		ExpressionAttributeNames: map[string]string{
			"#pk": name + "pk",
			"#sk": name + "sk",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":   str(pk),
			":from": str(fromDate),
			":to":   str(toDate),
		},
	}

	var out []*aggregation.AggregateRecord
	for {
		res, err := s.client.Query(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("query index %s %s: %w", name, pk, err)
		}
		for _, item := range res.Items {
			rec, err := decodeAggregate(item)
			if err != nil {
				return nil, fmt.Errorf("query index %s %s: %w", name, pk, err)
			}
			out = append(out, rec)
		}
		if len(res.LastEvaluatedKey) == 0 {
			return out, nil
		}
		in.ExclusiveStartKey = res.LastEvaluatedKey
	}
}

// Ping describes the aggregates table.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.aggregatesTable)})
	if err != nil {
		return fmt.Errorf("describe %s: %w", s.aggregatesTable, err)
	}
	return nil
}
