package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"electionledger/contexts/governance/election-ledger/ports"
)

// Outbox exposes the outbox bucket of any record store as an
// ports.OutboxRepository.
type Outbox struct {
	Records ports.RecordStore
}

func (o Outbox) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	records, err := o.Records.ListRecords(ctx, ports.BucketOutbox)
	if err != nil {
		return nil, err
	}
	items := make([]ports.OutboxMessage, 0, len(records))
	for _, record := range records {
		var row outboxRecord
		if err := json.Unmarshal(record.Value, &row); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", record.Bucket, record.Key, err)
		}
		if row.PublishedAt != nil {
			continue
		}
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].OutboxID < items[j].OutboxID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (o Outbox) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	outboxID = strings.TrimSpace(outboxID)
	var row outboxRecord
	found, err := loadJSON(ctx, o.Records, ports.BucketOutbox, outboxID, &row)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("outbox message %s not found", outboxID)
	}
	published := publishedAt.UTC()
	row.PublishedAt = &published
	payload, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encode outbox message %s: %w", outboxID, err)
	}

	// published rows leave the pending bucket
	writes := []ports.RecordWrite{
		{Bucket: ports.BucketOutboxPublished, Key: outboxID, Value: payload},
		{Bucket: ports.BucketOutbox, Key: outboxID, Delete: true},
	}
	if atomic, ok := o.Records.(ports.AtomicRecordStore); ok {
		return atomic.ApplyBatch(ctx, writes)
	}
	if err := o.Records.PutRecord(ctx, ports.BucketOutboxPublished, outboxID, payload); err != nil {
		return err
	}
	return o.Records.DeleteRecord(ctx, ports.BucketOutbox, outboxID)
}

var _ ports.OutboxRepository = Outbox{}
