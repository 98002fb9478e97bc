package ports

import (
	"context"
	"time"

	contractsv1 "electionledger/contracts/gen/events/v1"
)

// Buckets partition the record store. Every election-scoped bucket is keyed
// by the decimal election id. Outbox buckets are keyed by event id and a row
// moves from BucketOutbox to BucketOutboxPublished once relayed.
const (
	BucketState           = "state"
	BucketElections       = "elections"
	BucketCandidates      = "candidates"
	BucketVoters          = "voters"
	BucketOutbox          = "outbox"
	BucketOutboxPublished = "outbox_published"
)

// StateKey is the single key of BucketState.
const StateKey = "ledger"

type Record struct {
	Bucket string
	Key    string
	Value  []byte
}

// RecordRef names one record for a multi-record read.
type RecordRef struct {
	Bucket string
	Key    string
}

type RecordWrite struct {
	Bucket string
	Key    string
	Value  []byte
	Delete bool
}

// RecordStore is the durable key-value contract. It offers no multi-record
// atomicity on its own.
type RecordStore interface {
	GetRecord(ctx context.Context, bucket string, key string) ([]byte, bool, error)
	PutRecord(ctx context.Context, bucket string, key string, value []byte) error
	DeleteRecord(ctx context.Context, bucket string, key string) error
	ListRecords(ctx context.Context, bucket string) ([]Record, error)
}

// AtomicRecordStore is implemented by backends that can apply a batch of
// writes all-or-nothing.
type AtomicRecordStore interface {
	RecordStore
	ApplyBatch(ctx context.Context, writes []RecordWrite) error
}

// SnapshotRecordStore is implemented by backends that can read several
// records as of one point in time. Refs with no record are absent from the
// result.
type SnapshotRecordStore interface {
	RecordStore
	GetRecords(ctx context.Context, refs []RecordRef) (map[RecordRef][]byte, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type Metrics interface {
	ObserveOperation(operation string, outcome string)
}

type EventEnvelope = contractsv1.Envelope

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
	PublishedAt  *time.Time
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}
