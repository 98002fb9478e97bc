package v1

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Envelope is the versioned event envelope shared by producers and consumers
// of election ledger events. Fields may be added but never renamed.
type Envelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

var ErrInvalidEnvelope = errors.New("invalid event envelope")

// Validate rejects envelopes a consumer cannot route or deduplicate.
func (e Envelope) Validate() error {
	switch {
	case strings.TrimSpace(e.EventID) == "":
		return errors.Join(ErrInvalidEnvelope, errors.New("event_id is required"))
	case strings.TrimSpace(e.EventType) == "":
		return errors.Join(ErrInvalidEnvelope, errors.New("event_type is required"))
	case strings.TrimSpace(e.PartitionKey) == "":
		return errors.Join(ErrInvalidEnvelope, errors.New("partition_key is required"))
	case e.SchemaVersion < 1:
		return errors.Join(ErrInvalidEnvelope, errors.New("schema_version must be positive"))
	}
	return nil
}
