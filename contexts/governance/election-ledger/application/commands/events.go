package commands

import (
	"encoding/json"
	"time"

	"electionledger/contexts/governance/election-ledger/ports"
)

const (
	EventLedgerInitialized           = "ledger.initialized"
	EventElectionCreated             = "election.created"
	EventElectionCandidateRegistered = "election.candidate_registered"
	EventElectionVoteCast            = "election.vote_cast"
)

func newLedgerEnvelope(
	eventID string,
	eventType string,
	partitionKeyPath string,
	partitionKey string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "election-ledger",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: partitionKeyPath,
		PartitionKey:     partitionKey,
		Data:             payload,
	}, nil
}
