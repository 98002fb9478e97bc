package workers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	application "electionledger/contexts/governance/election-ledger/application"
	"electionledger/contexts/governance/election-ledger/application/ledger"
	"electionledger/contexts/governance/election-ledger/application/queries"
	"electionledger/contexts/governance/election-ledger/ports"
)

const (
	voteCastTopic            = "election.vote_cast"
	candidateRegisteredTopic = "election.candidate_registered"
	defaultAuditCG           = "election-ledger-audit-cg"
)

// AuditConsumer re-verifies an election after every change event and logs
// any view that drifted.
type AuditConsumer struct {
	Subscriber    ports.EventSubscriber
	Queries       queries.ElectionQueries
	ConsumerGroup string
	Disabled      bool
	Logger        *slog.Logger
}

func (c AuditConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	if c.Disabled {
		logger.Info("election audit consumer disabled by configuration",
			"event", "election_audit_consumer_disabled",
			"module", "governance/election-ledger",
			"layer", "worker",
		)
		return nil
	}
	group := strings.TrimSpace(c.ConsumerGroup)
	if group == "" {
		group = defaultAuditCG
	}
	for _, topic := range []string{voteCastTopic, candidateRegisteredTopic} {
		if err := c.Subscriber.Subscribe(ctx, topic, group, c.Handle); err != nil {
			logger.Error("election audit consumer subscribe failed",
				"event", "election_audit_consumer_subscribe_failed",
				"module", "governance/election-ledger",
				"layer", "worker",
				"topic", topic,
				"consumer_group", group,
				"error", err.Error(),
			)
			return err
		}
	}
	logger.Info("election audit consumer subscribed",
		"event", "election_audit_consumer_started",
		"module", "governance/election-ledger",
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}

// Handle audits the election named by the event partition key.
func (c AuditConsumer) Handle(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	if err := event.Validate(); err != nil {
		return err
	}
	electionID, ok := ledger.ParseElectionKey(event.PartitionKey)
	if !ok {
		return fmt.Errorf("event %s has invalid election partition key %q", event.EventID, event.PartitionKey)
	}
	report, err := c.Queries.Audit(ctx, electionID)
	if err != nil {
		return err
	}
	if !report.Consistent {
		logger.Error("election ledger drift detected",
			"event", "election_audit_drift_detected",
			"module", "governance/election-ledger",
			"layer", "worker",
			"election_id", electionID,
			"event_id", event.EventID,
			"event_type", event.EventType,
			"violations", report.Violations,
		)
		return nil
	}
	logger.Debug("election audit passed",
		"event", "election_audit_passed",
		"module", "governance/election-ledger",
		"layer", "worker",
		"election_id", electionID,
		"event_id", event.EventID,
	)
	return nil
}
