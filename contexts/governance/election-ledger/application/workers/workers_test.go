package workers_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"electionledger/contexts/governance/election-ledger/adapters/memory"
	"electionledger/contexts/governance/election-ledger/application/commands"
	"electionledger/contexts/governance/election-ledger/application/ledger"
	"electionledger/contexts/governance/election-ledger/application/queries"
	"electionledger/contexts/governance/election-ledger/application/workers"
	"electionledger/contexts/governance/election-ledger/ports"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type recordingPublisher struct {
	topics []string
	events []ports.EventEnvelope
	failAt int
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	if p.failAt > 0 && len(p.topics)+1 == p.failAt {
		return errors.New("broker unavailable")
	}
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

type stubSubscriber struct {
	groups   map[string]string
	handlers map[string]func(context.Context, ports.EventEnvelope) error
}

func (s *stubSubscriber) Subscribe(
	_ context.Context,
	topic string,
	group string,
	handler func(context.Context, ports.EventEnvelope) error,
) error {
	if s.handlers == nil {
		s.handlers = map[string]func(context.Context, ports.EventEnvelope) error{}
		s.groups = map[string]string{}
	}
	s.handlers[topic] = handler
	s.groups[topic] = group
	return nil
}

var now = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func seedVote(t *testing.T, store *memory.Store) int64 {
	t.Helper()
	ctx := context.Background()
	// distinct timestamps keep the outbox order deterministic
	clock := &fixedClock{now: now.Add(-time.Hour)}
	useCase := commands.ElectionUseCase{Records: store, Clock: clock, IDGen: store}
	if _, err := useCase.InitLedger(ctx, commands.InitLedgerCommand{Admins: []string{"admin.test"}}); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	clock.now = now.Add(-time.Minute)
	election, err := useCase.CreateElection(ctx, commands.CreateElectionCommand{
		CallerID: "admin.test",
		Name:     "Chair",
		StartsAt: now,
		EndsAt:   now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	clock.now = now.Add(time.Millisecond)
	if _, err := useCase.AddCandidate(ctx, commands.AddCandidateCommand{CallerID: "admin.test", ElectionID: election.ID, CandidateID: "alice.test"}); err != nil {
		t.Fatalf("add candidate failed: %v", err)
	}
	clock.now = now.Add(time.Second)
	if _, err := useCase.Vote(ctx, commands.VoteCommand{CallerID: "voter.test", ElectionID: election.ID, CandidateID: "alice.test"}); err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	return election.ID
}

func TestOutboxRelayPublishesInOrderAndMarks(t *testing.T) {
	store := memory.NewStore()
	seedVote(t, store)
	outbox := ledger.Outbox{Records: store}
	publisher := &recordingPublisher{}
	relay := workers.OutboxRelay{Outbox: outbox, Publisher: publisher, Clock: fixedClock{now: now.Add(time.Minute)}}

	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("relay failed: %v", err)
	}
	want := []string{
		commands.EventLedgerInitialized,
		commands.EventElectionCreated,
		commands.EventElectionCandidateRegistered,
		commands.EventElectionVoteCast,
	}
	if len(publisher.topics) != len(want) {
		t.Fatalf("expected %d published events, got %v", len(want), publisher.topics)
	}
	for i := range want {
		if publisher.topics[i] != want[i] {
			t.Fatalf("event %d: expected %s, got %s", i, want[i], publisher.topics[i])
		}
	}
	pending, err := outbox.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected empty outbox, got %d", len(pending))
	}

	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("second relay cycle failed: %v", err)
	}
	if len(publisher.topics) != len(want) {
		t.Fatalf("expected no republish, got %v", publisher.topics)
	}
}

func TestOutboxRelayStopsAtFirstFailure(t *testing.T) {
	store := memory.NewStore()
	seedVote(t, store)
	outbox := ledger.Outbox{Records: store}
	relay := workers.OutboxRelay{Outbox: outbox, Publisher: &recordingPublisher{failAt: 2}}

	if err := relay.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected publish failure")
	}
	pending, err := outbox.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("expected 3 pending rows after partial relay, got %d", len(pending))
	}
}

func TestAuditConsumerSubscribesAndAudits(t *testing.T) {
	store := memory.NewStore()
	electionID := seedVote(t, store)
	sub := &stubSubscriber{}
	consumer := workers.AuditConsumer{
		Subscriber: sub,
		Queries:    queries.ElectionQueries{Records: store, Clock: fixedClock{now: now}},
	}
	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	handler := sub.handlers[commands.EventElectionVoteCast]
	if handler == nil {
		t.Fatalf("expected vote_cast handler registration")
	}
	if sub.groups[commands.EventElectionVoteCast] != "election-ledger-audit-cg" {
		t.Fatalf("expected default consumer group, got %q", sub.groups[commands.EventElectionVoteCast])
	}
	if sub.handlers[commands.EventElectionCandidateRegistered] == nil {
		t.Fatalf("expected candidate_registered handler registration")
	}

	event := ports.EventEnvelope{
		EventID:       "evt-1",
		EventType:     commands.EventElectionVoteCast,
		SchemaVersion: 1,
		PartitionKey:  ledger.ElectionKey(electionID),
	}
	if err := handler(context.Background(), event); err != nil {
		t.Fatalf("audit handler failed: %v", err)
	}

	event.PartitionKey = "not-an-id"
	if err := handler(context.Background(), event); err == nil {
		t.Fatalf("expected invalid partition key error")
	}
	event.EventID = ""
	if err := handler(context.Background(), event); err == nil {
		t.Fatalf("expected envelope validation error")
	}
}

func TestAuditConsumerDisabledSkipsSubscribe(t *testing.T) {
	sub := &stubSubscriber{}
	consumer := workers.AuditConsumer{Subscriber: sub, Disabled: true}
	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if len(sub.handlers) != 0 {
		t.Fatalf("expected no subscriptions, got %d", len(sub.handlers))
	}
}
