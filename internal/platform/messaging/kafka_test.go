package messaging

import (
	"context"
	"testing"
	"time"

	contractsv1 "electionledger/contracts/gen/events/v1"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishFansOutToEveryGroup(t *testing.T) {
	bus, err := NewKafka([]string{"localhost:9092"}, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	audit := make(chan contractsv1.Envelope, 1)
	projector := make(chan contractsv1.Envelope, 1)
	require.NoError(t, bus.Subscribe(ctx, "election.vote_cast", "audit-cg", func(_ context.Context, event contractsv1.Envelope) error {
		audit <- event
		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx, "election.vote_cast", "projector-cg", func(_ context.Context, event contractsv1.Envelope) error {
		projector <- event
		return nil
	}))

	event := contractsv1.Envelope{EventID: "evt-1", EventType: "election.vote_cast", PartitionKey: "0", SchemaVersion: 1}
	require.NoError(t, bus.Publish(ctx, "election.vote_cast", event))
	require.NoError(t, bus.Publish(ctx, "election.created", event))

	for _, ch := range []chan contractsv1.Envelope{audit, projector} {
		select {
		case got := <-ch:
			assert.Equal(t, "evt-1", got.EventID)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for delivery")
		}
	}
}

func TestCancelledSubscriptionIsRemoved(t *testing.T) {
	bus, err := NewKafka(nil, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, bus.Subscribe(ctx, "election.created", "cg", func(context.Context, contractsv1.Envelope) error {
		return nil
	}))
	cancel()

	assert.Eventually(t, func() bool {
		bus.mu.RLock()
		defer bus.mu.RUnlock()
		return len(bus.subscribers["election.created"]) == 0
	}, 2*time.Second, 10*time.Millisecond)
}
