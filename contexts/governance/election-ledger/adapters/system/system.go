// Package system provides the wall clock and event id source shared by every
// durable backend.
package system

import (
	"context"
	"time"

	"electionledger/contexts/governance/election-ledger/ports"

	"github.com/google/uuid"
)

// Clock reads the wall clock in UTC.
type Clock struct{}

func (Clock) Now() time.Time {
	return time.Now().UTC()
}

// UUIDGenerator issues outbox event ids.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.Clock = Clock{}
var _ ports.IDGenerator = UUIDGenerator{}
