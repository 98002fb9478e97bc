package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestCode(t *testing.T) {
	if got := Code(nil); got != "ok" {
		t.Fatalf("nil: got %s", got)
	}
	if got := Code(fmt.Errorf("load election 3: %w", ErrElectionNotFound)); got != "election_not_found" {
		t.Fatalf("wrapped: got %s", got)
	}
	if got := Code(errors.New("disk on fire")); got != "internal_error" {
		t.Fatalf("unknown: got %s", got)
	}
	joined := errors.Join(ErrRollbackFailed, ErrInconsistentLedger, ErrDuplicateVote)
	if got := Code(joined); got != "rollback_failed" {
		t.Fatalf("rollback must win, got %s", got)
	}
}
