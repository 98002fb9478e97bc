package system

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestClockIsUTC(t *testing.T) {
	if loc := (Clock{}).Now().Location(); loc.String() != "UTC" {
		t.Fatalf("expected UTC clock, got %s", loc)
	}
}

func TestUUIDGeneratorProducesDistinctIDs(t *testing.T) {
	gen := UUIDGenerator{}
	first, err := gen.NewID(context.Background())
	if err != nil {
		t.Fatalf("new id: %v", err)
	}
	second, _ := gen.NewID(context.Background())
	if first == second {
		t.Fatalf("expected distinct ids, got %q twice", first)
	}
	if _, err := uuid.Parse(first); err != nil {
		t.Fatalf("expected a uuid, got %q: %v", first, err)
	}
}
