// Package storetest holds the behaviour every ports.AtomicRecordStore backend
// must share. Backend packages call Run from their own tests.
package storetest

import (
	"bytes"
	"context"
	"testing"

	"electionledger/contexts/governance/election-ledger/ports"
)

func Run(t *testing.T, store ports.AtomicRecordStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing record", func(t *testing.T) {
		value, found, err := store.GetRecord(ctx, ports.BucketElections, "404")
		if err != nil {
			t.Fatalf("get missing record: %v", err)
		}
		if found || value != nil {
			t.Fatalf("expected no record, got %q", value)
		}
	})

	t.Run("put overwrites", func(t *testing.T) {
		if err := store.PutRecord(ctx, ports.BucketElections, "1", []byte(`{"v":1}`)); err != nil {
			t.Fatalf("put: %v", err)
		}
		if err := store.PutRecord(ctx, ports.BucketElections, "1", []byte(`{"v":2}`)); err != nil {
			t.Fatalf("overwrite: %v", err)
		}
		value, found, err := store.GetRecord(ctx, ports.BucketElections, "1")
		if err != nil || !found {
			t.Fatalf("get: found=%v err=%v", found, err)
		}
		if !bytes.Equal(value, []byte(`{"v":2}`)) {
			t.Fatalf("expected overwritten value, got %s", value)
		}
	})

	t.Run("buckets are isolated", func(t *testing.T) {
		if err := store.PutRecord(ctx, ports.BucketVoters, "1", []byte(`[]`)); err != nil {
			t.Fatalf("put: %v", err)
		}
		value, _, err := store.GetRecord(ctx, ports.BucketElections, "1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if bytes.Equal(value, []byte(`[]`)) {
			t.Fatalf("voters write leaked into elections bucket")
		}
	})

	t.Run("list is sorted by key", func(t *testing.T) {
		for _, key := range []string{"b", "c", "a"} {
			if err := store.PutRecord(ctx, ports.BucketOutbox, key, []byte(key)); err != nil {
				t.Fatalf("put %s: %v", key, err)
			}
		}
		records, err := store.ListRecords(ctx, ports.BucketOutbox)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(records) != 3 || records[0].Key != "a" || records[1].Key != "b" || records[2].Key != "c" {
			t.Fatalf("unexpected listing %+v", records)
		}
		if records[0].Bucket != ports.BucketOutbox || string(records[0].Value) != "a" {
			t.Fatalf("unexpected record %+v", records[0])
		}
	})

	t.Run("batch applies puts and deletes", func(t *testing.T) {
		err := store.ApplyBatch(ctx, []ports.RecordWrite{
			{Bucket: ports.BucketCandidates, Key: "7", Value: []byte(`[]`)},
			{Bucket: ports.BucketOutbox, Key: "a", Delete: true},
			{Bucket: ports.BucketState, Key: ports.StateKey, Value: []byte(`{"next_election_id":8}`)},
		})
		if err != nil {
			t.Fatalf("apply batch: %v", err)
		}
		if _, found, _ := store.GetRecord(ctx, ports.BucketOutbox, "a"); found {
			t.Fatalf("expected deleted record")
		}
		if _, found, _ := store.GetRecord(ctx, ports.BucketCandidates, "7"); !found {
			t.Fatalf("expected batched candidates record")
		}
		if _, found, _ := store.GetRecord(ctx, ports.BucketState, ports.StateKey); !found {
			t.Fatalf("expected batched state record")
		}
	})

	t.Run("delete missing is not an error", func(t *testing.T) {
		if err := store.DeleteRecord(ctx, ports.BucketElections, "never"); err != nil {
			t.Fatalf("delete missing: %v", err)
		}
	})

	t.Run("snapshot read returns present refs only", func(t *testing.T) {
		snapshots, ok := store.(ports.SnapshotRecordStore)
		if !ok {
			t.Skip("backend has no snapshot reads")
		}
		if err := store.ApplyBatch(ctx, []ports.RecordWrite{
			{Bucket: ports.BucketElections, Key: "9", Value: []byte(`{"id":9}`)},
			{Bucket: ports.BucketVoters, Key: "9", Value: []byte(`[]`)},
		}); err != nil {
			t.Fatalf("apply batch: %v", err)
		}
		values, err := snapshots.GetRecords(ctx, []ports.RecordRef{
			{Bucket: ports.BucketElections, Key: "9"},
			{Bucket: ports.BucketCandidates, Key: "9"},
			{Bucket: ports.BucketVoters, Key: " 9 "},
		})
		if err != nil {
			t.Fatalf("get records: %v", err)
		}
		if len(values) != 2 {
			t.Fatalf("expected 2 records, got %d", len(values))
		}
		if got := values[ports.RecordRef{Bucket: ports.BucketElections, Key: "9"}]; !bytes.Equal(got, []byte(`{"id":9}`)) {
			t.Fatalf("unexpected election value %s", got)
		}
		if _, found := values[ports.RecordRef{Bucket: ports.BucketVoters, Key: "9"}]; !found {
			t.Fatalf("expected voters record under trimmed ref")
		}
	})
}
