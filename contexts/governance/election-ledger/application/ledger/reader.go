package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"electionledger/contexts/governance/election-ledger/domain/entities"
	"electionledger/contexts/governance/election-ledger/ports"
)

type recordGetter interface {
	GetRecord(ctx context.Context, bucket string, key string) ([]byte, bool, error)
}

// Reader decodes committed ledger records for the query side.
type Reader struct {
	Records ports.RecordStore
}

func (r Reader) State(ctx context.Context) (entities.LedgerState, bool, error) {
	return loadState(ctx, r.Records)
}

func (r Reader) Election(ctx context.Context, electionID int64) (entities.Election, bool, error) {
	return loadElection(ctx, r.Records, electionID)
}

func (r Reader) Candidates(ctx context.Context, electionID int64) ([]entities.Candidate, bool, error) {
	return loadCandidates(ctx, r.Records, electionID)
}

func (r Reader) Voters(ctx context.Context, electionID int64) ([]entities.Voter, bool, error) {
	return loadVoters(ctx, r.Records, electionID)
}

// Elections returns every stored election ordered by id.
func (r Reader) Elections(ctx context.Context) ([]entities.Election, error) {
	records, err := r.Records.ListRecords(ctx, ports.BucketElections)
	if err != nil {
		return nil, err
	}
	items := make([]entities.Election, 0, len(records))
	for _, record := range records {
		var row electionRecord
		if err := json.Unmarshal(record.Value, &row); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", record.Bucket, record.Key, err)
		}
		items = append(items, electionFromRecord(row))
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].ID < items[j].ID
	})
	return items, nil
}

// ElectionSnapshot is one election record and both of its ledgers as of a
// single point in time.
type ElectionSnapshot struct {
	Election        entities.Election
	Candidates      []entities.Candidate
	CandidatesFound bool
	Voters          []entities.Voter
	VotersFound     bool
}

const snapshotAttempts = 3

// Snapshot reads an election together with its ledgers. Stores without
// native snapshot reads are re-read until the election record is unchanged
// across the ledger reads.
func (r Reader) Snapshot(ctx context.Context, electionID int64) (ElectionSnapshot, bool, error) {
	key := ElectionKey(electionID)
	refs := []ports.RecordRef{
		{Bucket: ports.BucketElections, Key: key},
		{Bucket: ports.BucketCandidates, Key: key},
		{Bucket: ports.BucketVoters, Key: key},
	}
	if snapshots, ok := r.Records.(ports.SnapshotRecordStore); ok {
		values, err := snapshots.GetRecords(ctx, refs)
		if err != nil {
			return ElectionSnapshot{}, false, err
		}
		return decodeSnapshot(ctx, snapshotGetter(values), electionID)
	}

	for attempt := 0; attempt < snapshotAttempts; attempt++ {
		values := make(snapshotGetter, len(refs))
		for _, ref := range refs {
			raw, found, err := r.Records.GetRecord(ctx, ref.Bucket, ref.Key)
			if err != nil {
				return ElectionSnapshot{}, false, err
			}
			if found {
				values[ref] = raw
			}
		}
		after, found, err := r.Records.GetRecord(ctx, ports.BucketElections, key)
		if err != nil {
			return ElectionSnapshot{}, false, err
		}
		before, had := values[refs[0]]
		if found == had && bytes.Equal(before, after) {
			return decodeSnapshot(ctx, values, electionID)
		}
	}
	return ElectionSnapshot{}, false, fmt.Errorf("election %d kept changing during %d snapshot reads", electionID, snapshotAttempts)
}

type snapshotGetter map[ports.RecordRef][]byte

func (g snapshotGetter) GetRecord(_ context.Context, bucket string, key string) ([]byte, bool, error) {
	value, ok := g[ports.RecordRef{Bucket: bucket, Key: key}]
	return value, ok, nil
}

func decodeSnapshot(ctx context.Context, getter snapshotGetter, electionID int64) (ElectionSnapshot, bool, error) {
	election, found, err := loadElection(ctx, getter, electionID)
	if err != nil || !found {
		return ElectionSnapshot{}, false, err
	}
	snapshot := ElectionSnapshot{Election: election}
	if snapshot.Candidates, snapshot.CandidatesFound, err = loadCandidates(ctx, getter, electionID); err != nil {
		return ElectionSnapshot{}, false, err
	}
	if snapshot.Voters, snapshot.VotersFound, err = loadVoters(ctx, getter, electionID); err != nil {
		return ElectionSnapshot{}, false, err
	}
	return snapshot, true, nil
}

func loadJSON(ctx context.Context, getter recordGetter, bucket string, key string, target any) (bool, error) {
	raw, found, err := getter.GetRecord(ctx, bucket, key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return false, fmt.Errorf("decode %s/%s: %w", bucket, key, err)
	}
	return true, nil
}

func loadState(ctx context.Context, getter recordGetter) (entities.LedgerState, bool, error) {
	var row stateRecord
	found, err := loadJSON(ctx, getter, ports.BucketState, ports.StateKey, &row)
	if err != nil || !found {
		return entities.LedgerState{}, false, err
	}
	return stateFromRecord(row), true, nil
}

func loadElection(ctx context.Context, getter recordGetter, electionID int64) (entities.Election, bool, error) {
	var row electionRecord
	found, err := loadJSON(ctx, getter, ports.BucketElections, ElectionKey(electionID), &row)
	if err != nil || !found {
		return entities.Election{}, false, err
	}
	return electionFromRecord(row), true, nil
}

func loadCandidates(ctx context.Context, getter recordGetter, electionID int64) ([]entities.Candidate, bool, error) {
	var rows []candidateRecord
	found, err := loadJSON(ctx, getter, ports.BucketCandidates, ElectionKey(electionID), &rows)
	if err != nil || !found {
		return nil, false, err
	}
	return candidatesFromRecords(rows), true, nil
}

func loadVoters(ctx context.Context, getter recordGetter, electionID int64) ([]entities.Voter, bool, error) {
	var rows []voterRecord
	found, err := loadJSON(ctx, getter, ports.BucketVoters, ElectionKey(electionID), &rows)
	if err != nil || !found {
		return nil, false, err
	}
	return votersFromRecords(rows), true, nil
}
