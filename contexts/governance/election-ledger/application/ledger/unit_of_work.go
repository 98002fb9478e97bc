package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"electionledger/contexts/governance/election-ledger/domain/entities"
	domainerrors "electionledger/contexts/governance/election-ledger/domain/errors"
	"electionledger/contexts/governance/election-ledger/ports"
)

type recordKey struct {
	bucket string
	key    string
}

// UnitOfWork stages writes across buckets and commits them as one batch.
// Reads observe staged writes first. A UnitOfWork is not safe for concurrent
// use; callers serialize operations around it.
type UnitOfWork struct {
	store  ports.RecordStore
	staged map[recordKey]ports.RecordWrite
	order  []recordKey
}

func Begin(store ports.RecordStore) *UnitOfWork {
	return &UnitOfWork{
		store:  store,
		staged: make(map[recordKey]ports.RecordWrite),
	}
}

func (u *UnitOfWork) GetRecord(ctx context.Context, bucket string, key string) ([]byte, bool, error) {
	if write, ok := u.staged[recordKey{bucket: bucket, key: key}]; ok {
		if write.Delete {
			return nil, false, nil
		}
		return append([]byte(nil), write.Value...), true, nil
	}
	return u.store.GetRecord(ctx, bucket, key)
}

func (u *UnitOfWork) stage(write ports.RecordWrite) {
	id := recordKey{bucket: write.Bucket, key: write.Key}
	if _, exists := u.staged[id]; !exists {
		u.order = append(u.order, id)
	}
	u.staged[id] = write
}

func (u *UnitOfWork) stageJSON(bucket string, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", bucket, key, err)
	}
	u.stage(ports.RecordWrite{Bucket: bucket, Key: key, Value: payload})
	return nil
}

// Writes returns the staged batch in first-staged order.
func (u *UnitOfWork) Writes() []ports.RecordWrite {
	writes := make([]ports.RecordWrite, 0, len(u.order))
	for _, id := range u.order {
		writes = append(writes, u.staged[id])
	}
	return writes
}

// Commit applies every staged write or none of them. Backends with a native
// batch are used directly; otherwise records are written one at a time and
// restored from their before-images when any write fails.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	writes := u.Writes()
	if len(writes) == 0 {
		return nil
	}
	if atomic, ok := u.store.(ports.AtomicRecordStore); ok {
		return atomic.ApplyBatch(ctx, writes)
	}
	return applyWithRollback(ctx, u.store, writes)
}

type beforeImage struct {
	bucket  string
	key     string
	value   []byte
	existed bool
}

func applyWithRollback(ctx context.Context, store ports.RecordStore, writes []ports.RecordWrite) error {
	applied := make([]beforeImage, 0, len(writes))
	for _, write := range writes {
		previous, existed, err := store.GetRecord(ctx, write.Bucket, write.Key)
		if err != nil {
			return rollback(ctx, store, applied, fmt.Errorf("read before-image %s/%s: %w", write.Bucket, write.Key, err))
		}
		// recorded before the write so a partially applied write is restored too
		applied = append(applied, beforeImage{
			bucket:  write.Bucket,
			key:     write.Key,
			value:   previous,
			existed: existed,
		})
		if write.Delete {
			err = store.DeleteRecord(ctx, write.Bucket, write.Key)
		} else {
			err = store.PutRecord(ctx, write.Bucket, write.Key, write.Value)
		}
		if err != nil {
			return rollback(ctx, store, applied, fmt.Errorf("write %s/%s: %w", write.Bucket, write.Key, err))
		}
	}
	return nil
}

func rollback(ctx context.Context, store ports.RecordStore, applied []beforeImage, cause error) error {
	ctx = context.WithoutCancel(ctx)
	var failures []error
	for i := len(applied) - 1; i >= 0; i-- {
		image := applied[i]
		var err error
		if image.existed {
			err = store.PutRecord(ctx, image.bucket, image.key, image.value)
		} else {
			err = store.DeleteRecord(ctx, image.bucket, image.key)
		}
		if err != nil {
			failures = append(failures, fmt.Errorf("restore %s/%s: %w", image.bucket, image.key, err))
		}
	}
	if len(failures) > 0 {
		return errors.Join(append([]error{domainerrors.ErrRollbackFailed, cause}, failures...)...)
	}
	return cause
}

func (u *UnitOfWork) State(ctx context.Context) (entities.LedgerState, bool, error) {
	return loadState(ctx, u)
}

func (u *UnitOfWork) Election(ctx context.Context, electionID int64) (entities.Election, bool, error) {
	return loadElection(ctx, u, electionID)
}

func (u *UnitOfWork) Candidates(ctx context.Context, electionID int64) ([]entities.Candidate, bool, error) {
	return loadCandidates(ctx, u, electionID)
}

func (u *UnitOfWork) Voters(ctx context.Context, electionID int64) ([]entities.Voter, bool, error) {
	return loadVoters(ctx, u, electionID)
}

func (u *UnitOfWork) PutState(state entities.LedgerState) error {
	return u.stageJSON(ports.BucketState, ports.StateKey, stateToRecord(state))
}

func (u *UnitOfWork) PutElection(election entities.Election) error {
	return u.stageJSON(ports.BucketElections, ElectionKey(election.ID), electionToRecord(election))
}

func (u *UnitOfWork) PutCandidates(electionID int64, candidates []entities.Candidate) error {
	return u.stageJSON(ports.BucketCandidates, ElectionKey(electionID), candidatesToRecords(candidates))
}

func (u *UnitOfWork) PutVoters(electionID int64, voters []entities.Voter) error {
	return u.stageJSON(ports.BucketVoters, ElectionKey(electionID), votersToRecords(voters))
}

// AppendEvent stages envelope into the outbox so it commits with the state
// change that produced it.
func (u *UnitOfWork) AppendEvent(envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", envelope.EventType, err)
	}
	return u.stageJSON(ports.BucketOutbox, envelope.EventID, outboxRecord{
		OutboxID:     envelope.EventID,
		EventType:    envelope.EventType,
		PartitionKey: envelope.PartitionKey,
		Payload:      payload,
		CreatedAt:    envelope.OccurredAt.UTC(),
	})
}
