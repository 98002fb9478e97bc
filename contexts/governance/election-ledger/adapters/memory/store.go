package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"electionledger/contexts/governance/election-ledger/ports"

	"github.com/google/uuid"
)

// Store keeps every bucket in process memory. ApplyBatch holds the write lock
// for the whole batch, which makes it atomic to every other caller.
type Store struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte
	now     func() time.Time
}

func NewStore() *Store {
	return &Store{
		buckets: make(map[string]map[string][]byte),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// NewStoreWithClock pins the store clock, mostly for tests.
func NewStoreWithClock(now func() time.Time) *Store {
	store := NewStore()
	if now != nil {
		store.now = now
	}
	return store
}

func (s *Store) GetRecord(_ context.Context, bucket string, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.buckets[strings.TrimSpace(bucket)][strings.TrimSpace(key)]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

// GetRecords reads every ref under one read lock.
func (s *Store) GetRecords(_ context.Context, refs []ports.RecordRef) (map[ports.RecordRef][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[ports.RecordRef][]byte, len(refs))
	for _, ref := range refs {
		ref = ports.RecordRef{Bucket: strings.TrimSpace(ref.Bucket), Key: strings.TrimSpace(ref.Key)}
		if value, ok := s.buckets[ref.Bucket][ref.Key]; ok {
			out[ref] = append([]byte(nil), value...)
		}
	}
	return out, nil
}

func (s *Store) PutRecord(_ context.Context, bucket string, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(bucket, key, value)
	return nil
}

func (s *Store) DeleteRecord(_ context.Context, bucket string, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets[strings.TrimSpace(bucket)], strings.TrimSpace(key))
	return nil
}

func (s *Store) ListRecords(_ context.Context, bucket string) ([]ports.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bucket = strings.TrimSpace(bucket)
	items := make([]ports.Record, 0, len(s.buckets[bucket]))
	for key, value := range s.buckets[bucket] {
		items = append(items, ports.Record{
			Bucket: bucket,
			Key:    key,
			Value:  append([]byte(nil), value...),
		})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Key < items[j].Key
	})
	return items, nil
}

func (s *Store) ApplyBatch(ctx context.Context, writes []ports.RecordWrite) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, write := range writes {
		if write.Delete {
			delete(s.buckets[strings.TrimSpace(write.Bucket)], strings.TrimSpace(write.Key))
			continue
		}
		s.putLocked(write.Bucket, write.Key, write.Value)
	}
	return nil
}

func (s *Store) putLocked(bucket string, key string, value []byte) {
	bucket = strings.TrimSpace(bucket)
	items, ok := s.buckets[bucket]
	if !ok {
		items = make(map[string][]byte)
		s.buckets[bucket] = items
	}
	items[strings.TrimSpace(key)] = append([]byte(nil), value...)
}

func (s *Store) Now() time.Time {
	return s.now()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.AtomicRecordStore = (*Store)(nil)
var _ ports.SnapshotRecordStore = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
