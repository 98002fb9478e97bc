package redisadapter

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"electionledger/contexts/governance/election-ledger/ports"

	"github.com/go-redis/redis/v8"
)

const defaultKeyPrefix = "electionledger:"

// Store keeps each bucket in one Redis hash. Batches run inside MULTI/EXEC so
// other clients never observe half of a batch.
type Store struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

func NewStore(client *redis.Client, prefix string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &Store{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

func (s *Store) hashKey(bucket string) string {
	return s.prefix + strings.TrimSpace(bucket)
}

func (s *Store) GetRecord(ctx context.Context, bucket string, key string) ([]byte, bool, error) {
	value, err := s.client.HGet(ctx, s.hashKey(bucket), strings.TrimSpace(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, s.logError("election_redis_get_record_failed", err,
			"bucket", strings.TrimSpace(bucket),
			"key", strings.TrimSpace(key),
		)
	}
	return value, true, nil
}

// GetRecords issues every HGET inside one MULTI/EXEC.
func (s *Store) GetRecords(ctx context.Context, refs []ports.RecordRef) (map[ports.RecordRef][]byte, error) {
	out := make(map[ports.RecordRef][]byte, len(refs))
	if len(refs) == 0 {
		return out, nil
	}
	cmds := make([]*redis.StringCmd, len(refs))
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, ref := range refs {
			cmds[i] = pipe.HGet(ctx, s.hashKey(ref.Bucket), strings.TrimSpace(ref.Key))
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, s.logError("election_redis_get_records_failed", err, "ref_count", len(refs))
	}
	for i, ref := range refs {
		value, err := cmds[i].Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, s.logError("election_redis_get_records_failed", err,
				"bucket", strings.TrimSpace(ref.Bucket),
				"key", strings.TrimSpace(ref.Key),
			)
		}
		out[ports.RecordRef{Bucket: strings.TrimSpace(ref.Bucket), Key: strings.TrimSpace(ref.Key)}] = value
	}
	return out, nil
}

func (s *Store) PutRecord(ctx context.Context, bucket string, key string, value []byte) error {
	if err := s.client.HSet(ctx, s.hashKey(bucket), strings.TrimSpace(key), value).Err(); err != nil {
		return s.logError("election_redis_put_record_failed", err,
			"bucket", strings.TrimSpace(bucket),
			"key", strings.TrimSpace(key),
		)
	}
	return nil
}

func (s *Store) DeleteRecord(ctx context.Context, bucket string, key string) error {
	if err := s.client.HDel(ctx, s.hashKey(bucket), strings.TrimSpace(key)).Err(); err != nil {
		return s.logError("election_redis_delete_record_failed", err,
			"bucket", strings.TrimSpace(bucket),
			"key", strings.TrimSpace(key),
		)
	}
	return nil
}

func (s *Store) ListRecords(ctx context.Context, bucket string) ([]ports.Record, error) {
	bucket = strings.TrimSpace(bucket)
	values, err := s.client.HGetAll(ctx, s.hashKey(bucket)).Result()
	if err != nil {
		return nil, s.logError("election_redis_list_records_failed", err, "bucket", bucket)
	}
	items := make([]ports.Record, 0, len(values))
	for key, value := range values {
		items = append(items, ports.Record{
			Bucket: bucket,
			Key:    key,
			Value:  []byte(value),
		})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Key < items[j].Key
	})
	return items, nil
}

func (s *Store) ApplyBatch(ctx context.Context, writes []ports.RecordWrite) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, write := range writes {
			if write.Delete {
				pipe.HDel(ctx, s.hashKey(write.Bucket), strings.TrimSpace(write.Key))
				continue
			}
			pipe.HSet(ctx, s.hashKey(write.Bucket), strings.TrimSpace(write.Key), write.Value)
		}
		return nil
	})
	if err != nil {
		return s.logError("election_redis_apply_batch_failed", err, "write_count", len(writes))
	}
	return nil
}

func (s *Store) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "governance/election-ledger",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	s.logger.Error("election redis operation failed", fields...)
	return err
}

var _ ports.AtomicRecordStore = (*Store)(nil)
var _ ports.SnapshotRecordStore = (*Store)(nil)
