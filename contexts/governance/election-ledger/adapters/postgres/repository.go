package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"electionledger/contexts/governance/election-ledger/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository stores ledger records in one table keyed by (bucket, key).
// ApplyBatch runs inside a single database transaction.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Migrate creates the record table when it does not exist yet.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&recordModel{}); err != nil {
		return r.logError("election_repo_migrate_failed", err)
	}
	return nil
}

func (r *Repository) GetRecord(ctx context.Context, bucket string, key string) ([]byte, bool, error) {
	var row recordModel
	err := r.db.WithContext(ctx).
		Where("bucket = ? AND key = ?", strings.TrimSpace(bucket), strings.TrimSpace(key)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || isUndefinedTable(err) {
			return nil, false, nil
		}
		return nil, false, r.logError("election_repo_get_record_failed", err,
			"bucket", strings.TrimSpace(bucket),
			"key", strings.TrimSpace(key),
		)
	}
	return row.Value, true, nil
}

// GetRecords fetches every ref with a single statement, so all rows come from
// the same MVCC snapshot.
func (r *Repository) GetRecords(ctx context.Context, refs []ports.RecordRef) (map[ports.RecordRef][]byte, error) {
	out := make(map[ports.RecordRef][]byte, len(refs))
	if len(refs) == 0 {
		return out, nil
	}
	pairs := make([][]any, 0, len(refs))
	for _, ref := range refs {
		pairs = append(pairs, []any{strings.TrimSpace(ref.Bucket), strings.TrimSpace(ref.Key)})
	}
	var rows []recordModel
	if err := r.db.WithContext(ctx).
		Where("(bucket, key) IN ?", pairs).
		Find(&rows).Error; err != nil {
		if isUndefinedTable(err) {
			return out, nil
		}
		return nil, r.logError("election_repo_get_records_failed", err, "ref_count", len(refs))
	}
	for _, row := range rows {
		out[ports.RecordRef{Bucket: row.Bucket, Key: row.Key}] = row.Value
	}
	return out, nil
}

func (r *Repository) PutRecord(ctx context.Context, bucket string, key string, value []byte) error {
	return r.putRecord(r.db.WithContext(ctx), bucket, key, value)
}

func (r *Repository) DeleteRecord(ctx context.Context, bucket string, key string) error {
	return r.deleteRecord(r.db.WithContext(ctx), bucket, key)
}

func (r *Repository) ListRecords(ctx context.Context, bucket string) ([]ports.Record, error) {
	var rows []recordModel
	if err := r.db.WithContext(ctx).
		Where("bucket = ?", strings.TrimSpace(bucket)).
		Order("key ASC").
		Find(&rows).Error; err != nil {
		if isUndefinedTable(err) {
			return []ports.Record{}, nil
		}
		return nil, r.logError("election_repo_list_records_failed", err,
			"bucket", strings.TrimSpace(bucket),
		)
	}
	items := make([]ports.Record, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toRecord())
	}
	return items, nil
}

func (r *Repository) ApplyBatch(ctx context.Context, writes []ports.RecordWrite) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, write := range writes {
			var err error
			if write.Delete {
				err = r.deleteRecord(tx, write.Bucket, write.Key)
			} else {
				err = r.putRecord(tx, write.Bucket, write.Key, write.Value)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) putRecord(tx *gorm.DB, bucket string, key string, value []byte) error {
	row := recordModel{
		Bucket:    strings.TrimSpace(bucket),
		Key:       strings.TrimSpace(key),
		Value:     append([]byte(nil), value...),
		UpdatedAt: time.Now().UTC(),
	}
	create := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "bucket"}, {Name: "key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"value":      row.Value,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("election_repo_put_record_failed", create.Error,
			"bucket", row.Bucket,
			"key", row.Key,
			"unique_violation", isUniqueViolation(create.Error),
		)
	}
	return nil
}

func (r *Repository) deleteRecord(tx *gorm.DB, bucket string, key string) error {
	err := tx.
		Where("bucket = ? AND key = ?", strings.TrimSpace(bucket), strings.TrimSpace(key)).
		Delete(&recordModel{}).
		Error
	if err != nil {
		return r.logError("election_repo_delete_record_failed", err,
			"bucket", strings.TrimSpace(bucket),
			"key", strings.TrimSpace(key),
		)
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "governance/election-ledger",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("election repository operation failed", fields...)
	return err
}

type recordModel struct {
	Bucket    string    `gorm:"column:bucket;primaryKey;size:32"`
	Key       string    `gorm:"column:key;primaryKey;size:191"`
	Value     []byte    `gorm:"column:value;type:bytea;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (recordModel) TableName() string {
	return "election_ledger_records"
}

func (m recordModel) toRecord() ports.Record {
	return ports.Record{
		Bucket: m.Bucket,
		Key:    m.Key,
		Value:  m.Value,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}

var _ ports.AtomicRecordStore = (*Repository)(nil)
var _ ports.SnapshotRecordStore = (*Repository)(nil)
