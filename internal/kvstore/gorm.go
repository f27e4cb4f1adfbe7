package kvstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KVEntry is the persistence row for the Postgres-backed store
type KVEntry struct {
	Key       string     `gorm:"type:varchar(255);primaryKey"`
	Value     []byte     `gorm:"type:bytea;not null"`
	ExpiresAt *time.Time `gorm:"index"`
	UpdatedAt time.Time
}

func (KVEntry) TableName() string { return "kv_entries" }

// GormStore persists entries in Postgres so cached drafts and registries
// survive restarts.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, now: time.Now}
}

func (s *GormStore) Get(ctx context.Context, key string) ([]byte, error) {
	var entry KVEntry
	err := s.db.WithContext(ctx).First(&entry, "key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if entry.ExpiresAt != nil && s.now().After(*entry.ExpiresAt) {
		// Expired rows are dropped on read; a background sweep is unnecessary
		// at this volume.
		s.db.WithContext(ctx).Delete(&KVEntry{}, "key = ?", key)
		return nil, ErrNotFound
	}

	return entry.Value, nil
}

func (s *GormStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := KVEntry{Key: key, Value: value}
	if ttl > 0 {
		expires := s.now().Add(ttl)
		entry.ExpiresAt = &expires
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
	}).Create(&entry).Error
}

func (s *GormStore) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Delete(&KVEntry{}, "key = ?", key).Error
}
