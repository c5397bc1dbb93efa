// Package sqlstore persists session entries in the session_entries table
// through gorm, on either sqlite or postgres.
package sqlstore

import (
	"context"
	"errors"
	"time"

	"github.com/toolshop/storefront/pkg/db/models"
	"github.com/toolshop/storefront/pkg/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is a gorm-backed storage.Backend.
type Store struct {
	conn *gorm.DB
	now  func() time.Time
}

// New wraps an open gorm connection. The session_entries table must exist.
func New(conn *gorm.DB) *Store {
	return &Store{conn: conn, now: time.Now}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var entry models.SessionEntry
	err := s.conn.WithContext(ctx).Where("key = ?", key).Take(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return []byte(entry.Value), nil
}

// Set upserts the entry.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	entry := models.SessionEntry{Key: key, Value: string(value), UpdatedAt: s.now().UTC()}
	return s.conn.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.conn.WithContext(ctx).Where("key = ?", key).Delete(&models.SessionEntry{}).Error
}

// PurgeBefore removes entries not written since cutoff and returns how many
// were deleted. Retained entries such as order logs are never purged.
func (s *Store) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	q := s.conn.WithContext(ctx).Where("updated_at < ?", cutoff.UTC())
	for _, k := range storage.RetainedKeys() {
		q = q.Where("key <> ? AND key NOT LIKE ?", string(k), "%:"+string(k))
	}
	res := q.Delete(&models.SessionEntry{})
	return res.RowsAffected, res.Error
}
