package models

import "time"

// SessionEntry is one persisted session collection, keyed by
// "<namespace>:<session>:<entry>".
type SessionEntry struct {
	Key       string    `gorm:"column:key;primaryKey;size:255"`
	Value     string    `gorm:"column:value;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// TableName pins the table created by the session_entries migration.
func (SessionEntry) TableName() string {
	return "session_entries"
}
