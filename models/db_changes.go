package models

import "time"

// DBChange is the change feed the sync monitor polls. Rows are appended by
// DB triggers (see database/migrations/triggers.sql).
type DBChange struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TableName  string    `gorm:"type:varchar(50);not null;index:idx_table_action" json:"table_name"`
	RecordID   int64     `gorm:"not null" json:"record_id"`
	ActionType string    `gorm:"type:varchar(10);not null;index:idx_table_action" json:"action_type"`
	ChangedAt  time.Time `gorm:"not null" json:"changed_at"`
	Processed  bool      `gorm:"default:false;index:idx_processed" json:"processed"`
}
