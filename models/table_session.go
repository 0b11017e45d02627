package models

import "time"

// TableSession binds a physical table to one ordering/payment cycle via a QR
// token. At most one row per (restaurant_id, table_number) is active at a
// time; rows are deactivated on settlement or expiry, never deleted.
type TableSession struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Token        string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"token"`
	RestaurantID uint       `gorm:"not null;index:idx_session_table" json:"restaurant_id"`
	Restaurant   Restaurant `gorm:"foreignKey:RestaurantID" json:"-"`
	TableNumber  int        `gorm:"not null;index:idx_session_table" json:"table_number"`
	IssuedAt     time.Time  `gorm:"not null" json:"issued_at"`
	ExpiresAt    time.Time  `gorm:"not null" json:"expires_at"`
	Active       bool       `gorm:"not null;default:true;index" json:"active"`
	CreatedAt    time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null" json:"updated_at"`
}

// Expired reports whether the validity window has passed. Expiry alone does
// not flip Active; validation fails closed either way.
func (s *TableSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Valid reports whether the session may still identify a table.
func (s *TableSession) Valid(now time.Time) bool {
	return s.Active && !s.Expired(now)
}
