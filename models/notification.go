package models

import "time"

type Notification struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	RestaurantID uint      `gorm:"not null;index" json:"restaurant_id"`
	TableNumber  int       `json:"table_number"`
	OrderID      *uint     `gorm:"index" json:"order_id,omitempty"`
	Event        string    `gorm:"type:varchar(50);not null" json:"event"`
	Message      string    `gorm:"type:text;not null" json:"message"`
	Amount       float64   `gorm:"type:decimal(10,2)" json:"amount"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}
