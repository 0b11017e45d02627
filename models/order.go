package models

import "time"

type Order struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	RestaurantID uint          `gorm:"not null;index" json:"restaurant_id"`
	TableNumber  int           `gorm:"not null;index" json:"table_number"`
	SessionID    *uint         `gorm:"index" json:"session_id,omitempty"`
	Session      *TableSession `gorm:"foreignKey:SessionID" json:"-"`
	Status       OrderStatus   `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	TotalAmount  float64       `gorm:"type:decimal(10,2);not null;default:0.00" json:"total_amount"`
	Notes        string        `gorm:"type:text" json:"notes"`
	CreatedAt    time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"not null" json:"updated_at"`
	Items        []OrderItem   `gorm:"foreignKey:OrderID" json:"items"`
}

// RecalcTotal recomputes TotalAmount from the non-cancelled items. The total
// is always derived, never mutated on its own.
func (o *Order) RecalcTotal() {
	var total float64
	for _, it := range o.Items {
		if it.Status == ItemStatusCancelled {
			continue
		}
		total += it.Subtotal()
	}
	o.TotalAmount = total
}
