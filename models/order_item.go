package models

import "time"

type OrderItem struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	OrderID uint `gorm:"not null;index" json:"order_id"`
	// Omitting Order field from JSON to avoid recursive nesting
	Order  Order `gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	MenuID uint  `gorm:"not null" json:"menu_id"`
	// Name, Price and IsFood are snapshots taken from the menu at order time
	// so later menu edits do not rewrite open orders.
	Name      string     `gorm:"type:varchar(255);not null" json:"name"`
	Quantity  int        `gorm:"not null" json:"quantity"`
	Price     float64    `gorm:"type:decimal(10,2);not null" json:"price"`
	// No default tag here: gorm would skip the zero value on insert and
	// store every drink (IsFood=false) as food, corrupting the rollup.
	IsFood    bool       `gorm:"not null" json:"is_food"`
	Notes     string     `gorm:"type:text" json:"notes"`
	Status    ItemStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null" json:"updated_at"`
}

func (i *OrderItem) Subtotal() float64 {
	return i.Price * float64(i.Quantity)
}
