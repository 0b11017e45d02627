package models

import "time"

// Payment methods and modes. Mode only affects notification routing, never
// the ledger invariants.
const (
	PaymentMethodCash   = "cash"
	PaymentMethodCard   = "card"
	PaymentMethodMobile = "mobile"

	PaymentModeSystem = "system" // diner pays from their own device
	PaymentModeManual = "manual" // staff-recorded
)

// Payment is one row of the append-only ledger. Rows are never mutated or
// deleted once written.
type Payment struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	OrderID      uint    `gorm:"not null;index" json:"order_id"`
	Order        Order   `gorm:"foreignKey:OrderID" json:"-"`
	RestaurantID uint    `gorm:"not null;index" json:"restaurant_id"`
	TableNumber  int     `gorm:"not null;index" json:"table_number"`
	Amount       float64 `gorm:"type:decimal(10,2);not null" json:"amount"`
	Method       string  `gorm:"type:varchar(20);not null" json:"method"`
	Mode         string  `gorm:"type:varchar(20);not null;default:'manual'" json:"mode"`
	PayerName    string  `gorm:"type:varchar(255)" json:"payer_name,omitempty"`
	// Items is a JSON snapshot of the covered item refs for split bills.
	Items     string `gorm:"type:text" json:"items,omitempty"`
	IsPartial bool   `gorm:"not null" json:"is_partial"`
	// RemainingAmount snapshots the order balance right after this payment.
	RemainingAmount float64 `gorm:"type:decimal(10,2);not null" json:"remaining_amount"`
	// ReferenceID doubles as the idempotency key: a retried record-payment
	// call with the same key returns this row instead of charging twice.
	ReferenceID string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"reference_id"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}
