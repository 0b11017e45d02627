package models

import "time"

// Staff roles. super_admin manages restaurants and is not bound to one.
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleWaiter     = "waiter"
	RoleKitchen    = "kitchen"
	RoleCashier    = "cashier"
)

type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	RestaurantID *uint      `gorm:"index" json:"restaurant_id,omitempty"`
	Restaurant   *Restaurant `gorm:"foreignKey:RestaurantID" json:"-"`
	Name         string     `gorm:"type:varchar(255);not null" json:"name"`
	Email        string     `gorm:"type:varchar(255);unique;not null" json:"email"`
	Password     string     `gorm:"type:varchar(255);not null" json:"-"`
	Role         string     `gorm:"type:varchar(32);not null" json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
