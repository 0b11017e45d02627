package models

import "time"

// Menu categories. The kitchen rollup only tracks food items; drinks are
// served directly by the waiter.
const (
	MenuCategoryFood  = "food"
	MenuCategoryDrink = "drink"
)

type Menu struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	RestaurantID uint       `gorm:"not null;index" json:"restaurant_id"`
	Restaurant   Restaurant `gorm:"foreignKey:RestaurantID" json:"-"`
	Name         string     `gorm:"type:varchar(255);not null" json:"name"`
	Price        float64    `gorm:"type:decimal(10,2);not null" json:"price"`
	Category     string     `gorm:"type:varchar(20);not null;default:'food'" json:"category"`
	Description  string     `gorm:"type:text" json:"description"`
	Available    bool       `gorm:"not null;default:true" json:"available"`
	CreatedAt    time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null" json:"updated_at"`
}

func (m *Menu) IsFood() bool {
	return m.Category == MenuCategoryFood
}
