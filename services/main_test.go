package services

import (
	"log"
	"os"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/masapp/restaurant-backend/models"
	"github.com/masapp/restaurant-backend/utils"
)

func TestMain(m *testing.M) {
	utils.InitLogger()
	os.Exit(m.Run())
}

// setupTestDB opens an in-memory sqlite with the full schema and seeds one
// restaurant with a small menu: nasi goreng (food, 45), es teh (drink, 15).
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to open in-memory sqlite: %v", err)
	}

	err = db.AutoMigrate(
		&models.Restaurant{},
		&models.User{},
		&models.Menu{},
		&models.TableSession{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.Notification{},
		&models.DBChange{},
	)
	if err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	db.Create(&models.Restaurant{Name: "Warung Test", Slug: "warung-test", Active: true})
	db.Create(&models.Menu{
		RestaurantID: 1,
		Name:         "Nasi Goreng",
		Price:        45,
		Category:     models.MenuCategoryFood,
		Available:    true,
	})
	db.Create(&models.Menu{
		RestaurantID: 1,
		Name:         "Es Teh",
		Price:        15,
		Category:     models.MenuCategoryDrink,
		Available:    true,
	})

	return db
}

// placeOrder seeds a session on the table and places 2x nasi goreng plus
// 2x es teh through the order service (total 120).
func placeOrder(t *testing.T, db *gorm.DB, tableNumber int) (*models.Order, *models.TableSession) {
	t.Helper()

	sessions := NewSessionService(db)
	orders := NewOrderService(db, sessions)

	session, err := sessions.Issue(1, tableNumber, time.Hour)
	if err != nil {
		t.Fatalf("failed to issue session: %v", err)
	}

	order, err := orders.CreateOrder(session, []OrderItemRequest{
		{MenuID: 1, Quantity: 2},
		{MenuID: 2, Quantity: 2},
	}, "")
	if err != nil {
		t.Fatalf("failed to create order: %v", err)
	}
	return order, session
}

// foodItem / drinkItem pick the line items back out of an order.
func foodItem(t *testing.T, order *models.Order) *models.OrderItem {
	t.Helper()
	for i := range order.Items {
		if order.Items[i].IsFood {
			return &order.Items[i]
		}
	}
	t.Fatal("order has no food item")
	return nil
}

func drinkItem(t *testing.T, order *models.Order) *models.OrderItem {
	t.Helper()
	for i := range order.Items {
		if !order.Items[i].IsFood {
			return &order.Items[i]
		}
	}
	t.Fatal("order has no drink item")
	return nil
}
