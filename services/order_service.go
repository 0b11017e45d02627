package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/masapp/restaurant-backend/events"
	"github.com/masapp/restaurant-backend/models"
)

var (
	ErrOrderCancelled   = errors.New("order is cancelled")
	ErrEmptyOrder       = errors.New("order must contain at least one item")
	ErrOrderHasPayments = errors.New("order has recorded payments, settle or refund instead of cancelling")
)

// OrderItemRequest is one line of an order placement or amendment.
type OrderItemRequest struct {
	MenuID   uint   `json:"menu_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
	Notes    string `json:"notes"`
}

// OrderService owns every order mutation. All transitions are validated
// against a fresh read inside the transaction that commits them, never
// against the state a polling panel observed when it issued the request.
type OrderService struct {
	db       *gorm.DB
	sessions *SessionService
}

func NewOrderService(db *gorm.DB, sessions *SessionService) *OrderService {
	return &OrderService{db: db, sessions: sessions}
}

// CreateOrder places a new pending order for a validated table session,
// snapshotting name/price/category from the menu per item.
func (s *OrderService) CreateOrder(session *models.TableSession, items []OrderItemRequest, notes string) (*models.Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}

	order := models.Order{
		RestaurantID: session.RestaurantID,
		TableNumber:  session.TableNumber,
		SessionID:    &session.ID,
		Status:       models.OrderStatusPending,
		Notes:        notes,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		for _, req := range items {
			if req.Quantity <= 0 {
				return fmt.Errorf("quantity must be positive for menu %d", req.MenuID)
			}
			var menu models.Menu
			if err := tx.Where("restaurant_id = ? AND available = ?", session.RestaurantID, true).
				First(&menu, req.MenuID).Error; err != nil {
				return fmt.Errorf("menu item %d not available: %w", req.MenuID, err)
			}

			item := models.OrderItem{
				OrderID:  order.ID,
				MenuID:   menu.ID,
				Name:     menu.Name,
				Quantity: req.Quantity,
				Price:    menu.Price,
				IsFood:   menu.IsFood(),
				Notes:    req.Notes,
				Status:   models.ItemStatusPending,
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
			order.Items = append(order.Items, item)
		}

		order.RecalcTotal()
		return tx.Model(&order).Update("total_amount", order.TotalAmount).Error
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Order %d created for restaurant %d table %d (total %.2f)",
		order.ID, order.RestaurantID, order.TableNumber, order.TotalAmount)
	events.BroadcastOrderUpdate(order)
	events.BroadcastKitchenUpdate(order)

	return &order, nil
}

// TransitionItem advances one item toward target and re-rolls the order
// aggregate. Re-applying a transition the item already passed is a no-op, so
// two panels racing on the same stale snapshot converge instead of erroring.
func (s *OrderService) TransitionItem(itemID uint, target models.ItemStatus) (*models.Order, error) {
	var order models.Order

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var item models.OrderItem
		if err := tx.First(&item, itemID).Error; err != nil {
			return err
		}
		if err := tx.Preload("Items").First(&order, item.OrderID).Error; err != nil {
			return err
		}
		// Completed orders still accept monotonic item progress (a drink can
		// be served after the kitchen rollup finished); cancelled ones do not.
		if order.Status == models.OrderStatusCancelled {
			return &models.InvalidTransitionError{From: string(order.Status), To: string(target)}
		}

		next, changed, err := models.NextItemStatus(item.Status, target)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}

		item.Status = next
		item.UpdatedAt = time.Now()
		if err := tx.Save(&item).Error; err != nil {
			return err
		}

		for i := range order.Items {
			if order.Items[i].ID == item.ID {
				order.Items[i].Status = next
			}
		}
		return s.applyRollup(tx, &order)
	})
	if err != nil {
		return nil, err
	}

	events.BroadcastOrderUpdate(order)
	return &order, nil
}

// BulkTransition applies one item step toward target to every currently
// eligible item: "prepare whole order" and "complete whole order". Items
// already at or past the target are skipped, so re-invoking after partial
// completion only touches the remainder.
func (s *OrderService) BulkTransition(orderID uint, target models.ItemStatus) (*models.Order, error) {
	var order models.Order

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").First(&order, orderID).Error; err != nil {
			return err
		}
		if order.Status == models.OrderStatusCancelled {
			return &models.InvalidTransitionError{From: string(order.Status), To: string(target)}
		}

		now := time.Now()
		for i := range order.Items {
			item := &order.Items[i]
			if item.Status == models.ItemStatusCancelled {
				continue
			}
			if item.Status.Rank() != target.Rank()-1 {
				continue
			}
			item.Status = target
			item.UpdatedAt = now
			if err := tx.Save(item).Error; err != nil {
				return err
			}
		}
		return s.applyRollup(tx, &order)
	})
	if err != nil {
		return nil, err
	}

	events.BroadcastOrderUpdate(order)
	return &order, nil
}

// Cancel cancels the order and all of its items. Legal while nothing has
// been served and nothing has been paid; once an item reached served or the
// ledger holds a payment, value changed hands and the request is rejected
// toward the refund/payment path instead.
func (s *OrderService) Cancel(orderID uint) (*models.Order, error) {
	var order models.Order

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").First(&order, orderID).Error; err != nil {
			return err
		}
		if order.Status.Terminal() {
			return &models.InvalidTransitionError{From: string(order.Status), To: string(models.OrderStatusCancelled)}
		}
		for _, item := range order.Items {
			if item.Status == models.ItemStatusServed {
				return &models.InvalidTransitionError{From: string(order.Status), To: string(models.OrderStatusCancelled)}
			}
		}

		// The ledger is append-only, so cancelling a partially paid order
		// would strand the payments above a zeroed total.
		var paid float64
		if err := tx.Model(&models.Payment{}).
			Where("order_id = ?", order.ID).
			Select("COALESCE(SUM(amount), 0)").
			Scan(&paid).Error; err != nil {
			return err
		}
		if paid > 0 {
			return ErrOrderHasPayments
		}

		now := time.Now()
		for i := range order.Items {
			item := &order.Items[i]
			if item.Status == models.ItemStatusCancelled {
				continue
			}
			item.Status = models.ItemStatusCancelled
			item.UpdatedAt = now
			if err := tx.Save(item).Error; err != nil {
				return err
			}
		}

		order.Status = models.OrderStatusCancelled
		order.RecalcTotal()
		order.UpdatedAt = now
		return tx.Save(&order).Error
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Order %d cancelled", order.ID)
	events.BroadcastOrderUpdate(order)
	events.BroadcastStaffNotification(fmt.Sprintf("Order #%d cancelled", order.ID))
	return &order, nil
}

// UpdateStatus applies a direct order-level transition (waiter/cashier
// actions like ready -> completed). Cancellation goes through Cancel so the
// served-item guard always runs.
func (s *OrderService) UpdateStatus(orderID uint, target models.OrderStatus) (*models.Order, error) {
	if target == models.OrderStatusCancelled {
		return s.Cancel(orderID)
	}

	var order models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").First(&order, orderID).Error; err != nil {
			return err
		}
		if order.Status == target {
			return nil
		}
		if !order.Status.CanTransition(target) {
			return &models.InvalidTransitionError{From: string(order.Status), To: string(target)}
		}

		now := time.Now()
		if target == models.OrderStatusCompleted {
			// Completing the order serves out whatever is still open.
			for i := range order.Items {
				item := &order.Items[i]
				if item.Status == models.ItemStatusCancelled || item.Status == models.ItemStatusServed {
					continue
				}
				item.Status = models.ItemStatusServed
				item.UpdatedAt = now
				if err := tx.Save(item).Error; err != nil {
					return err
				}
			}
		}

		order.Status = target
		order.UpdatedAt = now
		return tx.Save(&order).Error
	})
	if err != nil {
		return nil, err
	}

	events.BroadcastOrderUpdate(order)
	return &order, nil
}

// ChangeTable moves an order to another table without touching status or
// items, re-binding it to the destination's active session when one exists.
func (s *OrderService) ChangeTable(orderID uint, tableNumber int) (*models.Order, error) {
	if tableNumber <= 0 {
		return nil, ErrInvalidTableNumber
	}

	var order models.Order
	if err := s.db.Preload("Items").First(&order, orderID).Error; err != nil {
		return nil, err
	}
	if order.Status == models.OrderStatusCancelled {
		return nil, ErrOrderCancelled
	}

	session, err := s.sessions.ActiveSession(order.RestaurantID, tableNumber)
	if err != nil {
		return nil, err
	}

	order.TableNumber = tableNumber
	if session != nil {
		order.SessionID = &session.ID
	} else {
		order.SessionID = nil
	}
	order.UpdatedAt = time.Now()

	if err := s.db.Save(&order).Error; err != nil {
		return nil, err
	}

	log.Printf("Order %d moved to table %d", order.ID, tableNumber)
	events.BroadcastOrderUpdate(order)
	return &order, nil
}

// AddItems appends items to an open order and recomputes the total.
func (s *OrderService) AddItems(orderID uint, items []OrderItemRequest) (*models.Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}

	var order models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").First(&order, orderID).Error; err != nil {
			return err
		}
		if order.Status.Terminal() {
			return &models.InvalidTransitionError{From: string(order.Status), To: "amend"}
		}

		for _, req := range items {
			if req.Quantity <= 0 {
				return fmt.Errorf("quantity must be positive for menu %d", req.MenuID)
			}
			var menu models.Menu
			if err := tx.Where("restaurant_id = ? AND available = ?", order.RestaurantID, true).
				First(&menu, req.MenuID).Error; err != nil {
				return fmt.Errorf("menu item %d not available: %w", req.MenuID, err)
			}
			item := models.OrderItem{
				OrderID:  order.ID,
				MenuID:   menu.ID,
				Name:     menu.Name,
				Quantity: req.Quantity,
				Price:    menu.Price,
				IsFood:   menu.IsFood(),
				Notes:    req.Notes,
				Status:   models.ItemStatusPending,
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
			order.Items = append(order.Items, item)
		}

		order.RecalcTotal()
		if err := tx.Model(&order).Update("total_amount", order.TotalAmount).Error; err != nil {
			return err
		}
		return s.applyRollup(tx, &order)
	})
	if err != nil {
		return nil, err
	}

	events.BroadcastOrderUpdate(order)
	events.BroadcastKitchenUpdate(order)
	return &order, nil
}

// GetOrder loads one order with its items.
func (s *OrderService) GetOrder(orderID uint) (*models.Order, error) {
	var order models.Order
	if err := s.db.Preload("Items").First(&order, orderID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrders lists a restaurant's orders, optionally filtered by status,
// oldest first for wait-time display.
func (s *OrderService) GetOrders(restaurantID uint, status *models.OrderStatus) ([]models.Order, error) {
	q := s.db.Preload("Items").Where("restaurant_id = ?", restaurantID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}

	var orders []models.Order
	if err := q.Order("created_at asc").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// applyRollup recomputes the aggregate status from item statuses and
// persists it when it moved. Runs after every item mutation, inside the same
// transaction.
func (s *OrderService) applyRollup(tx *gorm.DB, order *models.Order) error {
	roll := models.RollupStatus(order.Items)
	if roll == order.Status {
		return nil
	}
	order.Status = roll
	order.UpdatedAt = time.Now()
	return tx.Model(order).Updates(map[string]interface{}{
		"status":     order.Status,
		"updated_at": order.UpdatedAt,
	}).Error
}
