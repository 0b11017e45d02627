package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/masapp/restaurant-backend/events"
	"github.com/masapp/restaurant-backend/models"
)

// Ledger validation errors: caller-fixable, never retried.
var (
	ErrOverpaymentRejected = errors.New("payment exceeds the remaining order balance")
	ErrAmountItemMismatch  = errors.New("payment amount does not match the covered items")
	ErrInvalidAmount       = errors.New("payment amount must be greater than zero")
	ErrInvalidMethod       = errors.New("payment method must be cash, card or mobile")
)

// PaidItem references an order item (or part of its quantity) covered by a
// split payment.
type PaidItem struct {
	OrderItemID uint `json:"order_item_id" binding:"required"`
	Quantity    int  `json:"quantity" binding:"required,gt=0"`
}

// PaymentRequest is one record-payment call against the ledger.
type PaymentRequest struct {
	OrderID   uint       `json:"order_id" binding:"required"`
	Amount    float64    `json:"amount" binding:"required"`
	Method    string     `json:"method" binding:"required"`
	Mode      string     `json:"mode"`
	PayerName string     `json:"payer_name"`
	Items     []PaidItem `json:"items"`
	// IdempotencyKey lets a timed-out call be retried without double
	// charging; the ledger returns the already-written row instead.
	IdempotencyKey string `json:"idempotency_key"`
}

// PaymentService is the append-only payment ledger. It decides when an order
// is settled and, in that moment, finalizes the order and invalidates the
// table session in the same transaction as the payment row.
type PaymentService struct {
	db       *gorm.DB
	sessions *SessionService
	orders   *OrderService
}

func NewPaymentService(db *gorm.DB, sessions *SessionService, orders *OrderService) *PaymentService {
	return &PaymentService{db: db, sessions: sessions, orders: orders}
}

// RecordPayment validates and appends one payment. Constraints, checked
// against a fresh read of the order and the payment log at commit time:
// 0 < amount <= remaining balance, and when item refs are supplied their
// subtotal must match the amount exactly.
func (s *PaymentService) RecordPayment(req PaymentRequest) (*models.Payment, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	switch req.Method {
	case models.PaymentMethodCash, models.PaymentMethodCard, models.PaymentMethodMobile:
	default:
		return nil, ErrInvalidMethod
	}
	if req.Mode == "" {
		req.Mode = models.PaymentModeManual
	}

	var (
		payment models.Payment
		order   models.Order
		settled bool
		replay  bool
	)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if req.IdempotencyKey != "" {
			var existing models.Payment
			err := tx.Where("reference_id = ?", req.IdempotencyKey).First(&existing).Error
			if err == nil {
				payment = existing
				replay = true
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		if err := tx.Preload("Items").First(&order, req.OrderID).Error; err != nil {
			return fmt.Errorf("order not found: %w", err)
		}
		if order.Status == models.OrderStatusCancelled {
			return ErrOrderCancelled
		}

		var paid float64
		if err := tx.Model(&models.Payment{}).
			Where("order_id = ?", order.ID).
			Select("COALESCE(SUM(amount), 0)").
			Scan(&paid).Error; err != nil {
			return err
		}

		remaining := roundCents(order.TotalAmount - paid)
		amount := roundCents(req.Amount)
		if amount > remaining {
			return ErrOverpaymentRejected
		}

		var itemsJSON string
		if len(req.Items) > 0 {
			covered, err := coveredAmount(&order, req.Items)
			if err != nil {
				return err
			}
			if roundCents(covered) != amount {
				return ErrAmountItemMismatch
			}
			raw, err := json.Marshal(req.Items)
			if err != nil {
				return err
			}
			itemsJSON = string(raw)
		}

		reference := req.IdempotencyKey
		if reference == "" {
			reference = uuid.NewString()
		}

		newRemaining := roundCents(remaining - amount)
		payment = models.Payment{
			OrderID:         order.ID,
			RestaurantID:    order.RestaurantID,
			TableNumber:     order.TableNumber,
			Amount:          amount,
			Method:          req.Method,
			Mode:            req.Mode,
			PayerName:       req.PayerName,
			Items:           itemsJSON,
			IsPartial:       newRemaining > 0,
			RemainingAmount: newRemaining,
			ReferenceID:     reference,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		if newRemaining > 0 {
			return nil
		}
		settled = true
		return s.settle(tx, &order)
	})
	if err != nil {
		return nil, err
	}
	if replay {
		log.Printf("Payment %s replayed for order %d, no new charge", payment.ReferenceID, payment.OrderID)
		return &payment, nil
	}

	s.notify(&payment, &order, settled)
	return &payment, nil
}

// RemainingAmount computes the open balance lazily from the payment log.
// Non-negative by construction: overpayments never reach the log.
func (s *PaymentService) RemainingAmount(orderID uint) (float64, error) {
	var order models.Order
	if err := s.db.First(&order, orderID).Error; err != nil {
		return 0, err
	}

	var paid float64
	if err := s.db.Model(&models.Payment{}).
		Where("order_id = ?", orderID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&paid).Error; err != nil {
		return 0, err
	}
	return roundCents(order.TotalAmount - paid), nil
}

// IsSettled reports whether the order balance reached zero.
func (s *PaymentService) IsSettled(orderID uint) (bool, error) {
	remaining, err := s.RemainingAmount(orderID)
	if err != nil {
		return false, err
	}
	return remaining == 0, nil
}

// PaymentsByTable returns the audit trail for one table, newest first.
func (s *PaymentService) PaymentsByTable(restaurantID uint, tableNumber int) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.Where("restaurant_id = ? AND table_number = ?", restaurantID, tableNumber).
		Order("created_at DESC").
		Find(&payments).Error
	return payments, err
}

// PaymentsByOrder returns the ledger rows for one order, oldest first.
func (s *PaymentService) PaymentsByOrder(orderID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&payments).Error
	return payments, err
}

// settle finalizes a fully paid order inside the payment transaction: the
// order moves to its terminal state and the bound table session deactivates
// in the same commit, so a crash can never leave a paid order with a live
// session or a finalized order missing its payment.
func (s *PaymentService) settle(tx *gorm.DB, order *models.Order) error {
	now := time.Now()
	if !order.Status.Terminal() {
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
		order.Status = models.OrderStatusCompleted
		order.UpdatedAt = now
		if err := tx.Save(order).Error; err != nil {
			return err
		}
	}

	return tx.Model(&models.TableSession{}).
		Where("restaurant_id = ? AND table_number = ? AND active = ?",
			order.RestaurantID, order.TableNumber, true).
		Update("active", false).Error
}

// notify routes the outbound events after commit. Mode only changes the
// routing: system payments additionally raise payment_request toward staff.
func (s *PaymentService) notify(payment *models.Payment, order *models.Order, settled bool) {
	if payment.Mode == models.PaymentModeSystem {
		events.BroadcastPaymentRequest(payment.RestaurantID, payment.TableNumber, payment.OrderID, payment.Amount)
		s.recordNotification(payment, events.EventPaymentRequest,
			fmt.Sprintf("Table %d paid %.2f from their device", payment.TableNumber, payment.Amount))
	}

	if settled {
		events.BroadcastPaymentUpdate(*payment, *order)
		events.BroadcastStaffNotification(fmt.Sprintf("Order #%d fully settled", order.ID))
		// Settlement moves the revenue figures; nudge the admin panels.
		events.BroadcastDashboardUpdate(map[string]interface{}{
			"restaurant_id": order.RestaurantID,
			"order_id":      order.ID,
			"table_number":  order.TableNumber,
			"amount":        payment.Amount,
		})
		log.Printf("Order %d settled, session for table %d closed", order.ID, order.TableNumber)
		return
	}

	events.BroadcastPartialPayment(*payment)
	s.recordNotification(payment, events.EventPartialPayment,
		fmt.Sprintf("Partial payment of %.2f on order #%d, %.2f remaining",
			payment.Amount, payment.OrderID, payment.RemainingAmount))
	log.Printf("Partial payment of %.2f recorded for order %d (%.2f remaining)",
		payment.Amount, payment.OrderID, payment.RemainingAmount)
}

func (s *PaymentService) recordNotification(payment *models.Payment, event, message string) {
	notif := models.Notification{
		RestaurantID: payment.RestaurantID,
		TableNumber:  payment.TableNumber,
		OrderID:      &payment.OrderID,
		Event:        event,
		Message:      message,
		Amount:       payment.Amount,
	}
	if err := s.db.Create(&notif).Error; err != nil {
		log.Printf("Error recording notification: %v", err)
	}
}

// coveredAmount sums price*quantity of the referenced items against the
// order's own item snapshots, rejecting refs to foreign or cancelled items
// and quantities beyond what the order holds.
func coveredAmount(order *models.Order, refs []PaidItem) (float64, error) {
	byID := make(map[uint]*models.OrderItem, len(order.Items))
	for i := range order.Items {
		byID[order.Items[i].ID] = &order.Items[i]
	}

	var total float64
	for _, ref := range refs {
		item, ok := byID[ref.OrderItemID]
		if !ok || item.Status == models.ItemStatusCancelled {
			return 0, ErrAmountItemMismatch
		}
		if ref.Quantity <= 0 || ref.Quantity > item.Quantity {
			return 0, ErrAmountItemMismatch
		}
		total += item.Price * float64(ref.Quantity)
	}
	return total, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
