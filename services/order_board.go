package services

import (
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/masapp/restaurant-backend/models"
)

// ErrStaleOrder signals that the caller's copy is behind the backend. The
// remedy is a refresh, not a retry: the backend view always wins.
var ErrStaleOrder = errors.New("order has changed on the backend, refresh required")

// DefaultPollInterval is the cadence actor panels refresh on.
const DefaultPollInterval = 5 * time.Second

// OrderBoard is the read-through cache behind one actor panel (waiter,
// kitchen, cashier). It never holds authoritative state: every refresh
// replaces the cache wholesale with the backend view, and any local
// optimistic copy must be reconciled against it.
type OrderBoard struct {
	db           *gorm.DB
	restaurantID uint
	interval     time.Duration

	mu     sync.RWMutex
	orders map[uint]models.Order

	subs     []chan models.Order
	stopChan chan struct{}
	stopOnce sync.Once
}

func NewOrderBoard(db *gorm.DB, restaurantID uint) *OrderBoard {
	return &OrderBoard{
		db:           db,
		restaurantID: restaurantID,
		interval:     DefaultPollInterval,
		orders:       make(map[uint]models.Order),
		stopChan:     make(chan struct{}),
	}
}

// SetInterval adjusts the polling cadence before Start.
func (b *OrderBoard) SetInterval(d time.Duration) {
	b.interval = d
}

// Start launches the polling loop.
func (b *OrderBoard) Start() {
	go func() {
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := b.Refresh(); err != nil {
					// Transport errors degrade to last known state; the
					// next tick retries on its own cadence.
					log.Printf("Order board refresh failed: %v", err)
				}
			case <-b.stopChan:
				return
			}
		}
	}()
}

func (b *OrderBoard) Stop() {
	b.stopOnce.Do(func() { close(b.stopChan) })
}

// Refresh pulls the backend view and replaces the cache. Orders whose
// UpdatedAt moved (or that are new) are published to subscribers.
func (b *OrderBoard) Refresh() error {
	var orders []models.Order
	if err := b.db.Preload("Items").
		Where("restaurant_id = ?", b.restaurantID).
		Order("created_at asc").
		Find(&orders).Error; err != nil {
		return err
	}

	fresh := make(map[uint]models.Order, len(orders))
	var changed []models.Order

	b.mu.Lock()
	for _, o := range orders {
		fresh[o.ID] = o
		prev, ok := b.orders[o.ID]
		if !ok || o.UpdatedAt.After(prev.UpdatedAt) || o.Status != prev.Status {
			changed = append(changed, o)
		}
	}
	b.orders = fresh
	subs := b.subs
	b.mu.Unlock()

	for _, o := range changed {
		for _, sub := range subs {
			select {
			case sub <- o:
			default:
				// Slow subscriber; it will catch up on its next poll.
			}
		}
	}
	return nil
}

// Get returns the cached copy of one order.
func (b *OrderBoard) Get(orderID uint) (models.Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.orders[orderID]
	return o, ok
}

// Snapshot returns the cached view, oldest first.
func (b *OrderBoard) Snapshot() []models.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]models.Order, 0, len(b.orders))
	for _, o := range b.orders {
		out = append(out, o)
	}
	sortOrdersByCreation(out)
	return out
}

// Subscribe returns a channel fed on every observed order change. The
// subscription abstracts the polling away so it can later be swapped for
// push delivery without touching the state machine or ledger contracts.
func (b *OrderBoard) Subscribe() <-chan models.Order {
	ch := make(chan models.Order, 16)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch
}

// Reconcile compares a panel's optimistic copy against the cache. When the
// backend copy is newer it is returned together with ErrStaleOrder so the
// panel discards its own state and prompts a refresh.
func (b *OrderBoard) Reconcile(local models.Order) (models.Order, error) {
	b.mu.RLock()
	backend, ok := b.orders[local.ID]
	b.mu.RUnlock()

	if !ok {
		return local, ErrStaleOrder
	}
	if backend.UpdatedAt.After(local.UpdatedAt) || backend.Status != local.Status {
		return backend, ErrStaleOrder
	}
	return backend, nil
}

func sortOrdersByCreation(orders []models.Order) {
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
}
