package models

import "fmt"

// OrderStatus is the closed set of order-level states. Status strings coming
// in over the API must go through ParseOrderStatus.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// ItemStatus is the per-item sub-state. Items move forward only.
type ItemStatus string

const (
	ItemStatusPending   ItemStatus = "pending"
	ItemStatusPreparing ItemStatus = "preparing"
	ItemStatusReady     ItemStatus = "ready"
	ItemStatusServed    ItemStatus = "served"
	ItemStatusCancelled ItemStatus = "cancelled"
)

// InvalidTransitionError identifies the current and the requested state of a
// rejected transition. The record is left unchanged when it is returned.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// ParseOrderStatus maps an inbound status string to the closed enum.
// "served" is accepted as an alias of the terminal completed state.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch s {
	case "pending", "preparing", "ready", "completed", "cancelled":
		return OrderStatus(s), nil
	case "served":
		return OrderStatusCompleted, nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

func ParseItemStatus(s string) (ItemStatus, error) {
	switch s {
	case "pending", "preparing", "ready", "served", "cancelled":
		return ItemStatus(s), nil
	}
	return "", fmt.Errorf("unknown item status %q", s)
}

// Terminal reports whether no further order-level transition is legal.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing: {OrderStatusReady, OrderStatusCancelled},
	OrderStatusReady:     {OrderStatusCompleted, OrderStatusCancelled},
}

// CanTransition reports whether the order-level machine allows from -> to.
// Re-applying the current status is a no-op, not an error, so duplicate
// concurrent requests converge. Cancellation from ready carries an extra
// guard on served items that only the caller holding the items can check.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	if s == to {
		return true
	}
	for _, next := range orderTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

var itemRank = map[ItemStatus]int{
	ItemStatusPending:   0,
	ItemStatusPreparing: 1,
	ItemStatusReady:     2,
	ItemStatusServed:    3,
}

// Rank returns the position of the item status on the monotonic
// pending -> preparing -> ready -> served ladder. Cancelled is off-ladder.
func (s ItemStatus) Rank() int {
	return itemRank[s]
}

// NextItemStatus validates one item step. Returns (current, false) when the
// item is already at or past target (idempotent no-op) and an error when the
// request skips a step, regresses off a cancelled item, or names an unknown
// target.
func NextItemStatus(current, target ItemStatus) (ItemStatus, bool, error) {
	if current == ItemStatusCancelled || target == ItemStatusCancelled {
		return current, false, &InvalidTransitionError{From: string(current), To: string(target)}
	}
	if current.Rank() >= target.Rank() {
		return current, false, nil
	}
	if target.Rank() != current.Rank()+1 {
		return current, false, &InvalidTransitionError{From: string(current), To: string(target)}
	}
	return target, true, nil
}

// RollupStatus derives the aggregate order status from its item statuses.
// Only food items count: an order with no active food items (drinks only, or
// everything cancelled) never blocks the kitchen, so it rolls up terminal.
//
//	any food item preparing            -> preparing
//	else any food item ready           -> ready
//	else all food items served         -> completed
//	else (food items still pending)    -> pending
func RollupStatus(items []OrderItem) OrderStatus {
	var anyPreparing, anyReady, anyPending bool
	food := 0
	for _, it := range items {
		if !it.IsFood || it.Status == ItemStatusCancelled {
			continue
		}
		food++
		switch it.Status {
		case ItemStatusPreparing:
			anyPreparing = true
		case ItemStatusReady:
			anyReady = true
		case ItemStatusPending:
			anyPending = true
		}
	}
	if food == 0 {
		return OrderStatusCompleted
	}
	switch {
	case anyPreparing:
		return OrderStatusPreparing
	case anyReady:
		return OrderStatusReady
	case anyPending:
		return OrderStatusPending
	}
	return OrderStatusCompleted
}
