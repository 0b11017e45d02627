package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masapp/restaurant-backend/models"
)

func TestCreateOrderSnapshotsMenu(t *testing.T) {
	db := setupTestDB(t)
	order, session := placeOrder(t, db, 1)

	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, 120.0, order.TotalAmount)
	require.Len(t, order.Items, 2)
	assert.Equal(t, session.ID, *order.SessionID)

	food := foodItem(t, order)
	assert.Equal(t, "Nasi Goreng", food.Name)
	assert.Equal(t, 45.0, food.Price)
	assert.Equal(t, models.ItemStatusPending, food.Status)

	// Later price edits do not rewrite the open order.
	db.Model(&models.Menu{}).Where("id = ?", 1).Update("price", 60)
	orders := NewOrderService(db, NewSessionService(db))
	reread, err := orders.GetOrder(order.ID)
	require.NoError(t, err)
	assert.Equal(t, 120.0, reread.TotalAmount)
}

func TestDrinkFlagSurvivesReload(t *testing.T) {
	db := setupTestDB(t)
	order, _ := placeOrder(t, db, 1)
	orders := NewOrderService(db, NewSessionService(db))

	// Read the rows back from the store rather than trusting the in-memory
	// copies the create call returned.
	reread, err := orders.GetOrder(order.ID)
	require.NoError(t, err)
	assert.True(t, foodItem(t, reread).IsFood)
	assert.False(t, drinkItem(t, reread).IsFood)

	// With the persisted flags intact, serving the only food item completes
	// the order while the drink is still open.
	food := foodItem(t, reread)
	for _, target := range []models.ItemStatus{models.ItemStatusPreparing, models.ItemStatusReady, models.ItemStatusServed} {
		_, err := orders.TransitionItem(food.ID, target)
		require.NoError(t, err)
	}
	reread, err = orders.GetOrder(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, reread.Status)
	assert.Equal(t, models.ItemStatusPending, drinkItem(t, reread).Status)
}

func TestCreateOrderRejectsEmpty(t *testing.T) {
	db := setupTestDB(t)
	sessions := NewSessionService(db)
	orders := NewOrderService(db, sessions)

	session, err := sessions.Issue(1, 1, time.Hour)
	require.NoError(t, err)

	_, err = orders.CreateOrder(session, nil, "")
	assert.ErrorIs(t, err, ErrEmptyOrder)
}

func TestItemLadderDrivesRollup(t *testing.T) {
	db := setupTestDB(t)
	order, _ := placeOrder(t, db, 1)
	orders := NewOrderService(db, NewSessionService(db))
	food := foodItem(t, order)

	got, err := orders.TransitionItem(food.ID, models.ItemStatusPreparing)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPreparing, got.Status)

	got, err = orders.TransitionItem(food.ID, models.ItemStatusReady)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusReady, got.Status)

	// Serving the last food item completes the order even while the drink is
	// still open; drinks never hold the kitchen rollup.
	got, err = orders.TransitionItem(food.ID, models.ItemStatusServed)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, got.Status)
}

func TestTransitionItemIdempotent(t *testing.T) {
	db := setupTestDB(t)
	order, _ := placeOrder(t, db, 1)
	orders := NewOrderService(db, NewSessionService(db))
	food := foodItem(t, order)

	_, err := orders.TransitionItem(food.ID, models.ItemStatusPreparing)
	require.NoError(t, err)

	// A second panel re-sending the same step on a stale snapshot converges.
	got, err := orders.TransitionItem(food.ID, models.ItemStatusPreparing)
	require.NoError(t, err)
	reread, _ := orders.GetOrder(order.ID)
	assert.Equal(t, models.ItemStatusPreparing, foodItem(t, reread).Status)
	assert.Equal(t, models.OrderStatusPreparing, got.Status)
}

func TestTransitionItemRejectsSkippedStep(t *testing.T) {
	db := setupTestDB(t)
	order, _ := placeOrder(t, db, 1)
	orders := NewOrderService(db, NewSessionService(db))
	food := foodItem(t, order)

	_, err := orders.TransitionItem(food.ID, models.ItemStatusServed)
	var invalid *models.InvalidTransitionError
	require.True(t, errors.As(err, &invalid))

	// The record is untouched after a rejected transition.
	reread, _ := orders.GetOrder(order.ID)
	assert.Equal(t, models.ItemStatusPending, foodItem(t, reread).Status)
	assert.Equal(t, models.OrderStatusPending, reread.Status)
}

func TestServeDrinkAfterOrderCompleted(t *testing.T) {
	db := setupTestDB(t)
	order, _ := placeOrder(t, db, 1)
	orders := NewOrderService(db, NewSessionService(db))
	food := foodItem(t, order)
	drink := drinkItem(t, order)

	for _, target := range []models.ItemStatus{models.ItemStatusPreparing, models.ItemStatusReady, models.ItemStatusServed} {
		_, err := orders.TransitionItem(food.ID, target)
		require.NoError(t, err)
	}

	// Order rolled up completed, but the waiter still walks the drink over.
	_, err := orders.TransitionItem(drink.ID, models.ItemStatusPreparing)
	require.NoError(t, err)
	_, err = orders.TransitionItem(drink.ID, models.ItemStatusReady)
	require.NoError(t, err)
	got, err := orders.TransitionItem(drink.ID, models.ItemStatusServed)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, got.Status)
}

func TestBulkTransitionOnlyTouchesEligible(t *testing.T) {
	db := setupTestDB(t)
	order, _ := placeOrder(t, db, 1)
	orders := NewOrderService(db, NewSessionService(db))
	food := foodItem(t, order)

	// Move the food item one step ahead of the drink.
	_, err := orders.TransitionItem(food.ID, models.ItemStatusPreparing)
	require.NoError(t, err)

	// Bulk "start cooking": the food item is already preparing and is
	// skipped, the drink steps forward.
	got, err := orders.BulkTransition(order.ID, models.ItemStatusPreparing)
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusPreparing, foodItem(t, got).Status)
	assert.Equal(t, models.ItemStatusPreparing, drinkItem(t, got).Status)

	// Re-invoking is a no-op.
	again, err := orders.BulkTransition(order.ID, models.ItemStatusPreparing)
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusPreparing, foodItem(t, again).Status)
	assert.Equal(t, models.ItemStatusPreparing, drinkItem(t, again).Status)
}

func TestCancelBeforeServing(t *testing.T) {
	db := setupTestDB(t)
	order, _ := placeOrder(t, db, 1)
	orders := NewOrderService(db, NewSessionService(db))

	got, err := orders.Cancel(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, got.Status)
	for _, item := range got.Items {
		assert.Equal(t, models.ItemStatusCancelled, item.Status)
	}
	assert.Equal(t, 0.0, got.TotalAmount)
}

func TestCancelRejectedOnceServed(t *testing.T) {
	db := setupTestDB(t)
	order, _ := placeOrder(t, db, 1)
	orders := NewOrderService(db, NewSessionService(db))
	food := foodItem(t, order)

	for _, target := range []models.ItemStatus{models.ItemStatusPreparing, models.ItemStatusReady, models.ItemStatusServed} {
		_, err := orders.TransitionItem(food.ID, target)
		require.NoError(t, err)
	}

	_, err := orders.Cancel(order.ID)
	var invalid *models.InvalidTransitionError
	require.True(t, errors.As(err, &invalid))

	reread, _ := orders.GetOrder(order.ID)
	assert.Equal(t, models.ItemStatusServed, foodItem(t, reread).Status)
}

func TestUpdateStatusCompletedServesOut(t *testing.T) {
	db := setupTestDB(t)
	order, _ := placeOrder(t, db, 1)
	orders := NewOrderService(db, NewSessionService(db))

	_, err := orders.BulkTransition(order.ID, models.ItemStatusPreparing)
	require.NoError(t, err)
	_, err = orders.BulkTransition(order.ID, models.ItemStatusReady)
	require.NoError(t, err)

	got, err := orders.UpdateStatus(order.ID, models.OrderStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, got.Status)
	for _, item := range got.Items {
		assert.Equal(t, models.ItemStatusServed, item.Status)
	}
}

func TestUpdateStatusRejectsIllegalJump(t *testing.T) {
	db := setupTestDB(t)
	order, _ := placeOrder(t, db, 1)
	orders := NewOrderService(db, NewSessionService(db))

	_, err := orders.UpdateStatus(order.ID, models.OrderStatusCompleted)
	var invalid *models.InvalidTransitionError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "pending", invalid.From)
	assert.Equal(t, "completed", invalid.To)
}

func TestChangeTableRebindsSession(t *testing.T) {
	db := setupTestDB(t)
	sessions := NewSessionService(db)
	orders := NewOrderService(db, sessions)
	order, _ := placeOrder(t, db, 1)

	// Destination has its own active session; the order re-binds to it.
	dest, err := sessions.Issue(1, 2, time.Hour)
	require.NoError(t, err)

	got, err := orders.ChangeTable(order.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TableNumber)
	require.NotNil(t, got.SessionID)
	assert.Equal(t, dest.ID, *got.SessionID)
	assert.Equal(t, order.Status, got.Status)

	// Moving to an unoccupied table leaves the order session-less.
	got, err = orders.ChangeTable(order.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, got.TableNumber)
	assert.Nil(t, got.SessionID)
}

func TestChangeTableRejectsCancelledOrder(t *testing.T) {
	db := setupTestDB(t)
	order, _ := placeOrder(t, db, 1)
	orders := NewOrderService(db, NewSessionService(db))

	_, err := orders.Cancel(order.ID)
	require.NoError(t, err)

	_, err = orders.ChangeTable(order.ID, 2)
	assert.ErrorIs(t, err, ErrOrderCancelled)
}

func TestAddItemsRecalculatesTotal(t *testing.T) {
	db := setupTestDB(t)
	order, _ := placeOrder(t, db, 1)
	orders := NewOrderService(db, NewSessionService(db))

	got, err := orders.AddItems(order.ID, []OrderItemRequest{{MenuID: 2, Quantity: 1}})
	require.NoError(t, err)
	assert.Equal(t, 135.0, got.TotalAmount)
	assert.Len(t, got.Items, 3)
}

func TestAddItemsRejectedOnTerminalOrder(t *testing.T) {
	db := setupTestDB(t)
	order, _ := placeOrder(t, db, 1)
	orders := NewOrderService(db, NewSessionService(db))

	_, err := orders.Cancel(order.ID)
	require.NoError(t, err)

	_, err = orders.AddItems(order.ID, []OrderItemRequest{{MenuID: 1, Quantity: 1}})
	var invalid *models.InvalidTransitionError
	assert.True(t, errors.As(err, &invalid))
}

func TestGetOrdersFiltersByStatus(t *testing.T) {
	db := setupTestDB(t)
	first, _ := placeOrder(t, db, 1)
	second, _ := placeOrder(t, db, 2)
	orders := NewOrderService(db, NewSessionService(db))

	_, err := orders.Cancel(second.ID)
	require.NoError(t, err)

	pending := models.OrderStatusPending
	got, err := orders.GetOrders(1, &pending)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, first.ID, got[0].ID)

	all, err := orders.GetOrders(1, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
