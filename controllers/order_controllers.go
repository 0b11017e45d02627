package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/masapp/restaurant-backend/models"
	"github.com/masapp/restaurant-backend/services"
	"github.com/masapp/restaurant-backend/utils"
)

// TableTokenHeader carries the diner's QR session token on public endpoints.
const TableTokenHeader = "X-Table-Token"

type OrderController struct {
	DB       *gorm.DB
	Orders   *services.OrderService
	Sessions *services.SessionService

	mu     sync.Mutex
	boards map[uint]*services.OrderBoard
}

func NewOrderController(db *gorm.DB, orders *services.OrderService, sessions *services.SessionService) *OrderController {
	return &OrderController{
		DB:       db,
		Orders:   orders,
		Sessions: sessions,
		boards:   make(map[uint]*services.OrderBoard),
	}
}

// boardFor returns the restaurant's order board, starting its polling loop on
// first use.
func (oc *OrderController) boardFor(restaurantID uint) *services.OrderBoard {
	oc.mu.Lock()
	defer oc.mu.Unlock()

	board, ok := oc.boards[restaurantID]
	if !ok {
		board = services.NewOrderBoard(oc.DB, restaurantID)
		board.Start()
		oc.boards[restaurantID] = board
	}
	return board
}

// CreateOrder -> diner places an order against a valid table session. Table
// attribution comes from the session row, never from client-supplied
// numbers.
func (oc *OrderController) CreateOrder(c *gin.Context) {
	token := c.GetHeader(TableTokenHeader)

	session, err := oc.Sessions.Validate(token)
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, err)
		return
	}

	var body struct {
		Items []services.OrderItemRequest `json:"items" binding:"required"`
		Notes string                      `json:"notes"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Orders.CreateOrder(session, body.Items, body.Notes)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	utils.RespondJSON(c, http.StatusCreated, "Order created", order)
}

// GetAllOrders -> list orders for the caller's restaurant, optional
// ?status= filter. Each poll returns the authoritative backend view.
func (oc *OrderController) GetAllOrders(c *gin.Context) {
	restaurantID, ok := restaurantIDFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	var status *models.OrderStatus
	if raw := c.Query("status"); raw != "" {
		parsed, err := models.ParseOrderStatus(raw)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		status = &parsed
	}

	orders, err := oc.Orders.GetOrders(restaurantID, status)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}

// GetOrderByID -> detail of one order with items.
func (oc *OrderController) GetOrderByID(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("order_id"))

	order, err := oc.Orders.GetOrder(uint(id))
	if err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

// UpdateOrder -> staff mutation entry point: status transition, table move
// or item amendment, each validated against a fresh read at commit.
func (oc *OrderController) UpdateOrder(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("order_id"))

	var req struct {
		Status      *string                     `json:"status"`
		TableNumber *int                        `json:"table_number"`
		Items       []services.OrderItemRequest `json:"items"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var (
		order *models.Order
		err   error
	)
	switch {
	case req.Status != nil:
		var target models.OrderStatus
		target, err = models.ParseOrderStatus(*req.Status)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		order, err = oc.Orders.UpdateStatus(uint(id), target)
	case req.TableNumber != nil:
		order, err = oc.Orders.ChangeTable(uint(id), *req.TableNumber)
	case len(req.Items) > 0:
		order, err = oc.Orders.AddItems(uint(id), req.Items)
	default:
		utils.RespondError(c, http.StatusBadRequest, errors.New("nothing to update"))
		return
	}

	if err != nil {
		respondTransitionError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order updated", order)
}

// StartItem -> kitchen takes one item into preparation.
func (oc *OrderController) StartItem(c *gin.Context) {
	oc.transitionItem(c, models.ItemStatusPreparing, "Item preparing")
}

// ReadyItem -> kitchen finished one item.
func (oc *OrderController) ReadyItem(c *gin.Context) {
	oc.transitionItem(c, models.ItemStatusReady, "Item ready")
}

// ServeItem -> waiter delivered one item to the table.
func (oc *OrderController) ServeItem(c *gin.Context) {
	oc.transitionItem(c, models.ItemStatusServed, "Item served")
}

func (oc *OrderController) transitionItem(c *gin.Context, target models.ItemStatus, message string) {
	id, _ := strconv.Atoi(c.Param("item_id"))

	order, err := oc.Orders.TransitionItem(uint(id), target)
	if err != nil {
		respondTransitionError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, message, order)
}

// PrepareOrder -> kitchen takes every pending item into preparation.
// Idempotent: a second invocation only touches the remainder.
func (oc *OrderController) PrepareOrder(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("order_id"))

	order, err := oc.Orders.BulkTransition(uint(id), models.ItemStatusPreparing)
	if err != nil {
		respondTransitionError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order preparing", order)
}

// ReadyOrder -> kitchen finishes every item currently in preparation.
func (oc *OrderController) ReadyOrder(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("order_id"))

	order, err := oc.Orders.BulkTransition(uint(id), models.ItemStatusReady)
	if err != nil {
		respondTransitionError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order ready", order)
}

// CompleteOrder -> waiter serves out every ready item.
func (oc *OrderController) CompleteOrder(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("order_id"))

	order, err := oc.Orders.BulkTransition(uint(id), models.ItemStatusServed)
	if err != nil {
		respondTransitionError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order served", order)
}

// CancelOrder -> rejected once any item has been served.
func (oc *OrderController) CancelOrder(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("order_id"))

	order, err := oc.Orders.Cancel(uint(id))
	if err != nil {
		respondTransitionError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order cancelled", order)
}

// ChangeTable -> move an order to another table.
func (oc *OrderController) ChangeTable(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("order_id"))

	var req struct {
		TableNumber int `json:"table_number" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Orders.ChangeTable(uint(id), req.TableNumber)
	if err != nil {
		respondTransitionError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order moved", order)
}

// GetKitchenDisplay -> orders the kitchen still has work on, oldest first,
// served from the restaurant's order board. The board is refreshed on demand;
// a transport error degrades to the last known snapshot.
func (oc *OrderController) GetKitchenDisplay(c *gin.Context) {
	restaurantID, ok := restaurantIDFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	board := oc.boardFor(restaurantID)
	if err := board.Refresh(); err != nil {
		utils.ErrorLogger.Printf("Kitchen display refresh failed, serving cached view: %v", err)
	}

	orders := make([]models.Order, 0)
	for _, order := range board.Snapshot() {
		switch order.Status {
		case models.OrderStatusPending, models.OrderStatusPreparing, models.OrderStatusReady:
			orders = append(orders, order)
		}
	}

	utils.RespondJSON(c, http.StatusOK, "Kitchen display orders", orders)
}

// respondTransitionError maps service errors to the right status code:
// rejected transitions and validation failures are caller-fixable 4xx, the
// record stays unchanged and the panel should refresh rather than retry.
func respondTransitionError(c *gin.Context, err error) {
	var invalid *models.InvalidTransitionError
	switch {
	case errors.As(err, &invalid):
		utils.RespondError(c, http.StatusConflict, err)
	case errors.Is(err, services.ErrOrderHasPayments):
		utils.RespondError(c, http.StatusConflict, err)
	case errors.Is(err, services.ErrInvalidTableNumber),
		errors.Is(err, services.ErrOrderCancelled),
		errors.Is(err, services.ErrEmptyOrder):
		utils.RespondError(c, http.StatusBadRequest, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		utils.RespondError(c, http.StatusNotFound, err)
	default:
		utils.RespondError(c, http.StatusInternalServerError, err)
	}
}
