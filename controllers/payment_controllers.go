package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/masapp/restaurant-backend/models"
	"github.com/masapp/restaurant-backend/services"
	"github.com/masapp/restaurant-backend/utils"
)

type PaymentController struct {
	DB       *gorm.DB
	Payments *services.PaymentService
	Sessions *services.SessionService
}

func NewPaymentController(db *gorm.DB, payments *services.PaymentService, sessions *services.SessionService) *PaymentController {
	return &PaymentController{DB: db, Payments: payments, Sessions: sessions}
}

// CreatePayment -> staff records a cash/card payment (manual mode).
func (pc *PaymentController) CreatePayment(c *gin.Context) {
	var req services.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	req.Mode = models.PaymentModeManual

	payment, err := pc.Payments.RecordPayment(req)
	if err != nil {
		respondPaymentError(c, err)
		return
	}

	utils.InfoLogger.Printf("Payment of %.2f recorded for order %d (remaining %.2f)",
		payment.Amount, payment.OrderID, payment.RemainingAmount)
	utils.RespondJSON(c, http.StatusCreated, "Payment recorded", payment)
}

// CreateSystemPayment -> diner pays from their own device. The table session
// token authorizes the call and pins the attribution: the order must belong
// to the diner's session table.
func (pc *PaymentController) CreateSystemPayment(c *gin.Context) {
	session, err := pc.Sessions.Validate(c.GetHeader(TableTokenHeader))
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, err)
		return
	}

	var req services.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	req.Mode = models.PaymentModeSystem

	var order models.Order
	if err := pc.DB.First(&order, req.OrderID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("order not found"))
		return
	}
	if order.RestaurantID != session.RestaurantID || order.TableNumber != session.TableNumber {
		utils.RespondError(c, http.StatusForbidden, errors.New("order does not belong to this table session"))
		return
	}

	payment, err := pc.Payments.RecordPayment(req)
	if err != nil {
		respondPaymentError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusCreated, "Payment recorded", payment)
}

// GetPayments -> audit trail, filtered by ?table_number= or ?order_id=.
func (pc *PaymentController) GetPayments(c *gin.Context) {
	restaurantID, ok := restaurantIDFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	if raw := c.Query("order_id"); raw != "" {
		orderID, _ := strconv.Atoi(raw)
		payments, err := pc.Payments.PaymentsByOrder(uint(orderID))
		if err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		utils.RespondJSON(c, http.StatusOK, "Payments for order", payments)
		return
	}

	tableNumber, _ := strconv.Atoi(c.Query("table_number"))
	if tableNumber <= 0 {
		utils.RespondError(c, http.StatusBadRequest, services.ErrInvalidTableNumber)
		return
	}

	payments, err := pc.Payments.PaymentsByTable(restaurantID, tableNumber)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payments for table", payments)
}

// GetOrderBalance -> remaining amount and settlement flag for one order.
func (pc *PaymentController) GetOrderBalance(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("order_id"))

	remaining, err := pc.Payments.RemainingAmount(uint(id))
	if err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Order balance", gin.H{
		"order_id":         id,
		"remaining_amount": remaining,
		"is_settled":       remaining == 0,
	})
}

func respondPaymentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrOverpaymentRejected),
		errors.Is(err, services.ErrAmountItemMismatch),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrInvalidMethod),
		errors.Is(err, services.ErrOrderCancelled):
		utils.RespondError(c, http.StatusBadRequest, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		utils.RespondError(c, http.StatusNotFound, err)
	default:
		utils.RespondError(c, http.StatusInternalServerError, err)
	}
}
