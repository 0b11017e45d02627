package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/masapp/restaurant-backend/models"
	"github.com/masapp/restaurant-backend/utils"
)

type AdminController struct {
	DB *gorm.DB
}

func NewAdminController(db *gorm.DB) *AdminController {
	return &AdminController{DB: db}
}

// GetDashboardStats -> live operational overview for the admin panel.
func (ac *AdminController) GetDashboardStats(c *gin.Context) {
	restaurantID, ok := restaurantIDFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	var stats struct {
		OrdersByStatus []struct {
			Status string `json:"status"`
			Count  int64  `json:"count"`
		} `json:"orders_by_status"`
		ActiveSessions int64   `json:"active_sessions"`
		RevenueToday   float64 `json:"revenue_today"`
		OpenBalance    float64 `json:"open_balance"`
	}

	ac.DB.Raw(`
		SELECT status, COUNT(*) as count
		FROM orders
		WHERE restaurant_id = ?
		GROUP BY status
	`, restaurantID).Scan(&stats.OrdersByStatus)

	ac.DB.Model(&models.TableSession{}).
		Where("restaurant_id = ? AND active = ?", restaurantID, true).
		Count(&stats.ActiveSessions)

	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	ac.DB.Raw(`
		SELECT COALESCE(SUM(amount), 0)
		FROM payments
		WHERE restaurant_id = ? AND created_at >= ?
	`, restaurantID, startOfDay).Scan(&stats.RevenueToday)

	ac.DB.Raw(`
		SELECT COALESCE(SUM(o.total_amount), 0) - COALESCE((
			SELECT SUM(p.amount) FROM payments p
			JOIN orders po ON po.id = p.order_id
			WHERE po.restaurant_id = ? AND po.status != 'cancelled'
		), 0)
		FROM orders o
		WHERE o.restaurant_id = ? AND o.status != 'cancelled'
	`, restaurantID, restaurantID).Scan(&stats.OpenBalance)

	utils.RespondJSON(c, http.StatusOK, "Dashboard stats", stats)
}

// CreateRestaurant -> super_admin onboards a tenant.
func (ac *AdminController) CreateRestaurant(c *gin.Context) {
	roleInterface, _ := c.Get("role")
	if roleInterface != models.RoleSuperAdmin {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	var req struct {
		Name string `json:"name" binding:"required"`
		Slug string `json:"slug" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	restaurant := models.Restaurant{
		Name:   req.Name,
		Slug:   req.Slug,
		Active: true,
	}
	if err := ac.DB.Create(&restaurant).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Restaurant created: %s (%s)", restaurant.Name, restaurant.Slug)
	utils.RespondJSON(c, http.StatusCreated, "Restaurant created", restaurant)
}

// GetAllRestaurants -> super_admin tenant listing.
func (ac *AdminController) GetAllRestaurants(c *gin.Context) {
	roleInterface, _ := c.Get("role")
	if roleInterface != models.RoleSuperAdmin {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	var restaurants []models.Restaurant
	if err := ac.DB.Find(&restaurants).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "All restaurants", restaurants)
}

// GetNotifications -> persisted notification feed for staff panels.
func (ac *AdminController) GetNotifications(c *gin.Context) {
	restaurantID, ok := restaurantIDFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	var notifications []models.Notification
	if err := ac.DB.Where("restaurant_id = ?", restaurantID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Notifications", notifications)
}
