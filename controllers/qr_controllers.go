package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/masapp/restaurant-backend/services"
	"github.com/masapp/restaurant-backend/utils"
)

type QRController struct {
	DB       *gorm.DB
	Sessions *services.SessionService
}

func NewQRController(db *gorm.DB, sessions *services.SessionService) *QRController {
	return &QRController{DB: db, Sessions: sessions}
}

// GenerateQR -> staff issues a QR session for a table. Re-issuing for an
// occupied table deactivates the prior session.
func (qc *QRController) GenerateQR(c *gin.Context) {
	var req struct {
		RestaurantID    uint `json:"restaurant_id" binding:"required"`
		TableNumber     int  `json:"table_number" binding:"required"`
		DurationMinutes int  `json:"duration_minutes"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	session, err := qc.Sessions.Issue(req.RestaurantID, req.TableNumber,
		time.Duration(req.DurationMinutes)*time.Minute)
	if err != nil {
		if errors.Is(err, services.ErrInvalidTableNumber) {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("QR session issued for restaurant %d table %d", req.RestaurantID, req.TableNumber)
	utils.RespondJSON(c, http.StatusCreated, "QR session issued", gin.H{
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
	})
}

// VerifyQR -> answers whether a token still identifies a table. Fails
// closed: invalid or expired tokens never resolve to a table number, and the
// caller must block ordering instead of guessing one.
func (qc *QRController) VerifyQR(c *gin.Context) {
	token := c.Query("token")

	session, err := qc.Sessions.Validate(token)
	if err != nil {
		utils.RespondJSON(c, http.StatusOK, err.Error(), gin.H{
			"is_active": false,
		})
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Session active", gin.H{
		"is_active":     true,
		"restaurant_id": session.RestaurantID,
		"table_number":  session.TableNumber,
		"expires_at":    session.ExpiresAt,
	})
}

// ScanTable -> legacy public entry: a bare table number instead of a signed
// token. Issues a fresh session for the table so the caller still ends up
// holding a token; venues that printed static table QR codes keep working.
func (qc *QRController) ScanTable(c *gin.Context) {
	var req struct {
		RestaurantID uint `json:"restaurant_id" binding:"required"`
		TableNumber  int  `json:"table_number" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	session, err := qc.Sessions.Issue(req.RestaurantID, req.TableNumber, 0)
	if err != nil {
		if errors.Is(err, services.ErrInvalidTableNumber) {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Table session started", gin.H{
		"token":         session.Token,
		"restaurant_id": session.RestaurantID,
		"table_number":  session.TableNumber,
		"expires_at":    session.ExpiresAt,
	})
}

// CloseSession -> staff-initiated close, e.g. when guests leave without a
// full settlement going through the ledger. Idempotent.
func (qc *QRController) CloseSession(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if err := qc.Sessions.Invalidate(req.Token); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Session closed", nil)
}

// ListSessions -> audit view of a restaurant's sessions, active and past.
func (qc *QRController) ListSessions(c *gin.Context) {
	restaurantID, ok := restaurantIDFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	sessions, err := qc.Sessions.ListSessions(restaurantID)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "List of sessions", sessions)
}
