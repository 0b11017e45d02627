package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/masapp/restaurant-backend/events"
	"github.com/masapp/restaurant-backend/models"
	"github.com/masapp/restaurant-backend/utils"
)

const (
	// DefaultSessionDuration is applied when issue requests omit a duration.
	DefaultSessionDuration = 2 * time.Hour
	// MaxSessionDuration caps staff-requested durations.
	MaxSessionDuration = 8 * time.Hour
)

// Session errors block ordering entirely; the only remedy is a fresh scan.
var (
	ErrTokenInvalid       = errors.New("QR token is not valid")
	ErrTokenExpired       = errors.New("QR code expired, please rescan")
	ErrInvalidTableNumber = errors.New("table number must be greater than zero")
)

// SessionService issues and validates the QR tokens binding a physical table
// to one ordering session.
type SessionService struct {
	db          *gorm.DB
	maxDuration time.Duration
}

func NewSessionService(db *gorm.DB) *SessionService {
	return &SessionService{
		db:          db,
		maxDuration: MaxSessionDuration,
	}
}

// Issue creates a new active session for the table and returns it. Any prior
// active session for the same (restaurant, table) is deactivated in the same
// transaction, so at most one session per table is ever active.
func (s *SessionService) Issue(restaurantID uint, tableNumber int, duration time.Duration) (*models.TableSession, error) {
	if tableNumber <= 0 {
		return nil, ErrInvalidTableNumber
	}
	if duration <= 0 {
		duration = DefaultSessionDuration
	}
	if duration > s.maxDuration {
		duration = s.maxDuration
	}

	token, err := utils.NewSessionToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	now := time.Now()
	session := models.TableSession{
		Token:        token,
		RestaurantID: restaurantID,
		TableNumber:  tableNumber,
		IssuedAt:     now,
		ExpiresAt:    now.Add(duration),
		Active:       true,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.TableSession{}).
			Where("restaurant_id = ? AND table_number = ? AND active = ?", restaurantID, tableNumber, true).
			Update("active", false).Error; err != nil {
			return fmt.Errorf("failed to deactivate prior session: %w", err)
		}
		return tx.Create(&session).Error
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Issued session for restaurant %d table %d (expires %s)",
		restaurantID, tableNumber, session.ExpiresAt.Format(time.RFC3339))
	events.BroadcastSessionUpdate(session)

	return &session, nil
}

// Validate answers whether a token still identifies a table. It fails closed:
// a lookup miss, an inactive row or a passed expiry all reject, and nothing
// is written. An expired or invalidated token never resolves to a table.
func (s *SessionService) Validate(token string) (*models.TableSession, error) {
	if token == "" {
		return nil, ErrTokenInvalid
	}

	var session models.TableSession
	if err := s.db.Where("token = ?", token).First(&session).Error; err != nil {
		return nil, ErrTokenInvalid
	}
	if !session.Active {
		return nil, ErrTokenInvalid
	}
	if session.Expired(time.Now()) {
		return nil, ErrTokenExpired
	}

	return &session, nil
}

// Invalidate marks the session inactive. Idempotent: unknown or already
// closed tokens are not an error.
func (s *SessionService) Invalidate(token string) error {
	var session models.TableSession
	if err := s.db.Where("token = ?", token).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if !session.Active {
		return nil
	}

	if err := s.db.Model(&session).Update("active", false).Error; err != nil {
		return err
	}
	session.Active = false
	events.BroadcastSessionClosed(session)
	return nil
}

// ActiveSession returns the active session for a table, or nil when there is
// none.
func (s *SessionService) ActiveSession(restaurantID uint, tableNumber int) (*models.TableSession, error) {
	var session models.TableSession
	err := s.db.Where("restaurant_id = ? AND table_number = ? AND active = ?", restaurantID, tableNumber, true).
		Order("issued_at DESC").
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// ListSessions returns every session row for a restaurant, newest first.
// Deactivated rows are retained for audit.
func (s *SessionService) ListSessions(restaurantID uint) ([]models.TableSession, error) {
	var sessions []models.TableSession
	err := s.db.Where("restaurant_id = ?", restaurantID).
		Order("issued_at DESC").
		Find(&sessions).Error
	return sessions, err
}
