package services

import (
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/masapp/restaurant-backend/events"
	"github.com/masapp/restaurant-backend/models"
)

// ChangeMonitor polls the db_changes feed appended by the database triggers
// and fans the rows out to the websocket hub. The feed is a nudge, not a
// source of truth: panels re-poll the REST API for authoritative state.
type ChangeMonitor struct {
	DB       *gorm.DB
	StopChan chan struct{}
	Interval time.Duration
}

func NewChangeMonitor(db *gorm.DB) *ChangeMonitor {
	return &ChangeMonitor{
		DB:       db,
		StopChan: make(chan struct{}),
		Interval: 1 * time.Second,
	}
}

func (cm *ChangeMonitor) Start() {
	go func() {
		ticker := time.NewTicker(cm.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				cm.checkChanges()
			case <-cm.StopChan:
				return
			}
		}
	}()
}

func (cm *ChangeMonitor) Stop() {
	close(cm.StopChan)
}

func (cm *ChangeMonitor) checkChanges() {
	var changes []models.DBChange

	tx := cm.DB.Begin()

	if err := tx.Where("processed = ?", false).
		Order("changed_at ASC").
		Limit(100).
		Find(&changes).Error; err != nil {
		tx.Rollback()
		log.Printf("Error fetching changes: %v", err)
		return
	}

	for _, change := range changes {
		switch change.TableName {
		case "orders":
			cm.processOrderChange(change)
		case "payments":
			cm.processPaymentChange(change)
		case "table_sessions":
			cm.processSessionChange(change)
		}

		if err := tx.Model(&models.DBChange{}).
			Where("id = ?", change.ID).
			Update("processed", true).Error; err != nil {
			tx.Rollback()
			log.Printf("Error marking change as processed: %v", err)
			return
		}
	}

	if err := tx.Commit().Error; err != nil {
		log.Printf("Error committing change batch: %v", err)
		tx.Rollback()
		return
	}

	if len(changes) > 0 {
		log.Printf("Processed %d change feed rows", len(changes))
	}
}

func (cm *ChangeMonitor) processOrderChange(change models.DBChange) {
	var order models.Order
	if err := cm.DB.Preload("Items").First(&order, change.RecordID).Error; err != nil {
		log.Printf("Error fetching order %d from change feed: %v", change.RecordID, err)
		return
	}
	events.BroadcastOrderUpdate(order)
}

func (cm *ChangeMonitor) processPaymentChange(change models.DBChange) {
	// Payments are append-only, so only INSERT rows carry information.
	if change.ActionType != "INSERT" {
		return
	}
	var payment models.Payment
	if err := cm.DB.First(&payment, change.RecordID).Error; err != nil {
		log.Printf("Error fetching payment %d from change feed: %v", change.RecordID, err)
		return
	}
	var order models.Order
	if err := cm.DB.First(&order, payment.OrderID).Error; err == nil {
		events.BroadcastPaymentUpdate(payment, order)
	}
}

func (cm *ChangeMonitor) processSessionChange(change models.DBChange) {
	var session models.TableSession
	if err := cm.DB.First(&session, change.RecordID).Error; err != nil {
		log.Printf("Error fetching session %d from change feed: %v", change.RecordID, err)
		return
	}
	if session.Active {
		events.BroadcastSessionUpdate(session)
	} else {
		events.BroadcastSessionClosed(session)
	}
}
