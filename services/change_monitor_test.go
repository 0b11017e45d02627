package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masapp/restaurant-backend/models"
)

func TestChangeMonitorMarksRowsProcessed(t *testing.T) {
	db := setupTestDB(t)
	order, _ := placeOrder(t, db, 1)

	// Simulate the feed rows the database triggers would append.
	rows := []models.DBChange{
		{TableName: "orders", RecordID: int64(order.ID), ActionType: "INSERT", ChangedAt: time.Now()},
		{TableName: "orders", RecordID: int64(order.ID), ActionType: "UPDATE", ChangedAt: time.Now()},
		{TableName: "table_sessions", RecordID: 1, ActionType: "INSERT", ChangedAt: time.Now()},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	cm := NewChangeMonitor(db)
	cm.checkChanges()

	var unprocessed int64
	db.Model(&models.DBChange{}).Where("processed = ?", false).Count(&unprocessed)
	assert.EqualValues(t, 0, unprocessed)
}

func TestChangeMonitorSkipsForeignRows(t *testing.T) {
	db := setupTestDB(t)

	// A feed row pointing at a record that no longer exists must not wedge
	// the monitor; it is dispatched best-effort and marked processed.
	require.NoError(t, db.Create(&models.DBChange{
		TableName:  "orders",
		RecordID:   9999,
		ActionType: "UPDATE",
		ChangedAt:  time.Now(),
	}).Error)

	cm := NewChangeMonitor(db)
	cm.checkChanges()

	var row models.DBChange
	require.NoError(t, db.First(&row).Error)
	assert.True(t, row.Processed)
}
