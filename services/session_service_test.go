package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masapp/restaurant-backend/models"
)

func TestIssueReplacesPriorSession(t *testing.T) {
	db := setupTestDB(t)
	sessions := NewSessionService(db)

	first, err := sessions.Issue(1, 5, time.Hour)
	require.NoError(t, err)

	second, err := sessions.Issue(1, 5, time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)

	// Only the newest session may still resolve the table.
	_, err = sessions.Validate(first.Token)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	got, err := sessions.Validate(second.Token)
	require.NoError(t, err)
	assert.Equal(t, 5, got.TableNumber)

	var active int64
	db.Model(&models.TableSession{}).
		Where("restaurant_id = ? AND table_number = ? AND active = ?", 1, 5, true).
		Count(&active)
	assert.EqualValues(t, 1, active)
}

func TestIssueDifferentTablesCoexist(t *testing.T) {
	db := setupTestDB(t)
	sessions := NewSessionService(db)

	a, err := sessions.Issue(1, 1, time.Hour)
	require.NoError(t, err)
	b, err := sessions.Issue(1, 2, time.Hour)
	require.NoError(t, err)

	_, err = sessions.Validate(a.Token)
	assert.NoError(t, err)
	_, err = sessions.Validate(b.Token)
	assert.NoError(t, err)
}

func TestIssueRejectsBadTableNumber(t *testing.T) {
	db := setupTestDB(t)
	sessions := NewSessionService(db)

	_, err := sessions.Issue(1, 0, time.Hour)
	assert.ErrorIs(t, err, ErrInvalidTableNumber)
	_, err = sessions.Issue(1, -3, time.Hour)
	assert.ErrorIs(t, err, ErrInvalidTableNumber)
}

func TestIssueCapsDuration(t *testing.T) {
	db := setupTestDB(t)
	sessions := NewSessionService(db)

	session, err := sessions.Issue(1, 7, 24*time.Hour)
	require.NoError(t, err)
	assert.LessOrEqual(t, session.ExpiresAt.Sub(session.IssuedAt), MaxSessionDuration)

	// Zero duration falls back to the default window.
	session, err = sessions.Issue(1, 8, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultSessionDuration, session.ExpiresAt.Sub(session.IssuedAt))
}

func TestValidateFailsClosed(t *testing.T) {
	db := setupTestDB(t)
	sessions := NewSessionService(db)

	_, err := sessions.Validate("")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = sessions.Validate("no-such-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	// Expired rows reject without any write.
	now := time.Now()
	expired := models.TableSession{
		Token:        "expired-token",
		RestaurantID: 1,
		TableNumber:  3,
		IssuedAt:     now.Add(-3 * time.Hour),
		ExpiresAt:    now.Add(-time.Hour),
		Active:       true,
	}
	require.NoError(t, db.Create(&expired).Error)

	_, err = sessions.Validate("expired-token")
	assert.ErrorIs(t, err, ErrTokenExpired)

	// The row itself is untouched; expiry alone does not flip Active.
	var reread models.TableSession
	require.NoError(t, db.Where("token = ?", "expired-token").First(&reread).Error)
	assert.True(t, reread.Active)
}

func TestInvalidateIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	sessions := NewSessionService(db)

	session, err := sessions.Issue(1, 4, time.Hour)
	require.NoError(t, err)

	require.NoError(t, sessions.Invalidate(session.Token))
	_, err = sessions.Validate(session.Token)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	// Closing again, or closing a token that never existed, is not an error.
	assert.NoError(t, sessions.Invalidate(session.Token))
	assert.NoError(t, sessions.Invalidate("no-such-token"))
}

func TestActiveSession(t *testing.T) {
	db := setupTestDB(t)
	sessions := NewSessionService(db)

	got, err := sessions.ActiveSession(1, 9)
	require.NoError(t, err)
	assert.Nil(t, got)

	issued, err := sessions.Issue(1, 9, time.Hour)
	require.NoError(t, err)

	got, err = sessions.ActiveSession(1, 9)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, issued.Token, got.Token)
}
