package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindhaven/mindhaven-api/internal/models"
)

func setupPreferenceRepo(t *testing.T) (PreferenceRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPreferenceRepository(db), mock
}

func preferenceRows(id, userID string, notifType models.NotificationType, enabled bool, method, schedule interface{}) *sqlmock.Rows {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	return sqlmock.NewRows([]string{
		"id", "user_id", "notification_type", "is_enabled", "delivery_method", "schedule", "created_at", "updated_at",
	}).AddRow(id, userID, notifType, enabled, method, schedule, now, now)
}

func TestPreferenceRepository_GetByUserAndType(t *testing.T) {
	repo, mock := setupPreferenceRepo(t)
	schedule := []byte(`{"quiet_hours":[{"start":"22:00","end":"23:00"}],"time_zone":"America/New_York"}`)

	mock.ExpectQuery("SELECT (.+)\\s+FROM notification_preferences\\s+WHERE user_id = \\$1 AND notification_type = \\$2").
		WithArgs("user-1", models.NotificationTypeNewMessage).
		WillReturnRows(preferenceRows("p-1", "user-1", models.NotificationTypeNewMessage, true, "email", schedule))

	pref, err := repo.GetByUserAndType(context.Background(), "user-1", models.NotificationTypeNewMessage)
	require.NoError(t, err)
	assert.True(t, pref.IsEnabled)
	require.NotNil(t, pref.Method)
	assert.Equal(t, models.DeliveryMethodEmail, *pref.Method)
	require.NotNil(t, pref.Schedule)
	require.Len(t, pref.Schedule.QuietHours, 1)
	assert.Equal(t, "22:00", pref.Schedule.QuietHours[0].Start)
	assert.Equal(t, "America/New_York", pref.Schedule.TimeZone)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPreferenceRepository_GetByUserAndType_NotFound(t *testing.T) {
	repo, mock := setupPreferenceRepo(t)

	mock.ExpectQuery("SELECT (.+)\\s+FROM notification_preferences").
		WithArgs("user-1", models.NotificationTypeSystem).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByUserAndType(context.Background(), "user-1", models.NotificationTypeSystem)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPreferenceRepository_Upsert(t *testing.T) {
	repo, mock := setupPreferenceRepo(t)
	method := models.DeliveryMethodSMS

	mock.ExpectQuery("INSERT INTO notification_preferences (.+)\\s+ON CONFLICT \\(user_id, notification_type\\)").
		WithArgs(sqlmock.AnyArg(), "user-1", models.NotificationTypeCrisisAlert, false, "sms", nil).
		WillReturnRows(preferenceRows("p-1", "user-1", models.NotificationTypeCrisisAlert, false, "sms", nil))

	pref, err := repo.Upsert(context.Background(), models.NotificationPreference{
		UserID:    "user-1",
		Type:      models.NotificationTypeCrisisAlert,
		IsEnabled: false,
		Method:    &method,
	})
	require.NoError(t, err)
	assert.False(t, pref.IsEnabled)
	require.NotNil(t, pref.Method)
	assert.Equal(t, models.DeliveryMethodSMS, *pref.Method)
	assert.Nil(t, pref.Schedule)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPreferenceRepository_Upsert_MarshalsSchedule(t *testing.T) {
	repo, mock := setupPreferenceRepo(t)
	schedule := &models.DeliverySchedule{
		QuietHours: []models.QuietWindow{{Start: "22:00", End: "23:00"}},
		TimeZone:   "UTC",
	}
	stored := []byte(`{"quiet_hours":[{"start":"22:00","end":"23:00"}],"time_zone":"UTC"}`)

	mock.ExpectQuery("INSERT INTO notification_preferences").
		WithArgs(sqlmock.AnyArg(), "user-1", models.NotificationTypeNewMessage, true, nil, stored).
		WillReturnRows(preferenceRows("p-1", "user-1", models.NotificationTypeNewMessage, true, nil, stored))

	pref, err := repo.Upsert(context.Background(), models.NotificationPreference{
		UserID:    "user-1",
		Type:      models.NotificationTypeNewMessage,
		IsEnabled: true,
		Schedule:  schedule,
	})
	require.NoError(t, err)
	require.NotNil(t, pref.Schedule)
	assert.Equal(t, "23:00", pref.Schedule.QuietHours[0].End)
	require.NoError(t, mock.ExpectationsWereMet())
}
