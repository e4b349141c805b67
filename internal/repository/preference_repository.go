package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mindhaven/mindhaven-api/internal/models"
)

type PreferenceRepository interface {
	GetByUserAndType(ctx context.Context, userID string, notificationType models.NotificationType) (models.NotificationPreference, error)
	// Upsert relies on the UNIQUE(user_id, notification_type) constraint, so
	// concurrent first writes cannot produce duplicate rows.
	Upsert(ctx context.Context, pref models.NotificationPreference) (models.NotificationPreference, error)
}

type preferenceRepository struct {
	db *sql.DB
}

func NewPreferenceRepository(db *sql.DB) PreferenceRepository {
	return &preferenceRepository{db: db}
}

const preferenceColumns = `id, user_id, notification_type, is_enabled, delivery_method, schedule, created_at, updated_at`

func (r *preferenceRepository) GetByUserAndType(ctx context.Context, userID string, notificationType models.NotificationType) (models.NotificationPreference, error) {
	const query = `
		SELECT ` + preferenceColumns + `
		FROM notification_preferences
		WHERE user_id = $1 AND notification_type = $2
	`

	row := r.db.QueryRowContext(ctx, query, strings.TrimSpace(userID), notificationType)
	pref, err := scanPreference(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.NotificationPreference{}, ErrNotFound
		}
		return models.NotificationPreference{}, errors.Wrap(err, "get notification preference")
	}
	return pref, nil
}

func (r *preferenceRepository) Upsert(ctx context.Context, pref models.NotificationPreference) (models.NotificationPreference, error) {
	const query = `
		INSERT INTO notification_preferences (id, user_id, notification_type, is_enabled, delivery_method, schedule)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, notification_type)
		DO UPDATE SET is_enabled = EXCLUDED.is_enabled, delivery_method = EXCLUDED.delivery_method,
			schedule = EXCLUDED.schedule, updated_at = NOW()
		RETURNING ` + preferenceColumns

	if pref.ID == "" {
		pref.ID = uuid.New().String()
	}

	var method interface{}
	if pref.Method != nil {
		method = string(*pref.Method)
	}

	var schedule interface{}
	if pref.Schedule != nil {
		bytes, err := json.Marshal(pref.Schedule)
		if err != nil {
			return models.NotificationPreference{}, errors.Wrap(err, "marshal schedule")
		}
		schedule = bytes
	}

	row := r.db.QueryRowContext(ctx, query,
		pref.ID, strings.TrimSpace(pref.UserID), pref.Type, pref.IsEnabled, method, schedule,
	)
	upserted, err := scanPreference(row)
	if err != nil {
		return models.NotificationPreference{}, errors.Wrap(err, "upsert notification preference")
	}
	return upserted, nil
}

func scanPreference(scanner interface {
	Scan(dest ...interface{}) error
}) (models.NotificationPreference, error) {
	var (
		pref        models.NotificationPreference
		method      sql.NullString
		scheduleRaw []byte
	)

	if err := scanner.Scan(
		&pref.ID,
		&pref.UserID,
		&pref.Type,
		&pref.IsEnabled,
		&method,
		&scheduleRaw,
		&pref.CreatedAt,
		&pref.UpdatedAt,
	); err != nil {
		return models.NotificationPreference{}, err
	}

	if method.Valid && method.String != "" {
		val := models.DeliveryMethod(method.String)
		pref.Method = &val
	}
	if len(scheduleRaw) > 0 {
		var schedule models.DeliverySchedule
		if err := json.Unmarshal(scheduleRaw, &schedule); err != nil {
			return models.NotificationPreference{}, errors.Wrap(err, "unmarshal schedule")
		}
		pref.Schedule = &schedule
	}
	return pref, nil
}
