package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mindhaven/mindhaven-api/internal/models"
)

type CreateNotificationParams struct {
	UserID      string
	Type        models.NotificationType
	Title       string
	Content     string
	Priority    models.NotificationPriority
	Method      models.DeliveryMethod
	ScheduledAt time.Time
	Metadata    map[string]interface{}
}

type NotificationRepository interface {
	Create(ctx context.Context, params CreateNotificationParams) (models.Notification, error)
	GetByID(ctx context.Context, id string) (models.Notification, error)
	ListByUser(ctx context.Context, userID string, page, pageSize int) ([]models.Notification, error)
	// ListRecent returns the newest notifications for a user, used by the
	// activity heuristic.
	ListRecent(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	// ListPendingDueBy feeds the external delivery worker: pending
	// notifications whose scheduled time has passed.
	ListPendingDueBy(ctx context.Context, due time.Time) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) (models.Notification, error)
	UpdateStatus(ctx context.Context, notificationID string, status models.NotificationStatus) (models.Notification, error)
}

type notificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

const notificationColumns = `id, user_id, type, title, content, priority, delivery_method, status, scheduled_at, read_at, metadata, created_at, updated_at`

func (r *notificationRepository) Create(ctx context.Context, params CreateNotificationParams) (models.Notification, error) {
	const query = `
		INSERT INTO notifications (id, user_id, type, title, content, priority, delivery_method, status, scheduled_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + notificationColumns

	var metadata interface{}
	if len(params.Metadata) > 0 {
		bytes, err := json.Marshal(params.Metadata)
		if err != nil {
			return models.Notification{}, errors.Wrap(err, "marshal metadata")
		}
		metadata = bytes
	}

	row := r.db.QueryRowContext(ctx, query,
		uuid.New().String(), strings.TrimSpace(params.UserID), params.Type,
		params.Title, params.Content, params.Priority, params.Method,
		models.NotificationStatusPending, params.ScheduledAt, metadata,
	)
	notif, err := scanNotification(row)
	if err != nil {
		return models.Notification{}, errors.Wrap(err, "create notification")
	}
	return notif, nil
}

func (r *notificationRepository) GetByID(ctx context.Context, id string) (models.Notification, error) {
	const query = `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, strings.TrimSpace(id))
	notif, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Notification{}, ErrNotFound
		}
		return models.Notification{}, errors.Wrap(err, "get notification")
	}
	return notif, nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]models.Notification, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 25
	}

	const query = `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, strings.TrimSpace(userID), pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, errors.Wrap(err, "list notifications")
	}
	defer rows.Close()
	return collectNotifications(rows)
}

func (r *notificationRepository) ListRecent(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	const query = `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, strings.TrimSpace(userID), limit)
	if err != nil {
		return nil, errors.Wrap(err, "list recent notifications")
	}
	defer rows.Close()
	return collectNotifications(rows)
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL`

	var count int
	if err := r.db.QueryRowContext(ctx, query, strings.TrimSpace(userID)).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "count unread notifications")
	}
	return count, nil
}

func (r *notificationRepository) ListPendingDueBy(ctx context.Context, due time.Time) ([]models.Notification, error) {
	const query = `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE status = $1 AND scheduled_at <= $2
		ORDER BY scheduled_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, models.NotificationStatusPending, due)
	if err != nil {
		return nil, errors.Wrap(err, "list pending notifications")
	}
	defer rows.Close()
	return collectNotifications(rows)
}

func (r *notificationRepository) MarkRead(ctx context.Context, userID, notificationID string) (models.Notification, error) {
	const query = `
		UPDATE notifications
		SET read_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + notificationColumns

	row := r.db.QueryRowContext(ctx, query, strings.TrimSpace(notificationID), strings.TrimSpace(userID))
	notif, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Notification{}, ErrNotFound
		}
		return models.Notification{}, errors.Wrap(err, "mark notification read")
	}
	return notif, nil
}

func (r *notificationRepository) UpdateStatus(ctx context.Context, notificationID string, status models.NotificationStatus) (models.Notification, error) {
	const query = `
		UPDATE notifications
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + notificationColumns

	row := r.db.QueryRowContext(ctx, query, strings.TrimSpace(notificationID), status)
	notif, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Notification{}, ErrNotFound
		}
		return models.Notification{}, errors.Wrap(err, "update notification status")
	}
	return notif, nil
}

func collectNotifications(rows *sql.Rows) ([]models.Notification, error) {
	var notifications []models.Notification
	for rows.Next() {
		notif, err := scanNotification(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan notification")
		}
		notifications = append(notifications, notif)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notifications, nil
}

func scanNotification(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Notification, error) {
	var (
		notif       models.Notification
		metadataRaw []byte
		readAt      sql.NullTime
	)

	if err := scanner.Scan(
		&notif.ID,
		&notif.UserID,
		&notif.Type,
		&notif.Title,
		&notif.Content,
		&notif.Priority,
		&notif.Method,
		&notif.Status,
		&notif.ScheduledAt,
		&readAt,
		&metadataRaw,
		&notif.CreatedAt,
		&notif.UpdatedAt,
	); err != nil {
		return models.Notification{}, err
	}

	if len(metadataRaw) > 0 {
		notif.Metadata = metadataRaw
	}
	if readAt.Valid {
		t := readAt.Time
		notif.ReadAt = &t
	}
	return notif, nil
}
