package notification

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/mindhaven/mindhaven-api/internal/models"
	"github.com/mindhaven/mindhaven-api/internal/repository"
)

// ErrNotificationsDisabled is a policy rejection, not an infrastructure
// fault: the user explicitly disabled this notification type, so dispatch
// must fail loudly instead of being swallowed.
var ErrNotificationsDisabled = errors.New("notifications disabled for type")

// DispatchRequest describes one notification to deliver. Method and
// ScheduledAt are optional; when nil the scheduler resolves them.
type DispatchRequest struct {
	UserID      string
	Type        models.NotificationType
	Title       string
	Content     string
	Priority    models.NotificationPriority
	Method      *models.DeliveryMethod
	ScheduledAt *time.Time
	Metadata    map[string]interface{}
}

type Service interface {
	Dispatch(ctx context.Context, req DispatchRequest) (models.Notification, error)
	ListByUser(ctx context.Context, userID string, page, pageSize int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) (models.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
}

type service struct {
	repo      repository.NotificationRepository
	prefs     repository.PreferenceRepository
	scheduler *Scheduler
	now       func() time.Time
	logger    zerolog.Logger
}

func NewService(repo repository.NotificationRepository, prefs repository.PreferenceRepository, scheduler *Scheduler, logger zerolog.Logger) Service {
	return &service{
		repo:      repo,
		prefs:     prefs,
		scheduler: scheduler,
		now:       time.Now,
		logger:    logger.With().Str("component", "notification_service").Logger(),
	}
}

// Dispatch resolves preferences, delivery method, and delivery time, then
// persists a pending notification. The actual send is the delivery worker's
// job.
func (s *service) Dispatch(ctx context.Context, req DispatchRequest) (models.Notification, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return models.Notification{}, errors.New("user id is required")
	}
	if req.Type == "" {
		return models.Notification{}, errors.New("notification type is required")
	}

	pref, err := s.prefs.GetByUserAndType(ctx, userID, req.Type)
	switch {
	case err == nil:
		if !pref.IsEnabled {
			return models.Notification{}, errors.Wrapf(ErrNotificationsDisabled, "user %s, type %s", userID, req.Type)
		}
	case errors.Is(err, repository.ErrNotFound):
		// No preference row: proceed with defaults.
	default:
		return models.Notification{}, errors.Wrap(err, "load notification preference")
	}

	method := s.resolveMethod(ctx, userID, req, pref, err == nil)
	scheduledAt := s.resolveScheduledAt(ctx, userID, req)

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = string(req.Type)
	}
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}

	notif, err := s.repo.Create(ctx, repository.CreateNotificationParams{
		UserID:      userID,
		Type:        req.Type,
		Title:       title,
		Content:     strings.TrimSpace(req.Content),
		Priority:    priority,
		Method:      method,
		ScheduledAt: scheduledAt,
		Metadata:    req.Metadata,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("type", string(req.Type)).Msg("failed to persist notification")
		return models.Notification{}, err
	}

	s.logger.Info().
		Str("notification_id", notif.ID).
		Str("user_id", userID).
		Str("type", string(req.Type)).
		Str("method", string(method)).
		Time("scheduled_at", scheduledAt).
		Msg("notification dispatched")
	return notif, nil
}

// resolveMethod: explicit caller choice, then the user's preference, then the
// scheduler's per-type default.
func (s *service) resolveMethod(ctx context.Context, userID string, req DispatchRequest, pref models.NotificationPreference, havePref bool) models.DeliveryMethod {
	if req.Method != nil {
		return *req.Method
	}
	if havePref && pref.Method != nil {
		return *pref.Method
	}
	return s.scheduler.OptimalMethod(ctx, userID, req.Type)
}

// resolveScheduledAt clamps an explicit time into the future so ScheduledAt
// never precedes CreatedAt.
func (s *service) resolveScheduledAt(ctx context.Context, userID string, req DispatchRequest) time.Time {
	now := s.now().UTC()
	if req.ScheduledAt != nil {
		if req.ScheduledAt.Before(now) {
			return now
		}
		return req.ScheduledAt.UTC()
	}
	return s.scheduler.OptimalDeliveryTime(ctx, userID, req.Type)
}

func (s *service) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]models.Notification, error) {
	return s.repo.ListByUser(ctx, userID, page, pageSize)
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID string) (models.Notification, error) {
	return s.repo.MarkRead(ctx, userID, notificationID)
}

func (s *service) CountUnread(ctx context.Context, userID string) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}
