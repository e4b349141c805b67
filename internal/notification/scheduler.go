package notification

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/mindhaven/mindhaven-api/internal/models"
	"github.com/mindhaven/mindhaven-api/internal/repository"
)

// quietHoursBuffer is added after the end of a matched quiet window so the
// user isn't pinged the second their quiet hours expire.
const quietHoursBuffer = 15 * time.Minute

// recentActivityWindow and recentActivityLimit bound the IsUserActive
// heuristic: any of the 10 most recent notifications read within 7 days.
const (
	recentActivityWindow = 7 * 24 * time.Hour
	recentActivityLimit  = 10
)

// Scheduler computes how and when a notification should be delivered given
// the user's preferences and quiet-hours configuration.
type Scheduler struct {
	prefs  repository.PreferenceRepository
	notifs repository.NotificationRepository
	now    func() time.Time
	logger zerolog.Logger
}

func NewScheduler(prefs repository.PreferenceRepository, notifs repository.NotificationRepository, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		prefs:  prefs,
		notifs: notifs,
		now:    time.Now,
		logger: logger.With().Str("component", "delivery_scheduler").Logger(),
	}
}

// OptimalMethod prefers the user's configured method for the type, falling
// back to the per-type default table. A store failure degrades to the default
// rather than blocking dispatch.
func (s *Scheduler) OptimalMethod(ctx context.Context, userID string, notificationType models.NotificationType) models.DeliveryMethod {
	pref, err := s.prefs.GetByUserAndType(ctx, userID, notificationType)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("preference lookup failed, using default method")
		}
		return models.DefaultMethodForType(notificationType)
	}
	if pref.Method != nil {
		return *pref.Method
	}
	return models.DefaultMethodForType(notificationType)
}

// OptimalDeliveryTime returns "now" unless the user's local time falls inside
// a configured quiet-hours window, in which case delivery is deferred to the
// end of the first matching window plus a buffer. Windows are checked
// independently; no recursion across windows.
func (s *Scheduler) OptimalDeliveryTime(ctx context.Context, userID string, notificationType models.NotificationType) time.Time {
	now := s.now().UTC()

	pref, err := s.prefs.GetByUserAndType(ctx, userID, notificationType)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("preference lookup failed, scheduling immediately")
		}
		return now
	}
	if pref.Schedule == nil || len(pref.Schedule.QuietHours) == 0 {
		return now
	}

	local := now.In(pref.Schedule.Location())
	for _, window := range pref.Schedule.QuietHours {
		inside, err := window.Contains(local)
		if err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("skipping malformed quiet-hours window")
			continue
		}
		if !inside {
			continue
		}
		end, err := window.EndTime(local)
		if err != nil {
			continue
		}
		return end.Add(quietHoursBuffer).UTC()
	}
	return now
}

// IsUserActive reports whether the user recently read any notification. It is
// a soft signal for method selection, never a hard gate, so failures map to
// "inactive".
func (s *Scheduler) IsUserActive(ctx context.Context, userID string) bool {
	recent, err := s.notifs.ListRecent(ctx, userID, recentActivityLimit)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("recent notification lookup failed")
		return false
	}
	cutoff := s.now().UTC().Add(-recentActivityWindow)
	for _, notif := range recent {
		if notif.ReadAt != nil && notif.ReadAt.After(cutoff) {
			return true
		}
	}
	return false
}
