package detection

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/mindhaven/mindhaven-api/internal/models"
)

// HistoryProvider exposes the emotion-tracking context's recent observations.
type HistoryProvider interface {
	Observations(ctx context.Context, userID string, since time.Time) ([]models.EmotionObservation, error)
}

// Service is the advisory facade over the detector. Detection is a side
// channel of the primary user action (sending a message, saving a check-in),
// so every failure here is logged and mapped to "no pattern" instead of
// propagating to the caller.
type Service struct {
	detector   *Detector
	history    HistoryProvider
	windowDays int
	logger     zerolog.Logger
}

func NewService(detector *Detector, history HistoryProvider, windowDays int, logger zerolog.Logger) *Service {
	return &Service{
		detector:   detector,
		history:    history,
		windowDays: windowDays,
		logger:     logger.With().Str("component", "detection").Logger(),
	}
}

// EvaluateMessage scans one chat message. Never returns an error.
func (s *Service) EvaluateMessage(ctx context.Context, userID, text string) (pattern *models.CrisisPattern) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Str("user_id", userID).Msg("text detection panicked")
			pattern = nil
		}
	}()
	return s.detector.DetectFromText(text)
}

// EvaluateObservation merges the new observation with the user's recent
// history and runs windowed detection. A history lookup failure degrades to
// "no pattern" rather than aborting the observation write that triggered it.
func (s *Service) EvaluateObservation(ctx context.Context, obs models.EmotionObservation) (pattern *models.CrisisPattern) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Str("user_id", obs.UserID).Msg("window detection panicked")
			pattern = nil
		}
	}()

	since := time.Now().UTC().AddDate(0, 0, -s.windowDays)
	history, err := s.history.Observations(ctx, obs.UserID, since)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", obs.UserID).Msg("observation history unavailable, skipping window detection")
		return nil
	}

	return s.detector.DetectFromObservationWindow(obs.UserID, obs, history)
}
