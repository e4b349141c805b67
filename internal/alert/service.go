package alert

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/mindhaven/mindhaven-api/internal/events"
	"github.com/mindhaven/mindhaven-api/internal/models"
	"github.com/mindhaven/mindhaven-api/internal/repository"
)

var (
	// ErrEmptyTriggerReason: every alert must say why it was raised.
	ErrEmptyTriggerReason = errors.New("trigger reason is required")

	// ErrInvalidTransition signals a status change the state machine does not
	// allow, including any mutation of a resolved or dismissed alert.
	ErrInvalidTransition = errors.New("invalid alert status transition")

	// ErrAlertTerminal rejects severity changes on resolved/dismissed alerts.
	ErrAlertTerminal = errors.New("alert is in a terminal status")
)

type CreateAlertParams struct {
	PatientID      string
	PsychologistID *string
	Source         models.TriggerSource
	Severity       models.AlertSeverity
	TriggerReason  string
}

type Service interface {
	Create(ctx context.Context, params CreateAlertParams) (models.CrisisAlert, error)
	Get(ctx context.Context, alertID string) (models.CrisisAlert, error)
	ListByPsychologist(ctx context.Context, psychologistID string, filter repository.AlertFilter) ([]models.CrisisAlert, error)
	CountPending(ctx context.Context, psychologistID string) (int, error)
	UpdateStatus(ctx context.Context, alertID string, status models.AlertStatus) (models.CrisisAlert, error)
	UpdateSeverity(ctx context.Context, alertID string, severity models.AlertSeverity) (models.CrisisAlert, error)
}

type service struct {
	repo   repository.AlertRepository
	bus    *events.Bus
	now    func() time.Time
	logger zerolog.Logger
}

func NewService(repo repository.AlertRepository, bus *events.Bus, logger zerolog.Logger) Service {
	return &service{
		repo:   repo,
		bus:    bus,
		now:    time.Now,
		logger: logger.With().Str("component", "alert_service").Logger(),
	}
}

// Create persists a pending alert and then publishes CrisisAlertCreated, so
// subscribers always observe a durably stored record.
func (s *service) Create(ctx context.Context, params CreateAlertParams) (models.CrisisAlert, error) {
	reason := strings.TrimSpace(params.TriggerReason)
	if reason == "" {
		return models.CrisisAlert{}, ErrEmptyTriggerReason
	}
	patientID := strings.TrimSpace(params.PatientID)
	if patientID == "" {
		return models.CrisisAlert{}, errors.New("patient id is required")
	}
	severity := params.Severity
	if severity == "" {
		severity = models.SeverityModerate
	}

	alert, err := s.repo.Create(ctx, models.CrisisAlert{
		PatientID:      patientID,
		PsychologistID: params.PsychologistID,
		Severity:       severity,
		Status:         models.AlertStatusPending,
		TriggerSource:  params.Source,
		TriggerReason:  reason,
		DetectedAt:     s.now().UTC(),
	})
	if err != nil {
		return models.CrisisAlert{}, errors.Wrap(err, "create alert")
	}

	s.logger.Info().
		Str("alert_id", alert.ID).
		Str("patient_id", alert.PatientID).
		Str("severity", string(alert.Severity)).
		Str("source", string(alert.TriggerSource)).
		Msg("crisis alert created")

	s.bus.Publish(ctx, events.CrisisAlertCreated{
		AlertID:        alert.ID,
		PatientID:      alert.PatientID,
		PsychologistID: alert.PsychologistID,
		Severity:       alert.Severity,
		TriggerReason:  alert.TriggerReason,
		TriggerSource:  alert.TriggerSource,
	})
	return alert, nil
}

func (s *service) Get(ctx context.Context, alertID string) (models.CrisisAlert, error) {
	return s.repo.Get(ctx, alertID)
}

func (s *service) ListByPsychologist(ctx context.Context, psychologistID string, filter repository.AlertFilter) ([]models.CrisisAlert, error) {
	return s.repo.ListByPsychologist(ctx, psychologistID, filter)
}

func (s *service) CountPending(ctx context.Context, psychologistID string) (int, error) {
	return s.repo.CountPending(ctx, psychologistID)
}

// UpdateStatus enforces the transition table: pending → reviewed/resolved/
// dismissed, reviewed → resolved/dismissed, terminal states immutable.
func (s *service) UpdateStatus(ctx context.Context, alertID string, status models.AlertStatus) (models.CrisisAlert, error) {
	if !models.IsValidAlertStatus(status) {
		return models.CrisisAlert{}, errors.Wrapf(ErrInvalidTransition, "unknown status %q", status)
	}

	alert, err := s.repo.Get(ctx, alertID)
	if err != nil {
		return models.CrisisAlert{}, err
	}
	if !alert.Status.CanTransition(status) {
		return models.CrisisAlert{}, errors.Wrapf(ErrInvalidTransition, "%s -> %s", alert.Status, status)
	}

	alert.Status = status
	updated, err := s.repo.Update(ctx, alert)
	if err != nil {
		return models.CrisisAlert{}, errors.Wrap(err, "update alert status")
	}

	s.logger.Info().
		Str("alert_id", updated.ID).
		Str("status", string(updated.Status)).
		Msg("alert status updated")
	return updated, nil
}

// UpdateSeverity allows escalation or de-escalation at any non-terminal
// status as more evidence arrives.
func (s *service) UpdateSeverity(ctx context.Context, alertID string, severity models.AlertSeverity) (models.CrisisAlert, error) {
	alert, err := s.repo.Get(ctx, alertID)
	if err != nil {
		return models.CrisisAlert{}, err
	}
	if alert.Status.IsTerminal() {
		return models.CrisisAlert{}, errors.Wrapf(ErrAlertTerminal, "alert %s is %s", alert.ID, alert.Status)
	}

	alert.Severity = severity
	updated, err := s.repo.Update(ctx, alert)
	if err != nil {
		return models.CrisisAlert{}, errors.Wrap(err, "update alert severity")
	}

	s.logger.Info().
		Str("alert_id", updated.ID).
		Str("severity", string(updated.Severity)).
		Msg("alert severity updated")
	return updated, nil
}
