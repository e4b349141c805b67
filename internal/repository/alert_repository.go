package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mindhaven/mindhaven-api/internal/models"
)

// AlertFilter narrows ListByPsychologist. Zero values mean "no filter".
type AlertFilter struct {
	Severity *models.AlertSeverity
	Status   *models.AlertStatus
	Limit    int
}

type AlertRepository interface {
	Create(ctx context.Context, alert models.CrisisAlert) (models.CrisisAlert, error)
	Get(ctx context.Context, id string) (models.CrisisAlert, error)
	ListByPsychologist(ctx context.Context, psychologistID string, filter AlertFilter) ([]models.CrisisAlert, error)
	CountPending(ctx context.Context, psychologistID string) (int, error)
	// Update writes severity, status, and psychologist routing conditionally
	// on the stored version; a stale version yields ErrVersionConflict.
	Update(ctx context.Context, alert models.CrisisAlert) (models.CrisisAlert, error)
}

type alertRepository struct {
	db *sql.DB
}

func NewAlertRepository(db *sql.DB) AlertRepository {
	return &alertRepository{db: db}
}

const alertColumns = `id, patient_id, psychologist_id, severity, status, trigger_source, trigger_reason, detected_at, version, created_at, updated_at`

func (r *alertRepository) Create(ctx context.Context, alert models.CrisisAlert) (models.CrisisAlert, error) {
	const query = `
		INSERT INTO crisis_alerts (id, patient_id, psychologist_id, severity, status, trigger_source, trigger_reason, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + alertColumns

	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}

	var psychologistID interface{}
	if alert.PsychologistID != nil && strings.TrimSpace(*alert.PsychologistID) != "" {
		psychologistID = strings.TrimSpace(*alert.PsychologistID)
	}

	row := r.db.QueryRowContext(ctx, query,
		alert.ID, alert.PatientID, psychologistID, alert.Severity, alert.Status,
		alert.TriggerSource, alert.TriggerReason, alert.DetectedAt,
	)
	created, err := scanAlert(row)
	if err != nil {
		return models.CrisisAlert{}, errors.Wrap(err, "create crisis alert")
	}
	return created, nil
}

func (r *alertRepository) Get(ctx context.Context, id string) (models.CrisisAlert, error) {
	const query = `SELECT ` + alertColumns + ` FROM crisis_alerts WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, strings.TrimSpace(id))
	alert, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.CrisisAlert{}, ErrNotFound
		}
		return models.CrisisAlert{}, errors.Wrap(err, "get crisis alert")
	}
	return alert, nil
}

func (r *alertRepository) ListByPsychologist(ctx context.Context, psychologistID string, filter AlertFilter) ([]models.CrisisAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM crisis_alerts WHERE psychologist_id = $1`
	args := []interface{}{strings.TrimSpace(psychologistID)}

	if filter.Severity != nil {
		args = append(args, *filter.Severity)
		query += fmt.Sprintf(" AND severity = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY detected_at DESC"

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list crisis alerts")
	}
	defer rows.Close()

	var alerts []models.CrisisAlert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan crisis alert")
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return alerts, nil
}

func (r *alertRepository) CountPending(ctx context.Context, psychologistID string) (int, error) {
	const query = `SELECT COUNT(*) FROM crisis_alerts WHERE psychologist_id = $1 AND status = $2`

	var count int
	err := r.db.QueryRowContext(ctx, query, strings.TrimSpace(psychologistID), models.AlertStatusPending).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, "count pending alerts")
	}
	return count, nil
}

func (r *alertRepository) Update(ctx context.Context, alert models.CrisisAlert) (models.CrisisAlert, error) {
	const query = `
		UPDATE crisis_alerts
		SET severity = $2, status = $3, psychologist_id = $4, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $5
		RETURNING ` + alertColumns

	var psychologistID interface{}
	if alert.PsychologistID != nil && strings.TrimSpace(*alert.PsychologistID) != "" {
		psychologistID = strings.TrimSpace(*alert.PsychologistID)
	}

	row := r.db.QueryRowContext(ctx, query, alert.ID, alert.Severity, alert.Status, psychologistID, alert.Version)
	updated, err := scanAlert(row)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.CrisisAlert{}, errors.Wrap(err, "update crisis alert")
	}

	// Either the row is gone or someone updated it first.
	if _, getErr := r.Get(ctx, alert.ID); getErr != nil {
		return models.CrisisAlert{}, getErr
	}
	return models.CrisisAlert{}, ErrVersionConflict
}

func scanAlert(scanner interface {
	Scan(dest ...interface{}) error
}) (models.CrisisAlert, error) {
	var (
		alert          models.CrisisAlert
		psychologistID sql.NullString
	)

	if err := scanner.Scan(
		&alert.ID,
		&alert.PatientID,
		&psychologistID,
		&alert.Severity,
		&alert.Status,
		&alert.TriggerSource,
		&alert.TriggerReason,
		&alert.DetectedAt,
		&alert.Version,
		&alert.CreatedAt,
		&alert.UpdatedAt,
	); err != nil {
		return models.CrisisAlert{}, err
	}

	if psychologistID.Valid {
		val := psychologistID.String
		alert.PsychologistID = &val
	}
	return alert, nil
}
