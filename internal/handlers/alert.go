package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/mindhaven/mindhaven-api/internal/alert"
	"github.com/mindhaven/mindhaven-api/internal/authz"
	"github.com/mindhaven/mindhaven-api/internal/models"
	"github.com/mindhaven/mindhaven-api/internal/repository"
)

type AlertHandler struct {
	service alert.Service
	logger  zerolog.Logger
}

func NewAlertHandler(service alert.Service, logger zerolog.Logger) *AlertHandler {
	return &AlertHandler{
		service: service,
		logger:  logger.With().Str("handler", "alert").Logger(),
	}
}

type createAlertRequest struct {
	PatientID      string `json:"patient_id"`
	PsychologistID string `json:"psychologist_id"`
	Source         string `json:"trigger_source"`
	Severity       string `json:"severity"`
	TriggerReason  string `json:"trigger_reason"`
}

// Create is the service-to-service entry point for upstream contexts that
// detect patterns themselves. Severity arrives as a free string and is
// coerced; unknown values fall back to moderate with a logged warning.
func (h *AlertHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	severity, known := models.ParseSeverity(req.Severity)
	if !known {
		h.logger.Warn().Str("raw_severity", req.Severity).Msg("unknown severity value, defaulting to moderate")
	}

	var psychologistID *string
	if trimmed := strings.TrimSpace(req.PsychologistID); trimmed != "" {
		psychologistID = &trimmed
	}

	created, err := h.service.Create(r.Context(), alert.CreateAlertParams{
		PatientID:      req.PatientID,
		PsychologistID: psychologistID,
		Source:         models.TriggerSource(req.Source),
		Severity:       severity,
		TriggerReason:  req.TriggerReason,
	})
	if err != nil {
		if errors.Is(err, alert.ErrEmptyTriggerReason) {
			http.Error(w, "Trigger reason is required", http.StatusBadRequest)
			return
		}
		h.logger.Error().Err(err).Msg("failed to create alert")
		http.Error(w, "Failed to create alert", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	psychologistID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	var filter repository.AlertFilter
	if raw := strings.TrimSpace(r.URL.Query().Get("severity")); raw != "" {
		severity, known := models.ParseSeverity(raw)
		if !known {
			http.Error(w, "Unknown severity filter", http.StatusBadRequest)
			return
		}
		filter.Severity = &severity
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status := models.AlertStatus(strings.ToLower(raw))
		if !models.IsValidAlertStatus(status) {
			http.Error(w, "Unknown status filter", http.StatusBadRequest)
			return
		}
		filter.Status = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			filter.Limit = parsed
		}
	}

	alerts, err := h.service.ListByPsychologist(r.Context(), psychologistID, filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list alerts")
		http.Error(w, "Failed to list alerts", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"alerts": alerts})
}

func (h *AlertHandler) Get(w http.ResponseWriter, r *http.Request) {
	alertID := strings.TrimSpace(mux.Vars(r)["alertID"])
	if alertID == "" {
		http.Error(w, "Alert ID is required", http.StatusBadRequest)
		return
	}

	found, err := h.service.Get(r.Context(), alertID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "Alert not found", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Str("alert_id", alertID).Msg("failed to get alert")
		http.Error(w, "Failed to get alert", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, found)
}

func (h *AlertHandler) PendingCount(w http.ResponseWriter, r *http.Request) {
	psychologistID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	count, err := h.service.CountPending(r.Context(), psychologistID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to count pending alerts")
		http.Error(w, "Failed to count pending alerts", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"pending": count})
}

func (h *AlertHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	alertID := strings.TrimSpace(mux.Vars(r)["alertID"])

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	updated, err := h.service.UpdateStatus(r.Context(), alertID, models.AlertStatus(strings.ToLower(req.Status)))
	if err != nil {
		h.respondUpdateError(w, err, alertID)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *AlertHandler) UpdateSeverity(w http.ResponseWriter, r *http.Request) {
	alertID := strings.TrimSpace(mux.Vars(r)["alertID"])

	var req struct {
		Severity string `json:"severity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// Clinician-facing input is validated strictly, unlike the coercing
	// service-to-service path.
	severity, known := models.ParseSeverity(req.Severity)
	if !known {
		http.Error(w, "Unknown severity", http.StatusBadRequest)
		return
	}

	updated, err := h.service.UpdateSeverity(r.Context(), alertID, severity)
	if err != nil {
		h.respondUpdateError(w, err, alertID)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *AlertHandler) respondUpdateError(w http.ResponseWriter, err error, alertID string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		http.Error(w, "Alert not found", http.StatusNotFound)
	case errors.Is(err, alert.ErrInvalidTransition), errors.Is(err, alert.ErrAlertTerminal):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, repository.ErrVersionConflict):
		http.Error(w, "Alert was modified concurrently, retry", http.StatusConflict)
	default:
		h.logger.Error().Err(err).Str("alert_id", alertID).Msg("failed to update alert")
		http.Error(w, "Failed to update alert", http.StatusInternalServerError)
	}
}
