package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mindhaven/mindhaven-api/internal/alert"
	"github.com/mindhaven/mindhaven-api/internal/authz"
	"github.com/mindhaven/mindhaven-api/internal/detection"
	"github.com/mindhaven/mindhaven-api/internal/events"
	"github.com/mindhaven/mindhaven-api/internal/history"
	"github.com/mindhaven/mindhaven-api/internal/models"
)

// SignalHandler ingests raw signals from the upstream contexts (chat, facial
// analysis, check-ins). Detection and alerting are advisory side channels:
// every endpoint answers 202 regardless of whether a pattern was found or the
// advisory path failed, because the originating user action must never be
// blocked.
type SignalHandler struct {
	detector *detection.Service
	alerts   alert.Service
	cache    *history.RedisCache
	bus      *events.Bus
	logger   zerolog.Logger
}

func NewSignalHandler(detector *detection.Service, alerts alert.Service, cache *history.RedisCache, bus *events.Bus, logger zerolog.Logger) *SignalHandler {
	return &SignalHandler{
		detector: detector,
		alerts:   alerts,
		cache:    cache,
		bus:      bus,
		logger:   logger.With().Str("handler", "signal").Logger(),
	}
}

type chatMessageSignal struct {
	PatientID      string `json:"patient_id"`
	PsychologistID string `json:"psychologist_id"`
	Text           string `json:"text"`
}

func (h *SignalHandler) ChatMessage(w http.ResponseWriter, r *http.Request) {
	var req chatMessageSignal
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	patientID := h.resolvePatientID(r, req.PatientID)
	if patientID == "" {
		http.Error(w, "Patient ID is required", http.StatusBadRequest)
		return
	}

	pattern := h.detector.EvaluateMessage(r.Context(), patientID, req.Text)
	if pattern != nil {
		h.createAlert(r.Context(), patientID, req.PsychologistID, models.TriggerSourceChat, pattern)
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

type emotionSignal struct {
	PatientID      string    `json:"patient_id"`
	PsychologistID string    `json:"psychologist_id"`
	Label          string    `json:"label"`
	Confidence     float64   `json:"confidence"`
	Timestamp      time.Time `json:"timestamp"`
}

func (h *SignalHandler) EmotionObservation(w http.ResponseWriter, r *http.Request) {
	var req emotionSignal
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	patientID := h.resolvePatientID(r, req.PatientID)
	if patientID == "" {
		http.Error(w, "Patient ID is required", http.StatusBadRequest)
		return
	}
	if req.Label == "" || req.Confidence < 0 || req.Confidence > 1 {
		http.Error(w, "Label and confidence in [0,1] are required", http.StatusBadRequest)
		return
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now().UTC()
	}

	obs := models.EmotionObservation{
		UserID:     patientID,
		Label:      strings.ToLower(strings.TrimSpace(req.Label)),
		Confidence: req.Confidence,
		Timestamp:  req.Timestamp,
	}

	// Window detection reads history that excludes the new observation; the
	// detector merges it in itself. Append afterwards so the next signal sees
	// this one.
	pattern := h.detector.EvaluateObservation(r.Context(), obs)
	if err := h.cache.Append(r.Context(), obs); err != nil {
		h.logger.Warn().Err(err).Str("patient_id", patientID).Msg("failed to cache observation")
	}
	if pattern != nil {
		h.createAlert(r.Context(), patientID, req.PsychologistID, models.TriggerSourceFacialPattern, pattern)
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

type checkInSignal struct {
	PatientID      string `json:"patient_id"`
	PsychologistID string `json:"psychologist_id"`
	IsCritical     bool   `json:"is_critical"`
}

func (h *SignalHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req checkInSignal
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	patientID := h.resolvePatientID(r, req.PatientID)
	if patientID == "" {
		http.Error(w, "Patient ID is required", http.StatusBadRequest)
		return
	}

	h.bus.Publish(r.Context(), events.CheckInCompleted{
		PatientID:      patientID,
		PsychologistID: strings.TrimSpace(req.PsychologistID),
		IsCritical:     req.IsCritical,
	})

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// resolvePatientID prefers an explicit payload id (service-to-service calls)
// and falls back to the authenticated user.
func (h *SignalHandler) resolvePatientID(r *http.Request, explicit string) string {
	if trimmed := strings.TrimSpace(explicit); trimmed != "" {
		return trimmed
	}
	if userID, ok := authz.UserIDFromRequest(r); ok {
		return userID
	}
	return ""
}

// createAlert is best-effort: a failure is logged and never surfaced to the
// signal's originator.
func (h *SignalHandler) createAlert(ctx context.Context, patientID, psychologistID string, source models.TriggerSource, pattern *models.CrisisPattern) {
	var psychID *string
	if trimmed := strings.TrimSpace(psychologistID); trimmed != "" {
		psychID = &trimmed
	}

	if _, err := h.alerts.Create(ctx, alert.CreateAlertParams{
		PatientID:      patientID,
		PsychologistID: psychID,
		Source:         source,
		Severity:       pattern.Severity,
		TriggerReason:  pattern.TriggerReason,
	}); err != nil {
		h.logger.Error().Err(err).Str("patient_id", patientID).Msg("failed to create alert from detected pattern")
	}
}
