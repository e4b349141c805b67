package events

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mindhaven/mindhaven-api/internal/models"
	"github.com/mindhaven/mindhaven-api/internal/notification"
)

// messagePreviewLen bounds how much of a chat message leaks into the
// notification content.
const messagePreviewLen = 80

// Handlers translates each upstream domain event into exactly one dispatch
// call. Every handler logs its own dispatch failure and returns normally: one
// failing handler must never suppress notifications for unrelated events.
type Handlers struct {
	dispatcher notification.Service
	logger     zerolog.Logger
}

func NewHandlers(dispatcher notification.Service, logger zerolog.Logger) *Handlers {
	return &Handlers{
		dispatcher: dispatcher,
		logger:     logger.With().Str("component", "event_handlers").Logger(),
	}
}

// Register subscribes one handler per upstream event type.
func (h *Handlers) Register(bus *Bus) {
	bus.Subscribe(NameCrisisAlertCreated, func(ctx context.Context, evt Event) {
		if e, ok := evt.(CrisisAlertCreated); ok {
			h.HandleCrisisAlertCreated(ctx, e)
		}
	})
	bus.Subscribe(NameContentAssigned, func(ctx context.Context, evt Event) {
		if e, ok := evt.(ContentAssigned); ok {
			h.HandleContentAssigned(ctx, e)
		}
	})
	bus.Subscribe(NameAssignmentCompleted, func(ctx context.Context, evt Event) {
		if e, ok := evt.(AssignmentCompleted); ok {
			h.HandleAssignmentCompleted(ctx, e)
		}
	})
	bus.Subscribe(NameAllAssignmentsCompleted, func(ctx context.Context, evt Event) {
		if e, ok := evt.(AllAssignmentsCompleted); ok {
			h.HandleAllAssignmentsCompleted(ctx, e)
		}
	})
	bus.Subscribe(NameMessageSent, func(ctx context.Context, evt Event) {
		if e, ok := evt.(MessageSent); ok {
			h.HandleMessageSent(ctx, e)
		}
	})
	bus.Subscribe(NameCheckInCompleted, func(ctx context.Context, evt Event) {
		if e, ok := evt.(CheckInCompleted); ok {
			h.HandleCheckInCompleted(ctx, e)
		}
	})
}

// HandleCrisisAlertCreated notifies the assigned psychologist. Crisis alerts
// are always critical priority; the delivery method is left to the scheduler.
func (h *Handlers) HandleCrisisAlertCreated(ctx context.Context, evt CrisisAlertCreated) {
	if evt.PsychologistID == nil || *evt.PsychologistID == "" {
		h.logger.Warn().Str("alert_id", evt.AlertID).Msg("crisis alert has no assigned psychologist, skipping notification")
		return
	}

	h.dispatch(ctx, notification.DispatchRequest{
		UserID:   *evt.PsychologistID,
		Type:     models.NotificationTypeCrisisAlert,
		Title:    fmt.Sprintf("Crisis alert: %s severity", evt.Severity),
		Content:  fmt.Sprintf("A crisis signal was detected for one of your patients. Reason: %s", evt.TriggerReason),
		Priority: models.PriorityCritical,
		Metadata: map[string]interface{}{
			"alert_id":       evt.AlertID,
			"patient_id":     evt.PatientID,
			"severity":       string(evt.Severity),
			"trigger_source": string(evt.TriggerSource),
		},
	})
}

func (h *Handlers) HandleContentAssigned(ctx context.Context, evt ContentAssigned) {
	content := fmt.Sprintf("Your psychologist assigned you %s: %s", evt.ContentType, evt.ContentTitle)
	if evt.Notes != "" {
		content += fmt.Sprintf(". Notes: %s", evt.Notes)
	}

	h.dispatch(ctx, notification.DispatchRequest{
		UserID:   evt.PatientID,
		Type:     models.NotificationTypeContentAssigned,
		Title:    fmt.Sprintf("New content assigned: %s", evt.ContentTitle),
		Content:  content,
		Priority: models.PriorityNormal,
		Metadata: map[string]interface{}{
			"assignment_id": evt.AssignmentID,
			"content_id":    evt.ContentID,
			"content_type":  evt.ContentType,
		},
	})
}

func (h *Handlers) HandleAssignmentCompleted(ctx context.Context, evt AssignmentCompleted) {
	h.dispatch(ctx, notification.DispatchRequest{
		UserID:   evt.PsychologistID,
		Type:     models.NotificationTypeAssignmentCompleted,
		Title:    fmt.Sprintf("Assignment completed: %s", evt.ContentTitle),
		Content:  fmt.Sprintf("Your patient completed the assigned %s %q.", evt.ContentType, evt.ContentTitle),
		Priority: models.PriorityNormal,
		Metadata: map[string]interface{}{
			"assignment_id": evt.AssignmentID,
			"patient_id":    evt.PatientID,
		},
	})
}

func (h *Handlers) HandleAllAssignmentsCompleted(ctx context.Context, evt AllAssignmentsCompleted) {
	h.dispatch(ctx, notification.DispatchRequest{
		UserID:   evt.PsychologistID,
		Type:     models.NotificationTypeAllAssignmentsCompleted,
		Title:    "All assignments completed",
		Content:  fmt.Sprintf("Your patient completed all %d assigned items.", evt.CompletedCount),
		Priority: models.PriorityNormal,
		Metadata: map[string]interface{}{
			"patient_id":      evt.PatientID,
			"completed_count": evt.CompletedCount,
		},
	})
}

func (h *Handlers) HandleMessageSent(ctx context.Context, evt MessageSent) {
	preview := evt.Content
	if len(preview) > messagePreviewLen {
		preview = preview[:messagePreviewLen] + "..."
	}
	sender := "your patient"
	if evt.SenderIsPsychologist {
		sender = "your psychologist"
	}

	h.dispatch(ctx, notification.DispatchRequest{
		UserID:   evt.ReceiverID,
		Type:     models.NotificationTypeNewMessage,
		Title:    fmt.Sprintf("New message from %s", sender),
		Content:  preview,
		Priority: models.PriorityNormal,
		Metadata: map[string]interface{}{
			"message_id":      evt.MessageID,
			"relationship_id": evt.RelationshipID,
			"sender_id":       evt.SenderID,
		},
	})
}

// HandleCheckInCompleted only reacts to critical check-ins; routine ones are
// not notification-worthy.
func (h *Handlers) HandleCheckInCompleted(ctx context.Context, evt CheckInCompleted) {
	if !evt.IsCritical {
		return
	}

	h.dispatch(ctx, notification.DispatchRequest{
		UserID:   evt.PsychologistID,
		Type:     models.NotificationTypeCheckInCritical,
		Title:    "Critical check-in",
		Content:  "A patient submitted a check-in flagged as critical and may need attention.",
		Priority: models.PriorityHigh,
		Metadata: map[string]interface{}{
			"patient_id": evt.PatientID,
		},
	})
}

func (h *Handlers) dispatch(ctx context.Context, req notification.DispatchRequest) {
	if _, err := h.dispatcher.Dispatch(ctx, req); err != nil {
		h.logger.Error().
			Err(err).
			Str("user_id", req.UserID).
			Str("type", string(req.Type)).
			Msg("failed to dispatch notification for event")
	}
}
