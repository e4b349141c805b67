package events

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindhaven/mindhaven-api/internal/models"
	"github.com/mindhaven/mindhaven-api/internal/notification"
)

type fakeDispatcher struct {
	requests []notification.DispatchRequest
	err      error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, req notification.DispatchRequest) (models.Notification, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return models.Notification{}, f.err
	}
	return models.Notification{ID: "notif-1", UserID: req.UserID, Type: req.Type}, nil
}

func (f *fakeDispatcher) ListByUser(_ context.Context, _ string, _, _ int) ([]models.Notification, error) {
	return nil, nil
}

func (f *fakeDispatcher) MarkRead(_ context.Context, _, _ string) (models.Notification, error) {
	return models.Notification{}, nil
}

func (f *fakeDispatcher) CountUnread(_ context.Context, _ string) (int, error) {
	return 0, nil
}

func setupHandlers(t *testing.T) (*fakeDispatcher, *Bus) {
	t.Helper()
	dispatcher := &fakeDispatcher{}
	bus := NewBus(zerolog.Nop())
	NewHandlers(dispatcher, zerolog.Nop()).Register(bus)
	return dispatcher, bus
}

func strPtr(s string) *string { return &s }

func TestHandleCrisisAlertCreated_NotifiesPsychologist(t *testing.T) {
	dispatcher, bus := setupHandlers(t)

	bus.Publish(context.Background(), CrisisAlertCreated{
		AlertID:        "alert-1",
		PatientID:      "patient-1",
		PsychologistID: strPtr("psych-1"),
		Severity:       models.SeverityCritical,
		TriggerReason:  "Critical keyword detected: 'quiero morir'",
		TriggerSource:  models.TriggerSourceChat,
	})

	require.Len(t, dispatcher.requests, 1)
	req := dispatcher.requests[0]
	assert.Equal(t, "psych-1", req.UserID)
	assert.Equal(t, models.NotificationTypeCrisisAlert, req.Type)
	assert.Equal(t, models.PriorityCritical, req.Priority)
	assert.Contains(t, req.Title, "critical")
	assert.Equal(t, "alert-1", req.Metadata["alert_id"])
	assert.Equal(t, "patient-1", req.Metadata["patient_id"])
	assert.Equal(t, string(models.TriggerSourceChat), req.Metadata["trigger_source"])
}

func TestHandleCrisisAlertCreated_NoPsychologistSkips(t *testing.T) {
	dispatcher, bus := setupHandlers(t)

	bus.Publish(context.Background(), CrisisAlertCreated{
		AlertID:       "alert-1",
		PatientID:     "patient-1",
		Severity:      models.SeverityHigh,
		TriggerReason: "test",
		TriggerSource: models.TriggerSourceChat,
	})

	assert.Empty(t, dispatcher.requests)
}

func TestHandleContentAssigned_NotifiesPatient(t *testing.T) {
	dispatcher, bus := setupHandlers(t)

	bus.Publish(context.Background(), ContentAssigned{
		AssignmentID:   "assign-1",
		ContentID:      "content-1",
		ContentType:    "exercise",
		PatientID:      "patient-1",
		PsychologistID: "psych-1",
		ContentTitle:   "Breathing exercise",
		Notes:          "Twice a day",
	})

	require.Len(t, dispatcher.requests, 1)
	req := dispatcher.requests[0]
	assert.Equal(t, "patient-1", req.UserID)
	assert.Equal(t, models.NotificationTypeContentAssigned, req.Type)
	assert.Contains(t, req.Content, "Breathing exercise")
	assert.Contains(t, req.Content, "Twice a day")
}

func TestHandleAssignmentCompleted_NotifiesPsychologist(t *testing.T) {
	dispatcher, bus := setupHandlers(t)

	bus.Publish(context.Background(), AssignmentCompleted{
		AssignmentID:   "assign-1",
		PatientID:      "patient-1",
		PsychologistID: "psych-1",
		ContentTitle:   "Breathing exercise",
		ContentType:    "exercise",
	})

	require.Len(t, dispatcher.requests, 1)
	assert.Equal(t, "psych-1", dispatcher.requests[0].UserID)
	assert.Equal(t, models.NotificationTypeAssignmentCompleted, dispatcher.requests[0].Type)
}

func TestHandleAllAssignmentsCompleted(t *testing.T) {
	dispatcher, bus := setupHandlers(t)

	bus.Publish(context.Background(), AllAssignmentsCompleted{
		PatientID:      "patient-1",
		PsychologistID: "psych-1",
		CompletedCount: 4,
	})

	require.Len(t, dispatcher.requests, 1)
	req := dispatcher.requests[0]
	assert.Equal(t, models.NotificationTypeAllAssignmentsCompleted, req.Type)
	assert.Contains(t, req.Content, "4")
	assert.Equal(t, 4, req.Metadata["completed_count"])
}

func TestHandleMessageSent_PreviewTruncated(t *testing.T) {
	dispatcher, bus := setupHandlers(t)

	long := strings.Repeat("a", 200)
	bus.Publish(context.Background(), MessageSent{
		MessageID:            "msg-1",
		RelationshipID:       "rel-1",
		SenderID:             "psych-1",
		ReceiverID:           "patient-1",
		SenderIsPsychologist: true,
		Content:              long,
	})

	require.Len(t, dispatcher.requests, 1)
	req := dispatcher.requests[0]
	assert.Equal(t, "patient-1", req.UserID)
	assert.Equal(t, models.NotificationTypeNewMessage, req.Type)
	assert.Equal(t, strings.Repeat("a", 80)+"...", req.Content)
	assert.Contains(t, req.Title, "your psychologist")
}

func TestHandleMessageSent_SenderLabel(t *testing.T) {
	dispatcher, bus := setupHandlers(t)

	bus.Publish(context.Background(), MessageSent{
		MessageID:  "msg-1",
		SenderID:   "patient-1",
		ReceiverID: "psych-1",
		Content:    "short",
	})

	require.Len(t, dispatcher.requests, 1)
	assert.Contains(t, dispatcher.requests[0].Title, "your patient")
	assert.Equal(t, "short", dispatcher.requests[0].Content)
}

func TestHandleCheckInCompleted_CriticalOnly(t *testing.T) {
	dispatcher, bus := setupHandlers(t)

	bus.Publish(context.Background(), CheckInCompleted{
		PatientID:      "patient-1",
		PsychologistID: "psych-1",
		IsCritical:     false,
	})
	assert.Empty(t, dispatcher.requests)

	bus.Publish(context.Background(), CheckInCompleted{
		PatientID:      "patient-1",
		PsychologistID: "psych-1",
		IsCritical:     true,
	})
	require.Len(t, dispatcher.requests, 1)
	req := dispatcher.requests[0]
	assert.Equal(t, "psych-1", req.UserID)
	assert.Equal(t, models.NotificationTypeCheckInCritical, req.Type)
	assert.Equal(t, models.PriorityHigh, req.Priority)
}

func TestDispatchFailureIsContained(t *testing.T) {
	dispatcher := &fakeDispatcher{err: errors.New("store down")}
	bus := NewBus(zerolog.Nop())
	NewHandlers(dispatcher, zerolog.Nop()).Register(bus)

	// A failing dispatch is logged, not propagated; the next event still
	// reaches its handler.
	bus.Publish(context.Background(), CheckInCompleted{PsychologistID: "psych-1", IsCritical: true})
	bus.Publish(context.Background(), AllAssignmentsCompleted{PatientID: "p", PsychologistID: "psych-1", CompletedCount: 1})

	assert.Len(t, dispatcher.requests, 2)
}

func TestPublish_PanickingHandlerIsIsolated(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var reached bool
	bus.Subscribe(NameCheckInCompleted, func(context.Context, Event) { panic("boom") })
	bus.Subscribe(NameCheckInCompleted, func(context.Context, Event) { reached = true })

	require.NotPanics(t, func() {
		bus.Publish(context.Background(), CheckInCompleted{IsCritical: true})
	})
	assert.True(t, reached, "handlers after the panicking one still run")
}

func TestPublish_NoSubscribersIsNoOp(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	require.NotPanics(t, func() {
		bus.Publish(context.Background(), MessageSent{MessageID: "msg-1"})
	})
}
