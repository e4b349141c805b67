package events

import "github.com/mindhaven/mindhaven-api/internal/models"

// Event is a domain event published by one bounded context and consumed by
// the notification handlers. Name identifies the event type for routing.
type Event interface {
	Name() string
}

const (
	NameCrisisAlertCreated      = "crisis_alert.created"
	NameContentAssigned         = "content.assigned"
	NameAssignmentCompleted     = "assignment.completed"
	NameAllAssignmentsCompleted = "assignment.all_completed"
	NameMessageSent             = "message.sent"
	NameCheckInCompleted        = "checkin.completed"
)

type CrisisAlertCreated struct {
	AlertID        string               `json:"alert_id"`
	PatientID      string               `json:"patient_id"`
	PsychologistID *string              `json:"psychologist_id,omitempty"`
	Severity       models.AlertSeverity `json:"severity"`
	TriggerReason  string               `json:"trigger_reason"`
	TriggerSource  models.TriggerSource `json:"trigger_source"`
}

func (CrisisAlertCreated) Name() string { return NameCrisisAlertCreated }

type ContentAssigned struct {
	AssignmentID   string `json:"assignment_id"`
	ContentID      string `json:"content_id"`
	ContentType    string `json:"content_type"`
	PatientID      string `json:"patient_id"`
	PsychologistID string `json:"psychologist_id"`
	ContentTitle   string `json:"content_title"`
	Notes          string `json:"notes,omitempty"`
}

func (ContentAssigned) Name() string { return NameContentAssigned }

type AssignmentCompleted struct {
	AssignmentID   string `json:"assignment_id"`
	PatientID      string `json:"patient_id"`
	PsychologistID string `json:"psychologist_id"`
	ContentTitle   string `json:"content_title"`
	ContentType    string `json:"content_type"`
}

func (AssignmentCompleted) Name() string { return NameAssignmentCompleted }

type AllAssignmentsCompleted struct {
	PatientID      string `json:"patient_id"`
	PsychologistID string `json:"psychologist_id"`
	CompletedCount int    `json:"completed_count"`
}

func (AllAssignmentsCompleted) Name() string { return NameAllAssignmentsCompleted }

type MessageSent struct {
	MessageID            string `json:"message_id"`
	RelationshipID       string `json:"relationship_id"`
	SenderID             string `json:"sender_id"`
	ReceiverID           string `json:"receiver_id"`
	SenderIsPsychologist bool   `json:"sender_is_psychologist"`
	Content              string `json:"content"`
}

func (MessageSent) Name() string { return NameMessageSent }

type CheckInCompleted struct {
	PatientID      string `json:"patient_id"`
	PsychologistID string `json:"psychologist_id"`
	IsCritical     bool   `json:"is_critical"`
}

func (CheckInCompleted) Name() string { return NameCheckInCompleted }
