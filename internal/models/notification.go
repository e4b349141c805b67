package models

import (
	"encoding/json"
	"time"
)

type NotificationType string

const (
	NotificationTypeCrisisAlert             NotificationType = "crisis_alert"
	NotificationTypeContentAssigned         NotificationType = "content_assigned"
	NotificationTypeAssignmentCompleted     NotificationType = "assignment_completed"
	NotificationTypeAllAssignmentsCompleted NotificationType = "all_assignments_completed"
	NotificationTypeNewMessage              NotificationType = "new_message"
	NotificationTypeCheckInCritical         NotificationType = "checkin_critical"
	NotificationTypeCheckInReminder         NotificationType = "checkin_reminder"
	NotificationTypeAssignmentDue           NotificationType = "assignment_due"
	NotificationTypeSystem                  NotificationType = "system"
)

type NotificationPriority string

const (
	PriorityLow      NotificationPriority = "low"
	PriorityNormal   NotificationPriority = "normal"
	PriorityHigh     NotificationPriority = "high"
	PriorityCritical NotificationPriority = "critical"
)

type DeliveryMethod string

const (
	DeliveryMethodPush  DeliveryMethod = "push"
	DeliveryMethodEmail DeliveryMethod = "email"
	DeliveryMethodInApp DeliveryMethod = "in_app"
	DeliveryMethodSMS   DeliveryMethod = "sms"
)

type NotificationStatus string

const (
	NotificationStatusPending   NotificationStatus = "pending"
	NotificationStatusSent      NotificationStatus = "sent"
	NotificationStatusDelivered NotificationStatus = "delivered"
	NotificationStatusFailed    NotificationStatus = "failed"
	NotificationStatusCancelled NotificationStatus = "cancelled"
)

// Notification is created with status pending; only the delivery worker moves
// it past pending. ScheduledAt is never earlier than CreatedAt.
type Notification struct {
	ID          string               `json:"id" db:"id"`
	UserID      string               `json:"user_id" db:"user_id"`
	Type        NotificationType     `json:"type" db:"type"`
	Title       string               `json:"title" db:"title"`
	Content     string               `json:"content" db:"content"`
	Priority    NotificationPriority `json:"priority" db:"priority"`
	Method      DeliveryMethod       `json:"delivery_method" db:"delivery_method"`
	Status      NotificationStatus   `json:"status" db:"status"`
	ScheduledAt time.Time            `json:"scheduled_at" db:"scheduled_at"`
	ReadAt      *time.Time           `json:"read_at,omitempty" db:"read_at"`
	Metadata    json.RawMessage      `json:"metadata,omitempty" db:"metadata"`
	CreatedAt   time.Time            `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at" db:"updated_at"`
}

// PriorityForSeverity maps alert severity onto notification priority.
func PriorityForSeverity(severity AlertSeverity) NotificationPriority {
	switch severity {
	case SeverityLow:
		return PriorityLow
	case SeverityModerate:
		return PriorityNormal
	case SeverityHigh:
		return PriorityHigh
	case SeverityCritical:
		return PriorityCritical
	default:
		return PriorityNormal
	}
}

// DeliverySLA is the target latency between scheduling and delivery per
// priority. It travels as intent on the notification; enforcement belongs to
// the delivery worker outside this service.
var DeliverySLA = map[NotificationPriority]time.Duration{
	PriorityLow:      24 * time.Hour,
	PriorityNormal:   4 * time.Hour,
	PriorityHigh:     time.Hour,
	PriorityCritical: 5 * time.Minute,
}

var defaultMethodForType = map[NotificationType]DeliveryMethod{
	NotificationTypeCrisisAlert:     DeliveryMethodPush,
	NotificationTypeNewMessage:      DeliveryMethodPush,
	NotificationTypeCheckInReminder: DeliveryMethodPush,
	NotificationTypeCheckInCritical: DeliveryMethodPush,
	NotificationTypeAssignmentDue:   DeliveryMethodEmail,
}

// DefaultMethodForType is consulted when neither the caller nor the user's
// preference picks a delivery method.
func DefaultMethodForType(t NotificationType) DeliveryMethod {
	if method, ok := defaultMethodForType[t]; ok {
		return method
	}
	return DeliveryMethodInApp
}
