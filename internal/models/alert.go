package models

import (
	"strings"
	"time"
)

type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityModerate AlertSeverity = "moderate"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

type AlertStatus string

const (
	AlertStatusPending   AlertStatus = "pending"
	AlertStatusReviewed  AlertStatus = "reviewed"
	AlertStatusResolved  AlertStatus = "resolved"
	AlertStatusDismissed AlertStatus = "dismissed"
)

type TriggerSource string

const (
	TriggerSourceChat          TriggerSource = "chat"
	TriggerSourceFacialPattern TriggerSource = "facial_pattern"
	TriggerSourceCheckIn       TriggerSource = "checkin_pattern"
)

// CrisisAlert is the persisted record of a detected safety-risk signal that
// requires psychologist attention. PsychologistID stays nil until the alert
// has been routed to a clinician.
type CrisisAlert struct {
	ID             string        `json:"id" db:"id"`
	PatientID      string        `json:"patient_id" db:"patient_id"`
	PsychologistID *string       `json:"psychologist_id,omitempty" db:"psychologist_id"`
	Severity       AlertSeverity `json:"severity" db:"severity"`
	Status         AlertStatus   `json:"status" db:"status"`
	TriggerSource  TriggerSource `json:"trigger_source" db:"trigger_source"`
	TriggerReason  string        `json:"trigger_reason" db:"trigger_reason"`
	DetectedAt     time.Time     `json:"detected_at" db:"detected_at"`
	Version        int64         `json:"version" db:"version"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
}

// CrisisPattern is the ephemeral result of pattern detection. It is either
// consumed immediately to create a CrisisAlert or discarded; it is never
// persisted.
type CrisisPattern struct {
	Severity      AlertSeverity
	TriggerReason string
	DetectedAt    time.Time
}

// alertTransitions lists the reachable statuses from each status. Resolved and
// dismissed are terminal.
var alertTransitions = map[AlertStatus][]AlertStatus{
	AlertStatusPending:   {AlertStatusReviewed, AlertStatusResolved, AlertStatusDismissed},
	AlertStatusReviewed:  {AlertStatusResolved, AlertStatusDismissed},
	AlertStatusResolved:  {},
	AlertStatusDismissed: {},
}

// CanTransition reports whether an alert in status from may move to status to.
func (from AlertStatus) CanTransition(to AlertStatus) bool {
	for _, next := range alertTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further status or severity changes are allowed.
func (s AlertStatus) IsTerminal() bool {
	return s == AlertStatusResolved || s == AlertStatusDismissed
}

func IsValidAlertStatus(s AlertStatus) bool {
	_, ok := alertTransitions[s]
	return ok
}

// ParseSeverity coerces an externally supplied severity string. Unknown values
// map to moderate with ok=false so the call site can log the raw input instead
// of dropping the signal.
func ParseSeverity(raw string) (AlertSeverity, bool) {
	switch AlertSeverity(strings.ToLower(strings.TrimSpace(raw))) {
	case SeverityLow:
		return SeverityLow, true
	case SeverityModerate:
		return SeverityModerate, true
	case SeverityHigh:
		return SeverityHigh, true
	case SeverityCritical:
		return SeverityCritical, true
	default:
		return SeverityModerate, false
	}
}
