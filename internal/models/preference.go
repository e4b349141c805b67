package models

import (
	"fmt"
	"time"
)

// QuietWindow is a [Start, End) time-of-day window in the user's zone,
// formatted "HH:MM". Windows that wrap midnight are expressed as two entries.
type QuietWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DeliverySchedule holds the user's quiet-hours configuration for one
// notification type.
type DeliverySchedule struct {
	QuietHours []QuietWindow  `json:"quiet_hours,omitempty"`
	ActiveDays []time.Weekday `json:"active_days,omitempty"`
	TimeZone   string         `json:"time_zone,omitempty"`
}

// NotificationPreference is one row per (user, type). Created lazily on first
// write; read-mostly afterwards.
type NotificationPreference struct {
	ID        string            `json:"id" db:"id"`
	UserID    string            `json:"user_id" db:"user_id"`
	Type      NotificationType  `json:"type" db:"notification_type"`
	IsEnabled bool              `json:"is_enabled" db:"is_enabled"`
	Method    *DeliveryMethod   `json:"delivery_method,omitempty" db:"delivery_method"`
	Schedule  *DeliverySchedule `json:"schedule,omitempty" db:"schedule"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt time.Time         `json:"updated_at" db:"updated_at"`
}

// Location resolves the schedule's time zone, falling back to UTC when unset
// or unknown.
func (s *DeliverySchedule) Location() *time.Location {
	if s == nil || s.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Contains reports whether the local time t falls inside the window.
func (w QuietWindow) Contains(t time.Time) (bool, error) {
	start, err := minutesOfDay(w.Start)
	if err != nil {
		return false, err
	}
	end, err := minutesOfDay(w.End)
	if err != nil {
		return false, err
	}
	now := t.Hour()*60 + t.Minute()
	return now >= start && now < end, nil
}

// EndTime returns the window's end anchored to the same day as t.
func (w QuietWindow) EndTime(t time.Time) (time.Time, error) {
	end, err := minutesOfDay(w.End)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), end/60, end%60, 0, 0, t.Location()), nil
}

func minutesOfDay(hhmm string) (int, error) {
	parsed, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", hhmm, err)
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}
