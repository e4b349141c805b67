package models

import "time"

// EmotionObservation is a read-only input produced by the facial-analysis
// context. Confidence is in [0, 1].
type EmotionObservation struct {
	UserID     string    `json:"user_id"`
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}
