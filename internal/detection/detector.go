package detection

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mindhaven/mindhaven-api/internal/config"
	"github.com/mindhaven/mindhaven-api/internal/models"
)

// Detector evaluates raw signals for crisis indicators. The vocabulary comes
// from configuration so both the chat path and the observation path share a
// single list.
type Detector struct {
	keywords        []string
	negativeLabels  map[string]struct{}
	confidenceMin   float64
	minObservations int
}

func NewDetector(cfg config.DetectionConfig) *Detector {
	keywords := make([]string, 0, len(cfg.CriticalKeywords))
	for _, kw := range cfg.CriticalKeywords {
		if trimmed := strings.ToLower(strings.TrimSpace(kw)); trimmed != "" {
			keywords = append(keywords, trimmed)
		}
	}
	negative := make(map[string]struct{}, len(cfg.NegativeEmotions))
	for _, label := range cfg.NegativeEmotions {
		negative[strings.ToLower(strings.TrimSpace(label))] = struct{}{}
	}
	return &Detector{
		keywords:        keywords,
		negativeLabels:  negative,
		confidenceMin:   cfg.ConfidenceThreshold,
		minObservations: cfg.MinObservations,
	}
}

// DetectFromText scans text against the configured phrase list,
// case-insensitively and substring-based. The first matching phrase yields a
// critical pattern; no match yields nil. Deliberately crude and high-recall:
// false positives are acceptable in this domain.
func (d *Detector) DetectFromText(text string) *models.CrisisPattern {
	lowered := strings.ToLower(text)
	for _, phrase := range d.keywords {
		if strings.Contains(lowered, phrase) {
			return &models.CrisisPattern{
				Severity:      models.SeverityCritical,
				TriggerReason: fmt.Sprintf("Critical keyword detected: '%s'", phrase),
				DetectedAt:    time.Now().UTC(),
			}
		}
	}
	return nil
}

// DetectFromObservationWindow merges the new observation into the caller's
// history window, sorts by timestamp ascending, and reports a pattern based on
// the longest run of high-confidence negative observations. Fewer than the
// configured minimum of observations is insufficient evidence.
func (d *Detector) DetectFromObservationWindow(userID string, latest models.EmotionObservation, history []models.EmotionObservation) *models.CrisisPattern {
	window := make([]models.EmotionObservation, 0, len(history)+1)
	window = append(window, history...)
	window = append(window, latest)
	sort.Slice(window, func(i, j int) bool {
		return window[i].Timestamp.Before(window[j].Timestamp)
	})

	if len(window) < d.minObservations {
		return nil
	}

	longest := d.longestNegativeRun(window)

	var severity models.AlertSeverity
	switch {
	case longest >= 5:
		severity = models.SeverityHigh
	case longest >= 3:
		severity = models.SeverityModerate
	default:
		return nil
	}

	return &models.CrisisPattern{
		Severity:      severity,
		TriggerReason: fmt.Sprintf("%d consecutive days of negative emotions with high confidence", longest),
		DetectedAt:    time.Now().UTC(),
	}
}

// longestNegativeRun is a single left-to-right pass over the sorted window.
func (d *Detector) longestNegativeRun(window []models.EmotionObservation) int {
	longest, current := 0, 0
	for _, obs := range window {
		if d.qualifies(obs) {
			current++
			if current > longest {
				longest = current
			}
		} else {
			current = 0
		}
	}
	return longest
}

func (d *Detector) qualifies(obs models.EmotionObservation) bool {
	if obs.Confidence <= d.confidenceMin {
		return false
	}
	_, negative := d.negativeLabels[strings.ToLower(obs.Label)]
	return negative
}
