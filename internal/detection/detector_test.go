package detection

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindhaven/mindhaven-api/internal/config"
	"github.com/mindhaven/mindhaven-api/internal/models"
)

func testDetector() *Detector {
	return NewDetector(config.DetectionConfig{
		CriticalKeywords:    []string{"quiero morir", "kill myself", "want to die"},
		NegativeEmotions:    []string{"sadness", "anger", "fear", "disgust"},
		ConfidenceThreshold: 0.85,
		MinObservations:     3,
	})
}

func obsAt(day int, label string, confidence float64) models.EmotionObservation {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return models.EmotionObservation{
		UserID:     "user-1",
		Label:      label,
		Confidence: confidence,
		Timestamp:  base.AddDate(0, 0, day),
	}
}

func TestDetectFromText_FirstMatchWins(t *testing.T) {
	d := testDetector()

	// Both phrases appear; the reason must name the first one in list order.
	pattern := d.DetectFromText("I want to die, quiero morir")
	require.NotNil(t, pattern)
	assert.Equal(t, models.SeverityCritical, pattern.Severity)
	assert.Equal(t, "Critical keyword detected: 'quiero morir'", pattern.TriggerReason)
}

func TestDetectFromText_CaseInsensitiveSubstring(t *testing.T) {
	d := testDetector()

	pattern := d.DetectFromText("a veces QUIERO MORIR ahora")
	require.NotNil(t, pattern)
	assert.Equal(t, "Critical keyword detected: 'quiero morir'", pattern.TriggerReason)
}

func TestDetectFromText_NoMatch(t *testing.T) {
	d := testDetector()

	assert.Nil(t, d.DetectFromText("hoy fue un buen día"))
	assert.Nil(t, d.DetectFromText(""))
}

func TestDetectFromObservationWindow_InsufficientEvidence(t *testing.T) {
	d := testDetector()

	// Two observations total, both qualifying: below the minimum of 3.
	history := []models.EmotionObservation{obsAt(0, "sadness", 0.9)}
	pattern := d.DetectFromObservationWindow("user-1", obsAt(1, "sadness", 0.9), history)
	assert.Nil(t, pattern)
}

func TestDetectFromObservationWindow_RunLengthToSeverity(t *testing.T) {
	d := testDetector()

	cases := []struct {
		name     string
		run      int
		severity models.AlertSeverity
		detected bool
	}{
		{"run of 2 in larger window", 2, "", false},
		{"run of 3", 3, models.SeverityModerate, true},
		{"run of 4", 4, models.SeverityModerate, true},
		{"run of 5", 5, models.SeverityHigh, true},
		{"run of 6", 6, models.SeverityHigh, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var history []models.EmotionObservation
			for i := 0; i < tc.run-1; i++ {
				history = append(history, obsAt(i, "sadness", 0.9))
			}
			// Pad the window with non-qualifying observations so the total
			// count clears the minimum even for short runs.
			history = append(history, obsAt(tc.run+1, "neutral", 0.5), obsAt(tc.run+2, "happiness", 0.95))

			pattern := d.DetectFromObservationWindow("user-1", obsAt(tc.run-1, "anger", 0.95), history)
			if !tc.detected {
				assert.Nil(t, pattern)
				return
			}
			require.NotNil(t, pattern)
			assert.Equal(t, tc.severity, pattern.Severity)
		})
	}
}

func TestDetectFromObservationWindow_ReasonEmbedsRunLength(t *testing.T) {
	d := testDetector()

	history := []models.EmotionObservation{
		obsAt(0, "sadness", 0.9),
		obsAt(1, "sadness", 0.9),
		obsAt(2, "sadness", 0.9),
		obsAt(3, "sadness", 0.9),
		obsAt(5, "neutral", 0.5),
	}
	pattern := d.DetectFromObservationWindow("user-1", obsAt(4, "sadness", 0.9), history)
	require.NotNil(t, pattern)
	assert.Equal(t, models.SeverityHigh, pattern.Severity)
	assert.Equal(t, "5 consecutive days of negative emotions with high confidence", pattern.TriggerReason)
}

func TestDetectFromObservationWindow_SortsUnsortedHistory(t *testing.T) {
	d := testDetector()

	// Delivered out of order; sorted ascending these form one run of 3.
	history := []models.EmotionObservation{
		obsAt(2, "fear", 0.9),
		obsAt(0, "sadness", 0.9),
	}
	pattern := d.DetectFromObservationWindow("user-1", obsAt(1, "anger", 0.9), history)
	require.NotNil(t, pattern)
	assert.Equal(t, models.SeverityModerate, pattern.Severity)
}

func TestDetectFromObservationWindow_LowConfidenceBreaksRun(t *testing.T) {
	d := testDetector()

	history := []models.EmotionObservation{
		obsAt(0, "sadness", 0.9),
		obsAt(1, "sadness", 0.9),
		obsAt(2, "sadness", 0.6), // negative but below threshold
		obsAt(3, "sadness", 0.9),
	}
	pattern := d.DetectFromObservationWindow("user-1", obsAt(4, "sadness", 0.9), history)
	// Longest run is 2 on either side of the break.
	assert.Nil(t, pattern)
}

func TestDetectFromObservationWindow_ThresholdIsExclusive(t *testing.T) {
	d := testDetector()

	history := []models.EmotionObservation{
		obsAt(0, "sadness", 0.85),
		obsAt(1, "sadness", 0.85),
	}
	pattern := d.DetectFromObservationWindow("user-1", obsAt(2, "sadness", 0.85), history)
	assert.Nil(t, pattern)
}

func TestDetectFromObservationWindow_AppendingQualifierNeverLowersRun(t *testing.T) {
	d := testDetector()

	history := []models.EmotionObservation{
		obsAt(0, "sadness", 0.9),
		obsAt(1, "sadness", 0.9),
		obsAt(2, "sadness", 0.9),
	}
	before := d.DetectFromObservationWindow("user-1", obsAt(3, "sadness", 0.9), history)
	require.NotNil(t, before)

	history = append(history, obsAt(3, "sadness", 0.9))
	after := d.DetectFromObservationWindow("user-1", obsAt(4, "sadness", 0.9), history)
	require.NotNil(t, after)
	// Run grew from 4 to 5, so severity must not decrease.
	assert.Equal(t, models.SeverityHigh, after.Severity)
}

type stubHistory struct {
	observations []models.EmotionObservation
	err          error
}

func (s *stubHistory) Observations(_ context.Context, _ string, _ time.Time) ([]models.EmotionObservation, error) {
	return s.observations, s.err
}

func TestService_EvaluateObservation_HistoryFailureIsAdvisory(t *testing.T) {
	svc := NewService(testDetector(), &stubHistory{err: errors.New("redis down")}, 7, zerolog.Nop())

	pattern := svc.EvaluateObservation(context.Background(), obsAt(0, "sadness", 0.9))
	assert.Nil(t, pattern)
}

func TestService_EvaluateObservation_DetectsFromHistory(t *testing.T) {
	history := &stubHistory{observations: []models.EmotionObservation{
		obsAt(0, "sadness", 0.9),
		obsAt(1, "sadness", 0.9),
		obsAt(2, "sadness", 0.9),
		obsAt(3, "sadness", 0.9),
	}}
	svc := NewService(testDetector(), history, 7, zerolog.Nop())

	pattern := svc.EvaluateObservation(context.Background(), obsAt(4, "sadness", 0.9))
	require.NotNil(t, pattern)
	assert.Equal(t, models.SeverityHigh, pattern.Severity)
}

func TestService_EvaluateMessage_EndToEndScenario(t *testing.T) {
	svc := NewService(testDetector(), &stubHistory{}, 7, zerolog.Nop())

	pattern := svc.EvaluateMessage(context.Background(), "user-1", "quiero morir ahora")
	require.NotNil(t, pattern)
	assert.Equal(t, models.SeverityCritical, pattern.Severity)
	assert.Equal(t, "Critical keyword detected: 'quiero morir'", pattern.TriggerReason)
}
