package collector

import (
	"time"

	"github.com/healthrelay/healthrelay-cli/internal/models"
)

// Parts holds the optional results a payload can carry. Zero-valued parts
// are omitted from the envelope.
type Parts struct {
	HourlyMetrics   []models.MetricSample
	WorkoutSessions []models.WorkoutSession
	DailyMorning    *models.DailyMorning
	DailyEvening    *models.DailyEvening
	SleepAnalysis   *models.SleepAnalysis
	MoodSessions    []models.MoodSession
	HealthEvents    []models.HealthEvent
}

// BuildPayload merges collected parts with envelope metadata. It is a pure
// function: no I/O, no failure mode.
func BuildPayload(deviceID string, generatedAt time.Time, parts Parts) models.HealthPayload {
	return models.HealthPayload{
		DeviceID:        deviceID,
		Timestamp:       generatedAt.UTC().Format(time.RFC3339),
		HourlyMetrics:   parts.HourlyMetrics,
		WorkoutSessions: parts.WorkoutSessions,
		DailyMorning:    parts.DailyMorning,
		DailyEvening:    parts.DailyEvening,
		SleepAnalysis:   parts.SleepAnalysis,
		MoodSessions:    parts.MoodSessions,
		HealthEvents:    parts.HealthEvents,
	}
}
