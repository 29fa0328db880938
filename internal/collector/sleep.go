package collector

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/healthrelay/healthrelay-cli/internal/models"
	"github.com/healthrelay/healthrelay-cli/internal/source"
)

// SleepCompositor derives sleep summaries and discrete sleep events from
// raw stage-tagged samples.
type SleepCompositor struct {
	source source.QueryService
	now    func() time.Time
}

// NewSleepCompositor creates a compositor. now is injectable for tests;
// pass nil for wall clock.
func NewSleepCompositor(qs source.QueryService, now func() time.Time) *SleepCompositor {
	if now == nil {
		now = time.Now
	}
	return &SleepCompositor{source: qs, now: now}
}

// CollectWindow sums stage durations over the window, minute-truncated.
// No samples, or a failing query, yields an all-zero summary.
func (c *SleepCompositor) CollectWindow(ctx context.Context, start, end time.Time) models.SleepAnalysis {
	samples, err := c.source.QuerySamples(ctx, source.SamplesSleep, start, end)
	if err != nil {
		log.Printf("sleep: sample query failed, using empty summary: %v", err)
		return models.SleepAnalysis{}
	}

	var inBed, deep, light, rem time.Duration
	for _, sample := range samples {
		duration := sample.End.Sub(sample.Start)
		if duration < 0 {
			continue
		}
		switch sample.Tag {
		case source.StageInBed:
			inBed += duration
		case source.StageDeep:
			deep += duration
		case source.StageUnspecified:
			light += duration
		case source.StageREM:
			rem += duration
		}
		// Unrecognized tags are dropped.
	}

	return models.SleepAnalysis{
		TimeInBed: int(inBed.Minutes()),
		Stages: models.SleepStages{
			Deep:  int(deep.Minutes()),
			Light: int(light.Minutes()),
			REM:   int(rem.Minutes()),
		},
	}
}

// CollectCombined summarizes the window [yesterday 20:00, now), chosen so a
// run at any time of day still sees the prior night's session.
func (c *SleepCompositor) CollectCombined(ctx context.Context) models.SleepAnalysis {
	start, end := c.combinedWindow()
	return c.CollectWindow(ctx, start, end)
}

// CollectEvents returns one event per raw sleep segment, ordered by start
// ascending, with the raw stage tag preserved in the details.
func (c *SleepCompositor) CollectEvents(ctx context.Context, start, end time.Time) []models.HealthEvent {
	samples, err := c.source.QuerySamples(ctx, source.SamplesSleep, start, end)
	if err != nil {
		log.Printf("sleep: event query failed, using empty list: %v", err)
		return nil
	}

	sort.Slice(samples, func(i, j int) bool { return samples[i].Start.Before(samples[j].Start) })

	events := make([]models.HealthEvent, 0, len(samples))
	for _, sample := range samples {
		events = append(events, models.HealthEvent{
			SessionType: "sleep",
			Start:       sample.Start.UTC().Format(time.RFC3339),
			End:         sample.End.UTC().Format(time.RFC3339),
			Details:     map[string]any{"stage": sample.Tag},
		})
	}
	return events
}

func (c *SleepCompositor) combinedWindow() (time.Time, time.Time) {
	now := c.now()
	yesterday := now.AddDate(0, 0, -1)
	year, month, day := yesterday.Date()
	start := time.Date(year, month, day, 20, 0, 0, 0, now.Location())
	return start, now
}
