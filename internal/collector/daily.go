package collector

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/healthrelay/healthrelay-cli/internal/models"
	"github.com/healthrelay/healthrelay-cli/internal/source"
)

// DailyCompositor assembles the fixed-shape morning and evening aggregates.
type DailyCompositor struct {
	source source.QueryService
	sleep  *SleepCompositor
	now    func() time.Time
}

// NewDailyCompositor creates a compositor. now is injectable for tests;
// pass nil for wall clock.
func NewDailyCompositor(qs source.QueryService, sleep *SleepCompositor, now func() time.Time) *DailyCompositor {
	if now == nil {
		now = time.Now
	}
	return &DailyCompositor{source: qs, sleep: sleep, now: now}
}

// CollectMorning summarizes the overnight recovery window
// [yesterday 00:00, today 00:00): sleep stages, then resting heart rate,
// then heart-rate variability. The chain is sequential because each stage
// scopes the same overnight window established by the sleep scan.
func (c *DailyCompositor) CollectMorning(ctx context.Context) models.DailyMorning {
	today := startOfDay(c.now())
	yesterday := today.AddDate(0, 0, -1)

	analysis := c.sleep.CollectWindow(ctx, yesterday, today)

	rhr, err := c.source.QueryAggregate(ctx, models.CategoryRestingHeartRate, yesterday, today, source.AggregateMin)
	if err != nil {
		log.Printf("daily: resting heart rate query failed, using zero: %v", err)
	}

	hrv, err := c.source.QueryAggregate(ctx, models.CategoryHRV, yesterday, today, source.AggregateAverage)
	if err != nil {
		log.Printf("daily: hrv query failed, using zero: %v", err)
	}

	return models.DailyMorning{
		SleepAnalysis:        analysis,
		RestingHeartRate:     rhr.Min,
		HeartRateVariability: hrv.Avg,
	}
}

// CollectEvening summarizes today's activity over [today 00:00, now):
// step and calorie totals, the day's latest weight and BMI readings, and
// the day's sleep. Independent queries fan out concurrently and join.
func (c *DailyCompositor) CollectEvening(ctx context.Context) models.DailyEvening {
	now := c.now()
	today := startOfDay(now)

	var (
		wg     sync.WaitGroup
		steps  float64
		cals   float64
		weight float64
		bmi    float64
		daySlp models.SleepAnalysis
		slept  bool
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		stat, err := c.source.QueryAggregate(ctx, models.CategoryStepCount, today, now, source.AggregateSum)
		if err != nil {
			log.Printf("daily: step query failed, using zero: %v", err)
			return
		}
		steps = stat.Sum
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		stat, err := c.source.QueryAggregate(ctx, models.CategoryActiveEnergy, today, now, source.AggregateSum)
		if err != nil {
			log.Printf("daily: calorie query failed, using zero: %v", err)
			return
		}
		cals = stat.Sum
	}()

	// Weight first, then BMI: both come from the same morning measurement
	// session, so the second query is dependent on the first in the source.
	wg.Add(1)
	go func() {
		defer wg.Done()
		weight = c.latestSample(ctx, source.SamplesWeight, today, now)
		bmi = c.latestSample(ctx, source.SamplesBMI, today, now)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		daySlp = c.sleep.CollectWindow(ctx, today, now)
		slept = daySlp != (models.SleepAnalysis{})
	}()

	wg.Wait()

	evening := models.DailyEvening{
		TotalSteps:    int(steps),
		TotalCalories: cals,
		Weight:        weight,
		BMI:           bmi,
	}
	if slept {
		evening.SleepAnalysis = &daySlp
	}
	return evening
}

// CollectWorkouts returns today's completed workouts ordered by start.
func (c *DailyCompositor) CollectWorkouts(ctx context.Context) []models.WorkoutSession {
	now := c.now()
	today := startOfDay(now)

	samples, err := c.source.QuerySamples(ctx, source.SamplesWorkout, today, now)
	if err != nil {
		log.Printf("daily: workout query failed, using empty list: %v", err)
		return nil
	}

	sessions := make([]models.WorkoutSession, 0, len(samples))
	for _, sample := range samples {
		session := models.WorkoutSession{
			Type:  sample.Tag,
			Start: sample.Start.UTC().Format(time.RFC3339),
			End:   sample.End.UTC().Format(time.RFC3339),
		}
		if sample.Value > 0 {
			calories := sample.Value
			session.Calories = &calories
		}
		sessions = append(sessions, session)
	}
	return sessions
}

func (c *DailyCompositor) latestSample(ctx context.Context, kind source.SampleKind, start, end time.Time) float64 {
	samples, err := c.source.QuerySamples(ctx, kind, start, end)
	if err != nil {
		log.Printf("daily: %s query failed, using zero: %v", kind, err)
		return 0
	}
	if len(samples) == 0 {
		return 0
	}
	latest := samples[0]
	for _, sample := range samples[1:] {
		if sample.Start.After(latest.Start) {
			latest = sample
		}
	}
	return latest.Value
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
