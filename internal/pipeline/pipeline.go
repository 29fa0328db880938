package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/healthrelay/healthrelay-cli/internal/collector"
	"github.com/healthrelay/healthrelay-cli/internal/delivery"
	"github.com/healthrelay/healthrelay-cli/internal/models"
	"github.com/healthrelay/healthrelay-cli/internal/source"
)

// Sender delivers one payload. Satisfied by *delivery.Client.
type Sender interface {
	Send(ctx context.Context, payload models.HealthPayload) error
}

// Recorder journals payloads accepted for delivery. Satisfied by
// *delivery.Journal.
type Recorder interface {
	Record(payload models.HealthPayload) error
}

// Options wires a pipeline. Source, Sender and DeviceID are required;
// everything else has defaults.
type Options struct {
	Source       source.QueryService
	Capabilities source.CapabilitySet // resolved from Source when nil
	Sender       Sender
	Dedup        *delivery.DedupGate // fresh gate when nil
	Journal      Recorder            // optional
	DeviceID     string
	Now          func() time.Time // wall clock when nil
}

// Pipeline runs one collection-and-delivery pass per trigger. Multiple
// triggers may race; the dedup gate is the only shared mutable state.
type Pipeline struct {
	source     source.QueryService
	caps       source.CapabilitySet
	aggregator *collector.MetricAggregator
	sleep      *collector.SleepCompositor
	mood       *collector.MoodCompositor
	daily      *collector.DailyCompositor
	dedup      *delivery.DedupGate
	sender     Sender
	journal    Recorder
	deviceID   string
	now        func() time.Time
}

// New builds a pipeline from explicitly injected dependencies.
func New(opts Options) *Pipeline {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	caps := opts.Capabilities
	if caps == nil {
		caps = source.ResolveCapabilities(opts.Source)
	}
	dedup := opts.Dedup
	if dedup == nil {
		dedup = delivery.NewDedupGate()
	}

	sleep := collector.NewSleepCompositor(opts.Source, now)
	return &Pipeline{
		source:     opts.Source,
		caps:       caps,
		aggregator: collector.NewMetricAggregator(opts.Source, caps),
		sleep:      sleep,
		mood:       collector.NewMoodCompositor(opts.Source),
		daily:      collector.NewDailyCompositor(opts.Source, sleep, now),
		dedup:      dedup,
		sender:     opts.Sender,
		journal:    opts.Journal,
		deviceID:   opts.DeviceID,
		now:        now,
	}
}

// ErrDeduplicated reports that a run was skipped because the same logical
// timestamp was already accepted for delivery. Callers treat it as success.
var ErrDeduplicated = fmt.Errorf("payload deduplicated, nothing new to send")

// RunHourly collects the hourly payload: today's metrics, the combined
// overnight sleep summary, the day's sleep events, and (capability-gated)
// today's mood sessions. Independent collections run concurrently and join
// before the payload is built.
func (p *Pipeline) RunHourly(ctx context.Context) error {
	now := p.now()
	dayStart := startOfDay(now)

	var (
		wg      sync.WaitGroup
		metrics []models.MetricSample
		sleep   models.SleepAnalysis
		events  []models.HealthEvent
		moods   []models.MoodSession
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		metrics = p.aggregator.Collect(ctx, dayStart, now)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		sleep = p.sleep.CollectCombined(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		events = p.sleep.CollectEvents(ctx, dayStart, now)
	}()

	if p.caps.Has(source.CapabilityStateOfMind) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			moods = p.mood.Collect(ctx, dayStart, now)
		}()
	}

	wg.Wait()

	payload := collector.BuildPayload(p.deviceID, now, collector.Parts{
		HourlyMetrics: metrics,
		SleepAnalysis: &sleep,
		HealthEvents:  events,
		MoodSessions:  moods,
	})

	// The logical timestamp is the hour bucket the collection interval ends
	// in, not the wall-clock send time, so triggers racing within the same
	// hour collapse to one send.
	key := now.Truncate(time.Hour).UTC().Format(time.RFC3339)
	return p.deliver(ctx, delivery.FamilyMetrics, key, payload)
}

// RunMorning collects and delivers the overnight recovery summary.
func (p *Pipeline) RunMorning(ctx context.Context) error {
	now := p.now()
	morning := p.daily.CollectMorning(ctx)

	payload := collector.BuildPayload(p.deviceID, now, collector.Parts{
		DailyMorning: &morning,
	})

	// One overnight window per calendar day; keyed by the window end.
	key := startOfDay(now).UTC().Format(time.RFC3339)
	return p.deliver(ctx, delivery.FamilySleep, key, payload)
}

// RunEvening collects and delivers the day's activity totals plus today's
// workouts. The evening payload is not deduplicated: its collection window
// grows until midnight, so successive runs legitimately carry fresher data.
func (p *Pipeline) RunEvening(ctx context.Context) error {
	now := p.now()
	evening := p.daily.CollectEvening(ctx)
	workouts := p.daily.CollectWorkouts(ctx)

	payload := collector.BuildPayload(p.deviceID, now, collector.Parts{
		DailyEvening:    &evening,
		WorkoutSessions: workouts,
	})
	return p.send(ctx, payload)
}

// Run dispatches a named payload family, for the ad-hoc send path.
func (p *Pipeline) Run(ctx context.Context, family string) error {
	switch family {
	case "hourly":
		return p.RunHourly(ctx)
	case "morning":
		return p.RunMorning(ctx)
	case "evening":
		return p.RunEvening(ctx)
	default:
		return fmt.Errorf("unknown payload family %q", family)
	}
}

// deliver applies the dedup gate and forwards to the sender. The gate is
// marked before the network call and never rolled back: a failed delivery
// is superseded by the next cycle, not retried with the same timestamp.
func (p *Pipeline) deliver(ctx context.Context, family delivery.Family, logicalTimestamp string, payload models.HealthPayload) error {
	if !p.dedup.Acquire(family, logicalTimestamp) {
		log.Printf("pipeline: duplicate %s payload for %s, skipping upload", family, logicalTimestamp)
		return ErrDeduplicated
	}
	return p.send(ctx, payload)
}

func (p *Pipeline) send(ctx context.Context, payload models.HealthPayload) error {
	if err := payload.Validate(); err != nil {
		return fmt.Errorf("payload invalid: %w", err)
	}
	if p.journal != nil {
		if err := p.journal.Record(payload); err != nil {
			log.Printf("pipeline: journal write failed: %v", err)
		}
	}
	return p.sender.Send(ctx, payload)
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
