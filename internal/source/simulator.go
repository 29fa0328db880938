package source

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sort"
	"time"

	"github.com/healthrelay/healthrelay-cli/internal/models"
)

// Simulator is a QueryService backed by a profile instead of a physical
// device. Results are deterministic for a given seed and query, regardless
// of call order, so concurrent pipeline runs see consistent data.
type Simulator struct {
	profile *Profile
	seed    int64
}

// NewSimulator creates a simulated query service.
func NewSimulator(profile *Profile, seed int64) *Simulator {
	return &Simulator{profile: profile, seed: seed}
}

// QueryAggregate reduces the profiled category over the window. Categories
// absent from the profile report no data, mirroring an empty device store.
func (s *Simulator) QueryAggregate(ctx context.Context, category models.Category, start, end time.Time, kind AggregationKind) (Stat, error) {
	if err := ctx.Err(); err != nil {
		return Stat{}, err
	}
	config, ok := s.profile.Metrics[string(category)]
	if !ok || end.Before(start) || end.Equal(start) {
		return Stat{}, nil
	}

	hours := end.Sub(start).Hours()
	jitter := s.jitter(string(category), config.Noise)

	switch kind {
	case AggregateSum:
		return Stat{Sum: config.Baseline * hours * jitter, HasData: true}, nil
	case AggregateAverage:
		return Stat{Avg: config.Baseline * jitter, HasData: true}, nil
	case AggregateMin:
		min := config.Baseline*jitter - config.Spread
		if min < 0 {
			min = 0
		}
		return Stat{Min: min, HasData: true}, nil
	case AggregateMinAvgMax:
		avg := config.Baseline * jitter
		min := avg - config.Spread
		if min < 0 {
			min = 0
		}
		return Stat{Min: min, Avg: avg, Max: avg + config.Spread, HasData: true}, nil
	default:
		return Stat{}, fmt.Errorf("unknown aggregation kind %d", kind)
	}
}

// QuerySamples materializes the profiled raw samples intersecting the window.
func (s *Simulator) QuerySamples(ctx context.Context, kind SampleKind, start, end time.Time) ([]Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var samples []Sample
	switch kind {
	case SamplesSleep:
		samples = s.sleepSamples(end)
	case SamplesMood:
		samples = s.moodSamples(end)
	case SamplesWorkout:
		samples = s.workoutSamples(end)
	case SamplesWeight:
		if s.profile.Body != nil {
			samples = []Sample{s.bodySample(end, s.profile.Body.WeightKg)}
		}
	case SamplesBMI:
		if s.profile.Body != nil {
			samples = []Sample{s.bodySample(end, s.profile.Body.BMI)}
		}
	}

	inWindow := samples[:0]
	for _, sample := range samples {
		if sample.End.After(start) && sample.Start.Before(end) {
			inWindow = append(inWindow, sample)
		}
	}
	sort.Slice(inWindow, func(i, j int) bool { return inWindow[i].Start.Before(inWindow[j].Start) })
	return inWindow, nil
}

// QueryCapability reports whether the profiled platform exposes a capability.
func (s *Simulator) QueryCapability(capability Capability) bool {
	for _, name := range s.profile.Capabilities {
		if name == string(capability) {
			return true
		}
	}
	return false
}

// sleepSamples builds the overnight session that ends on the morning of the
// reference day: one in-bed segment spanning the whole session, plus stage
// segments laid out sequentially from bedtime.
func (s *Simulator) sleepSamples(ref time.Time) []Sample {
	config := s.profile.Sleep
	if config == nil {
		return nil
	}

	wake := atClock(ref, config.Wake)
	bed := atClock(ref.AddDate(0, 0, -1), config.Bedtime)
	if !bed.Before(wake) {
		return nil
	}

	samples := []Sample{{Start: bed, End: wake, Tag: StageInBed}}
	cursor := bed
	for _, stage := range []struct {
		tag     string
		minutes int
	}{
		{StageDeep, config.DeepMinutes},
		{StageUnspecified, config.UnspecifiedMinutes},
		{StageREM, config.REMMinutes},
	} {
		if stage.minutes <= 0 {
			continue
		}
		next := cursor.Add(time.Duration(stage.minutes) * time.Minute)
		if next.After(wake) {
			next = wake
		}
		samples = append(samples, Sample{Start: cursor, End: next, Tag: stage.tag})
		cursor = next
	}
	return samples
}

func (s *Simulator) moodSamples(ref time.Time) []Sample {
	samples := make([]Sample, 0, len(s.profile.Moods))
	for _, mood := range s.profile.Moods {
		at := atClock(ref, mood.Time)
		samples = append(samples, Sample{
			Start:            at,
			End:              at.Add(time.Minute),
			Tag:              mood.Kind,
			Valence:          mood.Valence,
			Labels:           mood.Labels,
			Associations:     mood.Associations,
			ShortDescription: mood.Note,
		})
	}
	return samples
}

func (s *Simulator) workoutSamples(ref time.Time) []Sample {
	samples := make([]Sample, 0, len(s.profile.Workouts))
	for _, workout := range s.profile.Workouts {
		at := atClock(ref, workout.Start)
		samples = append(samples, Sample{
			Start: at,
			End:   at.Add(time.Duration(workout.Minutes) * time.Minute),
			Tag:   workout.Type,
			Value: workout.Calories,
		})
	}
	return samples
}

func (s *Simulator) bodySample(ref time.Time, value float64) Sample {
	at := atClock(ref, "08:00")
	return Sample{Start: at, End: at, Value: value}
}

// jitter derives a stable multiplier in [1-noise, 1+noise] from the seed and
// a query key, so repeated queries agree without shared rng state.
func (s *Simulator) jitter(key string, noise float64) float64 {
	if noise <= 0 {
		return 1
	}
	h := fnv.New64a()
	h.Write([]byte(key))
	rng := rand.New(rand.NewSource(s.seed ^ int64(h.Sum64())))
	return 1 + (rng.Float64()*2-1)*noise
}

// atClock places a "HH:MM" clock reading on the same day as ref, in ref's
// location. Malformed clock strings resolve to midnight.
func atClock(ref time.Time, clock string) time.Time {
	var hour, minute int
	fmt.Sscanf(clock, "%d:%d", &hour, &minute)
	year, month, day := ref.Date()
	return time.Date(year, month, day, hour, minute, 0, 0, ref.Location())
}
