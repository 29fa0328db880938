package collector

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/healthrelay/healthrelay-cli/internal/models"
	"github.com/healthrelay/healthrelay-cli/internal/source"
)

type valueShape int

const (
	shapeScalar valueShape = iota
	shapeTriple
)

// categorySpec fixes how one category is queried and shaped. The set is
// closed; capability-gated entries are omitted from the fan-out when the
// platform lacks them, never retried.
type categorySpec struct {
	category models.Category
	kind     source.AggregationKind
	shape    valueShape
	gate     source.Capability // empty when always eligible
}

var hourlySpecs = []categorySpec{
	{models.CategoryStepCount, source.AggregateSum, shapeScalar, ""},
	{models.CategoryDistanceWalkRun, source.AggregateSum, shapeScalar, ""},
	{models.CategoryActiveEnergy, source.AggregateSum, shapeScalar, ""},
	{models.CategoryExerciseMinutes, source.AggregateSum, shapeScalar, ""},
	{models.CategoryStandHours, source.AggregateAverage, shapeScalar, source.CapabilityStandHours},
	{models.CategoryHeartRate, source.AggregateMinAvgMax, shapeTriple, ""},
	{models.CategoryOxygenSaturation, source.AggregateAverage, shapeScalar, ""},
}

// MetricAggregator fans out one query per eligible category and joins the
// results. It never fails a batch: a category whose query errors or comes
// back empty contributes a zero-valued sample of the category's shape.
type MetricAggregator struct {
	source       source.QueryService
	capabilities source.CapabilitySet
}

// NewMetricAggregator creates an aggregator for the given source. The
// capability set fixes the eligible category list up front.
func NewMetricAggregator(qs source.QueryService, capabilities source.CapabilitySet) *MetricAggregator {
	return &MetricAggregator{source: qs, capabilities: capabilities}
}

// Collect queries every eligible category concurrently over the window and
// returns exactly one sample per category. Ordering is not significant.
func (a *MetricAggregator) Collect(ctx context.Context, start, end time.Time) []models.MetricSample {
	specs := a.eligibleSpecs()
	results := make(chan models.MetricSample, len(specs))

	var wg sync.WaitGroup
	for _, spec := range specs {
		wg.Add(1)
		go func(spec categorySpec) {
			defer wg.Done()
			results <- a.collectOne(ctx, spec, start, end)
		}(spec)
	}
	wg.Wait()
	close(results)

	samples := make([]models.MetricSample, 0, len(specs))
	for sample := range results {
		samples = append(samples, sample)
	}
	return samples
}

func (a *MetricAggregator) eligibleSpecs() []categorySpec {
	specs := make([]categorySpec, 0, len(hourlySpecs))
	for _, spec := range hourlySpecs {
		if spec.gate != "" && !a.capabilities.Has(spec.gate) {
			continue
		}
		specs = append(specs, spec)
	}
	return specs
}

func (a *MetricAggregator) collectOne(ctx context.Context, spec categorySpec, start, end time.Time) models.MetricSample {
	interval := models.NewInterval(start, end)

	stat, err := a.source.QueryAggregate(ctx, spec.category, start, end, spec.kind)
	if err != nil {
		log.Printf("aggregator: query for %s failed, using zero value: %v", spec.category, err)
		stat = source.Stat{}
	}

	return models.MetricSample{
		Category: spec.category,
		Value:    valueFromStat(stat, spec),
		Interval: interval,
	}
}

func valueFromStat(stat source.Stat, spec categorySpec) models.MetricValue {
	if spec.shape == shapeTriple {
		if !stat.HasData {
			return models.TripleValue(0, 0, 0)
		}
		return models.TripleValue(stat.Min, stat.Avg, stat.Max)
	}

	if !stat.HasData {
		return models.SingleValue(0)
	}
	switch spec.kind {
	case source.AggregateAverage:
		return models.SingleValue(stat.Avg)
	case source.AggregateMin:
		return models.SingleValue(stat.Min)
	default:
		return models.SingleValue(stat.Sum)
	}
}
