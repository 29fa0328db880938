package source

import (
	"context"
	"time"

	"github.com/healthrelay/healthrelay-cli/internal/models"
)

// AggregationKind selects how a quantity category is reduced over a window.
type AggregationKind int

const (
	AggregateSum AggregationKind = iota
	AggregateAverage
	AggregateMin
	AggregateMinAvgMax
)

// Stat is the result of an aggregate query. Only the fields implied by the
// requested AggregationKind are meaningful. HasData is false when the window
// contained no samples.
type Stat struct {
	Sum     float64
	Min     float64
	Avg     float64
	Max     float64
	HasData bool
}

// SampleKind identifies a raw-sample stream.
type SampleKind string

const (
	SamplesSleep   SampleKind = "sleepAnalysis"
	SamplesMood    SampleKind = "stateOfMind"
	SamplesWorkout SampleKind = "workout"
	SamplesWeight  SampleKind = "bodyMass"
	SamplesBMI     SampleKind = "bodyMassIndex"
)

// Sleep stage tags carried on raw sleep samples. Unrecognized tags are
// dropped by the compositor.
const (
	StageInBed       = "inBed"
	StageDeep        = "deep"
	StageUnspecified = "unspecified"
	StageREM         = "rem"
)

// Sample is one raw time-ranged sample. Quantity samples use Value; sleep
// samples carry a stage Tag; workout samples carry the activity Tag; mood
// samples populate the mood-specific fields with raw vocabulary codes.
type Sample struct {
	Start time.Time
	End   time.Time
	Value float64
	Tag   string

	Valence          float64
	Labels           []string
	Associations     []string
	ShortDescription string
	LongDescription  string
}

// Capability names an optional data-source feature resolved at startup.
type Capability string

const (
	CapabilityStandHours  Capability = "standHours"
	CapabilityStateOfMind Capability = "stateOfMind"
)

// QueryService is the device-resident data source. Implementations must be
// safe for concurrent use; an unauthorized or failing query is expected to
// surface as an error or an empty result, never to block the caller.
type QueryService interface {
	QueryAggregate(ctx context.Context, category models.Category, start, end time.Time, kind AggregationKind) (Stat, error)
	QuerySamples(ctx context.Context, kind SampleKind, start, end time.Time) ([]Sample, error)
	QueryCapability(capability Capability) bool
}

// CapabilitySet is the set of enabled capabilities, resolved once so that
// optional code paths are data rather than scattered version checks.
type CapabilitySet map[Capability]bool

// Has reports whether a capability is enabled.
func (s CapabilitySet) Has(capability Capability) bool {
	return s[capability]
}

// ResolveCapabilities probes the query service once for every known
// capability.
func ResolveCapabilities(qs QueryService) CapabilitySet {
	set := make(CapabilitySet)
	for _, capability := range []Capability{CapabilityStandHours, CapabilityStateOfMind} {
		set[capability] = qs.QueryCapability(capability)
	}
	return set
}
