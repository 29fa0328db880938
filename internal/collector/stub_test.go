package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/healthrelay/healthrelay-cli/internal/models"
	"github.com/healthrelay/healthrelay-cli/internal/source"
)

// stubSource is a configurable QueryService for tests.
type stubSource struct {
	mu           sync.Mutex
	aggregates   map[models.Category]source.Stat
	aggregateErr map[models.Category]error
	samples      map[source.SampleKind][]source.Sample
	sampleErr    map[source.SampleKind]error
	capabilities map[source.Capability]bool
	queried      []models.Category
}

func newStubSource() *stubSource {
	return &stubSource{
		aggregates:   make(map[models.Category]source.Stat),
		aggregateErr: make(map[models.Category]error),
		samples:      make(map[source.SampleKind][]source.Sample),
		sampleErr:    make(map[source.SampleKind]error),
		capabilities: make(map[source.Capability]bool),
	}
}

func (s *stubSource) QueryAggregate(ctx context.Context, category models.Category, start, end time.Time, kind source.AggregationKind) (source.Stat, error) {
	s.mu.Lock()
	s.queried = append(s.queried, category)
	s.mu.Unlock()

	if err := s.aggregateErr[category]; err != nil {
		return source.Stat{}, err
	}
	return s.aggregates[category], nil
}

func (s *stubSource) QuerySamples(ctx context.Context, kind source.SampleKind, start, end time.Time) ([]source.Sample, error) {
	if err := s.sampleErr[kind]; err != nil {
		return nil, err
	}
	return s.samples[kind], nil
}

func (s *stubSource) QueryCapability(capability source.Capability) bool {
	return s.capabilities[capability]
}

func (s *stubSource) queriedCategories() []models.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Category(nil), s.queried...)
}

var errStub = fmt.Errorf("stub query failure")

func fixedTime(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
