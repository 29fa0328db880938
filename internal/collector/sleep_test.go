package collector

import (
	"context"
	"testing"
	"time"

	"github.com/healthrelay/healthrelay-cli/internal/models"
	"github.com/healthrelay/healthrelay-cli/internal/source"
)

func TestSleepCompositor_StageTotals(t *testing.T) {
	base := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	stub := newStubSource()
	stub.samples[source.SamplesSleep] = []source.Sample{
		{Start: base, End: base.Add(8 * time.Hour), Tag: source.StageInBed},
		{Start: base, End: base.Add(time.Hour), Tag: source.StageDeep},
		{Start: base.Add(time.Hour), End: base.Add(5 * time.Hour), Tag: source.StageUnspecified},
		{Start: base.Add(5 * time.Hour), End: base.Add(6 * time.Hour), Tag: source.StageREM},
		{Start: base, End: base.Add(time.Hour), Tag: "lucidDreaming"}, // unrecognized, dropped
	}

	compositor := NewSleepCompositor(stub, nil)
	analysis := compositor.CollectWindow(context.Background(), base, base.Add(12*time.Hour))

	if analysis.TimeInBed != 480 {
		t.Errorf("expected 480 minutes in bed, got %d", analysis.TimeInBed)
	}
	if analysis.Stages.Deep != 60 || analysis.Stages.Light != 240 || analysis.Stages.REM != 60 {
		t.Errorf("unexpected stages %+v", analysis.Stages)
	}
}

func TestSleepCompositor_EmptyWindowIsZeroSummary(t *testing.T) {
	stub := newStubSource()

	compositor := NewSleepCompositor(stub, nil)
	analysis := compositor.CollectWindow(context.Background(), time.Now().Add(-time.Hour), time.Now())

	if analysis.TimeInBed != 0 || analysis.Stages.Deep != 0 {
		t.Errorf("expected all-zero summary, got %+v", analysis)
	}
}

func TestSleepCompositor_QueryFailureIsZeroSummary(t *testing.T) {
	stub := newStubSource()
	stub.sampleErr[source.SamplesSleep] = errStub

	compositor := NewSleepCompositor(stub, nil)
	analysis := compositor.CollectWindow(context.Background(), time.Now().Add(-time.Hour), time.Now())

	if analysis.TimeInBed != 0 || analysis.Stages != (models.SleepStages{}) {
		t.Errorf("expected zero summary on query failure, got %+v", analysis)
	}
}

func TestSleepCompositor_CombinedWindowIsYesterdayEvening(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 30, 0, 0, time.UTC)
	compositor := NewSleepCompositor(newStubSource(), fixedTime(now))

	start, end := compositor.combinedWindow()
	if want := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC); !start.Equal(want) {
		t.Errorf("expected window start %v, got %v", want, start)
	}
	if !end.Equal(now) {
		t.Errorf("expected window end %v, got %v", now, end)
	}
}

func TestSleepCompositor_EventsOrderedWithStageDetails(t *testing.T) {
	base := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	stub := newStubSource()
	stub.samples[source.SamplesSleep] = []source.Sample{
		{Start: base.Add(2 * time.Hour), End: base.Add(3 * time.Hour), Tag: source.StageREM},
		{Start: base, End: base.Add(time.Hour), Tag: source.StageDeep},
	}

	compositor := NewSleepCompositor(stub, nil)
	events := compositor.CollectEvents(context.Background(), base, base.Add(8*time.Hour))

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Start > events[1].Start {
		t.Error("events not ordered by start ascending")
	}
	if events[0].SessionType != "sleep" || events[0].Details["stage"] != source.StageDeep {
		t.Errorf("unexpected first event %+v", events[0])
	}
}
