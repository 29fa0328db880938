package collector

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/healthrelay/healthrelay-cli/internal/models"
	"github.com/healthrelay/healthrelay-cli/internal/source"
)

func TestMoodCompositor_TranslatesVocabulary(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	stub := newStubSource()
	stub.samples[source.SamplesMood] = []source.Sample{
		{
			Start:        at,
			End:          at.Add(time.Minute),
			Tag:          "momentaryEmotion",
			Valence:      0.4,
			Labels:       []string{"raw_21", "raw_99", "grateful"},
			Associations: []string{"raw_6"},
		},
	}

	compositor := NewMoodCompositor(stub)
	sessions := compositor.Collect(context.Background(), at.Add(-time.Hour), at.Add(time.Hour))

	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}

	session := sessions[0]
	if session.ValenceLabel != models.ValencePositive {
		t.Errorf("expected positive valence label, got %q", session.ValenceLabel)
	}
	// raw_21 has a table entry, raw_99 passes through, plain strings are
	// left untouched.
	if want := []string{"joyful", "raw_99", "grateful"}; !reflect.DeepEqual(session.Labels, want) {
		t.Errorf("expected labels %v, got %v", want, session.Labels)
	}
	if want := []string{"fitness"}; !reflect.DeepEqual(session.Associations, want) {
		t.Errorf("expected associations %v, got %v", want, session.Associations)
	}
}

func TestMoodCompositor_QueryFailureIsEmpty(t *testing.T) {
	stub := newStubSource()
	stub.sampleErr[source.SamplesMood] = errStub

	compositor := NewMoodCompositor(stub)
	sessions := compositor.Collect(context.Background(), time.Now().Add(-time.Hour), time.Now())

	if len(sessions) != 0 {
		t.Errorf("expected empty result on query failure, got %+v", sessions)
	}
}

func TestMoodCompositor_DescriptionsOptional(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	stub := newStubSource()
	stub.samples[source.SamplesMood] = []source.Sample{
		{Start: at, End: at.Add(time.Minute), Tag: "dailyMood", Valence: -0.7},
		{Start: at, End: at.Add(time.Minute), Tag: "dailyMood", Valence: 0, ShortDescription: "fine"},
	}

	sessions := NewMoodCompositor(stub).Collect(context.Background(), at.Add(-time.Hour), at.Add(time.Hour))

	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ShortDescription != nil {
		t.Error("expected nil short description when none recorded")
	}
	if sessions[1].ShortDescription == nil || *sessions[1].ShortDescription != "fine" {
		t.Errorf("expected short description 'fine', got %v", sessions[1].ShortDescription)
	}
	if sessions[0].ValenceLabel != models.ValenceStronglyNegative {
		t.Errorf("expected strongly_negative, got %q", sessions[0].ValenceLabel)
	}
}
