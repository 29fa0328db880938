package collector

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/healthrelay/healthrelay-cli/internal/models"
	"github.com/healthrelay/healthrelay-cli/internal/source"
)

// Raw vocabulary codes the data source emits for mood labels it cannot name
// itself. Codes absent from the tables pass through verbatim so future
// vocabulary additions survive the translation.
var moodLabelNames = map[string]string{
	"raw_1":  "amazed",
	"raw_5":  "ashamed",
	"raw_6":  "brave",
	"raw_8":  "content",
	"raw_10": "discouraged",
	"raw_16": "guilty",
	"raw_20": "jealous",
	"raw_21": "joyful",
	"raw_23": "passionate",
	"raw_24": "peaceful",
	"raw_26": "relieved",
	"raw_28": "scared",
	"raw_34": "drained",
	"raw_36": "indifferent",
	"raw_37": "overwhelmed",
}

var moodAssociationNames = map[string]string{
	"raw_1":  "community",
	"raw_2":  "current events",
	"raw_3":  "dating",
	"raw_4":  "education",
	"raw_6":  "fitness",
	"raw_9":  "hobbies",
	"raw_10": "identity",
	"raw_12": "partner",
	"raw_13": "self-care",
	"raw_14": "spirituality",
	"raw_15": "tasks",
	"raw_16": "travel",
	"raw_18": "weather",
}

// MoodCompositor collects state-of-mind sessions. Mood capture is
// best-effort: callers only invoke it when the capability gate passes, and
// a failed query yields an empty result rather than an error.
type MoodCompositor struct {
	source source.QueryService
}

// NewMoodCompositor creates a compositor for the given source.
func NewMoodCompositor(qs source.QueryService) *MoodCompositor {
	return &MoodCompositor{source: qs}
}

// Collect returns the window's mood sessions with vocabulary codes
// translated and valence labels derived.
func (c *MoodCompositor) Collect(ctx context.Context, start, end time.Time) []models.MoodSession {
	samples, err := c.source.QuerySamples(ctx, source.SamplesMood, start, end)
	if err != nil {
		log.Printf("mood: sample query failed, skipping mood capture: %v", err)
		return nil
	}

	sessions := make([]models.MoodSession, 0, len(samples))
	for _, sample := range samples {
		session := models.MoodSession{
			Start:        sample.Start.UTC().Format(time.RFC3339),
			End:          sample.End.UTC().Format(time.RFC3339),
			Kind:         sample.Tag,
			Valence:      sample.Valence,
			ValenceLabel: models.LabelForValence(sample.Valence),
			Labels:       translateCodes(sample.Labels, moodLabelNames),
			Associations: translateCodes(sample.Associations, moodAssociationNames),
		}
		if sample.ShortDescription != "" {
			session.ShortDescription = ptr(sample.ShortDescription)
		}
		if sample.LongDescription != "" {
			session.LongDescription = ptr(sample.LongDescription)
		}
		sessions = append(sessions, session)
	}
	return sessions
}

func translateCodes(codes []string, table map[string]string) []string {
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		if strings.HasPrefix(code, "raw_") {
			if name, ok := table[code]; ok {
				out = append(out, name)
				continue
			}
		}
		out = append(out, code)
	}
	return out
}

func ptr(s string) *string {
	return &s
}
