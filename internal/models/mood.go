package models

// ValenceLabel is the coarse classification of a mood valence score.
type ValenceLabel string

const (
	ValenceStronglyNegative ValenceLabel = "strongly_negative"
	ValenceNegative         ValenceLabel = "negative"
	ValenceNeutral          ValenceLabel = "neutral"
	ValencePositive         ValenceLabel = "positive"
	ValenceStronglyPositive ValenceLabel = "strongly_positive"
)

// LabelForValence maps a valence score in [-1, 1] onto its label.
// The thresholds are fixed: exactly -0.5 is still negative, zero alone
// is neutral.
func LabelForValence(valence float64) ValenceLabel {
	switch {
	case valence < -0.5:
		return ValenceStronglyNegative
	case valence < 0:
		return ValenceNegative
	case valence == 0:
		return ValenceNeutral
	case valence < 0.5:
		return ValencePositive
	default:
		return ValenceStronglyPositive
	}
}

// MoodSession is one recorded state-of-mind entry.
type MoodSession struct {
	Start            string       `json:"start"`
	End              string       `json:"end"`
	Kind             string       `json:"type"`
	Valence          float64      `json:"valence"`
	ValenceLabel     ValenceLabel `json:"valenceDescription"`
	Labels           []string     `json:"tags"`
	Associations     []string     `json:"associations"`
	ShortDescription *string      `json:"shortDescription,omitempty"`
	LongDescription  *string      `json:"description,omitempty"`
}
