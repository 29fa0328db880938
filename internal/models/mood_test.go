package models

import "testing"

func TestLabelForValence_StepFunction(t *testing.T) {
	cases := []struct {
		valence float64
		want    ValenceLabel
	}{
		{-1.0, ValenceStronglyNegative},
		{-0.51, ValenceStronglyNegative},
		{-0.5, ValenceNegative},
		{-0.49, ValenceNegative},
		{0.0, ValenceNeutral},
		{0.01, ValencePositive},
		{0.49, ValencePositive},
		{0.5, ValenceStronglyPositive},
		{1.0, ValenceStronglyPositive},
	}

	for _, c := range cases {
		got := LabelForValence(c.valence)
		if got != c.want {
			t.Errorf("LabelForValence(%v) = %q, want %q", c.valence, got, c.want)
		}
	}
}

func TestLabelForValence_Deterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		if got := LabelForValence(0.25); got != ValencePositive {
			t.Fatalf("expected stable 'positive' label, got %q", got)
		}
	}
}
