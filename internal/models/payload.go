package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Category identifies a single metric kind queried independently.
type Category string

const (
	CategoryStepCount        Category = "stepCount"
	CategoryDistanceWalkRun  Category = "distanceWalkingRunning"
	CategoryActiveEnergy     Category = "activeEnergyBurned"
	CategoryExerciseMinutes  Category = "exerciseMinutes"
	CategoryStandHours       Category = "standHours"
	CategoryHeartRate        Category = "heartRate"
	CategoryOxygenSaturation Category = "oxygenSaturation"
	CategoryRestingHeartRate Category = "restingHeartRate"
	CategoryHRV              Category = "heartRateVariability"
)

// Interval is a closed-open time range, serialized as RFC3339 strings.
type Interval struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// NewInterval formats a time range into an Interval.
func NewInterval(start, end time.Time) Interval {
	return Interval{
		Start: start.UTC().Format(time.RFC3339),
		End:   end.UTC().Format(time.RFC3339),
	}
}

// MetricTriple holds min/avg/max of a rate category.
type MetricTriple struct {
	Min float64 `json:"min"`
	Avg float64 `json:"avg"`
	Max float64 `json:"max"`
}

// MetricValue is either a single scalar (cumulative/count categories) or a
// min/avg/max triple (rate categories). The shape on the wire is a bare
// number or an object, matching whichever form is set.
type MetricValue struct {
	Single *float64
	Triple *MetricTriple
}

// SingleValue builds a scalar metric value.
func SingleValue(v float64) MetricValue {
	return MetricValue{Single: &v}
}

// TripleValue builds a min/avg/max metric value.
func TripleValue(min, avg, max float64) MetricValue {
	return MetricValue{Triple: &MetricTriple{Min: min, Avg: avg, Max: max}}
}

func (v MetricValue) MarshalJSON() ([]byte, error) {
	if v.Triple != nil {
		return json.Marshal(v.Triple)
	}
	if v.Single != nil {
		return json.Marshal(*v.Single)
	}
	return json.Marshal(0.0)
}

func (v *MetricValue) UnmarshalJSON(data []byte) error {
	var single float64
	if err := json.Unmarshal(data, &single); err == nil {
		v.Single = &single
		v.Triple = nil
		return nil
	}
	var triple MetricTriple
	if err := json.Unmarshal(data, &triple); err != nil {
		return fmt.Errorf("metric value must be a number or a min/avg/max object: %w", err)
	}
	v.Single = nil
	v.Triple = &triple
	return nil
}

// MetricSample is one collected metric over an interval.
type MetricSample struct {
	Category Category    `json:"metricType"`
	Value    MetricValue `json:"value"`
	Interval Interval    `json:"interval"`
}

// SleepStages holds classified sleep minutes per stage.
type SleepStages struct {
	Deep  int `json:"deep"`
	Light int `json:"light"`
	REM   int `json:"rem"`
}

// SleepAnalysis summarizes one sleep window. TimeInBed is independent of the
// stage totals; different stage tags may cover overlapping wall time.
type SleepAnalysis struct {
	TimeInBed int         `json:"timeInBed"`
	Stages    SleepStages `json:"stages"`
}

// HealthEvent is one discrete session-style sample, e.g. a sleep segment.
type HealthEvent struct {
	SessionType string         `json:"sessionType"`
	Start       string         `json:"start"`
	End         string         `json:"end"`
	Details     map[string]any `json:"details"`
}

// WorkoutSession is one completed workout.
type WorkoutSession struct {
	Type     string   `json:"type"`
	Start    string   `json:"start"`
	End      string   `json:"end"`
	Calories *float64 `json:"calories,omitempty"`
}

// DailyMorning aggregates the overnight recovery metrics for one day.
type DailyMorning struct {
	SleepAnalysis        SleepAnalysis `json:"sleepAnalysis"`
	RestingHeartRate     float64       `json:"restingHeartRate"`
	HeartRateVariability float64       `json:"heartRateVariability"`
}

// DailyEvening aggregates the day's activity totals.
type DailyEvening struct {
	StressScore   float64        `json:"stressScore"`
	TotalSteps    int            `json:"totalSteps"`
	TotalCalories float64        `json:"totalCalories"`
	Weight        float64        `json:"weight"`
	BMI           float64        `json:"bmi"`
	SleepAnalysis *SleepAnalysis `json:"sleepAnalysis,omitempty"`
}

// HealthPayload is the delivery envelope. Unused sections are omitted, not
// null-filled; at least one section must be populated per send.
type HealthPayload struct {
	DeviceID  string `json:"deviceId"`
	Timestamp string `json:"timestamp"`

	HourlyMetrics   []MetricSample   `json:"hourlyMetrics,omitempty"`
	WorkoutSessions []WorkoutSession `json:"workoutSessions,omitempty"`
	DailyMorning    *DailyMorning    `json:"dailyMorning,omitempty"`
	DailyEvening    *DailyEvening    `json:"dailyEvening,omitempty"`
	SleepAnalysis   *SleepAnalysis   `json:"sleepAnalysis,omitempty"`
	MoodSessions    []MoodSession    `json:"moodSessions,omitempty"`
	HealthEvents    []HealthEvent    `json:"healthEvents,omitempty"`
}

// Sections lists the populated data sections, in envelope order.
func (p *HealthPayload) Sections() []string {
	var sections []string
	if len(p.HourlyMetrics) > 0 {
		sections = append(sections, "hourlyMetrics")
	}
	if len(p.WorkoutSessions) > 0 {
		sections = append(sections, "workoutSessions")
	}
	if p.DailyMorning != nil {
		sections = append(sections, "dailyMorning")
	}
	if p.DailyEvening != nil {
		sections = append(sections, "dailyEvening")
	}
	if p.SleepAnalysis != nil {
		sections = append(sections, "sleepAnalysis")
	}
	if len(p.MoodSessions) > 0 {
		sections = append(sections, "moodSessions")
	}
	if len(p.HealthEvents) > 0 {
		sections = append(sections, "healthEvents")
	}
	return sections
}

// Validate checks the envelope invariants before a send attempt.
func (p *HealthPayload) Validate() error {
	if p.DeviceID == "" {
		return &ValidationError{Field: "deviceId", Message: "is required"}
	}
	if p.Timestamp == "" {
		return &ValidationError{Field: "timestamp", Message: "is required"}
	}
	if _, err := time.Parse(time.RFC3339, p.Timestamp); err != nil {
		return &ValidationError{Field: "timestamp", Message: "must be valid RFC3339 timestamp"}
	}
	if len(p.HourlyMetrics) == 0 && len(p.WorkoutSessions) == 0 &&
		p.DailyMorning == nil && p.DailyEvening == nil &&
		p.SleepAnalysis == nil && len(p.MoodSessions) == 0 &&
		len(p.HealthEvents) == 0 {
		return &ValidationError{Field: "payload", Message: "at least one data section must be populated"}
	}
	return nil
}

// ValidationError represents a payload validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
