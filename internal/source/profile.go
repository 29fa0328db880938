package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile describes a simulated device: metric baselines, a nightly sleep
// pattern, mood entries, workouts, and the capabilities the simulated
// platform exposes.
type Profile struct {
	Name         string                   `yaml:"name"`
	Description  string                   `yaml:"description"`
	Capabilities []string                 `yaml:"capabilities"`
	Metrics      map[string]*MetricConfig `yaml:"metrics"`
	Sleep        *SleepConfig             `yaml:"sleep"`
	Moods        []MoodConfig             `yaml:"moods"`
	Workouts     []WorkoutConfig          `yaml:"workouts"`
	Body         *BodyConfig              `yaml:"body"`
}

// MetricConfig defines how a quantity category behaves per hour of window.
type MetricConfig struct {
	Baseline float64 `yaml:"baseline"` // value contributed per hour (sum) or level (avg)
	Noise    float64 `yaml:"noise"`    // relative jitter, 0..1
	Spread   float64 `yaml:"spread"`   // min/max distance from avg for rate categories
}

// SleepConfig defines the simulated overnight session.
type SleepConfig struct {
	Bedtime            string `yaml:"bedtime"` // "23:15", local clock on the previous day
	Wake               string `yaml:"wake"`    // "07:05"
	DeepMinutes        int    `yaml:"deep_minutes"`
	REMMinutes         int    `yaml:"rem_minutes"`
	UnspecifiedMinutes int    `yaml:"unspecified_minutes"`
}

// MoodConfig defines one recorded state-of-mind entry per simulated day.
type MoodConfig struct {
	Time         string   `yaml:"time"` // "09:30"
	Valence      float64  `yaml:"valence"`
	Kind         string   `yaml:"kind"`
	Labels       []string `yaml:"labels"`       // raw vocabulary codes
	Associations []string `yaml:"associations"` // raw vocabulary codes
	Note         string   `yaml:"note"`
}

// WorkoutConfig defines one workout per simulated day.
type WorkoutConfig struct {
	Type     string  `yaml:"type"`
	Start    string  `yaml:"start"` // "18:00"
	Minutes  int     `yaml:"minutes"`
	Calories float64 `yaml:"calories"`
}

// BodyConfig defines the morning body measurements.
type BodyConfig struct {
	WeightKg float64 `yaml:"weight_kg"`
	BMI      float64 `yaml:"bmi"`
}

// Registry holds all available profiles.
type Registry struct {
	profiles map[string]*Profile
}

// NewRegistry creates an empty profile registry.
func NewRegistry() *Registry {
	return &Registry{profiles: make(map[string]*Profile)}
}

// LoadFromFile loads a profile from a YAML file.
func (r *Registry) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read profile file: %w", err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return fmt.Errorf("failed to parse profile YAML: %w", err)
	}
	if profile.Name == "" {
		return fmt.Errorf("profile %s has no name", path)
	}

	r.profiles[profile.Name] = &profile
	return nil
}

// LoadFromDir loads all profiles from a directory.
func (r *Registry) LoadFromDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read profiles directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.HasSuffix(entry.Name(), ".yaml") && !strings.HasSuffix(entry.Name(), ".yml") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		if err := r.LoadFromFile(path); err != nil {
			return fmt.Errorf("failed to load profile from %s: %w", path, err)
		}
	}

	return nil
}

// Get retrieves a profile by name.
func (r *Registry) Get(name string) (*Profile, error) {
	profile, ok := r.profiles[name]
	if !ok {
		return nil, fmt.Errorf("profile '%s' not found", name)
	}
	return profile, nil
}

// List returns all profile names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	return names
}

// ListWithDescriptions returns all profiles with their descriptions.
func (r *Registry) ListWithDescriptions() map[string]string {
	result := make(map[string]string)
	for name, profile := range r.profiles {
		result[name] = profile.Description
	}
	return result
}
