package cli

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// AgentConfig holds the delivery settings the agent and send commands
// share. Flags override what the file provides.
type AgentConfig struct {
	Endpoint   string `yaml:"endpoint"`
	Token      string `yaml:"token"`
	DeviceID   string `yaml:"device_id"`
	Profile    string `yaml:"profile"`
	ProfileDir string `yaml:"profile_dir"`
	Seed       int64  `yaml:"seed"`
	Journal    string `yaml:"journal"`

	Screentime ScreentimeConfig `yaml:"screentime"`
}

// ScreentimeConfig holds the screen time tracker settings.
type ScreentimeConfig struct {
	Endpoint string `yaml:"endpoint"`
	DBPath   string `yaml:"db_path"`
}

// LoadAgentConfig reads a YAML config file. A missing file is not an
// error when the path is the default; explicit paths must exist.
func LoadAgentConfig(path string, explicit bool) (AgentConfig, error) {
	var cfg AgentConfig

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills the holes a config file or flags left open.
func (c *AgentConfig) ApplyDefaults() {
	if c.DeviceID == "" {
		c.DeviceID = uuid.NewString()
	}
	if c.Profile == "" {
		c.Profile = "baseline"
	}
	if c.ProfileDir == "" {
		c.ProfileDir = getProfileDir()
	}
	if c.Screentime.DBPath == "" {
		c.Screentime.DBPath = "screentime.db"
	}
}

// Validate checks that the delivery settings are usable.
func (c *AgentConfig) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("no endpoint configured (set --endpoint or the endpoint key in the config file)")
	}
	return nil
}
