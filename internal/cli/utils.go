package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/healthrelay/healthrelay-cli/internal/source"
)

const defaultConfigPath = "healthrelay.yaml"

func getProfileDir() string {
	// Try current directory first
	if _, err := os.Stat("profiles"); err == nil {
		return "profiles"
	}

	// Try relative to executable
	exe, err := os.Executable()
	if err == nil {
		dir := filepath.Join(filepath.Dir(exe), "profiles")
		if _, err := os.Stat(dir); err == nil {
			return dir
		}
	}

	// Default to profiles in current directory
	return "profiles"
}

func loadProfile(cfg AgentConfig) (*source.Profile, error) {
	registry := source.NewRegistry()
	if err := registry.LoadFromDir(cfg.ProfileDir); err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}
	profile, err := registry.Get(cfg.Profile)
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Now(), nil
	}
	day, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", value)
	}
	return day, nil
}
