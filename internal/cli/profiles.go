package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/healthrelay/healthrelay-cli/internal/source"
)

var profilesDir string

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Inspect simulation profiles",
	Long:  `Commands for listing and describing the device simulation profiles.`,
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available profiles",
	RunE:  runProfilesList,
}

var profilesDescribeCmd = &cobra.Command{
	Use:   "describe <profile>",
	Short: "Describe a profile in detail",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfilesDescribe,
}

func init() {
	profilesCmd.PersistentFlags().StringVar(&profilesDir, "dir", "", "Profiles directory")
	profilesCmd.AddCommand(profilesListCmd)
	profilesCmd.AddCommand(profilesDescribeCmd)
}

func loadProfileRegistry() (*source.Registry, error) {
	dir := profilesDir
	if dir == "" {
		dir = getProfileDir()
	}
	registry := source.NewRegistry()
	if err := registry.LoadFromDir(dir); err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}
	return registry, nil
}

func runProfilesList(cmd *cobra.Command, args []string) error {
	registry, err := loadProfileRegistry()
	if err != nil {
		return err
	}

	profiles := registry.ListWithDescriptions()
	if len(profiles) == 0 {
		fmt.Println("No profiles found")
		return nil
	}

	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("Available profiles:")
	fmt.Println()
	for _, name := range names {
		fmt.Printf("  %-20s %s\n", name, profiles[name])
	}
	fmt.Println()

	return nil
}

func runProfilesDescribe(cmd *cobra.Command, args []string) error {
	registry, err := loadProfileRegistry()
	if err != nil {
		return err
	}

	profile, err := registry.Get(args[0])
	if err != nil {
		return fmt.Errorf("profile not found: %w", err)
	}

	fmt.Printf("Profile: %s\n", profile.Name)
	fmt.Printf("Description: %s\n", profile.Description)
	if len(profile.Capabilities) > 0 {
		fmt.Printf("Capabilities: %s\n", strings.Join(profile.Capabilities, ", "))
	}
	fmt.Println()

	if len(profile.Metrics) > 0 {
		fmt.Println("Metrics:")
		names := make([]string, 0, len(profile.Metrics))
		for name := range profile.Metrics {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			m := profile.Metrics[name]
			fmt.Printf("  %s\n", name)
			fmt.Printf("    Baseline: %v\n", m.Baseline)
			if m.Noise != 0 {
				fmt.Printf("    Noise: %v\n", m.Noise)
			}
			if m.Spread != 0 {
				fmt.Printf("    Spread: %v\n", m.Spread)
			}
		}
	}

	if profile.Sleep != nil {
		fmt.Println("\nSleep:")
		fmt.Printf("  Bedtime: %s, wake: %s\n", profile.Sleep.Bedtime, profile.Sleep.Wake)
		fmt.Printf("  Deep: %dm, REM: %dm, unspecified: %dm\n",
			profile.Sleep.DeepMinutes, profile.Sleep.REMMinutes, profile.Sleep.UnspecifiedMinutes)
	}

	if len(profile.Moods) > 0 {
		fmt.Println("\nMoods:")
		for _, mood := range profile.Moods {
			fmt.Printf("  %s  valence %+.2f  labels %v\n", mood.Time, mood.Valence, mood.Labels)
		}
	}

	if len(profile.Workouts) > 0 {
		fmt.Println("\nWorkouts:")
		for _, workout := range profile.Workouts {
			fmt.Printf("  %s  %s for %dm (%.0f kcal)\n", workout.Start, workout.Type, workout.Minutes, workout.Calories)
		}
	}

	if profile.Body != nil {
		fmt.Println("\nBody:")
		fmt.Printf("  Weight: %.1f kg, BMI: %.1f\n", profile.Body.WeightKg, profile.Body.BMI)
	}

	fmt.Println()
	return nil
}
