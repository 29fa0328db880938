package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "healthrelay",
	Short: "HealthRelay CLI - health metric aggregation and delivery agent",
	Long: `HealthRelay collects health metrics from a device data source,
composes them into versioned payloads, and delivers them to a
configured webhook on hourly, morning, and evening schedules.

It ships with a profile-driven simulator so the full pipeline can run
without a physical device, and a local receiver for inspecting what
an agent sends.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(receiverCmd)
	rootCmd.AddCommand(screentimeCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
}
