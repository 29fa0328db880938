package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/healthrelay/healthrelay-cli/internal/delivery"
	"github.com/healthrelay/healthrelay-cli/internal/pipeline"
	"github.com/healthrelay/healthrelay-cli/internal/scheduler"
	"github.com/healthrelay/healthrelay-cli/internal/source"
)

var (
	agentConfigPath string
	agentEndpoint   string
	agentToken      string
	agentDevice     string
	agentProfile    string
	agentSeed       int64
	agentJournal    string
	agentRunBudget  time.Duration
	agentOnce       bool
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the background delivery agent",
	Long: `Runs the hourly, morning, and evening delivery schedules against a
simulated device built from the selected profile.

Each schedule re-arms its next occurrence before the run body executes,
so a failed or expired run never starves future runs. Payloads already
delivered for the current logical timestamp are skipped.

Examples:
  healthrelay agent --endpoint http://127.0.0.1:8787/v1/health/import
  healthrelay agent --config healthrelay.yaml --profile athlete
  healthrelay agent --journal sent.ndjson`,
	RunE: runAgent,
}

func init() {
	addDeliveryFlags(agentCmd)
	agentCmd.Flags().DurationVar(&agentRunBudget, "run-budget", 30*time.Second, "Expiration deadline per scheduled run")
	agentCmd.Flags().BoolVar(&agentOnce, "once", false, "Run every payload family once and exit")
}

// addDeliveryFlags registers the flags the agent and send commands share.
func addDeliveryFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&agentConfigPath, "config", defaultConfigPath, "Path to YAML config file")
	cmd.Flags().StringVar(&agentEndpoint, "endpoint", "", "Webhook endpoint URL")
	cmd.Flags().StringVar(&agentToken, "token", "", "Bearer token for the endpoint")
	cmd.Flags().StringVar(&agentDevice, "device", "", "Device identifier (generated if not set)")
	cmd.Flags().StringVar(&agentProfile, "profile", "", "Simulation profile name")
	cmd.Flags().Int64Var(&agentSeed, "seed", 0, "Random seed for deterministic simulation")
	cmd.Flags().StringVar(&agentJournal, "journal", "", "NDJSON file to journal sent payloads")
}

func runAgent(cmd *cobra.Command, args []string) error {
	cfg, pipe, journal, err := buildPipeline(cmd)
	if err != nil {
		return err
	}
	if journal != nil {
		defer journal.Close()
	}

	if agentOnce {
		return runAllFamiliesOnce(cmd, pipe)
	}

	coordinator := scheduler.NewCoordinator(agentRunBudget, nil)
	register := func(name scheduler.Schedule, offset time.Duration, family string) {
		coordinator.Register(name, offset, func(ctx context.Context) error {
			err := pipe.Run(ctx, family)
			if errors.Is(err, pipeline.ErrDeduplicated) {
				return nil
			}
			return err
		})
	}
	register(scheduler.ScheduleHourly, time.Hour, "hourly")
	register(scheduler.ScheduleDailyMorning, 24*time.Hour, "morning")
	register(scheduler.ScheduleDailyEvening, 24*time.Hour, "evening")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	coordinator.Start(ctx)
	defer coordinator.Stop()

	out := cmd.ErrOrStderr()
	fmt.Fprintln(out, "HealthRelay agent started")
	fmt.Fprintf(out, "  Endpoint:  %s\n", cfg.Endpoint)
	fmt.Fprintf(out, "  Device:    %s\n", cfg.DeviceID)
	fmt.Fprintf(out, "  Profile:   %s\n", cfg.Profile)
	for _, name := range []scheduler.Schedule{scheduler.ScheduleHourly, scheduler.ScheduleDailyMorning, scheduler.ScheduleDailyEvening} {
		if next, err := coordinator.NextFiring(name); err == nil {
			fmt.Fprintf(out, "  %-14s next at %s\n", name, next.Format(time.RFC3339))
		}
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	<-sigChan
	fmt.Fprintln(out, "\nReceived interrupt signal, shutting down...")
	return nil
}

// runAllFamiliesOnce does one manual full pass over every payload family.
func runAllFamiliesOnce(cmd *cobra.Command, pipe *pipeline.Pipeline) error {
	ctx, cancel := context.WithTimeout(context.Background(), agentRunBudget)
	defer cancel()

	for _, family := range []string{"hourly", "morning", "evening"} {
		err := pipe.Run(ctx, family)
		switch {
		case errors.Is(err, pipeline.ErrDeduplicated):
			fmt.Fprintf(cmd.OutOrStdout(), "%s: already delivered for this period, skipped\n", family)
		case err != nil:
			return fmt.Errorf("%s delivery failed: %w", family, err)
		default:
			fmt.Fprintf(cmd.OutOrStdout(), "%s: delivered\n", family)
		}
	}
	return nil
}

// buildPipeline assembles the shared config, simulator, and delivery stack
// for the agent and send commands.
func buildPipeline(cmd *cobra.Command) (AgentConfig, *pipeline.Pipeline, *delivery.Journal, error) {
	explicit := cmd.Flags().Changed("config")
	cfg, err := LoadAgentConfig(agentConfigPath, explicit)
	if err != nil {
		return cfg, nil, nil, err
	}

	if agentEndpoint != "" {
		cfg.Endpoint = agentEndpoint
	}
	if agentToken != "" {
		cfg.Token = agentToken
	}
	if agentDevice != "" {
		cfg.DeviceID = agentDevice
	}
	if agentProfile != "" {
		cfg.Profile = agentProfile
	}
	if agentSeed != 0 {
		cfg.Seed = agentSeed
	}
	if agentJournal != "" {
		cfg.Journal = agentJournal
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, nil, nil, err
	}

	profile, err := loadProfile(cfg)
	if err != nil {
		return cfg, nil, nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	sim := source.NewSimulator(profile, seed)

	var journal *delivery.Journal
	if cfg.Journal != "" {
		journal, err = delivery.NewJournal(cfg.Journal)
		if err != nil {
			return cfg, nil, nil, fmt.Errorf("failed to open journal: %w", err)
		}
	}

	opts := pipeline.Options{
		Source:   sim,
		Sender:   delivery.NewClient(cfg.Endpoint, cfg.Token, nil),
		DeviceID: cfg.DeviceID,
	}
	if journal != nil {
		opts.Journal = journal
	}
	return cfg, pipeline.New(opts), journal, nil
}
