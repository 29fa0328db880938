package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/healthrelay/healthrelay-cli/internal/pipeline"
)

var (
	sendFamily  string
	sendTimeout time.Duration
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Collect and deliver one payload now",
	Long: `Runs a single collection-and-delivery pass for one payload family
and exits. Families:

  hourly   today's metrics, overnight sleep, sleep events, mood
  morning  resting heart rate, HRV, and the overnight sleep summary
  evening  activity totals, body measurements, and workouts

A payload already delivered for the current logical timestamp is
skipped and reported as such.

Examples:
  healthrelay send --family hourly --endpoint http://127.0.0.1:8787/v1/health/import
  healthrelay send --family evening --journal sent.ndjson`,
	RunE: runSend,
}

func init() {
	addDeliveryFlags(sendCmd)
	sendCmd.Flags().StringVar(&sendFamily, "family", "hourly", "Payload family: hourly|morning|evening")
	sendCmd.Flags().DurationVar(&sendTimeout, "timeout", 30*time.Second, "Overall deadline for the pass")
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg, pipe, journal, err := buildPipeline(cmd)
	if err != nil {
		return err
	}
	if journal != nil {
		defer journal.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	err = pipe.Run(ctx, sendFamily)
	if errors.Is(err, pipeline.ErrDeduplicated) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s payload already delivered for this period, skipped\n", sendFamily)
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s delivery failed: %w", sendFamily, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s payload delivered to %s (device %s)\n", sendFamily, cfg.Endpoint, cfg.DeviceID)
	return nil
}
