package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/healthrelay/healthrelay-cli/internal/screentime"
)

var (
	screentimeConfigPath string
	screentimeDBPath     string
	screentimeEndpoint   string
	screentimeDate       string
)

var screentimeCmd = &cobra.Command{
	Use:   "screentime",
	Short: "Track and upload per-app screen time",
	Long: `Commands for recording app foreground sessions, reporting daily
usage, and uploading daily summaries to the screen time endpoint.`,
}

var screentimeStartCmd = &cobra.Command{
	Use:   "start <app>",
	Short: "Mark an app as entering the foreground",
	Args:  cobra.ExactArgs(1),
	RunE:  runScreentimeStart,
}

var screentimeStopCmd = &cobra.Command{
	Use:   "stop <app>",
	Short: "Mark an app as leaving the foreground",
	Args:  cobra.ExactArgs(1),
	RunE:  runScreentimeStop,
}

var screentimeReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a day's usage summary",
	RunE:  runScreentimeReport,
}

var screentimeUploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload a day's usage summary and clear its sessions",
	RunE:  runScreentimeUpload,
}

func init() {
	screentimeCmd.PersistentFlags().StringVar(&screentimeConfigPath, "config", defaultConfigPath, "Path to YAML config file")
	screentimeCmd.PersistentFlags().StringVar(&screentimeDBPath, "db", "", "Path to the session database")
	screentimeReportCmd.Flags().StringVar(&screentimeDate, "date", "", "Day to report (YYYY-MM-DD, today if not set)")
	screentimeUploadCmd.Flags().StringVar(&screentimeDate, "date", "", "Day to upload (YYYY-MM-DD, today if not set)")
	screentimeUploadCmd.Flags().StringVar(&screentimeEndpoint, "endpoint", "", "Screen time endpoint URL")

	screentimeCmd.AddCommand(screentimeStartCmd)
	screentimeCmd.AddCommand(screentimeStopCmd)
	screentimeCmd.AddCommand(screentimeReportCmd)
	screentimeCmd.AddCommand(screentimeUploadCmd)
}

func openScreentimeStore(cmd *cobra.Command) (*screentime.Store, ScreentimeConfig, error) {
	explicit := cmd.Flags().Changed("config")
	cfg, err := LoadAgentConfig(screentimeConfigPath, explicit)
	if err != nil {
		return nil, ScreentimeConfig{}, err
	}
	cfg.ApplyDefaults()

	st := cfg.Screentime
	if screentimeDBPath != "" {
		st.DBPath = screentimeDBPath
	}
	if screentimeEndpoint != "" {
		st.Endpoint = screentimeEndpoint
	}

	store, err := screentime.Open(st.DBPath)
	if err != nil {
		return nil, st, err
	}
	return store, st, nil
}

func runScreentimeStart(cmd *cobra.Command, args []string) error {
	store, _, err := openScreentimeStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.StartSession(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "started tracking %s\n", args[0])
	return nil
}

func runScreentimeStop(cmd *cobra.Command, args []string) error {
	store, _, err := openScreentimeStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.StopSession(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "stopped tracking %s\n", args[0])
	return nil
}

func runScreentimeReport(cmd *cobra.Command, args []string) error {
	store, _, err := openScreentimeStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	day, err := parseDate(screentimeDate)
	if err != nil {
		return err
	}

	summary, err := store.Summarize(day)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Screen time for %s\n\n", summary.Date)
	if summary.Total == 0 {
		fmt.Fprintln(out, "  no sessions recorded")
		return nil
	}

	apps := make([]string, 0, len(summary.Apps))
	for app := range summary.Apps {
		apps = append(apps, app)
	}
	sort.Slice(apps, func(i, j int) bool { return summary.Apps[apps[i]] > summary.Apps[apps[j]] })

	for _, app := range apps {
		share := float64(summary.Apps[app]) / float64(summary.Total)
		fmt.Fprintf(out, "  %-20s %8s  %s\n", app, summary.Formatted[app], renderBar(share, 24))
	}
	fmt.Fprintf(out, "\n  Total: %s\n", summary.FormattedTotal)
	return nil
}

func runScreentimeUpload(cmd *cobra.Command, args []string) error {
	store, st, err := openScreentimeStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if st.Endpoint == "" {
		return fmt.Errorf("no screentime endpoint configured (set --endpoint or screentime.endpoint in the config file)")
	}

	day, err := parseDate(screentimeDate)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	summary, err := screentime.NewUploader(st.Endpoint).UploadDay(ctx, store, day)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s: %d apps, %s total\n",
		summary.Date, len(summary.Apps), summary.FormattedTotal)
	return nil
}

func renderBar(share float64, width int) string {
	filled := int(share * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
