package cli

import (
	"fmt"
	"net"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/healthrelay/healthrelay-cli/internal/source"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check environment and print connection info",
	Long:  `Validates the local environment, checks profiles and port availability, and prints usage examples.`,
	RunE:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	fmt.Println("HealthRelay Environment Check")
	fmt.Println()

	fmt.Printf("Go Version:        %s\n", runtime.Version())
	fmt.Printf("OS/Arch:           %s/%s\n\n", runtime.GOOS, runtime.GOARCH)

	// Check config file
	if _, err := os.Stat(defaultConfigPath); err == nil {
		if _, err := LoadAgentConfig(defaultConfigPath, true); err != nil {
			fmt.Printf("[!] Config file %s exists but does not parse: %v\n\n", defaultConfigPath, err)
		} else {
			fmt.Printf("[ok] Config file found: %s\n\n", defaultConfigPath)
		}
	} else {
		fmt.Printf("[--] No config file at %s (flags required)\n\n", defaultConfigPath)
	}

	// Check profiles directory
	profileDir := getProfileDir()
	if _, err := os.Stat(profileDir); err == nil {
		fmt.Printf("[ok] Profiles directory found: %s\n", profileDir)

		registry := source.NewRegistry()
		if err := registry.LoadFromDir(profileDir); err == nil {
			profiles := registry.List()
			fmt.Printf("     Found %d profiles: %v\n\n", len(profiles), profiles)
		} else {
			fmt.Printf("[!]  Profiles failed to load: %v\n\n", err)
		}
	} else {
		fmt.Printf("[!] Profiles directory not found: %s\n\n", profileDir)
	}

	// Check default receiver port availability
	defaultPort := 8787
	if isPortAvailable(defaultPort) {
		fmt.Printf("[ok] Default receiver port %d is available\n\n", defaultPort)
	} else {
		fmt.Printf("[!] Default receiver port %d is in use\n", defaultPort)
		fmt.Printf("    Use --port to specify a different port\n\n")
	}

	fmt.Println("Quick start:")
	fmt.Println()
	fmt.Println("  Terminal 1 (receiver):")
	fmt.Println("    healthrelay receiver --token devtoken")
	fmt.Println()
	fmt.Println("  Terminal 2 (one-shot send):")
	fmt.Println("    healthrelay send --family hourly \\")
	fmt.Println("      --endpoint http://127.0.0.1:8787/v1/health/import --token devtoken")
	fmt.Println()
	fmt.Println("  Or run the full agent:")
	fmt.Println("    healthrelay agent \\")
	fmt.Println("      --endpoint http://127.0.0.1:8787/v1/health/import --token devtoken")
	fmt.Println()
	fmt.Println("  Watch the live feed:")
	fmt.Println("    websocat ws://127.0.0.1:8787/live")
	fmt.Println()

	fmt.Println("Environment check complete")
	return nil
}

func isPortAvailable(port int) bool {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return false
	}
	listener.Close()
	return true
}
