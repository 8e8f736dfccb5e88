package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mxtools/maevexctl/internal/config"
	"github.com/mxtools/maevexctl/internal/discovery"
	"github.com/mxtools/maevexctl/internal/logging"
	"github.com/mxtools/maevexctl/internal/maevex"
	"github.com/mxtools/maevexctl/internal/monitor"
	"github.com/mxtools/maevexctl/internal/orchestrate"
	"github.com/mxtools/maevexctl/internal/request"
	"github.com/mxtools/maevexctl/internal/ui"
	"github.com/mxtools/maevexctl/internal/version"
)

var (
	scanTimeout int
	scanWait    string
)

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 0, "Scan timeout in seconds (0 = preference value)")
	scanCmd.Flags().StringVar(&scanWait, "wait", "", "Wait for a specific appliance by serial number")
}

// runRequest parses the key=value tokens, validates the request, and
// runs the operation sequence against the appliance.
func runRequest(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		printUsage()
		return nil
	}

	if err := logging.InitializeFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}
	defer logging.Sync()

	req, diagnostics := request.Parse(args)
	for _, diag := range diagnostics {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", diag)
	}

	registry, err := config.LoadRegistry()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: using default preferences: %v\n", err)
		registry = config.NewRegistry()
	}
	prefs := registry.Preferences

	if req.Username == "" && prefs.DefaultAuth != nil {
		req.Username = prefs.DefaultAuth.Username
	}
	if req.OutputDir == "" {
		req.OutputDir = prefs.OutputDir
	}

	// Validation rejects the request before any network activity
	if err := req.Validate(); err != nil {
		return err
	}

	opTitle := "Recording Download"
	if req.Op == request.OpDelete {
		opTitle = "Storage Cleanup"
	}

	stepNames := orchestrate.StepNames(req.Op)
	runner := ui.NewRunner(ui.RunnerConfig{
		Title:   opTitle,
		Command: "maevexctl " + strings.Join(redactArgs(args), " "),
		Params: map[string]string{
			"Device": req.URI,
			"Family": string(req.URN),
			"User":   req.Username,
		},
		TotalSteps: len(stepNames),
		StepNames:  stepNames,
	})

	var transferBar *ui.TransferBar
	onProgress := func(written, total int64) {
		if transferBar == nil {
			transferBar = ui.NewTransferBar(total)
		}
		fmt.Print(transferBar.View(written) + "\r")
	}

	var outcome *orchestrate.Outcome
	_, err = runner.RunWithResult(cmd.Context(), func(onStep ui.StepCallback) (map[string]string, error) {
		var runErr error
		outcome, runErr = orchestrate.Run(cmd.Context(), req, orchestrate.Options{
			Monitor:      monitor.New(nil),
			AwaitTimeout: time.Duration(prefs.AwaitTimeout) * time.Second,
			RateLimit:    prefs.RateLimit,
			OnStep:       onStep,
			OnProgress:   onProgress,
		})
		if runErr != nil {
			return nil, runErr
		}
		return outcome.Details(), nil
	})
	if err != nil {
		return err
	}

	for _, warning := range outcome.Warnings {
		ui.PrintWarning("Completed with a warning", map[string]string{"Detail": warning})
	}

	registry.UpdateDeviceLastSeen(req.URI, string(req.URN), outcome.Snapshot.Context.Info.Serial)
	if err := registry.Save(); err != nil {
		logging.Warn("Failed to save device registry")
	}

	return nil
}

// printUsage writes the zero-argument usage text, including the version
// of the embedded device client.
func printUsage() {
	fmt.Printf(`Maevex Appliance Management Utility (%s)

Usage:
  maevexctl urn=<URN> uri=<host> username=<name> password=<secret> [op=<op>] [file=<name>] [out=<dir>]

Keys (any order, case-insensitive):
  urn        device family: Maevex1, SV2, or SV2Dec
  uri        host or bracketed IPv6 literal, e.g. 192.168.165.102 or [fe80::1]
  username   device account
  password   device password
  op         download (default) or delete
  file       recording name to download; first completed recording if omitted
  out        download directory

Examples:
  maevexctl urn=SV2Dec uri=192.168.165.102 username=matrox password=matrox12345
  maevexctl urn=SV2Dec uri=192.168.165.102 username=matrox password=matrox12345 op=delete

See 'maevexctl --help' for subcommands.
`, version.Client())
}

// redactArgs hides the password value in the echoed command line
func redactArgs(args []string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		key, _, found := strings.Cut(arg, "=")
		if found && strings.EqualFold(strings.TrimSpace(key), "password") {
			out[i] = key + "=********"
			continue
		}
		out[i] = arg
	}
	return out
}

// scanCmd discovers appliances on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for Maevex appliances on the network",
	Long: `Scan for Maevex appliances using mDNS/DNS-SD discovery.

This command listens for mDNS broadcasts from Maevex appliances and
displays all discovered appliances with their addresses, serial numbers,
and device families.`,
	Example: `  # Scan with the preference timeout (default 10s)
  maevexctl scan

  # Longer scan for networks with many appliances
  maevexctl scan --timeout 30

  # Block until a specific appliance comes up, then verify it answers
  maevexctl scan --wait MX012345 --timeout 60`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	registry, err := config.LoadRegistry()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: using default preferences: %v\n", err)
		registry = config.NewRegistry()
	}

	timeout := scanTimeout
	if timeout <= 0 {
		timeout = registry.Preferences.DiscoverTimeout
	}

	if scanWait != "" {
		return runScanWait(cmd, registry, scanWait, time.Duration(timeout)*time.Second)
	}

	ui.PrintPleaseWait("Scanning for Maevex appliances", fmt.Sprintf("up to %d seconds", timeout))

	devices, err := discovery.ScanForDevices(time.Duration(timeout) * time.Second)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(devices) == 0 {
		fmt.Println("No appliances found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Ensure the appliance is powered on and connected to this network")
		fmt.Println("  - Check that mDNS traffic is not blocked between subnets")
		fmt.Println("  - Try increasing --timeout for slower networks")
		fmt.Println("  - Pass uri=<host> directly if discovery is unavailable")
		return nil
	}

	fmt.Printf("Found %d appliance(s):\n\n", len(devices))

	for i, device := range devices {
		fmt.Printf("%d. %s\n", i+1, device.Hostname)
		fmt.Printf("   Serial:  %s\n", device.Serial)
		fmt.Printf("   Address: %s:%d\n", device.IP, device.Port)
		if device.Family != "" {
			fmt.Printf("   Family:  %s\n", device.Family)
		}
		fmt.Println()

		registry.UpdateDeviceLastSeen(device.Host(), device.Family, device.Serial)
	}

	if err := registry.Save(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to save device registry: %v\n", err)
	}

	fmt.Println("Use 'maevexctl urn=<URN> uri=<host> username=<name> password=<secret>' to run an operation")

	return nil
}

// runScanWait blocks until an appliance with the given serial announces
// itself, then confirms its management API answers before reporting it.
func runScanWait(cmd *cobra.Command, registry *config.Registry, serial string, timeout time.Duration) error {
	ui.PrintPleaseWait("Waiting for appliance "+serial, fmt.Sprintf("up to %s", timeout))

	scanner := discovery.NewScanner()
	scanner.Timeout = timeout

	device, err := scanner.WaitForDevice(cmd.Context(), serial)
	if err != nil {
		ui.PrintFailure("Appliance not found", err, []string{
			"Ensure the appliance is powered on and connected to this network",
			"Check that mDNS traffic is not blocked between subnets",
			"Try increasing --timeout for slower networks",
		})
		return err
	}

	client := maevex.NewClient(device.Host())
	if err := client.Ping(cmd.Context()); err != nil {
		ui.PrintFailure("Appliance discovered but not answering", err, []string{
			"The appliance may still be booting; retry in a few seconds",
			"Check that the management port is reachable from this host",
		})
		return err
	}

	details := map[string]string{
		"Serial":  device.Serial,
		"Address": device.Host(),
	}
	if device.Family != "" {
		details["Family"] = device.Family
	}
	ui.PrintSuccess("Appliance online", details)

	registry.UpdateDeviceLastSeen(device.Host(), device.Family, device.Serial)
	if err := registry.Save(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to save device registry: %v\n", err)
	}

	return nil
}
