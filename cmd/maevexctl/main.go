// Maevexctl is a management utility for Maevex AV encoder/decoder
// appliances.
//
// It registers an appliance with a background monitor, waits for
// discovery, authenticates, and performs a single operation against the
// appliance's local storage: download a completed recording, or delete
// all recordings and rename the device.
//
// Usage:
//
//	maevexctl urn=SV2Dec uri=192.168.165.102 username=matrox password=matrox12345 op=download
//
// Running without arguments prints usage text.
// See 'maevexctl --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mxtools/maevexctl/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "maevexctl [key=value ...]",
	Short: "Maevex Appliance Management Utility",
	Long: `A utility for managing Maevex AV encoder/decoder appliances.

Takes positional key=value tokens in any order:

  urn=<Maevex1|SV2|SV2Dec>   device family
  uri=<host>                 host or bracketed IPv6 literal
  username=<name>            device account
  password=<secret>          device password
  op=<download|delete>       operation (default: download)
  file=<name>                recording to download (default: first completed)
  out=<dir>                  download directory (default: from preferences)

If no tokens are given, usage text is printed.`,
	Version: version.Version,
	Args:    cobra.ArbitraryArgs,
	RunE:    runRequest,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SilenceUsage = true

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("maevexctl %s (commit: %s)\n", version.Version, version.Commit)
	},
}
