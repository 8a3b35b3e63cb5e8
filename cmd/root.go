// Package cmd implements CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "dronegrid",
	Short: "A simulated packet-switched drone overlay network",
	Long: `dronegrid runs a simulated overlay of drone nodes that forward
source-routed traffic, discover topology by flooding, and repair losses
with hop-local ACK/NACK retransmission.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "dronegrid.yaml",
		"Path to the configuration file")
}

func exitWithError(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	os.Exit(1)
}
