package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"aetheric.io/dronegrid/internal/config"
	"aetheric.io/dronegrid/pkg/wire"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a configuration file without starting the overlay.

Checks node declarations (unique ids, mutual links, drop rates in range)
and scenario steps.

Examples:
  dronegrid validate -c network.yaml
  dronegrid validate -c network.yaml --print`,
	Run: func(cmd *cobra.Command, args []string) {
		runValidateCommand()
	},
}

var validatePrint bool

func init() {
	validateCmd.Flags().BoolVar(&validatePrint, "print", false,
		"print the normalized configuration with defaults applied")
	rootCmd.AddCommand(validateCmd)
}

func runValidateCommand() {
	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "INVALID: %v\n", err)
		os.Exit(1)
	}

	drones, endpoints := 0, 0
	for _, n := range cfg.Network.Nodes {
		if n.NodeKind() == wire.KindDrone {
			drones++
		} else {
			endpoints++
		}
	}
	fmt.Printf("VALID: %d drone(s), %d endpoint(s), %d scenario step(s)\n",
		drones, endpoints, len(cfg.Scenario.Steps))

	if validatePrint {
		out, err := yaml.Marshal(map[string]*config.GlobalConfig{"dronegrid": cfg})
		if err != nil {
			exitWithError("failed to render configuration", err)
		}
		fmt.Println("---")
		fmt.Print(string(out))
	}
}
