/*
PURPOSE:
  Defines the 'health' subcommand.
  Helps debug connectivity before committing to a full run.

REQUIREMENTS:
  User-specified:
  - One-shot readiness probe against the service.

ARCHITECTURE INTEGRATION:
  - Calls: internal/engine.Client.Health()

ERROR HANDLING:
  - Prints error and returns non-zero if the service is unreachable.

IMPLEMENTATION RULES:
  - Simple output to stdout.

USAGE:
  eval-runner health --api-host localhost

RELATED FILES:
  - internal/engine/client.go
*/

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/avallverdu/eval-runner/internal/config"
	"github.com/avallverdu/eval-runner/internal/engine"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe the evaluation service readiness endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if apiHostOverride != "" {
			cfg.APIHost = apiHostOverride
		}
		if apiPortOverride != "" {
			cfg.APIPort = apiPortOverride
		}
		if cfg.APIHost == "" {
			return fmt.Errorf("api host is required (--api-host)")
		}

		c := engine.New(cfg)
		h, err := c.Health(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Status:        %s\n", h.Status)
		fmt.Printf("Model loaded:  %v\n", h.ModelLoaded)
		fmt.Printf("GPU available: %v\n", h.GPUAvailable)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)

	healthCmd.Flags().StringVar(&apiHostOverride, "api-host", "", "Service host URL (scheme optional)")
	healthCmd.Flags().StringVar(&apiPortOverride, "api-port", "", "Service port when --api-host has no scheme")
}
