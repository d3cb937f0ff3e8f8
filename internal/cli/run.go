/*
PURPOSE:
  Defines the 'run' subcommand.
  Executes the full evaluation pipeline.

REQUIREMENTS:
  User-specified:
  - Run the pipeline end to end.
  - Specific flags for overrides.

  Implementation-discovered:
  - Need to load config first, then apply flag overrides.
  - Ctrl-C must abort the whole run with a non-zero exit.

ARCHITECTURE INTEGRATION:
  - Calls: internal/engine.Run()
  - Uses: internal/config

ERROR HANDLING:
  - Returns error if config is invalid or the run is cancelled.

IMPLEMENTATION RULES:
  - Setup flags in init().
  - Logic: Load Config -> Override -> Validate -> engine.Run.

USAGE:
  eval-runner run --api-host https://eval.example.net

RELATED FILES:
  - internal/cli/root.go

MAINTENANCE:
  - Update when adding new CLI overrides.
*/

package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/avallverdu/eval-runner/internal/config"
	"github.com/avallverdu/eval-runner/internal/engine"
)

var (
	apiHostOverride string
	apiPortOverride string
	foldersOverride []string
	dataDirOverride string
	batchSizeFlag   int
	noCombine       bool
	skipHealthCheck bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full evaluation pipeline",
	Long: `Processes each configured folder in order:
1. Loads the folder's prompt table and scans its normalized text files.
2. Submits the files in fixed-size batches to the evaluation service.
3. Streams each batch's results and matches them back to local files.
4. Persists a per-folder CSV report, then merges the latest reports of
   all folders into one combined CSV.

Folders, batches and individual stream frames fail independently; the
run only stops on Ctrl-C.`,
	Example: `  # Run with defaults against a deployed instance
  eval-runner run --api-host https://eval.example.net

  # Local service, bigger batches, selected folders
  eval-runner run --api-host localhost --api-port 8000 --batch-size 20 --folders POS1,POS2

  # Skip the pre-flight probe and the combined report
  eval-runner run --api-host localhost --skip-health-check --no-combine`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. Load Config
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		// 2. Overrides
		if apiHostOverride != "" {
			cfg.APIHost = apiHostOverride
		}
		if apiPortOverride != "" {
			cfg.APIPort = apiPortOverride
		}
		if len(foldersOverride) > 0 {
			cfg.Folders = foldersOverride
		}
		if dataDirOverride != "" {
			cfg.DataDir = dataDirOverride
		}
		if batchSizeFlag > 0 {
			cfg.BatchSize = batchSizeFlag
		}
		if noCombine {
			cfg.Combine = false
		}
		if skipHealthCheck {
			cfg.HealthCheck = false
		}

		if err := cfg.Validate(); err != nil {
			return err
		}

		// 3. Execution; Ctrl-C cancels the context and aborts the run.
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		_, err = engine.Run(ctx, cfg)
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&apiHostOverride, "api-host", "", "Service host URL (scheme optional)")
	runCmd.Flags().StringVar(&apiPortOverride, "api-port", "", "Service port when --api-host has no scheme (default 8000)")
	runCmd.Flags().StringSliceVar(&foldersOverride, "folders", nil, "Comma-separated list of folders to process")
	runCmd.Flags().StringVarP(&dataDirOverride, "data-dir", "d", "", "Root data directory (default \"data\")")
	runCmd.Flags().IntVar(&batchSizeFlag, "batch-size", 0, "Files per submission batch (default 10)")
	runCmd.Flags().BoolVar(&noCombine, "no-combine", false, "Do not merge per-folder reports into a combined CSV")
	runCmd.Flags().BoolVar(&skipHealthCheck, "skip-health-check", false, "Skip the pre-flight service probe")
}
