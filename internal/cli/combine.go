package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/avallverdu/eval-runner/internal/config"
	"github.com/avallverdu/eval-runner/internal/engine"
	"github.com/avallverdu/eval-runner/internal/output"
)

// combineCmd re-runs the cross-folder merge over whatever reports are
// already on disk, without touching the service. Useful after a run
// that was interrupted between the last folder and the combination.
var combineCmd = &cobra.Command{
	Use:   "combine",
	Short: "Merge the latest per-folder reports into one combined CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if len(foldersOverride) > 0 {
			cfg.Folders = foldersOverride
		}
		if dataDirOverride != "" {
			cfg.DataDir = dataDirOverride
		}

		timestamp := time.Now().Format(engine.RunTimestampFormat)
		return output.Combine(cfg.Folders, cfg.DataDir, timestamp)
	},
}

func init() {
	rootCmd.AddCommand(combineCmd)

	combineCmd.Flags().StringSliceVar(&foldersOverride, "folders", nil, "Comma-separated list of folders to combine")
	combineCmd.Flags().StringVarP(&dataDirOverride, "data-dir", "d", "", "Root data directory (default \"data\")")
}
