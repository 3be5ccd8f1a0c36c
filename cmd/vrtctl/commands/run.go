package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cheggaaa/pb"
	"github.com/spf13/cobra"

	"go.vrtcore.dev/vrt"
	"go.vrtcore.dev/vrt/capture"
	"go.vrtcore.dev/vrt/config"
	"go.vrtcore.dev/vrt/vision"
)

func newRunCommand() *cobra.Command {
	var (
		configPath   string
		projectDir   string
		workerBinary string
		engineName   string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Capture every configured scenario and compare it against its baseline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if projectDir == "" {
				projectDir = filepath.Dir(configPath)
			}

			worker := &capture.SubprocessWorker{
				BinaryPath:        workerBinary,
				EngineDisplayName: engineName,
				OutputDir:         cfg.OutputDir,
				DisableAnimations: cfg.DisableAnimations,
				Concurrency:       cfg.ConcurrencyOrDefault(),
			}

			bar := pb.StartNew(len(cfg.Scenarios) * len(cfg.Browsers) * len(cfg.Viewports))
			onProgress := func(ev capture.ProgressEvent) {
				if ev.Phase == capture.PhaseDone || ev.Phase == capture.PhaseFailed {
					bar.Increment()
				}
			}

			jobResult, runErr := vrt.RunTestJob(context.Background(), cfg, projectDir, worker, aiProvider(cfg), onProgress)
			bar.FinishPrint("capture and comparison complete")
			if runErr != nil {
				return runErr
			}

			flagged := 0
			for _, item := range jobResult.Results {
				if item.Result.IsDiff() || item.Result.IsError() {
					flagged++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d tasks compared, %d flagged for review\n", len(jobResult.Results), flagged)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", ".vrt/config.json5", "path to the VRT config file")
	cmd.Flags().StringVar(&projectDir, "project-dir", "", "project root for the acceptance ledger (defaults to the config file's directory)")
	cmd.Flags().StringVar(&workerBinary, "worker", "", "path to the external capture-worker executable")
	cmd.Flags().StringVar(&engineName, "engine-display-name", "", "display name passed through to the capture worker")
	_ = cmd.MarkFlagRequired("worker")

	return cmd
}

// aiProvider builds the configured vision backend, or nil when AI triage is
// disabled — comparator/vrt both treat a nil analyzer as "skip AI triage"
// rather than an error.
func aiProvider(cfg *config.VRTConfig) vision.Provider {
	if !cfg.AI.Enabled {
		return nil
	}
	apiKey := ""
	if cfg.AI.APIKeyEnv != "" {
		apiKey = os.Getenv(cfg.AI.APIKeyEnv)
	}
	return vision.NewHTTPProvider(cfg.AI.Endpoint, apiKey)
}
