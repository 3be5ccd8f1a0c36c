package commands

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"go.vrtcore.dev/vrt/config"
	"go.vrtcore.dev/vrt/sanitize"
	"go.vrtcore.dev/vrt/store"
	"go.vrtcore.dev/vrt/types"
)

func newAcceptCommand() *cobra.Command {
	var (
		configPath string
		projectDir string
		acceptedBy string
		reason     string
	)

	cmd := &cobra.Command{
		Use:   "accept <scenario> <browser> <viewport>",
		Short: "Accept the current diff for one task as the new baseline",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if projectDir == "" {
				projectDir = filepath.Dir(configPath)
			}

			task := types.ScreenshotTask{
				Scenario: types.Scenario{Name: args[0]},
				Browser:  types.BrowserSpec{Variant: types.BrowserVariant(args[1])},
				Viewport: types.Viewport{Name: args[2]},
			}
			filename := sanitize.Filename(task)
			baselinePath := filepath.Join(cfg.BaselineDir, filename)
			testPath := filepath.Join(cfg.OutputDir, filename)

			if err := store.Approve(baselinePath, testPath); err != nil {
				return err
			}

			ledgerPath := filepath.Join(projectDir, store.LedgerFilename)
			if err := os.MkdirAll(filepath.Dir(ledgerPath), 0o755); err != nil {
				return err
			}
			ledger, err := store.OpenLedger(ledgerPath)
			if err != nil {
				return err
			}
			return ledger.Accept(store.TaskKey(task), acceptedBy, reason)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", ".vrt/config.json5", "path to the VRT config file")
	cmd.Flags().StringVar(&projectDir, "project-dir", "", "project root for the acceptance ledger (defaults to the config file's directory)")
	cmd.Flags().StringVar(&acceptedBy, "by", "", "identity recorded against this acceptance")
	cmd.Flags().StringVar(&reason, "reason", "", "free-text reason recorded against this acceptance")
	return cmd
}
