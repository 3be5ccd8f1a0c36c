package commands

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"go.vrtcore.dev/vrt/config"
	"go.vrtcore.dev/vrt/types"
)

func newInitCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter VRT config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := &config.VRTConfig{
				BaselineDir: ".vrt/baselines",
				OutputDir:   ".vrt/output",
				Browsers:    []types.BrowserSpec{{Variant: types.BrowserChromium}},
				Viewports:   []types.Viewport{{Name: "desktop", Width: 1280, Height: 800}},
				Threshold:   0.1,
				Concurrency: 5,
				Scenarios:   []types.Scenario{{Name: "homepage", URL: "https://example.com"}},
			}

			data, err := config.MarshalIndent(cfg)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
				return err
			}
			return os.WriteFile(configPath, data, 0o644)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", ".vrt/config.json5", "path to write the starter config to")
	return cmd
}
