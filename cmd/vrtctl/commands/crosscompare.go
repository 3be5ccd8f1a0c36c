package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"go.vrtcore.dev/vrt"
	"go.vrtcore.dev/vrt/config"
)

func newCrossCompareCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cross-compare",
		Short: "Diff every configured cross_compare pair across all scenarios and viewports",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			reports, err := vrt.RunCrossCompare(cfg)
			if err != nil {
				return err
			}
			if len(reports) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no cross_compare.pairs configured")
				return nil
			}
			for _, r := range reports {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d items\n", r.PairKey, len(r.Items))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", ".vrt/config.json5", "path to the VRT config file")
	return cmd
}
