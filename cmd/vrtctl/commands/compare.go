package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"go.vrtcore.dev/vrt"
	"go.vrtcore.dev/vrt/config"
)

func newCompareCommand() *cobra.Command {
	var configPath, diffPrefix string

	cmd := &cobra.Command{
		Use:   "compare <baseline.png> <test.png>",
		Short: "Compare two screenshots directly, outside any project's scenario list",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			result, err := vrt.ComparePair(context.Background(), cfg, args[0], args[1], diffPrefix, aiProvider(cfg))
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", ".vrt/config.json5", "path to the VRT config file, for engine/threshold/AI settings")
	cmd.Flags().StringVar(&diffPrefix, "diff-out", "diff", "path prefix (no extension) engines write diff images under")
	return cmd
}
