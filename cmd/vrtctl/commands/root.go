// Package commands wires vrtctl's cobra subcommands onto the vrt façade.
// Deliberately thin: every command parses its own flags, loads a VRTConfig,
// and calls straight into go.vrtcore.dev/vrt — no business logic lives here.
package commands

import "github.com/spf13/cobra"

// Version is vrtctl's reported CLI version.
var Version = "v0.1.0"

// NewRoot builds the vrtctl root command and its subcommands.
func NewRoot() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vrtctl",
		Short: "vrtctl drives visual-regression capture, comparison, and cross-browser diffing",
		Long: `vrtctl drives visual-regression capture, comparison, and cross-browser
diffing for one VRT project against a JSON5 config file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return nil
		},
		Version: Version,
	}

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newCompareCommand())
	rootCmd.AddCommand(newCrossCompareCommand())
	rootCmd.AddCommand(newAcceptCommand())
	rootCmd.AddCommand(newInitCommand())
	return rootCmd
}
