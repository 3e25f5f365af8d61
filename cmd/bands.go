package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/irc-geo/hand-cli/internal/hand"
)

var bandsFile string

var bandsCmd = &cobra.Command{
	Use:   "bands",
	Short: "Print the effective risk band table",
	Long: `Prints the risk band table a run would use: the built-in table, the one
from config.yaml, or the one given with --bands.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		bands := cfg.Bands
		if bandsFile != "" {
			loaded, err := hand.LoadFile(bandsFile)
			if err != nil {
				return err
			}
			bands = loaded
		}
		if err := bands.Validate(); err != nil {
			return err
		}
		fmt.Fprint(os.Stdout, bands.String())
		return nil
	},
}

func init() {
	bandsCmd.Flags().StringVar(&bandsFile, "bands", "", "YAML file with a custom risk band table")
	rootCmd.AddCommand(bandsCmd)
}
