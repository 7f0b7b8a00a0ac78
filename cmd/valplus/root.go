package main

import (
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "valplus",
	Short: "Match detection and encounter history for VALORANT",
	Long: `valplus watches the local VALORANT client for the match you are in,
resolves every player's Riot ID and records each encounter, so you can see
who you have played with or against before.

  valplus serve                  # poll the client and serve the local feed
  valplus import vry <file>      # seed history from a VRY stats export`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			os.Setenv("LOG_LEVEL", "debug")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCmd)
	importCmd.AddCommand(importVRYCmd)
}
