// Package cmd contains the spotify-muse CLI commands.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "spotify-muse",
	Short: "AI music recommendations from your Spotify listening history",
	Long: `spotify-muse is a web application that analyzes your Spotify listening
history and asks an LLM for recommendations tuned to your taste, avoiding
tracks it already suggested recently.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
