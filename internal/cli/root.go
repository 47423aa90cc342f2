// Package cli implements the veilmark command-line interface.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "veilmark",
	Short: "Invisible watermarks for AI-generated text",
	Long:  "Embeds zero-width provenance markers into text, detects them, and strips them.\nThe watermark survives copy-paste and is invisible in every mainstream renderer.",
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to watermark config YAML (default: ~/.veilmark/watermark.yaml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
