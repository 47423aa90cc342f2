package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/veilmark/internal/watermark"
)

var applyOverrides = idOverrides{}

func init() {
	rootCmd.AddCommand(applyCmd)
	applyCmd.Flags().IntVar(&applyOverrides.issuerID, "issuer-id", -1, "Override issuer ID (0-4095)")
	applyCmd.Flags().IntVar(&applyOverrides.modelID, "model-id", -1, "Override model ID (0-65535)")
	applyCmd.Flags().IntVar(&applyOverrides.modelVersionID, "model-version-id", -1, "Override model version ID (0-65535)")
	applyCmd.Flags().IntVar(&applyOverrides.keyID, "key-id", -1, "Override key ID (0-255)")
	applyCmd.Flags().IntVar(&applyOverrides.interval, "interval", 0, "Override tag repeat interval in approximate tokens")
}

var applyCmd = &cobra.Command{
	Use:   "apply [text]",
	Short: "Embed an invisible watermark into text",
	Long:  "Embeds zero-width provenance tags into the given text and prints the result.\nReads stdin when text is \"-\" or omitted. The output renders identically to the input.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runApply,
}

func runApply(cmd *cobra.Command, args []string) error {
	text, err := readText(args)
	if err != nil {
		return err
	}
	if text == "" {
		return fmt.Errorf("nothing to watermark: input is empty")
	}

	cfg, err := loadWatermarkConfig(configPath, applyOverrides)
	if err != nil {
		return err
	}
	wm, err := watermark.New(cfg)
	if err != nil {
		return err
	}

	fmt.Print(wm.Apply(text))
	return nil
}
