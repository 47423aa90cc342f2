package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/veilmark/internal/watermark"
)

func init() {
	rootCmd.AddCommand(stripCmd)
}

var stripCmd = &cobra.Command{
	Use:   "strip [text]",
	Short: "Remove invisible watermarks from text",
	Long:  "Removes every zero-width provenance tag from the given text and prints the\nresult. Reads stdin when text is \"-\" or omitted. Visible characters and\nmalformed tag fragments are left untouched.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStrip,
}

func runStrip(cmd *cobra.Command, args []string) error {
	text, err := readText(args)
	if err != nil {
		return err
	}

	cfg, err := loadWatermarkConfig(configPath, idOverrides{issuerID: -1, modelID: -1, modelVersionID: -1, keyID: -1})
	if err != nil {
		return err
	}

	fmt.Print(watermark.Strip(text, cfg.Tag))
	return nil
}
