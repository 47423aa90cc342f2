package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/veilmark/internal/watermark"
)

func init() {
	rootCmd.AddCommand(detectCmd)
}

var detectCmd = &cobra.Command{
	Use:   "detect [text]",
	Short: "Detect invisible watermarks in text",
	Long:  "Scans the given text for zero-width provenance tags and prints the decoded\npayloads as JSON. Reads stdin when text is \"-\" or omitted.\nExits 1 when no valid watermark is present.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDetect,
}

func runDetect(cmd *cobra.Command, args []string) error {
	text, err := readText(args)
	if err != nil {
		return err
	}

	cfg, err := loadWatermarkConfig(configPath, idOverrides{issuerID: -1, modelID: -1, modelVersionID: -1, keyID: -1})
	if err != nil {
		return err
	}
	wm, err := watermark.New(cfg)
	if err != nil {
		return err
	}

	result := wm.Detect(text)
	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))

	if !result.Watermarked {
		os.Exit(1)
	}
	return nil
}
