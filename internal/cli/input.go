package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/ppiankov/veilmark/internal/watermark"
)

// readText returns the text operand: the single positional argument, or
// stdin when the argument is "-" or absent.
func readText(args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	data, err := io.ReadAll(io.LimitReader(os.Stdin, 64<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

// idOverrides holds the flag values that overlay the config file.
type idOverrides struct {
	issuerID       int
	modelID        int
	modelVersionID int
	keyID          int
	interval       int
}

// loadWatermarkConfig loads the config file and applies flag overrides.
// A flag left at its -1 sentinel keeps the file's value.
func loadWatermarkConfig(path string, ov idOverrides) (watermark.Config, error) {
	cfg, err := watermark.LoadConfig(path)
	if err != nil {
		return watermark.Config{}, err
	}
	if ov.issuerID >= 0 {
		cfg.IssuerID = ov.issuerID
	}
	if ov.modelID >= 0 {
		cfg.ModelID = ov.modelID
	}
	if ov.modelVersionID >= 0 {
		cfg.ModelVersionID = ov.modelVersionID
	}
	if ov.keyID >= 0 {
		cfg.KeyID = ov.keyID
	}
	if ov.interval > 0 {
		cfg.Tag.RepeatIntervalTokens = ov.interval
	}
	return cfg, nil
}
