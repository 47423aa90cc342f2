package watermark

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/veilmark/internal/tag"
)

// Config holds the metadata fields embedded in every tag plus the tag
// alphabet and cadence. Field values wider than their wire widths (schema 4
// bits, issuer 12, model 16, model version 16, key 8) are masked at pack
// time, not rejected; keep configured values in range if you want them back
// verbatim on detection.
type Config struct {
	SchemaVersion  int        `yaml:"schema_version"`
	IssuerID       int        `yaml:"issuer_id"`
	ModelID        int        `yaml:"model_id"`
	ModelVersionID int        `yaml:"model_version_id"`
	KeyID          int        `yaml:"key_id"`
	Tag            tag.Config `yaml:"tag"`
}

// DefaultConfig returns the built-in configuration: schema 1, issuer 1,
// key 1, default zero-width alphabet, one tag per 160 approximate tokens.
func DefaultConfig() Config {
	return Config{
		SchemaVersion: 1,
		IssuerID:      1,
		KeyID:         1,
		Tag:           tag.DefaultConfig(),
	}
}

// yamlConfig mirrors Config for file parsing: alphabet runes are spelled
// as one-character strings so a YAML file can use "\u200b"-style escapes.
type yamlConfig struct {
	SchemaVersion  *int `yaml:"schema_version"`
	IssuerID       *int `yaml:"issuer_id"`
	ModelID        *int `yaml:"model_id"`
	ModelVersionID *int `yaml:"model_version_id"`
	KeyID          *int `yaml:"key_id"`
	Tag            struct {
		ZeroChar             string `yaml:"zero_char"`
		OneChar              string `yaml:"one_char"`
		StartChar            string `yaml:"start_char"`
		EndChar              string `yaml:"end_char"`
		RepeatIntervalTokens *int   `yaml:"repeat_interval_tokens"`
	} `yaml:"tag"`
}

// LoadConfig loads watermark configuration from a YAML file. Empty path
// falls back to ~/.veilmark/watermark.yaml. Missing file returns defaults.
// Invalid YAML or an invalid tag alphabet returns an error. File values
// overlay the defaults field by field.
func LoadConfig(path string) (Config, error) {
	cfg, _, err := LoadConfigWithHash(path)
	return cfg, err
}

// LoadConfigWithHash is LoadConfig plus the SHA-256 of the raw file bytes,
// for change reporting. When no file exists the hash is of empty input.
func LoadConfigWithHash(path string) (Config, string, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			h := sha256.Sum256(nil)
			return DefaultConfig(), "sha256:" + hex.EncodeToString(h[:]), nil
		}
		path = filepath.Join(home, ".veilmark", "watermark.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			h := sha256.Sum256(nil)
			return DefaultConfig(), "sha256:" + hex.EncodeToString(h[:]), nil
		}
		return Config{}, "", fmt.Errorf("failed to read watermark config: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, "", fmt.Errorf("failed to parse watermark config: %w", err)
	}

	cfg := DefaultConfig()
	if yc.SchemaVersion != nil {
		cfg.SchemaVersion = *yc.SchemaVersion
	}
	if yc.IssuerID != nil {
		cfg.IssuerID = *yc.IssuerID
	}
	if yc.ModelID != nil {
		cfg.ModelID = *yc.ModelID
	}
	if yc.ModelVersionID != nil {
		cfg.ModelVersionID = *yc.ModelVersionID
	}
	if yc.KeyID != nil {
		cfg.KeyID = *yc.KeyID
	}
	if yc.Tag.RepeatIntervalTokens != nil {
		cfg.Tag.RepeatIntervalTokens = *yc.Tag.RepeatIntervalTokens
	}

	for _, f := range []struct {
		name  string
		value string
		dst   *rune
	}{
		{"zero_char", yc.Tag.ZeroChar, &cfg.Tag.ZeroChar},
		{"one_char", yc.Tag.OneChar, &cfg.Tag.OneChar},
		{"start_char", yc.Tag.StartChar, &cfg.Tag.StartChar},
		{"end_char", yc.Tag.EndChar, &cfg.Tag.EndChar},
	} {
		if f.value == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(f.value)
		if r == utf8.RuneError || size != len(f.value) {
			return Config{}, "", fmt.Errorf("watermark config: tag.%s must be a single code point, got %q", f.name, f.value)
		}
		*f.dst = r
	}

	if err := cfg.Tag.Validate(); err != nil {
		return Config{}, "", fmt.Errorf("watermark config: %w", err)
	}

	h := sha256.Sum256(data)
	return cfg, "sha256:" + hex.EncodeToString(h[:]), nil
}
