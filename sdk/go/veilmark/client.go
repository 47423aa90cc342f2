package veilmark

import (
	"fmt"

	"github.com/ppiankov/veilmark/internal/watermark"
)

// DetectResult is the outcome of one detection scan.
type DetectResult = watermark.DetectResult

// PayloadInfo is one decoded tag payload.
type PayloadInfo = watermark.PayloadInfo

// Client applies and detects watermarks with one fixed configuration.
// Safe for concurrent use.
type Client struct {
	wm *watermark.Watermarker
}

// New creates a Client with the given options. Options overlay the config
// file (or the built-in defaults when no file is given) in order.
func New(opts ...Option) (*Client, error) {
	cc := clientConfig{
		issuerID:       -1,
		modelID:        -1,
		modelVersionID: -1,
		keyID:          -1,
	}
	for _, o := range opts {
		o(&cc)
	}

	cfg, err := watermark.LoadConfig(cc.configFile)
	if err != nil {
		return nil, fmt.Errorf("veilmark: failed to load config: %w", err)
	}

	if cc.issuerID >= 0 {
		cfg.IssuerID = cc.issuerID
	}
	if cc.modelID >= 0 {
		cfg.ModelID = cc.modelID
	}
	if cc.modelVersionID >= 0 {
		cfg.ModelVersionID = cc.modelVersionID
	}
	if cc.keyID >= 0 {
		cfg.KeyID = cc.keyID
	}
	if cc.tagCfg != nil {
		cfg.Tag = *cc.tagCfg
	}
	if cc.interval > 0 {
		cfg.Tag.RepeatIntervalTokens = cc.interval
	}

	wm, err := watermark.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("veilmark: %w", err)
	}
	return &Client{wm: wm}, nil
}

// Apply embeds the watermark into text. Empty input is returned unchanged.
func (c *Client) Apply(text string) string {
	if text == "" {
		return ""
	}
	return c.wm.Apply(text)
}

// Detect scans text for watermarks and decodes every payload found.
func (c *Client) Detect(text string) DetectResult {
	return c.wm.Detect(text)
}

// Strip removes all well-formed tags from text, regardless of whose
// payload they carry.
func (c *Client) Strip(text string) string {
	return c.wm.Strip(text)
}
