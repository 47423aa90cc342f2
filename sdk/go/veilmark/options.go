package veilmark

import "github.com/ppiankov/veilmark/internal/tag"

// Option configures a Client at creation time.
type Option func(*clientConfig)

type clientConfig struct {
	configFile     string
	issuerID       int
	modelID        int
	modelVersionID int
	keyID          int
	interval       int
	tagCfg         *tag.Config
}

// WithConfigFile loads base configuration from a YAML file before other
// options are applied.
func WithConfigFile(path string) Option {
	return func(c *clientConfig) { c.configFile = path }
}

// WithIssuerID sets the issuer ID (0-4095).
func WithIssuerID(id int) Option {
	return func(c *clientConfig) { c.issuerID = id }
}

// WithModelID sets the model ID (0-65535).
func WithModelID(id int) Option {
	return func(c *clientConfig) { c.modelID = id }
}

// WithModelVersionID sets the model version ID (0-65535).
func WithModelVersionID(id int) Option {
	return func(c *clientConfig) { c.modelVersionID = id }
}

// WithKeyID sets the key ID (0-255).
func WithKeyID(id int) Option {
	return func(c *clientConfig) { c.keyID = id }
}

// WithRepeatInterval sets how often a tag is repeated, in approximate
// tokens.
func WithRepeatInterval(tokens int) Option {
	return func(c *clientConfig) { c.interval = tokens }
}

// WithTagConfig replaces the tag alphabet and cadence wholesale. The
// alphabet must hold four distinct code points.
func WithTagConfig(cfg tag.Config) Option {
	return func(c *clientConfig) { c.tagCfg = &cfg }
}
