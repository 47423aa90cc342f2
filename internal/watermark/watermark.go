// Package watermark is the orchestrator: it owns one immutable
// configuration, precomputes the payload and tag once, and exposes the
// apply / detect / strip operations the outer layers consume.
package watermark

import (
	"fmt"

	"github.com/ppiankov/veilmark/internal/inject"
	"github.com/ppiankov/veilmark/internal/payload"
	"github.com/ppiankov/veilmark/internal/tag"
)

// PayloadInfo is one decoded tag occurrence in a detection report.
type PayloadInfo struct {
	SchemaVersion  int    `json:"schema_version"`
	IssuerID       int    `json:"issuer_id"`
	ModelID        int    `json:"model_id"`
	ModelVersionID int    `json:"model_version_id"`
	KeyID          int    `json:"key_id"`
	CRCValid       bool   `json:"crc_valid"`
	RawPayloadHex  string `json:"raw_payload_hex"`
}

// DetectResult aggregates one scan of a text. Watermarked is true iff at
// least one occurrence carried a valid checksum: corrupted tags are
// reported but never count as a positive detection.
type DetectResult struct {
	Watermarked  bool          `json:"watermarked"`
	TagCount     int           `json:"tag_count"`
	ValidCount   int           `json:"valid_count"`
	InvalidCount int           `json:"invalid_count"`
	Payloads     []PayloadInfo `json:"payloads"`
}

// Watermarker applies and detects invisible provenance markers. One
// instance is one fixed configuration: the 64-bit payload and the tag
// string are computed at construction and never recomputed. All fields are
// immutable after New, so a Watermarker is safe for concurrent use.
type Watermarker struct {
	cfg       Config
	payload64 uint64
	tagStr    string
}

// New builds a Watermarker from cfg. The tag alphabet is validated here:
// an ambiguous alphabet is a construction error, not a data error.
// Out-of-range metadata fields are masked to their bit widths at pack time.
func New(cfg Config) (*Watermarker, error) {
	if err := cfg.Tag.Validate(); err != nil {
		return nil, fmt.Errorf("invalid watermark config: %w", err)
	}

	p := payload.Pack(payload.PackedMetadata{
		SchemaVersion:  cfg.SchemaVersion,
		IssuerID:       cfg.IssuerID,
		ModelID:        cfg.ModelID,
		ModelVersionID: cfg.ModelVersionID,
		KeyID:          cfg.KeyID,
	})

	return &Watermarker{
		cfg:       cfg,
		payload64: p,
		tagStr:    tag.Encode(p, cfg.Tag),
	}, nil
}

// Apply embeds the watermark into text and returns the result. Each call
// is a self-contained finalize pass over a fresh injector, so every
// returned text independently carries at least one tag. Callers that
// stream one logical text across many chunks should hold their own
// inject.Injector and finalize only the last chunk.
func (w *Watermarker) Apply(text string) string {
	in := inject.New(w.tagStr, w.cfg.Tag.RepeatIntervalTokens)
	return in.InjectDelta(text, true)
}

// NewInjector returns a fresh single-stream injector bound to the cached
// tag, for callers doing incremental tagging of streamed chunks.
func (w *Watermarker) NewInjector() *inject.Injector {
	return inject.New(w.tagStr, w.cfg.Tag.RepeatIntervalTokens)
}

// Detect scans text for tags and partitions them by checksum validity.
func (w *Watermarker) Detect(text string) DetectResult {
	raw := tag.DecodeAll(text, w.cfg.Tag)

	result := DetectResult{TagCount: len(raw)}
	for _, p := range raw {
		meta, valid := payload.Unpack(p)
		result.Payloads = append(result.Payloads, PayloadInfo{
			SchemaVersion:  meta.SchemaVersion,
			IssuerID:       meta.IssuerID,
			ModelID:        meta.ModelID,
			ModelVersionID: meta.ModelVersionID,
			KeyID:          meta.KeyID,
			CRCValid:       valid,
			RawPayloadHex:  fmt.Sprintf("0x%016x", p),
		})
		if valid {
			result.ValidCount++
		} else {
			result.InvalidCount++
		}
	}
	result.Watermarked = result.ValidCount > 0
	return result
}

// Strip removes every tag matching cfg's alphabet from text, corrupted
// payloads included. A free function: stripping needs only the alphabet,
// never a configured payload.
func Strip(text string, cfg tag.Config) string {
	return tag.Strip(text, cfg)
}

// Strip removes every tag matching this Watermarker's alphabet.
func (w *Watermarker) Strip(text string) string {
	return tag.Strip(text, w.cfg.Tag)
}

// Payload returns the cached 64-bit payload.
func (w *Watermarker) Payload() uint64 { return w.payload64 }

// TagString returns the cached 66-code-point tag.
func (w *Watermarker) TagString() string { return w.tagStr }

// TagConfig returns the alphabet and cadence this instance uses.
func (w *Watermarker) TagConfig() tag.Config { return w.cfg.Tag }
