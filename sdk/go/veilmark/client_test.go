package veilmark

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ppiankov/veilmark/internal/tag"
)

func newTestClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithConfigFile("/nonexistent/watermark.yaml")}, opts...)
	c, err := New(opts...)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c
}

func TestApplyDetectRoundTrip(t *testing.T) {
	c := newTestClient(t, WithIssuerID(42), WithModelID(7), WithKeyID(3))

	marked := c.Apply("The model wrote this sentence.")
	result := c.Detect(marked)
	if !result.Watermarked {
		t.Fatal("expected watermark")
	}
	p := result.Payloads[0]
	if p.IssuerID != 42 || p.ModelID != 7 || p.KeyID != 3 {
		t.Errorf("payload fields wrong: %+v", p)
	}
	if !p.CRCValid {
		t.Error("expected valid checksum")
	}
}

func TestApplyEmptyInput(t *testing.T) {
	c := newTestClient(t)
	if got := c.Apply(""); got != "" {
		t.Errorf("empty input should stay empty, got %q", got)
	}
}

func TestStripRestoresOriginal(t *testing.T) {
	c := newTestClient(t)

	const original = "Visible text, nothing more."
	if got := c.Strip(c.Apply(original)); got != original {
		t.Errorf("strip did not restore original: %q", got)
	}
}

func TestDetectCleanText(t *testing.T) {
	c := newTestClient(t)
	if c.Detect("plain text").Watermarked {
		t.Error("false positive on clean text")
	}
}

func TestConfigFileWithOptionOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watermark.yaml")
	if err := os.WriteFile(path, []byte("issuer_id: 10\nmodel_id: 20\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := New(WithConfigFile(path), WithModelID(99))
	if err != nil {
		t.Fatal(err)
	}

	result := c.Detect(c.Apply("some text"))
	p := result.Payloads[0]
	if p.IssuerID != 10 {
		t.Errorf("file issuer lost: %d", p.IssuerID)
	}
	if p.ModelID != 99 {
		t.Errorf("option override not applied: %d", p.ModelID)
	}
}

func TestCustomTagConfig(t *testing.T) {
	custom := tag.Config{
		ZeroChar:             '0',
		OneChar:              '1',
		StartChar:            '<',
		EndChar:              '>',
		RepeatIntervalTokens: 160,
	}
	c := newTestClient(t, WithTagConfig(custom))

	marked := c.Apply("visible alphabet for debugging")
	if marked == "visible alphabet for debugging" {
		t.Fatal("no tag inserted")
	}
	if !c.Detect(marked).Watermarked {
		t.Error("custom alphabet tag not detected")
	}

	// The default-alphabet client must not see custom-alphabet tags.
	def := newTestClient(t)
	if def.Detect(marked).Watermarked {
		t.Error("default client detected custom alphabet")
	}
}

func TestAmbiguousTagConfigRejected(t *testing.T) {
	bad := tag.Config{
		ZeroChar:             'x',
		OneChar:              'x',
		StartChar:            '<',
		EndChar:              '>',
		RepeatIntervalTokens: 160,
	}
	if _, err := New(WithTagConfig(bad)); err == nil {
		t.Fatal("expected error for ambiguous alphabet")
	}
}

func TestRepeatIntervalOption(t *testing.T) {
	c := newTestClient(t, WithRepeatInterval(5), WithTagConfig(tag.Config{
		ZeroChar:             '0',
		OneChar:              '1',
		StartChar:            '<',
		EndChar:              '>',
		RepeatIntervalTokens: 160,
	}))

	// WithRepeatInterval is applied after WithTagConfig.
	marked := c.Apply("one two three four five six seven eight nine ten")
	if got := c.Detect(marked).TagCount; got != 2 {
		t.Errorf("expected 2 tags at interval 5 over 10 tokens, got %d", got)
	}
}
