// Package bedrock wraps an Amazon Bedrock runtime client so that model
// responses come back with the invisible watermark already embedded. The
// wrapper only rewrites assistant-visible text fields; everything else in
// the response body passes through byte for byte.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/ppiankov/veilmark/internal/watermark"
)

// InvokeAPI is the subset of the Bedrock runtime client the wrapper needs.
type InvokeAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Config holds wrapper configuration.
type Config struct {
	Region     string // empty uses the default AWS resolution chain
	ConfigPath string // watermark config file, empty uses defaults
}

// Client invokes Bedrock models and watermarks the text in their responses.
type Client struct {
	api InvokeAPI
	wm  *watermark.Watermarker
}

// New creates a Client backed by a real Bedrock runtime client built from
// the ambient AWS configuration.
func New(ctx context.Context, cfg Config) (*Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	wmCfg, err := watermark.LoadConfig(cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load watermark config: %w", err)
	}
	wm, err := watermark.New(wmCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create watermarker: %w", err)
	}

	return &Client{api: bedrockruntime.NewFromConfig(awsCfg), wm: wm}, nil
}

// NewWithAPI creates a Client over an existing runtime client. Useful for
// tests and for callers that manage their own AWS configuration.
func NewWithAPI(api InvokeAPI, wm *watermark.Watermarker) *Client {
	return &Client{api: api, wm: wm}
}

// Invoke calls InvokeModel and returns the response body with assistant
// text watermarked. Model families with unrecognized response shapes are
// returned unmodified.
func (c *Client) Invoke(ctx context.Context, modelID string, body []byte) ([]byte, error) {
	out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock invoke failed: %w", err)
	}
	return c.watermarkBody(modelID, out.Body), nil
}

// watermarkBody rewrites the text fields of a model response in the shape
// used by its model family.
func (c *Client) watermarkBody(modelID string, body []byte) []byte {
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return body
	}

	changed := 0
	switch family(modelID) {
	case familyAnthropic:
		changed = c.rewriteAnthropic(parsed)
	case familyTitan:
		changed = c.rewriteTitan(parsed)
	case familyNova:
		changed = c.rewriteNova(parsed)
	}
	if changed == 0 {
		return body
	}

	modified, err := json.Marshal(parsed)
	if err != nil {
		return body
	}
	return modified
}

type modelFamily int

const (
	familyUnknown modelFamily = iota
	familyAnthropic
	familyTitan
	familyNova
)

func family(modelID string) modelFamily {
	// Model IDs may carry a region or inference-profile prefix
	// (e.g. "us.anthropic.claude-...").
	switch {
	case strings.Contains(modelID, "anthropic."):
		return familyAnthropic
	case strings.Contains(modelID, "amazon.titan"):
		return familyTitan
	case strings.Contains(modelID, "amazon.nova"):
		return familyNova
	default:
		return familyUnknown
	}
}

// rewriteAnthropic handles the messages-API shape:
// content: [{"type": "text", "text": "..."}].
func (c *Client) rewriteAnthropic(body map[string]any) int {
	content, ok := body["content"].([]any)
	if !ok {
		return 0
	}
	changed := 0
	for _, item := range content {
		block, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if blockType, _ := block["type"].(string); blockType != "text" {
			continue
		}
		if text, ok := block["text"].(string); ok && text != "" {
			block["text"] = c.wm.Apply(text)
			changed++
		}
	}
	return changed
}

// rewriteTitan handles results: [{"outputText": "..."}].
func (c *Client) rewriteTitan(body map[string]any) int {
	results, ok := body["results"].([]any)
	if !ok {
		return 0
	}
	changed := 0
	for _, item := range results {
		result, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if text, ok := result["outputText"].(string); ok && text != "" {
			result["outputText"] = c.wm.Apply(text)
			changed++
		}
	}
	return changed
}

// rewriteNova handles output.message.content: [{"text": "..."}].
func (c *Client) rewriteNova(body map[string]any) int {
	output, ok := body["output"].(map[string]any)
	if !ok {
		return 0
	}
	message, ok := output["message"].(map[string]any)
	if !ok {
		return 0
	}
	content, ok := message["content"].([]any)
	if !ok {
		return 0
	}
	changed := 0
	for _, item := range content {
		block, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if text, ok := block["text"].(string); ok && text != "" {
			block["text"] = c.wm.Apply(text)
			changed++
		}
	}
	return changed
}
