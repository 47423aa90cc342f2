package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/veilmark/internal/watermark"
)

// --- Input/Output types ---

// ApplyInput defines parameters for the veilmark_apply tool.
type ApplyInput struct {
	Text string `json:"text" jsonschema:"text to watermark"`
}

// ApplyOutput contains the watermarked text.
type ApplyOutput struct {
	WatermarkedText string `json:"watermarked_text"`
	TagCount        int    `json:"tag_count"`
}

// DetectInput defines parameters for the veilmark_detect tool.
type DetectInput struct {
	Text string `json:"text" jsonschema:"text to scan for watermarks"`
}

// DetectOutput contains the detection result.
type DetectOutput struct {
	Watermarked  bool                    `json:"watermarked"`
	TagCount     int                     `json:"tag_count"`
	ValidCount   int                     `json:"valid_count"`
	InvalidCount int                     `json:"invalid_count"`
	Payloads     []watermark.PayloadInfo `json:"payloads,omitempty"`
}

// StripInput defines parameters for the veilmark_strip tool.
type StripInput struct {
	Text string `json:"text" jsonschema:"text to remove watermarks from"`
}

// StripOutput contains the cleaned text.
type StripOutput struct {
	CleanText string `json:"clean_text"`
	Removed   int    `json:"removed"`
}

// --- Handlers ---

func (s *Server) handleApply(ctx context.Context, req *mcpsdk.CallToolRequest, input ApplyInput) (*mcpsdk.CallToolResult, ApplyOutput, error) {
	if input.Text == "" {
		return nil, ApplyOutput{}, fmt.Errorf("text must not be empty")
	}
	tagged := s.wm.Apply(input.Text)
	return nil, ApplyOutput{
		WatermarkedText: tagged,
		TagCount:        s.wm.Detect(tagged).TagCount,
	}, nil
}

func (s *Server) handleDetect(ctx context.Context, req *mcpsdk.CallToolRequest, input DetectInput) (*mcpsdk.CallToolResult, DetectOutput, error) {
	result := s.wm.Detect(input.Text)
	return nil, DetectOutput{
		Watermarked:  result.Watermarked,
		TagCount:     result.TagCount,
		ValidCount:   result.ValidCount,
		InvalidCount: result.InvalidCount,
		Payloads:     result.Payloads,
	}, nil
}

func (s *Server) handleStrip(ctx context.Context, req *mcpsdk.CallToolRequest, input StripInput) (*mcpsdk.CallToolResult, StripOutput, error) {
	before := s.wm.Detect(input.Text)
	return nil, StripOutput{
		CleanText: s.wm.Strip(input.Text),
		Removed:   before.TagCount,
	}, nil
}
