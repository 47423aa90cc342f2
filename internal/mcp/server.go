// Package mcp exposes watermarking as MCP tools over stdio, so agents and
// editors can apply, detect, and strip watermarks without shelling out.
package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/veilmark/internal/watermark"
)

// Config holds MCP server configuration.
type Config struct {
	ConfigPath string
}

// Server wraps the MCP SDK server around a watermarker.
type Server struct {
	mcpServer *mcpsdk.Server
	wm        *watermark.Watermarker
}

// New creates an MCP server with the watermark config loaded from
// cfg.ConfigPath (defaults when absent) and all tools registered.
func New(cfg Config) (*Server, error) {
	wmCfg, err := watermark.LoadConfig(cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load watermark config: %w", err)
	}
	wm, err := watermark.New(wmCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create watermarker: %w", err)
	}

	s := &Server{wm: wm}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "veilmark",
			Version: "0.1.0",
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// registerTools adds all veilmark tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "veilmark_apply",
		Description: "Embed an invisible watermark into text. Returns the watermarked text, visually identical to the input.",
	}, s.handleApply)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "veilmark_detect",
		Description: "Detect invisible watermarks in text. Returns the decoded payloads and their integrity status.",
	}, s.handleDetect)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "veilmark_strip",
		Description: "Remove all invisible watermarks from text, returning the visible text unchanged.",
	}, s.handleStrip)
}
