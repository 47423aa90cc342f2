// Package intercept is a reverse proxy that sits between a client and an
// LLM API (OpenAI or Anthropic format) and embeds the invisible watermark
// into assistant text in responses, so an existing pipeline can be
// watermarked without touching its code.
package intercept

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/veilmark/internal/watermark"
)

// Config holds interceptor proxy configuration.
type Config struct {
	Port       int
	Upstream   string // e.g. "https://api.openai.com"
	ConfigPath string
}

// Server is a reverse HTTP proxy that watermarks assistant text in LLM
// responses, streaming and non-streaming. The Watermarker is immutable and
// shared across requests; each streamed response owns a private injector.
type Server struct {
	cfg      Config
	upstream *url.URL
	wm       *watermark.Watermarker
	srv      *http.Server
}

// NewServer creates an interceptor proxy with the watermark config loaded
// from cfg.ConfigPath (defaults when absent).
func NewServer(cfg Config) (*Server, error) {
	upstream, err := url.Parse(cfg.Upstream)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL: %w", err)
	}

	wmCfg, err := watermark.LoadConfig(cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load watermark config: %w", err)
	}
	wm, err := watermark.New(wmCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create watermarker: %w", err)
	}

	s := &Server{
		cfg:      cfg,
		upstream: upstream,
		wm:       wm,
	}
	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: s,
	}
	return s, nil
}

// Start begins listening. Blocks until context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutdownCtx)
	}()

	err = s.srv.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// ServeHTTP forwards requests to upstream and watermarks responses.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	outURL := *s.upstream
	outURL.Path = r.URL.Path
	outURL.RawQuery = r.URL.RawQuery

	outReq, err := http.NewRequestWithContext(r.Context(), r.Method, outURL.String(), r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to create request: %v", err), http.StatusInternalServerError)
		return
	}

	// Copy all headers (preserves Authorization, anthropic-version, etc.)
	for k, vv := range r.Header {
		for _, v := range vv {
			outReq.Header.Add(k, v)
		}
	}
	outReq.Header.Set("Host", s.upstream.Host)
	outReq.ContentLength = r.ContentLength

	resp, err := http.DefaultTransport.RoundTrip(outReq)
	if err != nil {
		http.Error(w, fmt.Sprintf("upstream error: %v", err), http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "text/event-stream") {
		s.handleStreaming(w, r, resp)
		return
	}

	s.handleNonStreaming(w, resp)
}

// handleNonStreaming reads the full response and watermarks its text fields.
func (s *Server) handleNonStreaming(w http.ResponseWriter, resp *http.Response) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20)) // 10MB limit
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read upstream response: %v", err), http.StatusBadGateway)
		return
	}

	// Only successful completions carry assistant text worth tagging.
	if resp.StatusCode != http.StatusOK {
		passthrough(w, resp, body)
		return
	}

	var bodyMap map[string]any
	if err := json.Unmarshal(body, &bodyMap); err != nil {
		// Not JSON, passthrough unchanged
		passthrough(w, resp, body)
		return
	}

	format := DetectFormat(bodyMap)
	changed := WatermarkResponse(bodyMap, format, s.wm.Apply)
	if changed == 0 {
		passthrough(w, resp, body)
		return
	}

	modified, err := json.Marshal(bodyMap)
	if err != nil {
		passthrough(w, resp, body)
		return
	}

	copyHeaders(w, resp)
	w.Header().Set("Content-Length", strconv.Itoa(len(modified)))
	w.WriteHeader(resp.StatusCode)
	w.Write(modified)
}

func passthrough(w http.ResponseWriter, resp *http.Response, body []byte) {
	copyHeaders(w, resp)
	w.WriteHeader(resp.StatusCode)
	w.Write(body)
}

// copyHeaders copies response headers to the writer.
func copyHeaders(w http.ResponseWriter, resp *http.Response) {
	for k, vv := range resp.Header {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
}
