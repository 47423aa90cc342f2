package veilmark

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ppiankov/veilmark/internal/intercept"
)

// WrapTransport returns an http.RoundTripper that watermarks assistant
// text in LLM API responses passing through it. Non-JSON bodies, error
// responses, and streaming responses pass through untouched; use the
// intercept proxy when streaming coverage is needed.
func (c *Client) WrapTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &markingTransport{base: base, client: c}
}

type markingTransport struct {
	base   http.RoundTripper
	client *Client
}

func (t *markingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return resp, nil
	}
	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "text/event-stream") || !strings.Contains(contentType, "application/json") {
		return resp, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	resp.Body.Close()
	if err != nil {
		return nil, err
	}

	modified := t.watermarkBody(body)
	resp.Body = io.NopCloser(bytes.NewReader(modified))
	resp.ContentLength = int64(len(modified))
	if resp.Header.Get("Content-Length") != "" {
		resp.Header.Set("Content-Length", strconv.Itoa(len(modified)))
	}
	return resp, nil
}

// watermarkBody rewrites assistant text fields when the body parses as a
// known chat-completion shape; anything else comes back unchanged.
func (t *markingTransport) watermarkBody(body []byte) []byte {
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return body
	}

	format := intercept.DetectFormat(parsed)
	if intercept.WatermarkResponse(parsed, format, t.client.Apply) == 0 {
		return body
	}

	modified, err := json.Marshal(parsed)
	if err != nil {
		return body
	}
	return modified
}
