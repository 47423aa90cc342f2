package intercept

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/ppiankov/veilmark/internal/tag"
	"github.com/ppiankov/veilmark/internal/watermark"
)

// --- Test helpers ---

func newTestInterceptor(t *testing.T, upstreamURL string) *Server {
	t.Helper()
	srv, err := NewServer(Config{Port: 0, Upstream: upstreamURL, ConfigPath: "/nonexistent/watermark.yaml"})
	if err != nil {
		t.Fatalf("failed to create interceptor: %v", err)
	}
	return srv
}

func proxyRequest(t *testing.T, srv *Server, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func openAIResponse(content string) []byte {
	body := map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"model":  "gpt-4o",
		"choices": []any{
			map[string]any{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
	}
	out, _ := json.Marshal(body)
	return out
}

func anthropicResponse(blocks []any) []byte {
	body := map[string]any{
		"id":          "msg_test",
		"type":        "message",
		"role":        "assistant",
		"content":     blocks,
		"model":       "claude-test",
		"stop_reason": "end_turn",
	}
	out, _ := json.Marshal(body)
	return out
}

func detectIn(t *testing.T, text string) watermark.DetectResult {
	t.Helper()
	wm, err := watermark.New(watermark.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	return wm.Detect(text)
}

// --- Non-streaming ---

func TestOpenAIResponseWatermarked(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(openAIResponse("Here is the answer you asked for."))
	}))
	defer upstream.Close()

	srv := newTestInterceptor(t, upstream.URL)
	rec := proxyRequest(t, srv, "/v1/chat/completions", []byte(`{"model":"gpt-4o"}`), nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response not JSON: %v", err)
	}
	content := body["choices"].([]any)[0].(map[string]any)["message"].(map[string]any)["content"].(string)

	result := detectIn(t, content)
	if !result.Watermarked {
		t.Error("proxied OpenAI content not watermarked")
	}
	if stripped := tag.Strip(content, tag.DefaultConfig()); stripped != "Here is the answer you asked for." {
		t.Errorf("visible text altered: %q", stripped)
	}
}

func TestAnthropicResponseWatermarked(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(anthropicResponse([]any{
			map[string]any{"type": "text", "text": "First block of prose."},
			map[string]any{"type": "tool_use", "id": "toolu_1", "name": "run", "input": map[string]any{}},
		}))
	}))
	defer upstream.Close()

	srv := newTestInterceptor(t, upstream.URL)
	rec := proxyRequest(t, srv, "/v1/messages", []byte(`{"model":"claude-test"}`), nil)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response not JSON: %v", err)
	}
	blocks := body["content"].([]any)

	text := blocks[0].(map[string]any)["text"].(string)
	if !detectIn(t, text).Watermarked {
		t.Error("text block not watermarked")
	}

	// Tool-use blocks must be untouched.
	tool := blocks[1].(map[string]any)
	if tool["type"] != "tool_use" || tool["name"] != "run" {
		t.Errorf("tool_use block altered: %v", tool)
	}
}

func TestNonJSONPassthrough(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("plain upstream body"))
	}))
	defer upstream.Close()

	srv := newTestInterceptor(t, upstream.URL)
	rec := proxyRequest(t, srv, "/v1/chat/completions", nil, nil)

	if rec.Body.String() != "plain upstream body" {
		t.Errorf("non-JSON body modified: %q", rec.Body.String())
	}
}

func TestErrorResponsePassthrough(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer upstream.Close()

	srv := newTestInterceptor(t, upstream.URL)
	rec := proxyRequest(t, srv, "/v1/chat/completions", nil, nil)

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status %d, want 429", rec.Code)
	}
	if strings.ContainsRune(rec.Body.String(), '\u2063') {
		t.Error("error response was watermarked")
	}
}

func TestRequestHeadersForwarded(t *testing.T) {
	var gotAuth, gotVersion string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotVersion = r.Header.Get("Anthropic-Version")
		w.Header().Set("Content-Type", "application/json")
		w.Write(anthropicResponse([]any{map[string]any{"type": "text", "text": "ok"}}))
	}))
	defer upstream.Close()

	srv := newTestInterceptor(t, upstream.URL)
	proxyRequest(t, srv, "/v1/messages", nil, map[string]string{
		"Authorization":     "Bearer sk-test",
		"Anthropic-Version": "2023-06-01",
	})

	if gotAuth != "Bearer sk-test" || gotVersion != "2023-06-01" {
		t.Errorf("headers not forwarded: auth=%q version=%q", gotAuth, gotVersion)
	}
}

func TestContentLengthCorrected(t *testing.T) {
	raw := openAIResponse("Short answer.")
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(raw)
	}))
	defer upstream.Close()

	srv := newTestInterceptor(t, upstream.URL)
	rec := proxyRequest(t, srv, "/v1/chat/completions", nil, nil)

	if cl := rec.Header().Get("Content-Length"); cl != "" {
		if n := rec.Body.Len(); cl != strconv.Itoa(n) {
			t.Errorf("Content-Length %s but body is %d bytes", cl, n)
		}
	}
}

// --- Format detection ---

func TestDetectFormat(t *testing.T) {
	cases := []struct {
		name string
		body map[string]any
		want LLMFormat
	}{
		{"anthropic", map[string]any{"content": []any{map[string]any{"type": "text", "text": "x"}}}, FormatAnthropic},
		{"openai", map[string]any{"choices": []any{map[string]any{"message": map[string]any{}}}}, FormatOpenAI},
		{"unknown", map[string]any{"foo": "bar"}, FormatUnknown},
		{"empty content", map[string]any{"content": []any{}}, FormatUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectFormat(tc.body); got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDetectStreamingFormat(t *testing.T) {
	if got := DetectStreamingFormat("/v1/messages", nil); got != FormatAnthropic {
		t.Errorf("messages path: %v", got)
	}
	if got := DetectStreamingFormat("/v1/chat/completions", nil); got != FormatOpenAI {
		t.Errorf("completions path: %v", got)
	}
	if got := DetectStreamingFormat("/other", map[string][]string{"Anthropic-Version": {"2023-06-01"}}); got != FormatAnthropic {
		t.Errorf("header fallback: %v", got)
	}
	if got := DetectStreamingFormat("/other", nil); got != FormatUnknown {
		t.Errorf("unknown: %v", got)
	}
}
