package intercept

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ppiankov/veilmark/internal/inject"
)

// sseEvent is one complete SSE event: its raw lines, without the trailing
// blank separator.
type sseEvent struct {
	lines []string
}

// handleStreaming processes an SSE response. Assistant text deltas flow
// through one per-stream injector: intermediate deltas get periodic tags as
// the token cadence is crossed, and the final text delta of each text block
// is finalized so every streamed completion carries at least one tag.
func (s *Server) handleStreaming(w http.ResponseWriter, r *http.Request, resp *http.Response) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		// Fallback: read entire stream and handle as non-streaming
		s.handleNonStreaming(w, resp)
		return
	}

	copyHeaders(w, resp)
	w.WriteHeader(resp.StatusCode)

	format := DetectStreamingFormat(r.URL.Path, r.Header)
	if format == FormatUnknown {
		// Unknown stream shape, pass through untouched.
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			fmt.Fprintf(w, "%s\n", scanner.Text())
			flusher.Flush()
		}
		return
	}

	rw := newStreamRewriter(format, s.wm.NewInjector())

	emit := func(events []sseEvent) {
		for _, ev := range events {
			for _, line := range ev.lines {
				fmt.Fprintf(w, "%s\n", line)
			}
			fmt.Fprint(w, "\n")
			flusher.Flush()
		}
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var current []string
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if len(current) > 0 {
				emit(rw.process(sseEvent{lines: current}))
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		emit(rw.process(sseEvent{lines: current}))
	}
	emit(rw.flush())
}

// streamRewriter rewrites text deltas in an SSE stream. It holds back the
// most recent text delta so that, when the block or stream ends, that delta
// can be re-emitted through a finalize pass. All other events are passed
// through in order, flushing the held delta first to preserve sequencing.
type streamRewriter struct {
	format   LLMFormat
	injector *inject.Injector

	pending      *pendingDelta
	textBlocks   map[int]bool // Anthropic: content block index → is a text block
	pendingIndex int          // Anthropic: block index of the held delta
}

// pendingDelta is a held-back text delta: the parsed event, the original
// "event:" lines preceding the data line, and the delta's text.
type pendingDelta struct {
	prefix []string // lines before the data line ("event: ..." for Anthropic)
	body   map[string]any
	text   string
}

func newStreamRewriter(format LLMFormat, injector *inject.Injector) *streamRewriter {
	return &streamRewriter{
		format:     format,
		injector:   injector,
		textBlocks: make(map[int]bool),
	}
}

// process consumes one SSE event and returns the events to emit now.
func (rw *streamRewriter) process(ev sseEvent) []sseEvent {
	prefix, dataStr, ok := splitDataLine(ev)
	if !ok {
		// No data line (comment or bare event): flush and pass through.
		return append(rw.flushPending(false), ev)
	}

	if dataStr == "[DONE]" {
		// OpenAI end sentinel: the stream is over, finalize the held delta.
		return append(rw.flushPending(true), ev)
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(dataStr), &body); err != nil {
		return append(rw.flushPending(false), ev)
	}

	switch rw.format {
	case FormatAnthropic:
		return rw.processAnthropic(ev, prefix, body)
	case FormatOpenAI:
		return rw.processOpenAI(ev, prefix, body)
	default:
		return append(rw.flushPending(false), ev)
	}
}

// flush finalizes any held delta at end of stream.
func (rw *streamRewriter) flush() []sseEvent {
	return rw.flushPending(true)
}

func (rw *streamRewriter) processAnthropic(ev sseEvent, prefix []string, body map[string]any) []sseEvent {
	eventType, _ := body["type"].(string)

	switch eventType {
	case "content_block_start":
		idx := intFromAny(body["index"])
		if cb, ok := body["content_block"].(map[string]any); ok {
			if cbType, _ := cb["type"].(string); cbType == "text" {
				rw.textBlocks[idx] = true
			}
		}
		return append(rw.flushPending(false), ev)

	case "content_block_delta":
		idx := intFromAny(body["index"])
		delta, _ := body["delta"].(map[string]any)
		deltaType, _ := delta["type"].(string)
		if !rw.textBlocks[idx] || deltaType != "text_delta" {
			return append(rw.flushPending(false), ev)
		}
		text, _ := delta["text"].(string)
		out := rw.flushPending(false)
		rw.pending = &pendingDelta{prefix: prefix, body: body, text: text}
		rw.pendingIndex = idx
		return out

	case "content_block_stop":
		idx := intFromAny(body["index"])
		if rw.pending != nil && idx == rw.pendingIndex {
			// Last delta of this text block: finalize so the block
			// carries at least one tag.
			return append(rw.flushPending(true), ev)
		}
		return append(rw.flushPending(false), ev)

	default:
		// message_start, message_delta, message_stop, ping: pass through.
		return append(rw.flushPending(false), ev)
	}
}

func (rw *streamRewriter) processOpenAI(ev sseEvent, prefix []string, body map[string]any) []sseEvent {
	choices, _ := body["choices"].([]any)
	if len(choices) == 0 {
		return append(rw.flushPending(false), ev)
	}
	choice, _ := choices[0].(map[string]any)
	if choice == nil {
		return append(rw.flushPending(false), ev)
	}

	// A chunk carrying finish_reason ends the assistant turn: finalize the
	// held delta before it.
	if fr, ok := choice["finish_reason"]; ok && fr != nil {
		return append(rw.flushPending(true), ev)
	}

	delta, _ := choice["delta"].(map[string]any)
	if delta == nil {
		return append(rw.flushPending(false), ev)
	}
	text, ok := delta["content"].(string)
	if !ok || text == "" {
		return append(rw.flushPending(false), ev)
	}

	out := rw.flushPending(false)
	rw.pending = &pendingDelta{prefix: prefix, body: body, text: text}
	return out
}

// flushPending emits the held delta, if any, after running its text through
// the injector. finalize guarantees the emitted delta contains a tag.
func (rw *streamRewriter) flushPending(finalize bool) []sseEvent {
	if rw.pending == nil {
		return nil
	}
	p := rw.pending
	rw.pending = nil

	tagged := rw.injector.InjectDelta(p.text, finalize)
	if tagged != p.text {
		rw.setDeltaText(p.body, tagged)
	}

	data, err := json.Marshal(p.body)
	if err != nil {
		return nil
	}
	lines := append(append([]string{}, p.prefix...), "data: "+string(data))
	return []sseEvent{{lines: lines}}
}

// setDeltaText writes the rewritten text back into the delta structure.
func (rw *streamRewriter) setDeltaText(body map[string]any, text string) {
	switch rw.format {
	case FormatAnthropic:
		if delta, ok := body["delta"].(map[string]any); ok {
			delta["text"] = text
		}
	case FormatOpenAI:
		if choices, ok := body["choices"].([]any); ok && len(choices) > 0 {
			if choice, ok := choices[0].(map[string]any); ok {
				if delta, ok := choice["delta"].(map[string]any); ok {
					delta["content"] = text
				}
			}
		}
	}
}

// splitDataLine separates an SSE event into the lines before its data line
// and the data payload. ok is false when the event has no data line.
func splitDataLine(ev sseEvent) (prefix []string, data string, ok bool) {
	for i, line := range ev.lines {
		if strings.HasPrefix(line, "data: ") {
			return ev.lines[:i], strings.TrimPrefix(line, "data: "), true
		}
	}
	return nil, "", false
}

func intFromAny(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}
