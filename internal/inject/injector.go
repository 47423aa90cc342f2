// Package inject decides when and where a precomputed watermark tag is
// spliced into outgoing text, incrementally across streamed chunks.
package inject

import "strings"

// safeBoundary is the set of characters after which a tag can be inserted
// without splitting a word, contraction, or number.
const safeBoundary = " \t\n\v\f\r.,;:!?)]}\"'"

// Injector carries per-stream insertion state: the fixed tag, the token
// cadence, and the tokens counted since the last insertion. It is mutable
// session state tied to one logical text stream: each concurrent stream
// owns its own Injector; never share one across goroutines.
type Injector struct {
	tag             string
	interval        int
	tokensSinceLast int
}

// New creates an Injector for one text stream. interval <= 0 disables
// periodic re-insertion; a finalize pass still inserts one tag.
func New(tag string, interval int) *Injector {
	return &Injector{tag: tag, interval: interval}
}

// CountTokens approximates the token count of s as the number of maximal
// whitespace-delimited non-empty substrings. A cheap proxy for words, not
// a tokenizer.
func CountTokens(s string) int {
	return len(strings.Fields(s))
}

// InjectDelta accumulates chunk's tokens and returns chunk with zero or
// more tags spliced in at safe boundaries. One tag is inserted per full
// interval accumulated; finalize forces at least one insertion so that
// every finalized stream carries a recoverable marker, however short.
func (in *Injector) InjectDelta(chunk string, finalize bool) string {
	in.tokensSinceLast += CountTokens(chunk)

	insertions := 0
	if in.interval > 0 {
		insertions = in.tokensSinceLast / in.interval
	}
	if finalize && insertions < 1 {
		insertions = 1
	}
	if insertions <= 0 {
		return chunk
	}

	if finalize {
		in.tokensSinceLast = 0
	} else {
		in.tokensSinceLast %= in.interval
	}

	out := chunk
	for i := 0; i < insertions; i++ {
		out = insertAtSafeBoundary(out, in.tag)
	}
	return out
}

// insertAtSafeBoundary splices tag immediately after the last safe-boundary
// character in text, or appends it when text contains none. The boundary
// set is ASCII, so scanning bytes from the end never lands inside a
// multi-byte rune.
func insertAtSafeBoundary(text, tag string) string {
	if text == "" {
		return tag
	}
	if i := strings.LastIndexAny(text, safeBoundary); i >= 0 {
		return text[:i+1] + tag + text[i+1:]
	}
	return text + tag
}
