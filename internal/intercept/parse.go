package intercept

import "strings"

// LLMFormat identifies which LLM API format a response uses.
type LLMFormat int

const (
	FormatUnknown   LLMFormat = 0
	FormatAnthropic LLMFormat = 1
	FormatOpenAI    LLMFormat = 2
)

// DetectFormat examines a parsed JSON response body and determines
// whether it uses Anthropic or OpenAI format.
func DetectFormat(body map[string]any) LLMFormat {
	// Anthropic: has "content" array with objects having "type" field
	if content, ok := body["content"]; ok {
		if arr, ok := content.([]any); ok && len(arr) > 0 {
			if first, ok := arr[0].(map[string]any); ok {
				if _, hasType := first["type"]; hasType {
					return FormatAnthropic
				}
			}
		}
	}

	// OpenAI: has "choices" array with objects having "message" field
	if choices, ok := body["choices"]; ok {
		if arr, ok := choices.([]any); ok && len(arr) > 0 {
			if first, ok := arr[0].(map[string]any); ok {
				if _, hasMsg := first["message"]; hasMsg {
					return FormatOpenAI
				}
			}
		}
	}

	return FormatUnknown
}

// DetectStreamingFormat determines format from the HTTP request path/headers.
func DetectStreamingFormat(path string, headers map[string][]string) LLMFormat {
	if strings.Contains(path, "/v1/messages") {
		return FormatAnthropic
	}
	if strings.Contains(path, "/v1/chat/completions") {
		return FormatOpenAI
	}
	if _, ok := headers["Anthropic-Version"]; ok {
		return FormatAnthropic
	}
	return FormatUnknown
}

// WatermarkResponse applies fn to every assistant text field in a parsed
// chat-completion response body, in place. Returns the number of fields
// rewritten. Tool-use blocks, reasoning blocks, and anything else that is
// not assistant-visible text are left untouched.
func WatermarkResponse(body map[string]any, format LLMFormat, fn func(string) string) int {
	switch format {
	case FormatAnthropic:
		return watermarkAnthropic(body, fn)
	case FormatOpenAI:
		return watermarkOpenAI(body, fn)
	default:
		return 0
	}
}

// watermarkAnthropic rewrites text content blocks:
// content: [{"type": "text", "text": "..."}].
func watermarkAnthropic(body map[string]any, fn func(string) string) int {
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
			block["text"] = fn(text)
			changed++
		}
	}
	return changed
}

// watermarkOpenAI rewrites choices[].message.content strings.
func watermarkOpenAI(body map[string]any, fn func(string) string) int {
	choices, ok := body["choices"].([]any)
	if !ok {
		return 0
	}

	changed := 0
	for _, item := range choices {
		choice, ok := item.(map[string]any)
		if !ok {
			continue
		}
		message, ok := choice["message"].(map[string]any)
		if !ok {
			continue
		}
		if text, ok := message["content"].(string); ok && text != "" {
			message["content"] = fn(text)
			changed++
		}
	}
	return changed
}
