// Package llm - util.go provides lenient extraction of JSON payloads from free-form
// model answers. Models wrap JSON in prose, code fences or reasoning blocks, so
// every consumer scans the raw text instead of decoding it directly.
package llm

import (
	"encoding/json"
	"reflect"
	"strings"
)

// CleanJSONBlock removes markdown code block wrappers from JSON responses.
// LLMs often wrap JSON in ```json ... ``` blocks even when instructed not to.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)

	// Handle ```json ... ``` blocks
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		return strings.TrimSpace(text)
	}

	// Handle generic ``` ... ``` blocks
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		// Skip potential language identifier on first line
		if idx := strings.Index(text, "\n"); idx >= 0 {
			firstLine := text[:idx]
			if len(firstLine) < 20 && !strings.Contains(firstLine, " ") && !strings.Contains(firstLine, "{") && !strings.Contains(firstLine, "[") {
				text = text[idx+1:]
			}
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		return strings.TrimSpace(text)
	}

	return text
}

// StripReasoning drops <think>...</think> blocks emitted by reasoning models.
// An orphan closing tag means everything before it was reasoning.
func StripReasoning(text string) string {
	for {
		start := strings.Index(text, "<think>")
		if start < 0 {
			break
		}
		end := strings.Index(text[start:], "</think>")
		if end < 0 {
			break
		}
		text = text[:start] + text[start+end+len("</think>"):]
	}
	if idx := strings.LastIndex(text, "</think>"); idx >= 0 {
		text = text[idx+len("</think>"):]
	}
	return strings.TrimSpace(text)
}

// ObjectCandidates returns every balanced top-level {...} span in text, in order.
// Braces inside JSON strings are ignored.
func ObjectCandidates(text string) []string {
	var out []string
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		end := balancedEnd(text, i)
		if end < 0 {
			continue
		}
		out = append(out, text[i:end+1])
		i = end
	}
	return out
}

// balancedEnd returns the index of the brace closing the one at start, or -1.
func balancedEnd(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// ArraySpan returns the text between the first '[' and the last ']' inclusive,
// or "" when there is no such span.
func ArraySpan(text string) string {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// DecodeFirstObject decodes into out the first JSON object in raw that passes
// validate (nil accepts any object). payload names the expected shape in errors.
func DecodeFirstObject(raw, payload string, validate func(string) error, out any) error {
	text := StripReasoning(CleanJSONBlock(raw))
	candidates := ObjectCandidates(text)
	if len(candidates) == 0 {
		return &MalformedError{Payload: payload, Message: "no JSON object in response"}
	}

	var lastErr error
	for _, candidate := range candidates {
		if err := decodeCandidate(candidate, validate, out); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return &MalformedError{Payload: payload, Message: "no JSON object matched the expected shape", Cause: lastErr}
}

// DecodeArray decodes the first-'['-to-last-']' span of raw into out.
func DecodeArray(raw, payload string, validate func(string) error, out any) error {
	span := ArraySpan(StripReasoning(CleanJSONBlock(raw)))
	if span == "" {
		return &MalformedError{Payload: payload, Message: "no JSON array in response"}
	}
	if err := decodeCandidate(span, validate, out); err != nil {
		return &MalformedError{Payload: payload, Message: "invalid JSON array", Cause: err}
	}
	return nil
}

func decodeCandidate(candidate string, validate func(string) error, out any) error {
	if validate != nil {
		if err := validate(candidate); err != nil {
			return err
		}
	}
	if v := reflect.ValueOf(out); v.Kind() == reflect.Pointer && !v.IsNil() {
		v.Elem().SetZero()
	}
	return json.Unmarshal([]byte(candidate), out)
}
