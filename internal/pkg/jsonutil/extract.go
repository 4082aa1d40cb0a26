package jsonutil

import "strings"

const codeFence = "```"

// ExtractObject pulls the first balanced JSON object out of raw model output.
// Handles fenced blocks (```json ... ```) and leading/trailing prose; returns
// false when no object can be found.
func ExtractObject(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if block, ok := extractFromFence(raw); ok {
		if obj, ok := matchObject(block); ok {
			return obj, true
		}
		return block, true
	}
	return matchObject(raw)
}

func extractFromFence(raw string) (string, bool) {
	start := strings.Index(raw, codeFence)
	if start == -1 {
		return "", false
	}
	rest := raw[start+len(codeFence):]
	end := strings.Index(rest, codeFence)
	if end == -1 {
		return "", false
	}
	block := strings.TrimLeft(rest[:end], "\r\n")
	// Drop a language tag on the first line ("json", "JSON", ...).
	if idx := strings.Index(block, "\n"); idx != -1 {
		first := strings.TrimSpace(block[:idx])
		if first != "" && !strings.ContainsAny(first, "{") {
			block = block[idx+1:]
		}
	}
	block = strings.TrimSpace(block)
	if block == "" {
		return "", false
	}
	return block, true
}

func matchObject(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	if start == -1 {
		return "", false
	}
	depth := 0
	inString := false
	escape := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
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
				return strings.TrimSpace(raw[start : i+1]), true
			}
		}
	}
	return "", false
}
