package selection

import (
	"strings"

	curerrors "github.com/sellerhub/news-curator/internal/core/errors"
)

// extractJSON pulls the JSON payload out of a model reply. Models wrap
// payloads in markdown fences or prose; the fence is stripped first, then
// a bracket scan finds the outermost array or object.
func extractJSON(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", curerrors.ErrEmptyResponse
	}

	if fenced, ok := stripFence(text); ok {
		text = fenced
	}

	if strings.HasPrefix(text, "[") || strings.HasPrefix(text, "{") {
		return text, nil
	}

	for _, pair := range [][2]byte{{'[', ']'}, {'{', '}'}} {
		start := strings.IndexByte(text, pair[0])
		end := strings.LastIndexByte(text, pair[1])

		if start >= 0 && end > start {
			return text[start : end+1], nil
		}
	}

	return "", curerrors.ErrNoJSONPayload
}

func stripFence(text string) (string, bool) {
	if !strings.HasPrefix(text, "```") {
		return "", false
	}

	body := strings.TrimPrefix(text, "```json")
	body = strings.TrimPrefix(body, "```")

	end := strings.LastIndex(body, "```")
	if end < 0 {
		return strings.TrimSpace(body), true
	}

	return strings.TrimSpace(body[:end]), true
}
