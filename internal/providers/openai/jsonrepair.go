package openai

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

const repairTimeout = 10 * time.Second

// RepairParse decodes model output into dst. It tries a strict parse of the
// cleaned text first; when that fails it asks the model once, at temperature
// zero, to emit corrected JSON and strictly parses the answer. It reports
// false when both parses fail. Callers fall back to their own defaults, this
// is never a fatal condition.
func (c *Client) RepairParse(ctx context.Context, raw string, dst any) bool {
	cleaned := extractJSONFragment(raw)
	if cleaned == "" {
		return false
	}
	if err := json.Unmarshal([]byte(cleaned), dst); err == nil {
		return true
	}

	c.logger.Warn().
		Str("head", truncate(cleaned, 100)).
		Msg("openai: direct json parse failed, attempting model correction")

	fixPrompt := "The following text is a malformed JSON. Please correct it and return ONLY the valid JSON object, without any surrounding text or explanations. JSON to fix:\n\n" + raw
	corrected, err := c.Complete(ctx, ChatRequest{
		Prompt:      fixPrompt,
		Temperature: 0,
		Timeout:     repairTimeout,
	})
	if err != nil {
		c.logger.Warn().Err(err).Msg("openai: json correction call failed")
		return false
	}
	if err := json.Unmarshal([]byte(extractJSONFragment(corrected)), dst); err != nil {
		c.logger.Warn().Err(err).
			Str("corrected", truncate(corrected, 200)).
			Msg("openai: corrected json still invalid")
		return false
	}
	return true
}

// extractJSONFragment strips markdown code fences and any prose around the
// outermost JSON value.
func extractJSONFragment(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	text = trimCodeFence(text)
	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "]}")
	if start >= 0 && end >= start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
