package ai

import (
	"encoding/json"
	"strings"

	"coachassist/internal/models"
)

const maxWhatsappChars = 150
const maxCallScriptBullets = 3
const maxObjectionLines = 2

// Normalize repairs raw model output into the strict AIContent schema.
// It is deterministic and idempotent: normalizing an already-normalized
// payload yields the same value.
func Normalize(raw string, status models.LeadStatus) (models.AIContent, error) {
	clean := stripCodeFences(raw)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(clean), &fields); err != nil {
		obj := extractJSONObject(clean)
		if obj == "" {
			return models.AIContent{}, ErrMalformedResponse
		}
		if err := json.Unmarshal([]byte(obj), &fields); err != nil {
			return models.AIContent{}, ErrMalformedResponse
		}
	}

	content := models.AIContent{
		WhatsappMessage: normalizeWhatsapp(fields["whatsappMessage"]),
		CallScript:      normalizeCallScript(fields["callScript"]),
	}
	if status == models.StatusInterested {
		content.ObjectionHandling = normalizeObjection(fields["objectionHandling"])
	}
	return content, nil
}

// stripCodeFences removes ```json / ``` markers and surrounding whitespace.
func stripCodeFences(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// extractJSONObject returns the first balanced {...} substring, or "".
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func normalizeWhatsapp(raw json.RawMessage) string {
	var msg string
	if raw != nil {
		_ = json.Unmarshal(raw, &msg)
	}
	runes := []rune(msg)
	if len(runes) > maxWhatsappChars {
		msg = string(runes[:maxWhatsappChars])
	}
	return strings.TrimSpace(msg)
}

func normalizeCallScript(raw json.RawMessage) []string {
	var bullets []string
	if raw != nil {
		// Anything that is not a list of strings collapses to empty.
		if err := json.Unmarshal(raw, &bullets); err != nil {
			bullets = nil
		}
	}
	if len(bullets) > maxCallScriptBullets {
		bullets = bullets[:maxCallScriptBullets]
	}
	out := make([]string, 0, len(bullets))
	for _, b := range bullets {
		out = append(out, strings.TrimSpace(b))
	}
	return out
}

func normalizeObjection(raw json.RawMessage) string {
	var text string
	if raw != nil {
		_ = json.Unmarshal(raw, &text)
	}
	text = strings.ReplaceAll(text, "**", "")
	text = strings.ReplaceAll(text, "\r", "")
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > maxObjectionLines {
		lines = lines[:maxObjectionLines]
	}
	return strings.Join(lines, "\n")
}
