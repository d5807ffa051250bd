package ai

import (
	"fmt"
	"strings"

	"coachassist/internal/models"
)

const maxPromptActivities = 3

// BuildPrompt renders the follow-up generation prompt for a lead. The output
// is deterministic for a given lead and activity list; the prompt itself
// carries the formatting contract the normalizer later enforces.
func BuildPrompt(lead *models.Lead, recent []models.Activity) string {
	if len(recent) > maxPromptActivities {
		recent = recent[:maxPromptActivities]
	}

	var digest []string
	for _, a := range recent {
		digest = append(digest, fmt.Sprintf("%s: %s", a.CreatedAt.Format("2006-01-02"), a.Type))
	}
	activityContext := strings.Join(digest, "\n")
	if activityContext == "" {
		activityContext = "No recent activity"
	}

	tags := lead.Tags
	if tags == "" {
		tags = "None"
	}

	return fmt.Sprintf(`You are a CRM AI assistant for a wellness coach.

Generate structured follow-up content.

LEAD:
Name: %s
Source: %s
Status: %s
Tags: %s

RECENT ACTIVITY:
%s

STRICT RULES:
- WhatsApp message must be under 150 characters.
- Call script must contain EXACTLY 3 short bullet points.
- Each bullet must be under 12 words.
- Objection handling must be EXACTLY 2 lines:
  Line 1 starts with: Question:
  Line 2 starts with: Answer:
- If status is NOT "INTERESTED", objectionHandling must be empty string.
- No markdown.
- No numbering.
- No extra explanation.
- Return ONLY valid JSON.

OUTPUT FORMAT:
{
  "whatsappMessage": "string",
  "callScript": ["point 1", "point 2", "point 3"],
  "objectionHandling": "string"
}`, lead.Name, lead.Source, lead.Status, tags, activityContext)
}
