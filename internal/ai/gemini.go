package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"coachassist/internal/models"

	"google.golang.org/genai"
)

const defaultModel = "gemini-2.5-flash"
const generateTimeout = 15 * time.Second

// Generator produces raw follow-up text for a lead.
type Generator interface {
	Generate(ctx context.Context, lead *models.Lead, recent []models.Activity) (string, error)
}

// GeminiClient calls the Gemini generateContent API. Stateless: the only
// side effect is the outbound call.
type GeminiClient struct {
	apiKey string
	model  string
}

func NewGeminiClient(apiKey, model string) *GeminiClient {
	if model == "" {
		model = defaultModel
	}
	return &GeminiClient{apiKey: apiKey, model: model}
}

func (c *GeminiClient) Generate(ctx context.Context, lead *models.Lead, recent []models.Activity) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  c.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create genai client: %w", err)
	}

	prompt := BuildPrompt(lead, recent)

	resp, err := client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.5),
		TopP:             genai.Ptr[float32](0.9),
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", translateAPIError(err)
	}

	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func translateAPIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", ErrUpstreamRateLimited, apiErr.Message)
		case http.StatusBadRequest, http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrUpstreamAuthFailed, apiErr.Message)
		}
	}
	return fmt.Errorf("gemini request failed: %w", err)
}
