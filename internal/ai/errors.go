package ai

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotConfigured means no Gemini API key is available.
	ErrNotConfigured = errors.New("gemini API key not configured")
	// ErrUpstreamRateLimited means the provider itself throttled the call.
	ErrUpstreamRateLimited = errors.New("ai service temporarily unavailable")
	// ErrUpstreamAuthFailed means the provider rejected our credentials.
	ErrUpstreamAuthFailed = errors.New("ai authentication failed")
	// ErrEmptyResponse means the provider returned no generated text.
	ErrEmptyResponse = errors.New("no response from ai provider")
	// ErrMalformedResponse means no JSON object could be recovered from the
	// model output. Not retried automatically.
	ErrMalformedResponse = errors.New("ai returned invalid JSON format")
	// ErrLeadNotFound covers both absent and foreign leads.
	ErrLeadNotFound = errors.New("lead not found")
)

// QuotaExceededError is returned when the hourly generation quota is spent.
type QuotaExceededError struct {
	RetryAfter time.Duration
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("AI generation limit exceeded, retry in %s", e.RetryAfter)
}
