package api

import (
	"errors"
	"log"
	"net/http"

	"coachassist/internal/ai"
	"coachassist/internal/store"

	"github.com/gin-gonic/gin"
)

type AIHandler struct {
	leads     store.LeadStore
	followUps *ai.FollowUpService
}

func NewAIHandler(leads store.LeadStore, followUps *ai.FollowUpService) *AIHandler {
	return &AIHandler{leads: leads, followUps: followUps}
}

// GenerateFollowUp runs the generation pipeline for an owned lead.
func (h *AIHandler) GenerateFollowUp(c *gin.Context) {
	user := currentUser(c)
	result, err := h.followUps.GenerateFollowUp(c.Request.Context(), c.Param("id"), user.ID)
	if err != nil {
		h.respondGenerationError(c, err)
		return
	}

	respondMessage(c, http.StatusOK, "AI follow-up generated successfully", gin.H{
		"lead":      result.Lead,
		"aiContent": result.Content,
		"activity":  result.Activity,
	})
}

func (h *AIHandler) respondGenerationError(c *gin.Context, err error) {
	var quotaErr *ai.QuotaExceededError
	switch {
	case errors.Is(err, ai.ErrLeadNotFound):
		respondError(c, http.StatusNotFound, "Lead not found")
	case errors.As(err, &quotaErr):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"success":           false,
			"message":           "AI generation limit exceeded. Maximum requests per hour reached. Please try again later.",
			"retryAfterSeconds": int(quotaErr.RetryAfter.Seconds()),
		})
	case errors.Is(err, ai.ErrNotConfigured), errors.Is(err, ai.ErrUpstreamAuthFailed):
		respondError(c, http.StatusServiceUnavailable, "AI service currently unavailable. Please contact support.")
	case errors.Is(err, ai.ErrUpstreamRateLimited):
		respondError(c, http.StatusServiceUnavailable, "AI service temporarily unavailable. Please try again later.")
	case errors.Is(err, ai.ErrMalformedResponse), errors.Is(err, ai.ErrEmptyResponse):
		respondError(c, http.StatusBadGateway, "AI returned an unusable response. Please try again.")
	default:
		log.Printf("AI follow-up generation error: %v", err)
		respondError(c, http.StatusInternalServerError, "Failed to generate AI follow-up")
	}
}

// GetContent returns the lead's last generated block, if any.
func (h *AIHandler) GetContent(c *gin.Context) {
	user := currentUser(c)
	lead, err := h.leads.FindOwned(c.Request.Context(), c.Param("id"), user.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Lead not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	var lastGeneratedAt interface{}
	if lead.AIContent != nil && lead.AIContent.LastGeneratedAt != nil {
		lastGeneratedAt = lead.AIContent.LastGeneratedAt
	}
	respondOK(c, http.StatusOK, gin.H{
		"aiContent":       lead.AIContent,
		"lastGeneratedAt": lastGeneratedAt,
	})
}
