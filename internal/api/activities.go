package api

import (
	"errors"
	"net/http"
	"time"

	"coachassist/internal/ai"
	"coachassist/internal/models"
	"coachassist/internal/store"

	"github.com/gin-gonic/gin"
)

type ActivityHandler struct {
	leads      store.LeadStore
	activities store.ActivityStore
	followUps  *ai.FollowUpService
}

func NewActivityHandler(leads store.LeadStore, activities store.ActivityStore, followUps *ai.FollowUpService) *ActivityHandler {
	return &ActivityHandler{leads: leads, activities: activities, followUps: followUps}
}

// Timeline serves a lead's activity history with cursor pagination.
func (h *ActivityHandler) Timeline(c *gin.Context) {
	user := currentUser(c)

	var cursor *time.Time
	if raw := c.Query("cursor"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Invalid cursor")
			return
		}
		cursor = &t
	}
	limit := parseIntQuery(c, "limit", 20)

	activities, nextCursor, hasMore, err := h.followUps.Timeline(c.Request.Context(), c.Param("id"), user.ID, cursor, limit)
	if err != nil {
		if errors.Is(err, ai.ErrLeadNotFound) {
			respondError(c, http.StatusNotFound, "Lead not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	var next interface{}
	if nextCursor != nil {
		next = nextCursor.UTC().Format(time.RFC3339Nano)
	}
	respondOK(c, http.StatusOK, gin.H{
		"activities": activities,
		"pagination": gin.H{
			"nextCursor": next,
			"hasMore":    hasMore,
			"limit":      limit,
		},
	})
}

type addActivityRequest struct {
	Type        string              `json:"type" binding:"required"`
	Description string              `json:"description" binding:"required"`
	Meta        models.ActivityMeta `json:"meta"`
}

func (h *ActivityHandler) Add(c *gin.Context) {
	var req addActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Activity type and description are required")
		return
	}
	if !models.ValidActivityType(models.ActivityType(req.Type)) {
		respondError(c, http.StatusBadRequest, "Activity type must be one of: CALL, WHATSAPP, NOTE, STATUS_CHANGE, AI_MESSAGE_GENERATED")
		return
	}
	if !req.Meta.MatchesType(models.ActivityType(req.Type)) {
		respondError(c, http.StatusBadRequest, "Activity meta does not match activity type")
		return
	}

	h.record(c, &models.Activity{
		Type:        models.ActivityType(req.Type),
		Description: req.Description,
		Meta:        req.Meta,
	}, "Activity added successfully")
}

type logCallRequest struct {
	Description     string `json:"description" binding:"required"`
	DurationSeconds *int   `json:"durationSeconds"`
}

func (h *ActivityHandler) LogCall(c *gin.Context) {
	var req logCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Description is required")
		return
	}

	h.record(c, &models.Activity{
		Type:        models.ActivityCall,
		Description: req.Description,
		Meta:        models.ActivityMeta{Call: &models.CallMeta{DurationSeconds: req.DurationSeconds}},
	}, "Call logged successfully")
}

type logWhatsAppRequest struct {
	Description string `json:"description" binding:"required"`
}

func (h *ActivityHandler) LogWhatsApp(c *gin.Context) {
	var req logWhatsAppRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Description is required")
		return
	}

	h.record(c, &models.Activity{
		Type:        models.ActivityWhatsApp,
		Description: req.Description,
	}, "WhatsApp message logged successfully")
}

// record verifies ownership of the lead in the path and appends the activity.
func (h *ActivityHandler) record(c *gin.Context, activity *models.Activity, message string) {
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

	activity.LeadID = lead.ID
	activity.CreatedBy = user.ID
	if err := h.activities.Insert(c.Request.Context(), activity); err != nil {
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondMessage(c, http.StatusCreated, message, gin.H{"activity": activity})
}
