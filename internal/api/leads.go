package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"coachassist/internal/models"
	"coachassist/internal/store"

	"github.com/gin-gonic/gin"
)

type LeadHandler struct {
	leads      store.LeadStore
	activities store.ActivityStore
}

func NewLeadHandler(leads store.LeadStore, activities store.ActivityStore) *LeadHandler {
	return &LeadHandler{leads: leads, activities: activities}
}

type createLeadRequest struct {
	Name           string     `json:"name" binding:"required"`
	Phone          string     `json:"phone" binding:"required"`
	Source         string     `json:"source" binding:"required"`
	Status         string     `json:"status"`
	Tags           string     `json:"tags"`
	NextFollowUpAt *time.Time `json:"next_follow_up_at"`
}

func (h *LeadHandler) Create(c *gin.Context) {
	var req createLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Name, phone, and source are required")
		return
	}

	if !models.ValidSource(models.LeadSource(req.Source)) {
		respondError(c, http.StatusBadRequest, "Source must be one of: Instagram, Referral, Ads, Website, Other")
		return
	}
	status := models.LeadStatus(req.Status)
	if req.Status == "" {
		status = models.StatusNew
	} else if !models.ValidStatus(status) {
		respondError(c, http.StatusBadRequest, "Status must be one of: NEW, CONTACTED, INTERESTED, CONVERTED, LOST")
		return
	}

	user := currentUser(c)
	lead := &models.Lead{
		Name:           req.Name,
		Phone:          req.Phone,
		Source:         models.LeadSource(req.Source),
		Status:         status,
		Tags:           req.Tags,
		AssignedTo:     user.ID,
		NextFollowUpAt: req.NextFollowUpAt,
	}
	if err := h.leads.Create(c.Request.Context(), lead); err != nil {
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	activity := &models.Activity{
		LeadID:      lead.ID,
		Type:        models.ActivityNote,
		Description: "Lead created",
		CreatedBy:   user.ID,
	}
	if err := h.activities.Insert(c.Request.Context(), activity); err != nil {
		log.Printf("Failed to record creation activity for lead %s: %v", lead.ID, err)
	}

	respondMessage(c, http.StatusCreated, "Lead created successfully", gin.H{"lead": lead})
}

// ListPayload produces the lead listing for the caching decorator.
func (h *LeadHandler) ListPayload(c *gin.Context) (interface{}, error) {
	user := currentUser(c)
	filter := store.LeadFilter{
		Status:    models.LeadStatus(c.Query("status")),
		Tags:      c.Query("tags"),
		Search:    c.Query("search"),
		SortBy:    c.DefaultQuery("sortBy", "createdAt"),
		SortOrder: c.DefaultQuery("sortOrder", "desc"),
		Page:      parseIntQuery(c, "page", 1),
		Limit:     parseIntQuery(c, "limit", 20),
	}

	leads, total, err := h.leads.List(c.Request.Context(), user.ID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}

	pages := total / int64(filter.Limit)
	if total%int64(filter.Limit) != 0 {
		pages++
	}
	return gin.H{
		"leads": leads,
		"pagination": gin.H{
			"page":  filter.Page,
			"limit": filter.Limit,
			"total": total,
			"pages": pages,
		},
	}, nil
}

func (h *LeadHandler) Get(c *gin.Context) {
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
	respondOK(c, http.StatusOK, gin.H{"lead": lead})
}

type updateLeadRequest struct {
	Name           *string    `json:"name"`
	Phone          *string    `json:"phone"`
	Source         *string    `json:"source"`
	Status         *string    `json:"status"`
	Tags           *string    `json:"tags"`
	NextFollowUpAt *time.Time `json:"next_follow_up_at"`
	ClearFollowUp  bool       `json:"clear_follow_up"`
}

func (h *LeadHandler) Update(c *gin.Context) {
	var req updateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

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

	oldStatus := lead.Status
	if req.Name != nil {
		lead.Name = *req.Name
	}
	if req.Phone != nil {
		lead.Phone = *req.Phone
	}
	if req.Source != nil {
		if !models.ValidSource(models.LeadSource(*req.Source)) {
			respondError(c, http.StatusBadRequest, "Source must be one of: Instagram, Referral, Ads, Website, Other")
			return
		}
		lead.Source = models.LeadSource(*req.Source)
	}
	if req.Status != nil {
		if !models.ValidStatus(models.LeadStatus(*req.Status)) {
			respondError(c, http.StatusBadRequest, "Status must be one of: NEW, CONTACTED, INTERESTED, CONVERTED, LOST")
			return
		}
		lead.Status = models.LeadStatus(*req.Status)
	}
	if req.Tags != nil {
		lead.Tags = *req.Tags
	}
	if req.NextFollowUpAt != nil {
		lead.NextFollowUpAt = req.NextFollowUpAt
	} else if req.ClearFollowUp {
		lead.NextFollowUpAt = nil
	}

	if err := h.leads.Update(c.Request.Context(), lead); err != nil {
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	if lead.Status != oldStatus {
		activity := &models.Activity{
			LeadID:      lead.ID,
			Type:        models.ActivityStatusChange,
			Description: fmt.Sprintf("Status changed from %s to %s", oldStatus, lead.Status),
			Meta: models.ActivityMeta{
				StatusChange: &models.StatusChangeMeta{
					PreviousStatus: oldStatus,
					NewStatus:      lead.Status,
				},
			},
			CreatedBy: user.ID,
		}
		if err := h.activities.Insert(c.Request.Context(), activity); err != nil {
			log.Printf("Failed to record status change for lead %s: %v", lead.ID, err)
		}
	}

	respondMessage(c, http.StatusOK, "Lead updated successfully", gin.H{"lead": lead})
}

func (h *LeadHandler) Delete(c *gin.Context) {
	user := currentUser(c)
	err := h.leads.Delete(c.Request.Context(), c.Param("id"), user.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Lead not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondMessage(c, http.StatusOK, "Lead deleted successfully", nil)
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
