package api

import (
	"fmt"
	"time"

	"coachassist/internal/store"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	leads store.LeadStore
}

func NewDashboardHandler(leads store.LeadStore) *DashboardHandler {
	return &DashboardHandler{leads: leads}
}

// AnalyticsPayload aggregates the dashboard metrics for the caching
// decorator that fronts the route.
func (h *DashboardHandler) AnalyticsPayload(c *gin.Context) (interface{}, error) {
	user := currentUser(c)
	stats, err := h.leads.DashboardStats(c.Request.Context(), user.ID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate dashboard stats: %w", err)
	}
	return stats, nil
}
