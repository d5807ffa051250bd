package store

import (
	"context"
	"errors"
	"time"

	"coachassist/internal/models"
)

// ErrNotFound is returned when a row does not exist or is not owned by the
// requesting user. Callers cannot tell the two apart by design.
var ErrNotFound = errors.New("record not found")

// LeadFilter narrows and pages a lead listing.
type LeadFilter struct {
	Status    models.LeadStatus
	Tags      string
	Search    string
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

// FunnelCount is one status bucket of the dashboard funnel.
type FunnelCount struct {
	Status models.LeadStatus `json:"status"`
	Count  int64             `json:"count"`
}

// SourceCount is one entry of the top-sources breakdown.
type SourceCount struct {
	Source models.LeadSource `json:"source"`
	Count  int64             `json:"count"`
}

// DashboardStats aggregates a user's leads for the dashboard.
type DashboardStats struct {
	Funnel           []FunnelCount `json:"funnel"`
	TopSources       []SourceCount `json:"topSources"`
	TotalLeads       int64         `json:"totalLeads"`
	ConvertedLeads   int64         `json:"convertedLeads"`
	OverdueFollowUps int64         `json:"overdueFollowUps"`
	ConversionRate   float64       `json:"conversionRate"`
}

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type LeadStore interface {
	Create(ctx context.Context, lead *models.Lead) error
	// FindOwned returns the lead only when it is assigned to userID.
	FindOwned(ctx context.Context, id, userID string) (*models.Lead, error)
	List(ctx context.Context, userID string, f LeadFilter) ([]models.Lead, int64, error)
	Update(ctx context.Context, lead *models.Lead) error
	// UpdateAIContent overwrites the lead's AI content block wholesale.
	UpdateAIContent(ctx context.Context, id string, content models.AIContent) error
	// Delete removes an owned lead and cascades its activities.
	Delete(ctx context.Context, id, userID string) error
	DashboardStats(ctx context.Context, userID string, now time.Time) (*DashboardStats, error)
}

type ActivityStore interface {
	Insert(ctx context.Context, activity *models.Activity) error
	// Recent returns the newest n activities for a lead, newest first.
	Recent(ctx context.Context, leadID string, n int) ([]models.Activity, error)
	// Timeline pages activities ordered by (created_at DESC, id DESC).
	// When before is set, only rows strictly older than it are returned.
	// Fetches up to limit rows; callers overfetch by one to detect more.
	Timeline(ctx context.Context, leadID string, before *time.Time, limit int) ([]models.Activity, error)
}
