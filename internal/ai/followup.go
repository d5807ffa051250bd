package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"coachassist/internal/models"
	"coachassist/internal/ratelimit"
	"coachassist/internal/store"
)

// Cache patterns cleared after a successful generation. Generation can change
// dashboard-visible content, so clearing more than strictly necessary is the
// safe choice.
var invalidationPatterns = []string{
	"dashboard:{userID}:*",
	"cache:*:{userID}:*",
}

// QuotaChecker gates generation requests per user.
type QuotaChecker interface {
	Check(ctx context.Context, userID string) ratelimit.Result
}

// CacheInvalidator clears a user's cached responses.
type CacheInvalidator interface {
	InvalidateUser(ctx context.Context, userID string, patterns ...string)
}

// FollowUpResult is the outcome of one successful generation.
type FollowUpResult struct {
	Lead     *models.Lead     `json:"lead"`
	Content  models.AIContent `json:"aiContent"`
	Activity *models.Activity `json:"activity"`
}

// FollowUpService orchestrates the generation pipeline:
// quota -> context -> generate -> normalize -> persist -> invalidate.
// Nothing is written before normalization succeeds; the caller never sees
// partial AI content.
type FollowUpService struct {
	leads      store.LeadStore
	activities store.ActivityStore
	generator  Generator
	quota      QuotaChecker
	cache      CacheInvalidator
	now        func() time.Time
}

func NewFollowUpService(leads store.LeadStore, activities store.ActivityStore, generator Generator, quota QuotaChecker, cache CacheInvalidator) *FollowUpService {
	return &FollowUpService{
		leads:      leads,
		activities: activities,
		generator:  generator,
		quota:      quota,
		cache:      cache,
		now:        time.Now,
	}
}

// WithClock overrides the clock, for tests.
func (s *FollowUpService) WithClock(now func() time.Time) *FollowUpService {
	s.now = now
	return s
}

// GenerateFollowUp runs one end-to-end generation for an owned lead.
func (s *FollowUpService) GenerateFollowUp(ctx context.Context, leadID, userID string) (*FollowUpResult, error) {
	lead, err := s.leads.FindOwned(ctx, leadID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("failed to load lead: %w", err)
	}

	if res := s.quota.Check(ctx, userID); !res.Allowed {
		return nil, &QuotaExceededError{RetryAfter: res.RetryAfter}
	}

	recent, err := s.activities.Recent(ctx, lead.ID, maxPromptActivities)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent activities: %w", err)
	}

	raw, err := s.generator.Generate(ctx, lead, recent)
	if err != nil {
		return nil, err
	}

	content, err := Normalize(raw, lead.Status)
	if err != nil {
		return nil, err
	}

	generatedAt := s.now().UTC()
	content.LastGeneratedAt = &generatedAt
	if err := s.leads.UpdateAIContent(ctx, lead.ID, content); err != nil {
		return nil, fmt.Errorf("failed to persist ai content: %w", err)
	}
	lead.AIContent = &content

	activity := &models.Activity{
		LeadID:      lead.ID,
		Type:        models.ActivityAIMsgGenerated,
		Description: "AI follow-up content generated",
		Meta: models.ActivityMeta{
			GeneratedContent: &models.GeneratedContentMeta{
				WhatsappMessage:   content.WhatsappMessage,
				CallScript:        content.CallScript,
				ObjectionHandling: content.ObjectionHandling,
			},
		},
		CreatedBy: userID,
	}
	if err := s.activities.Insert(ctx, activity); err != nil {
		// The lead write stands; the timeline misses one audit row until
		// the next generation. Not rolled back.
		log.Printf("Failed to record generation activity for lead %s: %v", lead.ID, err)
		activity = nil
	}

	s.cache.InvalidateUser(ctx, userID, invalidationPatterns...)

	return &FollowUpResult{Lead: lead, Content: content, Activity: activity}, nil
}

// Timeline pages an owned lead's activity history. The cursor is the
// createdAt of the last item on the previous page; rows strictly older than
// it form the next page.
func (s *FollowUpService) Timeline(ctx context.Context, leadID, userID string, cursor *time.Time, limit int) ([]models.Activity, *time.Time, bool, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	if _, err := s.leads.FindOwned(ctx, leadID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, false, ErrLeadNotFound
		}
		return nil, nil, false, fmt.Errorf("failed to load lead: %w", err)
	}

	// Overfetch one row to learn whether another page exists without a
	// second count query.
	activities, err := s.activities.Timeline(ctx, leadID, cursor, limit+1)
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to load timeline: %w", err)
	}

	hasMore := len(activities) > limit
	if hasMore {
		activities = activities[:limit]
	}
	if activities == nil {
		activities = []models.Activity{}
	}

	var nextCursor *time.Time
	if len(activities) > 0 {
		last := activities[len(activities)-1].CreatedAt
		nextCursor = &last
	}
	return activities, nextCursor, hasMore, nil
}
