package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coachassist/internal/models"

	"gorm.io/gorm"
)

var (
	_ UserStore     = (*GormUserStore)(nil)
	_ LeadStore     = (*GormLeadStore)(nil)
	_ ActivityStore = (*GormActivityStore)(nil)
)

type GormUserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *GormUserStore {
	return &GormUserStore{db: db}
}

func (s *GormUserStore) Create(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

func (s *GormUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *GormUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

type GormLeadStore struct {
	db *gorm.DB
}

func NewLeadStore(db *gorm.DB) *GormLeadStore {
	return &GormLeadStore{db: db}
}

func (s *GormLeadStore) Create(ctx context.Context, lead *models.Lead) error {
	return s.db.WithContext(ctx).Create(lead).Error
}

func (s *GormLeadStore) FindOwned(ctx context.Context, id, userID string) (*models.Lead, error) {
	var lead models.Lead
	err := s.db.WithContext(ctx).
		Where("id = ? AND assigned_to = ?", id, userID).
		First(&lead).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

// leadSortColumns whitelists user-supplied sort keys.
var leadSortColumns = map[string]string{
	"createdAt":      "created_at",
	"updatedAt":      "updated_at",
	"name":           "name",
	"status":         "status",
	"nextFollowUpAt": "next_follow_up_at",
}

func (s *GormLeadStore) List(ctx context.Context, userID string, f LeadFilter) ([]models.Lead, int64, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Page <= 0 {
		f.Page = 1
	}

	q := s.db.WithContext(ctx).Model(&models.Lead{}).Where("assigned_to = ?", userID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Tags != "" {
		q = q.Where("tags LIKE ?", "%"+f.Tags+"%")
	}
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		q = q.Where("name LIKE ? OR phone LIKE ?", pattern, pattern)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := leadSortColumns[f.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if f.SortOrder == "asc" {
		direction = "ASC"
	}

	var leads []models.Lead
	err := q.Order(fmt.Sprintf("%s %s", column, direction)).
		Limit(f.Limit).
		Offset((f.Page - 1) * f.Limit).
		Find(&leads).Error
	if err != nil {
		return nil, 0, err
	}
	if leads == nil {
		leads = []models.Lead{}
	}
	return leads, total, nil
}

func (s *GormLeadStore) Update(ctx context.Context, lead *models.Lead) error {
	return s.db.WithContext(ctx).Save(lead).Error
}

func (s *GormLeadStore) UpdateAIContent(ctx context.Context, id string, content models.AIContent) error {
	res := s.db.WithContext(ctx).Model(&models.Lead{}).
		Where("id = ?", id).
		Update("ai_generated_content", content)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormLeadStore) Delete(ctx context.Context, id, userID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND assigned_to = ?", id, userID).Delete(&models.Lead{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		// Activities only ever go away with their parent lead.
		return tx.Where("lead_id = ?", id).Delete(&models.Activity{}).Error
	})
}

func (s *GormLeadStore) DashboardStats(ctx context.Context, userID string, now time.Time) (*DashboardStats, error) {
	stats := &DashboardStats{}

	err := s.db.WithContext(ctx).Model(&models.Lead{}).
		Select("status, COUNT(*) AS count").
		Where("assigned_to = ?", userID).
		Group("status").
		Order("status").
		Scan(&stats.Funnel).Error
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(&models.Lead{}).
		Select("source, COUNT(*) AS count").
		Where("assigned_to = ?", userID).
		Group("source").
		Order("count DESC").
		Limit(10).
		Scan(&stats.TopSources).Error
	if err != nil {
		return nil, err
	}

	for _, f := range stats.Funnel {
		stats.TotalLeads += f.Count
		if f.Status == models.StatusConverted {
			stats.ConvertedLeads = f.Count
		}
	}

	err = s.db.WithContext(ctx).Model(&models.Lead{}).
		Where("assigned_to = ? AND next_follow_up_at IS NOT NULL AND next_follow_up_at < ? AND status NOT IN ?",
			userID, now, []models.LeadStatus{models.StatusLost, models.StatusConverted}).
		Count(&stats.OverdueFollowUps).Error
	if err != nil {
		return nil, err
	}

	if stats.TotalLeads > 0 {
		stats.ConversionRate = float64(stats.ConvertedLeads) / float64(stats.TotalLeads) * 100
	}
	if stats.Funnel == nil {
		stats.Funnel = []FunnelCount{}
	}
	if stats.TopSources == nil {
		stats.TopSources = []SourceCount{}
	}
	return stats, nil
}

type GormActivityStore struct {
	db *gorm.DB
}

func NewActivityStore(db *gorm.DB) *GormActivityStore {
	return &GormActivityStore{db: db}
}

func (s *GormActivityStore) Insert(ctx context.Context, activity *models.Activity) error {
	if !models.ValidActivityType(activity.Type) {
		return fmt.Errorf("invalid activity type %q", activity.Type)
	}
	if !activity.Meta.MatchesType(activity.Type) {
		return fmt.Errorf("activity meta does not match type %q", activity.Type)
	}
	if err := s.db.WithContext(ctx).Create(activity).Error; err != nil {
		return err
	}
	// Attach the creator identity the way timeline rows carry it.
	var creator models.User
	if err := s.db.WithContext(ctx).Where("id = ?", activity.CreatedBy).First(&creator).Error; err == nil {
		activity.Creator = &creator
	}
	return nil
}

func (s *GormActivityStore) Recent(ctx context.Context, leadID string, n int) ([]models.Activity, error) {
	var activities []models.Activity
	err := s.db.WithContext(ctx).
		Where("lead_id = ?", leadID).
		Order("created_at DESC, id DESC").
		Limit(n).
		Preload("Creator").
		Find(&activities).Error
	if err != nil {
		return nil, err
	}
	return activities, nil
}

func (s *GormActivityStore) Timeline(ctx context.Context, leadID string, before *time.Time, limit int) ([]models.Activity, error) {
	q := s.db.WithContext(ctx).Where("lead_id = ?", leadID)
	if before != nil {
		// Boundary filter uses created_at alone, matching the cursor the
		// reader hands out. Rows sharing the boundary timestamp can be
		// skipped across pages; the compound ORDER BY only stabilises
		// ordering within a page.
		q = q.Where("created_at < ?", *before)
	}

	var activities []models.Activity
	err := q.Order("created_at DESC, id DESC").
		Limit(limit).
		Preload("Creator").
		Find(&activities).Error
	if err != nil {
		return nil, err
	}
	return activities, nil
}
