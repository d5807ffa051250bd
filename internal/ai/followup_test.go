package ai

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"coachassist/internal/database"
	"coachassist/internal/models"
	"coachassist/internal/ratelimit"
	"coachassist/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeGenerator struct {
	raw string
	err error

	gotLead   *models.Lead
	gotRecent []models.Activity
}

var _ Generator = (*fakeGenerator)(nil)

func (f *fakeGenerator) Generate(ctx context.Context, lead *models.Lead, recent []models.Activity) (string, error) {
	f.gotLead = lead
	f.gotRecent = recent
	return f.raw, f.err
}

type noopInvalidator struct {
	gotUser     string
	gotPatterns []string
}

func (n *noopInvalidator) InvalidateUser(ctx context.Context, userID string, patterns ...string) {
	n.gotUser = userID
	n.gotPatterns = patterns
}

type fixture struct {
	db         *gorm.DB
	leads      *store.GormLeadStore
	activities *store.GormActivityStore
	cache      *noopInvalidator
	generator  *fakeGenerator
	service    *FollowUpService
	user       *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	f := &fixture{
		db:         db,
		leads:      store.NewLeadStore(db),
		activities: store.NewActivityStore(db),
		cache:      &noopInvalidator{},
		generator:  &fakeGenerator{},
	}
	f.service = NewFollowUpService(f.leads, f.activities, f.generator, ratelimit.NewQuotaTracker(rdb, 5), f.cache)

	f.user = &models.User{Name: "Coach", Email: "coach@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(f.user).Error)
	return f
}

func (f *fixture) createLead(t *testing.T, status models.LeadStatus) *models.Lead {
	t.Helper()
	lead := &models.Lead{
		Name:       "Jane Doe",
		Phone:      "+3620555111",
		Source:     models.SourceReferral,
		Status:     status,
		AssignedTo: f.user.ID,
	}
	require.NoError(t, f.db.Create(lead).Error)
	return lead
}

func TestGenerateFollowUp_HappyPath(t *testing.T) {
	f := newFixture(t)
	lead := f.createLead(t, models.StatusInterested)
	f.generator.raw = `{"whatsappMessage":"Hi Jane, checking in!","callScript":["Ask about goals","Confirm schedule","Offer trial"],"objectionHandling":"Question: too expensive?\nAnswer: we offer flexible plans\nExtra line"}`

	result, err := f.service.GenerateFollowUp(t.Context(), lead.ID, f.user.ID)
	require.NoError(t, err)

	// Third objection line dropped.
	assert.Equal(t, "Question: too expensive?\nAnswer: we offer flexible plans", result.Content.ObjectionHandling)
	assert.Equal(t, "Hi Jane, checking in!", result.Content.WhatsappMessage)
	require.NotNil(t, result.Content.LastGeneratedAt)

	// AI content persisted on the lead wholesale.
	var persisted models.Lead
	require.NoError(t, f.db.First(&persisted, "id = ?", lead.ID).Error)
	require.NotNil(t, persisted.AIContent)
	assert.Equal(t, result.Content.WhatsappMessage, persisted.AIContent.WhatsappMessage)

	// Exactly one AI_MESSAGE_GENERATED activity with a content snapshot.
	var activities []models.Activity
	require.NoError(t, f.db.Where("lead_id = ? AND type = ?", lead.ID, models.ActivityAIMsgGenerated).Find(&activities).Error)
	require.Len(t, activities, 1)
	require.NotNil(t, activities[0].Meta.GeneratedContent)
	assert.Equal(t, result.Content.WhatsappMessage, activities[0].Meta.GeneratedContent.WhatsappMessage)

	// User caches invalidated.
	assert.Equal(t, f.user.ID, f.cache.gotUser)
	assert.NotEmpty(t, f.cache.gotPatterns)
}

func TestGenerateFollowUp_NonInterestedLeadGetsNoObjectionHandling(t *testing.T) {
	f := newFixture(t)
	lead := f.createLead(t, models.StatusNew)
	f.generator.raw = `{"whatsappMessage":"Hi","callScript":["a"],"objectionHandling":"Question: x?\nAnswer: y"}`

	result, err := f.service.GenerateFollowUp(t.Context(), lead.ID, f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, result.Content.ObjectionHandling)

	var persisted models.Lead
	require.NoError(t, f.db.First(&persisted, "id = ?", lead.ID).Error)
	require.NotNil(t, persisted.AIContent)
	assert.Empty(t, persisted.AIContent.ObjectionHandling)
}

func TestGenerateFollowUp_MalformedOutputWritesNothing(t *testing.T) {
	f := newFixture(t)
	lead := f.createLead(t, models.StatusInterested)
	f.generator.raw = "I'm sorry, I can't help with that."

	_, err := f.service.GenerateFollowUp(t.Context(), lead.ID, f.user.ID)
	assert.ErrorIs(t, err, ErrMalformedResponse)

	var persisted models.Lead
	require.NoError(t, f.db.First(&persisted, "id = ?", lead.ID).Error)
	assert.Nil(t, persisted.AIContent)

	var count int64
	require.NoError(t, f.db.Model(&models.Activity{}).Where("lead_id = ?", lead.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestGenerateFollowUp_UnownedLead(t *testing.T) {
	f := newFixture(t)
	other := &models.User{Name: "Other", Email: "other@example.com", PasswordHash: "x"}
	require.NoError(t, f.db.Create(other).Error)

	lead := &models.Lead{Name: "X", Phone: "1", Source: models.SourceAds, Status: models.StatusNew, AssignedTo: other.ID}
	require.NoError(t, f.db.Create(lead).Error)

	_, err := f.service.GenerateFollowUp(t.Context(), lead.ID, f.user.ID)
	assert.ErrorIs(t, err, ErrLeadNotFound)
}

func TestGenerateFollowUp_QuotaExhausted(t *testing.T) {
	f := newFixture(t)
	lead := f.createLead(t, models.StatusContacted)
	f.generator.raw = `{"whatsappMessage":"Hi","callScript":[],"objectionHandling":""}`

	for i := 0; i < 5; i++ {
		_, err := f.service.GenerateFollowUp(t.Context(), lead.ID, f.user.ID)
		require.NoError(t, err, "call %d", i+1)
	}

	_, err := f.service.GenerateFollowUp(t.Context(), lead.ID, f.user.ID)
	var quotaErr *QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.Greater(t, quotaErr.RetryAfter, time.Duration(0))
}

func TestGenerateFollowUp_GeneratorErrorsPassThrough(t *testing.T) {
	f := newFixture(t)
	lead := f.createLead(t, models.StatusNew)
	f.generator.err = ErrNotConfigured

	_, err := f.service.GenerateFollowUp(t.Context(), lead.ID, f.user.ID)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestGenerateFollowUp_UsesRecentActivitiesAsContext(t *testing.T) {
	f := newFixture(t)
	lead := f.createLead(t, models.StatusInterested)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, f.db.Create(&models.Activity{
			LeadID:      lead.ID,
			Type:        models.ActivityNote,
			Description: fmt.Sprintf("note %d", i),
			CreatedBy:   f.user.ID,
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		}).Error)
	}

	f.generator.raw = `{"whatsappMessage":"Hi","callScript":[],"objectionHandling":""}`
	_, err := f.service.GenerateFollowUp(t.Context(), lead.ID, f.user.ID)
	require.NoError(t, err)

	require.Len(t, f.generator.gotRecent, 3)
	assert.Equal(t, "note 4", f.generator.gotRecent[0].Description)
	assert.Equal(t, "note 2", f.generator.gotRecent[2].Description)
}

func TestTimeline_Pagination(t *testing.T) {
	f := newFixture(t)
	lead := f.createLead(t, models.StatusNew)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		require.NoError(t, f.db.Create(&models.Activity{
			LeadID:      lead.ID,
			Type:        models.ActivityNote,
			Description: fmt.Sprintf("note %d", i),
			CreatedBy:   f.user.ID,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}).Error)
	}

	items, cursor, hasMore, err := f.service.Timeline(t.Context(), lead.ID, f.user.ID, nil, 20)
	require.NoError(t, err)
	assert.Len(t, items, 20)
	assert.True(t, hasMore)
	require.NotNil(t, cursor)
	assert.Equal(t, "note 24", items[0].Description)

	rest, _, hasMore, err := f.service.Timeline(t.Context(), lead.ID, f.user.ID, cursor, 20)
	require.NoError(t, err)
	assert.Len(t, rest, 5)
	assert.False(t, hasMore)
	assert.Equal(t, "note 4", rest[0].Description)
	assert.Equal(t, "note 0", rest[4].Description)
}

func TestTimeline_UnownedLead(t *testing.T) {
	f := newFixture(t)

	_, _, _, err := f.service.Timeline(t.Context(), "missing", f.user.ID, nil, 20)
	assert.ErrorIs(t, err, ErrLeadNotFound)
}

func TestTimeline_EnrichesCreatorIdentity(t *testing.T) {
	f := newFixture(t)
	lead := f.createLead(t, models.StatusNew)
	require.NoError(t, f.db.Create(&models.Activity{
		LeadID:      lead.ID,
		Type:        models.ActivityCall,
		Description: "called",
		CreatedBy:   f.user.ID,
	}).Error)

	items, _, _, err := f.service.Timeline(t.Context(), lead.ID, f.user.ID, nil, 20)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Creator)
	assert.Equal(t, "Coach", items[0].Creator.Name)
	assert.Equal(t, "coach@example.com", items[0].Creator.Email)
}
