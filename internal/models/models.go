package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LeadSource is where a lead came from.
type LeadSource string

const (
	SourceInstagram LeadSource = "Instagram"
	SourceReferral  LeadSource = "Referral"
	SourceAds       LeadSource = "Ads"
	SourceWebsite   LeadSource = "Website"
	SourceOther     LeadSource = "Other"
)

// LeadStatus is a stage in the sales funnel, ordered NEW -> LOST.
type LeadStatus string

const (
	StatusNew        LeadStatus = "NEW"
	StatusContacted  LeadStatus = "CONTACTED"
	StatusInterested LeadStatus = "INTERESTED"
	StatusConverted  LeadStatus = "CONVERTED"
	StatusLost       LeadStatus = "LOST"
)

// ValidSource reports whether s is one of the five known lead sources.
func ValidSource(s LeadSource) bool {
	switch s {
	case SourceInstagram, SourceReferral, SourceAds, SourceWebsite, SourceOther:
		return true
	}
	return false
}

// ValidStatus reports whether s is one of the five funnel stages.
func ValidStatus(s LeadStatus) bool {
	switch s {
	case StatusNew, StatusContacted, StatusInterested, StatusConverted, StatusLost:
		return true
	}
	return false
}

// User represents a coach account.
type User struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	Email        string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// AIContent is the generated follow-up block embedded in a lead. It is always
// written wholesale by the last successful generation, never merged.
type AIContent struct {
	WhatsappMessage   string     `json:"whatsappMessage"`
	CallScript        []string   `json:"callScript"`
	ObjectionHandling string     `json:"objectionHandling"`
	LastGeneratedAt   *time.Time `json:"lastGeneratedAt,omitempty"`
}

func (c AIContent) Value() (driver.Value, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c *AIContent) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	}
	return fmt.Errorf("unsupported ai content column type %T", value)
}

// Lead represents a prospective client tracked through the funnel.
type Lead struct {
	ID             string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name           string     `gorm:"type:varchar(255);not null" json:"name"`
	Phone          string     `gorm:"type:varchar(50);not null;index" json:"phone"`
	Source         LeadSource `gorm:"type:varchar(50);not null" json:"source"`
	Status         LeadStatus `gorm:"type:varchar(20);not null;default:'NEW';index:idx_leads_owner_status,priority:2" json:"status"`
	Tags           string     `gorm:"type:text" json:"tags"`
	AssignedTo     string     `gorm:"type:varchar(36);not null;index:idx_leads_owner_status,priority:1" json:"assigned_to"`
	NextFollowUpAt *time.Time `json:"next_follow_up_at"`
	AIContent      *AIContent `gorm:"column:ai_generated_content;type:text" json:"ai_generated_content,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Lead) TableName() string {
	return "leads"
}

func (l *Lead) BeforeCreate(*gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// ActivityType classifies a timeline entry.
type ActivityType string

const (
	ActivityCall           ActivityType = "CALL"
	ActivityWhatsApp       ActivityType = "WHATSAPP"
	ActivityNote           ActivityType = "NOTE"
	ActivityStatusChange   ActivityType = "STATUS_CHANGE"
	ActivityAIMsgGenerated ActivityType = "AI_MESSAGE_GENERATED"
)

// ValidActivityType reports whether t is a known activity type.
func ValidActivityType(t ActivityType) bool {
	switch t {
	case ActivityCall, ActivityWhatsApp, ActivityNote, ActivityStatusChange, ActivityAIMsgGenerated:
		return true
	}
	return false
}

// CallMeta carries the details of a logged call.
type CallMeta struct {
	DurationSeconds *int `json:"durationSeconds,omitempty"`
}

// StatusChangeMeta records a funnel transition.
type StatusChangeMeta struct {
	PreviousStatus LeadStatus `json:"previousStatus"`
	NewStatus      LeadStatus `json:"newStatus"`
}

// GeneratedContentMeta snapshots the AI content at generation time so the
// timeline stays auditable after the lead's block is overwritten.
type GeneratedContentMeta struct {
	WhatsappMessage   string   `json:"whatsappMessage"`
	CallScript        []string `json:"callScript"`
	ObjectionHandling string   `json:"objectionHandling"`
}

// ActivityMeta is a tagged union over the known per-type metadata shapes.
// At most one variant is set, and it must match the activity type.
type ActivityMeta struct {
	Call             *CallMeta             `json:"call,omitempty"`
	StatusChange     *StatusChangeMeta     `json:"statusChange,omitempty"`
	GeneratedContent *GeneratedContentMeta `json:"generatedContent,omitempty"`
}

// Empty reports whether no variant is set.
func (m ActivityMeta) Empty() bool {
	return m.Call == nil && m.StatusChange == nil && m.GeneratedContent == nil
}

// MatchesType reports whether the populated variant is allowed for t.
func (m ActivityMeta) MatchesType(t ActivityType) bool {
	if m.Empty() {
		return true
	}
	switch t {
	case ActivityCall:
		return m.StatusChange == nil && m.GeneratedContent == nil
	case ActivityStatusChange:
		return m.Call == nil && m.GeneratedContent == nil
	case ActivityAIMsgGenerated:
		return m.Call == nil && m.StatusChange == nil
	}
	return false
}

func (m ActivityMeta) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *ActivityMeta) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	}
	return fmt.Errorf("unsupported activity meta column type %T", value)
}

// Activity represents an immutable timeline event attached to a lead.
// Rows are never updated after creation; they are deleted only when the
// parent lead is deleted.
type Activity struct {
	ID          string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	LeadID      string       `gorm:"type:varchar(36);not null;index:idx_activities_lead_created,priority:1" json:"lead_id"`
	Type        ActivityType `gorm:"type:varchar(50);not null" json:"type"`
	Description string       `gorm:"type:text;not null" json:"description"`
	Meta        ActivityMeta `gorm:"type:text" json:"meta"`
	CreatedBy   string       `gorm:"type:varchar(36);not null" json:"created_by"`
	Creator     *User        `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	CreatedAt   time.Time    `gorm:"autoCreateTime;index:idx_activities_lead_created,priority:2" json:"created_at"`
}

func (Activity) TableName() string {
	return "activities"
}

func (a *Activity) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
