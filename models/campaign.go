package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CampaignStatus string

const (
	CampaignStatusDraft  CampaignStatus = "draft"
	CampaignStatusActive CampaignStatus = "active"
	CampaignStatusPaused CampaignStatus = "paused"
)

type CampaignEventType string

const (
	CampaignEventSent  CampaignEventType = "sent"
	CampaignEventOpen  CampaignEventType = "open"
	CampaignEventClick CampaignEventType = "click"
	CampaignEventReply CampaignEventType = "reply"
)

// Campaign is an outreach campaign a profile runs against its matches.
// Rendering and delivery happen in the email service; we only track
// engagement here.
type Campaign struct {
	ID        string         `gorm:"primaryKey;type:uuid" json:"id"`
	ProfileID string         `gorm:"index;not null" json:"profile_id"`
	Name      string         `gorm:"not null" json:"name"`
	Subject   string         `json:"subject"`
	Status    CampaignStatus `gorm:"type:varchar(16);not null;default:'draft'" json:"status"`
	Metadata  datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"` // free-form, set by the email service
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// CampaignEvent is one engagement signal (send/open/click/reply), append-only.
type CampaignEvent struct {
	ID         string            `gorm:"primaryKey;type:uuid" json:"id"`
	CampaignID string            `gorm:"index;not null" json:"campaign_id"`
	MatchID    *string           `gorm:"index" json:"match_id,omitempty"`
	EventType  CampaignEventType `gorm:"type:varchar(16);not null" json:"event_type"`
	OccurredAt time.Time         `gorm:"not null" json:"occurred_at"`
	CreatedAt  time.Time         `json:"created_at"`
}

// CampaignMonthlyStat is the per-month rollup the scheduler maintains so the
// dashboard doesn't re-aggregate the event table on every load.
type CampaignMonthlyStat struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	CampaignID string    `gorm:"uniqueIndex:idx_campaign_month;not null" json:"campaign_id"`
	MonthKey   string    `gorm:"uniqueIndex:idx_campaign_month;type:varchar(7);not null" json:"month_key"`
	Sent       int64     `json:"sent"`
	Opens      int64     `json:"opens"`
	Clicks     int64     `json:"clicks"`
	Replies    int64     `json:"replies"`
	ComputedAt time.Time `json:"computed_at"`
}
