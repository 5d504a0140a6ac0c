package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	PlanFree = "free"
	PlanPro  = "pro"
)

// TradeProduct is one product line a business trades in.
type TradeProduct struct {
	Code string `json:"code"` // HS code or internal code
	Name string `json:"name"`
}

// TradeTerms captures the commercial terms a profile offers.
type TradeTerms struct {
	Incoterms    []string `json:"incoterms,omitempty"`
	PaymentTerms string   `json:"payment_terms,omitempty"`
	MinOrderQty  string   `json:"min_order_qty,omitempty"`
}

// TradeProfile is the onboarded business identity that owns matches,
// reveals and campaigns. The onboarding wizard (external) produces this
// data; the billing service owns Plan and we mirror it via the sync worker.
type TradeProfile struct {
	ID             string  `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string  `gorm:"uniqueIndex;not null" json:"external_user_id"`
	CompanyName    string  `gorm:"not null" json:"company_name"`
	DisplayName    string  `json:"display_name"`
	Slug           string  `gorm:"uniqueIndex;not null" json:"slug"`
	Country        string  `gorm:"not null" json:"country"`
	City           *string `json:"city,omitempty"`

	// Plan gates the monthly reveal quota: "free" = 3/month, anything else unlimited.
	Plan string `gorm:"type:varchar(32);not null;default:'free'" json:"plan"`

	Products      []TradeProduct `gorm:"type:jsonb;serializer:json" json:"products"`
	TargetMarkets []string       `gorm:"type:jsonb;serializer:json" json:"target_markets"`
	TradeTerms    *TradeTerms    `gorm:"type:jsonb;serializer:json" json:"trade_terms,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Certification is a trade certification document attached to a profile
// (e.g., ISO 9001, organic, halal). The document itself lives in R2.
type Certification struct {
	ID          string     `gorm:"primaryKey;type:uuid" json:"id"`
	ProfileID   string     `gorm:"index;not null" json:"profile_id"`
	Name        string     `gorm:"not null" json:"name"`
	Issuer      string     `json:"issuer"`
	DocumentURL string     `gorm:"type:text" json:"document_url"`
	IssuedAt    *time.Time `json:"issued_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
