package models

import (
	"time"

	"gorm.io/gorm"
)

// MatchTier is the coarse quality label shown to users instead of the raw score.
type MatchTier string

const (
	MatchTierBest  MatchTier = "best"
	MatchTierGreat MatchTier = "great"
	MatchTierGood  MatchTier = "good"
)

// MatchStatus is the view lifecycle state of a match, driven by the owning profile.
type MatchStatus string

const (
	MatchStatusNew        MatchStatus = "new"
	MatchStatusViewed     MatchStatus = "viewed"
	MatchStatusInterested MatchStatus = "interested"
	MatchStatusDismissed  MatchStatus = "dismissed"
)

// ClassifyTier maps a 0–100 score to its tier. Called once when the scorer's
// output is imported; the stored tier is never recomputed on read, so a
// corrected score does not silently change an existing match's tier.
func ClassifyTier(score int) MatchTier {
	switch {
	case score >= 80:
		return MatchTierBest
	case score >= 60:
		return MatchTierGreat
	default:
		return MatchTierGood
	}
}

// MatchedProduct is one product both sides trade in, snapshotted at match creation.
type MatchedProduct struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ContactInfo holds the counterparty's contact details. Gated behind reveal.
type ContactInfo struct {
	Name    string  `json:"name"`
	Title   string  `json:"title"`
	Email   string  `json:"email"`
	Phone   string  `json:"phone"`
	Website *string `json:"website,omitempty"`
}

// TradeData is always-visible trade activity info, independent of reveal state.
type TradeData struct {
	Volume      string `json:"volume"`
	Frequency   string `json:"frequency"`
	YearsActive int    `json:"years_active"`
}

// Match is one scored pairing between a trade profile and an external
// counterparty. Raw score and breakdown are internal (admin-only); clients
// only ever see tier + reasons. Contact details stay hidden until revealed.
type Match struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	ProfileID string `gorm:"index;not null" json:"profile_id"`

	CounterpartyName    string  `gorm:"not null" json:"counterparty_name"`
	CounterpartyCountry string  `gorm:"not null" json:"counterparty_country"`
	CounterpartyCity    *string `json:"counterparty_city,omitempty"`

	MatchedProducts []MatchedProduct `gorm:"type:jsonb;serializer:json" json:"matched_products"`

	// Internal-only scoring fields — never serialized to clients.
	MatchScore     int            `gorm:"not null" json:"-"`
	ScoreBreakdown map[string]int `gorm:"type:jsonb;serializer:json" json:"-"`

	MatchTier     MatchTier `gorm:"type:varchar(16);not null" json:"match_tier"`
	MatchReasons  []string  `gorm:"type:jsonb;serializer:json" json:"match_reasons"`
	MatchWarnings []string  `gorm:"type:jsonb;serializer:json" json:"match_warnings,omitempty"`

	Status   MatchStatus `gorm:"type:varchar(16);not null;default:'new'" json:"status"`
	Revealed bool        `gorm:"not null;default:false" json:"revealed"`

	CounterpartyContact *ContactInfo `gorm:"type:jsonb;serializer:json" json:"-"`
	TradeData           *TradeData   `gorm:"type:jsonb;serializer:json" json:"trade_data,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// PublicMatch is the outbound representation of a Match for non-admin callers.
type PublicMatch struct {
	ID                  string           `json:"id"`
	CounterpartyName    string           `json:"counterparty_name"`
	CounterpartyCountry string           `json:"counterparty_country"`
	CounterpartyCity    *string          `json:"counterparty_city,omitempty"`
	MatchedProducts     []MatchedProduct `json:"matched_products"`
	MatchTier           MatchTier        `json:"match_tier"`
	MatchReasons        []string         `json:"match_reasons"`
	MatchWarnings       []string         `json:"match_warnings,omitempty"`
	Status              MatchStatus      `json:"status"`
	Revealed            bool             `json:"revealed"`
	CounterpartyContact *ContactInfo     `json:"counterparty_contact"`
	TradeData           *TradeData       `json:"trade_data,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// ClientView is the single enforcement point for the visibility invariant:
// it drops MatchScore/ScoreBreakdown unconditionally and only carries the
// contact payload once the match has been revealed. Every read path that
// serializes a match for a profile owner must go through it.
func (m *Match) ClientView() PublicMatch {
	view := PublicMatch{
		ID:                  m.ID,
		CounterpartyName:    m.CounterpartyName,
		CounterpartyCountry: m.CounterpartyCountry,
		CounterpartyCity:    m.CounterpartyCity,
		MatchedProducts:     m.MatchedProducts,
		MatchTier:           m.MatchTier,
		MatchReasons:        m.MatchReasons,
		MatchWarnings:       m.MatchWarnings,
		Status:              m.Status,
		Revealed:            m.Revealed,
		TradeData:           m.TradeData,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
	if m.Revealed {
		view.CounterpartyContact = m.CounterpartyContact
	}
	return view
}
