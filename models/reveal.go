package models

import "time"

// MatchReveal is one entry in the append-only reveal ledger — the evidence
// that a profile spent a quota slot disclosing a match's contact details.
// The ledger is the source of truth for quota accounting; Match.Revealed is
// a denormalized cache of "a row exists here" and both are written inside
// the same transaction. Rows are never updated or deleted.
type MatchReveal struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	ProfileID  string    `gorm:"index:idx_reveals_profile_month;not null" json:"profile_id"`
	MatchID    string    `gorm:"uniqueIndex;not null" json:"match_id"`
	RevealedAt time.Time `gorm:"not null" json:"revealed_at"`
	// MonthKey is the UTC "YYYY-MM" billing period this reveal counts against.
	MonthKey string `gorm:"index:idx_reveals_profile_month;type:varchar(7);not null" json:"month_key"`
}
