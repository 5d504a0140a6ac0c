package services

import (
	"errors"
	"sync"
	"time"

	"trade-match-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrMatchNotFound covers both "no such match" and "match owned by someone
// else" — callers must not be able to tell the two apart.
var ErrMatchNotFound = errors.New("match not found")

// RevealState tells the caller how a reveal attempt resolved.
type RevealState string

const (
	RevealGranted         RevealState = "granted"
	RevealAlreadyRevealed RevealState = "already_revealed"
	RevealDenied          RevealState = "denied"
)

// RevealOutcome is the typed result of a reveal attempt. Denials are
// expected outcomes, not errors; only storage failures surface as errors.
type RevealOutcome struct {
	State   RevealState
	Match   *models.Match
	Contact *models.ContactInfo
	Quota   QuotaResult
}

type MatchService struct {
	DB *gorm.DB

	// One mutex per profile ID. Reveals for the same profile share a monthly
	// quota counter and must serialize; different profiles never contend.
	profileLocks sync.Map
}

func NewMatchService(db *gorm.DB) *MatchService {
	return &MatchService{DB: db}
}

func (s *MatchService) profileLock(profileID string) *sync.Mutex {
	mu, _ := s.profileLocks.LoadOrStore(profileID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// MarkViewedIfNew advances a match from "new" to "viewed" on first detail
// access. Idempotent: any other status is left untouched. Ownership is
// enforced in the lookup so a foreign match reads as missing.
func (s *MatchService) MarkViewedIfNew(matchID, profileID string) (*models.Match, error) {
	var match models.Match
	if err := s.DB.Where("id = ? AND profile_id = ?", matchID, profileID).First(&match).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}

	if match.Status != models.MatchStatusNew {
		return &match, nil
	}

	now := time.Now().UTC()
	// Status guard in the WHERE clause keeps concurrent first-views from
	// bumping updated_at twice.
	res := s.DB.Model(&models.Match{}).
		Where("id = ? AND status = ?", match.ID, models.MatchStatusNew).
		Updates(map[string]interface{}{
			"status":     models.MatchStatusViewed,
			"updated_at": now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected > 0 {
		match.Status = models.MatchStatusViewed
		match.UpdatedAt = now
	}
	return &match, nil
}

// Reveal discloses a match's counterparty contact, spending one monthly
// quota slot. The whole check-and-write runs inside a single transaction,
// and attempts for the same profile are serialized by a per-profile mutex
// so two concurrent reveals can never both squeeze through the last slot.
//
// A second reveal on an already-revealed match is idempotent: it returns
// the stored contact without touching the ledger or the quota.
func (s *MatchService) Reveal(profileID, matchID string) (*RevealOutcome, error) {
	mu := s.profileLock(profileID)
	mu.Lock()
	defer mu.Unlock()

	var outcome *RevealOutcome
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var match models.Match
		if err := tx.Where("id = ? AND profile_id = ?", matchID, profileID).First(&match).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMatchNotFound
			}
			return err
		}

		var profile models.TradeProfile
		if err := tx.Select("id", "plan").Where("id = ?", profileID).First(&profile).Error; err != nil {
			return err
		}

		monthKey := CurrentMonthKey()
		var used int64
		if err := tx.Model(&models.MatchReveal{}).
			Where("profile_id = ? AND month_key = ?", profileID, monthKey).
			Count(&used).Error; err != nil {
			return err
		}

		if match.Revealed {
			// No ledger write, no quota decrement — just report current standing.
			quota, err := EvaluateQuota(profile.Plan, int(used))
			if err != nil {
				return err
			}
			outcome = &RevealOutcome{
				State:   RevealAlreadyRevealed,
				Match:   &match,
				Contact: match.CounterpartyContact,
				Quota:   quota,
			}
			return nil
		}

		quota, err := EvaluateQuota(profile.Plan, int(used))
		if err != nil {
			return err
		}
		if !quota.Allowed {
			outcome = &RevealOutcome{
				State: RevealDenied,
				Match: &match,
				Quota: quota,
			}
			return nil
		}

		now := time.Now().UTC()
		if err := tx.Model(&models.Match{}).
			Where("id = ?", match.ID).
			Updates(map[string]interface{}{
				"revealed":   true,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		entry := models.MatchReveal{
			ID:         uuid.NewString(),
			ProfileID:  profileID,
			MatchID:    match.ID,
			RevealedAt: now,
			MonthKey:   monthKey,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		match.Revealed = true
		match.UpdatedAt = now

		quota, err = EvaluateQuota(profile.Plan, int(used)+1)
		if err != nil {
			return err
		}
		outcome = &RevealOutcome{
			State:   RevealGranted,
			Match:   &match,
			Contact: match.CounterpartyContact,
			Quota:   quota,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// QuotaStatus evaluates the caller's reveal quota for the current month
// without consuming anything.
func (s *MatchService) QuotaStatus(profileID string) (QuotaResult, string, error) {
	var profile models.TradeProfile
	if err := s.DB.Select("id", "plan").Where("id = ?", profileID).First(&profile).Error; err != nil {
		return QuotaResult{}, "", err
	}

	monthKey := CurrentMonthKey()
	var used int64
	if err := s.DB.Model(&models.MatchReveal{}).
		Where("profile_id = ? AND month_key = ?", profileID, monthKey).
		Count(&used).Error; err != nil {
		return QuotaResult{}, "", err
	}

	quota, err := EvaluateQuota(profile.Plan, int(used))
	if err != nil {
		return QuotaResult{}, "", err
	}
	return quota, monthKey, nil
}

// UpdateStatus applies a user action (interested/dismissed) to an owned
// match. Reveal state is orthogonal: any status can still be revealed.
func (s *MatchService) UpdateStatus(matchID, profileID string, status models.MatchStatus) (*models.Match, error) {
	if status != models.MatchStatusInterested && status != models.MatchStatusDismissed {
		return nil, errors.New("status must be 'interested' or 'dismissed'")
	}

	var match models.Match
	if err := s.DB.Where("id = ? AND profile_id = ?", matchID, profileID).First(&match).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.DB.Model(&models.Match{}).
		Where("id = ?", match.ID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": now,
		}).Error; err != nil {
		return nil, err
	}
	match.Status = status
	match.UpdatedAt = now
	return &match, nil
}

// ListMatches returns a profile's matches, newest first, with optional
// status/tier filters.
func (s *MatchService) ListMatches(profileID string, status, tier string, page, size int) ([]models.Match, int64, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}

	query := s.DB.Model(&models.Match{}).Where("profile_id = ?", profileID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if tier != "" {
		query = query.Where("match_tier = ?", tier)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var matches []models.Match
	if err := query.
		Order("created_at DESC").
		Limit(size).Offset((page - 1) * size).
		Find(&matches).Error; err != nil {
		return nil, 0, err
	}
	return matches, total, nil
}
