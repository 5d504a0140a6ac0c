package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"trade-match-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.TradeProfile{},
		&models.Certification{},
		&models.Match{},
		&models.MatchReveal{},
		&models.Campaign{},
		&models.CampaignEvent{},
		&models.CampaignMonthlyStat{},
	))
	return db
}

func createProfile(t *testing.T, db *gorm.DB, plan string) *models.TradeProfile {
	t.Helper()
	profile := &models.TradeProfile{
		ID:             uuid.NewString(),
		ExternalUserID: uuid.NewString(),
		CompanyName:    "Acme Trading",
		Slug:           "acme-trading-" + uuid.NewString()[:8],
		Country:        "DE",
		Plan:           plan,
	}
	require.NoError(t, db.Create(profile).Error)
	return profile
}

func createMatch(t *testing.T, db *gorm.DB, profileID string) *models.Match {
	t.Helper()
	match := &models.Match{
		ID:                  uuid.NewString(),
		ProfileID:           profileID,
		CounterpartyName:    "Nordwind Imports",
		CounterpartyCountry: "SE",
		MatchScore:          72,
		MatchTier:           models.ClassifyTier(72),
		MatchReasons:        []string{"Overlapping product lines"},
		Status:              models.MatchStatusNew,
		CounterpartyContact: &models.ContactInfo{
			Name:  "Eva Lind",
			Title: "Purchasing Lead",
			Email: "eva@nordwind.example",
			Phone: "+46 70 555 0101",
		},
	}
	require.NoError(t, db.Create(match).Error)
	return match
}

func ledgerCount(t *testing.T, db *gorm.DB, profileID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.MatchReveal{}).Where("profile_id = ?", profileID).Count(&n).Error)
	return n
}

func TestRevealIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewMatchService(db)
	profile := createProfile(t, db, models.PlanFree)
	match := createMatch(t, db, profile.ID)

	first, err := svc.Reveal(profile.ID, match.ID)
	require.NoError(t, err)
	assert.Equal(t, RevealGranted, first.State)
	require.NotNil(t, first.Contact)
	assert.Equal(t, "eva@nordwind.example", first.Contact.Email)
	assert.Equal(t, 1, first.Quota.Used)
	assert.Equal(t, 2, first.Quota.Remaining)

	second, err := svc.Reveal(profile.ID, match.ID)
	require.NoError(t, err)
	assert.Equal(t, RevealAlreadyRevealed, second.State)
	require.NotNil(t, second.Contact)
	assert.Equal(t, "eva@nordwind.example", second.Contact.Email)
	// no quota slot consumed on repeat
	assert.Equal(t, 1, second.Quota.Used)

	assert.Equal(t, int64(1), ledgerCount(t, db, profile.ID))
}

func TestRevealQuotaMonotonicity(t *testing.T) {
	db := newTestDB(t)
	svc := NewMatchService(db)
	profile := createProfile(t, db, models.PlanFree)

	wantRemaining := []int{2, 1, 0}
	for i := 0; i < 3; i++ {
		match := createMatch(t, db, profile.ID)
		outcome, err := svc.Reveal(profile.ID, match.ID)
		require.NoError(t, err)
		require.Equal(t, RevealGranted, outcome.State, "reveal %d", i+1)
		assert.Equal(t, wantRemaining[i], outcome.Quota.Remaining, "reveal %d", i+1)
	}

	fourth := createMatch(t, db, profile.ID)
	outcome, err := svc.Reveal(profile.ID, fourth.ID)
	require.NoError(t, err)
	assert.Equal(t, RevealDenied, outcome.State)
	assert.Equal(t, 0, outcome.Quota.Remaining)
	assert.False(t, outcome.Quota.Allowed)
	assert.Nil(t, outcome.Contact)

	// denial must not mutate anything
	var reloaded models.Match
	require.NoError(t, db.First(&reloaded, "id = ?", fourth.ID).Error)
	assert.False(t, reloaded.Revealed)
	assert.Equal(t, int64(3), ledgerCount(t, db, profile.ID))
}

func TestRevealUnlimitedPlanBypassesQuota(t *testing.T) {
	db := newTestDB(t)
	svc := NewMatchService(db)
	profile := createProfile(t, db, models.PlanPro)

	for i := 0; i < 50; i++ {
		match := createMatch(t, db, profile.ID)
		outcome, err := svc.Reveal(profile.ID, match.ID)
		require.NoError(t, err)
		require.Equal(t, RevealGranted, outcome.State, "reveal %d", i+1)
		assert.True(t, outcome.Quota.Unlimited)
	}
	assert.Equal(t, int64(50), ledgerCount(t, db, profile.ID))
}

func TestConcurrentRevealsNeverOvershootQuota(t *testing.T) {
	db := newTestDB(t)
	svc := NewMatchService(db)
	profile := createProfile(t, db, models.PlanFree)

	// burn two of the three slots
	for i := 0; i < 2; i++ {
		match := createMatch(t, db, profile.ID)
		outcome, err := svc.Reveal(profile.ID, match.ID)
		require.NoError(t, err)
		require.Equal(t, RevealGranted, outcome.State)
	}

	a := createMatch(t, db, profile.ID)
	b := createMatch(t, db, profile.ID)

	outcomes := make([]*RevealOutcome, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	for i, matchID := range []string{a.ID, b.ID} {
		go func(i int, matchID string) {
			defer wg.Done()
			outcomes[i], errs[i] = svc.Reveal(profile.ID, matchID)
		}(i, matchID)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	granted, denied := 0, 0
	for _, o := range outcomes {
		switch o.State {
		case RevealGranted:
			granted++
		case RevealDenied:
			denied++
		}
	}
	assert.Equal(t, 1, granted, "exactly one of the two concurrent reveals may win the last slot")
	assert.Equal(t, 1, denied)
	assert.Equal(t, int64(3), ledgerCount(t, db, profile.ID))
}

func TestRevealNotFoundAndForeignOwnership(t *testing.T) {
	db := newTestDB(t)
	svc := NewMatchService(db)
	owner := createProfile(t, db, models.PlanFree)
	other := createProfile(t, db, models.PlanFree)
	match := createMatch(t, db, owner.ID)

	// nonexistent id and foreign-owned match are indistinguishable
	_, err := svc.Reveal(owner.ID, uuid.NewString())
	assert.ErrorIs(t, err, ErrMatchNotFound)

	_, err = svc.Reveal(other.ID, match.ID)
	assert.ErrorIs(t, err, ErrMatchNotFound)

	var reloaded models.Match
	require.NoError(t, db.First(&reloaded, "id = ?", match.ID).Error)
	assert.False(t, reloaded.Revealed)
}

func TestRevealWithoutContactPayload(t *testing.T) {
	db := newTestDB(t)
	svc := NewMatchService(db)
	profile := createProfile(t, db, models.PlanFree)

	match := createMatch(t, db, profile.ID)
	require.NoError(t, db.Model(&models.Match{}).Where("id = ?", match.ID).
		Update("counterparty_contact", nil).Error)

	outcome, err := svc.Reveal(profile.ID, match.ID)
	require.NoError(t, err)
	assert.Equal(t, RevealGranted, outcome.State)
	assert.Nil(t, outcome.Contact, "absent contact is a valid revealed state")
}

func TestMonthRolloverResetsQuota(t *testing.T) {
	db := newTestDB(t)
	svc := NewMatchService(db)
	profile := createProfile(t, db, models.PlanFree)

	// three exhausted slots — all from a previous month
	lastMonth := time.Now().UTC().AddDate(0, -1, 0)
	for i := 0; i < 3; i++ {
		m := createMatch(t, db, profile.ID)
		require.NoError(t, db.Model(&models.Match{}).Where("id = ?", m.ID).Update("revealed", true).Error)
		require.NoError(t, db.Create(&models.MatchReveal{
			ID:         uuid.NewString(),
			ProfileID:  profile.ID,
			MatchID:    m.ID,
			RevealedAt: lastMonth,
			MonthKey:   MonthKeyAt(lastMonth),
		}).Error)
	}

	match := createMatch(t, db, profile.ID)
	outcome, err := svc.Reveal(profile.ID, match.ID)
	require.NoError(t, err)
	assert.Equal(t, RevealGranted, outcome.State)
	assert.Equal(t, 1, outcome.Quota.Used, "last month's reveals must not count")
	assert.Equal(t, 2, outcome.Quota.Remaining)
}

func TestMarkViewedIfNew(t *testing.T) {
	db := newTestDB(t)
	svc := NewMatchService(db)
	profile := createProfile(t, db, models.PlanFree)
	match := createMatch(t, db, profile.ID)

	viewed, err := svc.MarkViewedIfNew(match.ID, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusViewed, viewed.Status)

	// second call is a no-op
	again, err := svc.MarkViewedIfNew(match.ID, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusViewed, again.Status)

	// terminal statuses are never rewound
	for _, status := range []models.MatchStatus{models.MatchStatusInterested, models.MatchStatusDismissed} {
		require.NoError(t, db.Model(&models.Match{}).Where("id = ?", match.ID).Update("status", status).Error)
		got, err := svc.MarkViewedIfNew(match.ID, profile.ID)
		require.NoError(t, err)
		assert.Equal(t, status, got.Status)
	}

	// no side effects on reveal state or ledger
	var reloaded models.Match
	require.NoError(t, db.First(&reloaded, "id = ?", match.ID).Error)
	assert.False(t, reloaded.Revealed)
	assert.Equal(t, int64(0), ledgerCount(t, db, profile.ID))
}

func TestMarkViewedNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := NewMatchService(db)
	owner := createProfile(t, db, models.PlanFree)
	other := createProfile(t, db, models.PlanFree)
	match := createMatch(t, db, owner.ID)

	_, err := svc.MarkViewedIfNew(uuid.NewString(), owner.ID)
	assert.ErrorIs(t, err, ErrMatchNotFound)

	_, err = svc.MarkViewedIfNew(match.ID, other.ID)
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestUpdateStatus(t *testing.T) {
	db := newTestDB(t)
	svc := NewMatchService(db)
	profile := createProfile(t, db, models.PlanFree)
	match := createMatch(t, db, profile.ID)

	updated, err := svc.UpdateStatus(match.ID, profile.ID, models.MatchStatusInterested)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusInterested, updated.Status)

	// reveal stays orthogonal to status — a dismissed match can be revealed
	_, err = svc.UpdateStatus(match.ID, profile.ID, models.MatchStatusDismissed)
	require.NoError(t, err)
	outcome, err := svc.Reveal(profile.ID, match.ID)
	require.NoError(t, err)
	assert.Equal(t, RevealGranted, outcome.State)

	_, err = svc.UpdateStatus(match.ID, profile.ID, models.MatchStatusViewed)
	assert.Error(t, err, "only interested/dismissed are user actions")
}

func TestQuotaStatus(t *testing.T) {
	db := newTestDB(t)
	svc := NewMatchService(db)
	profile := createProfile(t, db, models.PlanFree)

	quota, monthKey, err := svc.QuotaStatus(profile.ID)
	require.NoError(t, err)
	assert.Equal(t, CurrentMonthKey(), monthKey)
	assert.Equal(t, 0, quota.Used)
	assert.Equal(t, 3, quota.Remaining)

	match := createMatch(t, db, profile.ID)
	_, err = svc.Reveal(profile.ID, match.ID)
	require.NoError(t, err)

	quota, _, err = svc.QuotaStatus(profile.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, quota.Used)
	assert.Equal(t, 2, quota.Remaining)
}

func TestListMatchesFilters(t *testing.T) {
	db := newTestDB(t)
	svc := NewMatchService(db)
	profile := createProfile(t, db, models.PlanFree)
	other := createProfile(t, db, models.PlanFree)

	for i := 0; i < 3; i++ {
		createMatch(t, db, profile.ID)
	}
	createMatch(t, db, other.ID)

	matches, total, err := svc.ListMatches(profile.ID, "", "", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, matches, 3)
	for _, m := range matches {
		assert.Equal(t, profile.ID, m.ProfileID)
	}

	matches, total, err = svc.ListMatches(profile.ID, string(models.MatchStatusDismissed), "", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Empty(t, matches)

	matches, _, err = svc.ListMatches(profile.ID, "", string(models.MatchTierGreat), 1, 20)
	require.NoError(t, err)
	assert.Len(t, matches, 3, "all fixtures score into the great tier")
}
