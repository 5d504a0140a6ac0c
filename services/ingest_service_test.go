package services

import (
	"testing"

	"trade-match-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validIncoming(profileID string, score int) IncomingMatch {
	return IncomingMatch{
		ProfileID:           profileID,
		CounterpartyName:    "Harbor Foods Ltd",
		CounterpartyCountry: "GB",
		MatchScore:          score,
		MatchReasons:        []string{"Shared target markets"},
		CounterpartyContact: &models.ContactInfo{Name: "J. Price", Email: "j.price@harborfoods.example"},
	}
}

func TestImportMatchesClassifiesTierOnce(t *testing.T) {
	db := newTestDB(t)
	svc := NewIngestService(db)
	profile := createProfile(t, db, models.PlanFree)

	created, err := svc.ImportMatches([]IncomingMatch{
		validIncoming(profile.ID, 85),
		validIncoming(profile.ID, 60),
		validIncoming(profile.ID, 12),
	})
	require.NoError(t, err)
	require.Len(t, created, 3)

	assert.Equal(t, models.MatchTierBest, created[0].MatchTier)
	assert.Equal(t, models.MatchTierGreat, created[1].MatchTier)
	assert.Equal(t, models.MatchTierGood, created[2].MatchTier)

	for _, m := range created {
		assert.Equal(t, models.MatchStatusNew, m.Status)
		assert.False(t, m.Revealed)
	}
}

func TestImportMatchesValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewIngestService(db)
	profile := createProfile(t, db, models.PlanFree)

	_, err := svc.ImportMatches([]IncomingMatch{validIncoming(profile.ID, 101)})
	assert.Error(t, err)

	_, err = svc.ImportMatches([]IncomingMatch{validIncoming(profile.ID, -1)})
	assert.Error(t, err)

	_, err = svc.ImportMatches([]IncomingMatch{validIncoming("no-such-profile", 50)})
	assert.Error(t, err)

	missing := validIncoming(profile.ID, 50)
	missing.CounterpartyName = ""
	_, err = svc.ImportMatches([]IncomingMatch{missing})
	assert.Error(t, err)
}

func TestImportMatchesIsAllOrNothing(t *testing.T) {
	db := newTestDB(t)
	svc := NewIngestService(db)
	profile := createProfile(t, db, models.PlanFree)

	_, err := svc.ImportMatches([]IncomingMatch{
		validIncoming(profile.ID, 70),
		validIncoming(profile.ID, 200), // invalid — must roll back the first
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Match{}).Where("profile_id = ?", profile.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}
