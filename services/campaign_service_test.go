package services

import (
	"testing"
	"time"

	"trade-match-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createCampaign(t *testing.T, db *gorm.DB, profileID string) *models.Campaign {
	t.Helper()
	campaign := &models.Campaign{
		ID:        uuid.NewString(),
		ProfileID: profileID,
		Name:      "Q3 Outreach",
		Status:    models.CampaignStatusActive,
	}
	require.NoError(t, db.Create(campaign).Error)
	return campaign
}

func addEvent(t *testing.T, db *gorm.DB, campaignID string, evType models.CampaignEventType, at time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&models.CampaignEvent{
		ID:         uuid.NewString(),
		CampaignID: campaignID,
		EventType:  evType,
		OccurredAt: at,
	}).Error)
}

func TestCampaignMetricsAggregation(t *testing.T) {
	db := newTestDB(t)
	svc := NewCampaignService(db)
	profile := createProfile(t, db, models.PlanFree)
	campaign := createCampaign(t, db, profile.ID)

	now := time.Now().UTC()
	addEvent(t, db, campaign.ID, models.CampaignEventSent, now)
	addEvent(t, db, campaign.ID, models.CampaignEventSent, now)
	addEvent(t, db, campaign.ID, models.CampaignEventOpen, now)
	addEvent(t, db, campaign.ID, models.CampaignEventClick, now)
	addEvent(t, db, campaign.ID, models.CampaignEventReply, now)

	m, err := svc.metricsFor(campaign.ID, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), m.Sent)
	assert.Equal(t, int64(1), m.Opens)
	assert.Equal(t, int64(1), m.Clicks)
	assert.Equal(t, int64(1), m.Replies)
}

func TestCampaignMetricsMonthFilter(t *testing.T) {
	db := newTestDB(t)
	svc := NewCampaignService(db)
	profile := createProfile(t, db, models.PlanFree)
	campaign := createCampaign(t, db, profile.ID)

	now := time.Now().UTC()
	addEvent(t, db, campaign.ID, models.CampaignEventOpen, now)
	addEvent(t, db, campaign.ID, models.CampaignEventOpen, now.AddDate(0, -1, 0))

	m, err := svc.metricsFor(campaign.ID, MonthKeyAt(now))
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.Opens, "last month's event must not count")
}

func TestRollupUpsertsOneRowPerMonth(t *testing.T) {
	db := newTestDB(t)
	svc := NewCampaignService(db)
	profile := createProfile(t, db, models.PlanFree)
	campaign := createCampaign(t, db, profile.ID)

	now := time.Now().UTC()
	addEvent(t, db, campaign.ID, models.CampaignEventSent, now)

	svc.RollupCurrentMonth()
	addEvent(t, db, campaign.ID, models.CampaignEventOpen, now)
	svc.RollupCurrentMonth()

	var stats []models.CampaignMonthlyStat
	require.NoError(t, db.Where("campaign_id = ?", campaign.ID).Find(&stats).Error)
	require.Len(t, stats, 1, "second rollup must update, not duplicate")
	assert.Equal(t, CurrentMonthKey(), stats[0].MonthKey)
	assert.Equal(t, int64(1), stats[0].Sent)
	assert.Equal(t, int64(1), stats[0].Opens)
}
