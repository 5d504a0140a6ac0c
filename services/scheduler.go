// services/scheduler.go
package services

import (
	"log"
	"time"

	"trade-match-system/models"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

// StartRollupScheduler refreshes the current month's campaign stats every
// hour so dashboards read a single row instead of scanning the event table.
func (s *CampaignService) StartRollupScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() {
			s.RollupCurrentMonth()
		}),
	)
}

// RollupCurrentMonth recomputes and upserts this month's stat row for every
// active campaign.
func (s *CampaignService) RollupCurrentMonth() {
	monthKey := CurrentMonthKey()

	var campaigns []models.Campaign
	if err := s.DB.Where("status = ?", models.CampaignStatusActive).Find(&campaigns).Error; err != nil {
		log.Printf("[Rollup] DB error listing campaigns: %v", err)
		return
	}

	for _, campaign := range campaigns {
		m, err := s.metricsFor(campaign.ID, monthKey)
		if err != nil {
			log.Printf("[Rollup] aggregation failed for campaign %s: %v", campaign.ID, err)
			continue
		}

		stat := models.CampaignMonthlyStat{
			ID:         uuid.NewString(),
			CampaignID: campaign.ID,
			MonthKey:   monthKey,
			Sent:       m.Sent,
			Opens:      m.Opens,
			Clicks:     m.Clicks,
			Replies:    m.Replies,
			ComputedAt: time.Now().UTC(),
		}
		err = s.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "campaign_id"}, {Name: "month_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"sent", "opens", "clicks", "replies", "computed_at"}),
		}).Create(&stat).Error
		if err != nil {
			log.Printf("[Rollup] upsert failed for campaign %s (%s): %v", campaign.ID, monthKey, err)
		}
	}
}
