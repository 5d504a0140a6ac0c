package services

import (
	"errors"
	"log"
	"strings"
	"time"

	"trade-match-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CampaignService struct {
	DB *gorm.DB
}

func NewCampaignService(db *gorm.DB) *CampaignService {
	return &CampaignService{DB: db}
}

// CampaignMetrics is the live aggregation over the event table.
type CampaignMetrics struct {
	Sent    int64 `json:"sent"`
	Opens   int64 `json:"opens"`
	Clicks  int64 `json:"clicks"`
	Replies int64 `json:"replies"`
}

func (s *CampaignService) metricsFor(campaignID string, monthKey string) (CampaignMetrics, error) {
	var m CampaignMetrics
	counts := map[models.CampaignEventType]*int64{
		models.CampaignEventSent:  &m.Sent,
		models.CampaignEventOpen:  &m.Opens,
		models.CampaignEventClick: &m.Clicks,
		models.CampaignEventReply: &m.Replies,
	}
	for evType, dst := range counts {
		query := s.DB.Model(&models.CampaignEvent{}).
			Where("campaign_id = ? AND event_type = ?", campaignID, evType)
		if monthKey != "" {
			start, err := time.Parse("2006-01", monthKey)
			if err != nil {
				return m, err
			}
			query = query.Where("occurred_at >= ? AND occurred_at < ?", start, start.AddDate(0, 1, 0))
		}
		if err := query.Count(dst).Error; err != nil {
			return m, err
		}
	}
	return m, nil
}

// ownedCampaign loads a campaign and enforces profile ownership; foreign
// campaigns read as missing, same policy as matches.
func (s *CampaignService) ownedCampaign(campaignID, profileID string) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := s.DB.Where("id = ? AND profile_id = ?", campaignID, profileID).First(&campaign).Error; err != nil {
		return nil, err
	}
	return &campaign, nil
}

// CreateCampaign handles POST /s/campaigns.
func (s *CampaignService) CreateCampaign(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	profile, err := resolveProfile(s.DB, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "trade profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var req struct {
		Name    string `json:"name"`
		Subject string `json:"subject"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if strings.TrimSpace(req.Name) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
	}

	campaign := models.Campaign{
		ID:        uuid.NewString(),
		ProfileID: profile.ID,
		Name:      strings.TrimSpace(req.Name),
		Subject:   strings.TrimSpace(req.Subject),
		Status:    models.CampaignStatusDraft,
	}
	if err := s.DB.Create(&campaign).Error; err != nil {
		log.Printf("[CAMPAIGN] create failed for profile %s: %v", profile.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create campaign"})
	}
	return c.Status(fiber.StatusCreated).JSON(campaign)
}

// GetCampaigns handles GET /s/campaigns.
func (s *CampaignService) GetCampaigns(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	profile, err := resolveProfile(s.DB, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "trade profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var campaigns []models.Campaign
	if err := s.DB.Where("profile_id = ?", profile.ID).Order("created_at DESC").Find(&campaigns).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch campaigns"})
	}
	return c.JSON(campaigns)
}

// RecordEvent handles POST /s/campaigns/:id/events — called by the email
// service when it observes a send/open/click/reply.
func (s *CampaignService) RecordEvent(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	campaignID := c.Params("id")

	profile, err := resolveProfile(s.DB, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "trade profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	if _, err := s.ownedCampaign(campaignID, profile.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "campaign not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var req struct {
		EventType  models.CampaignEventType `json:"event_type"`
		MatchID    *string                  `json:"match_id,omitempty"`
		OccurredAt *time.Time               `json:"occurred_at,omitempty"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	switch req.EventType {
	case models.CampaignEventSent, models.CampaignEventOpen, models.CampaignEventClick, models.CampaignEventReply:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "event_type must be sent/open/click/reply"})
	}

	occurredAt := time.Now().UTC()
	if req.OccurredAt != nil {
		occurredAt = req.OccurredAt.UTC()
	}

	event := models.CampaignEvent{
		ID:         uuid.NewString(),
		CampaignID: campaignID,
		MatchID:    req.MatchID,
		EventType:  req.EventType,
		OccurredAt: occurredAt,
	}
	if err := s.DB.Create(&event).Error; err != nil {
		log.Printf("[CAMPAIGN] event insert failed for campaign %s: %v", campaignID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to record event"})
	}
	return c.Status(fiber.StatusCreated).JSON(event)
}

// GetCampaignMetrics handles GET /s/campaigns/:id/metrics. Live counts for
// the current month plus any stored monthly rollups.
func (s *CampaignService) GetCampaignMetrics(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	campaignID := c.Params("id")

	profile, err := resolveProfile(s.DB, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "trade profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	campaign, err := s.ownedCampaign(campaignID, profile.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "campaign not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	total, err := s.metricsFor(campaignID, "")
	if err != nil {
		log.Printf("[CAMPAIGN] metrics aggregation failed for %s: %v", campaignID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to aggregate metrics"})
	}

	var history []models.CampaignMonthlyStat
	if err := s.DB.Where("campaign_id = ?", campaignID).Order("month_key DESC").Find(&history).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch monthly stats"})
	}

	return c.JSON(fiber.Map{
		"campaign": campaign,
		"totals":   total,
		"monthly":  history,
	})
}
