package services

import (
	"errors"
	"log"
	"strconv"

	"trade-match-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// resolveProfile maps the gateway identity to the local trade profile.
func resolveProfile(db *gorm.DB, externalUserID string) (*models.TradeProfile, error) {
	var profile models.TradeProfile
	if err := db.Where("external_user_id = ?", externalUserID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetMatches handles GET /s/matches — the owner's match list.
func (s *MatchService) GetMatches(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	profile, err := resolveProfile(s.DB, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "trade profile not found"})
		}
		log.Printf("[MATCH] DB error resolving profile for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	size, _ := strconv.Atoi(c.Query("size", "20"))
	matches, total, err := s.ListMatches(profile.ID, c.Query("status"), c.Query("tier"), page, size)
	if err != nil {
		log.Printf("[MATCH] DB error listing matches for profile %s: %v", profile.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch matches"})
	}

	views := make([]models.PublicMatch, len(matches))
	for i := range matches {
		views[i] = matches[i].ClientView()
	}
	return c.JSON(fiber.Map{
		"matches": views,
		"page":    page,
		"size":    size,
		"total":   total,
	})
}

// GetMatchDetail handles GET /s/matches/:id — fires the new→viewed
// transition once, then returns the filtered view.
func (s *MatchService) GetMatchDetail(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	matchID := c.Params("id")
	if matchID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "match id required"})
	}

	profile, err := resolveProfile(s.DB, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "trade profile not found"})
		}
		log.Printf("[MATCH] DB error resolving profile for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	match, err := s.MarkViewedIfNew(matchID, profile.ID)
	if err != nil {
		if errors.Is(err, ErrMatchNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "match not found"})
		}
		log.Printf("[MATCH] DB error fetching match %s: %v", matchID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	return c.JSON(fiber.Map{"match": match.ClientView()})
}

// RevealMatch handles POST /s/matches/:id/reveal.
func (s *MatchService) RevealMatch(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	matchID := c.Params("id")
	if matchID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "match id required"})
	}

	profile, err := resolveProfile(s.DB, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "trade profile not found"})
		}
		log.Printf("[REVEAL] DB error resolving profile for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	outcome, err := s.Reveal(profile.ID, matchID)
	if err != nil {
		if errors.Is(err, ErrMatchNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "match not found"})
		}
		if errors.Is(err, ErrNegativeUsage) {
			log.Printf("[REVEAL] invariant violation for profile %s: %v", profile.ID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
		}
		log.Printf("[REVEAL] transaction failed for profile %s match %s: %v", profile.ID, matchID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "reveal failed"})
	}

	switch outcome.State {
	case RevealDenied:
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "Monthly reveal limit reached. Upgrade your plan for unlimited reveals.",
			"reason":  "QUOTA_EXCEEDED",
			"reveals": outcome.Quota,
		})
	default: // granted or already revealed — both return the unlocked view
		return c.JSON(fiber.Map{
			"match":   outcome.Match.ClientView(),
			"reveals": outcome.Quota,
		})
	}
}

// UpdateMatchStatus handles PATCH /s/matches/:id/status.
func (s *MatchService) UpdateMatchStatus(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	matchID := c.Params("id")

	var req struct {
		Status models.MatchStatus `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}

	profile, err := resolveProfile(s.DB, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "trade profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	match, err := s.UpdateStatus(matchID, profile.ID, req.Status)
	if err != nil {
		if errors.Is(err, ErrMatchNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "match not found"})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"match": match.ClientView()})
}

// GetRevealQuota handles GET /s/user/reveals — "X of Y remaining" for the UI.
func (s *MatchService) GetRevealQuota(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	profile, err := resolveProfile(s.DB, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "trade profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	quota, monthKey, err := s.QuotaStatus(profile.ID)
	if err != nil {
		log.Printf("[REVEAL] quota status failed for profile %s: %v", profile.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to evaluate quota"})
	}
	return c.JSON(fiber.Map{
		"reveals": quota,
		"month":   monthKey,
		"plan":    profile.Plan,
	})
}

// GetMatchScore handles GET /s/admin/matches/:id/score — the admin-only
// accessor for the raw score and breakdown that ClientView never exposes.
func (s *MatchService) GetMatchScore(c *fiber.Ctx) error {
	matchID := c.Params("id")
	var match models.Match
	if err := s.DB.Where("id = ?", matchID).First(&match).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "match not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(fiber.Map{
		"id":              match.ID,
		"profile_id":      match.ProfileID,
		"match_score":     match.MatchScore,
		"score_breakdown": match.ScoreBreakdown,
		"match_tier":      match.MatchTier,
	})
}
