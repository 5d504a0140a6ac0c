package services

import (
	"fmt"
	"log"
	"time"

	"trade-match-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IngestService receives already-scored matches from the offline scoring
// pipeline. Score computation itself happens there; we only validate,
// classify the tier once, and persist.
type IngestService struct {
	DB *gorm.DB
}

func NewIngestService(db *gorm.DB) *IngestService {
	return &IngestService{DB: db}
}

// IncomingMatch is one scorer output row.
type IncomingMatch struct {
	ProfileID           string                  `json:"profile_id"`
	CounterpartyName    string                  `json:"counterparty_name"`
	CounterpartyCountry string                  `json:"counterparty_country"`
	CounterpartyCity    *string                 `json:"counterparty_city,omitempty"`
	MatchedProducts     []models.MatchedProduct `json:"matched_products"`
	MatchScore          int                     `json:"match_score"`
	ScoreBreakdown      map[string]int          `json:"score_breakdown,omitempty"`
	MatchReasons        []string                `json:"match_reasons"`
	MatchWarnings       []string                `json:"match_warnings,omitempty"`
	CounterpartyContact *models.ContactInfo     `json:"counterparty_contact,omitempty"`
	TradeData           *models.TradeData       `json:"trade_data,omitempty"`
}

func (in *IncomingMatch) validate() error {
	if in.ProfileID == "" {
		return fmt.Errorf("profile_id is required")
	}
	if in.CounterpartyName == "" {
		return fmt.Errorf("counterparty_name is required")
	}
	if in.CounterpartyCountry == "" {
		return fmt.Errorf("counterparty_country is required")
	}
	if in.MatchScore < 0 || in.MatchScore > 100 {
		return fmt.Errorf("match_score must be 0–100, got %d", in.MatchScore)
	}
	return nil
}

// ImportMatches persists a batch of scored matches, all-or-nothing. Tier is
// derived here, once, and stored.
func (s *IngestService) ImportMatches(batch []IncomingMatch) ([]models.Match, error) {
	created := make([]models.Match, 0, len(batch))

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		for i := range batch {
			in := &batch[i]
			if err := in.validate(); err != nil {
				return fmt.Errorf("match %d: %w", i, err)
			}

			var profileCount int64
			if err := tx.Model(&models.TradeProfile{}).Where("id = ?", in.ProfileID).Count(&profileCount).Error; err != nil {
				return err
			}
			if profileCount == 0 {
				return fmt.Errorf("match %d: profile %s does not exist", i, in.ProfileID)
			}

			now := time.Now().UTC()
			match := models.Match{
				ID:                  uuid.NewString(),
				ProfileID:           in.ProfileID,
				CounterpartyName:    in.CounterpartyName,
				CounterpartyCountry: in.CounterpartyCountry,
				CounterpartyCity:    in.CounterpartyCity,
				MatchedProducts:     in.MatchedProducts,
				MatchScore:          in.MatchScore,
				ScoreBreakdown:      in.ScoreBreakdown,
				MatchTier:           models.ClassifyTier(in.MatchScore),
				MatchReasons:        in.MatchReasons,
				MatchWarnings:       in.MatchWarnings,
				Status:              models.MatchStatusNew,
				Revealed:            false,
				CounterpartyContact: in.CounterpartyContact,
				TradeData:           in.TradeData,
				CreatedAt:           now,
				UpdatedAt:           now,
			}
			if err := tx.Create(&match).Error; err != nil {
				return err
			}
			created = append(created, match)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ImportMatchesEndpoint handles POST /s/admin/matches/import.
func (s *IngestService) ImportMatchesEndpoint(c *fiber.Ctx) error {
	var req struct {
		Matches []IncomingMatch `json:"matches"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if len(req.Matches) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "matches array is empty"})
	}

	created, err := s.ImportMatches(req.Matches)
	if err != nil {
		log.Printf("[INGEST] import failed: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "import failed", "details": err.Error()})
	}

	ids := make([]string, len(created))
	for i, m := range created {
		ids[i] = m.ID
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"imported": len(created),
		"ids":      ids,
	})
}
