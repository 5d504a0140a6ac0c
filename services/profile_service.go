package services

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"trade-match-system/models"
	"trade-match-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

type ProfileService struct {
	DB *gorm.DB
}

func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{DB: db}
}

type CreateProfileRequest struct {
	CompanyName   string                `json:"company_name"`
	Country       string                `json:"country"`
	City          *string               `json:"city,omitempty"`
	Products      []models.TradeProduct `json:"products"`
	TargetMarkets []string              `json:"target_markets"`
	TradeTerms    *models.TradeTerms    `json:"trade_terms,omitempty"`
}

var titleCaser = cases.Title(language.English)

// uniqueSlug derives a URL slug from the company name, suffixing on collision.
func (s *ProfileService) uniqueSlug(companyName string) (string, error) {
	base := slug.Make(companyName)
	if base == "" {
		base = "company"
	}
	candidate := base
	for i := 2; ; i++ {
		var count int64
		if err := s.DB.Model(&models.TradeProfile{}).Where("slug = ?", candidate).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

// CreateProfile handles POST /s/user/profile. The onboarding wizard calls
// this once it has collected the trade data; one profile per gateway user.
func (s *ProfileService) CreateProfile(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req CreateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	companyName := strings.TrimSpace(req.CompanyName)
	if companyName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "company_name is required"})
	}
	if strings.TrimSpace(req.Country) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "country is required"})
	}

	var existing models.TradeProfile
	err := s.DB.Where("external_user_id = ?", userID).First(&existing).Error
	if err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "profile already exists", "profile": existing})
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("[PROFILE] DB error checking existing profile for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	profileSlug, err := s.uniqueSlug(companyName)
	if err != nil {
		log.Printf("[PROFILE] slug generation failed for %q: %v", companyName, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	profile := models.TradeProfile{
		ID:             uuid.NewString(),
		ExternalUserID: userID,
		CompanyName:    companyName,
		DisplayName:    titleCaser.String(companyName),
		Slug:           profileSlug,
		Country:        strings.TrimSpace(req.Country),
		City:           req.City,
		Plan:           models.PlanFree,
		Products:       req.Products,
		TargetMarkets:  req.TargetMarkets,
		TradeTerms:     req.TradeTerms,
	}
	if err := s.DB.Create(&profile).Error; err != nil {
		log.Printf("[PROFILE] failed to create profile for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create profile"})
	}
	return c.Status(fiber.StatusCreated).JSON(profile)
}

// GetMyProfile handles GET /s/user/profile.
func (s *ProfileService) GetMyProfile(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	profile, err := resolveProfile(s.DB, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "trade profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var certs []models.Certification
	if err := s.DB.Where("profile_id = ?", profile.ID).Order("created_at DESC").Find(&certs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error fetching certifications"})
	}
	return c.JSON(fiber.Map{
		"profile":        profile,
		"certifications": certs,
	})
}

// UploadCertification handles POST /s/user/profile/certifications
// (multipart: name, issuer, issued_at?, document).
func (s *ProfileService) UploadCertification(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	profile, err := resolveProfile(s.DB, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "trade profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	name := strings.TrimSpace(c.FormValue("name"))
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
	}

	fileHeader, err := c.FormFile("document")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "document file is required"})
	}
	if err := utils.ValidateDocument(fileHeader); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	key := fmt.Sprintf("certifications/%s/%s%s", profile.ID, uuid.NewString(), filepath.Ext(fileHeader.Filename))
	docURL, err := utils.UploadDocumentToR2(fileHeader, key)
	if err != nil {
		log.Printf("[PROFILE] R2 upload failed for profile %s: %v", profile.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "document upload failed"})
	}

	var issuedAt *time.Time
	if raw := c.FormValue("issued_at"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			issuedAt = &t
		}
	}

	cert := models.Certification{
		ID:          uuid.NewString(),
		ProfileID:   profile.ID,
		Name:        name,
		Issuer:      strings.TrimSpace(c.FormValue("issuer")),
		DocumentURL: docURL,
		IssuedAt:    issuedAt,
	}
	if err := s.DB.Create(&cert).Error; err != nil {
		log.Printf("[PROFILE] failed to save certification for profile %s: %v", profile.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save certification"})
	}
	return c.Status(fiber.StatusCreated).JSON(cert)
}

// SetPlan handles PATCH /s/admin/profiles/:id/plan — manual override; the
// billing sync worker handles the normal flow.
func (s *ProfileService) SetPlan(c *fiber.Ctx) error {
	profileID := c.Params("id")

	var req struct {
		Plan string `json:"plan"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	plan := strings.TrimSpace(strings.ToLower(req.Plan))
	if plan == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "plan is required"})
	}

	res := s.DB.Model(&models.TradeProfile{}).
		Where("id = ?", profileID).
		Updates(map[string]interface{}{
			"plan":       plan,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "update failed"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "profile not found"})
	}

	var updated models.TradeProfile
	s.DB.First(&updated, "id = ?", profileID)
	return c.JSON(updated)
}
