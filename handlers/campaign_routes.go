// handlers/campaign_routes.go
package handlers

import (
	"trade-match-system/middleware"
	"trade-match-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupCampaignRoutes(app *fiber.App, campaignService *services.CampaignService) {
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Post("/campaigns", campaignService.CreateCampaign)
	secured.Get("/campaigns", campaignService.GetCampaigns)
	secured.Post("/campaigns/:id/events", campaignService.RecordEvent)
	secured.Get("/campaigns/:id/metrics", campaignService.GetCampaignMetrics)
}
