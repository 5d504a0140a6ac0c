// handlers/match_routes.go
package handlers

import (
	"trade-match-system/middleware"
	"trade-match-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupMatchRoutes(app *fiber.App, matchService *services.MatchService, ingestService *services.IngestService) {
	// 🔐 Secured routes — require user context forwarded by the Gateway
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Get("/matches", matchService.GetMatches)
	secured.Get("/matches/:id", matchService.GetMatchDetail)
	secured.Post("/matches/:id/reveal", matchService.RevealMatch)
	secured.Patch("/matches/:id/status", matchService.UpdateMatchStatus)
	secured.Get("/user/reveals", matchService.GetRevealQuota)

	// Admin endpoints — scorer ingestion + raw score access
	admin := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireAdmin())
	admin.Post("/matches/import", ingestService.ImportMatchesEndpoint)
	admin.Get("/matches/:id/score", matchService.GetMatchScore)
}
