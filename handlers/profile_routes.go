// handlers/profile_routes.go
package handlers

import (
	"trade-match-system/middleware"
	"trade-match-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupProfileRoutes(app *fiber.App, profileService *services.ProfileService) {
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Post("/user/profile", profileService.CreateProfile)
	secured.Get("/user/profile", profileService.GetMyProfile)
	secured.Post("/user/profile/certifications", profileService.UploadCertification)

	admin := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireAdmin())
	admin.Patch("/profiles/:id/plan", profileService.SetPlan)
}
