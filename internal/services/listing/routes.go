package listing

import (
	"github.com/gofiber/fiber/v3"
	"github.com/peerbay/peerbay-api/internal/middleware"
)

// SetupRoutes registers the listing routes.
func (s *ListingService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/v1/listings")

	api.Use(middleware.AuthMiddleware(s.jwtService))

	api.Post("/", s.CreateListing)
	// /my before /:id so it is not swallowed by the id parameter.
	api.Get("/my", s.GetMyListings)
	api.Get("/:id", s.GetListing)
	api.Get("/:id/proposals", s.GetListingProposals)
	api.Delete("/:id", s.DeleteListing)
}
