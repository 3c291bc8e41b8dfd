package favorite

import (
	"github.com/gofiber/fiber/v3"
	"github.com/peerbay/peerbay-api/internal/middleware"
)

// SetupRoutes registers the favorites routes.
func (s *FavoriteService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/v1/favorites")

	api.Use(middleware.AuthMiddleware(s.jwtService))

	api.Get("/", s.GetFavorites)
	api.Post("/", s.AddToFavorites)
	api.Get("/:listing_id/check", s.CheckFavorite)
	api.Delete("/:listing_id", s.RemoveFromFavorites)
}
