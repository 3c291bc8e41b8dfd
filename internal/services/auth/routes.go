package auth

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/peerbay/peerbay-api/internal/middleware"
)

// SetupRoutes registers the auth routes.
func (s *AuthService) SetupRoutes(app *fiber.App) {
	app.Post("/api/v1/auth/telegram", s.TelegramAuthHandler)

	protected := app.Group("/api/v1")
	protected.Use(middleware.AuthMiddleware(s.jwtService))

	protected.Get("/profile", func(c fiber.Ctx) error {
		userID := c.Locals("userID").(string)
		return c.JSON(fiber.Map{
			"user_id":   userID,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})
}
