package cloudinary

import (
	"github.com/gofiber/fiber/v3"
	"github.com/peerbay/peerbay-api/internal/middleware"
	"github.com/peerbay/peerbay-api/internal/utils"
)

// SetupRoutes registers the upload-signature route.
func (s *CloudinaryService) SetupRoutes(app *fiber.App, jwtService *utils.JWTService) {
	api := app.Group("/api/v1/uploads")

	api.Use(middleware.AuthMiddleware(jwtService))

	api.Get("/signature", s.GenerateUploadParams)
}
