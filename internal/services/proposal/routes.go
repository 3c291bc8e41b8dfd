package proposal

import (
	"github.com/gofiber/fiber/v3"
	"github.com/peerbay/peerbay-api/internal/middleware"
)

// SetupRoutes registers the proposal API routes.
func (s *ProposalService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/v1/proposals")

	api.Use(middleware.AuthMiddleware(s.jwtService))

	api.Post("/", s.CreateProposal)
	api.Get("/", s.ListProposals)

	// Registered before /:id so "balance" is not captured as an id.
	api.Get("/balance", s.GetBalance)

	api.Get("/:id", s.GetProposal)
	api.Get("/:id/images", s.GetProposalImages)
	api.Put("/:id/status", s.UpdateProposalStatus)
}
