package auth

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	"github.com/peerbay/peerbay-api/internal/config"
	"github.com/peerbay/peerbay-api/internal/db"
	"github.com/peerbay/peerbay-api/internal/logging"
	"github.com/peerbay/peerbay-api/internal/utils"
)

// AuthService handles Telegram mini-app logins.
type AuthService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	log        logging.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, log logging.Logger) *AuthService {
	return &AuthService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		log:        log.With("service", "auth"),
	}
}

// GetJWTService exposes the token service for middleware wiring.
func (s *AuthService) GetJWTService() *utils.JWTService {
	return s.jwtService
}

// TelegramAuthHandler validates Telegram initData, upserts the account and
// returns a JWT for it.
func (s *AuthService) TelegramAuthHandler(c fiber.Ctx) error {
	var payload struct {
		InitData string `json:"init_data"`
	}

	if err := c.Bind().Body(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}

	expiration := 24 * time.Hour
	if err := initdata.Validate(payload.InitData, s.cfg.TelegramBotToken, expiration); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid Telegram data"})
	}

	data, err := initdata.Parse(payload.InitData)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Failed to parse initData"})
	}

	user, err := db.CreateOrUpdateTelegramUser(
		data.User.ID,
		data.User.Username,
		data.User.FirstName,
		data.User.LastName,
		data.User.PhotoURL,
		data.User.IsPremium,
		data.User.LanguageCode,
		[]byte(payload.InitData),
	)
	if err != nil {
		s.log.Error(context.Background(), "upserting telegram user failed", "telegram_id", data.User.ID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create user"})
	}

	jwtToken, err := s.jwtService.GenerateToken(user.ID.String())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate JWT"})
	}

	return c.JSON(fiber.Map{
		"token": jwtToken,
		"user": fiber.Map{
			"id":         user.ID,
			"first_name": user.FirstName,
			"last_name":  user.LastName,
			"username":   user.Username,
			"avatar_url": user.AvatarURL,
		},
	})
}
