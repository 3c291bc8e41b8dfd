package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/peerbay/peerbay-api/internal/balance"
	"github.com/peerbay/peerbay-api/internal/cache"
	"github.com/peerbay/peerbay-api/internal/config"
	"github.com/peerbay/peerbay-api/internal/db"
	"github.com/peerbay/peerbay-api/internal/logging"
	"github.com/peerbay/peerbay-api/internal/repository"
	"github.com/peerbay/peerbay-api/internal/services/auth"
	"github.com/peerbay/peerbay-api/internal/services/cloudinary"
	"github.com/peerbay/peerbay-api/internal/services/favorite"
	"github.com/peerbay/peerbay-api/internal/services/listing"
	"github.com/peerbay/peerbay-api/internal/services/proposal"
)

func main() {
	cfg := config.LoadConfig()
	appLog := logging.NewDefault()

	if err := db.InitDB(cfg); err != nil {
		log.Fatalf("initializing database: %v", err)
	}
	defer db.CloseDB()

	store := cache.NewMemoryStore(
		cfg.CacheConfig.Capacity,
		cfg.CacheConfig.NumShards,
		cfg.CacheConfig.TTL,
		cfg.CacheConfig.EvictionPercentage,
	)
	queryCache := cache.NewQuery(store, appLog, cfg.CacheConfig.TTL)

	repo := repository.NewPgxProposalRepository(db.Pool)
	aggregator := balance.NewAggregator(repo, queryCache)

	app := fiber.New(fiber.Config{
		AppName:      "PeerBay API",
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowCredentials: false,
	}))

	authService := auth.NewAuthService(cfg, appLog)
	cloudinaryService, err := cloudinary.NewCloudinaryService(cfg, appLog)
	if err != nil {
		log.Fatalf("initializing cloudinary: %v", err)
	}
	proposalService := proposal.NewProposalService(cfg, repo, queryCache, aggregator, appLog)
	listingService := listing.NewListingService(cfg, repo, queryCache, cloudinaryService, appLog)
	favoriteService := favorite.NewFavoriteService(cfg, queryCache, appLog)

	authService.SetupRoutes(app)
	proposalService.SetupRoutes(app)
	listingService.SetupRoutes(app)
	favoriteService.SetupRoutes(app)
	cloudinaryService.SetupRoutes(app, authService.GetJWTService())

	appLog.Info(context.Background(), "starting server", "port", cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}

func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
