package favorite

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/peerbay/peerbay-api/internal/cache"
	"github.com/peerbay/peerbay-api/internal/config"
	"github.com/peerbay/peerbay-api/internal/db"
	"github.com/peerbay/peerbay-api/internal/logging"
	"github.com/peerbay/peerbay-api/internal/models"
	"github.com/peerbay/peerbay-api/internal/utils"
)

// FavoriteService serves the saved-listings API.
type FavoriteService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	cache      *cache.Query
	log        logging.Logger
}

// NewFavoriteService creates a new FavoriteService.
func NewFavoriteService(cfg *config.Config, queryCache *cache.Query, log logging.Logger) *FavoriteService {
	return &FavoriteService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		cache:      queryCache,
		log:        log.With("service", "favorite"),
	}
}

// AddToFavorites saves a listing for the caller.
func (s *FavoriteService) AddToFavorites(c fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authorized"})
	}

	var requestData struct {
		ListingID int64 `json:"listing_id"`
	}
	if err := c.Bind().Body(&requestData); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if requestData.ListingID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "listing_id is required"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var ownerID uuid.UUID
	err = db.Pool.QueryRow(ctx, `SELECT user_id FROM listings WHERE id = $1`, requestData.ListingID).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Listing not found"})
		}
		s.log.Error(ctx, "fetching listing failed", "listing_id", requestData.ListingID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}
	if ownerID == userUUID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "You cannot favorite your own listing"})
	}

	_, err = db.Pool.Exec(ctx, `
        INSERT INTO favorites (user_id, listing_id)
        VALUES ($1, $2)
        ON CONFLICT (user_id, listing_id) DO NOTHING
    `, userUUID, requestData.ListingID)
	if err != nil {
		s.log.Error(ctx, "saving favorite failed", "listing_id", requestData.ListingID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to add favorite"})
	}

	s.cache.Invalidate(ctx, s.cache.Keys().UserFavorites(userUUID))

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true})
}

// RemoveFromFavorites unsaves a listing.
func (s *FavoriteService) RemoveFromFavorites(c fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authorized"})
	}

	listingID, err := strconv.ParseInt(c.Params("listing_id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid listing ID"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	tag, err := db.Pool.Exec(ctx, `
        DELETE FROM favorites WHERE user_id = $1 AND listing_id = $2
    `, userUUID, listingID)
	if err != nil {
		s.log.Error(ctx, "removing favorite failed", "listing_id", listingID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to remove favorite"})
	}
	if tag.RowsAffected() == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Favorite not found"})
	}

	s.cache.Invalidate(ctx, s.cache.Keys().UserFavorites(userUUID))

	return c.JSON(fiber.Map{"success": true})
}

// CheckFavorite reports whether the caller has saved a listing.
func (s *FavoriteService) CheckFavorite(c fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authorized"})
	}

	listingID, err := strconv.ParseInt(c.Params("listing_id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid listing ID"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var exists bool
	err = db.Pool.QueryRow(ctx, `
        SELECT EXISTS (SELECT 1 FROM favorites WHERE user_id = $1 AND listing_id = $2)
    `, userUUID, listingID).Scan(&exists)
	if err != nil {
		s.log.Error(ctx, "checking favorite failed", "listing_id", listingID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}

	return c.JSON(fiber.Map{"is_favorite": exists})
}

// GetFavorites returns the caller's saved listings.
func (s *FavoriteService) GetFavorites(c fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authorized"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	key := s.cache.Keys().UserFavorites(userUUID)
	favorites, err := cache.GetOrLoad(ctx, s.cache, key, func(ctx context.Context) ([]models.Favorite, bool, error) {
		favorites, err := fetchFavorites(ctx, userUUID)
		return favorites, len(favorites) > 0, err
	})
	if err != nil {
		s.log.Error(ctx, "fetching favorites failed", "user_id", userUUID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch favorites"})
	}

	if favorites == nil {
		favorites = []models.Favorite{}
	}
	return c.JSON(fiber.Map{
		"favorites": favorites,
		"count":     len(favorites),
	})
}

func fetchFavorites(ctx context.Context, userID uuid.UUID) ([]models.Favorite, error) {
	rows, err := db.Pool.Query(ctx, `
        SELECT f.id, f.user_id, f.listing_id, f.created_at,
               l.id, l.user_id, l.title, l.description, l.categories, l.status, l.created_at, l.updated_at
        FROM favorites f
        JOIN listings l ON l.id = f.listing_id
        WHERE f.user_id = $1
        ORDER BY f.created_at DESC
    `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var favorites []models.Favorite
	for rows.Next() {
		var fav models.Favorite
		var listing models.Listing
		if err := rows.Scan(&fav.ID, &fav.UserID, &fav.ListingID, &fav.CreatedAt,
			&listing.ID, &listing.UserID, &listing.Title, &listing.Description,
			&listing.Categories, &listing.Status, &listing.CreatedAt, &listing.UpdatedAt); err != nil {
			return nil, err
		}
		fav.Listing = &listing
		favorites = append(favorites, fav)
	}
	return favorites, rows.Err()
}
