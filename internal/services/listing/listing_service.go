package listing

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
	"github.com/peerbay/peerbay-api/internal/repository"
	"github.com/peerbay/peerbay-api/internal/services/cloudinary"
	"github.com/peerbay/peerbay-api/internal/utils"
)

// RequestImage is one image reference in a create-listing payload.
type RequestImage struct {
	URL        string `json:"url"`
	PreviewURL string `json:"preview_url"`
	PublicID   string `json:"public_id"`
	FileName   string `json:"file_name"`
	IsMain     bool   `json:"is_main"`
}

// ListingService serves the listing API.
type ListingService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	repo       repository.ProposalRepository
	cache      *cache.Query
	images     *cloudinary.CloudinaryService
	log        logging.Logger
}

// NewListingService creates a new ListingService.
func NewListingService(cfg *config.Config, repo repository.ProposalRepository, queryCache *cache.Query, images *cloudinary.CloudinaryService, log logging.Logger) *ListingService {
	return &ListingService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		repo:       repo,
		cache:      queryCache,
		images:     images,
		log:        log.With("service", "listing"),
	}
}

// CreateListing creates a listing with its images.
func (s *ListingService) CreateListing(c fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authorized"})
	}

	var requestData struct {
		Title       string         `json:"title"`
		Description string         `json:"description"`
		Categories  []string       `json:"categories"`
		Status      string         `json:"status"`
		Images      []RequestImage `json:"images"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if requestData.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Title is required"})
	}
	if requestData.Status != "active" && requestData.Status != "draft" {
		requestData.Status = "draft"
	}
	if requestData.Status == "active" && len(requestData.Categories) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Select at least one category"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		s.log.Error(ctx, "beginning transaction failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}
	defer tx.Rollback(ctx)

	var listingID int64
	err = tx.QueryRow(ctx, `
        INSERT INTO listings (user_id, title, description, categories, status)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `, userUUID, requestData.Title, requestData.Description, requestData.Categories, requestData.Status).Scan(&listingID)
	if err != nil {
		s.log.Error(ctx, "creating listing failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create listing"})
	}

	for i, img := range requestData.Images {
		_, err = tx.Exec(ctx, `
            INSERT INTO listing_images (listing_id, url, preview_url, public_id, file_name, is_main, position)
            VALUES ($1, $2, $3, $4, $5, $6, $7)
        `, listingID, img.URL, img.PreviewURL, img.PublicID, img.FileName, img.IsMain, i)
		if err != nil {
			s.log.Error(ctx, "saving listing image failed", "listing_id", listingID, "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save listing images"})
		}
	}

	if err = tx.Commit(ctx); err != nil {
		s.log.Error(ctx, "committing listing failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"id":      listingID,
	})
}

// loadListing reads one listing with its images through the cache.
func (s *ListingService) loadListing(ctx context.Context, id int64) (*models.Listing, error) {
	key := s.cache.Keys().Listing(id)
	return cache.GetOrLoad(ctx, s.cache, key, func(ctx context.Context) (*models.Listing, bool, error) {
		listing, err := fetchListing(ctx, id)
		if err != nil {
			return nil, false, err
		}
		return listing, true, nil
	})
}

func fetchListing(ctx context.Context, id int64) (*models.Listing, error) {
	var listing models.Listing
	err := db.Pool.QueryRow(ctx, `
        SELECT id, user_id, title, description, categories, status, created_at, updated_at
        FROM listings WHERE id = $1
    `, id).Scan(&listing.ID, &listing.UserID, &listing.Title, &listing.Description,
		&listing.Categories, &listing.Status, &listing.CreatedAt, &listing.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	rows, err := db.Pool.Query(ctx, `
        SELECT id, listing_id, url, preview_url, public_id, file_name, is_main, position, created_at
        FROM listing_images WHERE listing_id = $1 ORDER BY position
    `, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var img models.ListingImage
		var previewURL, fileName *string
		if err := rows.Scan(&img.ID, &img.ListingID, &img.URL, &previewURL, &img.PublicID, &fileName, &img.IsMain, &img.Position, &img.CreatedAt); err != nil {
			return nil, err
		}
		if previewURL != nil {
			img.PreviewURL = *previewURL
		}
		if fileName != nil {
			img.FileName = *fileName
		}
		listing.Images = append(listing.Images, img)
	}
	return &listing, rows.Err()
}

// GetListing returns one listing with its images.
func (s *ListingService) GetListing(c fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid listing ID"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	listing, err := s.loadListing(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Listing not found"})
		}
		s.log.Error(ctx, "fetching listing failed", "id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch listing"})
	}

	return c.JSON(listing)
}

// GetMyListings returns all listings of the caller.
func (s *ListingService) GetMyListings(c fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authorized"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	rows, err := db.Pool.Query(ctx, `
        SELECT id, user_id, title, description, categories, status, created_at, updated_at
        FROM listings WHERE user_id = $1 ORDER BY created_at DESC
    `, userUUID)
	if err != nil {
		s.log.Error(ctx, "querying listings failed", "user_id", userUUID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch listings"})
	}
	defer rows.Close()

	listings := []models.Listing{}
	for rows.Next() {
		var listing models.Listing
		if err := rows.Scan(&listing.ID, &listing.UserID, &listing.Title, &listing.Description,
			&listing.Categories, &listing.Status, &listing.CreatedAt, &listing.UpdatedAt); err != nil {
			s.log.Error(ctx, "scanning listing failed", "error", err)
			continue
		}
		listings = append(listings, listing)
	}

	return c.JSON(fiber.Map{
		"listings": listings,
		"count":    len(listings),
	})
}

// GetListingProposals returns every proposal made on one of the caller's
// listings.
func (s *ListingService) GetListingProposals(c fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authorized"})
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid listing ID"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	listing, err := s.loadListing(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Listing not found"})
		}
		s.log.Error(ctx, "fetching listing failed", "id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch listing"})
	}
	if listing.UserID != userUUID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You do not own this listing"})
	}

	key := s.cache.Keys().ListingProposals(id)
	proposals, err := cache.GetOrLoad(ctx, s.cache, key, func(ctx context.Context) ([]models.Proposal, bool, error) {
		proposals, err := s.repo.FetchProposalsForListing(ctx, id)
		return proposals, len(proposals) > 0, err
	})
	if err != nil {
		s.log.Error(ctx, "fetching listing proposals failed", "id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch proposals"})
	}

	if proposals == nil {
		proposals = []models.Proposal{}
	}
	return c.JSON(fiber.Map{"proposals": proposals})
}

// DeleteListing removes one of the caller's listings. Proposals on the
// listing go with it, so every cached view they appeared in is invalidated
// before the uploaded images are released.
func (s *ListingService) DeleteListing(c fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authorized"})
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid listing ID"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var ownerID uuid.UUID
	err = db.Pool.QueryRow(ctx, `SELECT user_id FROM listings WHERE id = $1`, id).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Listing not found"})
		}
		s.log.Error(ctx, "fetching listing owner failed", "id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch listing"})
	}
	if ownerID != userUUID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You do not own this listing"})
	}

	// Cascade targets, collected before the delete makes them unreachable.
	proposals, err := s.repo.FetchProposalsForListing(ctx, id)
	if err != nil {
		s.log.Error(ctx, "fetching listing proposals failed", "id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch proposals"})
	}

	var publicIDs []string
	imageRows, err := db.Pool.Query(ctx, `SELECT public_id FROM listing_images WHERE listing_id = $1`, id)
	if err == nil {
		for imageRows.Next() {
			var publicID string
			if err := imageRows.Scan(&publicID); err == nil {
				publicIDs = append(publicIDs, publicID)
			}
		}
		imageRows.Close()
	}

	if _, err = db.Pool.Exec(ctx, `DELETE FROM listings WHERE id = $1`, id); err != nil {
		s.log.Error(ctx, "deleting listing failed", "id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete listing"})
	}

	s.cache.Invalidate(ctx, s.cache.Keys().Listing(id), s.cache.Keys().ListingProposals(id))
	for i := range proposals {
		p := &proposals[i]
		s.cache.InvalidateProposalViews(ctx, p.ID, p.ListingID, p.SenderID, p.ReceiverID, false)
	}

	s.images.DestroyImages(ctx, publicIDs)

	return c.JSON(fiber.Map{"success": true})
}
