package cloudinary

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gofiber/fiber/v3"

	"github.com/peerbay/peerbay-api/internal/config"
	"github.com/peerbay/peerbay-api/internal/logging"
)

// CloudinaryService signs browser uploads and removes orphaned assets.
type CloudinaryService struct {
	cfg *config.Config
	cld *cloudinary.Cloudinary
	log logging.Logger
}

// NewCloudinaryService creates a new CloudinaryService.
func NewCloudinaryService(cfg *config.Config, log logging.Logger) (*CloudinaryService, error) {
	cld, err := cloudinary.NewFromParams(
		cfg.CloudinaryConfig.CloudName,
		cfg.CloudinaryConfig.APIKey,
		cfg.CloudinaryConfig.APISecret,
	)
	if err != nil {
		return nil, fmt.Errorf("initializing cloudinary: %w", err)
	}
	return &CloudinaryService{cfg: cfg, cld: cld, log: log.With("service", "cloudinary")}, nil
}

// GenerateUploadParams returns the signed parameters a client needs for a
// direct browser upload.
func (s *CloudinaryService) GenerateUploadParams(c fiber.Ctx) error {
	timestamp := fmt.Sprintf("%d", time.Now().Unix())

	params := url.Values{}
	params.Set("timestamp", timestamp)
	params.Set("upload_preset", s.cfg.CloudinaryConfig.UploadPreset)

	signature, err := api.SignParameters(params, s.cfg.CloudinaryConfig.APISecret)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to sign upload parameters"})
	}

	return c.JSON(fiber.Map{
		"timestamp":     timestamp,
		"signature":     signature,
		"api_key":       s.cfg.CloudinaryConfig.APIKey,
		"cloud_name":    s.cfg.CloudinaryConfig.CloudName,
		"upload_preset": s.cfg.CloudinaryConfig.UploadPreset,
	})
}

// DestroyImages removes uploaded assets by public id. Best-effort: a listing
// or proposal is already gone by the time this runs.
func (s *CloudinaryService) DestroyImages(ctx context.Context, publicIDs []string) {
	for _, publicID := range publicIDs {
		if publicID == "" {
			continue
		}
		_, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
		if err != nil {
			s.log.Warn(ctx, "destroying cloudinary asset failed", "public_id", publicID, "error", err)
		}
	}
}
