package proposal

import (
	"context"
	"errors"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/peerbay/peerbay-api/internal/balance"
	"github.com/peerbay/peerbay-api/internal/cache"
	"github.com/peerbay/peerbay-api/internal/config"
	"github.com/peerbay/peerbay-api/internal/db"
	"github.com/peerbay/peerbay-api/internal/logging"
	"github.com/peerbay/peerbay-api/internal/models"
	"github.com/peerbay/peerbay-api/internal/repository"
	"github.com/peerbay/peerbay-api/internal/utils"
)

// ProposalService serves the proposal API: creation, detail, filtered
// listings, status transitions and the derived balance.
type ProposalService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	repo       repository.ProposalRepository
	cache      *cache.Query
	aggregator *balance.Aggregator
	log        logging.Logger
}

// NewProposalService creates a new ProposalService.
func NewProposalService(cfg *config.Config, repo repository.ProposalRepository, queryCache *cache.Query, aggregator *balance.Aggregator, log logging.Logger) *ProposalService {
	return &ProposalService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		repo:       repo,
		cache:      queryCache,
		aggregator: aggregator,
		log:        log.With("service", "proposal"),
	}
}

// listPage is the cached shape of one proposal listing query.
type listPage struct {
	Proposals []models.Proposal `msgpack:"proposals"`
	Total     int               `msgpack:"total"`
}

func currentUserID(c fiber.Ctx) (uuid.UUID, error) {
	userID, _ := c.Locals("userID").(string)
	return uuid.Parse(userID)
}

// CreateProposal validates and creates a proposal from the caller to the
// owner of the referenced listing.
func (s *ProposalService) CreateProposal(c fiber.Ctx) error {
	senderID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authorized"})
	}

	var input models.CreateProposalInput
	if err := c.Bind().Body(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := input.Validate(); err != nil {
		var fieldErrors validation.Errors
		if errors.As(err, &fieldErrors) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":  "Validation failed",
				"fields": fieldErrors,
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	p, err := input.ToProposal()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	p.SenderID = senderID

	if p.ReceiverID == senderID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "You cannot send a proposal to yourself"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()
	if err := s.repo.CreateProposal(ctx, p); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Listing not found"})
		}
		s.log.Error(ctx, "creating proposal failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create proposal"})
	}

	// The mutation is committed; every view that could include it goes.
	s.cache.InvalidateProposalViews(ctx, p.ID, p.ListingID, p.SenderID, p.ReceiverID, false)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":          p.ID,
		"title":       p.Title,
		"description": p.Description,
	})
}

// loadProposal reads one proposal through the cache.
func (s *ProposalService) loadProposal(ctx context.Context, id int64) (*models.Proposal, error) {
	key := s.cache.Keys().Proposal(id)
	return cache.GetOrLoad(ctx, s.cache, key, func(ctx context.Context) (*models.Proposal, bool, error) {
		p, err := s.repo.FetchProposalByID(ctx, id)
		if err != nil {
			return nil, false, err
		}
		return p, true, nil
	})
}

// GetProposal returns the full detail of one proposal to its participants.
func (s *ProposalService) GetProposal(c fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authorized"})
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid proposal ID"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()
	p, err := s.loadProposal(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Proposal not found"})
		}
		s.log.Error(ctx, "fetching proposal failed", "id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch proposal"})
	}

	// The proposal exists but is private to its two participants.
	if !p.Participant(userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You do not have access to this proposal"})
	}

	return c.JSON(p)
}

// ListProposals returns one page of the caller's proposals. The boolean
// filters are independent and combine.
func (s *ProposalService) ListProposals(c fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authorized"})
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "8"))
	filters := models.ProposalFilters{
		Page:      page,
		Limit:     limit,
		Sent:      c.Query("sent") == "true",
		Received:  c.Query("received") == "true",
		Accepted:  c.Query("accepted") == "true",
		Rejected:  c.Query("rejected") == "true",
		Cancelled: c.Query("cancelled") == "true",
		Pending:   c.Query("pending") == "true",
	}.Normalize()

	key, tracked := s.cache.Keys().ForProposalList(userID, filters)
	if tracked {
		s.cache.Track(userID, key)
	}

	ctx, cancel := db.GetContext()
	defer cancel()
	result, err := cache.GetOrLoad(ctx, s.cache, key, func(ctx context.Context) (listPage, bool, error) {
		proposals, total, err := s.repo.FetchProposalsForUser(ctx, userID, filters)
		if err != nil {
			return listPage{}, false, err
		}
		return listPage{Proposals: proposals, Total: total}, len(proposals) > 0, nil
	})
	if err != nil {
		s.log.Error(ctx, "listing proposals failed", "user_id", userID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch proposals"})
	}

	if result.Proposals == nil {
		result.Proposals = []models.Proposal{}
	}
	return c.JSON(fiber.Map{
		"proposals":      result.Proposals,
		"totalProposals": result.Total,
	})
}

// UpdateProposalStatus applies a status transition: the receiver may accept
// or reject a pending proposal, the sender may cancel it. Accepting settles
// the proposal into a transaction record.
func (s *ProposalService) UpdateProposalStatus(c fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authorized"})
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid proposal ID"})
	}

	var requestData struct {
		Status string `json:"status"`
	}
	if err := c.Bind().Body(&requestData); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	next, err := models.ParseStatus(requestData.Status)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	// Mutations read the source of truth, never the cache.
	ctx, cancel := db.GetContext()
	defer cancel()
	p, err := s.repo.FetchProposalByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Proposal not found"})
		}
		s.log.Error(ctx, "fetching proposal failed", "id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch proposal"})
	}

	switch next {
	case models.StatusAccepted, models.StatusRejected:
		if p.ReceiverID != userID {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Only the receiver can accept or reject a proposal"})
		}
	case models.StatusCancelled:
		if p.SenderID != userID {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Only the sender can cancel a proposal"})
		}
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Proposals cannot be moved back to pending"})
	}

	change, err := p.Transition(next)
	if err != nil {
		if errors.Is(err, models.ErrIllegalTransition) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := s.repo.UpdateProposalStatus(ctx, p.ID, change.To); err != nil {
		s.log.Error(ctx, "updating proposal status failed", "id", p.ID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update proposal status"})
	}

	if change.Accepted() {
		t := &models.Transaction{
			ProposalID: p.ID,
			SenderID:   p.SenderID,
			ReceiverID: p.ReceiverID,
			Amount:     p.Amount(),
		}
		if err := s.repo.CreateTransaction(ctx, t); err != nil {
			// The status change is already durable; the settlement record is
			// recovered by reconciliation, not by failing the request.
			s.log.Error(ctx, "recording transaction failed", "proposal_id", p.ID, "error", err)
		}
	}

	s.cache.InvalidateProposalViews(ctx, p.ID, p.ListingID, p.SenderID, p.ReceiverID, change.Accepted())

	return c.JSON(fiber.Map{
		"success": true,
		"status":  change.To,
	})
}

// GetBalance returns the caller's derived balance.
func (s *ProposalService) GetBalance(c fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authorized"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()
	value, err := s.aggregator.UserBalance(ctx, userID)
	if err != nil {
		if errors.Is(err, balance.ErrNoTransactions) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No transactions found for this user"})
		}
		s.log.Error(ctx, "calculating balance failed", "user_id", userID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to calculate balance"})
	}

	return c.JSON(fiber.Map{"balance": value.InexactFloat64()})
}

// GetProposalImages returns the attachments of a proposal to its
// participants.
func (s *ProposalService) GetProposalImages(c fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is not authorized"})
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid proposal ID"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()
	p, err := s.loadProposal(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Proposal not found"})
		}
		s.log.Error(ctx, "fetching proposal failed", "id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch proposal"})
	}
	if !p.Participant(userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You do not have access to this proposal"})
	}

	key := s.cache.Keys().ProposalImages(id)
	images, err := cache.GetOrLoad(ctx, s.cache, key, func(ctx context.Context) ([]models.ProposalImage, bool, error) {
		images, err := s.repo.FetchProposalImages(ctx, id)
		return images, len(images) > 0, err
	})
	if err != nil {
		s.log.Error(ctx, "fetching proposal images failed", "id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch proposal images"})
	}

	if images == nil {
		images = []models.ProposalImage{}
	}
	return c.JSON(fiber.Map{"images": images})
}
