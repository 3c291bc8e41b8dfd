package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/peerbay/peerbay-api/internal/models"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ProposalRepository is the persistence contract of the proposal subsystem.
// The cache layer and the handlers depend on this interface, not on the pool.
type ProposalRepository interface {
	// CreateProposal inserts a pending proposal and fills ID, ListingTitle
	// and CreatedAt on the passed value.
	CreateProposal(ctx context.Context, p *models.Proposal) error

	// FetchProposalByID returns the full projected row or ErrNotFound.
	FetchProposalByID(ctx context.Context, id int64) (*models.Proposal, error)

	// FetchProposalsForUser returns one page of the user's proposals plus the
	// total row count for the filter set.
	FetchProposalsForUser(ctx context.Context, userID uuid.UUID, f models.ProposalFilters) ([]models.Proposal, int, error)

	// FetchProposalsForListing returns every proposal made on a listing.
	FetchProposalsForListing(ctx context.Context, listingID int64) ([]models.Proposal, error)

	// UpdateProposalStatus persists a status change.
	UpdateProposalStatus(ctx context.Context, id int64, status models.Status) error

	// CreateTransaction records the settlement of an accepted proposal.
	CreateTransaction(ctx context.Context, t *models.Transaction) error

	// CalculateBalance aggregates the user's transactions signed by role and
	// returns the sum together with the number of contributing rows.
	CalculateBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, int, error)

	// FetchProposalImages returns the attachments of a proposal.
	FetchProposalImages(ctx context.Context, proposalID int64) ([]models.ProposalImage, error)
}

// PgxProposalRepository implements ProposalRepository over a pgx pool.
type PgxProposalRepository struct {
	pool *pgxpool.Pool
}

func NewPgxProposalRepository(pool *pgxpool.Pool) *PgxProposalRepository {
	return &PgxProposalRepository{pool: pool}
}

const proposalColumns = `
	p.id, p.proposal_type, p.title, p.description, p.listing_id, p.listing_title,
	p.sender_id, p.receiver_id, p.status, p.message, p.created_at,
	p.rent_per_day, p.start_date, p.end_date, p.offered_price, p.swap_with`

// scanProposal maps one physical row onto the tagged-union model.
func scanProposal(row pgx.Row) (*models.Proposal, error) {
	var p models.Proposal
	var rentPerDay, offeredPrice decimal.NullDecimal
	var startDate, endDate *time.Time
	var swapWith *string

	err := row.Scan(
		&p.ID, &p.Type, &p.Title, &p.Description, &p.ListingID, &p.ListingTitle,
		&p.SenderID, &p.ReceiverID, &p.Status, &p.Message, &p.CreatedAt,
		&rentPerDay, &startDate, &endDate, &offeredPrice, &swapWith,
	)
	if err != nil {
		return nil, err
	}

	switch p.Type {
	case models.ProposalTypeRental:
		if !rentPerDay.Valid || startDate == nil || endDate == nil {
			return nil, fmt.Errorf("rental proposal %d has incomplete variant columns", p.ID)
		}
		p.Details = models.RentalDetails{RentPerDay: rentPerDay.Decimal, StartDate: *startDate, EndDate: *endDate}
	case models.ProposalTypeSale:
		if !offeredPrice.Valid {
			return nil, fmt.Errorf("sale proposal %d has no offered_price", p.ID)
		}
		p.Details = models.SaleDetails{Price: offeredPrice.Decimal}
	case models.ProposalTypeSwap:
		if swapWith == nil {
			return nil, fmt.Errorf("swap proposal %d has no swap_with", p.ID)
		}
		p.Details = models.SwapDetails{SwapWith: *swapWith}
	case models.ProposalTypeGiveaway:
		p.Details = models.GiveawayDetails{}
	default:
		return nil, fmt.Errorf("proposal %d has unknown type %q", p.ID, p.Type)
	}

	return &p, nil
}

// variantColumns flattens the union payload into the nullable columns.
func variantColumns(p *models.Proposal) (rentPerDay, offeredPrice decimal.NullDecimal, startDate, endDate *time.Time, swapWith *string) {
	switch d := p.Details.(type) {
	case models.RentalDetails:
		rentPerDay = decimal.NullDecimal{Decimal: d.RentPerDay, Valid: true}
		startDate, endDate = &d.StartDate, &d.EndDate
	case models.SaleDetails:
		offeredPrice = decimal.NullDecimal{Decimal: d.Price, Valid: true}
	case models.SwapDetails:
		swapWith = &d.SwapWith
	}
	return
}

func (r *PgxProposalRepository) CreateProposal(ctx context.Context, p *models.Proposal) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// The listing title is denormalized onto the proposal at creation time.
	var listingTitle string
	err = tx.QueryRow(ctx, `SELECT title FROM listings WHERE id = $1`, p.ListingID).Scan(&listingTitle)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("listing %d: %w", p.ListingID, ErrNotFound)
		}
		return fmt.Errorf("loading listing title: %w", err)
	}
	p.ListingTitle = listingTitle

	rentPerDay, offeredPrice, startDate, endDate, swapWith := variantColumns(p)

	err = tx.QueryRow(ctx, `
        INSERT INTO proposals (proposal_type, title, description, listing_id, listing_title,
                               sender_id, receiver_id, status, message,
                               rent_per_day, start_date, end_date, offered_price, swap_with)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
        RETURNING id, created_at
    `, p.Type, p.Title, p.Description, p.ListingID, p.ListingTitle,
		p.SenderID, p.ReceiverID, p.Status, p.Message,
		rentPerDay, startDate, endDate, offeredPrice, swapWith,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting proposal: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *PgxProposalRepository) FetchProposalByID(ctx context.Context, id int64) (*models.Proposal, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+proposalColumns+` FROM proposals p WHERE p.id = $1`, id)
	p, err := scanProposal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("proposal %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("fetching proposal %d: %w", id, err)
	}
	return p, nil
}

func (r *PgxProposalRepository) FetchProposalsForUser(ctx context.Context, userID uuid.UUID, f models.ProposalFilters) ([]models.Proposal, int, error) {
	f = f.Normalize()

	// Role predicate: sent/received narrow to one side, otherwise both.
	var rolePredicate string
	switch {
	case f.Sent && !f.Received:
		rolePredicate = "p.sender_id = $1"
	case f.Received && !f.Sent:
		rolePredicate = "p.receiver_id = $1"
	default:
		rolePredicate = "(p.sender_id = $1 OR p.receiver_id = $1)"
	}

	where := "WHERE " + rolePredicate
	args := []any{userID}

	if statuses := f.Statuses(); len(statuses) > 0 {
		values := make([]string, len(statuses))
		for i, s := range statuses {
			values[i] = string(s)
		}
		where += fmt.Sprintf(" AND p.status = ANY($%d)", len(args)+1)
		args = append(args, values)
	}

	var total int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM proposals p "+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting proposals: %w", err)
	}

	query := "SELECT" + proposalColumns + " FROM proposals p " + where +
		fmt.Sprintf(" ORDER BY p.created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, f.Limit, (f.Page-1)*f.Limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying proposals: %w", err)
	}
	defer rows.Close()

	var proposals []models.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning proposal: %w", err)
		}
		proposals = append(proposals, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("reading proposals: %w", err)
	}

	return proposals, total, nil
}

func (r *PgxProposalRepository) FetchProposalsForListing(ctx context.Context, listingID int64) ([]models.Proposal, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT`+proposalColumns+` FROM proposals p WHERE p.listing_id = $1 ORDER BY p.created_at DESC`,
		listingID)
	if err != nil {
		return nil, fmt.Errorf("querying listing proposals: %w", err)
	}
	defer rows.Close()

	var proposals []models.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning proposal: %w", err)
		}
		proposals = append(proposals, *p)
	}
	return proposals, rows.Err()
}

func (r *PgxProposalRepository) UpdateProposalStatus(ctx context.Context, id int64, status models.Status) error {
	tag, err := r.pool.Exec(ctx, `
        UPDATE proposals SET status = $1, updated_at = NOW() WHERE id = $2
    `, status, id)
	if err != nil {
		return fmt.Errorf("updating proposal status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("proposal %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *PgxProposalRepository) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	err := r.pool.QueryRow(ctx, `
        INSERT INTO transactions (proposal_id, sender_id, receiver_id, amount)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at
    `, t.ProposalID, t.SenderID, t.ReceiverID, t.Amount).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting transaction: %w", err)
	}
	return nil
}

func (r *PgxProposalRepository) CalculateBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, int, error) {
	// Receivers are credited, senders debited.
	var sum decimal.NullDecimal
	var count int
	err := r.pool.QueryRow(ctx, `
        SELECT COALESCE(SUM(CASE WHEN receiver_id = $1 THEN amount ELSE -amount END), 0), COUNT(*)
        FROM transactions
        WHERE receiver_id = $1 OR sender_id = $1
    `, userID).Scan(&sum, &count)
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("calculating balance: %w", err)
	}
	return sum.Decimal, count, nil
}

func (r *PgxProposalRepository) FetchProposalImages(ctx context.Context, proposalID int64) ([]models.ProposalImage, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT id, proposal_id, url, preview_url, public_id, file_name, position, created_at
        FROM proposal_images
        WHERE proposal_id = $1
        ORDER BY position
    `, proposalID)
	if err != nil {
		return nil, fmt.Errorf("querying proposal images: %w", err)
	}
	defer rows.Close()

	var images []models.ProposalImage
	for rows.Next() {
		var img models.ProposalImage
		var previewURL, fileName *string
		if err := rows.Scan(&img.ID, &img.ProposalID, &img.URL, &previewURL, &img.PublicID, &fileName, &img.Position, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning proposal image: %w", err)
		}
		if previewURL != nil {
			img.PreviewURL = *previewURL
		}
		if fileName != nil {
			img.FileName = *fileName
		}
		images = append(images, img)
	}
	return images, rows.Err()
}
