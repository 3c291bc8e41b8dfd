package cache

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/peerbay/peerbay-api/internal/models"
)

// Keys generates the cache key for every cached view. Keys are pure
// functions of their input: the same logical input always yields the same
// string, distinct inputs never collide within a family, and the family
// prefixes keep the families apart.
type Keys struct{}

// Proposal is the detail view of a single proposal.
func (Keys) Proposal(id int64) string {
	return fmt.Sprintf("proposal:%d", id)
}

// UserProposals is the unfiltered view of everything a user participates in.
func (Keys) UserProposals(userID uuid.UUID) string {
	return fmt.Sprintf("user_proposals:%s", userID)
}

// UserProposalsSent is the unfiltered view of proposals the user sent. Sent
// and received are asymmetric roles of the same user, so they are distinct
// keys, not aliases.
func (Keys) UserProposalsSent(userID uuid.UUID) string {
	return fmt.Sprintf("user_proposals_sent:%s", userID)
}

// UserProposalsReceived is the unfiltered view of proposals the user received.
func (Keys) UserProposalsReceived(userID uuid.UUID) string {
	return fmt.Sprintf("user_proposals_received:%s", userID)
}

// UserProposalsFiltered keys an arbitrary filter/pagination combination. The
// hash is computed over a canonical fixed-order encoding, so the key does not
// depend on how the filter struct was put together.
func (Keys) UserProposalsFiltered(userID uuid.UUID, f models.ProposalFilters) string {
	canonical := fmt.Sprintf(
		"page=%d&limit=%d&sent=%t&received=%t&accepted=%t&rejected=%t&cancelled=%t&pending=%t",
		f.Page, f.Limit, f.Sent, f.Received, f.Accepted, f.Rejected, f.Cancelled, f.Pending,
	)
	return fmt.Sprintf("user_proposals_filtered:%s:%016x", userID, xxhash.Sum64String(canonical))
}

// ForProposalList picks the key a proposal list query is cached under:
// one of the three canonical per-user views when the filter set is canonical,
// otherwise a filter-hash key. The second return value reports whether the
// key must be tracked for targeted invalidation.
func (k Keys) ForProposalList(userID uuid.UUID, f models.ProposalFilters) (string, bool) {
	if !f.Canonical() {
		return k.UserProposalsFiltered(userID, f), true
	}
	switch {
	case f.Sent && !f.Received:
		return k.UserProposalsSent(userID), false
	case f.Received && !f.Sent:
		return k.UserProposalsReceived(userID), false
	default:
		return k.UserProposals(userID), false
	}
}

// UserBalance is the derived balance aggregate of a user.
func (Keys) UserBalance(userID uuid.UUID) string {
	return fmt.Sprintf("user_balance:%s", userID)
}

// ProposalImages is the attachment listing of a proposal.
func (Keys) ProposalImages(proposalID int64) string {
	return fmt.Sprintf("proposal_images:%d", proposalID)
}

// ListingProposals is the view of all proposals made on a listing.
func (Keys) ListingProposals(listingID int64) string {
	return fmt.Sprintf("listing_proposals:%d", listingID)
}

// Listing is the detail view of a single listing.
func (Keys) Listing(id int64) string {
	return fmt.Sprintf("listing:%d", id)
}

// UserFavorites is the favorites view of a user.
func (Keys) UserFavorites(userID uuid.UUID) string {
	return fmt.Sprintf("user_favorites:%s", userID)
}
