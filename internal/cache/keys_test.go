package cache

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/peerbay/peerbay-api/internal/models"
)

func defaultFilters() models.ProposalFilters {
	return models.ProposalFilters{}.Normalize()
}

func TestKeysAreDeterministic(t *testing.T) {
	var keys Keys
	userID := uuid.New()

	f1 := defaultFilters()
	f1.Accepted = true
	f1.Sent = true

	// Same logical filter, assembled in a different order.
	f2 := models.ProposalFilters{Sent: true, Accepted: true}.Normalize()

	assert.Equal(t, keys.UserProposalsFiltered(userID, f1), keys.UserProposalsFiltered(userID, f2))
	assert.Equal(t, keys.Proposal(5), keys.Proposal(5))
	assert.Equal(t, keys.UserBalance(userID), keys.UserBalance(userID))
}

func TestFilteredKeysDistinguishEveryFlag(t *testing.T) {
	var keys Keys
	userID := uuid.New()

	base := defaultFilters()
	variants := []func(*models.ProposalFilters){
		func(f *models.ProposalFilters) { f.Page = 2 },
		func(f *models.ProposalFilters) { f.Limit = 20 },
		func(f *models.ProposalFilters) { f.Sent = true },
		func(f *models.ProposalFilters) { f.Received = true },
		func(f *models.ProposalFilters) { f.Accepted = true },
		func(f *models.ProposalFilters) { f.Rejected = true },
		func(f *models.ProposalFilters) { f.Cancelled = true },
		func(f *models.ProposalFilters) { f.Pending = true },
	}

	seen := map[string]bool{keys.UserProposalsFiltered(userID, base): true}
	for i, mutate := range variants {
		f := base
		mutate(&f)
		key := keys.UserProposalsFiltered(userID, f)
		assert.False(t, seen[key], "variant %d collided", i)
		seen[key] = true
	}
}

func TestKeyFamiliesDoNotCollide(t *testing.T) {
	var keys Keys
	userID := uuid.New()

	family := []string{
		keys.UserProposals(userID),
		keys.UserProposalsSent(userID),
		keys.UserProposalsReceived(userID),
		keys.UserBalance(userID),
		keys.UserFavorites(userID),
		keys.Proposal(1),
		keys.ProposalImages(1),
		keys.Listing(1),
		keys.ListingProposals(1),
	}

	seen := map[string]bool{}
	for _, key := range family {
		assert.False(t, seen[key], "key %q issued twice", key)
		seen[key] = true
	}
}

func TestForProposalList(t *testing.T) {
	var keys Keys
	userID := uuid.New()

	tests := []struct {
		name    string
		mutate  func(*models.ProposalFilters)
		want    string
		tracked bool
	}{
		{
			name:   "default view",
			mutate: func(f *models.ProposalFilters) {},
			want:   keys.UserProposals(userID),
		},
		{
			name:   "sent view",
			mutate: func(f *models.ProposalFilters) { f.Sent = true },
			want:   keys.UserProposalsSent(userID),
		},
		{
			name:   "received view",
			mutate: func(f *models.ProposalFilters) { f.Received = true },
			want:   keys.UserProposalsReceived(userID),
		},
		{
			name:   "both roles collapse to the combined view",
			mutate: func(f *models.ProposalFilters) { f.Sent = true; f.Received = true },
			want:   keys.UserProposals(userID),
		},
		{
			name:    "status filter forces a tracked hash key",
			mutate:  func(f *models.ProposalFilters) { f.Accepted = true },
			tracked: true,
		},
		{
			name:    "pagination forces a tracked hash key",
			mutate:  func(f *models.ProposalFilters) { f.Page = 3 },
			tracked: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := defaultFilters()
			tt.mutate(&f)
			key, tracked := keys.ForProposalList(userID, f)
			assert.Equal(t, tt.tracked, tracked)
			if tt.want != "" {
				assert.Equal(t, tt.want, key)
			} else {
				assert.Equal(t, keys.UserProposalsFiltered(userID, f), key)
			}
		})
	}
}
