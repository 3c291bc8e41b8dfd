package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peerbay/peerbay-api/internal/logging"
)

// fakeStore is an in-memory Store with switchable failures.
type fakeStore struct {
	data    map[string][]byte
	failGet bool
	failSet bool
	deleted []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string][]byte{}}
}

func (s *fakeStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	if s.failGet {
		return nil, false, errors.New("store down")
	}
	raw, ok := s.data[key]
	return raw, ok, nil
}

func (s *fakeStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	if s.failSet {
		return errors.New("store down")
	}
	s.data[key] = value
	return nil
}

func (s *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.data, key)
		s.deleted = append(s.deleted, key)
	}
	return nil
}

func newTestQuery(store Store) *Query {
	return NewQuery(store, logging.NewDefault(), time.Minute)
}

type listView struct {
	Items []string `msgpack:"items"`
	Total int      `msgpack:"total"`
}

func TestGetOrLoadCachesAfterMiss(t *testing.T) {
	store := newFakeStore()
	q := newTestQuery(store)
	ctx := context.Background()

	loads := 0
	load := func(ctx context.Context) (listView, bool, error) {
		loads++
		return listView{Items: []string{"a", "b"}, Total: 2}, true, nil
	}

	first, err := GetOrLoad(ctx, q, "view:1", load)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Total)

	second, err := GetOrLoad(ctx, q, "view:1", load)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, loads, "second read must be served from cache")
}

func TestGetOrLoadDoesNotCacheEmptyResults(t *testing.T) {
	store := newFakeStore()
	q := newTestQuery(store)
	ctx := context.Background()

	loads := 0
	load := func(ctx context.Context) (listView, bool, error) {
		loads++
		return listView{}, false, nil
	}

	_, err := GetOrLoad(ctx, q, "view:1", load)
	require.NoError(t, err)
	_, err = GetOrLoad(ctx, q, "view:1", load)
	require.NoError(t, err)

	assert.Equal(t, 2, loads, "non-cacheable result must reload every time")
	assert.Empty(t, store.data)
}

func TestGetOrLoadDegradesOnStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.failGet = true
	store.failSet = true
	q := newTestQuery(store)

	value, err := GetOrLoad(context.Background(), q, "view:1", func(ctx context.Context) (listView, bool, error) {
		return listView{Total: 3}, true, nil
	})
	require.NoError(t, err, "store failures must not surface")
	assert.Equal(t, 3, value.Total)
}

func TestGetOrLoadTreatsUndecodableValueAsMiss(t *testing.T) {
	store := newFakeStore()
	store.data["view:1"] = []byte("not msgpack")
	q := newTestQuery(store)

	value, err := GetOrLoad(context.Background(), q, "view:1", func(ctx context.Context) (listView, bool, error) {
		return listView{Total: 7}, true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, value.Total)
}

func TestGetOrLoadPropagatesLoaderError(t *testing.T) {
	q := newTestQuery(newFakeStore())
	wantErr := errors.New("repository down")

	_, err := GetOrLoad(context.Background(), q, "view:1", func(ctx context.Context) (listView, bool, error) {
		return listView{}, false, wantErr
	})
	assert.ErrorIs(t, err, wantErr)
}

func TestInvalidateTracked(t *testing.T) {
	store := newFakeStore()
	q := newTestQuery(store)
	ctx := context.Background()
	userID := uuid.New()

	store.data["hash:1"] = []byte{1}
	store.data["hash:2"] = []byte{2}
	q.Track(userID, "hash:1")
	q.Track(userID, "hash:2")

	q.InvalidateTracked(ctx, userID)
	assert.Empty(t, store.data)

	// The index entry is consumed; a second pass deletes nothing.
	store.deleted = nil
	q.InvalidateTracked(ctx, userID)
	assert.Empty(t, store.deleted)
}

func TestInvalidateProposalViews(t *testing.T) {
	store := newFakeStore()
	q := newTestQuery(store)
	ctx := context.Background()
	keys := q.Keys()

	senderID, receiverID := uuid.New(), uuid.New()
	proposalID, listingID := int64(5), int64(9)

	q.Track(senderID, "hash:sender")
	q.Track(receiverID, "hash:receiver")

	q.InvalidateProposalViews(ctx, proposalID, listingID, senderID, receiverID, true)

	want := []string{
		keys.Proposal(proposalID),
		keys.ListingProposals(listingID),
		keys.UserProposals(senderID),
		keys.UserProposalsSent(senderID),
		keys.UserProposalsReceived(senderID),
		keys.UserProposals(receiverID),
		keys.UserProposalsSent(receiverID),
		keys.UserProposalsReceived(receiverID),
		keys.UserBalance(senderID),
		keys.UserBalance(receiverID),
		"hash:sender",
		"hash:receiver",
	}
	for _, key := range want {
		assert.Contains(t, store.deleted, key)
	}
}

func TestInvalidateProposalViewsKeepsBalances(t *testing.T) {
	store := newFakeStore()
	q := newTestQuery(store)
	keys := q.Keys()

	senderID, receiverID := uuid.New(), uuid.New()
	q.InvalidateProposalViews(context.Background(), 1, 2, senderID, receiverID, false)

	assert.NotContains(t, store.deleted, keys.UserBalance(senderID))
	assert.NotContains(t, store.deleted, keys.UserBalance(receiverID))
}
