package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/peerbay/peerbay-api/internal/logging"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/vmihailenco/msgpack/v5"
)

// Query is the cache-aside layer over the repository. Reads go through
// GetOrLoad; mutations call the Invalidate family to delete every view the
// mutation could have gone stale.
//
// Cache failures never surface: a failing read degrades to a repository
// load, a failing write or delete is logged and dropped. There is no
// locking around the fill-on-miss path; concurrent misses for the same key
// may each load and each write, which is fine because the value is
// idempotent for the same input.
type Query struct {
	store Store
	keys  Keys
	ttl   time.Duration
	log   logging.Logger

	// tracked indexes the filter-hash keys issued per user, so mutations can
	// delete keys whose filter combination cannot be enumerated. The index is
	// process-local; an indexed key already evicted from the store costs one
	// redundant delete.
	tracked *xsync.MapOf[uuid.UUID, *xsync.MapOf[string, struct{}]]
}

// NewQuery builds the cache-aside layer. ttl bounds the life of every cached
// view.
func NewQuery(store Store, log logging.Logger, ttl time.Duration) *Query {
	return &Query{
		store:   store,
		ttl:     ttl,
		log:     log.With("component", "query_cache"),
		tracked: xsync.NewMapOf[uuid.UUID, *xsync.MapOf[string, struct{}]](),
	}
}

// Keys returns the key registry the cache is keyed by.
func (q *Query) Keys() Keys {
	return q.keys
}

// GetOrLoad reads key through the cache. On a hit the cached value is
// decoded and returned. On a miss (or any store/decode failure) the loader
// runs against the repository; when it reports the result as cacheable the
// value is written back best-effort before returning. Loaders report empty
// results as not cacheable so a transient "not found yet" is never pinned
// for the full TTL.
func GetOrLoad[T any](ctx context.Context, q *Query, key string, load func(ctx context.Context) (T, bool, error)) (T, error) {
	if raw, ok, err := q.store.Get(ctx, key); err != nil {
		q.log.Warn(ctx, "cache read failed, falling back to repository", "key", key, "error", err)
	} else if ok {
		var value T
		if err := msgpack.Unmarshal(raw, &value); err == nil {
			return value, nil
		}
		q.log.Warn(ctx, "cached value undecodable, treating as miss", "key", key, "error", err)
	}

	value, cacheable, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	if cacheable {
		if raw, err := msgpack.Marshal(value); err != nil {
			q.log.Warn(ctx, "cache encode failed", "key", key, "error", err)
		} else if err := q.store.Set(ctx, key, raw, q.ttl); err != nil {
			q.log.Warn(ctx, "cache write failed", "key", key, "error", err)
		}
	}

	return value, nil
}

// Track records a filter-hash key as issued for the given user so the next
// mutation touching the user can delete it.
func (q *Query) Track(userID uuid.UUID, key string) {
	set, _ := q.tracked.LoadOrCompute(userID, func() *xsync.MapOf[string, struct{}] {
		return xsync.NewMapOf[string, struct{}]()
	})
	set.Store(key, struct{}{})
}

// Invalidate deletes the given keys best-effort.
func (q *Query) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := q.store.Del(ctx, keys...); err != nil {
		q.log.Warn(ctx, "cache invalidation failed", "keys", keys, "error", err)
	}
}

// InvalidateTracked deletes every filter-hash key issued for the user and
// clears the index entry.
func (q *Query) InvalidateTracked(ctx context.Context, userID uuid.UUID) {
	set, ok := q.tracked.LoadAndDelete(userID)
	if !ok {
		return
	}
	var keys []string
	set.Range(func(key string, _ struct{}) bool {
		keys = append(keys, key)
		return true
	})
	q.Invalidate(ctx, keys...)
}

// InvalidateProposalViews deletes every cached view a proposal mutation can
// leave stale: the detail view, the per-listing view, all canonical per-user
// views of both participants, their tracked filter-hash views and, when the
// mutation settles money, both balances. Called only after the mutation is
// durably committed.
func (q *Query) InvalidateProposalViews(ctx context.Context, proposalID, listingID int64, senderID, receiverID uuid.UUID, withBalance bool) {
	keys := []string{
		q.keys.Proposal(proposalID),
		q.keys.ListingProposals(listingID),
		q.keys.UserProposals(senderID),
		q.keys.UserProposalsSent(senderID),
		q.keys.UserProposalsReceived(senderID),
		q.keys.UserProposals(receiverID),
		q.keys.UserProposalsSent(receiverID),
		q.keys.UserProposalsReceived(receiverID),
	}
	if withBalance {
		keys = append(keys, q.keys.UserBalance(senderID), q.keys.UserBalance(receiverID))
	}
	q.Invalidate(ctx, keys...)
	q.InvalidateTracked(ctx, senderID)
	q.InvalidateTracked(ctx, receiverID)
}
