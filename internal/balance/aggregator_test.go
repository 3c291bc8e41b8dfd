package balance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peerbay/peerbay-api/internal/cache"
	"github.com/peerbay/peerbay-api/internal/logging"
)

type fakeSource struct {
	sum   decimal.Decimal
	count int
	err   error
	calls int
}

func (s *fakeSource) CalculateBalance(context.Context, uuid.UUID) (decimal.Decimal, int, error) {
	s.calls++
	return s.sum, s.count, s.err
}

type mapStore struct {
	data map[string][]byte
}

func (s *mapStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	raw, ok := s.data[key]
	return raw, ok, nil
}

func (s *mapStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.data[key] = value
	return nil
}

func (s *mapStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func newTestAggregator(source *fakeSource) *Aggregator {
	store := &mapStore{data: map[string][]byte{}}
	q := cache.NewQuery(store, logging.NewDefault(), time.Minute)
	return NewAggregator(source, q)
}

func TestUserBalanceCachesComputedValue(t *testing.T) {
	source := &fakeSource{sum: decimal.RequireFromString("137.40"), count: 3}
	aggregator := newTestAggregator(source)
	ctx := context.Background()
	userID := uuid.New()

	first, err := aggregator.UserBalance(ctx, userID)
	require.NoError(t, err)
	assert.True(t, first.Equal(decimal.RequireFromString("137.40")), "got %s", first)

	second, err := aggregator.UserBalance(ctx, userID)
	require.NoError(t, err)
	assert.True(t, first.Equal(second))
	assert.Equal(t, 1, source.calls, "second read must hit the cache")
}

func TestUserBalanceNoTransactions(t *testing.T) {
	source := &fakeSource{sum: decimal.Zero, count: 0}
	aggregator := newTestAggregator(source)
	ctx := context.Background()
	userID := uuid.New()

	_, err := aggregator.UserBalance(ctx, userID)
	assert.ErrorIs(t, err, ErrNoTransactions)

	// Absence is not cached: the next read recomputes.
	_, err = aggregator.UserBalance(ctx, userID)
	assert.ErrorIs(t, err, ErrNoTransactions)
	assert.Equal(t, 2, source.calls)
}

func TestUserBalanceZeroWithTransactionsIsValid(t *testing.T) {
	source := &fakeSource{sum: decimal.Zero, count: 4}
	aggregator := newTestAggregator(source)

	value, err := aggregator.UserBalance(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.True(t, value.IsZero())
}

func TestUserBalanceNegative(t *testing.T) {
	source := &fakeSource{sum: decimal.RequireFromString("-25.10"), count: 2}
	aggregator := newTestAggregator(source)

	value, err := aggregator.UserBalance(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.True(t, value.Equal(decimal.RequireFromString("-25.10")), "got %s", value)
}

func TestUserBalancePropagatesSourceError(t *testing.T) {
	source := &fakeSource{err: errors.New("query timeout")}
	aggregator := newTestAggregator(source)

	_, err := aggregator.UserBalance(context.Background(), uuid.New())
	assert.EqualError(t, err, "query timeout")
}
