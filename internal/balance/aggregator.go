// Package balance derives a user's account balance from the transactions
// settled by accepted proposals.
package balance

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/peerbay/peerbay-api/internal/cache"
	"github.com/shopspring/decimal"
)

// ErrNoTransactions is returned when the user has no settled transactions at
// all. A genuine balance of zero (credits and debits cancelling out) is not
// an error; absence of any data is.
var ErrNoTransactions = errors.New("no transactions found for this user")

// Source is the slice of the repository the aggregator needs.
type Source interface {
	CalculateBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, int, error)
}

// Aggregator computes and caches per-user balances with the same cache-aside
// pattern as the proposal views.
type Aggregator struct {
	source Source
	cache  *cache.Query
}

func NewAggregator(source Source, queryCache *cache.Query) *Aggregator {
	return &Aggregator{source: source, cache: queryCache}
}

// cachedBalance is the cached aggregate. TxCount is the presence flag that
// distinguishes "no data" from a legitimate zero; the decimal travels as a
// string to keep the encoding exact.
type cachedBalance struct {
	Balance string `msgpack:"balance"`
	TxCount int    `msgpack:"tx_count"`
}

// UserBalance returns the user's balance, computing and caching it on a
// miss. Aggregates with no contributing transactions are not cached and map
// to ErrNoTransactions.
func (a *Aggregator) UserBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	key := a.cache.Keys().UserBalance(userID)

	result, err := cache.GetOrLoad(ctx, a.cache, key, func(ctx context.Context) (cachedBalance, bool, error) {
		sum, count, err := a.source.CalculateBalance(ctx, userID)
		if err != nil {
			return cachedBalance{}, false, err
		}
		return cachedBalance{Balance: sum.String(), TxCount: count}, count > 0, nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	if result.TxCount == 0 {
		return decimal.Zero, ErrNoTransactions
	}

	value, err := decimal.NewFromString(result.Balance)
	if err != nil {
		return decimal.Zero, err
	}
	return value, nil
}
