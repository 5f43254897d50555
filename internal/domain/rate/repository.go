package rate

import (
	"context"
	"errors"
	"time"
)

// ErrRateNotFound means no feed exists for the pair, or the feed has no
// observation at or before the requested instant. Callers must treat it as
// fatal for the requesting operation: a stale or default rate is never
// substituted.
var ErrRateNotFound = errors.New("exchange rate not found")

type Repository interface {
	// LatestQuote resolves the most recent observation with
	// source_date <= asOf for the (base, quote) pair on the chain. Feeds
	// stored in the opposite direction are inverted before returning.
	LatestQuote(ctx context.Context, blockchainKey, baseTokenID, quoteTokenID string, asOf time.Time) (*Quote, error)
	Append(ctx context.Context, r *ExchangeRate) error
}
