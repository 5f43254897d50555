package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	rateDomain "cryptolend-backend/internal/domain/rate"
)

type RateRepository struct{ db *gorm.DB }

func NewRateRepository(db *gorm.DB) *RateRepository { return &RateRepository{db: db} }

// LatestQuote tries the pair as stored, then the swapped direction. The
// swapped hit comes back inverted so callers always see base/quote the
// way they asked for it.
func (r *RateRepository) LatestQuote(ctx context.Context, blockchainKey, baseTokenID, quoteTokenID string, asOf time.Time) (*rateDomain.Quote, error) {
	q, err := r.latestForDirection(ctx, blockchainKey, baseTokenID, quoteTokenID, asOf)
	if err == nil {
		return q, nil
	}
	if !errors.Is(err, rateDomain.ErrRateNotFound) {
		return nil, err
	}

	q, err = r.latestForDirection(ctx, blockchainKey, quoteTokenID, baseTokenID, asOf)
	if err != nil {
		return nil, err
	}
	inv := q.Invert()
	return &inv, nil
}

func (r *RateRepository) latestForDirection(ctx context.Context, blockchainKey, baseTokenID, quoteTokenID string, asOf time.Time) (*rateDomain.Quote, error) {
	var feed rateDomain.PriceFeed
	res := r.db.WithContext(ctx).
		Where("blockchain_key = ? AND base_token_id = ? AND quote_token_id = ?", blockchainKey, baseTokenID, quoteTokenID).
		First(&feed)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, rateDomain.ErrRateNotFound
		}
		return nil, res.Error
	}

	var obs rateDomain.ExchangeRate
	res = r.db.WithContext(ctx).
		Where("feed_id = ? AND source_date <= ?", feed.FeedID, asOf).
		Order("source_date DESC, id DESC").
		First(&obs)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, rateDomain.ErrRateNotFound
		}
		return nil, res.Error
	}

	return &rateDomain.Quote{
		FeedID:     feed.FeedID,
		BidPrice:   obs.BidPrice,
		AskPrice:   obs.AskPrice,
		SourceDate: obs.SourceDate,
	}, nil
}

func (r *RateRepository) Append(ctx context.Context, obs *rateDomain.ExchangeRate) error {
	return r.db.WithContext(ctx).Create(obs).Error
}
