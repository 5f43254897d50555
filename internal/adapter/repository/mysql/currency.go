package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	currencyDomain "cryptolend-backend/internal/domain/currency"
)

type CurrencyRepository struct{ db *gorm.DB }

func NewCurrencyRepository(db *gorm.DB) *CurrencyRepository { return &CurrencyRepository{db: db} }

func (r *CurrencyRepository) GetByKey(ctx context.Context, blockchainKey, tokenID string) (*currencyDomain.Currency, error) {
	var out currencyDomain.Currency
	res := r.db.WithContext(ctx).
		Where("blockchain_key = ? AND token_id = ?", blockchainKey, tokenID).
		First(&out)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, currencyDomain.ErrNotFound
		}
		return nil, res.Error
	}
	return &out, nil
}

func (r *CurrencyRepository) GetPair(ctx context.Context, blockchainKey, principalTokenID, collateralTokenID string) (*currencyDomain.Currency, *currencyDomain.Currency, error) {
	principal, err := r.GetByKey(ctx, blockchainKey, principalTokenID)
	if err != nil {
		if errors.Is(err, currencyDomain.ErrNotFound) {
			return nil, nil, currencyDomain.ErrPairNotFound
		}
		return nil, nil, err
	}
	collateral, err := r.GetByKey(ctx, blockchainKey, collateralTokenID)
	if err != nil {
		if errors.Is(err, currencyDomain.ErrNotFound) {
			return nil, nil, currencyDomain.ErrPairNotFound
		}
		return nil, nil, err
	}
	return principal, collateral, nil
}
