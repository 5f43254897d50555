package currency

import (
	"context"
	"errors"
)

var (
	ErrNotFound     = errors.New("currency not found")
	ErrPairNotFound = errors.New("currency pair not found")
)

type Repository interface {
	GetByKey(ctx context.Context, blockchainKey, tokenID string) (*Currency, error)
	// GetPair resolves both legs of a principal/collateral pair on one chain.
	GetPair(ctx context.Context, blockchainKey, principalTokenID, collateralTokenID string) (principal, collateral *Currency, err error)
}
