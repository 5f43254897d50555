package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	domainLedger "cryptolend-backend/internal/domain/ledger"
	"cryptolend-backend/internal/domain/rate"
	"cryptolend-backend/internal/domain/uow"
)

// Token id used by USD price feeds for valuation.
const usdTokenID = "usd"

type Usecase struct {
	uow uow.UnitOfWork
}

func NewUsecase(tx uow.UnitOfWork) *Usecase { return &Usecase{uow: tx} }

type BalanceDTO struct {
	AccountID     string          `json:"account_id"`
	BlockchainKey string          `json:"blockchain_key"`
	TokenID       string          `json:"token_id"`
	Balance       decimal.Decimal `json:"balance"`
	// Nil when no USD feed exists for the currency.
	ValuationUSD *decimal.Decimal `json:"valuation_usd,omitempty"`
}

type PortfolioDTO struct {
	Accounts []BalanceDTO `json:"accounts"`
	// Integer-accumulated across accounts; valuation-less accounts are
	// skipped, never rounded in.
	TotalValuationUSD decimal.Decimal `json:"total_valuation_usd"`
}

// Balance projects one account: running sum of its mutations up to asOf,
// plus a USD valuation when a feed exists.
func (u *Usecase) Balance(ctx context.Context, accountID string, asOf time.Time) (*BalanceDTO, error) {
	var dto *BalanceDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		refs, err := r.Mutations.Accounts(ctx, []string{accountID})
		if err != nil {
			return err
		}
		if len(refs) == 0 {
			return domainLedger.ErrAccountNotFound
		}
		d, err := u.project(ctx, r, refs[0], asOf)
		if err != nil {
			return err
		}
		dto = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// Portfolio projects a set of accounts and totals their USD valuations.
// The total is accumulated as an integer sum of per-account integer
// valuations so precision never leaks across many small balances.
func (u *Usecase) Portfolio(ctx context.Context, accountIDs []string, asOf time.Time) (*PortfolioDTO, error) {
	var out *PortfolioDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		refs, err := r.Mutations.Accounts(ctx, accountIDs)
		if err != nil {
			return err
		}
		accounts := make([]BalanceDTO, 0, len(refs))
		total := decimal.Zero
		for _, ref := range refs {
			d, err := u.project(ctx, r, ref, asOf)
			if err != nil {
				return err
			}
			accounts = append(accounts, *d)
			if d.ValuationUSD != nil {
				total = total.Add(*d.ValuationUSD)
			}
		}
		out = &PortfolioDTO{Accounts: accounts, TotalValuationUSD: total}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (u *Usecase) project(ctx context.Context, r uow.Repos, ref domainLedger.AccountRef, asOf time.Time) (*BalanceDTO, error) {
	balance, err := r.Mutations.Balance(ctx, ref.AccountID, asOf.UTC())
	if err != nil {
		return nil, err
	}

	dto := &BalanceDTO{
		AccountID:     ref.AccountID,
		BlockchainKey: ref.BlockchainKey,
		TokenID:       ref.TokenID,
		Balance:       balance,
	}

	quote, err := r.Rates.LatestQuote(ctx, ref.BlockchainKey, ref.TokenID, usdTokenID, asOf.UTC())
	if err != nil {
		if errors.Is(err, rate.ErrRateNotFound) {
			// No USD feed: valuation stays nil, the balance is still valid.
			return dto, nil
		}
		return nil, err
	}

	cur, err := r.Currencies.GetByKey(ctx, ref.BlockchainKey, ref.TokenID)
	if err != nil {
		return nil, err
	}

	// balance * bid / 10^decimals; Mul and Shift are exact, Floor lands
	// on whole USD.
	valuation := balance.Mul(quote.BidPrice).Shift(-int32(cur.Decimals)).Floor()
	dto.ValuationUSD = &valuation
	return dto, nil
}
