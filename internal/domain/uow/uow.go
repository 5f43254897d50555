package uow

import (
	"context"

	"cryptolend-backend/internal/domain/application"
	"cryptolend-backend/internal/domain/currency"
	"cryptolend-backend/internal/domain/invoice"
	"cryptolend-backend/internal/domain/ledger"
	"cryptolend-backend/internal/domain/loan"
	"cryptolend-backend/internal/domain/offer"
	"cryptolend-backend/internal/domain/platformconfig"
	"cryptolend-backend/internal/domain/rate"
	"cryptolend-backend/internal/domain/withdrawal"
)

// Repos is the set of repositories bound to one transaction. Resolver
// reads (currencies, rates, config) made through this bundle observe the
// same snapshot as the writes they feed; a calculation never mixes a
// pre-transaction cached rate with in-transaction writes.
type Repos struct {
	Currencies   currency.Repository
	Rates        rate.Repository
	Configs      platformconfig.Repository
	Invoices     invoice.Repository
	Offers       offer.Repository
	Applications application.Repository
	Loans        loan.Repository
	Withdrawals  withdrawal.Repository
	Mutations    ledger.Repository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// convenience variants: lock the aggregate row first, then pass it in
	WithinOfferTx(ctx context.Context, offerID string, fn func(r Repos, o *offer.LoanOffer) error) error
	WithinApplicationTx(ctx context.Context, applicationID string, fn func(r Repos, a *application.LoanApplication) error) error
	WithinLoanTx(ctx context.Context, loanID string, fn func(r Repos, l *loan.Loan) error) error
	WithinWithdrawalTx(ctx context.Context, withdrawalID string, fn func(r Repos, w *withdrawal.Withdrawal) error) error
}
