package loan

import (
	"context"
	"errors"
)

var (
	ErrNotFound             = errors.New("loan not found")
	ErrNotActive            = errors.New("loan is not active")
	ErrDuplicateLiquidation = errors.New("liquidation already exists for loan")
)

type Repository interface {
	Create(ctx context.Context, l *Loan) error
	GetByLoanID(ctx context.Context, loanID string) (*Loan, error)
	GetByLoanIDForUpdate(ctx context.Context, loanID string) (*Loan, error)
	Save(ctx context.Context, l *Loan) error

	// UpsertRepayment overwrites the single pending repayment row for the
	// loan, or inserts it when absent.
	UpsertRepayment(ctx context.Context, r *LoanRepayment) error
	GetRepaymentByLoanID(ctx context.Context, loanID string) (*LoanRepayment, error)

	// CreateLiquidation inserts the one-and-only liquidation row; the
	// caller checks GetLiquidationByLoanID first, the unique index on
	// loan_id is the backstop.
	CreateLiquidation(ctx context.Context, q *LoanLiquidation) error
	GetLiquidationByLoanID(ctx context.Context, loanID string) (*LoanLiquidation, error)
}
