package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	loanDomain "cryptolend-backend/internal/domain/loan"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

func (r *LoanRepository) Create(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *LoanRepository) GetByLoanID(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).Where("loan_id = ?", loanID).First(&out)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, loanDomain.ErrNotFound
		}
		return nil, res.Error
	}
	return &out, nil
}

func (r *LoanRepository) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("loan_id = ?", loanID).
		First(&out)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, loanDomain.ErrNotFound
		}
		return nil, res.Error
	}
	return &out, nil
}

func (r *LoanRepository) Save(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Save(l).Error
}

// UpsertRepayment replaces the pending repayment request for the loan:
// one row per loan, newer requests overwrite initiator/invoice/date.
func (r *LoanRepository) UpsertRepayment(ctx context.Context, rep *loanDomain.LoanRepayment) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "loan_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"repayment_initiator", "repayment_invoice_id", "repayment_invoice_date",
			}),
		}).
		Create(rep).Error
}

func (r *LoanRepository) GetRepaymentByLoanID(ctx context.Context, loanID string) (*loanDomain.LoanRepayment, error) {
	var out loanDomain.LoanRepayment
	res := r.db.WithContext(ctx).Where("loan_id = ?", loanID).First(&out)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, loanDomain.ErrNotFound
		}
		return nil, res.Error
	}
	return &out, nil
}

// CreateLiquidation is a plain insert: the usecase checks for an existing
// row first, the unique index on loan_id catches the race.
func (r *LoanRepository) CreateLiquidation(ctx context.Context, q *loanDomain.LoanLiquidation) error {
	err := r.db.WithContext(ctx).Create(q).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return loanDomain.ErrDuplicateLiquidation
	}
	return err
}

func (r *LoanRepository) GetLiquidationByLoanID(ctx context.Context, loanID string) (*loanDomain.LoanLiquidation, error) {
	var out loanDomain.LoanLiquidation
	res := r.db.WithContext(ctx).Where("loan_id = ?", loanID).First(&out)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, loanDomain.ErrNotFound
		}
		return nil, res.Error
	}
	return &out, nil
}
