package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	loanDomain "cryptolend-backend/internal/domain/loan"
	"cryptolend-backend/internal/testutil/dbtest"
	"cryptolend-backend/pkg/id"
)

func makeLoan(loanID string) *loanDomain.Loan {
	now := time.Now().UTC()
	return &loanDomain.Loan{
		LoanID:            loanID,
		LoanApplicationID: id.NewID32(),
		LoanOfferID:       id.NewID32(),
		BorrowerUserID:    id.NewID32(),
		LenderUserID:      id.NewID32(),
		BlockchainKey:     "bsc",
		PrincipalTokenID:  "usdc",
		CollateralTokenID: "bnb",
		PrincipalAmount:   decimal.NewFromInt(10_000_000_000),
		InterestAmount:    decimal.NewFromInt(625_000_000),
		PremiAmount:       decimal.NewFromInt(100_000_000),
		LiquidationFeeAmount: decimal.NewFromInt(50_000_000),
		RepaymentAmount:      decimal.NewFromInt(10_775_000_000),
		CollateralAmount:     decimal.NewFromInt(8_333_334),
		InterestRate:         decimal.RequireFromString("12.5"),
		TermInMonths:         6,
		Status:               loanDomain.StatusActive,
		OriginationDate:      now,
		MaturityDate:         now.AddDate(0, 6, 0),
	}
}

func TestLoanRepository_CreateAndGet(t *testing.T) {
	db := dbtest.OpenSQLite(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	lid := id.NewID32()
	if err := repo.Create(ctx, makeLoan(lid)); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetByLoanID(ctx, lid)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Outstanding().Equal(decimal.NewFromInt(10_775_000_000)) {
		t.Fatalf("outstanding = %s, want 10775000000", got.Outstanding())
	}

	if _, err := repo.GetByLoanID(ctx, id.NewID32()); !errors.Is(err, loanDomain.ErrNotFound) {
		t.Fatalf("missing loan: want ErrNotFound, got %v", err)
	}
}

func TestLoanRepository_UpsertRepayment_Overwrites(t *testing.T) {
	db := dbtest.OpenSQLite(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	lid := id.NewID32()
	first := &loanDomain.LoanRepayment{
		LoanID:               lid,
		RepaymentInitiator:   loanDomain.InitiatorBorrower,
		RepaymentInvoiceID:   id.NewID32(),
		RepaymentInvoiceDate: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := repo.UpsertRepayment(ctx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second := &loanDomain.LoanRepayment{
		LoanID:               lid,
		RepaymentInitiator:   loanDomain.InitiatorSystem,
		RepaymentInvoiceID:   id.NewID32(),
		RepaymentInvoiceDate: time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC),
	}
	if err := repo.UpsertRepayment(ctx, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := repo.GetRepaymentByLoanID(ctx, lid)
	if err != nil {
		t.Fatalf("get repayment: %v", err)
	}
	if got.RepaymentInvoiceID != second.RepaymentInvoiceID {
		t.Fatalf("invoice id = %s, want overwrite %s", got.RepaymentInvoiceID, second.RepaymentInvoiceID)
	}
	if got.RepaymentInitiator != loanDomain.InitiatorSystem {
		t.Fatalf("initiator = %s, want System", got.RepaymentInitiator)
	}

	// still exactly one row
	var count int64
	if err := db.Model(&loanDomain.LoanRepayment{}).Where("loan_id = ?", lid).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("repayment rows = %d, want 1", count)
	}
}

func TestLoanRepository_CreateLiquidation_DuplicateConflicts(t *testing.T) {
	db := dbtest.OpenSQLite(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	lid := id.NewID32()
	mk := func() *loanDomain.LoanLiquidation {
		return &loanDomain.LoanLiquidation{
			LoanID:                  lid,
			LiquidationInitiator:    loanDomain.InitiatorBorrower,
			LiquidationTargetAmount: decimal.NewFromInt(10_775_000_000),
			MarketProvider:          "binance",
			MarketSymbol:            "BNBUSDC",
			Status:                  loanDomain.LiquidationPending,
			OrderDate:               time.Now().UTC(),
		}
	}
	if err := repo.CreateLiquidation(ctx, mk()); err != nil {
		t.Fatalf("first liquidation: %v", err)
	}
	if err := repo.CreateLiquidation(ctx, mk()); !errors.Is(err, loanDomain.ErrDuplicateLiquidation) {
		t.Fatalf("second liquidation: want ErrDuplicateLiquidation, got %v", err)
	}

	got, err := repo.GetLiquidationByLoanID(ctx, lid)
	if err != nil {
		t.Fatalf("get liquidation: %v", err)
	}
	if got.Status != loanDomain.LiquidationPending {
		t.Fatalf("status = %s, want Pending", got.Status)
	}
}
