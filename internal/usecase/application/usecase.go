package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	domainApp "cryptolend-backend/internal/domain/application"
	domainInvoice "cryptolend-backend/internal/domain/invoice"
	domainLedger "cryptolend-backend/internal/domain/ledger"
	"cryptolend-backend/internal/domain/pricing"
	"cryptolend-backend/internal/domain/uow"
	"cryptolend-backend/pkg/id"
	"cryptolend-backend/pkg/paging"
)

const collateralInvoiceDueDays = 3

type Usecase struct {
	uow uow.UnitOfWork
}

func NewUsecase(tx uow.UnitOfWork) *Usecase { return &Usecase{uow: tx} }

type CreateApplicationInput struct {
	BorrowerUserID    string
	LoanOfferID       *string
	BlockchainKey     string
	PrincipalTokenID  string
	CollateralTokenID string
	PrincipalAmount   decimal.Decimal
	MaxInterestRate   decimal.Decimal
	TermInMonths      int
	LiquidationMode   domainApp.LiquidationMode
	ExpirationDate    time.Time
	AppliedDate       time.Time
}

type ApplicationDTO struct {
	LoanApplicationID       string          `json:"loan_application_id"`
	BorrowerUserID          string          `json:"borrower_user_id"`
	LoanOfferID             *string         `json:"loan_offer_id,omitempty"`
	BlockchainKey           string          `json:"blockchain_key"`
	PrincipalTokenID        string          `json:"principal_token_id"`
	CollateralTokenID       string          `json:"collateral_token_id"`
	PrincipalAmount         decimal.Decimal `json:"principal_amount"`
	ProvisionAmount         decimal.Decimal `json:"provision_amount"`
	CollateralDepositAmount decimal.Decimal `json:"collateral_deposit_amount"`
	MaxInterestRate         decimal.Decimal `json:"max_interest_rate"`
	MinLtvRatio             decimal.Decimal `json:"min_ltv_ratio"`
	MaxLtvRatio             decimal.Decimal `json:"max_ltv_ratio"`
	TermInMonths            int             `json:"term_in_months"`
	LiquidationMode         string          `json:"liquidation_mode"`
	Status                  string          `json:"status"`
	AppliedDate             time.Time       `json:"applied_date"`
	ExpirationDate          time.Time       `json:"expiration_date"`
	MatchedDate             *time.Time      `json:"matched_date,omitempty"`
	MatchedLoanOfferID      *string         `json:"matched_loan_offer_id,omitempty"`
	ClosedDate              *time.Time      `json:"closed_date,omitempty"`
	ClosureReason           string          `json:"closure_reason,omitempty"`
	CollateralInvoice       *InvoiceDTO     `json:"collateral_invoice,omitempty"`
}

type InvoiceDTO struct {
	InvoiceID      string          `json:"invoice_id"`
	Type           string          `json:"type"`
	Status         string          `json:"status"`
	InvoicedAmount decimal.Decimal `json:"invoiced_amount"`
	InvoiceDate    time.Time       `json:"invoice_date"`
	DueDate        time.Time       `json:"due_date"`
	PaidDate       *time.Time      `json:"paid_date,omitempty"`
}

// Create validates the currency pair, resolves config and the latest
// collateral/principal rate as of AppliedDate, sizes provision and
// collateral via the requirement calculator, and inserts the application
// plus its LoanCollateral invoice in one transaction. Every resolution
// failure happens before the first write.
func (u *Usecase) Create(ctx context.Context, in CreateApplicationInput) (*ApplicationDTO, error) {
	if !in.PrincipalAmount.IsPositive() {
		return nil, errors.New("principal amount must be positive")
	}
	if in.TermInMonths < 1 {
		return nil, errors.New("term must be at least one month")
	}
	if in.LiquidationMode != domainApp.LiquidationPartial && in.LiquidationMode != domainApp.LiquidationFull {
		return nil, errors.New("unknown liquidation mode")
	}

	var dto *ApplicationDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		principalCur, _, err := r.Currencies.GetPair(ctx, in.BlockchainKey, in.PrincipalTokenID, in.CollateralTokenID)
		if err != nil {
			return err
		}
		if in.PrincipalAmount.LessThan(principalCur.MinLoanPrincipalAmount) ||
			in.PrincipalAmount.GreaterThan(principalCur.MaxLoanPrincipalAmount) {
			return fmt.Errorf("principal amount outside %s bounds", principalCur.Symbol)
		}

		asOf := in.AppliedDate.UTC()
		cfg, err := r.Configs.ResolveAsOf(ctx, asOf)
		if err != nil {
			return err
		}
		// Collateral priced in principal terms; bid is the conservative
		// side for sizing.
		quote, err := r.Rates.LatestQuote(ctx, in.BlockchainKey, in.CollateralTokenID, in.PrincipalTokenID, asOf)
		if err != nil {
			return err
		}

		req, err := pricing.CalculateRequirements(in.PrincipalAmount, cfg.LoanProvisionRate, cfg.LoanMinLtvRatio, quote.BidPrice)
		if err != nil {
			return err
		}

		a := &domainApp.LoanApplication{
			LoanApplicationID:       id.NewID32(),
			BorrowerUserID:          in.BorrowerUserID,
			LoanOfferID:             in.LoanOfferID,
			BlockchainKey:           in.BlockchainKey,
			PrincipalTokenID:        in.PrincipalTokenID,
			CollateralTokenID:       in.CollateralTokenID,
			PrincipalAmount:         in.PrincipalAmount,
			ProvisionAmount:         req.ProvisionAmount,
			CollateralDepositAmount: req.RequiredCollateralAmount,
			MaxInterestRate:         in.MaxInterestRate,
			MinLtvRatio:             cfg.LoanMinLtvRatio,
			MaxLtvRatio:             cfg.LoanMaxLtvRatio,
			TermInMonths:            in.TermInMonths,
			LiquidationMode:         in.LiquidationMode,
			Status:                  domainApp.StatusPendingCollateral,
			AppliedDate:             asOf,
			ExpirationDate:          in.ExpirationDate.UTC(),
		}
		if err := r.Applications.Create(ctx, a); err != nil {
			return err
		}

		inv := &domainInvoice.Invoice{
			InvoiceID:         id.NewID32(),
			Type:              domainInvoice.TypeLoanCollateral,
			Status:            domainInvoice.StatusPending,
			BlockchainKey:     in.BlockchainKey,
			TokenID:           in.CollateralTokenID,
			InvoicedAmount:    req.RequiredCollateralAmount,
			LoanApplicationID: &a.LoanApplicationID,
			InvoiceDate:       asOf,
			DueDate:           asOf.AddDate(0, 0, collateralInvoiceDueDays),
		}
		if err := r.Invoices.Create(ctx, inv); err != nil {
			return err
		}

		dto = toApplicationDTO(a, inv)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

type UpdateApplicationInput struct {
	LoanApplicationID string
	BorrowerUserID    string
	Action            domainApp.Action
	ClosureReason     string
	// New expiration for modify; zero means leave unchanged.
	ExpirationDate time.Time
	AsOf           time.Time
}

// Update routes cancel|modify. Any other action value is rejected before
// the row is even read.
func (u *Usecase) Update(ctx context.Context, in UpdateApplicationInput) (*ApplicationDTO, error) {
	switch in.Action {
	case domainApp.ActionCancel, domainApp.ActionModify:
	default:
		return nil, fmt.Errorf("%w: %q", domainApp.ErrInvalidAction, in.Action)
	}

	var dto *ApplicationDTO
	err := u.uow.WithinApplicationTx(ctx, in.LoanApplicationID, func(r uow.Repos, a *domainApp.LoanApplication) error {
		if a.BorrowerUserID != in.BorrowerUserID {
			return domainApp.ErrNotFound
		}

		switch in.Action {
		case domainApp.ActionCancel:
			if !a.CanCancel() {
				return &domainApp.TransitionError{Action: "cancel", Current: a.Status}
			}
			closedAt := in.AsOf.UTC()
			a.Status = domainApp.StatusClosed
			a.ClosedDate = &closedAt
			a.ClosureReason = in.ClosureReason
		case domainApp.ActionModify:
			if !a.CanModify() {
				return &domainApp.TransitionError{Action: "modify", Current: a.Status}
			}
			if !in.ExpirationDate.IsZero() {
				a.ExpirationDate = in.ExpirationDate.UTC()
			}
		}

		if err := r.Applications.Save(ctx, a); err != nil {
			return err
		}
		dto = toApplicationDTO(a, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// Publish handles the collateral-invoice-paid trigger: invoice Paid,
// application Published, collateral credited to the borrower's custody
// account, atomically.
func (u *Usecase) Publish(ctx context.Context, invoiceID, borrowerAccountID string, paidAt time.Time) (*ApplicationDTO, error) {
	var dto *ApplicationDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		inv, err := r.Invoices.GetByInvoiceID(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv.Type != domainInvoice.TypeLoanCollateral || inv.LoanApplicationID == nil {
			return domainInvoice.ErrNotFound
		}
		if inv.Status != domainInvoice.StatusPending {
			return domainInvoice.ErrNotPending
		}

		a, err := r.Applications.GetByApplicationIDForUpdate(ctx, *inv.LoanApplicationID)
		if err != nil {
			return err
		}
		if a.Status != domainApp.StatusPendingCollateral {
			return &domainApp.TransitionError{Action: "publish", Current: a.Status}
		}

		at := paidAt.UTC()
		inv.Status = domainInvoice.StatusPaid
		inv.PaidDate = &at
		if err := r.Invoices.Save(ctx, inv); err != nil {
			return err
		}

		a.Status = domainApp.StatusPublished
		if err := r.Applications.Save(ctx, a); err != nil {
			return err
		}

		m := &domainLedger.AccountMutation{
			MutationID:    id.NewID32(),
			AccountID:     borrowerAccountID,
			BlockchainKey: a.BlockchainKey,
			TokenID:       a.CollateralTokenID,
			MutationType:  domainLedger.MutationDeposit,
			Amount:        inv.InvoicedAmount,
			MutationDate:  at,
			InvoiceID:     &inv.InvoiceID,
		}
		if err := r.Mutations.Append(ctx, m); err != nil {
			return err
		}

		dto = toApplicationDTO(a, inv)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// Expire flips non-terminal applications past their expiration date.
func (u *Usecase) Expire(ctx context.Context, asOf time.Time) (int, error) {
	var n int
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		rows, err := r.Applications.ListExpirable(ctx, asOf.UTC())
		if err != nil {
			return err
		}
		for i := range rows {
			a := &rows[i]
			a.Status = domainApp.StatusExpired
			if err := r.Applications.Save(ctx, a); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

type ListInput struct {
	Status string
	Page   int
	Limit  int
}

type ListOutput struct {
	Items []ApplicationDTO `json:"items"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
	Total int64            `json:"total"`
}

func (u *Usecase) List(ctx context.Context, in ListInput) (*ListOutput, error) {
	page, limit := paging.Clamp(in.Page, in.Limit)

	var out *ListOutput
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		rows, total, err := r.Applications.List(ctx, domainApp.ListFilter{
			Status: domainApp.Status(in.Status),
			Page:   page,
			Limit:  limit,
		})
		if err != nil {
			return err
		}
		items := make([]ApplicationDTO, 0, len(rows))
		for i := range rows {
			items = append(items, *toApplicationDTO(&rows[i], nil))
		}
		out = &ListOutput{Items: items, Page: page, Limit: limit, Total: total}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func toApplicationDTO(a *domainApp.LoanApplication, inv *domainInvoice.Invoice) *ApplicationDTO {
	dto := &ApplicationDTO{
		LoanApplicationID:       a.LoanApplicationID,
		BorrowerUserID:          a.BorrowerUserID,
		LoanOfferID:             a.LoanOfferID,
		BlockchainKey:           a.BlockchainKey,
		PrincipalTokenID:        a.PrincipalTokenID,
		CollateralTokenID:       a.CollateralTokenID,
		PrincipalAmount:         a.PrincipalAmount,
		ProvisionAmount:         a.ProvisionAmount,
		CollateralDepositAmount: a.CollateralDepositAmount,
		MaxInterestRate:         a.MaxInterestRate,
		MinLtvRatio:             a.MinLtvRatio,
		MaxLtvRatio:             a.MaxLtvRatio,
		TermInMonths:            a.TermInMonths,
		LiquidationMode:         string(a.LiquidationMode),
		Status:                  string(a.Status),
		AppliedDate:             a.AppliedDate,
		ExpirationDate:          a.ExpirationDate,
		MatchedDate:             a.MatchedDate,
		MatchedLoanOfferID:      a.MatchedLoanOfferID,
		ClosedDate:              a.ClosedDate,
		ClosureReason:           a.ClosureReason,
	}
	if inv != nil {
		dto.CollateralInvoice = &InvoiceDTO{
			InvoiceID:      inv.InvoiceID,
			Type:           string(inv.Type),
			Status:         string(inv.Status),
			InvoicedAmount: inv.InvoicedAmount,
			InvoiceDate:    inv.InvoiceDate,
			DueDate:        inv.DueDate,
			PaidDate:       inv.PaidDate,
		}
	}
	return dto
}
