package loan

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	domainApp "cryptolend-backend/internal/domain/application"
	domainInvoice "cryptolend-backend/internal/domain/invoice"
	domainLedger "cryptolend-backend/internal/domain/ledger"
	domainLoan "cryptolend-backend/internal/domain/loan"
	domainOffer "cryptolend-backend/internal/domain/offer"
	"cryptolend-backend/internal/domain/pricing"
	"cryptolend-backend/internal/domain/uow"
	"cryptolend-backend/pkg/id"
)

const repaymentInvoiceDueDays = 7

type Usecase struct {
	uow uow.UnitOfWork
}

func NewUsecase(tx uow.UnitOfWork) *Usecase { return &Usecase{uow: tx} }

type LoanDTO struct {
	LoanID               string          `json:"loan_id"`
	LoanApplicationID    string          `json:"loan_application_id"`
	LoanOfferID          string          `json:"loan_offer_id"`
	BorrowerUserID       string          `json:"borrower_user_id"`
	LenderUserID         string          `json:"lender_user_id"`
	PrincipalAmount      decimal.Decimal `json:"principal_amount"`
	InterestAmount       decimal.Decimal `json:"interest_amount"`
	PremiAmount          decimal.Decimal `json:"premi_amount"`
	LiquidationFeeAmount decimal.Decimal `json:"liquidation_fee_amount"`
	RepaymentAmount      decimal.Decimal `json:"repayment_amount"`
	CollateralAmount     decimal.Decimal `json:"collateral_amount"`
	LiquidationMode      string          `json:"liquidation_mode"`
	Status               string          `json:"status"`
	OriginationDate      time.Time       `json:"origination_date"`
	MaturityDate         time.Time       `json:"maturity_date"`
}

type MatchInput struct {
	LoanApplicationID string
	LoanOfferID       string
	AsOf              time.Time
}

// Match originates a Loan from a Published application against a
// Published offer: charges are fixed from the offer's rate and the fee
// schedule effective at match time, the offer's available principal is
// drawn down, and the application moves to Matched. All in one
// transaction; the draw-down is checked before any write so
// available_principal_amount never goes negative.
func (u *Usecase) Match(ctx context.Context, in MatchInput) (*LoanDTO, error) {
	var dto *LoanDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		a, err := r.Applications.GetByApplicationIDForUpdate(ctx, in.LoanApplicationID)
		if err != nil {
			return err
		}
		if a.Status != domainApp.StatusPublished {
			return &domainApp.TransitionError{Action: "match", Current: a.Status}
		}

		o, err := r.Offers.GetByOfferIDForUpdate(ctx, in.LoanOfferID)
		if err != nil {
			return err
		}
		if o.Status != domainOffer.StatusPublished {
			return &domainOffer.TransitionError{Action: "match", Current: o.Status}
		}
		if o.InterestRate.GreaterThan(a.MaxInterestRate) {
			return errors.New("offer interest rate exceeds application maximum")
		}
		if a.PrincipalAmount.GreaterThan(o.AvailablePrincipalAmount) {
			return errors.New("offer has insufficient available principal")
		}

		asOf := in.AsOf.UTC()
		cfg, err := r.Configs.ResolveAsOf(ctx, asOf)
		if err != nil {
			return err
		}

		charges := pricing.CalculateLoanCharges(a.PrincipalAmount, o.InterestRate, a.TermInMonths, cfg.RedeliveryFeeRate, cfg.LiquidationFeeRate)

		l := &domainLoan.Loan{
			LoanID:               id.NewID32(),
			LoanApplicationID:    a.LoanApplicationID,
			LoanOfferID:          o.LoanOfferID,
			BorrowerUserID:       a.BorrowerUserID,
			LenderUserID:         o.LenderUserID,
			BlockchainKey:        a.BlockchainKey,
			PrincipalTokenID:     a.PrincipalTokenID,
			CollateralTokenID:    a.CollateralTokenID,
			PrincipalAmount:      a.PrincipalAmount,
			InterestAmount:       charges.InterestAmount,
			PremiAmount:          charges.PremiAmount,
			LiquidationFeeAmount: charges.LiquidationFeeAmount,
			RepaymentAmount:      charges.RepaymentAmount,
			CollateralAmount:     a.CollateralDepositAmount,
			InterestRate:         o.InterestRate,
			TermInMonths:         a.TermInMonths,
			LiquidationMode:      a.LiquidationMode,
			Status:               domainLoan.StatusOriginated,
			OriginationDate:      asOf,
			MaturityDate:         asOf.AddDate(0, a.TermInMonths, 0),
		}
		if err := r.Loans.Create(ctx, l); err != nil {
			return err
		}

		o.AvailablePrincipalAmount = o.AvailablePrincipalAmount.Sub(a.PrincipalAmount)
		if err := r.Offers.Save(ctx, o); err != nil {
			return err
		}

		a.Status = domainApp.StatusMatched
		a.MatchedDate = &asOf
		a.MatchedLoanOfferID = &o.LoanOfferID
		if err := r.Applications.Save(ctx, a); err != nil {
			return err
		}

		dto = toLoanDTO(l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// Activate is the disbursement trigger: the originated loan goes Active
// and the net principal (minus the application's provision) is credited
// to the borrower's custody account.
func (u *Usecase) Activate(ctx context.Context, loanID, borrowerAccountID string, asOf time.Time) (*LoanDTO, error) {
	var dto *LoanDTO
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domainLoan.Loan) error {
		if l.Status != domainLoan.StatusOriginated {
			return &domainLoan.TransitionError{Action: "activate", Current: l.Status}
		}
		a, err := r.Applications.GetByApplicationID(ctx, l.LoanApplicationID)
		if err != nil {
			return err
		}

		at := asOf.UTC()
		l.Status = domainLoan.StatusActive
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}

		m := &domainLedger.AccountMutation{
			MutationID:    id.NewID32(),
			AccountID:     borrowerAccountID,
			BlockchainKey: l.BlockchainKey,
			TokenID:       l.PrincipalTokenID,
			MutationType:  domainLedger.MutationLoanDisbursement,
			Amount:        l.PrincipalAmount.Sub(a.ProvisionAmount),
			MutationDate:  at,
		}
		if err := r.Mutations.Append(ctx, m); err != nil {
			return err
		}

		dto = toLoanDTO(l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

type RepayInput struct {
	LoanID         string
	BorrowerUserID string
	Initiator      domainLoan.Initiator
	AsOf           time.Time
}

type RepaymentDTO struct {
	LoanID               string          `json:"loan_id"`
	RepaymentInitiator   string          `json:"repayment_initiator"`
	RepaymentInvoiceID   string          `json:"repayment_invoice_id"`
	RepaymentInvoiceDate time.Time       `json:"repayment_invoice_date"`
	InvoicedAmount       decimal.Decimal `json:"invoiced_amount"`
	RemainingTermDays    int             `json:"remaining_term_days,omitempty"`
}

// Repay is the full repayment at term: legal only from Active. A second
// request before the first invoice is paid overwrites the pending
// repayment row instead of stacking a new one.
func (u *Usecase) Repay(ctx context.Context, in RepayInput) (*RepaymentDTO, error) {
	return u.requestRepayment(ctx, in, domainInvoice.TypeLoanRepayment, false)
}

// EarlyRepay settles before maturity. Full interest is still charged —
// deliberate business policy, not an accrual bug — so the invoice is for
// the unchanged repayment amount. remaining_term_days is reported for
// display only and never feeds amount math.
func (u *Usecase) EarlyRepay(ctx context.Context, in RepayInput) (*RepaymentDTO, error) {
	dto, err := u.requestRepayment(ctx, in, domainInvoice.TypeLoanEarlyRepayment, true)
	if err != nil {
		return nil, fmt.Errorf("early repayment request for loan %s: %w", in.LoanID, err)
	}
	return dto, nil
}

func (u *Usecase) requestRepayment(ctx context.Context, in RepayInput, invType domainInvoice.Type, early bool) (*RepaymentDTO, error) {
	var dto *RepaymentDTO
	err := u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *domainLoan.Loan) error {
		if l.BorrowerUserID != in.BorrowerUserID {
			log.Printf("repayment for loan %s: borrower mismatch", in.LoanID)
			return domainLoan.ErrNotFound
		}
		if l.Status != domainLoan.StatusActive {
			return &domainLoan.TransitionError{Action: "repay", Current: l.Status}
		}

		at := in.AsOf.UTC()
		inv := &domainInvoice.Invoice{
			InvoiceID:      id.NewID32(),
			Type:           invType,
			Status:         domainInvoice.StatusPending,
			BlockchainKey:  l.BlockchainKey,
			TokenID:        l.PrincipalTokenID,
			InvoicedAmount: l.RepaymentAmount,
			LoanID:         &l.LoanID,
			InvoiceDate:    at,
			DueDate:        at.AddDate(0, 0, repaymentInvoiceDueDays),
		}
		if err := r.Invoices.Create(ctx, inv); err != nil {
			return err
		}

		rep := &domainLoan.LoanRepayment{
			LoanID:               l.LoanID,
			RepaymentInitiator:   in.Initiator,
			RepaymentInvoiceID:   inv.InvoiceID,
			RepaymentInvoiceDate: at,
		}
		if err := r.Loans.UpsertRepayment(ctx, rep); err != nil {
			return err
		}

		dto = &RepaymentDTO{
			LoanID:               l.LoanID,
			RepaymentInitiator:   string(in.Initiator),
			RepaymentInvoiceID:   inv.InvoiceID,
			RepaymentInvoiceDate: at,
			InvoicedAmount:       inv.InvoicedAmount,
		}
		if early {
			dto.RemainingTermDays = remainingTermDays(l.MaturityDate, at)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// Settle is the repayment-invoice-paid trigger: the loan closes as
// Repaid and the repayment is recorded on the lender's custody account.
func (u *Usecase) Settle(ctx context.Context, invoiceID, lenderAccountID string, paidAt time.Time) (*LoanDTO, error) {
	var dto *LoanDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		inv, err := r.Invoices.GetByInvoiceID(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv.LoanID == nil ||
			(inv.Type != domainInvoice.TypeLoanRepayment && inv.Type != domainInvoice.TypeLoanEarlyRepayment) {
			return domainInvoice.ErrNotFound
		}
		if inv.Status != domainInvoice.StatusPending {
			return domainInvoice.ErrNotPending
		}

		l, err := r.Loans.GetByLoanIDForUpdate(ctx, *inv.LoanID)
		if err != nil {
			return err
		}
		if l.Status != domainLoan.StatusActive {
			return &domainLoan.TransitionError{Action: "settle", Current: l.Status}
		}

		at := paidAt.UTC()
		inv.Status = domainInvoice.StatusPaid
		inv.PaidDate = &at
		if err := r.Invoices.Save(ctx, inv); err != nil {
			return err
		}

		l.Status = domainLoan.StatusRepaid
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}

		m := &domainLedger.AccountMutation{
			MutationID:    id.NewID32(),
			AccountID:     lenderAccountID,
			BlockchainKey: l.BlockchainKey,
			TokenID:       l.PrincipalTokenID,
			MutationType:  domainLedger.MutationLoanRepayment,
			Amount:        inv.InvoicedAmount,
			MutationDate:  at,
			InvoiceID:     &inv.InvoiceID,
		}
		if err := r.Mutations.Append(ctx, m); err != nil {
			return err
		}

		dto = toLoanDTO(l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

type EstimateInput struct {
	LoanID         string
	BorrowerUserID string
	AsOf           time.Time
}

type EstimateDTO struct {
	LoanID                     string          `json:"loan_id"`
	CurrentValuationAmount     decimal.Decimal `json:"current_valuation_amount"`
	CurrentLtvRatio            decimal.Decimal `json:"current_ltv_ratio"`
	EstimatedLiquidationAmount decimal.Decimal `json:"estimated_liquidation_amount"`
	TotalOutstandingAmount     decimal.Decimal `json:"total_outstanding_amount"`
	EstimatedSurplusDeficit    decimal.Decimal `json:"estimated_surplus_deficit"`
	BidPrice                   decimal.Decimal `json:"bid_price"`
	RateSourceDate             time.Time       `json:"rate_source_date"`
}

// EstimateEarlyLiquidation is a pure read: value the collateral at the
// latest bid, haircut for slippage, and report the expected surplus or
// deficit. Legal from Active or Originated.
func (u *Usecase) EstimateEarlyLiquidation(ctx context.Context, in EstimateInput) (*EstimateDTO, error) {
	var dto *EstimateDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		l, err := r.Loans.GetByLoanID(ctx, in.LoanID)
		if err != nil {
			return err
		}
		if l.BorrowerUserID != in.BorrowerUserID {
			return domainLoan.ErrNotFound
		}
		if l.Status != domainLoan.StatusActive && l.Status != domainLoan.StatusOriginated {
			return &domainLoan.TransitionError{Action: "estimate liquidation for", Current: l.Status}
		}

		quote, err := r.Rates.LatestQuote(ctx, l.BlockchainKey, l.CollateralTokenID, l.PrincipalTokenID, in.AsOf.UTC())
		if err != nil {
			return err
		}

		est := pricing.EstimateLiquidation(l.PrincipalAmount, l.InterestAmount, l.PremiAmount, l.LiquidationFeeAmount, l.CollateralAmount, quote.BidPrice)
		dto = &EstimateDTO{
			LoanID:                     l.LoanID,
			CurrentValuationAmount:     est.CurrentValuationAmount,
			CurrentLtvRatio:            est.CurrentLtvRatio,
			EstimatedLiquidationAmount: est.EstimatedLiquidationAmount,
			TotalOutstandingAmount:     est.TotalOutstandingAmount,
			EstimatedSurplusDeficit:    est.EstimatedSurplusDeficit,
			BidPrice:                   quote.BidPrice,
			RateSourceDate:             quote.SourceDate,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

type LiquidationInput struct {
	LoanID         string
	BorrowerUserID string
	Initiator      domainLoan.Initiator
	MarketProvider string
	MarketSymbol   string
	AsOf           time.Time
}

type LiquidationDTO struct {
	LoanID                  string          `json:"loan_id"`
	LiquidationInitiator    string          `json:"liquidation_initiator"`
	LiquidationTargetAmount decimal.Decimal `json:"liquidation_target_amount"`
	MarketProvider          string          `json:"market_provider"`
	MarketSymbol            string          `json:"market_symbol"`
	Status                  string          `json:"status"`
	OrderDate               time.Time       `json:"order_date"`
}

// RequestEarlyLiquidation places the forced-sale order. At most one
// liquidation ever exists per loan: the existence check runs inside the
// same transaction as the insert, with the unique index as backstop.
func (u *Usecase) RequestEarlyLiquidation(ctx context.Context, in LiquidationInput) (*LiquidationDTO, error) {
	var dto *LiquidationDTO
	err := u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *domainLoan.Loan) error {
		if l.BorrowerUserID != in.BorrowerUserID {
			log.Printf("liquidation for loan %s: borrower mismatch", in.LoanID)
			return domainLoan.ErrNotFound
		}
		if l.Status != domainLoan.StatusActive && l.Status != domainLoan.StatusOriginated {
			return &domainLoan.TransitionError{Action: "liquidate", Current: l.Status}
		}

		if _, err := r.Loans.GetLiquidationByLoanID(ctx, l.LoanID); err == nil {
			return domainLoan.ErrDuplicateLiquidation
		} else if !errors.Is(err, domainLoan.ErrNotFound) {
			return err
		}

		at := in.AsOf.UTC()
		q := &domainLoan.LoanLiquidation{
			LoanID:                  l.LoanID,
			LiquidationInitiator:    in.Initiator,
			LiquidationTargetAmount: l.RepaymentAmount.Add(l.PremiAmount).Add(l.LiquidationFeeAmount),
			MarketProvider:          in.MarketProvider,
			MarketSymbol:            in.MarketSymbol,
			Status:                  domainLoan.LiquidationPending,
			OrderDate:               at,
		}
		if err := r.Loans.CreateLiquidation(ctx, q); err != nil {
			return err
		}

		dto = &LiquidationDTO{
			LoanID:                  q.LoanID,
			LiquidationInitiator:    string(q.LiquidationInitiator),
			LiquidationTargetAmount: q.LiquidationTargetAmount,
			MarketProvider:          q.MarketProvider,
			MarketSymbol:            q.MarketSymbol,
			Status:                  string(q.Status),
			OrderDate:               q.OrderDate,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func (u *Usecase) Get(ctx context.Context, loanID string) (*LoanDTO, error) {
	var dto *LoanDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		l, err := r.Loans.GetByLoanID(ctx, loanID)
		if err != nil {
			return err
		}
		dto = toLoanDTO(l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func remainingTermDays(maturity, asOf time.Time) int {
	d := int(maturity.Sub(asOf).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

func toLoanDTO(l *domainLoan.Loan) *LoanDTO {
	return &LoanDTO{
		LoanID:               l.LoanID,
		LoanApplicationID:    l.LoanApplicationID,
		LoanOfferID:          l.LoanOfferID,
		BorrowerUserID:       l.BorrowerUserID,
		LenderUserID:         l.LenderUserID,
		PrincipalAmount:      l.PrincipalAmount,
		InterestAmount:       l.InterestAmount,
		PremiAmount:          l.PremiAmount,
		LiquidationFeeAmount: l.LiquidationFeeAmount,
		RepaymentAmount:      l.RepaymentAmount,
		CollateralAmount:     l.CollateralAmount,
		LiquidationMode:      string(l.LiquidationMode),
		Status:               string(l.Status),
		OriginationDate:      l.OriginationDate,
		MaturityDate:         l.MaturityDate,
	}
}
