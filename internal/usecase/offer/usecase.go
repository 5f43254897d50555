package offer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	domainInvoice "cryptolend-backend/internal/domain/invoice"
	domainLedger "cryptolend-backend/internal/domain/ledger"
	domainOffer "cryptolend-backend/internal/domain/offer"
	"cryptolend-backend/internal/domain/uow"
	"cryptolend-backend/pkg/id"
	"cryptolend-backend/pkg/paging"
)

// fundingInvoiceDueDays is how long a lender has to pay the funding
// invoice before it expires.
const fundingInvoiceDueDays = 7

type Usecase struct {
	uow uow.UnitOfWork
}

func NewUsecase(tx uow.UnitOfWork) *Usecase { return &Usecase{uow: tx} }

type CreateOfferInput struct {
	LenderUserID           string
	BlockchainKey          string
	TokenID                string
	OfferedPrincipalAmount decimal.Decimal
	MinLoanPrincipalAmount decimal.Decimal
	MaxLoanPrincipalAmount decimal.Decimal
	InterestRate           decimal.Decimal
	TermInMonthsOptions    []int
	ExpirationDate         time.Time
	AsOf                   time.Time
}

type OfferDTO struct {
	LoanOfferID              string          `json:"loan_offer_id"`
	LenderUserID             string          `json:"lender_user_id"`
	BlockchainKey            string          `json:"blockchain_key"`
	TokenID                  string          `json:"token_id"`
	OfferedPrincipalAmount   decimal.Decimal `json:"offered_principal_amount"`
	AvailablePrincipalAmount decimal.Decimal `json:"available_principal_amount"`
	MinLoanPrincipalAmount   decimal.Decimal `json:"min_loan_principal_amount"`
	MaxLoanPrincipalAmount   decimal.Decimal `json:"max_loan_principal_amount"`
	InterestRate             decimal.Decimal `json:"interest_rate"`
	TermInMonthsOptions      []int           `json:"term_in_months_options"`
	Status                   string          `json:"status"`
	CreatedDate              time.Time       `json:"created_date"`
	ExpirationDate           time.Time       `json:"expiration_date"`
	ClosedDate               *time.Time      `json:"closed_date,omitempty"`
	ClosureReason            string          `json:"closure_reason,omitempty"`
	FundingInvoice           *InvoiceDTO     `json:"funding_invoice,omitempty"`
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

// Create inserts the offer in Funding together with its LoanPrincipal
// funding invoice. Both rows commit or neither does.
func (u *Usecase) Create(ctx context.Context, in CreateOfferInput) (*OfferDTO, error) {
	if !in.OfferedPrincipalAmount.IsPositive() {
		return nil, errors.New("offered principal amount must be positive")
	}
	if in.MinLoanPrincipalAmount.GreaterThan(in.MaxLoanPrincipalAmount) {
		return nil, errors.New("min loan principal exceeds max")
	}
	if len(in.TermInMonthsOptions) == 0 {
		return nil, errors.New("at least one term option is required")
	}

	var dto *OfferDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		cur, err := r.Currencies.GetByKey(ctx, in.BlockchainKey, in.TokenID)
		if err != nil {
			return err
		}
		if in.OfferedPrincipalAmount.LessThan(cur.MinLoanPrincipalAmount) {
			return fmt.Errorf("offered principal below %s minimum", cur.Symbol)
		}

		o := &domainOffer.LoanOffer{
			LoanOfferID:              id.NewID32(),
			LenderUserID:             in.LenderUserID,
			BlockchainKey:            in.BlockchainKey,
			TokenID:                  in.TokenID,
			OfferedPrincipalAmount:   in.OfferedPrincipalAmount,
			AvailablePrincipalAmount: in.OfferedPrincipalAmount,
			MinLoanPrincipalAmount:   in.MinLoanPrincipalAmount,
			MaxLoanPrincipalAmount:   in.MaxLoanPrincipalAmount,
			InterestRate:             in.InterestRate,
			TermInMonthsOptions:      joinTerms(in.TermInMonthsOptions),
			Status:                   domainOffer.StatusFunding,
			CreatedDate:              in.AsOf.UTC(),
			ExpirationDate:           in.ExpirationDate.UTC(),
		}
		if err := r.Offers.Create(ctx, o); err != nil {
			return err
		}

		inv := &domainInvoice.Invoice{
			InvoiceID:      id.NewID32(),
			Type:           domainInvoice.TypeLoanPrincipal,
			Status:         domainInvoice.StatusPending,
			BlockchainKey:  in.BlockchainKey,
			TokenID:        in.TokenID,
			InvoicedAmount: in.OfferedPrincipalAmount,
			LoanOfferID:    &o.LoanOfferID,
			InvoiceDate:    in.AsOf.UTC(),
			DueDate:        in.AsOf.UTC().AddDate(0, 0, fundingInvoiceDueDays),
		}
		if err := r.Invoices.Create(ctx, inv); err != nil {
			return err
		}

		dto = toOfferDTO(o, inv)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

type CloseOfferInput struct {
	LoanOfferID   string
	LenderUserID  string
	ClosureReason string
	AsOf          time.Time
}

// Close is the lender-initiated transition to Closed, legal only from
// Funding or Published.
func (u *Usecase) Close(ctx context.Context, in CloseOfferInput) (*OfferDTO, error) {
	var dto *OfferDTO
	err := u.uow.WithinOfferTx(ctx, in.LoanOfferID, func(r uow.Repos, o *domainOffer.LoanOffer) error {
		if o.LenderUserID != in.LenderUserID {
			// Indistinguishable from not-found to the caller; the gap is
			// only visible in logs.
			return domainOffer.ErrNotFound
		}
		if !o.CanClose() {
			return &domainOffer.TransitionError{Action: "close", Current: o.Status}
		}
		closedAt := in.AsOf.UTC()
		o.Status = domainOffer.StatusClosed
		o.ClosedDate = &closedAt
		o.ClosureReason = in.ClosureReason
		if err := r.Offers.Save(ctx, o); err != nil {
			return err
		}
		dto = toOfferDTO(o, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// Publish handles the external funding-invoice-paid trigger: mark the
// invoice paid, flip the offer to Published, and credit the lender's
// custody account, atomically.
func (u *Usecase) Publish(ctx context.Context, invoiceID, lenderAccountID string, paidAt time.Time) (*OfferDTO, error) {
	var dto *OfferDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		inv, err := r.Invoices.GetByInvoiceID(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv.Type != domainInvoice.TypeLoanPrincipal || inv.LoanOfferID == nil {
			return domainInvoice.ErrNotFound
		}
		if inv.Status != domainInvoice.StatusPending {
			return domainInvoice.ErrNotPending
		}

		o, err := r.Offers.GetByOfferIDForUpdate(ctx, *inv.LoanOfferID)
		if err != nil {
			return err
		}
		if o.Status != domainOffer.StatusFunding {
			return &domainOffer.TransitionError{Action: "publish", Current: o.Status}
		}

		at := paidAt.UTC()
		inv.Status = domainInvoice.StatusPaid
		inv.PaidDate = &at
		if err := r.Invoices.Save(ctx, inv); err != nil {
			return err
		}

		o.Status = domainOffer.StatusPublished
		if err := r.Offers.Save(ctx, o); err != nil {
			return err
		}

		m := &domainLedger.AccountMutation{
			MutationID:    id.NewID32(),
			AccountID:     lenderAccountID,
			BlockchainKey: o.BlockchainKey,
			TokenID:       o.TokenID,
			MutationType:  domainLedger.MutationDeposit,
			Amount:        inv.InvoicedAmount,
			MutationDate:  at,
			InvoiceID:     &inv.InvoiceID,
		}
		if err := r.Mutations.Append(ctx, m); err != nil {
			return err
		}

		dto = toOfferDTO(o, inv)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// Expire marks every non-terminal offer past its expiration date as
// Expired. Returns how many rows flipped.
func (u *Usecase) Expire(ctx context.Context, asOf time.Time) (int, error) {
	var n int
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		rows, err := r.Offers.ListExpirable(ctx, asOf.UTC())
		if err != nil {
			return err
		}
		for i := range rows {
			o := &rows[i]
			o.Status = domainOffer.StatusExpired
			if err := r.Offers.Save(ctx, o); err != nil {
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
	Items []OfferDTO `json:"items"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
	Total int64      `json:"total"`
}

func (u *Usecase) List(ctx context.Context, in ListInput) (*ListOutput, error) {
	page, limit := paging.Clamp(in.Page, in.Limit)

	var out *ListOutput
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		rows, total, err := r.Offers.List(ctx, domainOffer.ListFilter{
			Status: domainOffer.Status(in.Status),
			Page:   page,
			Limit:  limit,
		})
		if err != nil {
			return err
		}
		items := make([]OfferDTO, 0, len(rows))
		for i := range rows {
			items = append(items, *toOfferDTO(&rows[i], nil))
		}
		out = &ListOutput{Items: items, Page: page, Limit: limit, Total: total}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (u *Usecase) Get(ctx context.Context, offerID string) (*OfferDTO, error) {
	var dto *OfferDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		o, err := r.Offers.GetByOfferID(ctx, offerID)
		if err != nil {
			return err
		}
		dto = toOfferDTO(o, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func toOfferDTO(o *domainOffer.LoanOffer, inv *domainInvoice.Invoice) *OfferDTO {
	dto := &OfferDTO{
		LoanOfferID:              o.LoanOfferID,
		LenderUserID:             o.LenderUserID,
		BlockchainKey:            o.BlockchainKey,
		TokenID:                  o.TokenID,
		OfferedPrincipalAmount:   o.OfferedPrincipalAmount,
		AvailablePrincipalAmount: o.AvailablePrincipalAmount,
		MinLoanPrincipalAmount:   o.MinLoanPrincipalAmount,
		MaxLoanPrincipalAmount:   o.MaxLoanPrincipalAmount,
		InterestRate:             o.InterestRate,
		TermInMonthsOptions:      splitTerms(o.TermInMonthsOptions),
		Status:                   string(o.Status),
		CreatedDate:              o.CreatedDate,
		ExpirationDate:           o.ExpirationDate,
		ClosedDate:               o.ClosedDate,
		ClosureReason:            o.ClosureReason,
	}
	if inv != nil {
		dto.FundingInvoice = &InvoiceDTO{
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

func joinTerms(terms []int) string {
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		parts = append(parts, strconv.Itoa(t))
	}
	return strings.Join(parts, ",")
}

func splitTerms(s string) []int {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		if n, err := strconv.Atoi(strings.TrimSpace(p)); err == nil {
			out = append(out, n)
		}
	}
	return out
}
