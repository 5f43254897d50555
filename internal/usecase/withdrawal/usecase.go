package withdrawal

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/shopspring/decimal"

	domainLedger "cryptolend-backend/internal/domain/ledger"
	domainWithdrawal "cryptolend-backend/internal/domain/withdrawal"
	"cryptolend-backend/internal/domain/uow"
	"cryptolend-backend/pkg/id"
	"cryptolend-backend/pkg/paging"
)

type Usecase struct {
	uow uow.UnitOfWork
}

func NewUsecase(tx uow.UnitOfWork) *Usecase { return &Usecase{uow: tx} }

type WithdrawalDTO struct {
	WithdrawalID  string `json:"withdrawal_id"`
	UserID        string `json:"user_id"`
	BeneficiaryID string `json:"beneficiary_id"`
	AccountID     string `json:"account_id"`
	BlockchainKey string `json:"blockchain_key"`
	TokenID       string `json:"token_id"`

	RequestAmount decimal.Decimal  `json:"request_amount"`
	SentAmount    *decimal.Decimal `json:"sent_amount,omitempty"`
	SentHash      string           `json:"sent_hash,omitempty"`
	NetworkFee    *decimal.Decimal `json:"network_fee,omitempty"`
	PlatformFee   decimal.Decimal  `json:"platform_fee"`

	State         string     `json:"state"`
	RequestDate   *time.Time `json:"request_date,omitempty"`
	SentDate      *time.Time `json:"sent_date,omitempty"`
	ConfirmedDate *time.Time `json:"confirmed_date,omitempty"`
	FailedDate    *time.Time `json:"failed_date,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`

	RefundReviewerUserID  *string    `json:"refund_reviewer_user_id,omitempty"`
	RefundApprovedDate    *time.Time `json:"refund_approved_date,omitempty"`
	RefundRejectedDate    *time.Time `json:"refund_rejected_date,omitempty"`
	RefundRejectionReason string     `json:"refund_rejection_reason,omitempty"`
}

type RequestInput struct {
	UserID        string
	BeneficiaryID string
	AccountID     string
	BlockchainKey string
	TokenID       string
	RequestAmount decimal.Decimal
	AsOf          time.Time
}

// Request opens a withdrawal and reserves the amount: the negative
// Withdraw mutation lands in the ledger atomically with the row, so the
// account can never double-spend the requested funds.
func (u *Usecase) Request(ctx context.Context, in RequestInput) (*WithdrawalDTO, error) {
	if !in.RequestAmount.IsPositive() {
		return nil, errors.New("request amount must be positive")
	}

	var dto *WithdrawalDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		cur, err := r.Currencies.GetByKey(ctx, in.BlockchainKey, in.TokenID)
		if err != nil {
			return err
		}
		if in.RequestAmount.LessThan(cur.MinWithdrawalAmount) ||
			(cur.MaxWithdrawalAmount.IsPositive() && in.RequestAmount.GreaterThan(cur.MaxWithdrawalAmount)) {
			return errors.New("request amount outside withdrawal limits")
		}

		balance, err := r.Mutations.Balance(ctx, in.AccountID, in.AsOf.UTC())
		if err != nil {
			return err
		}
		if balance.LessThan(in.RequestAmount) {
			return errors.New("insufficient account balance")
		}

		at := in.AsOf.UTC()
		w := &domainWithdrawal.Withdrawal{
			WithdrawalID:  id.NewID32(),
			UserID:        in.UserID,
			BeneficiaryID: in.BeneficiaryID,
			AccountID:     in.AccountID,
			BlockchainKey: in.BlockchainKey,
			TokenID:       in.TokenID,
			RequestAmount: in.RequestAmount,
			Status:        domainWithdrawal.StatusRequested,
			RequestDate:   &at,
		}
		if err := r.Withdrawals.Create(ctx, w); err != nil {
			return err
		}

		m := &domainLedger.AccountMutation{
			MutationID:    id.NewID32(),
			AccountID:     in.AccountID,
			BlockchainKey: in.BlockchainKey,
			TokenID:       in.TokenID,
			MutationType:  domainLedger.MutationWithdraw,
			Amount:        in.RequestAmount.Neg(),
			MutationDate:  at,
			WithdrawalID:  &w.WithdrawalID,
		}
		if err := r.Mutations.Append(ctx, m); err != nil {
			return err
		}

		dto = u.toDTO(w, decimal.Zero)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// MarkSent records the on-chain send. Legal only while the derived state
// is requested.
func (u *Usecase) MarkSent(ctx context.Context, withdrawalID string, sentAmount decimal.Decimal, sentHash string, asOf time.Time) (*WithdrawalDTO, error) {
	var dto *WithdrawalDTO
	err := u.uow.WithinWithdrawalTx(ctx, withdrawalID, func(r uow.Repos, w *domainWithdrawal.Withdrawal) error {
		if st := domainWithdrawal.DeriveState(w); st != domainWithdrawal.StateRequested {
			return &domainWithdrawal.TransitionError{Action: "mark sent", Current: string(st)}
		}
		if sentAmount.GreaterThan(w.RequestAmount) || !sentAmount.IsPositive() {
			return errors.New("sent amount must be positive and at most the requested amount")
		}
		at := asOf.UTC()
		w.Status = domainWithdrawal.StatusSent
		w.SentAmount = &sentAmount
		w.SentHash = sentHash
		w.SentDate = &at
		if err := r.Withdrawals.Save(ctx, w); err != nil {
			return err
		}
		dto = u.toDTO(w, decimal.Zero)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// Confirm finalizes a sent withdrawal.
func (u *Usecase) Confirm(ctx context.Context, withdrawalID string, asOf time.Time) (*WithdrawalDTO, error) {
	var dto *WithdrawalDTO
	err := u.uow.WithinWithdrawalTx(ctx, withdrawalID, func(r uow.Repos, w *domainWithdrawal.Withdrawal) error {
		if st := domainWithdrawal.DeriveState(w); st != domainWithdrawal.StateSent {
			return &domainWithdrawal.TransitionError{Action: "confirm", Current: string(st)}
		}
		at := asOf.UTC()
		w.Status = domainWithdrawal.StatusConfirmed
		w.ConfirmedDate = &at
		if err := r.Withdrawals.Save(ctx, w); err != nil {
			return err
		}
		dto = u.toDTO(w, decimal.Zero)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// Fail marks a sent withdrawal as failed on-chain. The reserved funds
// stay out of the account until an admin decides the refund.
func (u *Usecase) Fail(ctx context.Context, withdrawalID, reason string, asOf time.Time) (*WithdrawalDTO, error) {
	var dto *WithdrawalDTO
	err := u.uow.WithinWithdrawalTx(ctx, withdrawalID, func(r uow.Repos, w *domainWithdrawal.Withdrawal) error {
		if st := domainWithdrawal.DeriveState(w); st != domainWithdrawal.StateSent {
			return &domainWithdrawal.TransitionError{Action: "fail", Current: string(st)}
		}
		at := asOf.UTC()
		w.Status = domainWithdrawal.StatusFailed
		w.FailedDate = &at
		w.FailureReason = reason
		if err := r.Withdrawals.Save(ctx, w); err != nil {
			return err
		}
		dto = u.toDTO(w, decimal.Zero)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// RequestRefund is the user asking for the failed withdrawal's funds
// back. Legal only from failed.
func (u *Usecase) RequestRefund(ctx context.Context, withdrawalID, userID string, asOf time.Time) (*WithdrawalDTO, error) {
	var dto *WithdrawalDTO
	err := u.uow.WithinWithdrawalTx(ctx, withdrawalID, func(r uow.Repos, w *domainWithdrawal.Withdrawal) error {
		if w.UserID != userID {
			log.Printf("refund request for withdrawal %s: user mismatch", withdrawalID)
			return domainWithdrawal.ErrNotFound
		}
		if st := domainWithdrawal.DeriveState(w); st != domainWithdrawal.StateFailed {
			return &domainWithdrawal.TransitionError{Action: "request refund for", Current: string(st)}
		}
		w.Status = domainWithdrawal.StatusRefundRequested
		if err := r.Withdrawals.Save(ctx, w); err != nil {
			return err
		}
		dto = u.toDTO(w, decimal.Zero)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

type RefundDecisionInput struct {
	WithdrawalID   string
	ReviewerUserID string
	// Rejection only.
	Reason string
	AsOf   time.Time
}

// ApproveRefund returns the reserved funds: the compensating
// WithdrawalRefund mutation is appended atomically with the status flip,
// so the ledger stays conserved. Re-running on a decided withdrawal
// fails.
func (u *Usecase) ApproveRefund(ctx context.Context, in RefundDecisionInput) (*WithdrawalDTO, error) {
	var dto *WithdrawalDTO
	err := u.uow.WithinWithdrawalTx(ctx, in.WithdrawalID, func(r uow.Repos, w *domainWithdrawal.Withdrawal) error {
		if w.RefundDecided() {
			return domainWithdrawal.ErrRefundDecided
		}
		if w.Status != domainWithdrawal.StatusRefundRequested && w.Status != domainWithdrawal.StatusFailed {
			return domainWithdrawal.ErrNotRefundable
		}

		at := in.AsOf.UTC()
		w.Status = domainWithdrawal.StatusRefundApproved
		w.FailureRefundReviewerUserID = &in.ReviewerUserID
		w.RefundApprovedDate = &at
		if err := r.Withdrawals.Save(ctx, w); err != nil {
			return err
		}

		m := &domainLedger.AccountMutation{
			MutationID:    id.NewID32(),
			AccountID:     w.AccountID,
			BlockchainKey: w.BlockchainKey,
			TokenID:       w.TokenID,
			MutationType:  domainLedger.MutationWithdrawalRefund,
			Amount:        w.RequestAmount,
			MutationDate:  at,
			WithdrawalID:  &w.WithdrawalID,
		}
		if err := r.Mutations.Append(ctx, m); err != nil {
			return err
		}

		dto = u.toDTO(w, decimal.Zero)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// RejectRefund records the reviewer's refusal with a reason. Re-running
// on a decided withdrawal fails.
func (u *Usecase) RejectRefund(ctx context.Context, in RefundDecisionInput) (*WithdrawalDTO, error) {
	var dto *WithdrawalDTO
	err := u.uow.WithinWithdrawalTx(ctx, in.WithdrawalID, func(r uow.Repos, w *domainWithdrawal.Withdrawal) error {
		if w.RefundDecided() {
			return domainWithdrawal.ErrRefundDecided
		}
		if w.Status != domainWithdrawal.StatusRefundRequested && w.Status != domainWithdrawal.StatusFailed {
			return domainWithdrawal.ErrNotRefundable
		}

		at := in.AsOf.UTC()
		w.Status = domainWithdrawal.StatusRefundRejected
		w.FailureRefundReviewerUserID = &in.ReviewerUserID
		w.RefundRejectedDate = &at
		w.RefundRejectionReason = in.Reason
		if err := r.Withdrawals.Save(ctx, w); err != nil {
			return err
		}
		dto = u.toDTO(w, decimal.Zero)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func (u *Usecase) Get(ctx context.Context, withdrawalID string, asOf time.Time) (*WithdrawalDTO, error) {
	var dto *WithdrawalDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		w, err := r.Withdrawals.GetByWithdrawalID(ctx, withdrawalID)
		if err != nil {
			return err
		}
		fee, err := u.platformFee(ctx, r, asOf)
		if err != nil {
			return err
		}
		dto = u.toDTO(w, fee)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

type ListInput struct {
	UserID string
	Status string
	Page   int
	Limit  int
}

type ListOutput struct {
	Items []WithdrawalDTO `json:"items"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
	Total int64           `json:"total"`
}

func (u *Usecase) List(ctx context.Context, in ListInput) (*ListOutput, error) {
	page, limit := paging.Clamp(in.Page, in.Limit)

	var out *ListOutput
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		rows, total, err := r.Withdrawals.List(ctx, domainWithdrawal.ListFilter{
			UserID: in.UserID,
			Status: domainWithdrawal.Status(in.Status),
			Page:   page,
			Limit:  limit,
		})
		if err != nil {
			return err
		}
		items := make([]WithdrawalDTO, 0, len(rows))
		for i := range rows {
			items = append(items, *u.toDTO(&rows[i], decimal.Zero))
		}
		out = &ListOutput{Items: items, Page: page, Limit: limit, Total: total}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// platformFee comes from the config row effective at asOf; a missing
// config store means no fee schedule yet, which is zero, not an error,
// for a read path.
func (u *Usecase) platformFee(ctx context.Context, r uow.Repos, asOf time.Time) (decimal.Decimal, error) {
	cfg, err := r.Configs.ResolveAsOf(ctx, asOf.UTC())
	if err != nil {
		return decimal.Zero, nil
	}
	return cfg.WithdrawPlatformFeeAmount, nil
}

func (u *Usecase) toDTO(w *domainWithdrawal.Withdrawal, platformFee decimal.Decimal) *WithdrawalDTO {
	return &WithdrawalDTO{
		WithdrawalID:          w.WithdrawalID,
		UserID:                w.UserID,
		BeneficiaryID:         w.BeneficiaryID,
		AccountID:             w.AccountID,
		BlockchainKey:         w.BlockchainKey,
		TokenID:               w.TokenID,
		RequestAmount:         w.RequestAmount,
		SentAmount:            w.SentAmount,
		SentHash:              w.SentHash,
		NetworkFee:            w.NetworkFee(),
		PlatformFee:           platformFee,
		State:                 string(domainWithdrawal.DeriveState(w)),
		RequestDate:           w.RequestDate,
		SentDate:              w.SentDate,
		ConfirmedDate:         w.ConfirmedDate,
		FailedDate:            w.FailedDate,
		FailureReason:         w.FailureReason,
		RefundReviewerUserID:  w.FailureRefundReviewerUserID,
		RefundApprovedDate:    w.RefundApprovedDate,
		RefundRejectedDate:    w.RefundRejectedDate,
		RefundRejectionReason: w.RefundRejectionReason,
	}
}
