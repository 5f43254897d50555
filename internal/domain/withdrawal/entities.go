package withdrawal

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Status is the raw stored column. It can lag behind the timestamp fields
// (an operator flips dates before status, or vice versa); DeriveState is
// the authority on what a withdrawal currently is.
type Status string

const (
	StatusRequested       Status = "Requested"
	StatusSent            Status = "Sent"
	StatusConfirmed       Status = "Confirmed"
	StatusFailed          Status = "Failed"
	StatusRefundRequested Status = "RefundRequested"
	StatusRefundApproved  Status = "RefundApproved"
	StatusRefundRejected  Status = "RefundRejected"
)

type TransitionError struct {
	Action  string
	Current string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s withdrawal in state %s", e.Action, e.Current)
}

// Withdrawal moves custody balance off-platform. sent_amount stays nil
// until the on-chain send happens; the network fee is the difference
// between requested and sent.
type Withdrawal struct {
	ID           uint64 `gorm:"primaryKey;column:id" json:"-"`
	WithdrawalID string `gorm:"size:32;column:withdrawal_id;uniqueIndex:ux_withdrawals_withdrawal_id" json:"withdrawal_id"`

	UserID        string `gorm:"size:32;column:user_id;index" json:"user_id"`
	BeneficiaryID string `gorm:"size:32;column:beneficiary_id;index" json:"beneficiary_id"`
	AccountID     string `gorm:"size:32;column:account_id;index" json:"account_id"`

	BlockchainKey string `gorm:"size:32;column:blockchain_key" json:"blockchain_key"`
	TokenID       string `gorm:"size:32;column:token_id" json:"token_id"`

	RequestAmount decimal.Decimal  `gorm:"type:decimal(38,0);column:request_amount" json:"request_amount"`
	SentAmount    *decimal.Decimal `gorm:"type:decimal(38,0);column:sent_amount" json:"sent_amount,omitempty"`
	SentHash      string           `gorm:"size:128;column:sent_hash" json:"sent_hash,omitempty"`

	Status        Status     `gorm:"size:24;column:status;default:'Requested'" json:"status"`
	RequestDate   *time.Time `gorm:"column:request_date" json:"request_date,omitempty"`
	SentDate      *time.Time `gorm:"column:sent_date" json:"sent_date,omitempty"`
	ConfirmedDate *time.Time `gorm:"column:confirmed_date" json:"confirmed_date,omitempty"`
	FailedDate    *time.Time `gorm:"column:failed_date" json:"failed_date,omitempty"`
	FailureReason string     `gorm:"size:255;column:failure_reason" json:"failure_reason,omitempty"`

	FailureRefundReviewerUserID *string    `gorm:"size:32;column:failure_refund_reviewer_user_id" json:"failure_refund_reviewer_user_id,omitempty"`
	RefundApprovedDate          *time.Time `gorm:"column:refund_approved_date" json:"refund_approved_date,omitempty"`
	RefundRejectedDate          *time.Time `gorm:"column:refund_rejected_date" json:"refund_rejected_date,omitempty"`
	RefundRejectionReason       string     `gorm:"size:255;column:refund_rejection_reason" json:"refund_rejection_reason,omitempty"`

	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"-"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"-"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Withdrawal) TableName() string { return "withdrawals" }

// NetworkFee is request minus sent, defined only once the send happened.
func (w *Withdrawal) NetworkFee() *decimal.Decimal {
	if w.SentAmount == nil {
		return nil
	}
	fee := w.RequestAmount.Sub(*w.SentAmount)
	return &fee
}

// RefundDecided reports whether an admin already ruled on the refund.
func (w *Withdrawal) RefundDecided() bool {
	return w.RefundApprovedDate != nil || w.RefundRejectedDate != nil
}
