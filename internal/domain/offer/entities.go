package offer

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Status string

const (
	StatusFunding   Status = "Funding"
	StatusPublished Status = "Published"
	StatusClosed    Status = "Closed"
	StatusExpired   Status = "Expired"
)

// Terminal reports whether no further transition is legal.
func (s Status) Terminal() bool { return s == StatusClosed || s == StatusExpired }

// TransitionError reports an action attempted from a status that does not
// allow it. The current status is part of the message so the caller sees
// why the call was rejected.
type TransitionError struct {
	Action  string
	Current Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s loan offer in status %s", e.Action, e.Current)
}

// LoanOffer is a lender's capital commitment. available_principal_amount
// never exceeds offered_principal_amount; it shrinks as loans draw down
// against the offer.
type LoanOffer struct {
	ID           uint64 `gorm:"primaryKey;column:id" json:"-"`
	LoanOfferID  string `gorm:"size:32;column:loan_offer_id;uniqueIndex:ux_loan_offers_offer_id" json:"loan_offer_id"`
	LenderUserID string `gorm:"size:32;column:lender_user_id;index" json:"lender_user_id"`

	BlockchainKey string `gorm:"size:32;column:blockchain_key" json:"blockchain_key"`
	TokenID       string `gorm:"size:32;column:token_id" json:"token_id"`

	OfferedPrincipalAmount   decimal.Decimal `gorm:"type:decimal(38,0);column:offered_principal_amount" json:"offered_principal_amount"`
	AvailablePrincipalAmount decimal.Decimal `gorm:"type:decimal(38,0);column:available_principal_amount" json:"available_principal_amount"`
	MinLoanPrincipalAmount   decimal.Decimal `gorm:"type:decimal(38,0);column:min_loan_principal_amount" json:"min_loan_principal_amount"`
	MaxLoanPrincipalAmount   decimal.Decimal `gorm:"type:decimal(38,0);column:max_loan_principal_amount" json:"max_loan_principal_amount"`

	InterestRate decimal.Decimal `gorm:"type:decimal(8,4);column:interest_rate" json:"interest_rate"`
	// Comma-joined set of allowed terms, e.g. "3,6,12".
	TermInMonthsOptions string `gorm:"size:64;column:term_in_months_options" json:"term_in_months_options"`

	Status         Status     `gorm:"size:16;column:status;default:'Funding'" json:"status"`
	CreatedDate    time.Time  `gorm:"column:created_date" json:"created_date"`
	ExpirationDate time.Time  `gorm:"column:expiration_date" json:"expiration_date"`
	ClosedDate     *time.Time `gorm:"column:closed_date" json:"closed_date,omitempty"`
	ClosureReason  string     `gorm:"size:255;column:closure_reason" json:"closure_reason,omitempty"`

	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"-"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"-"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (LoanOffer) TableName() string { return "loan_offers" }

// CanClose guards the lender-initiated close: legal only while Funding or
// Published.
func (o *LoanOffer) CanClose() bool {
	return o.Status == StatusFunding || o.Status == StatusPublished
}
