package application

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Status string

const (
	StatusPendingCollateral Status = "PendingCollateral"
	StatusPublished         Status = "Published"
	StatusMatched           Status = "Matched"
	StatusClosed            Status = "Closed"
	StatusExpired           Status = "Expired"
)

func (s Status) Terminal() bool { return s == StatusClosed || s == StatusExpired }

type LiquidationMode string

const (
	LiquidationPartial LiquidationMode = "Partial"
	LiquidationFull    LiquidationMode = "Full"
)

// Action selects the update variant. Anything else is rejected outright.
type Action string

const (
	ActionCancel Action = "cancel"
	ActionModify Action = "modify"
)

type TransitionError struct {
	Action  string
	Current Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s loan application in status %s", e.Action, e.Current)
}

// LoanApplication is a borrower's request. provision_amount and
// collateral_deposit_amount are frozen at creation from the exchange rate
// and config observed then; later rate movement never reprices an open
// application.
type LoanApplication struct {
	ID                uint64  `gorm:"primaryKey;column:id" json:"-"`
	LoanApplicationID string  `gorm:"size:32;column:loan_application_id;uniqueIndex:ux_loan_applications_app_id" json:"loan_application_id"`
	BorrowerUserID    string  `gorm:"size:32;column:borrower_user_id;index" json:"borrower_user_id"`
	LoanOfferID       *string `gorm:"size:32;column:loan_offer_id;index" json:"loan_offer_id,omitempty"`

	BlockchainKey      string `gorm:"size:32;column:blockchain_key" json:"blockchain_key"`
	PrincipalTokenID   string `gorm:"size:32;column:principal_token_id" json:"principal_token_id"`
	CollateralTokenID  string `gorm:"size:32;column:collateral_token_id" json:"collateral_token_id"`

	PrincipalAmount         decimal.Decimal `gorm:"type:decimal(38,0);column:principal_amount" json:"principal_amount"`
	ProvisionAmount         decimal.Decimal `gorm:"type:decimal(38,0);column:provision_amount" json:"provision_amount"`
	CollateralDepositAmount decimal.Decimal `gorm:"type:decimal(38,0);column:collateral_deposit_amount" json:"collateral_deposit_amount"`

	MaxInterestRate decimal.Decimal `gorm:"type:decimal(8,4);column:max_interest_rate" json:"max_interest_rate"`
	// LTV bounds snapshotted from platform config at application time.
	MinLtvRatio decimal.Decimal `gorm:"type:decimal(8,4);column:min_ltv_ratio" json:"min_ltv_ratio"`
	MaxLtvRatio decimal.Decimal `gorm:"type:decimal(8,4);column:max_ltv_ratio" json:"max_ltv_ratio"`

	TermInMonths    int             `gorm:"column:term_in_months" json:"term_in_months"`
	LiquidationMode LiquidationMode `gorm:"size:16;column:liquidation_mode" json:"liquidation_mode"`

	Status             Status     `gorm:"size:24;column:status;default:'PendingCollateral'" json:"status"`
	AppliedDate        time.Time  `gorm:"column:applied_date" json:"applied_date"`
	ExpirationDate     time.Time  `gorm:"column:expiration_date" json:"expiration_date"`
	MatchedDate        *time.Time `gorm:"column:matched_date" json:"matched_date,omitempty"`
	MatchedLoanOfferID *string    `gorm:"size:32;column:matched_loan_offer_id" json:"matched_loan_offer_id,omitempty"`
	ClosedDate         *time.Time `gorm:"column:closed_date" json:"closed_date,omitempty"`
	ClosureReason      string     `gorm:"size:255;column:closure_reason" json:"closure_reason,omitempty"`

	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"-"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"-"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (LoanApplication) TableName() string { return "loan_applications" }

// CanCancel guards the borrower-initiated cancel.
func (a *LoanApplication) CanCancel() bool {
	return a.Status == StatusPendingCollateral || a.Status == StatusPublished
}

// CanModify: only a still-unfunded application may be modified, and only
// its expiration date; everything else is immutable post-creation.
func (a *LoanApplication) CanModify() bool {
	return a.Status == StatusPendingCollateral
}
