package loan

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"cryptolend-backend/internal/domain/application"
)

type Status string

const (
	StatusOriginated Status = "Originated"
	StatusActive     Status = "Active"
	StatusRepaid     Status = "Repaid"
	StatusLiquidated Status = "Liquidated"
	StatusDefaulted  Status = "Defaulted"
)

func (s Status) Terminal() bool {
	return s == StatusRepaid || s == StatusLiquidated || s == StatusDefaulted
}

type Initiator string

const (
	InitiatorBorrower Initiator = "Borrower"
	InitiatorSystem   Initiator = "System"
)

type TransitionError struct {
	Action  string
	Current Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s loan in status %s", e.Action, e.Current)
}

// Loan is the active contract produced when an application matches an
// offer. repayment_amount = principal + interest + premi + liquidation fee,
// fixed at origination.
type Loan struct {
	ID     uint64 `gorm:"primaryKey;column:id" json:"-"`
	LoanID string `gorm:"size:32;column:loan_id;uniqueIndex:ux_loans_loan_id" json:"loan_id"`

	LoanApplicationID string `gorm:"size:32;column:loan_application_id;index" json:"loan_application_id"`
	LoanOfferID       string `gorm:"size:32;column:loan_offer_id;index" json:"loan_offer_id"`
	BorrowerUserID    string `gorm:"size:32;column:borrower_user_id;index" json:"borrower_user_id"`
	LenderUserID      string `gorm:"size:32;column:lender_user_id;index" json:"lender_user_id"`

	BlockchainKey     string `gorm:"size:32;column:blockchain_key" json:"blockchain_key"`
	PrincipalTokenID  string `gorm:"size:32;column:principal_token_id" json:"principal_token_id"`
	CollateralTokenID string `gorm:"size:32;column:collateral_token_id" json:"collateral_token_id"`

	PrincipalAmount      decimal.Decimal `gorm:"type:decimal(38,0);column:principal_amount" json:"principal_amount"`
	InterestAmount       decimal.Decimal `gorm:"type:decimal(38,0);column:interest_amount" json:"interest_amount"`
	PremiAmount          decimal.Decimal `gorm:"type:decimal(38,0);column:premi_amount" json:"premi_amount"`
	LiquidationFeeAmount decimal.Decimal `gorm:"type:decimal(38,0);column:liquidation_fee_amount" json:"liquidation_fee_amount"`
	RepaymentAmount      decimal.Decimal `gorm:"type:decimal(38,0);column:repayment_amount" json:"repayment_amount"`
	CollateralAmount     decimal.Decimal `gorm:"type:decimal(38,0);column:collateral_amount" json:"collateral_amount"`

	InterestRate    decimal.Decimal             `gorm:"type:decimal(8,4);column:interest_rate" json:"interest_rate"`
	TermInMonths    int                         `gorm:"column:term_in_months" json:"term_in_months"`
	LiquidationMode application.LiquidationMode `gorm:"size:16;column:liquidation_mode" json:"liquidation_mode"`

	Status          Status    `gorm:"size:16;column:status;default:'Originated'" json:"status"`
	OriginationDate time.Time `gorm:"column:origination_date" json:"origination_date"`
	MaturityDate    time.Time `gorm:"column:maturity_date" json:"maturity_date"`

	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"-"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"-"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Loan) TableName() string { return "loans" }

// Outstanding is everything owed if the loan were settled now.
func (l *Loan) Outstanding() decimal.Decimal {
	return l.PrincipalAmount.Add(l.InterestAmount).Add(l.PremiAmount).Add(l.LiquidationFeeAmount)
}

// LoanRepayment tracks the pending repayment request for a loan; at most
// one row per loan. A newer request overwrites the prior pending one
// instead of stacking.
type LoanRepayment struct {
	ID     uint64 `gorm:"primaryKey;column:id" json:"-"`
	LoanID string `gorm:"size:32;column:loan_id;uniqueIndex:ux_loan_repayments_loan_id" json:"loan_id"`

	RepaymentInitiator   Initiator `gorm:"size:16;column:repayment_initiator" json:"repayment_initiator"`
	RepaymentInvoiceID   string    `gorm:"size:32;column:repayment_invoice_id" json:"repayment_invoice_id"`
	RepaymentInvoiceDate time.Time `gorm:"column:repayment_invoice_date" json:"repayment_invoice_date"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"-"`
}

func (LoanRepayment) TableName() string { return "loan_repayments" }

type LiquidationStatus string

const (
	LiquidationPending   LiquidationStatus = "Pending"
	LiquidationExecuted  LiquidationStatus = "Executed"
	LiquidationFailed    LiquidationStatus = "Failed"
	LiquidationCancelled LiquidationStatus = "Cancelled"
)

// LoanLiquidation is the forced-sale order for a loan; at most one row per
// loan, ever. A second request is a hard conflict, not an overwrite.
type LoanLiquidation struct {
	ID     uint64 `gorm:"primaryKey;column:id" json:"-"`
	LoanID string `gorm:"size:32;column:loan_id;uniqueIndex:ux_loan_liquidations_loan_id" json:"loan_id"`

	LiquidationInitiator    Initiator       `gorm:"size:16;column:liquidation_initiator" json:"liquidation_initiator"`
	LiquidationTargetAmount decimal.Decimal `gorm:"type:decimal(38,0);column:liquidation_target_amount" json:"liquidation_target_amount"`

	MarketProvider string `gorm:"size:64;column:market_provider" json:"market_provider"`
	MarketSymbol   string `gorm:"size:32;column:market_symbol" json:"market_symbol"`
	OrderRef       string `gorm:"size:64;column:order_ref" json:"order_ref"`

	Status    LiquidationStatus `gorm:"size:16;column:status;default:'Pending'" json:"status"`
	OrderDate time.Time         `gorm:"column:order_date" json:"order_date"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"-"`
}

func (LoanLiquidation) TableName() string { return "loan_liquidations" }
