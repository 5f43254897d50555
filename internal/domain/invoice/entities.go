package invoice

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Type string

const (
	TypeLoanPrincipal      Type = "LoanPrincipal"
	TypeLoanCollateral     Type = "LoanCollateral"
	TypeLoanRepayment      Type = "LoanRepayment"
	TypeLoanEarlyRepayment Type = "LoanEarlyRepayment"
)

type Status string

const (
	StatusPending   Status = "Pending"
	StatusPaid      Status = "Paid"
	StatusExpired   Status = "Expired"
	StatusCancelled Status = "Cancelled"
)

var (
	ErrNotFound   = errors.New("invoice not found")
	ErrNotPending = errors.New("invoice is not pending")
)

// Invoice is a polymorphic payment request. Exactly one of the owner FKs
// is set, matching the invoice type: offers own LoanPrincipal invoices,
// applications own LoanCollateral, loans own the repayment types.
type Invoice struct {
	ID        uint64 `gorm:"primaryKey;column:id" json:"-"`
	InvoiceID string `gorm:"size:32;column:invoice_id;uniqueIndex:ux_invoices_invoice_id" json:"invoice_id"`
	Type      Type   `gorm:"size:32;column:type" json:"type"`
	Status    Status `gorm:"size:16;column:status;default:'Pending'" json:"status"`

	BlockchainKey  string          `gorm:"size:32;column:blockchain_key" json:"blockchain_key"`
	TokenID        string          `gorm:"size:32;column:token_id" json:"token_id"`
	InvoicedAmount decimal.Decimal `gorm:"type:decimal(38,0);column:invoiced_amount" json:"invoiced_amount"`

	LoanOfferID       *string `gorm:"size:32;column:loan_offer_id;index" json:"loan_offer_id,omitempty"`
	LoanApplicationID *string `gorm:"size:32;column:loan_application_id;index" json:"loan_application_id,omitempty"`
	LoanID            *string `gorm:"size:32;column:loan_id;index" json:"loan_id,omitempty"`

	InvoiceDate time.Time  `gorm:"column:invoice_date" json:"invoice_date"`
	DueDate     time.Time  `gorm:"column:due_date" json:"due_date"`
	PaidDate    *time.Time `gorm:"column:paid_date" json:"paid_date,omitempty"`

	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"-"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"-"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Invoice) TableName() string { return "invoices" }

type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByInvoiceID(ctx context.Context, invoiceID string) (*Invoice, error)
	GetPendingByLoanID(ctx context.Context, loanID string) (*Invoice, error)
	Save(ctx context.Context, inv *Invoice) error
}
