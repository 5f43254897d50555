package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrAccountNotFound = errors.New("account not found")

type MutationType string

const (
	MutationDeposit          MutationType = "Deposit"
	MutationWithdraw         MutationType = "Withdraw"
	MutationWithdrawalRefund MutationType = "WithdrawalRefund"
	MutationLoanDisbursement MutationType = "LoanDisbursement"
	MutationLoanRepayment    MutationType = "LoanRepayment"
	MutationProvisionFee     MutationType = "ProvisionFee"
	MutationLiquidation      MutationType = "Liquidation"
)

// AccountMutation is one entry in the append-only ledger. Balances are
// never stored; they are the running sum of these rows. Amount is signed
// in the account currency's smallest unit.
type AccountMutation struct {
	ID         uint64 `gorm:"primaryKey;column:id" json:"-"`
	MutationID string `gorm:"size:32;column:mutation_id;uniqueIndex:ux_account_mutations_mutation_id" json:"mutation_id"`
	AccountID  string `gorm:"size:32;column:account_id;index:idx_account_mutations_account" json:"account_id"`

	BlockchainKey string `gorm:"size:32;column:blockchain_key" json:"blockchain_key"`
	TokenID       string `gorm:"size:32;column:token_id" json:"token_id"`

	MutationType MutationType    `gorm:"size:32;column:mutation_type" json:"mutation_type"`
	Amount       decimal.Decimal `gorm:"type:decimal(38,0);column:amount" json:"amount"`
	MutationDate time.Time       `gorm:"column:mutation_date;index:idx_account_mutations_account" json:"mutation_date"`

	InvoiceID    *string `gorm:"size:32;column:invoice_id;index" json:"invoice_id,omitempty"`
	WithdrawalID *string `gorm:"size:32;column:withdrawal_id;index" json:"withdrawal_id,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"-"`
}

func (AccountMutation) TableName() string { return "account_mutations" }

type Repository interface {
	Append(ctx context.Context, m *AccountMutation) error
	// Balance sums mutation amounts for the account up to and including
	// asOf.
	Balance(ctx context.Context, accountID string, asOf time.Time) (decimal.Decimal, error)
	ListByAccount(ctx context.Context, accountID string, limit int) ([]AccountMutation, error)
	// Accounts lists the distinct (account, chain, token) triples for a
	// user-owned set of account ids.
	Accounts(ctx context.Context, accountIDs []string) ([]AccountRef, error)
}

// AccountRef identifies one account and its currency.
type AccountRef struct {
	AccountID     string
	BlockchainKey string
	TokenID       string
}
