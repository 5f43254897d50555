package currency

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Currency is immutable reference data for an on-chain asset, keyed by
// (blockchain_key, token_id). Amount columns are integers in the token's
// smallest unit; Decimals converts to display units.
type Currency struct {
	ID            uint64 `gorm:"primaryKey;column:id" json:"-"`
	BlockchainKey string `gorm:"size:32;column:blockchain_key;uniqueIndex:ux_currencies_chain_token" json:"blockchain_key"`
	TokenID       string `gorm:"size:32;column:token_id;uniqueIndex:ux_currencies_chain_token" json:"token_id"`
	Symbol        string `gorm:"size:16;column:symbol" json:"symbol"`
	Name          string `gorm:"size:64;column:name" json:"name"`
	Decimals      int    `gorm:"column:decimals" json:"decimals"`

	// LTV bounds and alerting thresholds, percentages.
	MaxLtvRatio          decimal.Decimal `gorm:"type:decimal(8,4);column:max_ltv_ratio" json:"max_ltv_ratio"`
	WarningLtvRatio      decimal.Decimal `gorm:"type:decimal(8,4);column:warning_ltv_ratio" json:"warning_ltv_ratio"`
	CriticalLtvRatio     decimal.Decimal `gorm:"type:decimal(8,4);column:critical_ltv_ratio" json:"critical_ltv_ratio"`
	LiquidationLtvRatio  decimal.Decimal `gorm:"type:decimal(8,4);column:liquidation_ltv_ratio" json:"liquidation_ltv_ratio"`

	// Smallest-unit bounds.
	MinWithdrawalAmount    decimal.Decimal `gorm:"type:decimal(38,0);column:min_withdrawal_amount" json:"min_withdrawal_amount"`
	MaxWithdrawalAmount    decimal.Decimal `gorm:"type:decimal(38,0);column:max_withdrawal_amount" json:"max_withdrawal_amount"`
	MinLoanPrincipalAmount decimal.Decimal `gorm:"type:decimal(38,0);column:min_loan_principal_amount" json:"min_loan_principal_amount"`
	MaxLoanPrincipalAmount decimal.Decimal `gorm:"type:decimal(38,0);column:max_loan_principal_amount" json:"max_loan_principal_amount"`

	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"-"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Currency) TableName() string { return "currencies" }

// Unit returns 10^Decimals as a decimal, for smallest-unit conversions.
func (c *Currency) Unit() decimal.Decimal {
	return decimal.New(1, int32(c.Decimals))
}
