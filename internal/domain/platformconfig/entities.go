package platformconfig

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// PlatformConfig is one row of the time-versioned platform configuration
// log. Rows are never mutated after creation; resolution picks the latest
// row with effective_date <= asOf. Rates are percentages.
type PlatformConfig struct {
	ID            uint64    `gorm:"primaryKey;column:id" json:"-"`
	EffectiveDate time.Time `gorm:"column:effective_date;index:idx_platform_configs_effective" json:"effective_date"`

	LoanProvisionRate decimal.Decimal `gorm:"type:decimal(8,4);column:loan_provision_rate" json:"loan_provision_rate"`
	LoanMinLtvRatio   decimal.Decimal `gorm:"type:decimal(8,4);column:loan_min_ltv_ratio" json:"loan_min_ltv_ratio"`
	LoanMaxLtvRatio   decimal.Decimal `gorm:"type:decimal(8,4);column:loan_max_ltv_ratio" json:"loan_max_ltv_ratio"`

	RedeliveryFeeRate decimal.Decimal `gorm:"type:decimal(8,4);column:redelivery_fee_rate" json:"redelivery_fee_rate"`
	LiquidationFeeRate decimal.Decimal `gorm:"type:decimal(8,4);column:liquidation_fee_rate" json:"liquidation_fee_rate"`

	// Flat fee in the withdrawal currency's smallest unit. Currently zero
	// everywhere; kept as data, not as a constant in code.
	WithdrawPlatformFeeAmount decimal.Decimal `gorm:"type:decimal(38,0);column:withdraw_platform_fee_amount" json:"withdraw_platform_fee_amount"`

	RepaymentDurationDays int `gorm:"column:repayment_duration_days" json:"repayment_duration_days"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (PlatformConfig) TableName() string { return "platform_configs" }

// ErrConfigNotFound means no config row is effective at the requested
// instant. At least one row must exist before any loan calculation runs.
var ErrConfigNotFound = errors.New("platform config not found")

type Repository interface {
	ResolveAsOf(ctx context.Context, asOf time.Time) (*PlatformConfig, error)
	Append(ctx context.Context, c *PlatformConfig) error
}
