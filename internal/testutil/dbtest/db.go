package dbtest

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"cryptolend-backend/internal/domain/application"
	"cryptolend-backend/internal/domain/currency"
	"cryptolend-backend/internal/domain/invoice"
	"cryptolend-backend/internal/domain/ledger"
	"cryptolend-backend/internal/domain/loan"
	"cryptolend-backend/internal/domain/offer"
	"cryptolend-backend/internal/domain/platformconfig"
	"cryptolend-backend/internal/domain/rate"
	"cryptolend-backend/internal/domain/withdrawal"
)

// OpenSQLite returns an in-memory database with the full schema. It
// mirrors the production gorm config where it matters: TranslateError
// must be on so unique-index violations surface as gorm.ErrDuplicatedKey
// in tests exactly as they do against MySQL.
func OpenSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&currency.Currency{},
		&rate.PriceFeed{},
		&rate.ExchangeRate{},
		&platformconfig.PlatformConfig{},
		&invoice.Invoice{},
		&offer.LoanOffer{},
		&application.LoanApplication{},
		&loan.Loan{},
		&loan.LoanRepayment{},
		&loan.LoanLiquidation{},
		&withdrawal.Withdrawal{},
		&ledger.AccountMutation{},
	); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}
